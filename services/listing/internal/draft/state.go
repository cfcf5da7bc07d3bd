package draft

import "fmt"

// FileState tracks one selected file through intake.
type FileState string

const (
	StateSelected   FileState = "selected"
	StateConverting FileState = "converting"
	StateUploading  FileState = "uploading"
	StateUploaded   FileState = "uploaded"
	StateFailed     FileState = "failed"
)

// There is no retry edge: a failed file has to be selected again.
var validTransitions = map[FileState]map[FileState]bool{
	StateSelected:   {StateConverting: true, StateUploading: true, StateFailed: true},
	StateConverting: {StateUploading: true, StateFailed: true},
	StateUploading:  {StateUploaded: true, StateFailed: true},
	StateUploaded:   {},
	StateFailed:     {},
}

func (s FileState) Terminal() bool {
	return len(validTransitions[s]) == 0
}

type fileTracker struct {
	name    string
	state   FileState
	history []FileState
}

func newFileTracker(name string) *fileTracker {
	return &fileTracker{
		name:    name,
		state:   StateSelected,
		history: []FileState{StateSelected},
	}
}

func (t *fileTracker) transition(to FileState) error {
	if !validTransitions[t.state][to] {
		return fmt.Errorf("%s: invalid transition %s -> %s", t.name, t.state, to)
	}
	t.state = to
	t.history = append(t.history, to)
	return nil
}
