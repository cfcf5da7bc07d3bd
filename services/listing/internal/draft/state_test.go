package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileTracker_HappyPaths(t *testing.T) {
	plain := newFileTracker("a.jpg")
	assert.NoError(t, plain.transition(StateUploading))
	assert.NoError(t, plain.transition(StateUploaded))
	assert.Equal(t, []FileState{StateSelected, StateUploading, StateUploaded}, plain.history)

	legacy := newFileTracker("b.heic")
	assert.NoError(t, legacy.transition(StateConverting))
	assert.NoError(t, legacy.transition(StateUploading))
	assert.NoError(t, legacy.transition(StateUploaded))
	assert.True(t, legacy.state.Terminal())
}

func TestFileTracker_FailureFromEveryActiveState(t *testing.T) {
	for _, path := range [][]FileState{
		{StateFailed},
		{StateConverting, StateFailed},
		{StateUploading, StateFailed},
	} {
		tr := newFileTracker("x")
		for _, s := range path {
			assert.NoError(t, tr.transition(s))
		}
		assert.Equal(t, StateFailed, tr.state)
	}
}

func TestFileTracker_NoRetry(t *testing.T) {
	tr := newFileTracker("x")
	assert.NoError(t, tr.transition(StateFailed))

	assert.Error(t, tr.transition(StateUploading))
	assert.Error(t, tr.transition(StateSelected))
	assert.Equal(t, StateFailed, tr.state)
}

func TestFileTracker_NoSkippingUpload(t *testing.T) {
	tr := newFileTracker("x")
	assert.Error(t, tr.transition(StateUploaded))

	assert.NoError(t, tr.transition(StateConverting))
	assert.Error(t, tr.transition(StateUploaded))
}
