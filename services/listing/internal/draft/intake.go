package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sublet-market/pkg/convert"
	"sublet-market/services/listing/internal/entity"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// FileOutcome is the terminal state of one selected file.
type FileOutcome struct {
	FileName string
	State    FileState
	Err      error
}

type IntakeReport struct {
	Submitted          int
	Added              []entity.PhotoEntry
	Outcomes           []FileOutcome
	SkippedForCapacity int
	// Warnings are shown once per batch.
	Warnings []string
	// PersistErr is set when the batch was added but the draft cache write failed.
	PersistErr error
}

// Errors returns the per-file failures, each naming its file.
func (r IntakeReport) Errors() []error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}

func (r IntakeReport) Failed() int {
	return len(r.Errors())
}

type dupKey struct {
	name string
	size int64
}

type intakeResult struct {
	entry   entity.PhotoEntry
	outcome FileOutcome
}

// Intake validates, converts and uploads a batch of files, then appends the
// successful ones in the order supplied. The set is persisted and subscribers
// are notified once, after every file in the batch has settled.
func (m *Manager) Intake(ctx context.Context, files []File) IntakeReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := IntakeReport{Submitted: len(files)}

	remaining := m.limits.MaxPhotos - len(m.photos)
	if remaining < 0 {
		remaining = 0
	}
	if len(files) > remaining {
		report.SkippedForCapacity = len(files) - remaining
		files = files[:remaining]
	}

	seen := make(map[dupKey]bool, len(m.photos)+len(files))
	for _, p := range m.photos {
		if p.OriginalFileName != "" {
			seen[dupKey{p.OriginalFileName, p.ByteSize}] = true
		}
	}

	// Slots keep the supplied order for both outcomes and appends.
	results := make([]intakeResult, len(files))
	accepted := make([]int, 0, len(files))
	for i, f := range files {
		if err := m.limits.validate(f); err != nil {
			results[i].outcome = FileOutcome{FileName: f.Name, State: StateFailed, Err: err}
			continue
		}
		k := dupKey{f.Name, declaredSize(f)}
		if seen[k] {
			results[i].outcome = FileOutcome{
				FileName: f.Name,
				State:    StateFailed,
				Err:      &ValidationError{FileName: f.Name, Reason: ErrDuplicatePhoto},
			}
			continue
		}
		seen[k] = true
		accepted = append(accepted, i)
	}

	var g errgroup.Group
	g.SetLimit(m.limits.Parallelism)
	for _, i := range accepted {
		i := i
		g.Go(func() error {
			results[i] = m.process(ctx, files[i])
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		report.Outcomes = append(report.Outcomes, r.outcome)
		if r.outcome.State != StateUploaded {
			if r.outcome.Err != nil && !isValidation(r.outcome.Err) {
				m.logger.Error("Photo intake failed for draft %s: %v", m.key, r.outcome.Err)
			}
			continue
		}
		r.entry.Order = len(m.photos)
		m.photos = append(m.photos, r.entry)
		report.Added = append(report.Added, r.entry)
	}

	report.Warnings = batchWarnings(report, remaining)

	if len(report.Added) > 0 {
		m.rev++
		report.PersistErr = m.persistLocked(ctx)
	}
	m.notifyLocked()

	return report
}

func (m *Manager) process(ctx context.Context, f File) intakeResult {
	tracker := newFileTracker(f.Name)
	fail := func(err error) intakeResult {
		_ = tracker.transition(StateFailed)
		return intakeResult{outcome: FileOutcome{FileName: f.Name, State: tracker.state, Err: err}}
	}

	data := f.Data
	ext := extensionFor(f.Name, f.ContentType)
	contentType := contentTypeFor(ext, f.ContentType)

	if convert.IsLegacyFormat(f.Name, f.ContentType) {
		_ = tracker.transition(StateConverting)
		if m.converter == nil {
			return fail(&ConversionError{FileName: f.Name, Err: convert.ErrDecoderUnavailable})
		}
		converted, err := m.converter.Convert(ctx, f.Data)
		if err != nil {
			return fail(&ConversionError{FileName: f.Name, Err: err})
		}
		data = converted
		ext = ".jpg"
		contentType = "image/jpeg"
	}

	_ = tracker.transition(StateUploading)
	path := m.objectPath(ext)
	uploaded, err := m.objects.Upload(ctx, path, data, contentType)
	if err != nil {
		return fail(&UploadError{FileName: f.Name, Path: path, Err: err})
	}
	_ = tracker.transition(StateUploaded)

	if uploaded.Path == "" {
		uploaded.Path = path
	}

	entry := entity.PhotoEntry{
		StoragePath:      uploaded.Path,
		RemoteURL:        uploaded.PublicURL,
		OriginalFileName: f.Name,
		ByteSize:         declaredSize(f),
		Preview:          m.previewFor(data, uploaded.PublicURL),
	}
	return intakeResult{
		entry:   entry,
		outcome: FileOutcome{FileName: f.Name, State: tracker.state},
	}
}

func (m *Manager) previewFor(data []byte, remoteURL string) entity.Preview {
	if m.previews == nil {
		return nil
	}
	p, err := m.previews.FromImage(data, remoteURL)
	if err != nil {
		// Images the thumbnailer cannot decode fall back to the uploaded object.
		return m.previews.Remote(remoteURL)
	}
	return p
}

// objectPath is unique per call: millisecond timestamp plus a random suffix.
func (m *Manager) objectPath(ext string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("listings/%s/%d-%s%s", m.namespace, m.now().UnixMilli(), suffix, ext)
}

func batchWarnings(r IntakeReport, remaining int) []string {
	var warnings []string
	if r.SkippedForCapacity > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"Only %d more %s can be added; %d %s skipped",
			remaining, plural(remaining, "photo", "photos"),
			r.SkippedForCapacity, plural(r.SkippedForCapacity, "was", "were"),
		))
	}
	if notAdded := r.Submitted - len(r.Added); notAdded > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"%d of %d %s could not be added",
			notAdded, r.Submitted, plural(r.Submitted, "photo", "photos"),
		))
	}
	return warnings
}

func isValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
