package usecase

import (
	"context"
	"errors"

	"sublet-market/pkg/logger"
	"sublet-market/pkg/metrics"
	"sublet-market/services/listing/internal/draft"
	"sublet-market/services/listing/internal/entity"
)

// DraftRef addresses one draft of one user, optionally bound to an existing listing.
type DraftRef struct {
	OwnerID   string
	Key       string
	ListingID string
}

// PreviewSource serves in-memory previews by id.
type PreviewSource interface {
	Get(id string) ([]byte, bool)
}

type DraftUseCase interface {
	GetDraft(ctx context.Context, ref DraftRef) (entity.DraftSnapshot, error)
	AddPhotos(ctx context.Context, ref DraftRef, files []draft.File) (draft.IntakeReport, entity.DraftSnapshot, error)
	RemovePhoto(ctx context.Context, ref DraftRef, index int) (entity.DraftSnapshot, error)
	SetCover(ctx context.Context, ref DraftRef, index int) (entity.DraftSnapshot, error)
	Reorder(ctx context.Context, ref DraftRef, from, to int) (entity.DraftSnapshot, error)
	SetNote(ctx context.Context, ref DraftRef, index int, note string) (entity.DraftSnapshot, error)
	Reset(ctx context.Context, ref DraftRef) error
	// Watch streams a snapshot after every change until stop is called.
	// Slow readers only see the latest snapshot.
	Watch(ctx context.Context, ref DraftRef) (snapshots <-chan entity.DraftSnapshot, stop func(), err error)
	Preview(id string) ([]byte, bool)
}

type draftUseCase struct {
	sessions *Sessions
	previews PreviewSource
	logger   *logger.Logger
}

func NewDraftUseCase(sessions *Sessions, previews PreviewSource, logger *logger.Logger) DraftUseCase {
	return &draftUseCase{
		sessions: sessions,
		previews: previews,
		logger:   logger,
	}
}

func (uc *draftUseCase) open(ctx context.Context, ref DraftRef) (*draft.Manager, error) {
	return uc.sessions.Open(ctx, ref.OwnerID, ref.Key, ref.ListingID)
}

func (uc *draftUseCase) GetDraft(ctx context.Context, ref DraftRef) (entity.DraftSnapshot, error) {
	m, err := uc.open(ctx, ref)
	if err != nil {
		return entity.DraftSnapshot{}, err
	}
	return m.Snapshot(), nil
}

func (uc *draftUseCase) AddPhotos(ctx context.Context, ref DraftRef, files []draft.File) (draft.IntakeReport, entity.DraftSnapshot, error) {
	m, err := uc.open(ctx, ref)
	if err != nil {
		return draft.IntakeReport{}, entity.DraftSnapshot{}, err
	}

	report := m.Intake(ctx, files)
	recordOutcomes(report)
	if report.PersistErr != nil {
		metrics.PersistenceFailures.Inc()
	}
	if len(report.Warnings) > 0 {
		uc.logger.Info("Draft %s intake: %v", m.Key(), report.Warnings)
	}
	return report, m.Snapshot(), nil
}

func (uc *draftUseCase) RemovePhoto(ctx context.Context, ref DraftRef, index int) (entity.DraftSnapshot, error) {
	return uc.mutate(ctx, ref, func(m *draft.Manager) error {
		return m.Remove(ctx, index)
	})
}

func (uc *draftUseCase) SetCover(ctx context.Context, ref DraftRef, index int) (entity.DraftSnapshot, error) {
	return uc.mutate(ctx, ref, func(m *draft.Manager) error {
		return m.SetCover(ctx, index)
	})
}

func (uc *draftUseCase) Reorder(ctx context.Context, ref DraftRef, from, to int) (entity.DraftSnapshot, error) {
	return uc.mutate(ctx, ref, func(m *draft.Manager) error {
		return m.Reorder(ctx, from, to)
	})
}

func (uc *draftUseCase) SetNote(ctx context.Context, ref DraftRef, index int, note string) (entity.DraftSnapshot, error) {
	return uc.mutate(ctx, ref, func(m *draft.Manager) error {
		return m.SetNote(ctx, index, note)
	})
}

// mutate applies op and returns the resulting snapshot. A persistence failure is
// returned alongside a valid snapshot since the change itself stands.
func (uc *draftUseCase) mutate(ctx context.Context, ref DraftRef, op func(*draft.Manager) error) (entity.DraftSnapshot, error) {
	m, err := uc.open(ctx, ref)
	if err != nil {
		return entity.DraftSnapshot{}, err
	}
	if err := op(m); err != nil {
		if draft.IsNonBlocking(err) {
			metrics.PersistenceFailures.Inc()
			return m.Snapshot(), err
		}
		return entity.DraftSnapshot{}, err
	}
	return m.Snapshot(), nil
}

func (uc *draftUseCase) Reset(ctx context.Context, ref DraftRef) error {
	m, err := uc.open(ctx, ref)
	if err != nil {
		return err
	}
	err = m.Clear(ctx)
	if err != nil {
		metrics.PersistenceFailures.Inc()
	}
	uc.sessions.Drop(ref.OwnerID, ref.Key)
	return err
}

func (uc *draftUseCase) Watch(ctx context.Context, ref DraftRef) (<-chan entity.DraftSnapshot, func(), error) {
	m, err := uc.open(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan entity.DraftSnapshot, 1)
	ch <- m.Snapshot()
	unsubscribe := m.Subscribe(func(s entity.DraftSnapshot) {
		// Called with the manager locked: never block.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	})
	return ch, unsubscribe, nil
}

func (uc *draftUseCase) Preview(id string) ([]byte, bool) {
	if uc.previews == nil {
		return nil, false
	}
	return uc.previews.Get(id)
}

func recordOutcomes(report draft.IntakeReport) {
	for _, o := range report.Outcomes {
		metrics.PhotoOutcomes.WithLabelValues(outcomeLabel(o)).Inc()
	}
	if report.SkippedForCapacity > 0 {
		metrics.PhotoOutcomes.WithLabelValues("skipped_capacity").Add(float64(report.SkippedForCapacity))
	}
}

func outcomeLabel(o draft.FileOutcome) string {
	var (
		verr *draft.ValidationError
		cerr *draft.ConversionError
		uerr *draft.UploadError
	)
	switch {
	case o.Err == nil:
		return "uploaded"
	case errors.As(o.Err, &verr):
		return "rejected"
	case errors.As(o.Err, &cerr):
		return "conversion_failed"
	case errors.As(o.Err, &uerr):
		return "upload_failed"
	default:
		return "failed"
	}
}
