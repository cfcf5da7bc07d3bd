package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sublet-market/pkg/logger"
	"sublet-market/pkg/metrics"
	"sublet-market/pkg/queue"
	"sublet-market/services/listing/internal/draft"
	"sublet-market/services/listing/internal/entity"
	"sublet-market/services/listing/internal/repo/persistent"
)

var ErrNotEnoughPhotos = errors.New("not enough photos")

type ListingDetails struct {
	Title         string
	Description   string
	MonthlyRent   int
	City          string
	Address       string
	AvailableFrom time.Time
	AvailableTo   time.Time
}

// ModerationPublisher hands submitted listings to the moderation pipeline.
type ModerationPublisher interface {
	PublishModerationTask(ctx context.Context, task queue.ModerationTask) error
}

type SubmissionUseCase interface {
	// Submit finalizes the draft into a pending listing. The draft is cleared only
	// after the listing was stored. For a draft bound to an existing listing only the
	// photos are replaced and details are ignored.
	Submit(ctx context.Context, ref DraftRef, details ListingDetails) (*entity.Listing, error)
}

type submissionUseCase struct {
	sessions    *Sessions
	listingRepo persistent.ListingRepository
	publisher   ModerationPublisher
	minPhotos   int
	logger      *logger.Logger
}

func NewSubmissionUseCase(
	sessions *Sessions,
	listingRepo persistent.ListingRepository,
	publisher ModerationPublisher,
	minPhotos int,
	logger *logger.Logger,
) SubmissionUseCase {
	return &submissionUseCase{
		sessions:    sessions,
		listingRepo: listingRepo,
		publisher:   publisher,
		minPhotos:   minPhotos,
		logger:      logger,
	}
}

func (uc *submissionUseCase) Submit(ctx context.Context, ref DraftRef, details ListingDetails) (*entity.Listing, error) {
	m, err := uc.sessions.Open(ctx, ref.OwnerID, ref.Key, ref.ListingID)
	if err != nil {
		return nil, err
	}

	photos, rev := m.Checkpoint()
	if len(photos) < uc.minPhotos {
		metrics.Submissions.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: have %d, need at least %d", ErrNotEnoughPhotos, len(photos), uc.minPhotos)
	}

	listing, result, err := uc.store(ctx, ref, details, photos)
	if err != nil {
		metrics.Submissions.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to save listing: %w", err)
	}
	metrics.Submissions.WithLabelValues(result).Inc()

	uc.settleDraft(ctx, ref, m, rev, listing, photos)

	uc.publish(ctx, listing)
	return listing, nil
}

// settleDraft clears the submitted draft. Photos added or edits made while the
// listing was being saved stay in the draft instead of being cleared with it.
func (uc *submissionUseCase) settleDraft(ctx context.Context, ref DraftRef, m *draft.Manager, rev uint64, listing *entity.Listing, submitted []entity.FinalPhoto) {
	cleared, err := m.ClearIfUnchanged(ctx, rev)
	if err != nil {
		metrics.PersistenceFailures.Inc()
		uc.logger.Warn("Listing %s saved but draft %s was not cleared: %v", listing.ID, m.Key(), err)
	}
	if cleared {
		uc.sessions.Drop(ref.OwnerID, ref.Key)
		return
	}

	uc.logger.Warn("Draft %s changed while listing %s was saved; keeping the changes", m.Key(), listing.ID)
	// An edit draft is the listing's full photo set, so it is kept whole.
	if ref.ListingID != "" {
		return
	}
	if err := m.DropSubmitted(ctx, submitted); err != nil {
		metrics.PersistenceFailures.Inc()
		uc.logger.Warn("Failed to persist draft %s after submission: %v", m.Key(), err)
	}
}

func (uc *submissionUseCase) store(ctx context.Context, ref DraftRef, details ListingDetails, photos []entity.FinalPhoto) (*entity.Listing, string, error) {
	if ref.ListingID != "" {
		if err := uc.listingRepo.ReplacePhotos(ctx, ref.ListingID, persistent.FromFinalPhotos(ref.ListingID, photos)); err != nil {
			return nil, "", err
		}
		listing, err := uc.listingRepo.GetByID(ctx, ref.ListingID)
		if err != nil {
			return nil, "", err
		}
		return listing, "updated", nil
	}

	listing := &entity.Listing{
		OwnerID:       ref.OwnerID,
		Title:         details.Title,
		Description:   details.Description,
		MonthlyRent:   details.MonthlyRent,
		City:          details.City,
		Address:       details.Address,
		AvailableFrom: details.AvailableFrom,
		AvailableTo:   details.AvailableTo,
		Status:        entity.StatusPending,
		Photos:        persistent.FromFinalPhotos("", photos),
	}
	if err := uc.listingRepo.Create(ctx, listing); err != nil {
		return nil, "", err
	}
	return listing, "created", nil
}

func (uc *submissionUseCase) publish(ctx context.Context, listing *entity.Listing) {
	if uc.publisher == nil {
		return
	}
	task := queue.ModerationTask{
		ListingID:  listing.ID,
		OwnerID:    listing.OwnerID,
		PhotoCount: len(listing.Photos),
		CoverURL:   listing.CoverURL(),
		CreatedAt:  time.Now(),
	}
	if err := uc.publisher.PublishModerationTask(ctx, task); err != nil {
		uc.logger.Error("Failed to publish moderation task for listing %s: %v", listing.ID, err)
	}
}
