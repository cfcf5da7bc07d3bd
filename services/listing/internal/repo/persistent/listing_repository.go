package persistent

import (
	"context"
	"errors"

	"sublet-market/services/listing/internal/entity"
	"sublet-market/services/listing/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrListingNotFound = errors.New("listing not found")

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) error
	// ReplacePhotos swaps the photo rows of an existing listing and resets it to pending.
	ReplacePhotos(ctx context.Context, listingID string, photos []entity.ListingPhoto) error
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	listingModel := ToListingModel(listing)
	if listingModel.ID == "" {
		listingModel.ID = uuid.New().String()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		photos := listingModel.Photos
		listingModel.Photos = nil

		if err := tx.Create(listingModel).Error; err != nil {
			return err
		}

		if err := createPhotos(tx, listingModel.ID, photos); err != nil {
			return err
		}
		listingModel.Photos = photos

		*listing = *ToListingEntity(listingModel)
		return nil
	})
}

func (r *listingRepository) ReplacePhotos(ctx context.Context, listingID string, photos []entity.ListingPhoto) error {
	rows := make([]model.ListingPhotoModel, len(photos))
	for i := range photos {
		rows[i] = *ToListingPhotoModel(&photos[i])
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ListingModel{}).
			Where("id = ?", listingID).
			Update("status", string(entity.StatusPending))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrListingNotFound
		}

		if err := tx.Where("listing_id = ?", listingID).Delete(&model.ListingPhotoModel{}).Error; err != nil {
			return err
		}
		return createPhotos(tx, listingID, rows)
	})
}

func createPhotos(tx *gorm.DB, listingID string, photos []model.ListingPhotoModel) error {
	for i := range photos {
		photos[i].ListingID = listingID
		if photos[i].ID == "" {
			photos[i].ID = uuid.New().String()
		}
		if err := tx.Create(&photos[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	var listingModel model.ListingModel
	err := r.db.WithContext(ctx).Preload("Photos", func(db *gorm.DB) *gorm.DB {
		return db.Order(`listing_photos."order" ASC`)
	}).Where("id = ?", id).First(&listingModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return ToListingEntity(&listingModel), nil
}
