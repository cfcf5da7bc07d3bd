package persistent

import (
	"sublet-market/services/listing/internal/entity"
	"sublet-market/services/listing/internal/model"
)

func ToListingEntity(m *model.ListingModel) *entity.Listing {
	if m == nil {
		return nil
	}

	listing := &entity.Listing{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		Title:         m.Title,
		Description:   m.Description,
		MonthlyRent:   m.MonthlyRent,
		City:          m.City,
		Address:       m.Address,
		AvailableFrom: m.AvailableFrom,
		AvailableTo:   m.AvailableTo,
		Status:        entity.ListingStatus(m.Status),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}

	if len(m.Photos) > 0 {
		listing.Photos = make([]entity.ListingPhoto, len(m.Photos))
		for i := range m.Photos {
			listing.Photos[i] = ToListingPhotoEntity(&m.Photos[i])
		}
	}

	return listing
}

func ToListingModel(e *entity.Listing) *model.ListingModel {
	if e == nil {
		return nil
	}

	listing := &model.ListingModel{
		ID:            e.ID,
		OwnerID:       e.OwnerID,
		Title:         e.Title,
		Description:   e.Description,
		MonthlyRent:   e.MonthlyRent,
		City:          e.City,
		Address:       e.Address,
		AvailableFrom: e.AvailableFrom,
		AvailableTo:   e.AvailableTo,
		Status:        string(e.Status),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}

	if len(e.Photos) > 0 {
		listing.Photos = make([]model.ListingPhotoModel, len(e.Photos))
		for i := range e.Photos {
			listing.Photos[i] = *ToListingPhotoModel(&e.Photos[i])
		}
	}

	return listing
}

func ToListingPhotoEntity(m *model.ListingPhotoModel) entity.ListingPhoto {
	if m == nil {
		return entity.ListingPhoto{}
	}

	return entity.ListingPhoto{
		ID:          m.ID,
		ListingID:   m.ListingID,
		StoragePath: m.StoragePath,
		ImageURL:    m.ImageURL,
		Order:       m.Order,
		Note:        m.Note,
		CreatedAt:   m.CreatedAt,
	}
}

func ToListingPhotoModel(e *entity.ListingPhoto) *model.ListingPhotoModel {
	if e == nil {
		return nil
	}

	return &model.ListingPhotoModel{
		ID:          e.ID,
		ListingID:   e.ListingID,
		StoragePath: e.StoragePath,
		ImageURL:    e.ImageURL,
		Order:       e.Order,
		Note:        e.Note,
		CreatedAt:   e.CreatedAt,
	}
}

// ToFinalPhotos turns stored listing photos back into draft input, e.g. to edit a listing.
func ToFinalPhotos(photos []entity.ListingPhoto) []entity.FinalPhoto {
	out := make([]entity.FinalPhoto, 0, len(photos))
	for _, p := range photos {
		out = append(out, entity.FinalPhoto{
			StoragePath: p.StoragePath,
			RemoteURL:   p.ImageURL,
			Order:       p.Order,
			Note:        p.Note,
		})
	}
	return out
}

// FromFinalPhotos maps a finalized draft onto listing photo rows.
func FromFinalPhotos(listingID string, photos []entity.FinalPhoto) []entity.ListingPhoto {
	out := make([]entity.ListingPhoto, 0, len(photos))
	for _, p := range photos {
		out = append(out, entity.ListingPhoto{
			ListingID:   listingID,
			StoragePath: p.StoragePath,
			ImageURL:    p.RemoteURL,
			Order:       p.Order,
			Note:        p.Note,
		})
	}
	return out
}
