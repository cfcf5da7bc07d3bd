package entity

import "time"

type ListingStatus string

const (
	StatusPending  ListingStatus = "pending"
	StatusApproved ListingStatus = "approved"
	StatusRejected ListingStatus = "rejected"
)

type Listing struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"owner_id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	MonthlyRent   int            `json:"monthly_rent"`
	City          string         `json:"city"`
	Address       string         `json:"address"`
	AvailableFrom time.Time      `json:"available_from"`
	AvailableTo   time.Time      `json:"available_to"`
	Status        ListingStatus  `json:"status"`
	Photos        []ListingPhoto `json:"photos,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type ListingPhoto struct {
	ID          string    `json:"id"`
	ListingID   string    `json:"listing_id"`
	StoragePath string    `json:"storage_path"`
	ImageURL    string    `json:"image_url"`
	Order       int       `json:"order"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

// CoverURL returns the image of the photo at order 0, if any.
func (l *Listing) CoverURL() string {
	for _, p := range l.Photos {
		if p.Order == 0 {
			return p.ImageURL
		}
	}
	return ""
}
