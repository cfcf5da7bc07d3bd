package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListingModel struct {
	ID            string              `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID       string              `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title         string              `gorm:"type:varchar(255);not null" json:"title"`
	Description   string              `gorm:"type:text" json:"description"`
	MonthlyRent   int                 `gorm:"not null" json:"monthly_rent"`
	City          string              `gorm:"type:varchar(100);index" json:"city"`
	Address       string              `gorm:"type:varchar(255)" json:"address"`
	AvailableFrom time.Time           `json:"available_from"`
	AvailableTo   time.Time           `json:"available_to"`
	Status        string              `gorm:"type:varchar(20);default:'pending'" json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	DeletedAt     gorm.DeletedAt      `gorm:"index" json:"-"`
	Photos        []ListingPhotoModel `gorm:"foreignKey:ListingID" json:"photos,omitempty"`
}

func (ListingModel) TableName() string {
	return "listings"
}

func (l *ListingModel) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

type ListingPhotoModel struct {
	ID          string    `gorm:"type:uuid;primary_key" json:"id"`
	ListingID   string    `gorm:"type:uuid;not null;index" json:"listing_id"`
	StoragePath string    `gorm:"type:varchar(500);not null" json:"storage_path"`
	ImageURL    string    `gorm:"type:varchar(500);not null" json:"image_url"`
	Order       int       `gorm:"column:order;default:0;index" json:"order"`
	Note        string    `gorm:"type:text" json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

func (ListingPhotoModel) TableName() string {
	return "listing_photos"
}

func (p *ListingPhotoModel) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
