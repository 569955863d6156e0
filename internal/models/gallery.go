package models

import (
	"github.com/google/uuid"

	"stitchdesk/internal/decimal"
)

type Availability string

const (
	AvailabilityAvailable    Availability = "AVAILABLE"
	AvailabilityCustomOnly   Availability = "CUSTOM_ORDER_ONLY"
	AvailabilityNotAccepting Availability = "NOT_ACCEPTING"
)

func (a Availability) Valid() bool {
	return a == AvailabilityAvailable || a == AvailabilityCustomOnly || a == AvailabilityNotAccepting
}

const MaxImagesPerItem = 10

const DefaultEnquiryTemplate = "Hi! I'm interested in this item from your gallery: {item_title}"

type GalleryCategory struct {
	Base
	SoftDelete
	ShopID       uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Name         string    `gorm:"size:200;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	CoverImage   string    `json:"cover_image"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	DisplayOrder int       `gorm:"not null" json:"display_order"`

	ItemsCount int64 `gorm:"-" json:"items_count"`
}

type GalleryItem struct {
	Base
	SoftDelete
	ShopID             uuid.UUID        `gorm:"type:uuid;not null;index:idx_gallery_items_shop_published" json:"-"`
	CategoryID         *uuid.UUID       `gorm:"type:uuid;index" json:"category"`
	Category           *GalleryCategory `json:"-"`
	Title              string           `gorm:"size:300;not null" json:"title"`
	Description        string           `gorm:"type:text" json:"description"`
	Price              *decimal.Decimal `gorm:"type:numeric(10,2)" json:"price"`
	AvailabilityStatus Availability     `gorm:"size:20;not null" json:"availability_status"`
	IsFeatured         bool             `gorm:"not null" json:"is_featured"`
	IsPublished        bool             `gorm:"not null;index:idx_gallery_items_shop_published" json:"is_published"`
	Images             []GalleryImage   `gorm:"constraint:OnDelete:CASCADE" json:"images"`

	CategoryName string `gorm:"-" json:"category_name"`
}

func (i *GalleryItem) FillCategory() {
	if i.Category != nil {
		i.CategoryName = i.Category.Name
	}
}

type GalleryImage struct {
	Base
	GalleryItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Image         string    `gorm:"not null" json:"image"`
	DisplayOrder  int       `gorm:"not null" json:"display_order"`
}

type GallerySettings struct {
	Base
	ShopID                 uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	IsPublicEnabled        bool        `gorm:"not null" json:"is_public_enabled"`
	ShowPrices             bool        `gorm:"not null" json:"show_prices"`
	WhatsAppNumber         string      `gorm:"column:whatsapp_number;size:20" json:"whatsapp_number"`
	EnquiryMessageTemplate string      `gorm:"type:text" json:"enquiry_message_template"`
	AccessPasswordHash     string      `gorm:"column:access_password" json:"-"`
	PublicCategoryIDs      []uuid.UUID `gorm:"serializer:json;type:jsonb" json:"public_category_ids"`

	HasPassword bool `gorm:"-" json:"has_password"`
}

func NewGallerySettings(shopID uuid.UUID, phone string) *GallerySettings {
	return &GallerySettings{
		ShopID:                 shopID,
		IsPublicEnabled:        true,
		ShowPrices:             true,
		WhatsAppNumber:         phone,
		EnquiryMessageTemplate: DefaultEnquiryTemplate,
		PublicCategoryIDs:      []uuid.UUID{},
	}
}

// CategoryVisible reports whether a category may be shown publicly. An empty
// allow-list shows every category.
func (s *GallerySettings) CategoryVisible(id uuid.UUID) bool {
	if len(s.PublicCategoryIDs) == 0 {
		return true
	}
	for _, v := range s.PublicCategoryIDs {
		if v == id {
			return true
		}
	}
	return false
}

type GalleryAnalytics struct {
	Base
	ShopID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_gallery_analytics_shop_date" json:"-"`
	Date           Date           `gorm:"type:date;not null;uniqueIndex:idx_gallery_analytics_shop_date" json:"date"`
	TotalViews     int            `gorm:"not null" json:"total_views"`
	UniqueVisitors int            `gorm:"not null" json:"unique_visitors"`
	ItemViews      map[string]int `gorm:"serializer:json;type:jsonb" json:"item_views"`
	CategoryViews  map[string]int `gorm:"serializer:json;type:jsonb" json:"category_views"`
}

func (GalleryAnalytics) TableName() string { return "gallery_analytics" }
