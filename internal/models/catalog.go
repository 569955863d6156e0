package models

import (
	"github.com/google/uuid"

	"stitchdesk/internal/decimal"
)

// CatalogItem is a reusable line item (description + HSN + rate) picked
// when drafting quotations.
type CatalogItem struct {
	Base
	ShopID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"-"`
	Description string           `gorm:"size:500;not null" json:"description"`
	HSNCode     string           `gorm:"size:50" json:"hsn_code"`
	DefaultRate *decimal.Decimal `gorm:"type:numeric(12,2)" json:"default_rate"`
}

func (CatalogItem) TableName() string { return "items" }
