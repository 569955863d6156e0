package models

import (
	"github.com/google/uuid"

	"stitchdesk/internal/decimal"
)

// ItemType is the kind of garment an order item or template describes.
type ItemType string

const (
	ItemBlouse ItemType = "BLOUSE"
	ItemSaree  ItemType = "SAREE"
	ItemDress  ItemType = "DRESS"
	ItemOther  ItemType = "OTHER"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemBlouse, ItemSaree, ItemDress, ItemOther:
		return true
	}
	return false
}

const (
	UnitCM   = "CM"
	UnitInch = "INCH"
)

// TemplateField is one measurement point drawn on the template sketch.
type TemplateField struct {
	Label string `json:"label"`
	Point string `json:"point"`
	Unit  string `json:"unit"`
}

type MeasurementTemplate struct {
	Base
	SoftDelete
	ShopID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_templates_shop_type" json:"-"`
	ItemType  ItemType        `gorm:"size:20;not null;index:idx_templates_shop_type" json:"item_type"`
	Name      string          `gorm:"size:200;not null" json:"name"`
	ImagePath string          `json:"image"`
	Fields    []TemplateField `gorm:"serializer:json;type:jsonb" json:"fields"`
	IsActive  bool            `gorm:"not null" json:"is_active"`
}

// Points returns the set of measurement point keys the template accepts.
func (t *MeasurementTemplate) Points() map[string]TemplateField {
	out := make(map[string]TemplateField, len(t.Fields))
	for _, f := range t.Fields {
		out[f.Point] = f
	}
	return out
}

// Values maps a template point to the measured value.
type Values map[string]decimal.Decimal

type Measurement struct {
	Base
	SoftDelete
	ShopID     uuid.UUID            `gorm:"type:uuid;not null;index:idx_measurements_shop_customer" json:"-"`
	CustomerID uuid.UUID            `gorm:"type:uuid;not null;index:idx_measurements_shop_customer" json:"customer"`
	Customer   *Customer            `json:"-"`
	TemplateID *uuid.UUID           `gorm:"type:uuid" json:"template"`
	Template   *MeasurementTemplate `json:"template_details,omitempty"`
	Values     Values               `gorm:"column:measurements;serializer:json;type:jsonb" json:"measurements"`
	Notes      string               `gorm:"type:text" json:"notes"`
}
