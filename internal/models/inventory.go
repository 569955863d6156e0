package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"stitchdesk/internal/decimal"
)

type StockUnit string

const (
	StockPCS   StockUnit = "PCS"
	StockMTR   StockUnit = "MTR"
	StockYRD   StockUnit = "YRD"
	StockSET   StockUnit = "SET"
	StockROLL  StockUnit = "ROLL"
	StockSPOOL StockUnit = "SPOOL"
	StockKG    StockUnit = "KG"
	StockGM    StockUnit = "GM"
)

func (u StockUnit) Valid() bool {
	switch u {
	case StockPCS, StockMTR, StockYRD, StockSET, StockROLL, StockSPOOL, StockKG, StockGM:
		return true
	}
	return false
}

type InventoryCategory struct {
	Base
	SoftDelete
	ShopID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_categories_shop_name,where:deleted_at IS NULL" json:"-"`
	Name        string    `gorm:"size:100;not null;uniqueIndex:idx_inventory_categories_shop_name" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	DefaultUnit StockUnit `gorm:"size:10;not null" json:"default_unit"`
	IsActive    bool      `gorm:"not null" json:"is_active"`

	ItemsCount int64 `gorm:"-" json:"items_count"`
}

type InventoryItem struct {
	Base
	SoftDelete
	ShopID       uuid.UUID          `gorm:"type:uuid;not null;index:idx_inventory_items_shop" json:"-"`
	CategoryID   *uuid.UUID         `gorm:"type:uuid;index" json:"category"`
	Category     *InventoryCategory `json:"-"`
	Name         string             `gorm:"size:200;not null" json:"name"`
	Description  string             `gorm:"type:text" json:"description"`
	SKU          string             `gorm:"column:sku;size:50" json:"sku"`
	Unit         StockUnit          `gorm:"size:10;not null" json:"unit"`
	CurrentStock decimal.Decimal    `gorm:"type:numeric(10,2);not null" json:"current_stock"`
	MinimumStock decimal.Decimal    `gorm:"type:numeric(10,2);not null" json:"minimum_stock"`
	Notes        string             `gorm:"type:text" json:"notes"`
	IsActive     bool               `gorm:"not null" json:"is_active"`
	CreatedByID  *uint              `json:"created_by"`

	CategoryName string `gorm:"-" json:"category_name"`
	IsLowStock   bool   `gorm:"-" json:"is_low_stock"`
}

// Refresh recomputes the derived, non-persisted fields.
func (i *InventoryItem) Refresh() {
	i.IsLowStock = i.CurrentStock.Cmp(i.MinimumStock) < 0
	if i.Category != nil {
		i.CategoryName = i.Category.Name
	}
}

func (i *InventoryItem) AfterFind(*gorm.DB) error {
	i.Refresh()
	return nil
}

type TransactionType string

const (
	TxIn         TransactionType = "IN"
	TxOut        TransactionType = "OUT"
	TxAdjustment TransactionType = "ADJUSTMENT"
)

type StockReason string

const (
	ReasonPurchase         StockReason = "PURCHASE"
	ReasonOrderUsage       StockReason = "ORDER_USAGE"
	ReasonDamaged          StockReason = "DAMAGED"
	ReasonReturned         StockReason = "RETURNED"
	ReasonManualAdjustment StockReason = "MANUAL_ADJUSTMENT"
	ReasonInitialStock     StockReason = "INITIAL_STOCK"
	ReasonOrderCancelled   StockReason = "ORDER_CANCELLED"
)

// ValidAdjustment reports whether r may be given for a manual adjustment.
func (r StockReason) ValidAdjustment() bool {
	return r == ReasonDamaged || r == ReasonManualAdjustment || r == ReasonReturned
}

type StockHistory struct {
	Base
	InventoryItemID uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_history_item" json:"inventory_item"`
	TransactionType TransactionType `gorm:"size:20;not null" json:"transaction_type"`
	Reason          StockReason     `gorm:"size:30;not null" json:"reason"`
	Quantity        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"quantity"`
	StockBefore     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"stock_before"`
	StockAfter      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"stock_after"`
	OrderID         *uuid.UUID      `gorm:"type:uuid;index" json:"order"`
	OrderMaterialID *uuid.UUID      `gorm:"type:uuid" json:"order_material"`
	SupplierName    string          `gorm:"size:200" json:"supplier_name"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedByID     *uint           `json:"created_by"`
}

func (StockHistory) TableName() string { return "stock_history" }

// OrderMaterial records inventory consumed by an order.
type OrderMaterial struct {
	Base
	ShopID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"-"`
	OrderID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"order"`
	InventoryItemID uuid.UUID        `gorm:"type:uuid;not null;index" json:"inventory_item"`
	InventoryItem   *InventoryItem   `json:"-"`
	Quantity        decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"quantity"`
	UnitPrice       *decimal.Decimal `gorm:"type:numeric(10,2)" json:"unit_price"`
	Notes           string           `gorm:"type:text" json:"notes"`
	AddedByID       *uint            `json:"added_by"`

	ItemName string    `gorm:"-" json:"item_name"`
	ItemUnit StockUnit `gorm:"-" json:"item_unit"`
}

// TotalCost is quantity times the recorded unit price, nil when unpriced.
func (m *OrderMaterial) TotalCost() *decimal.Decimal {
	if m.UnitPrice == nil {
		return nil
	}
	v := m.Quantity.Mul(*m.UnitPrice)
	return &v
}

func (m *OrderMaterial) FillItem() {
	if m.InventoryItem != nil {
		m.ItemName = m.InventoryItem.Name
		m.ItemUnit = m.InventoryItem.Unit
	}
}
