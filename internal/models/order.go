package models

import (
	"github.com/google/uuid"

	"stitchdesk/internal/decimal"
)

type OrderStatus string

const (
	StatusPending     OrderStatus = "PENDING"
	StatusInStitching OrderStatus = "IN_STITCHING"
	StatusReady       OrderStatus = "READY"
	StatusDelivered   OrderStatus = "DELIVERED"
)

// orderFlow is the forward order of statuses.
var orderFlow = []OrderStatus{StatusPending, StatusInStitching, StatusReady, StatusDelivered}

func (s OrderStatus) rank() int {
	for i, v := range orderFlow {
		if v == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool { return s.rank() >= 0 }

// Before reports whether s comes earlier in the workflow than o.
func (s OrderStatus) Before(o OrderStatus) bool { return s.rank() < o.rank() }

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentUnpaid || s == PaymentPartial || s == PaymentPaid
}

type PaymentMode string

const (
	PayCash PaymentMode = "CASH"
	PayUPI  PaymentMode = "UPI"
	PayBank PaymentMode = "BANK"
)

func (m PaymentMode) Valid() bool {
	return m == "" || m == PayCash || m == PayUPI || m == PayBank
}

type Order struct {
	Base
	SoftDelete
	ShopID       uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_orders_shop_number;index:idx_orders_shop_status" json:"-"`
	CustomerID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"customer"`
	Customer     *Customer   `json:"-"`
	OrderNumber  string      `gorm:"size:100;not null;uniqueIndex:idx_orders_shop_number" json:"order_number"`
	OrderDate    Date        `gorm:"type:date;not null" json:"order_date"`
	DeliveryDate Date        `gorm:"type:date;not null" json:"delivery_date"`
	Status       OrderStatus `gorm:"size:20;not null;index:idx_orders_shop_status" json:"status"`

	StitchingCharge decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"stitching_charge"`
	ExtraCharge     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"extra_charge"`
	Discount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Tax             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`

	PaymentStatus PaymentStatus   `gorm:"size:20;not null" json:"payment_status"`
	AmountPaid    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount_paid"`
	BalanceAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"balance_amount"`
	PaymentMethod PaymentMode     `gorm:"size:20" json:"payment_method"`

	Notes       string      `gorm:"type:text" json:"notes"`
	CreatedByID *uint       `json:"created_by"`
	Items       []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`

	CustomerName  string `gorm:"-" json:"customer_name"`
	CustomerPhone string `gorm:"-" json:"customer_phone"`
}

// FillCustomer copies the denormalised customer fields used by the API.
func (o *Order) FillCustomer() {
	if o.Customer != nil {
		o.CustomerName = o.Customer.Name
		o.CustomerPhone = o.Customer.Phone
	}
}

type OrderItem struct {
	Base
	OrderID         uuid.UUID            `gorm:"type:uuid;not null;index" json:"order"`
	TemplateID      *uuid.UUID           `gorm:"type:uuid" json:"template"`
	Template        *MeasurementTemplate `json:"template_details,omitempty"`
	ItemType        ItemType             `gorm:"size:20;not null" json:"item_type"`
	Quantity        int                  `gorm:"not null" json:"quantity"`
	UnitPrice       *decimal.Decimal     `gorm:"type:numeric(12,2)" json:"unit_price"`
	Measurements    Values               `gorm:"serializer:json;type:jsonb" json:"measurements"`
	SampleGiven     bool                 `gorm:"not null" json:"sample_given"`
	DesignReference string               `gorm:"type:text" json:"design_reference"`
	Notes           string               `gorm:"type:text" json:"notes"`
}
