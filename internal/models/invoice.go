package models

import (
	"github.com/google/uuid"

	"stitchdesk/internal/decimal"
)

const (
	GSTIntrastate = "intrastate"
	GSTInterstate = "interstate"
)

const DefaultInvoiceTerms = "1. Payment is due within 7 days.\n2. Alterations charged separately.\n3. Please collect items within 30 days."

type InvoiceUnit string

const (
	UnitPCS  InvoiceUnit = "PCS"
	UnitSET  InvoiceUnit = "SET"
	UnitPAIR InvoiceUnit = "PAIR"
	UnitMTR  InvoiceUnit = "MTR"
)

func (u InvoiceUnit) Valid() bool {
	return u == UnitPCS || u == UnitSET || u == UnitPAIR || u == UnitMTR
}

type Invoice struct {
	Base
	ShopID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_invoices_shop_number" json:"-"`
	InvoiceNumber   string     `gorm:"size:100;not null;index:idx_invoices_shop_number" json:"invoice_number"`
	InvoiceDate     Date       `gorm:"type:date;not null" json:"invoice_date"`
	OrderID         *uuid.UUID `gorm:"type:uuid;index" json:"order"`
	Order           *Order     `json:"-"`
	CustomerID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"customer"`
	Customer        *Customer  `json:"-"`
	CustomerAddress string     `gorm:"type:text" json:"customer_address"`

	GSTType     string           `gorm:"size:20" json:"gst_type"`
	CGSTPercent *decimal.Decimal `gorm:"column:cgst_percent;type:numeric(5,2)" json:"cgst_percent"`
	SGSTPercent *decimal.Decimal `gorm:"column:sgst_percent;type:numeric(5,2)" json:"sgst_percent"`
	IGSTPercent *decimal.Decimal `gorm:"column:igst_percent;type:numeric(5,2)" json:"igst_percent"`

	Subtotal    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	CGSTAmount  decimal.Decimal `gorm:"column:cgst_amount;type:numeric(12,2);not null" json:"cgst_amount"`
	SGSTAmount  decimal.Decimal `gorm:"column:sgst_amount;type:numeric(12,2);not null" json:"sgst_amount"`
	IGSTAmount  decimal.Decimal `gorm:"column:igst_amount;type:numeric(12,2);not null" json:"igst_amount"`
	TaxAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`

	Notes              string        `gorm:"type:text" json:"notes"`
	TermsAndConditions string        `gorm:"type:text" json:"terms_and_conditions"`
	CreatedByID        *uint         `json:"created_by"`
	Items              []InvoiceItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`

	OrderNumber   string `gorm:"-" json:"order_number"`
	CustomerName  string `gorm:"-" json:"customer_name"`
	CustomerPhone string `gorm:"-" json:"customer_phone"`
}

func (i *Invoice) FillRefs() {
	if i.Customer != nil {
		i.CustomerName = i.Customer.Name
		i.CustomerPhone = i.Customer.Phone
	}
	if i.Order != nil {
		i.OrderNumber = i.Order.OrderNumber
	}
}

type InvoiceItem struct {
	Base
	InvoiceID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	ItemDescription string          `gorm:"size:500;not null" json:"item_description"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	Unit            InvoiceUnit     `gorm:"size:10;not null" json:"unit"`
	UnitPrice       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	OrderItemID     *uuid.UUID      `gorm:"type:uuid" json:"order_item"`
}
