package models

import (
	"time"

	"github.com/google/uuid"

	"stitchdesk/internal/decimal"
)

const (
	DocQuotation = "quotation"
	DocInvoice   = "invoice"
)

const (
	DocPaid   = "paid"
	DocUnpaid = "unpaid"
)

var Currencies = []string{"INR", "USD", "EUR", "GBP"}

// QuotationLine is one row of a quotation. Lines are stored inline as JSON.
type QuotationLine struct {
	Description string          `json:"description"`
	HSNCode     string          `json:"hsn_code,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// Quotation is a free-form quotation or invoice document, independent of
// orders.
type Quotation struct {
	Base
	ShopID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_quotations_shop_no" json:"-"`
	CreatedByID   *uint     `json:"created_by"`
	QuotationNo   string    `gorm:"size:100;not null;uniqueIndex:idx_quotations_shop_no" json:"quotation_no"`
	Date          Date      `gorm:"type:date;not null" json:"date"`
	ToAddress     string    `gorm:"type:text;not null" json:"to_address"`
	ClientPhone   string    `gorm:"size:50" json:"client_phone"`
	Currency      string    `gorm:"size:10;not null" json:"currency"`
	DocumentType  string    `gorm:"size:20;not null" json:"document_type"`
	PaymentStatus string    `gorm:"size:20;not null" json:"payment_status"`

	PaymentInfo `gorm:"embedded"`

	GSTType  string           `gorm:"size:20" json:"gst_type"`
	CGSTRate *decimal.Decimal `gorm:"column:cgst_rate;type:numeric(5,2)" json:"cgst_rate"`
	SGSTRate *decimal.Decimal `gorm:"column:sgst_rate;type:numeric(5,2)" json:"sgst_rate"`
	IGSTRate *decimal.Decimal `gorm:"column:igst_rate;type:numeric(5,2)" json:"igst_rate"`

	Items       []QuotationLine `gorm:"serializer:json;type:jsonb;not null" json:"items"`
	SubTotal    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"sub_total"`
	GSTAmount   decimal.Decimal `gorm:"column:gst_amount;type:numeric(12,2);not null" json:"gst_amount"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`

	ShareToken *string `gorm:"size:100;uniqueIndex" json:"share_token"`
	Voided     bool    `gorm:"not null" json:"voided"`
}

func (q *Quotation) IsInvoice() bool { return q.DocumentType == DocInvoice }

// CreatedDay is the creation date used for bulk export file names.
func (q *Quotation) CreatedDay() string { return q.CreatedAt.In(time.UTC).Format(DateLayout) }
