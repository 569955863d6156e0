package models

import (
	"github.com/google/uuid"

	"stitchdesk/internal/decimal"
)

const (
	TaxTypeGST    = "GST"
	TaxTypeNonGST = "NON_GST"
)

var InvoiceTemplates = []string{"classic", "modern", "minimal", "elegant"}

// Shop holds the business settings shared by every user of the shop.
type Shop struct {
	Base
	ShopName    string `gorm:"size:200;not null;default:'My Shop'" json:"shop_name"`
	LogoPath    string `json:"logo"`
	PhoneNumber string `gorm:"size:20" json:"phone_number"`
	Email       string `json:"email"`
	FullAddress string `gorm:"type:text" json:"full_address"`
	GSTNumber   string `gorm:"size:20" json:"gst_number"`

	InvoicePrefix   string `gorm:"size:50;not null;default:'INV/25-26/'" json:"invoice_prefix"`
	QuotationPrefix string `gorm:"size:50;not null;default:'QUO/25-26/'" json:"quotation_prefix"`
	DefaultCurrency string `gorm:"size:10;not null;default:'INR'" json:"default_currency"`

	DeliveryDurationDays int `gorm:"not null;default:7" json:"delivery_duration_days"`

	InvoiceNumberingFormat string          `gorm:"size:100;not null;default:'{prefix}{number}'" json:"invoice_numbering_format"`
	DefaultTaxType         string          `gorm:"size:20;not null;default:'GST'" json:"default_tax_type"`
	DefaultCGSTPercent     decimal.Decimal `gorm:"column:default_cgst_percent;type:numeric(5,2);not null;default:9" json:"default_cgst_percent"`
	DefaultSGSTPercent     decimal.Decimal `gorm:"column:default_sgst_percent;type:numeric(5,2);not null;default:9" json:"default_sgst_percent"`
	DefaultIGSTPercent     decimal.Decimal `gorm:"column:default_igst_percent;type:numeric(5,2);not null;default:18" json:"default_igst_percent"`
	ShowTaxOnInvoice       bool            `gorm:"not null" json:"show_tax_on_invoice"`
	InvoiceTemplate        string          `gorm:"size:20;not null;default:'classic'" json:"invoice_template"`

	PaymentMethods []PaymentMethod `json:"payment_methods,omitempty"`
}

// NewShop returns a shop with the defaults a fresh account starts with.
func NewShop(name string) *Shop {
	return &Shop{
		ShopName:               name,
		InvoicePrefix:          "INV/25-26/",
		QuotationPrefix:        "QUO/25-26/",
		DefaultCurrency:        "INR",
		DeliveryDurationDays:   7,
		InvoiceNumberingFormat: "{prefix}{number}",
		DefaultTaxType:         TaxTypeGST,
		DefaultCGSTPercent:     decimal.FromInt(9),
		DefaultSGSTPercent:     decimal.FromInt(9),
		DefaultIGSTPercent:     decimal.FromInt(18),
		ShowTaxOnInvoice:       true,
		InvoiceTemplate:        "classic",
	}
}

// PaymentMethod is a shop-defined way of taking payment (Cash, UPI, ...).
type PaymentMethod struct {
	Base
	ShopID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_payment_methods_shop_name" json:"-"`
	Name     string    `gorm:"size:50;not null;uniqueIndex:idx_payment_methods_shop_name" json:"name"`
	IsActive bool      `gorm:"not null" json:"is_active"`
}

var DefaultPaymentMethods = []string{"Cash", "UPI"}
