package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
)

func sampleShop() *models.Shop {
	s := models.NewShop("Asha Boutique")
	s.FullAddress = "12 Market Road\nCoimbatore"
	s.PhoneNumber = "9876543210"
	s.GSTNumber = "33ABCDE1234F1Z5"
	return s
}

func sampleInvoice() *models.Invoice {
	nine := decimal.MustParse("9")
	return &models.Invoice{
		InvoiceNumber: "INV/25-26/0007",
		InvoiceDate:   models.NewDate(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)),
		Customer:      &models.Customer{Name: "Meena", Phone: "9000000001"},
		GSTType:       models.GSTIntrastate,
		CGSTPercent:   &nine,
		SGSTPercent:   &nine,
		Subtotal:      decimal.MustParse("1500"),
		CGSTAmount:    decimal.MustParse("135"),
		SGSTAmount:    decimal.MustParse("135"),
		TaxAmount:     decimal.MustParse("270"),
		TotalAmount:   decimal.MustParse("1770"),
		Notes:         "Deliver before Friday",
		Items: []models.InvoiceItem{
			{ItemDescription: "Blouse stitching with a very long description that needs truncating in the table", Quantity: 2, Unit: models.UnitPCS, UnitPrice: decimal.MustParse("500"), Amount: decimal.MustParse("1000")},
			{ItemDescription: "Saree fall", Quantity: 1, Unit: models.UnitSET, UnitPrice: decimal.MustParse("500"), Amount: decimal.MustParse("500")},
		},
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "Rs. 1,234.50", Money(decimal.MustParse("1234.5"), "INR"))
	assert.Equal(t, "Rs. 0.00", Money(decimal.Zero, ""))
	assert.Equal(t, "$80.00", Money(decimal.MustParse("80"), "usd"))
	assert.Equal(t, "-Rs. 12.00", Money(decimal.MustParse("-12"), "INR"))
	assert.Equal(t, "₹99.99", HTMLMoney(decimal.MustParse("99.99"), "INR"))
}

func TestPercentLabel(t *testing.T) {
	p := decimal.MustParse("9")
	assert.Equal(t, "CGST (9%)", percentLabel("CGST", &p))
	p = decimal.MustParse("2.5")
	assert.Equal(t, "CGST (2.5%)", percentLabel("CGST", &p))
	assert.Equal(t, "IGST", percentLabel("IGST", nil))
}

func TestInvoicePDF(t *testing.T) {
	for _, tpl := range models.InvoiceTemplates {
		t.Run(tpl, func(t *testing.T) {
			shop := sampleShop()
			shop.InvoiceTemplate = tpl
			b, err := New(nil).InvoicePDF(sampleInvoice(), shop)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
		})
	}
}

func TestPOSBill(t *testing.T) {
	b, err := New(nil).POSBill(sampleInvoice(), sampleShop())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
}

func TestQuotationPDF(t *testing.T) {
	q := &models.Quotation{
		QuotationNo:   "QUO/25-26/0001",
		Date:          models.NewDate(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)),
		ToAddress:     "Meena\nChennai",
		Currency:      "INR",
		DocumentType:  models.DocInvoice,
		PaymentStatus: models.DocUnpaid,
		Voided:        true,
		PaymentInfo:   models.PaymentInfo{BankName: "SBI", AccountNumber: "0012"},
		Items:         []models.QuotationLine{{Description: "Lehenga", Quantity: decimal.MustParse("1"), Rate: decimal.MustParse("4500"), Amount: decimal.MustParse("4500")}},
		SubTotal:      decimal.MustParse("4500"),
		GSTAmount:     decimal.MustParse("810"),
		TotalAmount:   decimal.MustParse("5310"),
	}
	b, err := New(nil).QuotationPDF(q, sampleShop())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
}

func TestPaymentBlock(t *testing.T) {
	got := paymentBlock(models.PaymentInfo{BankName: "SBI", IFSCCode: "SBIN0001", GPayPhonePe: " "})
	assert.Equal(t, "Bank: SBI\nIFSC: SBIN0001", got)
}

func TestPrintTemplates(t *testing.T) {
	tpls := Templates()
	for _, name := range models.InvoiceTemplates {
		t.Run(name, func(t *testing.T) {
			shop := sampleShop()
			shop.InvoiceTemplate = name
			var buf bytes.Buffer
			require.NoError(t, tpls.ExecuteTemplate(&buf, TemplateName(shop), NewPrintView(sampleInvoice(), shop)))
			html := buf.String()
			assert.Contains(t, html, "template-"+name)
			assert.Contains(t, html, "INV/25-26/0007")
			assert.Contains(t, html, "CGST (9%)")
			assert.Contains(t, html, "₹1,770.00")
			assert.Contains(t, html, "Coimbatore")
		})
	}
}

func TestPrintViewHidesTax(t *testing.T) {
	shop := sampleShop()
	shop.ShowTaxOnInvoice = false
	v := NewPrintView(sampleInvoice(), shop)
	assert.Empty(t, v.Taxes)
	assert.Equal(t, "Meena", v.Invoice.CustomerName)
}

func TestTemplateNameFallsBack(t *testing.T) {
	assert.Equal(t, "invoice_classic.tmpl", TemplateName(&models.Shop{InvoiceTemplate: "gaudy"}))
	assert.True(t, strings.HasSuffix(TemplateName(&models.Shop{InvoiceTemplate: "modern"}), "modern.tmpl"))
}
