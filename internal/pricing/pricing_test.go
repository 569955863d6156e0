package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
)

var d = decimal.MustParse

func TestOrderTotals(t *testing.T) {
	got := OrderTotals(d("1200"), d("150.50"), d("100"), d("45.25"), d("500"))
	assert.Equal(t, d("1250.50"), got.Subtotal)
	assert.Equal(t, d("1295.75"), got.Total)
	assert.Equal(t, d("795.75"), got.Balance)
}

func TestOrderTotalsOverpaid(t *testing.T) {
	got := OrderTotals(d("100"), decimal.Zero, decimal.Zero, decimal.Zero, d("120"))
	assert.True(t, got.Balance.IsNegative())
}

func TestItemsTotal(t *testing.T) {
	items := []Line{
		{Quantity: 2, UnitPrice: decimal.Ptr(d("450"))},
		{Quantity: 1, UnitPrice: nil},
		{Quantity: 3, UnitPrice: decimal.Ptr(d("99.99"))},
	}
	assert.Equal(t, d("1199.97"), ItemsTotal(items))
	assert.True(t, ItemsTotal([]Line{}).IsZero())
}

func TestDerivePaymentStatus(t *testing.T) {
	assert.Equal(t, models.PaymentUnpaid, DerivePaymentStatus(d("100"), decimal.Zero))
	assert.Equal(t, models.PaymentPartial, DerivePaymentStatus(d("100"), d("40")))
	assert.Equal(t, models.PaymentPaid, DerivePaymentStatus(d("100"), d("100")))
	assert.Equal(t, models.PaymentPaid, DerivePaymentStatus(d("100"), d("150")))
	assert.Equal(t, models.PaymentUnpaid, DerivePaymentStatus(decimal.Zero, decimal.Zero))
}

func TestGST(t *testing.T) {
	r := Rates{CGST: d("9"), SGST: d("9"), IGST: d("18")}

	intra := GST(d("1000"), models.GSTIntrastate, r)
	assert.Equal(t, d("90"), intra.CGST)
	assert.Equal(t, d("90"), intra.SGST)
	assert.True(t, intra.IGST.IsZero())
	assert.Equal(t, d("180"), intra.Total)

	inter := GST(d("1000"), models.GSTInterstate, r)
	assert.Equal(t, d("180"), inter.IGST)
	assert.Equal(t, d("180"), inter.Total)

	none := GST(d("1000"), "", r)
	assert.True(t, none.Total.IsZero())

	odd := GST(d("333.33"), models.GSTIntrastate, Rates{CGST: d("2.5"), SGST: d("2.5")})
	assert.Equal(t, d("8.33"), odd.CGST)
	assert.Equal(t, d("16.66"), odd.Total)
}

func TestQuotationTotals(t *testing.T) {
	lines := []models.QuotationLine{
		{Description: "Blouse stitching", Quantity: d("2"), Rate: d("500")},
		{Description: "Lining", Quantity: d("1.5"), Rate: d("120"), Amount: d("180")},
	}
	r := Rates{CGST: d("9"), SGST: d("9")}

	inr := QuotationTotals(lines, "INR", models.GSTIntrastate, r)
	assert.Equal(t, d("1000"), inr.Lines[0].Amount)
	assert.Equal(t, d("1180"), inr.SubTotal)
	assert.Equal(t, d("212.40"), inr.GST)
	assert.Equal(t, d("1392.40"), inr.Total)

	usd := QuotationTotals(lines, "USD", models.GSTIntrastate, r)
	assert.True(t, usd.GST.IsZero())
	assert.Equal(t, d("1180"), usd.Total)
}
