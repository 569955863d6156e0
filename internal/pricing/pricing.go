// Package pricing holds the order, invoice and quotation arithmetic.
package pricing

import (
	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
)

type OrderAmounts struct {
	Subtotal decimal.Decimal
	Total    decimal.Decimal
	Balance  decimal.Decimal
}

// OrderTotals: subtotal = stitching + extra - discount, total = subtotal + tax,
// balance = total - paid.
func OrderTotals(stitching, extra, discount, tax, paid decimal.Decimal) OrderAmounts {
	sub := stitching.Add(extra).Sub(discount)
	total := sub.Add(tax)
	return OrderAmounts{Subtotal: sub, Total: total, Balance: total.Sub(paid)}
}

// PricedItem is anything with a quantity and an optional unit price.
type PricedItem interface {
	Qty() int
	Price() *decimal.Decimal
}

type Line struct {
	Quantity  int
	UnitPrice *decimal.Decimal
}

func (l Line) Qty() int                { return l.Quantity }
func (l Line) Price() *decimal.Decimal { return l.UnitPrice }

// ItemsTotal sums quantity x unit price, treating a missing price as zero.
func ItemsTotal[T PricedItem](items []T) decimal.Decimal {
	var total decimal.Decimal
	for _, it := range items {
		total = total.Add(LineAmount(it.Qty(), decimal.Or(it.Price(), decimal.Zero)))
	}
	return total
}

func LineAmount(qty int, price decimal.Decimal) decimal.Decimal { return price.MulInt(qty) }

// DerivePaymentStatus is used when the client does not send a status.
func DerivePaymentStatus(total, paid decimal.Decimal) models.PaymentStatus {
	switch {
	case total.IsPositive() && paid.Cmp(total) >= 0:
		return models.PaymentPaid
	case paid.IsPositive() && paid.Cmp(total) < 0:
		return models.PaymentPartial
	}
	return models.PaymentUnpaid
}

type Rates struct {
	CGST decimal.Decimal
	SGST decimal.Decimal
	IGST decimal.Decimal
}

type Tax struct {
	CGST  decimal.Decimal `json:"cgst_amount"`
	SGST  decimal.Decimal `json:"sgst_amount"`
	IGST  decimal.Decimal `json:"igst_amount"`
	Total decimal.Decimal `json:"tax_amount"`
}

// GST splits tax by supply type: intra-state pays CGST and SGST, inter-state
// pays IGST, anything else is untaxed.
func GST(subtotal decimal.Decimal, gstType string, r Rates) Tax {
	var t Tax
	switch gstType {
	case models.GSTIntrastate:
		t.CGST = subtotal.Percent(r.CGST)
		t.SGST = subtotal.Percent(r.SGST)
	case models.GSTInterstate:
		t.IGST = subtotal.Percent(r.IGST)
	}
	t.Total = decimal.Sum(t.CGST, t.SGST, t.IGST)
	return t
}

type QuotationAmounts struct {
	Lines    []models.QuotationLine
	SubTotal decimal.Decimal
	GST      decimal.Decimal
	Total    decimal.Decimal
}

// QuotationTotals fills missing line amounts and applies GST for INR only.
func QuotationTotals(lines []models.QuotationLine, currency, gstType string, r Rates) QuotationAmounts {
	out := QuotationAmounts{Lines: make([]models.QuotationLine, len(lines))}
	for i, l := range lines {
		if l.Amount.IsZero() {
			l.Amount = l.Quantity.Mul(l.Rate)
		}
		out.Lines[i] = l
		out.SubTotal = out.SubTotal.Add(l.Amount)
	}
	if currency == "INR" {
		out.GST = GST(out.SubTotal, gstType, r).Total
	}
	out.Total = out.SubTotal.Add(out.GST)
	return out
}
