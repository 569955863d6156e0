package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }
func intp(n int) *int       { return &n }

func TestCheckTransition(t *testing.T) {
	owner := &models.User{}
	staff := &models.User{IsStaff: true}

	assert.NoError(t, checkTransition(owner, models.StatusPending, models.StatusReady))
	assert.NoError(t, checkTransition(owner, models.StatusReady, models.StatusReady))
	assert.Error(t, checkTransition(owner, models.StatusReady, models.StatusPending))
	assert.NoError(t, checkTransition(staff, models.StatusDelivered, models.StatusInStitching))
	assert.Error(t, checkTransition(staff, models.StatusPending, "SHIPPED"))
}

func TestValidateTemplateFields(t *testing.T) {
	fields := []models.TemplateField{
		{Point: " A ", Label: ""},
		{Point: "B", Label: "Bust", Unit: models.UnitInch},
		{Point: "A"},
		{Point: ""},
		{Point: "C", Unit: "MM"},
	}
	msgs := validateTemplateFields(fields)
	assert.Equal(t, []string{
		`Duplicate point "A".`,
		"Field 4: point is required.",
		`Field "C": unit must be CM or INCH.`,
	}, msgs)
	assert.Equal(t, "A", fields[0].Point)
	assert.Equal(t, "A", fields[0].Label, "label defaults to the point")
	assert.Equal(t, models.UnitCM, fields[0].Unit)
}

func TestValidateValues(t *testing.T) {
	tpl := &models.MeasurementTemplate{Name: "Blouse", Fields: []models.TemplateField{{Point: "A"}, {Point: "B"}}}
	msgs := validateValues(tpl, models.Values{
		"A": decimal.MustParse("32.5"),
		"B": decimal.MustParse("-1"),
		"Z": decimal.MustParse("3"),
	})
	assert.Equal(t, []string{
		`Measurement "B" must not be negative.`,
		`Unknown measurement point "Z" for template "Blouse".`,
	}, msgs)
}

func TestCleanAccountNumber(t *testing.T) {
	assert.Equal(t, "123456", cleanAccountNumber("w123456"))
	assert.Equal(t, "123456", cleanAccountNumber(" W123456 "))
	assert.Equal(t, "123456", cleanAccountNumber("123456"))
	assert.Equal(t, "", cleanAccountNumber(""))
}

func TestApplyQuotationTotals(t *testing.T) {
	q := &models.Quotation{Currency: "INR", GSTType: models.GSTIntrastate}
	nine := decimal.MustParse("9")
	err := applyQuotation(q, QuotationRequest{
		ToAddress:     strp(" Meena, Chennai "),
		AccountNumber: strp("w0012"),
		CGSTRate:      &nine,
		SGSTRate:      &nine,
		Items: &[]models.QuotationLine{
			{Description: "Blouse stitching", Quantity: decimal.MustParse("2"), Rate: decimal.MustParse("450")},
			{Description: "Lining", Quantity: decimal.MustParse("1"), Rate: decimal.MustParse("100"), Amount: decimal.MustParse("120")},
		},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "Meena, Chennai", q.ToAddress)
	assert.Equal(t, "0012", q.AccountNumber)
	assert.Equal(t, "900.00", q.Items[0].Amount.String())
	assert.Equal(t, "120.00", q.Items[1].Amount.String(), "explicit amounts are kept")
	assert.Equal(t, "1020.00", q.SubTotal.String())
	assert.Equal(t, "183.60", q.GSTAmount.String())
	assert.Equal(t, "1203.60", q.TotalAmount.String())
}

func TestApplyQuotationForeignCurrencyIsUntaxed(t *testing.T) {
	q := &models.Quotation{GSTType: models.GSTInterstate}
	rate := decimal.MustParse("18")
	err := applyQuotation(q, QuotationRequest{
		ToAddress: strp("Client"),
		Currency:  strp("USD"),
		IGSTRate:  &rate,
		Items:     &[]models.QuotationLine{{Description: "Gown", Quantity: decimal.MustParse("1"), Rate: decimal.MustParse("80")}},
	}, true)
	require.NoError(t, err)
	assert.True(t, q.GSTAmount.IsZero())
	assert.Equal(t, "80.00", q.TotalAmount.String())
}

func TestApplyQuotationValidation(t *testing.T) {
	q := &models.Quotation{}
	err := applyQuotation(q, QuotationRequest{
		Currency:      strp("JPY"),
		DocumentType:  strp("receipt"),
		PaymentStatus: strp("maybe"),
		GSTType:       strp("vat"),
		Items:         &[]models.QuotationLine{{Description: " ", Quantity: decimal.MustParse("-1")}},
	}, true)
	var v *apperr.Validation
	require.True(t, errors.As(err, &v))
	for _, f := range []string{"to_address", "currency", "document_type", "payment_status", "gst_type", "items"} {
		assert.Contains(t, v.Fields, f)
	}
	assert.Len(t, v.Fields["items"], 2)
}

func quotationDoc(kind, status string, voided bool) models.Quotation {
	return models.Quotation{DocumentType: kind, PaymentStatus: status, Voided: voided}
}

func TestExportSelection(t *testing.T) {
	docs := []models.Quotation{
		quotationDoc(models.DocQuotation, models.DocUnpaid, false),
		quotationDoc(models.DocInvoice, models.DocPaid, false),
		quotationDoc(models.DocInvoice, models.DocUnpaid, false),
		quotationDoc(models.DocInvoice, models.DocPaid, true),
	}
	tests := []struct {
		name string
		req  ExportRequest
		want ExportCount
	}{
		{"everything", ExportRequest{}, ExportCount{TotalDocuments: 3, Quotations: 1, Invoices: 2}},
		{"paid invoices", ExportRequest{PaymentStatus: "paid"}, ExportCount{TotalDocuments: 2, Quotations: 1, Invoices: 1}},
		{"unpaid only invoices", ExportRequest{PaymentStatus: "unpaid", IncludeQuotations: boolp(false)}, ExportCount{TotalDocuments: 1, Invoices: 1}},
		{"quotations only", ExportRequest{IncludeInvoices: boolp(false)}, ExportCount{TotalDocuments: 1, Quotations: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, n := exportSelection(docs, tt.req)
			assert.Equal(t, tt.want, n)
			assert.Len(t, out, tt.want.TotalDocuments)
		})
	}
}

func TestExportName(t *testing.T) {
	q := &models.Quotation{QuotationNo: "QT/25 01", DocumentType: models.DocQuotation}
	q.CreatedAt = time.Date(2025, 1, 4, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-04_QT_25_01_quotation.pdf", exportName(q))

	q = &models.Quotation{DocumentType: models.DocInvoice}
	q.ID = uuid.MustParse("6f1c2f52-3b8e-4a59-9d0b-1b4a4b0e7a10")
	q.CreatedAt = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-02-01_DOC-6f1c2f52-3b8e-4a59-9d0b-1b4a4b0e7a10_invoice.pdf", exportName(q))
}

func TestShareTokenAssignsID(t *testing.T) {
	q := &models.Quotation{QuotationNo: "Q-1"}
	tok, err := shareToken(q)
	require.NoError(t, err)
	assert.Len(t, tok, 32)
	assert.NotEqual(t, uuid.Nil, q.ID)

	other, err := shareToken(q)
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestApplyPlan(t *testing.T) {
	p := &models.Plan{}
	err := applyPlan(p, PlanRequest{}, true)
	var v *apperr.Validation
	require.True(t, errors.As(err, &v))
	for _, f := range []string{"name", "plan_type", "billing_cycle", "price"} {
		assert.Contains(t, v.Fields, f)
	}

	pt, bc, price := models.PlanPro, models.CycleYearly, decimal.MustParse("10990")
	require.NoError(t, applyPlan(p, PlanRequest{
		Name: strp(" Pro "), PlanType: &pt, BillingCycle: &bc, Price: &price, MaxCustomers: intp(500),
	}, true))
	assert.Equal(t, "Pro", p.Name)
	require.NotNil(t, p.MaxCustomers)
	assert.Equal(t, 500, *p.MaxCustomers)
	assert.Nil(t, p.MaxStaffUsers)

	require.NoError(t, applyPlan(p, PlanRequest{MaxStaffUsers: intp(3)}, false))
	assert.Equal(t, 500, *p.MaxCustomers, "partial update keeps other limits")
	assert.Equal(t, 3, *p.MaxStaffUsers)

	err = applyPlan(p, PlanRequest{MaxGalleryImages: intp(-1)}, false)
	assert.Error(t, err)
}
