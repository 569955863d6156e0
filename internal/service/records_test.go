package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
)

func fixedShareNonce(t *testing.T, nonce string) {
	t.Helper()
	prev := shareNonce
	shareNonce = func() (string, error) { return nonce, nil }
	t.Cleanup(func() { shareNonce = prev })
}

func expectedShareToken(q *models.Quotation, nonce string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s", q.ID, q.QuotationNo, nonce)))
	return hex.EncodeToString(sum[:])[:32]
}

func newQuotationFixture() (*models.Shop, *fakeQuotations, *QuotationService) {
	shop := models.NewShop("Stitch Studio")
	shop.ID = uuid.New()
	quotes := &fakeQuotations{}
	return shop, quotes, &QuotationService{Quotations: quotes, Shops: newFakeShops(shop), Now: fixedNow}
}

func gownQuote() QuotationRequest {
	return QuotationRequest{
		ToAddress: strp("Meena, Chennai"),
		Items:     &[]models.QuotationLine{{Description: "Bridal blouse", Quantity: decimal.MustParse("1"), Rate: decimal.MustParse("2500")}},
	}
}

func TestCreateQuotationTokenCoversAssignedNumber(t *testing.T) {
	fixedShareNonce(t, "n0nce")
	shop, quotes, svc := newQuotationFixture()
	quotes.series.last = "QUO/25-26/0041"

	q, err := svc.Create(context.Background(), ownerIn(shop.ID), gownQuote())
	require.NoError(t, err)
	assert.Equal(t, "QUO/25-26/0042", q.QuotationNo)
	require.NotNil(t, q.ShareToken)
	assert.Equal(t, expectedShareToken(q, "n0nce"), *q.ShareToken)
}

func TestCreateQuotationRetryRehashesToken(t *testing.T) {
	fixedShareNonce(t, "n0nce")
	shop, quotes, svc := newQuotationFixture()
	quotes.series.conflicts = 1

	q, err := svc.Create(context.Background(), ownerIn(shop.ID), gownQuote())
	require.NoError(t, err)
	assert.Equal(t, []string{"QUO/25-26/0001", "QUO/25-26/0002"}, quotes.series.tried)
	assert.Equal(t, "QUO/25-26/0002", q.QuotationNo)
	assert.Equal(t, expectedShareToken(q, "n0nce"), *q.ShareToken)
}

func TestCreateQuotationInvoiceUsesInvoicePrefix(t *testing.T) {
	shop, quotes, svc := newQuotationFixture()
	req := gownQuote()
	req.DocumentType = strp(models.DocInvoice)

	q, err := svc.Create(context.Background(), ownerIn(shop.ID), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"INV/25-26/"}, quotes.series.keys)
	assert.Equal(t, "INV/25-26/0001", q.QuotationNo)
}

func TestCreateQuotationManualNumberIsNotRetried(t *testing.T) {
	shop, quotes, svc := newQuotationFixture()
	quotes.series.conflicts = 1
	req := gownQuote()
	req.QuotationNo = strp("Q-7")

	_, err := svc.Create(context.Background(), ownerIn(shop.ID), req)
	assert.True(t, isConflict(err))
	assert.Equal(t, []string{"Q-7"}, quotes.series.tried)
	assert.Empty(t, quotes.series.keys)
}

func TestCustomerLifecycle(t *testing.T) {
	shop := uuid.New()
	user := ownerIn(shop)
	repo := newFakeCustomers()
	limits := &fakeLimits{}
	svc := &CustomerService{Customers: repo, Limits: limits}
	ctx := context.Background()

	c, err := svc.Create(ctx, user, CustomerRequest{Name: strp("  Meena "), Phone: strp("9876543210"), Email: strp("meena@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "Meena", c.Name)
	assert.Equal(t, shop, c.ShopID)
	assert.Equal(t, []int64{0}, limits.seen)

	got, err := svc.Update(ctx, user, c.ID.String(), CustomerRequest{Address: strp("12 Temple St")}, false)
	require.NoError(t, err)
	assert.Equal(t, "12 Temple St", got.Address)
	assert.Equal(t, "9876543210", got.Phone, "partial update keeps other fields")

	_, err = svc.Update(ctx, user, c.ID.String(), CustomerRequest{Address: strp("x")}, true)
	fields := validationFields(t, err)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "phone")

	_, err = svc.Get(ctx, ownerIn(uuid.New()), c.ID.String())
	assert.True(t, apperr.IsNotFound(err), "other shops cannot see the customer")

	require.NoError(t, svc.Delete(ctx, user, c.ID.String()))
	_, err = svc.Get(ctx, user, c.ID.String())
	assert.True(t, apperr.IsNotFound(err))
}

func TestCreateCustomerValidation(t *testing.T) {
	svc := &CustomerService{Customers: newFakeCustomers(), Limits: &fakeLimits{}}
	_, err := svc.Create(context.Background(), ownerIn(uuid.New()), CustomerRequest{Email: strp("not-an-email")})
	fields := validationFields(t, err)
	assert.Equal(t, []string{"Name is required."}, fields["name"])
	assert.Equal(t, []string{"Phone number is required."}, fields["phone"])
	assert.Equal(t, []string{"Enter a valid email address."}, fields["email"])
}

func TestCreateCustomerLimit(t *testing.T) {
	shop := uuid.New()
	existing := &models.Customer{ShopID: shop, Name: "A", Phone: "9876543210"}
	repo := newFakeCustomers(existing)
	svc := &CustomerService{Customers: repo, Limits: &fakeLimits{max: 1}}

	_, err := svc.Create(context.Background(), ownerIn(shop), CustomerRequest{Name: strp("B"), Phone: strp("9876543211")})
	assert.Equal(t, http.StatusForbidden, statusOf(t, err).Code)
	assert.Len(t, repo.byID, 1)
}

func TestMeasurementLifecycle(t *testing.T) {
	shop := uuid.New()
	user := ownerIn(shop)
	cust := &models.Customer{ShopID: shop, Name: "Meena", Phone: "9876543210"}
	tpl := &models.MeasurementTemplate{ShopID: shop, Name: "Blouse", ItemType: models.ItemBlouse,
		Fields: []models.TemplateField{{Point: "A", Label: "Bust"}, {Point: "B", Label: "Waist"}}}
	repo := newFakeMeasurements(tpl)
	svc := &MeasurementService{Repo: repo, Customers: newFakeCustomers(cust)}
	ctx := context.Background()

	m, err := svc.Create(ctx, user, MeasurementRequest{
		Customer:     strp(cust.ID.String()),
		Template:     strp(tpl.ID.String()),
		Measurements: &models.Values{"A": decimal.MustParse("34.5")},
	})
	require.NoError(t, err)
	assert.Equal(t, cust.ID, m.CustomerID)
	require.NotNil(t, m.TemplateID)
	assert.Equal(t, tpl.ID, *m.TemplateID)

	_, err = svc.Update(ctx, user, m.ID.String(), MeasurementRequest{Measurements: &models.Values{"Z": decimal.MustParse("1")}}, false)
	assert.Equal(t, []string{`Unknown measurement point "Z" for template "Blouse".`}, validationFields(t, err)["measurements"])

	got, err := svc.Update(ctx, user, m.ID.String(), MeasurementRequest{
		Template:     strp(""),
		Measurements: &models.Values{"Z": decimal.MustParse("1")},
		Notes:        strp("free-form"),
	}, false)
	require.NoError(t, err, "values are unchecked once the template is cleared")
	assert.Nil(t, got.TemplateID)
	assert.Equal(t, "free-form", got.Notes)
	assert.Equal(t, 1, repo.saved)

	require.NoError(t, svc.Delete(ctx, user, m.ID.String()))
	_, err = svc.Get(ctx, user, m.ID.String())
	assert.True(t, apperr.IsNotFound(err))
}

func TestCreateMeasurementRejectsForeignRecords(t *testing.T) {
	shop := uuid.New()
	cust := &models.Customer{ShopID: shop, Name: "Meena", Phone: "9876543210"}
	foreignTpl := &models.MeasurementTemplate{ShopID: uuid.New(), Name: "Other", ItemType: models.ItemDress}
	svc := &MeasurementService{Repo: newFakeMeasurements(foreignTpl), Customers: newFakeCustomers(cust)}
	ctx := context.Background()

	_, err := svc.Create(ctx, ownerIn(shop), MeasurementRequest{Customer: strp(uuid.NewString())})
	assert.Equal(t, []string{"Invalid customer."}, validationFields(t, err)["customer"])

	_, err = svc.Create(ctx, ownerIn(shop), MeasurementRequest{Customer: strp(cust.ID.String()), Template: strp(foreignTpl.ID.String())})
	assert.Equal(t, []string{"Invalid template."}, validationFields(t, err)["template"])
}
