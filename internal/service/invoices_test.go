package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
)

type invoiceFixture struct {
	shop     *models.Shop
	user     *models.User
	cust     *models.Customer
	order    *models.Order
	invoices *fakeInvoices
	svc      *InvoiceService
}

func newInvoiceFixture() *invoiceFixture {
	shop := models.NewShop("Stitch Studio")
	shop.ID = uuid.New()
	cust := &models.Customer{ShopID: shop.ID, Name: "Meena", Phone: "9876543210", Address: "12 Temple St"}
	cust.ID = uuid.New()

	order := &models.Order{ShopID: shop.ID, CustomerID: cust.ID, Customer: cust, OrderNumber: "ORD/25-03/0001"}
	order.ID = uuid.New()
	blouse := models.OrderItem{OrderID: order.ID, ItemType: models.ItemBlouse, Quantity: 2, UnitPrice: money("450"),
		Template: &models.MeasurementTemplate{Name: "Princess cut blouse"}}
	blouse.ID = uuid.New()
	saree := models.OrderItem{OrderID: order.ID, ItemType: models.ItemSaree, Quantity: 1}
	saree.ID = uuid.New()
	order.Items = []models.OrderItem{blouse, saree}

	invoices := newFakeInvoices()
	return &invoiceFixture{
		shop: shop, user: ownerIn(shop.ID), cust: cust, order: order, invoices: invoices,
		svc: &InvoiceService{
			Invoices:  invoices,
			Orders:    &fakeOrders{orders: map[uuid.UUID]*models.Order{order.ID: order}},
			Customers: newFakeCustomers(cust),
			Shops:     newFakeShops(shop),
			Now:       fixedNow,
		},
	}
}

func stitchingLine(qty int, price string) *[]InvoiceItemRequest {
	return &[]InvoiceItemRequest{{ItemDescription: "Blouse stitching", Quantity: intp(qty), UnitPrice: money(price)}}
}

func TestCreateInvoiceNumbersAndTaxes(t *testing.T) {
	f := newInvoiceFixture()
	f.invoices.series.last = "INV/25-26/0009"

	inv, err := f.svc.Create(context.Background(), f.user, InvoiceRequest{
		Customer: strp(f.cust.ID.String()),
		GSTType:  strp(models.GSTIntrastate),
		Items:    stitchingLine(2, "500"),
	})
	require.NoError(t, err)
	assert.Equal(t, "INV/25-26/0010", inv.InvoiceNumber)
	assert.Equal(t, []string{"INV/25-26/"}, f.invoices.series.keys)
	assert.Equal(t, "2025-03-15", inv.InvoiceDate.String())
	assert.Equal(t, "12 Temple St", inv.CustomerAddress, "address defaults to the customer's")
	assert.Equal(t, models.DefaultInvoiceTerms, inv.TermsAndConditions)
	assert.Equal(t, "1000.00", inv.Subtotal.String())
	assert.Equal(t, "90.00", inv.CGSTAmount.String())
	assert.Equal(t, "90.00", inv.SGSTAmount.String())
	assert.True(t, inv.IGSTAmount.IsZero())
	assert.Equal(t, "180.00", inv.TaxAmount.String())
	assert.Equal(t, "1180.00", inv.TotalAmount.String())
	require.Len(t, inv.Items, 1)
	assert.Equal(t, models.UnitPCS, inv.Items[0].Unit)
}

func TestCreateInvoiceCustomNumberFormat(t *testing.T) {
	f := newInvoiceFixture()
	f.shop.InvoicePrefix = "SD"
	f.shop.InvoiceNumberingFormat = "{prefix}-{number}/FY25"
	f.invoices.series.last = "SD-0003/FY25"

	inv, err := f.svc.Create(context.Background(), f.user, InvoiceRequest{
		Customer: strp(f.cust.ID.String()),
		Items:    stitchingLine(1, "500"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"SD-"}, f.invoices.series.keys, "the series is looked up by the text before {number}")
	assert.Equal(t, "SD-0004/FY25", inv.InvoiceNumber)
}

func TestCreateInvoiceRetriesTakenNumber(t *testing.T) {
	f := newInvoiceFixture()
	f.invoices.series.conflicts = 1

	inv, err := f.svc.Create(context.Background(), f.user, InvoiceRequest{
		Customer: strp(f.cust.ID.String()),
		Items:    stitchingLine(1, "500"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"INV/25-26/0001", "INV/25-26/0002"}, f.invoices.series.tried)
	assert.Equal(t, "INV/25-26/0002", inv.InvoiceNumber)

	f = newInvoiceFixture()
	f.invoices.series.conflicts = numberAttempts
	_, err = f.svc.Create(context.Background(), f.user, InvoiceRequest{
		Customer: strp(f.cust.ID.String()),
		Items:    stitchingLine(1, "500"),
	})
	assert.True(t, isConflict(err))
	assert.Len(t, f.invoices.series.tried, numberAttempts)
}

func TestCreateInvoiceFromOrder(t *testing.T) {
	f := newInvoiceFixture()
	blouse := f.order.Items[0].ID

	inv, err := f.svc.Create(context.Background(), f.user, InvoiceRequest{
		Order: strp(f.order.ID.String()),
		Items: &[]InvoiceItemRequest{{ItemDescription: "Blouse", Quantity: intp(2), UnitPrice: money("450"), OrderItem: strp(blouse.String())}},
	})
	require.NoError(t, err)
	assert.Equal(t, f.cust.ID, inv.CustomerID, "customer comes from the order")
	require.NotNil(t, inv.OrderID)
	assert.Equal(t, f.order.ID, *inv.OrderID)
	require.NotNil(t, inv.Items[0].OrderItemID)
	assert.Equal(t, blouse, *inv.Items[0].OrderItemID)
}

func TestCreateInvoiceValidation(t *testing.T) {
	foreign := &models.Order{ShopID: uuid.New()}
	foreign.ID = uuid.New()
	someoneElse := &models.Customer{Name: "Ravi", Phone: "9000000000"}
	someoneElse.ID = uuid.New()

	tests := []struct {
		name  string
		req   func(f *invoiceFixture) InvoiceRequest
		field string
		msg   string
	}{
		{
			name: "negative amount",
			req: func(f *invoiceFixture) InvoiceRequest {
				return InvoiceRequest{
					Customer: strp(f.cust.ID.String()),
					Items:    &[]InvoiceItemRequest{{ItemDescription: "Refund", Amount: money("-10")}},
				}
			},
			field: "items",
			msg:   "Item 1: amount must not be negative.",
		},
		{
			name: "order item without an order",
			req: func(f *invoiceFixture) InvoiceRequest {
				return InvoiceRequest{
					Customer: strp(f.cust.ID.String()),
					Items:    &[]InvoiceItemRequest{{ItemDescription: "Blouse", OrderItem: strp(f.order.Items[0].ID.String())}},
				}
			},
			field: "items",
			msg:   "Item 1: order item requires a linked order.",
		},
		{
			name: "order item of another order",
			req: func(f *invoiceFixture) InvoiceRequest {
				return InvoiceRequest{
					Order: strp(f.order.ID.String()),
					Items: &[]InvoiceItemRequest{{ItemDescription: "Blouse", OrderItem: strp(uuid.NewString())}},
				}
			},
			field: "items",
			msg:   "Item 1: order item does not belong to the linked order.",
		},
		{
			name: "order of another shop",
			req: func(*invoiceFixture) InvoiceRequest {
				return InvoiceRequest{Order: strp(foreign.ID.String()), Items: stitchingLine(1, "100")}
			},
			field: "order",
			msg:   "Order does not belong to your shop.",
		},
		{
			name: "customer differs from the order",
			req: func(f *invoiceFixture) InvoiceRequest {
				someoneElse.ShopID = f.shop.ID
				f.svc.Customers = newFakeCustomers(f.cust, someoneElse)
				return InvoiceRequest{
					Order:    strp(f.order.ID.String()),
					Customer: strp(someoneElse.ID.String()),
					Items:    stitchingLine(1, "100"),
				}
			},
			field: "customer",
			msg:   "Customer must match the order's customer.",
		},
		{
			name: "tax rate out of range",
			req: func(f *invoiceFixture) InvoiceRequest {
				return InvoiceRequest{Customer: strp(f.cust.ID.String()), CGSTPercent: money("120"), Items: stitchingLine(1, "100")}
			},
			field: "cgst_percent",
			msg:   "Must be between 0 and 100.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newInvoiceFixture()
			_, err := f.svc.Create(context.Background(), f.user, tt.req(f))
			assert.Contains(t, validationFields(t, err)[tt.field], tt.msg)
			assert.Empty(t, f.invoices.series.tried)
		})
	}
}

// storedInvoice mirrors what the repository returns: the order is preloaded
// without its items.
func storedInvoice(f *invoiceFixture) *models.Invoice {
	bare := *f.order
	bare.Items = nil
	inv := &models.Invoice{
		ShopID:        f.shop.ID,
		InvoiceNumber: "INV/25-26/0001",
		InvoiceDate:   models.NewDate(testNow),
		OrderID:       &f.order.ID,
		Order:         &bare,
		CustomerID:    f.cust.ID,
		GSTType:       models.GSTInterstate,
		IGSTPercent:   money("18"),
		Items:         []models.InvoiceItem{{ItemDescription: "Old line", Quantity: 1, Unit: models.UnitPCS, Amount: decimal.MustParse("10")}},
	}
	inv.ID = uuid.New()
	f.invoices.byID[inv.ID] = inv
	return inv
}

func TestUpdateInvoiceScopesOrderItems(t *testing.T) {
	f := newInvoiceFixture()
	inv := storedInvoice(f)
	saree := f.order.Items[1].ID

	got, err := f.svc.Update(context.Background(), f.user, inv.ID.String(), InvoiceRequest{
		Items: &[]InvoiceItemRequest{{ItemDescription: "Saree fall", UnitPrice: money("150"), OrderItem: strp(saree.String())}},
	})
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, saree, *got.Items[0].OrderItemID)
	assert.Equal(t, "150.00", got.Subtotal.String())
	assert.Equal(t, "27.00", got.IGSTAmount.String())
	assert.Equal(t, []bool{true}, f.invoices.updates)

	_, err = f.svc.Update(context.Background(), f.user, inv.ID.String(), InvoiceRequest{
		Items: &[]InvoiceItemRequest{{ItemDescription: "Other", OrderItem: strp(uuid.NewString())}},
	})
	assert.Equal(t, []string{"Item 1: order item does not belong to the linked order."}, validationFields(t, err)["items"])
}

func TestPopulateInvoiceFromOrder(t *testing.T) {
	f := newInvoiceFixture()
	inv := storedInvoice(f)

	got, err := f.svc.PopulateFromOrder(context.Background(), f.user, inv.ID.String())
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Princess cut blouse", got.Items[0].ItemDescription, "template name wins over item type")
	assert.Equal(t, "900.00", got.Items[0].Amount.String())
	assert.Equal(t, f.order.Items[0].ID, *got.Items[0].OrderItemID)
	assert.Equal(t, "SAREE", got.Items[1].ItemDescription)
	assert.True(t, got.Items[1].Amount.IsZero(), "missing unit price counts as zero")
	assert.Equal(t, "900.00", got.Subtotal.String())
	assert.Equal(t, "162.00", got.IGSTAmount.String())
	assert.Equal(t, "1062.00", got.TotalAmount.String())
	assert.Equal(t, []bool{true}, f.invoices.updates)
}

func TestPopulateInvoiceWithoutOrder(t *testing.T) {
	f := newInvoiceFixture()
	inv := storedInvoice(f)
	inv.OrderID, inv.Order = nil, nil

	_, err := f.svc.PopulateFromOrder(context.Background(), f.user, inv.ID.String())
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err).Code)
	assert.Empty(t, f.invoices.updates)
}
