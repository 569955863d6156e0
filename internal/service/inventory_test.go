package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/decimal"
	"stitchdesk/internal/events"
	"stitchdesk/internal/models"
)

type inventoryFixture struct {
	shop  uuid.UUID
	user  *models.User
	order *models.Order
	inv   *fakeInventory
	ev    *recordingEmitter
	svc   *InventoryService
}

func newInventoryFixture(items ...*models.InventoryItem) *inventoryFixture {
	shop := uuid.New()
	order := &models.Order{ShopID: shop}
	order.ID = uuid.New()
	inv := &fakeInventory{items: map[uuid.UUID]*models.InventoryItem{}}
	for _, it := range items {
		it.ShopID = shop
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		inv.items[it.ID] = it
	}
	ev := &recordingEmitter{}
	return &inventoryFixture{
		shop: shop, user: ownerIn(shop), order: order, inv: inv, ev: ev,
		svc: &InventoryService{
			Repo:   inv,
			Orders: &fakeOrders{orders: map[uuid.UUID]*models.Order{order.ID: order}},
			Events: ev,
			Log:    quietLog(),
		},
	}
}

func fabric(stock, minimum string) *models.InventoryItem {
	return &models.InventoryItem{
		Name: "Cotton", Unit: models.StockMTR,
		CurrentStock: decimal.MustParse(stock), MinimumStock: decimal.MustParse(minimum),
	}
}

func TestStockIn(t *testing.T) {
	it := fabric("5", "2")
	f := newInventoryFixture(it)

	got, err := f.svc.StockIn(context.Background(), f.user, it.ID.String(), StockInRequest{
		Quantity: decimal.MustParse("2.5"), SupplierName: "  Mills ",
	})
	require.NoError(t, err)
	assert.Equal(t, "7.50", got.CurrentStock.String())
	require.Len(t, f.inv.history, 1)
	h := f.inv.history[0]
	assert.Equal(t, models.TxIn, h.TransactionType)
	assert.Equal(t, models.ReasonPurchase, h.Reason)
	assert.Equal(t, "5.00", h.StockBefore.String())
	assert.Equal(t, "Mills", h.SupplierName)
}

func TestStockInRejectsNonPositive(t *testing.T) {
	it := fabric("5", "2")
	f := newInventoryFixture(it)
	_, err := f.svc.StockIn(context.Background(), f.user, it.ID.String(), StockInRequest{Quantity: decimal.Zero})
	var v *apperr.Validation
	require.True(t, errors.As(err, &v))
	assert.Contains(t, v.Fields, "quantity")
	assert.Empty(t, f.inv.history)
}

func TestAdjustStock(t *testing.T) {
	it := fabric("10", "4")
	f := newInventoryFixture(it)
	ns := decimal.MustParse("3")

	got, err := f.svc.AdjustStock(context.Background(), f.user, it.ID.String(), AdjustStockRequest{
		NewStock: &ns, Reason: models.ReasonDamaged,
	})
	require.NoError(t, err)
	assert.Equal(t, "3.00", got.CurrentStock.String())
	assert.True(t, got.IsLowStock)
	require.Len(t, f.inv.history, 1)
	assert.Equal(t, models.TxAdjustment, f.inv.history[0].TransactionType)
	assert.Equal(t, "7.00", f.inv.history[0].Quantity.String())
	assert.Equal(t, []string{events.InventoryLowStock}, f.ev.names())
}

func TestAdjustStockValidation(t *testing.T) {
	it := fabric("10", "4")
	f := newInventoryFixture(it)
	neg := decimal.MustParse("-1")

	_, err := f.svc.AdjustStock(context.Background(), f.user, it.ID.String(), AdjustStockRequest{
		NewStock: &neg, Reason: models.ReasonPurchase,
	})
	var v *apperr.Validation
	require.True(t, errors.As(err, &v))
	assert.Contains(t, v.Fields, "new_stock")
	assert.Contains(t, v.Fields, "reason")
}

func TestAddMaterialsPartialFailure(t *testing.T) {
	thread := fabric("20", "5")
	lining := fabric("1", "0")
	f := newInventoryFixture(thread, lining)

	res, err := f.svc.AddMaterials(context.Background(), f.user, f.order.ID.String(), []MaterialEntry{
		{InventoryItem: thread.ID.String(), Quantity: decimal.MustParse("4")},
		{InventoryItem: lining.ID.String(), Quantity: decimal.MustParse("2")},
		{InventoryItem: uuid.NewString(), Quantity: decimal.MustParse("1")},
	})
	require.NoError(t, err)
	require.Len(t, res.Materials, 1)
	assert.Equal(t, thread.ID, res.Materials[0].InventoryItemID)
	assert.Equal(t, "Cotton", res.Materials[0].ItemName)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "Entry 2: insufficient stock")
	assert.Equal(t, "Entry 3: inventory item not found.", res.Errors[1])

	assert.Equal(t, "16.00", f.inv.items[thread.ID].CurrentStock.String())
	assert.Equal(t, "1.00", f.inv.items[lining.ID].CurrentStock.String())
	require.Len(t, f.inv.history, 1)
	h := f.inv.history[0]
	assert.Equal(t, models.TxOut, h.TransactionType)
	assert.Equal(t, models.ReasonOrderUsage, h.Reason)
	assert.Equal(t, f.order.ID, *h.OrderID)
}

func TestAddMaterialsAllFail(t *testing.T) {
	it := fabric("1", "0")
	f := newInventoryFixture(it)

	_, err := f.svc.AddMaterials(context.Background(), f.user, f.order.ID.String(), []MaterialEntry{
		{InventoryItem: it.ID.String(), Quantity: decimal.MustParse("0")},
	})
	var v *apperr.Validation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, []string{"Entry 1: quantity must be greater than 0"}, v.Fields["materials"])
}

func TestAddMaterialsUnknownOrder(t *testing.T) {
	f := newInventoryFixture()
	_, err := f.svc.AddMaterials(context.Background(), f.user, uuid.NewString(), []MaterialEntry{{}})
	assert.Equal(t, http.StatusNotFound, apperr.HTTPStatus(err))
}

func TestAddMaterialsLowStockEmittedOnce(t *testing.T) {
	it := fabric("6", "5")
	f := newInventoryFixture(it)

	_, err := f.svc.AddMaterials(context.Background(), f.user, f.order.ID.String(), []MaterialEntry{
		{InventoryItem: it.ID.String(), Quantity: decimal.MustParse("2")},
		{InventoryItem: it.ID.String(), Quantity: decimal.MustParse("1")},
	})
	require.NoError(t, err)
	assert.Equal(t, "3.00", f.inv.items[it.ID].CurrentStock.String())
	assert.Equal(t, []string{events.InventoryLowStock}, f.ev.names(), "only the crossing below the minimum is reported")
}

func TestDeleteMaterialRestoresStock(t *testing.T) {
	it := fabric("10", "0")
	f := newInventoryFixture(it)
	res, err := f.svc.AddMaterials(context.Background(), f.user, f.order.ID.String(), []MaterialEntry{
		{InventoryItem: it.ID.String(), Quantity: decimal.MustParse("3")},
	})
	require.NoError(t, err)
	assert.Equal(t, "7.00", f.inv.items[it.ID].CurrentStock.String())

	require.NoError(t, f.svc.DeleteMaterial(context.Background(), f.user, res.Materials[0].ID.String()))
	assert.Equal(t, "10.00", f.inv.items[it.ID].CurrentStock.String())
	require.Len(t, f.inv.history, 2)
	assert.Equal(t, models.ReasonOrderCancelled, f.inv.history[1].Reason)
}
