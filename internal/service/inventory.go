package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/decimal"
	"stitchdesk/internal/events"
	"stitchdesk/internal/logger"
	"stitchdesk/internal/models"
	"stitchdesk/internal/repository"
)

const historyLimit = 50

type CategoryRequest struct {
	Name        *string           `json:"name" binding:"omitempty,max=100"`
	Description *string           `json:"description"`
	DefaultUnit *models.StockUnit `json:"default_unit"`
	IsActive    *bool             `json:"is_active"`
}

type InventoryItemRequest struct {
	Category     *string           `json:"category"`
	Name         *string           `json:"name" binding:"omitempty,max=200"`
	Description  *string           `json:"description"`
	SKU          *string           `json:"sku" binding:"omitempty,max=50"`
	Unit         *models.StockUnit `json:"unit"`
	CurrentStock *decimal.Decimal  `json:"current_stock"`
	MinimumStock *decimal.Decimal  `json:"minimum_stock"`
	Notes        *string           `json:"notes"`
	IsActive     *bool             `json:"is_active"`
}

type StockInRequest struct {
	Quantity     decimal.Decimal `json:"quantity"`
	SupplierName string          `json:"supplier_name" binding:"max=200"`
	Notes        string          `json:"notes"`
}

type AdjustStockRequest struct {
	NewStock *decimal.Decimal   `json:"new_stock"`
	Reason   models.StockReason `json:"reason"`
	Notes    string             `json:"notes"`
}

type MaterialEntry struct {
	InventoryItem string          `json:"inventory_item"`
	Quantity      decimal.Decimal `json:"quantity"`
	Notes         string          `json:"notes"`
}

type MaterialsResult struct {
	Materials []models.OrderMaterial `json:"materials"`
	Errors    []string               `json:"errors,omitempty"`
}

type OrderMaterials struct {
	Materials []models.OrderMaterial `json:"materials"`
	TotalCost decimal.Decimal        `json:"total_cost"`
	Count     int                    `json:"count"`
}

type InventoryDashboard struct {
	*repository.InventorySummary
	TotalStockValue decimal.Decimal `json:"total_stock_value"`
}

type InventoryService struct {
	Repo   repository.InventoryRepository
	Orders repository.OrderRepository
	Limits LimitEnforcer
	Events events.Emitter
	Log    *logger.Logger
}

func (s *InventoryService) CreateCategory(ctx context.Context, u *models.User, req CategoryRequest) (*models.InventoryCategory, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	c := &models.InventoryCategory{ShopID: shopID, DefaultUnit: models.StockPCS, IsActive: true}
	if err := applyCategory(c, req, true); err != nil {
		return nil, err
	}
	return c, s.Repo.CreateCategory(ctx, c)
}

func (s *InventoryService) Category(ctx context.Context, u *models.User, id string) (*models.InventoryCategory, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	cid, err := parseID("category", id)
	if err != nil {
		return nil, err
	}
	return s.Repo.GetCategory(ctx, shopID, cid)
}

func (s *InventoryService) UpdateCategory(ctx context.Context, u *models.User, id string, req CategoryRequest, full bool) (*models.InventoryCategory, error) {
	c, err := s.Category(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := applyCategory(c, req, full); err != nil {
		return nil, err
	}
	return c, s.Repo.SaveCategory(ctx, c)
}

func (s *InventoryService) DeleteCategory(ctx context.Context, u *models.User, id string) error {
	shopID, err := shopOf(u)
	if err != nil {
		return err
	}
	cid, err := parseID("category", id)
	if err != nil {
		return err
	}
	return s.Repo.DeleteCategory(ctx, shopID, cid)
}

func (s *InventoryService) Categories(ctx context.Context, u *models.User) ([]models.InventoryCategory, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	return s.Repo.ListCategories(ctx, shopID)
}

func applyCategory(c *models.InventoryCategory, req CategoryRequest, requireAll bool) error {
	verr := &apperr.Validation{}
	if req.Name != nil || requireAll {
		name := ""
		if req.Name != nil {
			name = strings.TrimSpace(*req.Name)
		}
		if name == "" {
			verr.Add("name", "This field is required.")
		}
		c.Name = name
	}
	setString(&c.Description, req.Description)
	if req.DefaultUnit != nil {
		if !req.DefaultUnit.Valid() {
			verr.Add("default_unit", fmt.Sprintf("%q is not a valid choice.", *req.DefaultUnit))
		}
		c.DefaultUnit = *req.DefaultUnit
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	return verr.OrNil()
}

func (s *InventoryService) CreateItem(ctx context.Context, u *models.User, req InventoryItemRequest) (*models.InventoryItem, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	n, err := s.Repo.CountItems(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if err := s.Limits.Enforce(ctx, u, models.ResourceInventory, n); err != nil {
		return nil, err
	}
	it := &models.InventoryItem{ShopID: shopID, Unit: models.StockPCS, IsActive: true, CreatedByID: &u.ID}
	if err := s.applyItem(ctx, it, req, true); err != nil {
		return nil, err
	}
	var opening *models.StockHistory
	if it.CurrentStock.IsPositive() {
		opening = &models.StockHistory{
			TransactionType: models.TxIn,
			Reason:          models.ReasonInitialStock,
			Quantity:        it.CurrentStock,
			StockBefore:     decimal.Zero,
			StockAfter:      it.CurrentStock,
			Notes:           "Initial stock",
			CreatedByID:     &u.ID,
		}
	}
	return it, s.Repo.CreateItem(ctx, it, opening)
}

func (s *InventoryService) Item(ctx context.Context, u *models.User, id string) (*models.InventoryItem, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	iid, err := parseID("inventory item", id)
	if err != nil {
		return nil, err
	}
	return s.Repo.GetItem(ctx, shopID, iid)
}

// UpdateItem edits item details. current_stock moves only through stock-in
// and adjust-stock so that every change has a history entry.
func (s *InventoryService) UpdateItem(ctx context.Context, u *models.User, id string, req InventoryItemRequest, full bool) (*models.InventoryItem, error) {
	it, err := s.Item(ctx, u, id)
	if err != nil {
		return nil, err
	}
	req.CurrentStock = nil
	if err := s.applyItem(ctx, it, req, full); err != nil {
		return nil, err
	}
	return it, s.Repo.SaveItem(ctx, it)
}

func (s *InventoryService) DeleteItem(ctx context.Context, u *models.User, id string) error {
	shopID, err := shopOf(u)
	if err != nil {
		return err
	}
	iid, err := parseID("inventory item", id)
	if err != nil {
		return err
	}
	return s.Repo.DeleteItem(ctx, shopID, iid)
}

type ItemQuery struct {
	Category string
	LowStock bool
	Search   string
}

func (s *InventoryService) Items(ctx context.Context, u *models.User, q ItemQuery, p repository.PageRequest) (repository.Page[models.InventoryItem], error) {
	shopID, err := shopOf(u)
	if err != nil {
		return repository.Page[models.InventoryItem]{}, err
	}
	cid, err := parseOptionalID("category", q.Category)
	if err != nil {
		return repository.Page[models.InventoryItem]{}, err
	}
	return s.Repo.ListItems(ctx, shopID, repository.ItemFilter{CategoryID: cid, LowStock: q.LowStock, Search: q.Search}, p)
}

func (s *InventoryService) applyItem(ctx context.Context, it *models.InventoryItem, req InventoryItemRequest, requireAll bool) error {
	verr := &apperr.Validation{}
	if req.Name != nil || requireAll {
		name := ""
		if req.Name != nil {
			name = strings.TrimSpace(*req.Name)
		}
		if name == "" {
			verr.Add("name", "This field is required.")
		}
		it.Name = name
	}
	setString(&it.Description, req.Description)
	setString(&it.SKU, req.SKU)
	setString(&it.Notes, req.Notes)
	if req.Unit != nil {
		if !req.Unit.Valid() {
			verr.Add("unit", fmt.Sprintf("%q is not a valid choice.", *req.Unit))
		}
		it.Unit = *req.Unit
	}
	if req.CurrentStock != nil {
		if req.CurrentStock.IsNegative() {
			verr.Add("current_stock", "Ensure this value is greater than or equal to 0.")
		}
		it.CurrentStock = *req.CurrentStock
	}
	if req.MinimumStock != nil {
		if req.MinimumStock.IsNegative() {
			verr.Add("minimum_stock", "Ensure this value is greater than or equal to 0.")
		}
		it.MinimumStock = *req.MinimumStock
	}
	if req.IsActive != nil {
		it.IsActive = *req.IsActive
	}
	if req.Category != nil {
		if *req.Category == "" {
			it.CategoryID, it.Category = nil, nil
		} else if cid, err := uuid.Parse(*req.Category); err != nil {
			verr.Add("category", "Invalid category.")
		} else if c, err := s.Repo.GetCategory(ctx, it.ShopID, cid); err != nil {
			if !apperr.IsNotFound(err) {
				return err
			}
			verr.Add("category", "Invalid category.")
		} else {
			it.CategoryID, it.Category = &cid, c
		}
	}
	return verr.OrNil()
}

func (s *InventoryService) StockIn(ctx context.Context, u *models.User, id string, req StockInRequest) (*models.InventoryItem, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	iid, err := parseID("inventory item", id)
	if err != nil {
		return nil, err
	}
	if !req.Quantity.IsPositive() {
		return nil, apperr.Invalid("quantity", "Quantity must be greater than 0.")
	}
	it, err := s.Repo.Move(ctx, shopID, iid, func(_ repository.StockTx, it *models.InventoryItem) (*models.StockHistory, error) {
		before := it.CurrentStock
		it.CurrentStock = before.Add(req.Quantity)
		return &models.StockHistory{
			TransactionType: models.TxIn,
			Reason:          models.ReasonPurchase,
			Quantity:        req.Quantity,
			StockBefore:     before,
			StockAfter:      it.CurrentStock,
			SupplierName:    strings.TrimSpace(req.SupplierName),
			Notes:           req.Notes,
			CreatedByID:     &u.ID,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (s *InventoryService) AdjustStock(ctx context.Context, u *models.User, id string, req AdjustStockRequest) (*models.InventoryItem, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	iid, err := parseID("inventory item", id)
	if err != nil {
		return nil, err
	}
	verr := &apperr.Validation{}
	if req.NewStock == nil {
		verr.Add("new_stock", "This field is required.")
	} else if req.NewStock.IsNegative() {
		verr.Add("new_stock", "Ensure this value is greater than or equal to 0.")
	}
	if !req.Reason.ValidAdjustment() {
		verr.Add("reason", "Must be one of DAMAGED, MANUAL_ADJUSTMENT, RETURNED.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	var wasLow bool
	it, err := s.Repo.Move(ctx, shopID, iid, func(_ repository.StockTx, it *models.InventoryItem) (*models.StockHistory, error) {
		before := it.CurrentStock
		wasLow = before.Cmp(it.MinimumStock) < 0
		it.CurrentStock = *req.NewStock
		return &models.StockHistory{
			TransactionType: models.TxAdjustment,
			Reason:          req.Reason,
			Quantity:        it.CurrentStock.Sub(before).Abs(),
			StockBefore:     before,
			StockAfter:      it.CurrentStock,
			Notes:           req.Notes,
			CreatedByID:     &u.ID,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.lowStock(ctx, it, wasLow)
	return it, nil
}

func (s *InventoryService) History(ctx context.Context, u *models.User, id string) ([]models.StockHistory, error) {
	it, err := s.Item(ctx, u, id)
	if err != nil {
		return nil, err
	}
	return s.Repo.History(ctx, it.ID, historyLimit)
}

// AddMaterials deducts stock for each entry independently. Entries that fail
// are reported and do not undo the others.
func (s *InventoryService) AddMaterials(ctx context.Context, u *models.User, orderID string, entries []MaterialEntry) (*MaterialsResult, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	oid, err := parseID("order", orderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Orders.Get(ctx, shopID, oid); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apperr.Invalid("materials", "At least one material is required.")
	}
	res := &MaterialsResult{Materials: []models.OrderMaterial{}}
	for i, e := range entries {
		m, err := s.addMaterial(ctx, u, shopID, oid, e)
		if err != nil {
			var msg string
			switch {
			case apperr.IsNotFound(err):
				msg = fmt.Sprintf("Entry %d: inventory item not found.", i+1)
			case apperr.HTTPStatus(err) < 500:
				msg = fmt.Sprintf("Entry %d: %s", i+1, errorMessage(err))
			default:
				return nil, err
			}
			res.Errors = append(res.Errors, msg)
			continue
		}
		res.Materials = append(res.Materials, *m)
	}
	if len(res.Materials) == 0 {
		v := &apperr.Validation{}
		for _, msg := range res.Errors {
			v.Add("materials", msg)
		}
		return nil, v
	}
	return res, nil
}

func (s *InventoryService) addMaterial(ctx context.Context, u *models.User, shopID, orderID uuid.UUID, e MaterialEntry) (*models.OrderMaterial, error) {
	iid, err := uuid.Parse(e.InventoryItem)
	if err != nil {
		return nil, apperr.NewNotFound("inventory item", e.InventoryItem)
	}
	if !e.Quantity.IsPositive() {
		return nil, apperr.BadRequest("quantity must be greater than 0")
	}
	var (
		m      *models.OrderMaterial
		wasLow bool
	)
	it, err := s.Repo.Move(ctx, shopID, iid, func(tx repository.StockTx, it *models.InventoryItem) (*models.StockHistory, error) {
		before := it.CurrentStock
		if before.Cmp(e.Quantity) < 0 {
			return nil, apperr.BadRequest(fmt.Sprintf("insufficient stock for %s (available %s %s)", it.Name, before, it.Unit))
		}
		wasLow = before.Cmp(it.MinimumStock) < 0
		m = &models.OrderMaterial{
			ShopID:          shopID,
			OrderID:         orderID,
			InventoryItemID: it.ID,
			Quantity:        e.Quantity,
			Notes:           e.Notes,
			AddedByID:       &u.ID,
		}
		if err := tx.CreateMaterial(m); err != nil {
			return nil, err
		}
		it.CurrentStock = before.Sub(e.Quantity)
		return &models.StockHistory{
			TransactionType: models.TxOut,
			Reason:          models.ReasonOrderUsage,
			Quantity:        e.Quantity,
			StockBefore:     before,
			StockAfter:      it.CurrentStock,
			OrderID:         &orderID,
			OrderMaterialID: &m.ID,
			Notes:           e.Notes,
			CreatedByID:     &u.ID,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	m.InventoryItem = it
	m.FillItem()
	s.lowStock(ctx, it, wasLow)
	return m, nil
}

func (s *InventoryService) OrderMaterials(ctx context.Context, u *models.User, orderID string) (*OrderMaterials, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	oid, err := parseID("order", orderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Orders.Get(ctx, shopID, oid); err != nil {
		return nil, err
	}
	ms, err := s.Repo.Materials(ctx, shopID, &oid)
	if err != nil {
		return nil, err
	}
	out := &OrderMaterials{Materials: ms, Count: len(ms)}
	if out.Materials == nil {
		out.Materials = []models.OrderMaterial{}
	}
	for i := range ms {
		if c := ms[i].TotalCost(); c != nil {
			out.TotalCost = out.TotalCost.Add(*c)
		}
	}
	return out, nil
}

func (s *InventoryService) Materials(ctx context.Context, u *models.User, order string) ([]models.OrderMaterial, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	oid, err := parseOptionalID("order", order)
	if err != nil {
		return nil, err
	}
	return s.Repo.Materials(ctx, shopID, oid)
}

// DeleteMaterial puts the consumed quantity back on the shelf.
func (s *InventoryService) DeleteMaterial(ctx context.Context, u *models.User, id string) error {
	shopID, err := shopOf(u)
	if err != nil {
		return err
	}
	mid, err := parseID("order material", id)
	if err != nil {
		return err
	}
	m, err := s.Repo.GetMaterial(ctx, shopID, mid)
	if err != nil {
		return err
	}
	_, err = s.Repo.Move(ctx, shopID, m.InventoryItemID, func(tx repository.StockTx, it *models.InventoryItem) (*models.StockHistory, error) {
		if err := tx.DeleteMaterial(m); err != nil {
			return nil, err
		}
		before := it.CurrentStock
		it.CurrentStock = before.Add(m.Quantity)
		return &models.StockHistory{
			TransactionType: models.TxIn,
			Reason:          models.ReasonOrderCancelled,
			Quantity:        m.Quantity,
			StockBefore:     before,
			StockAfter:      it.CurrentStock,
			OrderID:         &m.OrderID,
			Notes:           "Material removed from order",
			CreatedByID:     &u.ID,
		}, nil
	})
	return err
}

func (s *InventoryService) Dashboard(ctx context.Context, u *models.User) (*InventoryDashboard, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	sum, err := s.Repo.Summary(ctx, shopID)
	if err != nil {
		return nil, err
	}
	for i := range sum.RecentlyUpdated {
		sum.RecentlyUpdated[i].Refresh()
	}
	for i := range sum.LowStockItems {
		sum.LowStockItems[i].Refresh()
	}
	return &InventoryDashboard{InventorySummary: sum, TotalStockValue: decimal.Zero}, nil
}

// lowStock publishes when a movement took the item below its minimum.
func (s *InventoryService) lowStock(ctx context.Context, it *models.InventoryItem, wasLow bool) {
	if wasLow || !it.IsLowStock {
		return
	}
	s.Events.Emit(ctx, events.InventoryLowStock, map[string]any{
		"shop_id":       it.ShopID.String(),
		"item_id":       it.ID.String(),
		"name":          it.Name,
		"current_stock": it.CurrentStock.String(),
		"minimum_stock": it.MinimumStock.String(),
	})
}

// errorMessage is the client-facing text of a typed error.
func errorMessage(err error) string {
	var st *apperr.Status
	if errors.As(err, &st) {
		return st.Msg
	}
	return err.Error()
}
