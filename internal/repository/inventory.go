package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stitchdesk/internal/models"
)

type ItemFilter struct {
	CategoryID *uuid.UUID
	LowStock   bool
	Search     string
}

// StockTx is handed to a stock movement while the item row is locked.
type StockTx interface {
	CreateMaterial(m *models.OrderMaterial) error
	DeleteMaterial(m *models.OrderMaterial) error
}

// MoveFunc mutates the locked item and returns the history entry to record.
// Returning an error rolls the movement back.
type MoveFunc func(tx StockTx, item *models.InventoryItem) (*models.StockHistory, error)

type InventorySummary struct {
	TotalItems      int64                  `json:"total_items"`
	TotalCategories int64                  `json:"total_categories"`
	LowStockCount   int64                  `json:"low_stock_count"`
	RecentlyUpdated []models.InventoryItem `json:"recently_updated"`
	LowStockItems   []models.InventoryItem `json:"low_stock_items"`
}

type InventoryRepository interface {
	CreateCategory(ctx context.Context, c *models.InventoryCategory) error
	GetCategory(ctx context.Context, shopID, id uuid.UUID) (*models.InventoryCategory, error)
	SaveCategory(ctx context.Context, c *models.InventoryCategory) error
	DeleteCategory(ctx context.Context, shopID, id uuid.UUID) error
	ListCategories(ctx context.Context, shopID uuid.UUID) ([]models.InventoryCategory, error)

	// CreateItem stores the item and, when given, its opening history entry.
	CreateItem(ctx context.Context, it *models.InventoryItem, opening *models.StockHistory) error
	GetItem(ctx context.Context, shopID, id uuid.UUID) (*models.InventoryItem, error)
	SaveItem(ctx context.Context, it *models.InventoryItem) error
	DeleteItem(ctx context.Context, shopID, id uuid.UUID) error
	ListItems(ctx context.Context, shopID uuid.UUID, f ItemFilter, p PageRequest) (Page[models.InventoryItem], error)
	CountItems(ctx context.Context, shopID uuid.UUID) (int64, error)
	History(ctx context.Context, itemID uuid.UUID, limit int) ([]models.StockHistory, error)

	// Move runs fn with the item row locked FOR UPDATE and persists the item
	// and the returned history entry in the same transaction.
	Move(ctx context.Context, shopID, itemID uuid.UUID, fn MoveFunc) (*models.InventoryItem, error)

	GetMaterial(ctx context.Context, shopID, id uuid.UUID) (*models.OrderMaterial, error)
	Materials(ctx context.Context, shopID uuid.UUID, orderID *uuid.UUID) ([]models.OrderMaterial, error)

	Summary(ctx context.Context, shopID uuid.UUID) (*InventorySummary, error)
}

type Inventory struct{ db *gorm.DB }

var _ InventoryRepository = (*Inventory)(nil)

func NewInventory(db *gorm.DB) *Inventory { return &Inventory{db: db} }

func (r *Inventory) CreateCategory(ctx context.Context, c *models.InventoryCategory) error {
	return wrap(r.db.WithContext(ctx).Create(c).Error, "category", c.Name, "create category")
}

func (r *Inventory) GetCategory(ctx context.Context, shopID, id uuid.UUID) (*models.InventoryCategory, error) {
	var c models.InventoryCategory
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, wrap(err, "category", id, "get category")
	}
	err = r.db.WithContext(ctx).Model(&models.InventoryItem{}).Where("category_id = ?", c.ID).Count(&c.ItemsCount).Error
	return &c, wrap(err, "category", id, "count category items")
}

func (r *Inventory) SaveCategory(ctx context.Context, c *models.InventoryCategory) error {
	return wrap(r.db.WithContext(ctx).Save(c).Error, "category", c.ID, "save category")
}

func (r *Inventory) DeleteCategory(ctx context.Context, shopID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Where("id = ?", id).Delete(&models.InventoryCategory{})
	return deleted(res, "category", id)
}

func (r *Inventory) ListCategories(ctx context.Context, shopID uuid.UUID) ([]models.InventoryCategory, error) {
	var out []models.InventoryCategory
	if err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Order("name").Find(&out).Error; err != nil {
		return nil, wrap(err, "category", nil, "list categories")
	}
	var counts []struct {
		CategoryID uuid.UUID
		N          int64
	}
	err := r.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Select("category_id, COUNT(*) AS n").
		Where("shop_id = ? AND category_id IS NOT NULL", shopID).
		Group("category_id").Scan(&counts).Error
	if err != nil {
		return nil, wrap(err, "category", nil, "count category items")
	}
	byID := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		byID[c.CategoryID] = c.N
	}
	for i := range out {
		out[i].ItemsCount = byID[out[i].ID]
	}
	return out, nil
}

func (r *Inventory) CreateItem(ctx context.Context, it *models.InventoryItem, opening *models.StockHistory) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Category").Create(it).Error; err != nil {
			return err
		}
		if opening == nil {
			return nil
		}
		opening.InventoryItemID = it.ID
		return tx.Create(opening).Error
	})
	it.Refresh()
	return wrap(err, "inventory item", it.Name, "create inventory item")
}

func (r *Inventory) GetItem(ctx context.Context, shopID, id uuid.UUID) (*models.InventoryItem, error) {
	var it models.InventoryItem
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Preload("Category").First(&it, "id = ?", id).Error
	if err != nil {
		return nil, wrap(err, "inventory item", id, "get inventory item")
	}
	it.Refresh()
	return &it, nil
}

func (r *Inventory) SaveItem(ctx context.Context, it *models.InventoryItem) error {
	err := r.db.WithContext(ctx).Omit("Category").Save(it).Error
	it.Refresh()
	return wrap(err, "inventory item", it.ID, "save inventory item")
}

func (r *Inventory) DeleteItem(ctx context.Context, shopID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Where("id = ?", id).Delete(&models.InventoryItem{})
	return deleted(res, "inventory item", id)
}

func (r *Inventory) ListItems(ctx context.Context, shopID uuid.UUID, f ItemFilter, p PageRequest) (Page[models.InventoryItem], error) {
	q := r.db.WithContext(ctx).Model(&models.InventoryItem{}).Scopes(shopScope(shopID))
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.LowStock {
		q = q.Where("current_stock < minimum_stock")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pat := like(s)
		q = q.Where("name ILIKE ? OR sku ILIKE ? OR description ILIKE ?", pat, pat, pat)
	}
	page, err := paginate[models.InventoryItem](q, p, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Category", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).Order("name")
	})
	for i := range page.Results {
		page.Results[i].Refresh()
	}
	return page, err
}

func (r *Inventory) CountItems(ctx context.Context, shopID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.InventoryItem{}).Scopes(shopScope(shopID)).Count(&n).Error
	return n, wrap(err, "inventory item", nil, "count inventory items")
}

func (r *Inventory) History(ctx context.Context, itemID uuid.UUID, limit int) ([]models.StockHistory, error) {
	var out []models.StockHistory
	err := r.db.WithContext(ctx).Where("inventory_item_id = ?", itemID).
		Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, wrap(err, "stock history", itemID, "list stock history")
}

type gormStockTx struct{ tx *gorm.DB }

func (t gormStockTx) CreateMaterial(m *models.OrderMaterial) error {
	return t.tx.Omit("InventoryItem").Create(m).Error
}

func (t gormStockTx) DeleteMaterial(m *models.OrderMaterial) error {
	return t.tx.Delete(&models.OrderMaterial{}, "id = ?", m.ID).Error
}

func (r *Inventory) Move(ctx context.Context, shopID, itemID uuid.UUID, fn MoveFunc) (*models.InventoryItem, error) {
	var it models.InventoryItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Scopes(shopScope(shopID)).First(&it, "id = ?", itemID).Error
		if err != nil {
			return wrap(err, "inventory item", itemID, "lock inventory item")
		}
		h, err := fn(gormStockTx{tx: tx}, &it)
		if err != nil {
			return err
		}
		if err := tx.Model(&it).Update("current_stock", it.CurrentStock).Error; err != nil {
			return err
		}
		if h == nil {
			return nil
		}
		h.InventoryItemID = it.ID
		return tx.Create(h).Error
	})
	if err != nil {
		return nil, wrap(err, "inventory item", itemID, "move stock")
	}
	it.Refresh()
	return &it, nil
}

func (r *Inventory) GetMaterial(ctx context.Context, shopID, id uuid.UUID) (*models.OrderMaterial, error) {
	var m models.OrderMaterial
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).
		Preload("InventoryItem", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
		First(&m, "id = ?", id).Error
	if err != nil {
		return nil, wrap(err, "order material", id, "get order material")
	}
	m.FillItem()
	return &m, nil
}

func (r *Inventory) Materials(ctx context.Context, shopID uuid.UUID, orderID *uuid.UUID) ([]models.OrderMaterial, error) {
	q := r.db.WithContext(ctx).Scopes(shopScope(shopID))
	if orderID != nil {
		q = q.Where("order_id = ?", *orderID)
	}
	var out []models.OrderMaterial
	err := q.Preload("InventoryItem", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
		Order("created_at DESC").Find(&out).Error
	for i := range out {
		out[i].FillItem()
	}
	return out, wrap(err, "order material", nil, "list order materials")
}

func (r *Inventory) Summary(ctx context.Context, shopID uuid.UUID) (*InventorySummary, error) {
	s := &InventorySummary{}
	q := func() *gorm.DB { return r.db.WithContext(ctx).Scopes(shopScope(shopID)) }

	if err := q().Model(&models.InventoryItem{}).Count(&s.TotalItems).Error; err != nil {
		return nil, wrap(err, "inventory", nil, "count items")
	}
	if err := q().Model(&models.InventoryCategory{}).Count(&s.TotalCategories).Error; err != nil {
		return nil, wrap(err, "inventory", nil, "count categories")
	}
	if err := q().Model(&models.InventoryItem{}).Where("current_stock < minimum_stock").Count(&s.LowStockCount).Error; err != nil {
		return nil, wrap(err, "inventory", nil, "count low stock")
	}
	if err := q().Order("updated_at DESC").Limit(5).Find(&s.RecentlyUpdated).Error; err != nil {
		return nil, wrap(err, "inventory", nil, "recent items")
	}
	if err := q().Where("current_stock < minimum_stock").Order("current_stock").Limit(10).Find(&s.LowStockItems).Error; err != nil {
		return nil, wrap(err, "inventory", nil, "low stock items")
	}
	return s, nil
}
