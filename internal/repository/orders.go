package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stitchdesk/internal/models"
)

type OrderFilter struct {
	Status     models.OrderStatus
	CustomerID *uuid.UUID
	Search     string
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, shopID, id uuid.UUID) (*models.Order, error)
	// Update saves the order; with replaceItems the stored items are
	// swapped for o.Items.
	Update(ctx context.Context, o *models.Order, replaceItems bool) error
	Delete(ctx context.Context, shopID, id uuid.UUID) error
	List(ctx context.Context, shopID uuid.UUID, f OrderFilter, p PageRequest) (Page[models.Order], error)
	LastNumber(ctx context.Context, shopID uuid.UUID, prefix string) (string, error)
	CountSince(ctx context.Context, shopID uuid.UUID, since time.Time) (int64, error)
}

type Orders struct{ db *gorm.DB }

var _ OrderRepository = (*Orders)(nil)

func NewOrders(db *gorm.DB) *Orders { return &Orders{db: db} }

func (r *Orders) Create(ctx context.Context, o *models.Order) error {
	err := r.db.WithContext(ctx).Omit("Customer", "Items.Template").Create(o).Error
	return wrap(err, "order", o.OrderNumber, "create order")
}

func (r *Orders) Get(ctx context.Context, shopID, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).
		Preload("Customer", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at") }).
		Preload("Items.Template", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
		First(&o, "id = ?", id).Error
	if err != nil {
		return nil, wrap(err, "order", id, "get order")
	}
	o.FillCustomer()
	return &o, nil
}

func (r *Orders) Update(ctx context.Context, o *models.Order, replaceItems bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Customer", "Items").Save(o).Error; err != nil {
			return err
		}
		if !replaceItems {
			return nil
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		for i := range o.Items {
			o.Items[i].ID = uuid.Nil
			o.Items[i].OrderID = o.ID
		}
		if len(o.Items) == 0 {
			return nil
		}
		return tx.Omit("Template").Create(&o.Items).Error
	})
	return wrap(err, "order", o.ID, "update order")
}

func (r *Orders) Delete(ctx context.Context, shopID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Where("id = ?", id).Delete(&models.Order{})
	return deleted(res, "order", id)
}

func (r *Orders) List(ctx context.Context, shopID uuid.UUID, f OrderFilter, p PageRequest) (Page[models.Order], error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Scopes(shopScope(shopID))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pat := like(s)
		q = q.Where("order_number ILIKE ? OR customer_id IN (SELECT id FROM customers WHERE name ILIKE ?)", pat, pat)
	}
	page, err := paginate[models.Order](q, p, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Customer", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
			Preload("Items").
			Order("created_at DESC")
	})
	for i := range page.Results {
		page.Results[i].FillCustomer()
	}
	return page, err
}

// LastNumber returns the most recent order number in the prefix series, or
// "" when the series is empty. Soft-deleted orders still hold their number.
func (r *Orders) LastNumber(ctx context.Context, shopID uuid.UUID, prefix string) (string, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Unscoped().Scopes(shopScope(shopID)).
		Where("order_number LIKE ?", strings.ReplaceAll(prefix, "%", `\%`)+"%").
		Order("created_at DESC").Select("order_number").First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return o.OrderNumber, wrap(err, "order", nil, "last order number")
}

func (r *Orders) CountSince(ctx context.Context, shopID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Scopes(shopScope(shopID)).
		Where("created_at >= ?", since).Count(&n).Error
	return n, wrap(err, "order", nil, "count orders")
}
