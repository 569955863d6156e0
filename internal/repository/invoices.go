package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stitchdesk/internal/models"
)

type InvoiceFilter struct {
	CustomerID *uuid.UUID
	OrderID    *uuid.UUID
	Search     string
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *models.Invoice) error
	Get(ctx context.Context, shopID, id uuid.UUID) (*models.Invoice, error)
	Update(ctx context.Context, inv *models.Invoice, replaceItems bool) error
	Delete(ctx context.Context, shopID, id uuid.UUID) error
	List(ctx context.Context, shopID uuid.UUID, f InvoiceFilter, p PageRequest) (Page[models.Invoice], error)
	LastNumber(ctx context.Context, shopID uuid.UUID, prefix string) (string, error)
}

type Invoices struct{ db *gorm.DB }

var _ InvoiceRepository = (*Invoices)(nil)

func NewInvoices(db *gorm.DB) *Invoices { return &Invoices{db: db} }

func (r *Invoices) Create(ctx context.Context, inv *models.Invoice) error {
	err := r.db.WithContext(ctx).Omit("Customer", "Order").Create(inv).Error
	return wrap(err, "invoice", inv.InvoiceNumber, "create invoice")
}

func (r *Invoices) Get(ctx context.Context, shopID, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).
		Preload("Customer", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
		Preload("Order", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at") }).
		First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, wrap(err, "invoice", id, "get invoice")
	}
	inv.FillRefs()
	return &inv, nil
}

func (r *Invoices) Update(ctx context.Context, inv *models.Invoice, replaceItems bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Customer", "Order", "Items").Save(inv).Error; err != nil {
			return err
		}
		if !replaceItems {
			return nil
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		for i := range inv.Items {
			inv.Items[i].ID = uuid.Nil
			inv.Items[i].InvoiceID = inv.ID
		}
		if len(inv.Items) == 0 {
			return nil
		}
		return tx.Create(&inv.Items).Error
	})
	return wrap(err, "invoice", inv.ID, "update invoice")
}

func (r *Invoices) Delete(ctx context.Context, shopID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Where("id = ?", id).Delete(&models.Invoice{})
	return deleted(res, "invoice", id)
}

func (r *Invoices) List(ctx context.Context, shopID uuid.UUID, f InvoiceFilter, p PageRequest) (Page[models.Invoice], error) {
	q := r.db.WithContext(ctx).Model(&models.Invoice{}).Scopes(shopScope(shopID))
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.OrderID != nil {
		q = q.Where("order_id = ?", *f.OrderID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pat := like(s)
		q = q.Where("invoice_number ILIKE ? OR customer_id IN (SELECT id FROM customers WHERE name ILIKE ?)", pat, pat)
	}
	page, err := paginate[models.Invoice](q, p, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Customer", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
			Preload("Order", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
			Preload("Items").
			Order("created_at DESC")
	})
	for i := range page.Results {
		page.Results[i].FillRefs()
	}
	return page, err
}

func (r *Invoices) LastNumber(ctx context.Context, shopID uuid.UUID, prefix string) (string, error) {
	var inv models.Invoice
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).
		Where("invoice_number LIKE ?", strings.ReplaceAll(prefix, "%", `\%`)+"%").
		Order("created_at DESC").Select("invoice_number").First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return inv.InvoiceNumber, wrap(err, "invoice", nil, "last invoice number")
}
