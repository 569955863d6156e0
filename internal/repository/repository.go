// Package repository is the gorm-backed persistence layer. Services depend on
// the interfaces declared here.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/db"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int { return (p.Page - 1) * p.PageSize }

type Page[T any] struct {
	Results    []T   `json:"results"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
}

// NewPage assembles a page from an already sliced result set.
func NewPage[T any](rows []T, total int64, p PageRequest) Page[T] {
	p = p.Normalize()
	if rows == nil {
		rows = []T{}
	}
	pages := int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	return Page[T]{Results: rows, Page: p.Page, PageSize: p.PageSize, TotalCount: total, TotalPages: pages}
}

// paginate counts q, then applies finish (ordering, preloads) and fetches
// one page.
func paginate[T any](q *gorm.DB, p PageRequest, finish func(*gorm.DB) *gorm.DB) (Page[T], error) {
	p = p.Normalize()
	base := q.Session(&gorm.Session{})
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return Page[T]{}, pkgerrors.Wrap(err, "count")
	}
	var rows []T
	fq := base.Offset(p.Offset()).Limit(p.PageSize)
	if finish != nil {
		fq = finish(fq)
	}
	if err := fq.Find(&rows).Error; err != nil {
		return Page[T]{}, pkgerrors.Wrap(err, "list")
	}
	return NewPage(rows, total, p), nil
}

func shopScope(shopID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB { return q.Where("shop_id = ?", shopID) }
}

// like builds an ILIKE pattern with the wildcards escaped.
func like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

var conflictMessages = map[string]string{
	"idx_payment_methods_shop_name":      "Payment method with this name already exists",
	"idx_inventory_categories_shop_name": "Category with this name already exists",
	"idx_plans_type_cycle":               "Plan with this type and billing cycle already exists",
	"idx_users_email":                    "User with this email already exists",
	"idx_users_username":                 "User with this username already exists",
	"idx_orders_shop_number":             "Order number already exists",
	"idx_quotations_shop_no":             "Quotation number already exists",
}

// wrap maps driver errors to apperr types and adds context to the rest.
func wrap(err error, resource string, id any, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NewNotFound(resource, id)
	}
	if db.IsUniqueViolation(err) {
		if msg, ok := conflictMessages[db.ConstraintName(err)]; ok {
			return apperr.Conflict(msg)
		}
		return apperr.Conflict(fmt.Sprintf("%s already exists", resource))
	}
	return pkgerrors.Wrap(err, op)
}

// deleted reports a soft/hard delete that matched no row as not found.
func deleted(res *gorm.DB, resource string, id any) error {
	if res.Error != nil {
		return wrap(res.Error, resource, id, "delete "+resource)
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound(resource, id)
	}
	return nil
}
