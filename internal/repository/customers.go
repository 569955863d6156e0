package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stitchdesk/internal/models"
)

type CustomerRepository interface {
	Create(ctx context.Context, c *models.Customer) error
	Get(ctx context.Context, shopID, id uuid.UUID) (*models.Customer, error)
	Save(ctx context.Context, c *models.Customer) error
	Delete(ctx context.Context, shopID, id uuid.UUID) error
	List(ctx context.Context, shopID uuid.UUID, search string, p PageRequest) (Page[models.Customer], error)
	Count(ctx context.Context, shopID uuid.UUID) (int64, error)
}

type Customers struct{ db *gorm.DB }

var _ CustomerRepository = (*Customers)(nil)

func NewCustomers(db *gorm.DB) *Customers { return &Customers{db: db} }

func (r *Customers) Create(ctx context.Context, c *models.Customer) error {
	return wrap(r.db.WithContext(ctx).Create(c).Error, "customer", nil, "create customer")
}

func (r *Customers) Get(ctx context.Context, shopID, id uuid.UUID) (*models.Customer, error) {
	var c models.Customer
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).First(&c, "id = ?", id).Error
	return &c, wrap(err, "customer", id, "get customer")
}

func (r *Customers) Save(ctx context.Context, c *models.Customer) error {
	return wrap(r.db.WithContext(ctx).Save(c).Error, "customer", c.ID, "save customer")
}

func (r *Customers) Delete(ctx context.Context, shopID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Where("id = ?", id).Delete(&models.Customer{})
	return deleted(res, "customer", id)
}

func (r *Customers) List(ctx context.Context, shopID uuid.UUID, search string, p PageRequest) (Page[models.Customer], error) {
	q := r.db.WithContext(ctx).Model(&models.Customer{}).Scopes(shopScope(shopID))
	if s := strings.TrimSpace(search); s != "" {
		pat := like(s)
		q = q.Where("name ILIKE ? OR phone ILIKE ? OR email ILIKE ?", pat, pat, pat)
	}
	return paginate[models.Customer](q, p, func(q *gorm.DB) *gorm.DB { return q.Order("created_at DESC") })
}

func (r *Customers) Count(ctx context.Context, shopID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Scopes(shopScope(shopID)).Count(&n).Error
	return n, wrap(err, "customer", nil, "count customers")
}
