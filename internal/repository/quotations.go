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

type QuotationFilter struct {
	DocumentType string
	Search       string
}

type QuotationRepository interface {
	Create(ctx context.Context, q *models.Quotation) error
	Get(ctx context.Context, shopID, id uuid.UUID) (*models.Quotation, error)
	ByToken(ctx context.Context, token string) (*models.Quotation, error)
	Save(ctx context.Context, q *models.Quotation) error
	Delete(ctx context.Context, shopID, id uuid.UUID) error
	List(ctx context.Context, shopID uuid.UUID, f QuotationFilter, p PageRequest) (Page[models.Quotation], error)
	LastNumber(ctx context.Context, shopID uuid.UUID, prefix string) (string, error)
	// CreatedBetween returns documents created within [from, to), newest first.
	CreatedBetween(ctx context.Context, shopID uuid.UUID, from, to time.Time) ([]models.Quotation, error)
}

type CatalogRepository interface {
	Create(ctx context.Context, it *models.CatalogItem) error
	Get(ctx context.Context, shopID, id uuid.UUID) (*models.CatalogItem, error)
	Save(ctx context.Context, it *models.CatalogItem) error
	Delete(ctx context.Context, shopID, id uuid.UUID) error
	List(ctx context.Context, shopID uuid.UUID, search string) ([]models.CatalogItem, error)
}

type Quotations struct{ db *gorm.DB }

var _ QuotationRepository = (*Quotations)(nil)

func NewQuotations(db *gorm.DB) *Quotations { return &Quotations{db: db} }

func (r *Quotations) Create(ctx context.Context, q *models.Quotation) error {
	return wrap(r.db.WithContext(ctx).Create(q).Error, "quotation", q.QuotationNo, "create quotation")
}

func (r *Quotations) Get(ctx context.Context, shopID, id uuid.UUID) (*models.Quotation, error) {
	var q models.Quotation
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).First(&q, "id = ?", id).Error
	return &q, wrap(err, "quotation", id, "get quotation")
}

func (r *Quotations) ByToken(ctx context.Context, token string) (*models.Quotation, error) {
	var q models.Quotation
	err := r.db.WithContext(ctx).Where("share_token = ?", token).First(&q).Error
	return &q, wrap(err, "document", nil, "get shared document")
}

func (r *Quotations) Save(ctx context.Context, q *models.Quotation) error {
	return wrap(r.db.WithContext(ctx).Save(q).Error, "quotation", q.ID, "save quotation")
}

func (r *Quotations) Delete(ctx context.Context, shopID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Where("id = ?", id).Delete(&models.Quotation{})
	return deleted(res, "quotation", id)
}

func (r *Quotations) List(ctx context.Context, shopID uuid.UUID, f QuotationFilter, p PageRequest) (Page[models.Quotation], error) {
	q := r.db.WithContext(ctx).Model(&models.Quotation{}).Scopes(shopScope(shopID))
	if f.DocumentType != "" {
		q = q.Where("document_type = ?", f.DocumentType)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pat := like(s)
		q = q.Where("quotation_no ILIKE ? OR to_address ILIKE ?", pat, pat)
	}
	return paginate[models.Quotation](q, p, func(q *gorm.DB) *gorm.DB { return q.Order("created_at DESC") })
}

func (r *Quotations) LastNumber(ctx context.Context, shopID uuid.UUID, prefix string) (string, error) {
	var q models.Quotation
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).
		Where("quotation_no LIKE ?", strings.ReplaceAll(prefix, "%", `\%`)+"%").
		Order("created_at DESC").Select("quotation_no").First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return q.QuotationNo, wrap(err, "quotation", nil, "last quotation number")
}

func (r *Quotations) CreatedBetween(ctx context.Context, shopID uuid.UUID, from, to time.Time) ([]models.Quotation, error) {
	var out []models.Quotation
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at DESC").Find(&out).Error
	return out, wrap(err, "quotation", nil, "list quotations by date")
}

type Catalog struct{ db *gorm.DB }

var _ CatalogRepository = (*Catalog)(nil)

func NewCatalog(db *gorm.DB) *Catalog { return &Catalog{db: db} }

func (r *Catalog) Create(ctx context.Context, it *models.CatalogItem) error {
	return wrap(r.db.WithContext(ctx).Create(it).Error, "item", nil, "create item")
}

func (r *Catalog) Get(ctx context.Context, shopID, id uuid.UUID) (*models.CatalogItem, error) {
	var it models.CatalogItem
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).First(&it, "id = ?", id).Error
	return &it, wrap(err, "item", id, "get item")
}

func (r *Catalog) Save(ctx context.Context, it *models.CatalogItem) error {
	return wrap(r.db.WithContext(ctx).Save(it).Error, "item", it.ID, "save item")
}

func (r *Catalog) Delete(ctx context.Context, shopID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Where("id = ?", id).Delete(&models.CatalogItem{})
	return deleted(res, "item", id)
}

func (r *Catalog) List(ctx context.Context, shopID uuid.UUID, search string) ([]models.CatalogItem, error) {
	q := r.db.WithContext(ctx).Scopes(shopScope(shopID))
	if s := strings.TrimSpace(search); s != "" {
		pat := like(s)
		q = q.Where("description ILIKE ? OR hsn_code ILIKE ?", pat, pat)
	}
	var out []models.CatalogItem
	err := q.Order("description").Find(&out).Error
	return out, wrap(err, "item", nil, "list items")
}
