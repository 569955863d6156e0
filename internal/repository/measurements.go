package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stitchdesk/internal/models"
)

type TemplateFilter struct {
	ItemType   models.ItemType
	ActiveOnly bool
}

type MeasurementRepository interface {
	CreateTemplate(ctx context.Context, t *models.MeasurementTemplate) error
	GetTemplate(ctx context.Context, shopID, id uuid.UUID) (*models.MeasurementTemplate, error)
	SaveTemplate(ctx context.Context, t *models.MeasurementTemplate) error
	DeleteTemplate(ctx context.Context, shopID, id uuid.UUID) error
	ListTemplates(ctx context.Context, shopID uuid.UUID, f TemplateFilter) ([]models.MeasurementTemplate, error)

	Create(ctx context.Context, m *models.Measurement) error
	Get(ctx context.Context, shopID, id uuid.UUID) (*models.Measurement, error)
	Save(ctx context.Context, m *models.Measurement) error
	Delete(ctx context.Context, shopID, id uuid.UUID) error
	List(ctx context.Context, shopID uuid.UUID, customerID *uuid.UUID, p PageRequest) (Page[models.Measurement], error)
}

type Measurements struct{ db *gorm.DB }

var _ MeasurementRepository = (*Measurements)(nil)

func NewMeasurements(db *gorm.DB) *Measurements { return &Measurements{db: db} }

func (r *Measurements) CreateTemplate(ctx context.Context, t *models.MeasurementTemplate) error {
	return wrap(r.db.WithContext(ctx).Create(t).Error, "template", nil, "create template")
}

func (r *Measurements) GetTemplate(ctx context.Context, shopID, id uuid.UUID) (*models.MeasurementTemplate, error) {
	var t models.MeasurementTemplate
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).First(&t, "id = ?", id).Error
	return &t, wrap(err, "template", id, "get template")
}

func (r *Measurements) SaveTemplate(ctx context.Context, t *models.MeasurementTemplate) error {
	return wrap(r.db.WithContext(ctx).Save(t).Error, "template", t.ID, "save template")
}

func (r *Measurements) DeleteTemplate(ctx context.Context, shopID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Where("id = ?", id).Delete(&models.MeasurementTemplate{})
	return deleted(res, "template", id)
}

func (r *Measurements) ListTemplates(ctx context.Context, shopID uuid.UUID, f TemplateFilter) ([]models.MeasurementTemplate, error) {
	q := r.db.WithContext(ctx).Scopes(shopScope(shopID))
	if f.ItemType != "" {
		q = q.Where("item_type = ?", f.ItemType)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []models.MeasurementTemplate
	err := q.Order("item_type, created_at DESC").Find(&out).Error
	return out, wrap(err, "template", nil, "list templates")
}

func (r *Measurements) Create(ctx context.Context, m *models.Measurement) error {
	return wrap(r.db.WithContext(ctx).Omit("Customer", "Template").Create(m).Error, "measurement", nil, "create measurement")
}

func (r *Measurements) Get(ctx context.Context, shopID, id uuid.UUID) (*models.Measurement, error) {
	var m models.Measurement
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Preload("Template").First(&m, "id = ?", id).Error
	return &m, wrap(err, "measurement", id, "get measurement")
}

func (r *Measurements) Save(ctx context.Context, m *models.Measurement) error {
	return wrap(r.db.WithContext(ctx).Omit("Customer", "Template").Save(m).Error, "measurement", m.ID, "save measurement")
}

func (r *Measurements) Delete(ctx context.Context, shopID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Where("id = ?", id).Delete(&models.Measurement{})
	return deleted(res, "measurement", id)
}

func (r *Measurements) List(ctx context.Context, shopID uuid.UUID, customerID *uuid.UUID, p PageRequest) (Page[models.Measurement], error) {
	q := r.db.WithContext(ctx).Model(&models.Measurement{}).Scopes(shopScope(shopID))
	if customerID != nil {
		q = q.Where("customer_id = ?", *customerID)
	}
	return paginate[models.Measurement](q, p, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Template").Order("created_at DESC")
	})
}
