package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stitchdesk/internal/models"
)

type GalleryFilter struct {
	CategoryID    *uuid.UUID
	CategoryIDs   []uuid.UUID
	IsPublished   *bool
	IsFeatured    *bool
	ActiveCatOnly bool
}

type GalleryRepository interface {
	CreateCategory(ctx context.Context, c *models.GalleryCategory) error
	GetCategory(ctx context.Context, shopID, id uuid.UUID) (*models.GalleryCategory, error)
	SaveCategory(ctx context.Context, c *models.GalleryCategory) error
	DeleteCategory(ctx context.Context, shopID, id uuid.UUID) error
	ListCategories(ctx context.Context, shopID uuid.UUID, activeOnly bool) ([]models.GalleryCategory, error)
	MaxCategoryOrder(ctx context.Context, shopID uuid.UUID) (int, error)
	ReorderCategories(ctx context.Context, shopID uuid.UUID, order map[uuid.UUID]int) error

	CreateItem(ctx context.Context, it *models.GalleryItem) error
	GetItem(ctx context.Context, shopID, id uuid.UUID) (*models.GalleryItem, error)
	SaveItem(ctx context.Context, it *models.GalleryItem) error
	DeleteItem(ctx context.Context, shopID, id uuid.UUID) error
	ListItems(ctx context.Context, shopID uuid.UUID, f GalleryFilter, p PageRequest) (Page[models.GalleryItem], error)

	AddImages(ctx context.Context, imgs []models.GalleryImage) error
	DeleteImage(ctx context.Context, itemID, imageID uuid.UUID) (*models.GalleryImage, error)
	ReorderImages(ctx context.Context, itemID uuid.UUID, order map[uuid.UUID]int) error
	CountShopImages(ctx context.Context, shopID uuid.UUID) (int64, error)

	// Settings returns NotFound until the shop saves settings once.
	Settings(ctx context.Context, shopID uuid.UUID) (*models.GallerySettings, error)
	SaveSettings(ctx context.Context, s *models.GallerySettings) error

	Analytics(ctx context.Context, shopID uuid.UUID, from models.Date) ([]models.GalleryAnalytics, error)
	// Track applies fn to the day's analytics row under a row lock,
	// creating the row first when needed.
	Track(ctx context.Context, shopID uuid.UUID, day models.Date, fn func(a *models.GalleryAnalytics)) error
}

type Gallery struct{ db *gorm.DB }

var _ GalleryRepository = (*Gallery)(nil)

func NewGallery(db *gorm.DB) *Gallery { return &Gallery{db: db} }

func (r *Gallery) CreateCategory(ctx context.Context, c *models.GalleryCategory) error {
	return wrap(r.db.WithContext(ctx).Create(c).Error, "category", nil, "create gallery category")
}

func (r *Gallery) GetCategory(ctx context.Context, shopID, id uuid.UUID) (*models.GalleryCategory, error) {
	var c models.GalleryCategory
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, wrap(err, "category", id, "get gallery category")
	}
	err = r.db.WithContext(ctx).Model(&models.GalleryItem{}).Where("category_id = ?", id).Count(&c.ItemsCount).Error
	return &c, wrap(err, "category", id, "count gallery items")
}

func (r *Gallery) SaveCategory(ctx context.Context, c *models.GalleryCategory) error {
	return wrap(r.db.WithContext(ctx).Save(c).Error, "category", c.ID, "save gallery category")
}

func (r *Gallery) DeleteCategory(ctx context.Context, shopID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Where("id = ?", id).Delete(&models.GalleryCategory{})
	return deleted(res, "category", id)
}

func (r *Gallery) ListCategories(ctx context.Context, shopID uuid.UUID, activeOnly bool) ([]models.GalleryCategory, error) {
	q := r.db.WithContext(ctx).Scopes(shopScope(shopID))
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []models.GalleryCategory
	if err := q.Order("display_order, created_at DESC").Find(&out).Error; err != nil {
		return nil, wrap(err, "category", nil, "list gallery categories")
	}
	var counts []struct {
		CategoryID uuid.UUID
		N          int64
	}
	err := r.db.WithContext(ctx).Model(&models.GalleryItem{}).
		Select("category_id, COUNT(*) AS n").
		Where("shop_id = ? AND category_id IS NOT NULL", shopID).
		Group("category_id").Scan(&counts).Error
	if err != nil {
		return nil, wrap(err, "category", nil, "count gallery items")
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

func (r *Gallery) MaxCategoryOrder(ctx context.Context, shopID uuid.UUID) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&models.GalleryCategory{}).Scopes(shopScope(shopID)).
		Select("MAX(display_order)").Scan(&max).Error
	if err != nil || max == nil {
		return 0, wrap(err, "category", nil, "max display order")
	}
	return *max, nil
}

func (r *Gallery) ReorderCategories(ctx context.Context, shopID uuid.UUID, order map[uuid.UUID]int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, pos := range order {
			if err := tx.Model(&models.GalleryCategory{}).Scopes(shopScope(shopID)).
				Where("id = ?", id).Update("display_order", pos).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return wrap(err, "category", nil, "reorder gallery categories")
}

func (r *Gallery) CreateItem(ctx context.Context, it *models.GalleryItem) error {
	return wrap(r.db.WithContext(ctx).Omit("Category", "Images").Create(it).Error, "gallery item", nil, "create gallery item")
}

func (r *Gallery) GetItem(ctx context.Context, shopID, id uuid.UUID) (*models.GalleryItem, error) {
	var it models.GalleryItem
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).
		Preload("Category", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
		Preload("Images", func(q *gorm.DB) *gorm.DB { return q.Order("display_order, created_at") }).
		First(&it, "id = ?", id).Error
	if err != nil {
		return nil, wrap(err, "gallery item", id, "get gallery item")
	}
	it.FillCategory()
	return &it, nil
}

func (r *Gallery) SaveItem(ctx context.Context, it *models.GalleryItem) error {
	return wrap(r.db.WithContext(ctx).Omit("Category", "Images").Save(it).Error, "gallery item", it.ID, "save gallery item")
}

func (r *Gallery) DeleteItem(ctx context.Context, shopID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Where("id = ?", id).Delete(&models.GalleryItem{})
	return deleted(res, "gallery item", id)
}

func (r *Gallery) ListItems(ctx context.Context, shopID uuid.UUID, f GalleryFilter, p PageRequest) (Page[models.GalleryItem], error) {
	q := r.db.WithContext(ctx).Model(&models.GalleryItem{}).Scopes(shopScope(shopID))
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if len(f.CategoryIDs) > 0 {
		q = q.Where("category_id IN ?", f.CategoryIDs)
	}
	if f.IsPublished != nil {
		q = q.Where("is_published = ?", *f.IsPublished)
	}
	if f.IsFeatured != nil {
		q = q.Where("is_featured = ?", *f.IsFeatured)
	}
	if f.ActiveCatOnly {
		q = q.Where("category_id IS NULL OR category_id IN (SELECT id FROM gallery_categories WHERE is_active AND deleted_at IS NULL)")
	}
	page, err := paginate[models.GalleryItem](q, p, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Category", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
			Preload("Images", func(q *gorm.DB) *gorm.DB { return q.Order("display_order, created_at") }).
			Order("is_featured DESC, created_at DESC")
	})
	for i := range page.Results {
		page.Results[i].FillCategory()
	}
	return page, err
}

func (r *Gallery) AddImages(ctx context.Context, imgs []models.GalleryImage) error {
	if len(imgs) == 0 {
		return nil
	}
	return wrap(r.db.WithContext(ctx).Create(&imgs).Error, "gallery image", nil, "add gallery images")
}

func (r *Gallery) DeleteImage(ctx context.Context, itemID, imageID uuid.UUID) (*models.GalleryImage, error) {
	var img models.GalleryImage
	err := r.db.WithContext(ctx).Clauses(clause.Returning{}).
		Where("id = ? AND gallery_item_id = ?", imageID, itemID).Delete(&img).Error
	if err != nil {
		return nil, wrap(err, "image", imageID, "delete gallery image")
	}
	if img.ID == uuid.Nil {
		return nil, wrap(gorm.ErrRecordNotFound, "image", imageID, "delete gallery image")
	}
	return &img, nil
}

func (r *Gallery) ReorderImages(ctx context.Context, itemID uuid.UUID, order map[uuid.UUID]int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, pos := range order {
			if err := tx.Model(&models.GalleryImage{}).
				Where("id = ? AND gallery_item_id = ?", id, itemID).
				Update("display_order", pos).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return wrap(err, "image", nil, "reorder gallery images")
}

func (r *Gallery) CountShopImages(ctx context.Context, shopID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.GalleryImage{}).
		Where("gallery_item_id IN (SELECT id FROM gallery_items WHERE shop_id = ? AND deleted_at IS NULL)", shopID).
		Count(&n).Error
	return n, wrap(err, "image", nil, "count gallery images")
}

func (r *Gallery) Settings(ctx context.Context, shopID uuid.UUID) (*models.GallerySettings, error) {
	var s models.GallerySettings
	err := r.db.WithContext(ctx).Where("shop_id = ?", shopID).First(&s).Error
	if err != nil {
		return nil, wrap(err, "gallery settings", shopID, "get gallery settings")
	}
	s.HasPassword = s.AccessPasswordHash != ""
	return &s, nil
}

func (r *Gallery) SaveSettings(ctx context.Context, s *models.GallerySettings) error {
	err := r.db.WithContext(ctx).Save(s).Error
	s.HasPassword = s.AccessPasswordHash != ""
	return wrap(err, "gallery settings", s.ShopID, "save gallery settings")
}

func (r *Gallery) Analytics(ctx context.Context, shopID uuid.UUID, from models.Date) ([]models.GalleryAnalytics, error) {
	q := r.db.WithContext(ctx).Scopes(shopScope(shopID))
	if !from.IsZero() {
		q = q.Where("date >= ?", from)
	}
	var out []models.GalleryAnalytics
	err := q.Order("date DESC").Find(&out).Error
	return out, wrap(err, "analytics", nil, "list gallery analytics")
}

func (r *Gallery) Track(ctx context.Context, shopID uuid.UUID, day models.Date, fn func(a *models.GalleryAnalytics)) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.GalleryAnalytics{
			ShopID:        shopID,
			Date:          day,
			ItemViews:     map[string]int{},
			CategoryViews: map[string]int{},
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		var a models.GalleryAnalytics
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("shop_id = ? AND date = ?", shopID, day).First(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err != nil {
			return err
		}
		if a.ItemViews == nil {
			a.ItemViews = map[string]int{}
		}
		if a.CategoryViews == nil {
			a.CategoryViews = map[string]int{}
		}
		fn(&a)
		return tx.Save(&a).Error
	})
	return wrap(err, "analytics", nil, "track gallery view")
}
