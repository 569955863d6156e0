package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/decimal"
	"stitchdesk/internal/logger"
	"stitchdesk/internal/models"
	"stitchdesk/internal/repository"
)

const analyticsWindowDays = 30

type GalleryCategoryRequest struct {
	Name         *string `json:"name" form:"name" binding:"omitempty,max=200"`
	Description  *string `json:"description" form:"description"`
	IsActive     *bool   `json:"is_active" form:"is_active"`
	DisplayOrder *int    `json:"display_order" form:"display_order"`
}

type GalleryItemRequest struct {
	Category           *string              `json:"category" form:"category"`
	Title              *string              `json:"title" form:"title" binding:"omitempty,max=300"`
	Description        *string              `json:"description" form:"description"`
	Price              *decimal.Decimal     `json:"price" form:"price"`
	AvailabilityStatus *models.Availability `json:"availability_status" form:"availability_status"`
	IsFeatured         *bool                `json:"is_featured" form:"is_featured"`
	IsPublished        *bool                `json:"is_published" form:"is_published"`
}

type OrderEntry struct {
	ID           uuid.UUID `json:"id" binding:"required"`
	DisplayOrder int       `json:"display_order"`
}

type ReorderRequest struct {
	Orders []OrderEntry `json:"orders" binding:"required,dive"`
}

func (r ReorderRequest) positions() map[uuid.UUID]int {
	m := make(map[uuid.UUID]int, len(r.Orders))
	for _, o := range r.Orders {
		m[o.ID] = o.DisplayOrder
	}
	return m
}

type GallerySettingsRequest struct {
	IsPublicEnabled        *bool        `json:"is_public_enabled"`
	ShowPrices             *bool        `json:"show_prices"`
	WhatsAppNumber         *string      `json:"whatsapp_number" binding:"omitempty,max=20"`
	EnquiryMessageTemplate *string      `json:"enquiry_message_template"`
	AccessPassword         *string      `json:"access_password"`
	PublicCategoryIDs      *[]uuid.UUID `json:"public_category_ids"`
}

type DailyViews struct {
	Date           models.Date `json:"date"`
	Views          int         `json:"views"`
	UniqueVisitors int         `json:"unique_visitors"`
}

type AnalyticsSummary struct {
	TotalViews          int          `json:"total_views"`
	TotalUniqueVisitors int          `json:"total_unique_visitors"`
	DailyBreakdown      []DailyViews `json:"daily_breakdown"`
}

type PublicCategory struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CoverImage  *string   `json:"cover_image_url"`
	ItemsCount  int64     `json:"items_count"`
}

type PublicItem struct {
	ID                 uuid.UUID             `json:"id"`
	Category           *uuid.UUID            `json:"category"`
	CategoryName       string                `json:"category_name"`
	Title              string                `json:"title"`
	Description        string                `json:"description"`
	Price              *decimal.Decimal      `json:"price"`
	AvailabilityStatus models.Availability   `json:"availability_status"`
	IsFeatured         bool                  `json:"is_featured"`
	Images             []models.GalleryImage `json:"images"`
	PrimaryImage       *string               `json:"primary_image_url"`
}

type PublicGallery struct {
	ShopName               string           `json:"shop_name"`
	ShopLogo               *string          `json:"shop_logo"`
	WhatsAppNumber         string           `json:"whatsapp_number"`
	EnquiryMessageTemplate string           `json:"enquiry_message_template"`
	ShowPrices             bool             `json:"show_prices"`
	Categories             []PublicCategory `json:"categories"`
	Items                  []PublicItem     `json:"items"`
}

// PublicRequest is an anonymous gallery visit.
type PublicRequest struct {
	ShopID     string
	Category   string
	Password   string
	NewVisitor bool
}

type GalleryService struct {
	Repo   repository.GalleryRepository
	Shops  repository.ShopRepository
	Media  MediaStore
	Limits LimitEnforcer
	Log    *logger.Logger
	Now    func() time.Time
}

func (s *GalleryService) CreateCategory(ctx context.Context, u *models.User, req GalleryCategoryRequest, cover *multipart.FileHeader) (*models.GalleryCategory, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	c := &models.GalleryCategory{ShopID: shopID, IsActive: true}
	if req.DisplayOrder == nil {
		last, err := s.Repo.MaxCategoryOrder(ctx, shopID)
		if err != nil {
			return nil, err
		}
		c.DisplayOrder = last + 1
	}
	if err := s.applyCategory(c, req, cover, true); err != nil {
		return nil, err
	}
	return c, s.Repo.CreateCategory(ctx, c)
}

func (s *GalleryService) Category(ctx context.Context, u *models.User, id string) (*models.GalleryCategory, error) {
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

func (s *GalleryService) UpdateCategory(ctx context.Context, u *models.User, id string, req GalleryCategoryRequest, cover *multipart.FileHeader, full bool) (*models.GalleryCategory, error) {
	c, err := s.Category(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyCategory(c, req, cover, full); err != nil {
		return nil, err
	}
	return c, s.Repo.SaveCategory(ctx, c)
}

func (s *GalleryService) DeleteCategory(ctx context.Context, u *models.User, id string) error {
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

func (s *GalleryService) Categories(ctx context.Context, u *models.User) ([]models.GalleryCategory, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	return s.Repo.ListCategories(ctx, shopID, false)
}

func (s *GalleryService) ReorderCategories(ctx context.Context, u *models.User, req ReorderRequest) error {
	shopID, err := shopOf(u)
	if err != nil {
		return err
	}
	return s.Repo.ReorderCategories(ctx, shopID, req.positions())
}

func (s *GalleryService) ToggleCategory(ctx context.Context, u *models.User, id string) (*models.GalleryCategory, error) {
	c, err := s.Category(ctx, u, id)
	if err != nil {
		return nil, err
	}
	c.IsActive = !c.IsActive
	return c, s.Repo.SaveCategory(ctx, c)
}

func (s *GalleryService) applyCategory(c *models.GalleryCategory, req GalleryCategoryRequest, cover *multipart.FileHeader, requireAll bool) error {
	if req.Name != nil || requireAll {
		name := ""
		if req.Name != nil {
			name = strings.TrimSpace(*req.Name)
		}
		if name == "" {
			return apperr.Invalid("name", "This field is required.")
		}
		c.Name = name
	}
	setString(&c.Description, req.Description)
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if req.DisplayOrder != nil {
		c.DisplayOrder = *req.DisplayOrder
	}
	if cover != nil {
		p, err := s.Media.SaveImage(cover, "gallery/categories")
		if err != nil {
			return apperr.Invalid("cover_image", errorMessage(err))
		}
		if c.CoverImage != "" {
			_ = s.Media.Remove(c.CoverImage)
		}
		c.CoverImage = p
	}
	return nil
}

func (s *GalleryService) CreateItem(ctx context.Context, u *models.User, req GalleryItemRequest) (*models.GalleryItem, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	it := &models.GalleryItem{
		ShopID:             shopID,
		AvailabilityStatus: models.AvailabilityAvailable,
		IsPublished:        true,
		Images:             []models.GalleryImage{},
	}
	if err := s.applyItem(ctx, it, req, true); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateItem(ctx, it); err != nil {
		return nil, err
	}
	it.FillCategory()
	return it, nil
}

func (s *GalleryService) Item(ctx context.Context, u *models.User, id string) (*models.GalleryItem, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	iid, err := parseID("gallery item", id)
	if err != nil {
		return nil, err
	}
	return s.Repo.GetItem(ctx, shopID, iid)
}

func (s *GalleryService) UpdateItem(ctx context.Context, u *models.User, id string, req GalleryItemRequest, full bool) (*models.GalleryItem, error) {
	it, err := s.Item(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyItem(ctx, it, req, full); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveItem(ctx, it); err != nil {
		return nil, err
	}
	it.FillCategory()
	return it, nil
}

// DeleteItem soft-deletes the item. Its image files stay on disk.
func (s *GalleryService) DeleteItem(ctx context.Context, u *models.User, id string) error {
	shopID, err := shopOf(u)
	if err != nil {
		return err
	}
	iid, err := parseID("gallery item", id)
	if err != nil {
		return err
	}
	return s.Repo.DeleteItem(ctx, shopID, iid)
}

type GalleryQuery struct {
	Category    string
	IsPublished *bool
	IsFeatured  *bool
}

func (s *GalleryService) Items(ctx context.Context, u *models.User, q GalleryQuery, p repository.PageRequest) (repository.Page[models.GalleryItem], error) {
	shopID, err := shopOf(u)
	if err != nil {
		return repository.Page[models.GalleryItem]{}, err
	}
	cid, err := parseOptionalID("category", q.Category)
	if err != nil {
		return repository.Page[models.GalleryItem]{}, err
	}
	f := repository.GalleryFilter{CategoryID: cid, IsPublished: q.IsPublished, IsFeatured: q.IsFeatured}
	return s.Repo.ListItems(ctx, shopID, f, p)
}

func (s *GalleryService) ToggleFeatured(ctx context.Context, u *models.User, id string) (*models.GalleryItem, error) {
	return s.toggle(ctx, u, id, func(it *models.GalleryItem) { it.IsFeatured = !it.IsFeatured })
}

func (s *GalleryService) TogglePublished(ctx context.Context, u *models.User, id string) (*models.GalleryItem, error) {
	return s.toggle(ctx, u, id, func(it *models.GalleryItem) { it.IsPublished = !it.IsPublished })
}

func (s *GalleryService) toggle(ctx context.Context, u *models.User, id string, flip func(*models.GalleryItem)) (*models.GalleryItem, error) {
	it, err := s.Item(ctx, u, id)
	if err != nil {
		return nil, err
	}
	flip(it)
	return it, s.Repo.SaveItem(ctx, it)
}

func (s *GalleryService) applyItem(ctx context.Context, it *models.GalleryItem, req GalleryItemRequest, requireAll bool) error {
	verr := &apperr.Validation{}
	if req.Title != nil || requireAll {
		title := ""
		if req.Title != nil {
			title = strings.TrimSpace(*req.Title)
		}
		if title == "" {
			verr.Add("title", "This field is required.")
		}
		it.Title = title
	}
	setString(&it.Description, req.Description)
	if req.Price != nil {
		if req.Price.IsNegative() {
			verr.Add("price", "Ensure this value is greater than or equal to 0.")
		}
		it.Price = decimal.Ptr(*req.Price)
	}
	if req.AvailabilityStatus != nil {
		if !req.AvailabilityStatus.Valid() {
			verr.Add("availability_status", fmt.Sprintf("%q is not a valid choice.", *req.AvailabilityStatus))
		}
		it.AvailabilityStatus = *req.AvailabilityStatus
	}
	if req.IsFeatured != nil {
		it.IsFeatured = *req.IsFeatured
	}
	if req.IsPublished != nil {
		it.IsPublished = *req.IsPublished
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

// AddImages stores up to MaxImagesPerItem images on an item. Files already
// written are removed again when a later one fails.
func (s *GalleryService) AddImages(ctx context.Context, u *models.User, id string, files []*multipart.FileHeader) (*models.GalleryItem, error) {
	it, err := s.Item(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperr.BadRequest("No images provided")
	}
	if len(it.Images)+len(files) > models.MaxImagesPerItem {
		return nil, apperr.BadRequest(fmt.Sprintf("Maximum %d images allowed per item", models.MaxImagesPerItem))
	}
	n, err := s.Repo.CountShopImages(ctx, it.ShopID)
	if err != nil {
		return nil, err
	}
	if err := s.Limits.Enforce(ctx, u, models.ResourceGallery, n+int64(len(files))-1); err != nil {
		return nil, err
	}

	next := 0
	for _, img := range it.Images {
		if img.DisplayOrder >= next {
			next = img.DisplayOrder + 1
		}
	}
	imgs := make([]models.GalleryImage, 0, len(files))
	cleanup := func() {
		for _, img := range imgs {
			_ = s.Media.Remove(img.Image)
		}
	}
	for _, fh := range files {
		p, err := s.Media.SaveImage(fh, "gallery/items")
		if err != nil {
			cleanup()
			return nil, apperr.Invalid("images", fmt.Sprintf("%s: %s", fh.Filename, errorMessage(err)))
		}
		imgs = append(imgs, models.GalleryImage{GalleryItemID: it.ID, Image: p, DisplayOrder: next})
		next++
	}
	if err := s.Repo.AddImages(ctx, imgs); err != nil {
		cleanup()
		return nil, err
	}
	return s.Repo.GetItem(ctx, it.ShopID, it.ID)
}

func (s *GalleryService) ReorderImages(ctx context.Context, u *models.User, id string, req ReorderRequest) (*models.GalleryItem, error) {
	it, err := s.Item(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.ReorderImages(ctx, it.ID, req.positions()); err != nil {
		return nil, err
	}
	return s.Repo.GetItem(ctx, it.ShopID, it.ID)
}

func (s *GalleryService) DeleteImage(ctx context.Context, u *models.User, id, imageID string) error {
	it, err := s.Item(ctx, u, id)
	if err != nil {
		return err
	}
	imgID, err := parseID("image", imageID)
	if err != nil {
		return err
	}
	img, err := s.Repo.DeleteImage(ctx, it.ID, imgID)
	if err != nil {
		return err
	}
	if err := s.Media.Remove(img.Image); err != nil {
		s.Log.Ctx(ctx).Error("gallery_image_remove", err, map[string]any{"path": img.Image})
	}
	return nil
}

// Settings returns the shop's gallery settings, creating the defaults on
// first access.
func (s *GalleryService) Settings(ctx context.Context, u *models.User) (*models.GallerySettings, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	st, err := s.Repo.Settings(ctx, shopID)
	if err == nil {
		return st, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}
	shop, err := s.Shops.Get(ctx, shopID)
	if err != nil {
		return nil, err
	}
	st = models.NewGallerySettings(shopID, shop.PhoneNumber)
	return st, s.Repo.SaveSettings(ctx, st)
}

func (s *GalleryService) UpdateSettings(ctx context.Context, u *models.User, req GallerySettingsRequest) (*models.GallerySettings, error) {
	st, err := s.Settings(ctx, u)
	if err != nil {
		return nil, err
	}
	if req.IsPublicEnabled != nil {
		st.IsPublicEnabled = *req.IsPublicEnabled
	}
	if req.ShowPrices != nil {
		st.ShowPrices = *req.ShowPrices
	}
	setString(&st.WhatsAppNumber, req.WhatsAppNumber)
	if req.EnquiryMessageTemplate != nil {
		st.EnquiryMessageTemplate = *req.EnquiryMessageTemplate
	}
	if req.PublicCategoryIDs != nil {
		st.PublicCategoryIDs = *req.PublicCategoryIDs
	}
	if req.AccessPassword != nil {
		if *req.AccessPassword == "" {
			st.AccessPasswordHash = ""
		} else {
			h, err := bcrypt.GenerateFromPassword([]byte(*req.AccessPassword), bcrypt.DefaultCost)
			if err != nil {
				return nil, err
			}
			st.AccessPasswordHash = string(h)
		}
	}
	return st, s.Repo.SaveSettings(ctx, st)
}

func (s *GalleryService) Analytics(ctx context.Context, u *models.User) ([]models.GalleryAnalytics, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	return s.Repo.Analytics(ctx, shopID, models.Date{})
}

func (s *GalleryService) AnalyticsSummary(ctx context.Context, u *models.User) (*AnalyticsSummary, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	from := models.NewDate(s.Now()).AddDays(-analyticsWindowDays)
	rows, err := s.Repo.Analytics(ctx, shopID, from)
	if err != nil {
		return nil, err
	}
	sum := &AnalyticsSummary{DailyBreakdown: make([]DailyViews, 0, len(rows))}
	for _, r := range rows {
		sum.TotalViews += r.TotalViews
		sum.TotalUniqueVisitors += r.UniqueVisitors
		sum.DailyBreakdown = append(sum.DailyBreakdown, DailyViews{Date: r.Date, Views: r.TotalViews, UniqueVisitors: r.UniqueVisitors})
	}
	return sum, nil
}

// publicSettings loads the shop and its settings for an anonymous visitor.
// A shop that never saved settings is shown with the defaults.
func (s *GalleryService) publicSettings(ctx context.Context, shopID, password string) (*models.Shop, *models.GallerySettings, error) {
	sid, err := parseID("shop", shopID)
	if err != nil {
		return nil, nil, err
	}
	shop, err := s.Shops.Get(ctx, sid)
	if err != nil {
		return nil, nil, err
	}
	st, err := s.Repo.Settings(ctx, sid)
	switch {
	case apperr.IsNotFound(err):
		st = models.NewGallerySettings(sid, shop.PhoneNumber)
	case err != nil:
		return nil, nil, err
	}
	if !st.IsPublicEnabled {
		return nil, nil, apperr.Forbidden("Gallery is not publicly available")
	}
	if st.AccessPasswordHash != "" {
		if password == "" {
			return nil, nil, passwordRequired("Password required")
		}
		if bcrypt.CompareHashAndPassword([]byte(st.AccessPasswordHash), []byte(password)) != nil {
			return nil, nil, passwordRequired("Invalid gallery password")
		}
	}
	return shop, st, nil
}

// passwordRequired tells the client to prompt for the gallery password.
func passwordRequired(msg string) error {
	return &apperr.Status{Code: http.StatusUnauthorized, Msg: msg, Details: map[string]any{"password_required": true}}
}

func (s *GalleryService) Public(ctx context.Context, req PublicRequest) (*PublicGallery, error) {
	shop, st, err := s.publicSettings(ctx, req.ShopID, req.Password)
	if err != nil {
		return nil, err
	}
	cid, err := parseOptionalID("category", req.Category)
	if err != nil {
		return nil, err
	}
	cats, err := s.Repo.ListCategories(ctx, shop.ID, true)
	if err != nil {
		return nil, err
	}
	published := true
	page, err := s.Repo.ListItems(ctx, shop.ID, repository.GalleryFilter{CategoryID: cid, IsPublished: &published},
		repository.PageRequest{Page: 1, PageSize: repository.MaxPageSize})
	if err != nil {
		return nil, err
	}

	out := &PublicGallery{
		ShopName:               shop.ShopName,
		ShopLogo:               optional(shop.LogoPath),
		WhatsAppNumber:         st.WhatsAppNumber,
		EnquiryMessageTemplate: st.EnquiryMessageTemplate,
		ShowPrices:             st.ShowPrices,
		Categories:             []PublicCategory{},
		Items:                  make([]PublicItem, 0, len(page.Results)),
	}
	for _, c := range cats {
		if !st.CategoryVisible(c.ID) {
			continue
		}
		out.Categories = append(out.Categories, PublicCategory{
			ID: c.ID, Name: c.Name, Description: c.Description,
			CoverImage: optional(c.CoverImage), ItemsCount: c.ItemsCount,
		})
	}
	for i := range page.Results {
		out.Items = append(out.Items, publicItem(&page.Results[i], st.ShowPrices))
	}

	err = s.Repo.Track(ctx, shop.ID, models.NewDate(s.Now()), func(a *models.GalleryAnalytics) {
		a.TotalViews++
		if req.NewVisitor {
			a.UniqueVisitors++
		}
		if cid != nil {
			a.CategoryViews[cid.String()]++
		}
	})
	if err != nil {
		s.Log.Ctx(ctx).Error("gallery_track", err, map[string]any{"shop_id": shop.ID.String()})
	}
	return out, nil
}

func (s *GalleryService) PublicItem(ctx context.Context, shopID, itemID, password string) (*PublicItem, error) {
	shop, st, err := s.publicSettings(ctx, shopID, password)
	if err != nil {
		return nil, err
	}
	iid, err := parseID("gallery item", itemID)
	if err != nil {
		return nil, err
	}
	it, err := s.Repo.GetItem(ctx, shop.ID, iid)
	if err != nil {
		return nil, err
	}
	if !it.IsPublished {
		return nil, apperr.NewNotFound("gallery item", itemID)
	}
	err = s.Repo.Track(ctx, shop.ID, models.NewDate(s.Now()), func(a *models.GalleryAnalytics) {
		a.ItemViews[iid.String()]++
	})
	if err != nil {
		s.Log.Ctx(ctx).Error("gallery_track", err, map[string]any{"shop_id": shop.ID.String()})
	}
	pi := publicItem(it, st.ShowPrices)
	return &pi, nil
}

func publicItem(it *models.GalleryItem, showPrices bool) PublicItem {
	it.FillCategory()
	pi := PublicItem{
		ID:                 it.ID,
		Category:           it.CategoryID,
		CategoryName:       it.CategoryName,
		Title:              it.Title,
		Description:        it.Description,
		AvailabilityStatus: it.AvailabilityStatus,
		IsFeatured:         it.IsFeatured,
		Images:             it.Images,
	}
	if pi.Images == nil {
		pi.Images = []models.GalleryImage{}
	}
	if showPrices && it.Price != nil && !it.Price.IsZero() {
		pi.Price = it.Price
	}
	if len(it.Images) > 0 {
		pi.PrimaryImage = &it.Images[0].Image
	}
	return pi
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
