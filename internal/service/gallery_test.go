package service

import (
	"context"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/models"
)

type galleryFixture struct {
	shop    *models.Shop
	user    *models.User
	gallery *fakeGallery
	media   *fakeMedia
	limits  *fakeLimits
	svc     *GalleryService
}

func newGalleryFixture() *galleryFixture {
	shop := models.NewShop("Stitch Studio")
	shop.ID = uuid.New()
	shop.PhoneNumber = "9876543210"
	g := newFakeGallery()
	media := &fakeMedia{}
	limits := &fakeLimits{}
	return &galleryFixture{
		shop: shop, user: ownerIn(shop.ID), gallery: g, media: media, limits: limits,
		svc: &GalleryService{Repo: g, Shops: newFakeShops(shop), Media: media, Limits: limits, Log: quietLog(), Now: fixedNow},
	}
}

func (f *galleryFixture) item(published bool, orders ...int) *models.GalleryItem {
	it := &models.GalleryItem{ShopID: f.shop.ID, Title: "Kanjivaram blouse", IsPublished: published,
		AvailabilityStatus: models.AvailabilityAvailable, Price: money("1800")}
	it.ID = uuid.New()
	for _, o := range orders {
		it.Images = append(it.Images, models.GalleryImage{GalleryItemID: it.ID, Image: "gallery/items/old.jpg", DisplayOrder: o})
	}
	f.gallery.items[it.ID] = it
	return it
}

func uploads(names ...string) []*multipart.FileHeader {
	out := make([]*multipart.FileHeader, len(names))
	for i, n := range names {
		out[i] = &multipart.FileHeader{Filename: n}
	}
	return out
}

func TestAddImagesCapsItemAtTen(t *testing.T) {
	f := newGalleryFixture()
	it := f.item(true, 0, 1, 2, 3, 4, 5, 6, 7, 8)

	_, err := f.svc.AddImages(context.Background(), f.user, it.ID.String(), uploads("a.jpg", "b.jpg"))
	st := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, st.Code)
	assert.Equal(t, "Maximum 10 images allowed per item", st.Msg)
	assert.Empty(t, f.media.saved)

	got, err := f.svc.AddImages(context.Background(), f.user, it.ID.String(), uploads("a.jpg"))
	require.NoError(t, err)
	assert.Len(t, got.Images, models.MaxImagesPerItem)
}

func TestAddImagesAppendsAfterExisting(t *testing.T) {
	f := newGalleryFixture()
	it := f.item(true, 0, 3)
	f.gallery.shopImages = 4

	got, err := f.svc.AddImages(context.Background(), f.user, it.ID.String(), uploads("a.jpg", "b.jpg"))
	require.NoError(t, err)
	require.Len(t, got.Images, 4)
	assert.Equal(t, "gallery/items/a.jpg", got.Images[2].Image)
	assert.Equal(t, 4, got.Images[2].DisplayOrder)
	assert.Equal(t, 5, got.Images[3].DisplayOrder)
	assert.Equal(t, []int64{5}, f.limits.seen, "the plan check counts every new image")
}

func TestAddImagesRemovesSavedFilesOnFailure(t *testing.T) {
	f := newGalleryFixture()
	it := f.item(true)
	f.media.failOn = "b.jpg"

	_, err := f.svc.AddImages(context.Background(), f.user, it.ID.String(), uploads("a.jpg", "b.jpg"))
	assert.Equal(t, []string{"b.jpg: not a valid image"}, validationFields(t, err)["images"])
	assert.Equal(t, []string{"gallery/items/a.jpg"}, f.media.removed)
	assert.Empty(t, it.Images)
}

func TestAddImagesPlanLimit(t *testing.T) {
	f := newGalleryFixture()
	it := f.item(true)
	f.gallery.shopImages = 4
	f.limits.max = 5

	_, err := f.svc.AddImages(context.Background(), f.user, it.ID.String(), uploads("a.jpg", "b.jpg"))
	assert.Equal(t, http.StatusForbidden, statusOf(t, err).Code)
	assert.Empty(t, f.media.saved)
}

func protectGallery(t *testing.T, f *galleryFixture, password string) {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	st := models.NewGallerySettings(f.shop.ID, f.shop.PhoneNumber)
	st.AccessPasswordHash = string(h)
	f.gallery.settings[f.shop.ID] = st
}

func TestPublicGalleryPasswordGate(t *testing.T) {
	tests := []struct {
		name     string
		password string
		msg      string
	}{
		{"missing", "", "Password required"},
		{"wrong", "guess", "Invalid gallery password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGalleryFixture()
			protectGallery(t, f, "silk-2025")

			_, err := f.svc.Public(context.Background(), PublicRequest{ShopID: f.shop.ID.String(), Password: tt.password})
			st := statusOf(t, err)
			assert.Equal(t, http.StatusUnauthorized, st.Code)
			assert.Equal(t, tt.msg, st.Msg)
			assert.Equal(t, true, st.Details["password_required"])
			assert.Nil(t, f.gallery.tracked, "rejected visits are not counted")
		})
	}

	f := newGalleryFixture()
	protectGallery(t, f, "silk-2025")
	f.item(true)
	out, err := f.svc.Public(context.Background(), PublicRequest{ShopID: f.shop.ID.String(), Password: "silk-2025"})
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)
}

func TestPublicGalleryDisabled(t *testing.T) {
	f := newGalleryFixture()
	st := models.NewGallerySettings(f.shop.ID, "")
	st.IsPublicEnabled = false
	f.gallery.settings[f.shop.ID] = st

	_, err := f.svc.Public(context.Background(), PublicRequest{ShopID: f.shop.ID.String()})
	assert.Equal(t, http.StatusForbidden, statusOf(t, err).Code)
}

func TestPublicGalleryTracksVisits(t *testing.T) {
	f := newGalleryFixture()
	shown := f.item(true)
	f.item(false)
	cat := uuid.New()

	out, err := f.svc.Public(context.Background(), PublicRequest{ShopID: f.shop.ID.String(), Category: cat.String(), NewVisitor: true})
	require.NoError(t, err)
	assert.Equal(t, "9876543210", out.WhatsAppNumber, "defaults apply before settings are saved")
	require.Len(t, out.Items, 1)
	assert.Equal(t, shown.ID, out.Items[0].ID)
	require.NotNil(t, out.Items[0].Price)
	assert.Equal(t, "1800.00", out.Items[0].Price.String())

	require.NotNil(t, f.gallery.tracked)
	assert.Equal(t, "2025-03-15", f.gallery.tracked.Date.String())
	assert.Equal(t, 1, f.gallery.tracked.TotalViews)
	assert.Equal(t, 1, f.gallery.tracked.UniqueVisitors)
	assert.Equal(t, 1, f.gallery.tracked.CategoryViews[cat.String()])

	_, err = f.svc.Public(context.Background(), PublicRequest{ShopID: f.shop.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, 2, f.gallery.tracked.TotalViews)
	assert.Equal(t, 1, f.gallery.tracked.UniqueVisitors, "returning visitors are not unique")
}

func TestPublicItemHidesPricesAndDrafts(t *testing.T) {
	f := newGalleryFixture()
	st := models.NewGallerySettings(f.shop.ID, f.shop.PhoneNumber)
	st.ShowPrices = false
	f.gallery.settings[f.shop.ID] = st
	shown := f.item(true)
	draft := f.item(false)

	pi, err := f.svc.PublicItem(context.Background(), f.shop.ID.String(), shown.ID.String(), "")
	require.NoError(t, err)
	assert.Nil(t, pi.Price)
	assert.Equal(t, 1, f.gallery.tracked.ItemViews[shown.ID.String()])

	_, err = f.svc.PublicItem(context.Background(), f.shop.ID.String(), draft.ID.String(), "")
	assert.True(t, apperr.IsNotFound(err))
}

func TestGalleryAnalyticsSummary(t *testing.T) {
	f := newGalleryFixture()
	f.gallery.analytics = []models.GalleryAnalytics{
		{Date: models.NewDate(testNow), TotalViews: 12, UniqueVisitors: 5},
		{Date: models.NewDate(testNow).AddDays(-1), TotalViews: 8, UniqueVisitors: 3},
	}

	sum, err := f.svc.AnalyticsSummary(context.Background(), f.user)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-13", f.gallery.from.String(), "summary covers the last 30 days")
	assert.Equal(t, 20, sum.TotalViews)
	assert.Equal(t, 8, sum.TotalUniqueVisitors)
	require.Len(t, sum.DailyBreakdown, 2)
	assert.Equal(t, 12, sum.DailyBreakdown[0].Views)
}
