package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sync"
	"time"

	"github.com/google/uuid"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/logger"
	"stitchdesk/internal/models"
	"stitchdesk/internal/notify"
	"stitchdesk/internal/razorpay"
	"stitchdesk/internal/repository"
)

// The fakes embed the repository interface; calling a method a test did
// not expect panics on the nil embedded value.

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func quietLog() *logger.Logger { return logger.NewWriter("test", io.Discard) }

func ownerIn(shopID uuid.UUID) *models.User {
	return &models.User{ID: 1, Email: "owner@example.com", Name: "Owner", Role: models.RoleOwner, ShopID: &shopID}
}

type emitted struct {
	Name    string
	Payload map[string]any
}

type recordingEmitter struct {
	mu  sync.Mutex
	got []emitted
}

func (r *recordingEmitter) Emit(_ context.Context, name string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, emitted{Name: name, Payload: payload})
}

func (r *recordingEmitter) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.got))
	for i, e := range r.got {
		out[i] = e.Name
	}
	return out
}

type fakeSubs struct {
	repository.SubscriptionRepository
	plans    map[uint]*models.Plan
	byUser   map[uint]*models.Subscription
	payments []*models.Payment
	saved    int
}

func newFakeSubs() *fakeSubs {
	return &fakeSubs{plans: map[uint]*models.Plan{}, byUser: map[uint]*models.Subscription{}}
}

func (f *fakeSubs) Plan(_ context.Context, id uint) (*models.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, apperr.NewNotFound("plan", id)
	}
	return p, nil
}

func (f *fakeSubs) ByUser(_ context.Context, userID uint) (*models.Subscription, error) {
	s, ok := f.byUser[userID]
	if !ok {
		return nil, apperr.NewNotFound("subscription", userID)
	}
	return s, nil
}

func (f *fakeSubs) ByGatewayID(_ context.Context, id string) (*models.Subscription, error) {
	for _, s := range f.byUser {
		if s.RazorpaySubscriptionID == id {
			return s, nil
		}
	}
	return nil, apperr.NewNotFound("subscription", id)
}

func (f *fakeSubs) Save(_ context.Context, s *models.Subscription) error {
	f.byUser[s.UserID] = s
	f.saved++
	return nil
}

func (f *fakeSubs) CreatePayment(_ context.Context, p *models.Payment) error {
	p.ID = uint(len(f.payments) + 1)
	f.payments = append(f.payments, p)
	return nil
}

func (f *fakeSubs) SavePayment(_ context.Context, p *models.Payment) error { return nil }

func (f *fakeSubs) PendingPayment(_ context.Context, subID uint) (*models.Payment, error) {
	for i := len(f.payments) - 1; i >= 0; i-- {
		if p := f.payments[i]; p.SubscriptionID == subID && p.Status == models.PayPending {
			return p, nil
		}
	}
	return nil, apperr.NewNotFound("payment", subID)
}

func (f *fakeSubs) ExpireDue(_ context.Context, now time.Time) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range f.byUser {
		if (s.Status == models.SubActive || s.Status == models.SubCancelled) && s.EndDate != nil && s.EndDate.Before(now) {
			s.Status = models.SubExpired
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeUsers struct {
	repository.UserRepository
	byID    map[uint]*models.User
	owners  map[uuid.UUID]*models.User
	nextID  uint
	created []*models.Subscription
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uint]*models.User{}, owners: map[uuid.UUID]*models.User{}, nextID: 100}
}

func (f *fakeUsers) ShopOwner(_ context.Context, shopID uuid.UUID) (*models.User, error) {
	u, ok := f.owners[shopID]
	if !ok {
		return nil, apperr.NewNotFound("user", shopID)
	}
	return u, nil
}

func (f *fakeUsers) EmailTaken(_ context.Context, email string) (bool, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) Register(_ context.Context, shop *models.Shop, u *models.User, _ []models.PaymentMethod, sub *models.Subscription) error {
	if shop.ID == uuid.Nil {
		shop.ID = uuid.New()
	}
	f.nextID++
	u.ID = f.nextID
	u.ShopID = &shop.ID
	f.byID[u.ID] = u
	if sub != nil {
		sub.UserID = u.ID
		f.created = append(f.created, sub)
	}
	return nil
}

func (f *fakeUsers) Save(_ context.Context, u *models.User) error {
	f.byID[u.ID] = u
	return nil
}

type fakeGateway struct {
	validSig  bool
	cancelErr error
	created   []string
	cancelled []string
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) CreateCustomer(_ context.Context, name, email, _ string) (*razorpay.Customer, error) {
	return &razorpay.Customer{ID: "cust_1", Name: name, Email: email}, nil
}

func (g *fakeGateway) CreateSubscription(_ context.Context, planID, customerID string, _ int, _ map[string]string) (*razorpay.Subscription, error) {
	g.created = append(g.created, planID)
	return &razorpay.Subscription{ID: "sub_gw_1", PlanID: planID, CustomerID: customerID, Status: "created"}, nil
}

func (g *fakeGateway) CancelSubscription(_ context.Context, id string) (*razorpay.Subscription, error) {
	if g.cancelErr != nil {
		return nil, g.cancelErr
	}
	g.cancelled = append(g.cancelled, id)
	return &razorpay.Subscription{ID: id, Status: "cancelled"}, nil
}

func (g *fakeGateway) VerifyPaymentSignature(_, _, _ string) bool { return g.validSig }

func (g *fakeGateway) VerifyWebhookSignature(_ []byte, _ string) bool { return g.validSig }

// numberSeries mimics the unique index on document numbers. Each pending
// conflict fails one insert and takes its number, as a concurrent request
// would.
type numberSeries struct {
	last      string
	conflicts int
	keys      []string
	tried     []string
}

func (n *numberSeries) lastNumber(key string) (string, error) {
	n.keys = append(n.keys, key)
	return n.last, nil
}

func (n *numberSeries) insert(number string) error {
	n.tried = append(n.tried, number)
	n.last = number
	if n.conflicts > 0 {
		n.conflicts--
		return apperr.Conflict("number already exists")
	}
	return nil
}

type fakeOrders struct {
	repository.OrderRepository
	orders  map[uuid.UUID]*models.Order
	series  numberSeries
	count   int64
	updates []bool
}

func (f *fakeOrders) Get(_ context.Context, shopID, id uuid.UUID) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok || o.ShopID != shopID {
		return nil, apperr.NewNotFound("order", id)
	}
	return o, nil
}

func (f *fakeOrders) CountSince(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	return f.count, nil
}

func (f *fakeOrders) LastNumber(_ context.Context, _ uuid.UUID, prefix string) (string, error) {
	return f.series.lastNumber(prefix)
}

func (f *fakeOrders) Create(_ context.Context, o *models.Order) error {
	if err := f.series.insert(o.OrderNumber); err != nil {
		return err
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	f.orders[o.ID] = o
	return nil
}

func (f *fakeOrders) Update(_ context.Context, o *models.Order, replaceItems bool) error {
	f.updates = append(f.updates, replaceItems)
	f.orders[o.ID] = o
	return nil
}

type fakeShops struct {
	repository.ShopRepository
	shops map[uuid.UUID]*models.Shop
}

func newFakeShops(shops ...*models.Shop) *fakeShops {
	f := &fakeShops{shops: map[uuid.UUID]*models.Shop{}}
	for _, s := range shops {
		f.shops[s.ID] = s
	}
	return f
}

func (f *fakeShops) Get(_ context.Context, id uuid.UUID) (*models.Shop, error) {
	s, ok := f.shops[id]
	if !ok {
		return nil, apperr.NewNotFound("shop", id)
	}
	return s, nil
}

type fakeCustomers struct {
	repository.CustomerRepository
	byID    map[uuid.UUID]*models.Customer
	saved   int
	deleted []uuid.UUID
}

func newFakeCustomers(cs ...*models.Customer) *fakeCustomers {
	f := &fakeCustomers{byID: map[uuid.UUID]*models.Customer{}}
	for _, c := range cs {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCustomers) Create(_ context.Context, c *models.Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCustomers) Get(_ context.Context, shopID, id uuid.UUID) (*models.Customer, error) {
	c, ok := f.byID[id]
	if !ok || c.ShopID != shopID {
		return nil, apperr.NewNotFound("customer", id)
	}
	return c, nil
}

func (f *fakeCustomers) Save(_ context.Context, c *models.Customer) error {
	f.byID[c.ID] = c
	f.saved++
	return nil
}

func (f *fakeCustomers) Delete(_ context.Context, shopID, id uuid.UUID) error {
	c, ok := f.byID[id]
	if !ok || c.ShopID != shopID {
		return apperr.NewNotFound("customer", id)
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCustomers) Count(_ context.Context, shopID uuid.UUID) (int64, error) {
	var n int64
	for _, c := range f.byID {
		if c.ShopID == shopID {
			n++
		}
	}
	return n, nil
}

type fakeMeasurements struct {
	repository.MeasurementRepository
	templates map[uuid.UUID]*models.MeasurementTemplate
	byID      map[uuid.UUID]*models.Measurement
	saved     int
}

func newFakeMeasurements(ts ...*models.MeasurementTemplate) *fakeMeasurements {
	f := &fakeMeasurements{templates: map[uuid.UUID]*models.MeasurementTemplate{}, byID: map[uuid.UUID]*models.Measurement{}}
	for _, t := range ts {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		f.templates[t.ID] = t
	}
	return f
}

func (f *fakeMeasurements) GetTemplate(_ context.Context, shopID, id uuid.UUID) (*models.MeasurementTemplate, error) {
	t, ok := f.templates[id]
	if !ok || t.ShopID != shopID {
		return nil, apperr.NewNotFound("template", id)
	}
	return t, nil
}

func (f *fakeMeasurements) Create(_ context.Context, m *models.Measurement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	f.byID[m.ID] = m
	return nil
}

func (f *fakeMeasurements) Get(_ context.Context, shopID, id uuid.UUID) (*models.Measurement, error) {
	m, ok := f.byID[id]
	if !ok || m.ShopID != shopID {
		return nil, apperr.NewNotFound("measurement", id)
	}
	return m, nil
}

func (f *fakeMeasurements) Save(_ context.Context, m *models.Measurement) error {
	f.byID[m.ID] = m
	f.saved++
	return nil
}

func (f *fakeMeasurements) Delete(_ context.Context, shopID, id uuid.UUID) error {
	m, ok := f.byID[id]
	if !ok || m.ShopID != shopID {
		return apperr.NewNotFound("measurement", id)
	}
	delete(f.byID, id)
	return nil
}

type fakeInvoices struct {
	repository.InvoiceRepository
	byID    map[uuid.UUID]*models.Invoice
	series  numberSeries
	updates []bool
}

func newFakeInvoices() *fakeInvoices {
	return &fakeInvoices{byID: map[uuid.UUID]*models.Invoice{}}
}

func (f *fakeInvoices) LastNumber(_ context.Context, _ uuid.UUID, prefix string) (string, error) {
	return f.series.lastNumber(prefix)
}

func (f *fakeInvoices) Create(_ context.Context, inv *models.Invoice) error {
	if err := f.series.insert(inv.InvoiceNumber); err != nil {
		return err
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	f.byID[inv.ID] = inv
	return nil
}

func (f *fakeInvoices) Get(_ context.Context, shopID, id uuid.UUID) (*models.Invoice, error) {
	inv, ok := f.byID[id]
	if !ok || inv.ShopID != shopID {
		return nil, apperr.NewNotFound("invoice", id)
	}
	return inv, nil
}

func (f *fakeInvoices) Update(_ context.Context, inv *models.Invoice, replaceItems bool) error {
	f.updates = append(f.updates, replaceItems)
	f.byID[inv.ID] = inv
	return nil
}

type fakeQuotations struct {
	repository.QuotationRepository
	created []*models.Quotation
	series  numberSeries
}

func (f *fakeQuotations) LastNumber(_ context.Context, _ uuid.UUID, prefix string) (string, error) {
	return f.series.lastNumber(prefix)
}

func (f *fakeQuotations) Create(_ context.Context, q *models.Quotation) error {
	if err := f.series.insert(q.QuotationNo); err != nil {
		return err
	}
	f.created = append(f.created, q)
	return nil
}

// fakeLimits rejects once current reaches max; zero means unlimited.
type fakeLimits struct {
	max  int64
	seen []int64
}

func (l *fakeLimits) Enforce(_ context.Context, _ *models.User, r models.Resource, current int64) error {
	l.seen = append(l.seen, current)
	if l.max > 0 && current >= l.max {
		return apperr.PaymentRequired(fmt.Sprintf("%s limit reached", r), map[string]any{"limit_reached": true})
	}
	return nil
}

type fakeMedia struct {
	failOn  string
	saved   []string
	removed []string
}

func (m *fakeMedia) SaveImage(fh *multipart.FileHeader, dir string) (string, error) {
	if fh.Filename == m.failOn {
		return "", errors.New("not a valid image")
	}
	p := dir + "/" + fh.Filename
	m.saved = append(m.saved, p)
	return p, nil
}

func (m *fakeMedia) Remove(path string) error {
	m.removed = append(m.removed, path)
	return nil
}

type fakeGallery struct {
	repository.GalleryRepository
	items      map[uuid.UUID]*models.GalleryItem
	settings   map[uuid.UUID]*models.GallerySettings
	analytics  []models.GalleryAnalytics
	shopImages int64
	tracked    *models.GalleryAnalytics
	from       models.Date
}

func newFakeGallery() *fakeGallery {
	return &fakeGallery{items: map[uuid.UUID]*models.GalleryItem{}, settings: map[uuid.UUID]*models.GallerySettings{}}
}

func (f *fakeGallery) GetItem(_ context.Context, shopID, id uuid.UUID) (*models.GalleryItem, error) {
	it, ok := f.items[id]
	if !ok || it.ShopID != shopID {
		return nil, apperr.NewNotFound("gallery item", id)
	}
	return it, nil
}

func (f *fakeGallery) CountShopImages(_ context.Context, _ uuid.UUID) (int64, error) {
	return f.shopImages, nil
}

func (f *fakeGallery) AddImages(_ context.Context, imgs []models.GalleryImage) error {
	for _, img := range imgs {
		it := f.items[img.GalleryItemID]
		it.Images = append(it.Images, img)
	}
	f.shopImages += int64(len(imgs))
	return nil
}

func (f *fakeGallery) Settings(_ context.Context, shopID uuid.UUID) (*models.GallerySettings, error) {
	st, ok := f.settings[shopID]
	if !ok {
		return nil, apperr.NewNotFound("gallery settings", shopID)
	}
	return st, nil
}

func (f *fakeGallery) ListCategories(_ context.Context, _ uuid.UUID, _ bool) ([]models.GalleryCategory, error) {
	return nil, nil
}

func (f *fakeGallery) ListItems(_ context.Context, shopID uuid.UUID, flt repository.GalleryFilter, _ repository.PageRequest) (repository.Page[models.GalleryItem], error) {
	var out []models.GalleryItem
	for _, it := range f.items {
		if it.ShopID != shopID || (flt.IsPublished != nil && it.IsPublished != *flt.IsPublished) {
			continue
		}
		out = append(out, *it)
	}
	return repository.Page[models.GalleryItem]{Results: out, Page: 1, TotalCount: int64(len(out))}, nil
}

func (f *fakeGallery) Analytics(_ context.Context, _ uuid.UUID, from models.Date) ([]models.GalleryAnalytics, error) {
	f.from = from
	return f.analytics, nil
}

func (f *fakeGallery) Track(_ context.Context, shopID uuid.UUID, day models.Date, fn func(a *models.GalleryAnalytics)) error {
	if f.tracked == nil {
		f.tracked = &models.GalleryAnalytics{ShopID: shopID, Date: day, ItemViews: map[string]int{}, CategoryViews: map[string]int{}}
	}
	fn(f.tracked)
	return nil
}

type fakeStockTx struct{ inv *fakeInventory }

func (t fakeStockTx) CreateMaterial(m *models.OrderMaterial) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	t.inv.materials = append(t.inv.materials, m)
	return nil
}

func (t fakeStockTx) DeleteMaterial(m *models.OrderMaterial) error { return nil }

type fakeInventory struct {
	repository.InventoryRepository
	items     map[uuid.UUID]*models.InventoryItem
	history   []*models.StockHistory
	materials []*models.OrderMaterial
}

func (f *fakeInventory) Move(_ context.Context, shopID, itemID uuid.UUID, fn repository.MoveFunc) (*models.InventoryItem, error) {
	stored, ok := f.items[itemID]
	if !ok || stored.ShopID != shopID {
		return nil, apperr.NewNotFound("inventory item", itemID)
	}
	it := *stored
	h, err := fn(fakeStockTx{inv: f}, &it)
	if err != nil {
		return nil, err
	}
	*stored = it
	if h != nil {
		h.InventoryItemID = it.ID
		f.history = append(f.history, h)
	}
	it.Refresh()
	return &it, nil
}

func (f *fakeInventory) GetMaterial(_ context.Context, shopID, id uuid.UUID) (*models.OrderMaterial, error) {
	for _, m := range f.materials {
		if m.ID == id && m.ShopID == shopID {
			return m, nil
		}
	}
	return nil, apperr.NewNotFound("order material", id)
}

func (f *fakeUsers) ByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.NewNotFound("user", email)
}

func (f *fakeUsers) IssueToken(_ context.Context, userID uint) (*models.AuthToken, error) {
	return &models.AuthToken{Key: fmt.Sprintf("token-%d", userID), UserID: userID}, nil
}

func (f *fakeUsers) DeleteToken(_ context.Context, userID uint) error { return nil }

type outbox struct {
	sent []notify.Email
	err  error
}

func (o *outbox) Send(_ context.Context, e notify.Email) error {
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, e)
	return nil
}
