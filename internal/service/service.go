// Package service holds the shop business rules. Every operation runs on
// behalf of a user and is scoped to that user's shop.
package service

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/google/uuid"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/events"
	"stitchdesk/internal/logger"
	"stitchdesk/internal/models"
	"stitchdesk/internal/notify"
	"stitchdesk/internal/razorpay"
	"stitchdesk/internal/repository"
)

// MediaStore keeps uploaded images. *media.Store satisfies it.
type MediaStore interface {
	SaveImage(fh *multipart.FileHeader, dir string) (string, error)
	Remove(path string) error
}

// Gateway is the subset of the payment gateway the billing flow calls.
type Gateway interface {
	KeyID() string
	CreateCustomer(ctx context.Context, name, email, contact string) (*razorpay.Customer, error)
	CreateSubscription(ctx context.Context, planID, customerID string, totalCount int, notes map[string]string) (*razorpay.Subscription, error)
	CancelSubscription(ctx context.Context, id string) (*razorpay.Subscription, error)
	VerifyPaymentSignature(paymentID, subscriptionID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

// DocumentRenderer turns a quotation document into a PDF.
type DocumentRenderer interface {
	QuotationPDF(q *models.Quotation, shop *models.Shop) ([]byte, error)
}

type Deps struct {
	Users         repository.UserRepository
	Shops         repository.ShopRepository
	Customers     repository.CustomerRepository
	Measurements  repository.MeasurementRepository
	Orders        repository.OrderRepository
	Invoices      repository.InvoiceRepository
	Quotations    repository.QuotationRepository
	Catalog       repository.CatalogRepository
	Inventory     repository.InventoryRepository
	Gallery       repository.GalleryRepository
	Subscriptions repository.SubscriptionRepository

	Media    MediaStore
	Mailer   notify.Sender
	Events   events.Emitter
	Gateway  Gateway
	Renderer DocumentRenderer
	Log      *logger.Logger

	TrialDays     int
	Grace         time.Duration
	PublicBaseURL string
	Now           func() time.Time
}

// Services is what the HTTP layer talks to.
type Services struct {
	Auth          *AuthService
	Settings      *SettingsService
	Customers     *CustomerService
	Measurements  *MeasurementService
	Orders        *OrderService
	Invoices      *InvoiceService
	Quotations    *QuotationService
	Inventory     *InventoryService
	Gallery       *GalleryService
	Subscriptions *SubscriptionService
	Admin         *AdminService
}

func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Log == nil {
		d.Log = logger.New("service")
	}
	subs := &SubscriptionService{
		Subs: d.Subscriptions, Users: d.Users, Gateway: d.Gateway, Events: d.Events,
		Log: d.Log, Grace: d.Grace, Now: d.Now,
		Counts: repoCounter{
			customers: d.Customers, orders: d.Orders, gallery: d.Gallery,
			inventory: d.Inventory, users: d.Users, now: d.Now,
		}.Count,
	}
	return &Services{
		Auth: &AuthService{
			Users: d.Users, Mailer: d.Mailer, Log: d.Log, TrialDays: d.TrialDays, Now: d.Now,
		},
		Settings: &SettingsService{
			Users: d.Users, Shops: d.Shops, Media: d.Media, Limits: subs,
		},
		Customers: &CustomerService{Customers: d.Customers, Limits: subs},
		Measurements: &MeasurementService{
			Repo: d.Measurements, Customers: d.Customers, Media: d.Media,
		},
		Orders: &OrderService{
			Orders: d.Orders, Customers: d.Customers, Measurements: d.Measurements,
			Shops: d.Shops, Limits: subs, Events: d.Events, Now: d.Now,
		},
		Invoices: &InvoiceService{
			Invoices: d.Invoices, Orders: d.Orders, Customers: d.Customers, Shops: d.Shops, Now: d.Now,
		},
		Quotations: &QuotationService{
			Quotations: d.Quotations, Catalog: d.Catalog, Users: d.Users, Shops: d.Shops,
			Renderer: d.Renderer, PublicBaseURL: d.PublicBaseURL, Now: d.Now,
		},
		Inventory: &InventoryService{
			Repo: d.Inventory, Orders: d.Orders, Limits: subs, Events: d.Events, Log: d.Log,
		},
		Gallery: &GalleryService{
			Repo: d.Gallery, Shops: d.Shops, Media: d.Media, Limits: subs, Log: d.Log, Now: d.Now,
		},
		Subscriptions: subs,
		Admin: &AdminService{
			Subs: d.Subscriptions, Users: d.Users, Shops: d.Shops, TrialDays: d.TrialDays, Now: d.Now,
		},
	}
}

// shopOf returns the shop the user works in.
func shopOf(u *models.User) (uuid.UUID, error) {
	if u == nil || u.ShopID == nil {
		return uuid.Nil, apperr.Forbidden("User has no shop")
	}
	return *u.ShopID, nil
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// parseID treats a malformed id like a missing record.
func parseID(resource, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperr.NewNotFound(resource, s)
	}
	return id, nil
}

// parseOptionalID reads an id filter; empty means unset.
func parseOptionalID(field, s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, apperr.Invalid(field, "Must be a valid UUID.")
	}
	return &id, nil
}
