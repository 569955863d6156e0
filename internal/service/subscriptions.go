package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/decimal"
	"stitchdesk/internal/events"
	"stitchdesk/internal/logger"
	"stitchdesk/internal/models"
	"stitchdesk/internal/razorpay"
	"stitchdesk/internal/repository"
)

// LimitEnforcer rejects creating one more resource when the plan's cap is
// reached. current is the count before the new resource.
type LimitEnforcer interface {
	Enforce(ctx context.Context, u *models.User, r models.Resource, current int64) error
}

// SubscriptionView adds the derived access flags to a subscription.
type SubscriptionView struct {
	*models.Subscription
	DaysRemaining      int  `json:"days_remaining"`
	IsActive           bool `json:"is_active"`
	IsReadOnly         bool `json:"is_read_only"`
	HasWriteAccess     bool `json:"has_write_access"`
	GraceDaysRemaining int  `json:"grace_days_remaining"`
}

type SubscribeRequest struct {
	PlanID uint `json:"plan_id" binding:"required"`
}

type Checkout struct {
	SubscriptionID string `json:"subscription_id"`
	KeyID          string `json:"key_id"`
	CustomerID     string `json:"customer_id"`
	PlanName       string `json:"plan_name"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

type VerifyPaymentRequest struct {
	PaymentID      string `json:"razorpay_payment_id" binding:"required"`
	SubscriptionID string `json:"razorpay_subscription_id" binding:"required"`
	Signature      string `json:"razorpay_signature" binding:"required"`
	PlanID         uint   `json:"plan_id" binding:"required"`
}

type UsageLimits struct {
	Customers models.LimitCheck `json:"customers"`
	Orders    models.LimitCheck `json:"orders"`
	Gallery   models.LimitCheck `json:"gallery"`
	Inventory models.LimitCheck `json:"inventory"`
	Staff     models.LimitCheck `json:"staff"`
}

// UsageCounts is what UsageLimits compares the plan against.
type UsageCounts struct {
	Customers, OrdersThisMonth, GalleryImages, InventoryItems, Staff int64
}

type SubscriptionService struct {
	Subs    repository.SubscriptionRepository
	Users   repository.UserRepository
	Gateway Gateway
	Events  events.Emitter
	Log     *logger.Logger
	Grace   time.Duration
	Now     func() time.Time

	// Counts reports the shop's current usage for MyUsage.
	Counts UsageCounter
}

var _ LimitEnforcer = (*SubscriptionService)(nil)

// ForUser returns the subscription that governs u. Staff work under the
// shop owner's subscription.
func (s *SubscriptionService) ForUser(ctx context.Context, u *models.User) (*models.Subscription, error) {
	uid := u.ID
	if u.Role == models.RoleStaff && u.ShopID != nil {
		owner, err := s.Users.ShopOwner(ctx, *u.ShopID)
		if err != nil {
			return nil, err
		}
		uid = owner.ID
	}
	return s.Subs.ByUser(ctx, uid)
}

func (s *SubscriptionService) View(sub *models.Subscription) *SubscriptionView {
	now := s.Now()
	return &SubscriptionView{
		Subscription:       sub,
		DaysRemaining:      sub.DaysUntilExpiry(now),
		IsActive:           sub.HasAccess(now),
		IsReadOnly:         sub.IsReadOnly(now, s.Grace),
		HasWriteAccess:     sub.HasAccess(now),
		GraceDaysRemaining: sub.GraceDaysRemaining(now, s.Grace),
	}
}

// Access decides whether u may make a request with the given HTTP method.
// Active subscriptions get full access, the grace window allows reads only.
func (s *SubscriptionService) Access(ctx context.Context, u *models.User, method string) error {
	if u.IsSuperuser {
		return nil
	}
	sub, err := s.ForUser(ctx, u)
	if apperr.IsNotFound(err) {
		return apperr.PaymentRequired("No subscription found", map[string]any{
			"message": "Please contact support to activate your subscription.",
		})
	}
	if err != nil {
		return err
	}
	now := s.Now()
	if sub.HasAccess(now) {
		return nil
	}
	if !sub.HasReadAccess(now, s.Grace) {
		return apperr.PaymentRequired("Subscription expired", map[string]any{
			"message":        "Your trial or subscription has expired. Please upgrade to continue using StitchDesk.",
			"days_remaining": sub.DaysUntilExpiry(now),
		})
	}
	if safeMethod(method) {
		return nil
	}
	return apperr.PaymentRequired("Subscription is read-only", map[string]any{
		"message":              "Your subscription has expired. You can still view your data, but renew to create or edit records.",
		"read_only":            true,
		"grace_days_remaining": sub.GraceDaysRemaining(now, s.Grace),
	})
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

func (s *SubscriptionService) Enforce(ctx context.Context, u *models.User, r models.Resource, current int64) error {
	if u.IsSuperuser {
		return nil
	}
	sub, err := s.ForUser(ctx, u)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.PaymentRequired("No subscription found", nil)
		}
		return err
	}
	chk := sub.CheckUsageLimit(r, int(current))
	if chk.Allowed {
		return nil
	}
	return apperr.PaymentRequired(fmt.Sprintf("You have reached the %s limit of your plan. Please upgrade to add more.", r), map[string]any{
		"allowed": false,
		"limit":   chk.Limit,
		"current": chk.Current,
	})
}

func (s *SubscriptionService) Usage(ctx context.Context, u *models.User, c UsageCounts) (*UsageLimits, error) {
	sub, err := s.ForUser(ctx, u)
	if err != nil {
		return nil, err
	}
	return &UsageLimits{
		Customers: sub.CheckUsageLimit(models.ResourceCustomers, int(c.Customers)),
		Orders:    sub.CheckUsageLimit(models.ResourceOrders, int(c.OrdersThisMonth)),
		Gallery:   sub.CheckUsageLimit(models.ResourceGallery, int(c.GalleryImages)),
		Inventory: sub.CheckUsageLimit(models.ResourceInventory, int(c.InventoryItems)),
		Staff:     sub.CheckUsageLimit(models.ResourceStaff, int(c.Staff)),
	}, nil
}

func (s *SubscriptionService) Plans(ctx context.Context) ([]models.Plan, error) {
	return s.Subs.Plans(ctx, true)
}

func (s *SubscriptionService) Mine(ctx context.Context, u *models.User) (*SubscriptionView, error) {
	sub, err := s.ForUser(ctx, u)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Message(http.StatusNotFound, "No subscription found")
		}
		return nil, err
	}
	return s.View(sub), nil
}

// Subscribe starts a gateway subscription for plan and records a pending
// payment. The client completes checkout and then calls VerifyPayment.
func (s *SubscriptionService) Subscribe(ctx context.Context, u *models.User, req SubscribeRequest) (*Checkout, error) {
	plan, err := s.Subs.Plan(ctx, req.PlanID)
	if err != nil || !plan.IsActive {
		if err == nil || apperr.IsNotFound(err) {
			return nil, apperr.Message(http.StatusNotFound, "Invalid plan")
		}
		return nil, err
	}
	if plan.RazorpayPlanID == "" {
		return nil, apperr.BadRequest("This plan is not configured with Razorpay. Please create a plan in Razorpay Dashboard and add the plan_id to this subscription plan.")
	}
	sub, err := s.Subs.ByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if sub.RazorpayCustomerID == "" {
		cust, err := s.Gateway.CreateCustomer(ctx, u.Name, u.Email, "")
		if err != nil {
			return nil, &apperr.Upstream{Service: "razorpay", Err: err}
		}
		sub.RazorpayCustomerID = cust.ID
		if err := s.Subs.Save(ctx, sub); err != nil {
			return nil, err
		}
	}
	gs, err := s.Gateway.CreateSubscription(ctx, plan.RazorpayPlanID, sub.RazorpayCustomerID, plan.BillingCycle.GatewayCount(), map[string]string{
		"user_id":   strconv.FormatUint(uint64(u.ID), 10),
		"plan_id":   strconv.FormatUint(uint64(plan.ID), 10),
		"plan_name": plan.Name,
	})
	if err != nil {
		return nil, &apperr.Upstream{Service: "razorpay", Err: err}
	}
	err = s.Subs.CreatePayment(ctx, &models.Payment{
		SubscriptionID:  sub.ID,
		Amount:          plan.Price,
		Currency:        "INR",
		Status:          models.PayPending,
		RazorpayOrderID: gs.ID,
	})
	if err != nil {
		return nil, err
	}
	return &Checkout{
		SubscriptionID: gs.ID,
		KeyID:          s.Gateway.KeyID(),
		CustomerID:     sub.RazorpayCustomerID,
		PlanName:       plan.Name,
		Amount:         plan.Price.Cents(),
		Currency:       "INR",
	}, nil
}

func (s *SubscriptionService) VerifyPayment(ctx context.Context, u *models.User, req VerifyPaymentRequest) (*SubscriptionView, error) {
	if !s.Gateway.VerifyPaymentSignature(req.PaymentID, req.SubscriptionID, req.Signature) {
		return nil, apperr.BadRequest("Payment verification failed")
	}
	plan, err := s.Subs.Plan(ctx, req.PlanID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Message(http.StatusNotFound, "Invalid plan")
		}
		return nil, err
	}
	sub, err := s.Subs.ByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	pay, err := s.Subs.PendingPayment(ctx, sub.ID)
	switch {
	case apperr.IsNotFound(err):
		pay = &models.Payment{SubscriptionID: sub.ID, Amount: plan.Price, Currency: "INR", RazorpayOrderID: req.SubscriptionID}
	case err != nil:
		return nil, err
	}
	pay.Status = models.PayCompleted
	pay.RazorpayPaymentID = req.PaymentID
	pay.RazorpaySignature = req.Signature
	if pay.ID == 0 {
		err = s.Subs.CreatePayment(ctx, pay)
	} else {
		err = s.Subs.SavePayment(ctx, pay)
	}
	if err != nil {
		return nil, err
	}

	sub.Activate(plan, s.Now())
	sub.RazorpaySubscriptionID = req.SubscriptionID
	if err := s.Subs.Save(ctx, sub); err != nil {
		return nil, err
	}
	s.Events.Emit(ctx, events.SubscriptionActivated, map[string]any{
		"user_id": sub.UserID, "plan": plan.Name, "end_date": sub.EndDate,
	})
	return s.View(sub), nil
}

func (s *SubscriptionService) Cancel(ctx context.Context, u *models.User) (*SubscriptionView, error) {
	sub, err := s.Subs.ByUser(ctx, u.ID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Message(http.StatusNotFound, "No subscription found")
		}
		return nil, err
	}
	if sub.RazorpaySubscriptionID != "" {
		if _, err := s.Gateway.CancelSubscription(ctx, sub.RazorpaySubscriptionID); err != nil {
			return nil, &apperr.Upstream{Service: "razorpay", Err: fmt.Errorf("failed to cancel subscription: %w", err)}
		}
	}
	now := s.Now()
	sub.Status = models.SubCancelled
	sub.CancelAtPeriodEnd = true
	sub.CancelledAt = &now
	if err := s.Subs.Save(ctx, sub); err != nil {
		return nil, err
	}
	s.Events.Emit(ctx, events.SubscriptionCancelled, map[string]any{"user_id": sub.UserID})
	return s.View(sub), nil
}

// Webhook applies a gateway event. Events for unknown subscriptions are
// acknowledged and ignored.
func (s *SubscriptionService) Webhook(ctx context.Context, body []byte, signature string) error {
	if !s.Gateway.VerifyWebhookSignature(body, signature) {
		return apperr.BadRequest("Invalid signature")
	}
	ev, err := razorpay.ParseWebhook(body)
	if err != nil {
		return apperr.BadRequest("Invalid payload")
	}
	l := s.Log.Ctx(ctx)
	gatewayID := ev.Payload.Subscription.Entity.ID
	if gatewayID == "" {
		l.Info("webhook_unknown_subscription", map[string]any{"event": ev.Event})
		return nil
	}
	sub, err := s.Subs.ByGatewayID(ctx, gatewayID)
	if apperr.IsNotFound(err) {
		l.Info("webhook_unknown_subscription", map[string]any{"event": ev.Event, "subscription_id": gatewayID})
		return nil
	}
	if err != nil {
		return err
	}

	now := s.Now()
	payment := ev.Payload.Payment.Entity
	record := func(status models.PaymentStatusValue) error {
		return s.Subs.CreatePayment(ctx, &models.Payment{
			SubscriptionID:    sub.ID,
			Amount:            decimal.FromCents(payment.Amount),
			Currency:          "INR",
			Status:            status,
			RazorpayPaymentID: payment.ID,
			RazorpayOrderID:   gatewayID,
			PaymentMethod:     payment.Method,
		})
	}
	switch ev.Event {
	case "subscription.charged":
		if err := record(models.PayCompleted); err != nil {
			return err
		}
		sub.Extend(now)
	case "subscription.cancelled":
		sub.Status = models.SubCancelled
		sub.CancelledAt = &now
	case "subscription.completed":
		sub.Status = models.SubExpired
	case "subscription.halted", "payment.failed":
		if err := record(models.PayFailed); err != nil {
			return err
		}
		sub.Status = models.SubPaymentFailed
	case "subscription.authenticated":
		sub.Status = models.SubActive
	default:
		l.Debug("webhook_ignored", map[string]any{"event": ev.Event})
		return nil
	}
	if err := s.Subs.Save(ctx, sub); err != nil {
		return err
	}
	l.Info("webhook_applied", map[string]any{"event": ev.Event, "subscription": sub.ID, "status": sub.Status})
	return nil
}

// ExpireDue expires lapsed subscriptions and returns how many changed.
func (s *SubscriptionService) ExpireDue(ctx context.Context) (int, error) {
	due, err := s.Subs.ExpireDue(ctx, s.Now())
	if err != nil {
		return 0, err
	}
	for _, sub := range due {
		s.Events.Emit(ctx, events.SubscriptionExpired, map[string]any{"user_id": sub.UserID, "end_date": sub.EndDate})
	}
	if len(due) > 0 {
		s.Log.Ctx(ctx).Info("subscriptions_expired", map[string]any{"count": len(due)})
	}
	return len(due), nil
}
