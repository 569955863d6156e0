package models

import (
	"time"

	"stitchdesk/internal/decimal"
)

type PlanType string

const (
	PlanBasic  PlanType = "basic"
	PlanPro    PlanType = "pro"
	PlanCustom PlanType = "custom"
)

func (t PlanType) Valid() bool { return t == PlanBasic || t == PlanPro || t == PlanCustom }

type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

func (c BillingCycle) Valid() bool { return c == CycleMonthly || c == CycleYearly }

// Days is the length of one paid period.
func (c BillingCycle) Days() int {
	if c == CycleYearly {
		return 365
	}
	return 30
}

// GatewayCount is the number of billing cycles requested from the gateway.
func (c BillingCycle) GatewayCount() int {
	if c == CycleYearly {
		return 1
	}
	return 12
}

type Plan struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Name              string          `gorm:"size:100;not null" json:"name"`
	PlanType          PlanType        `gorm:"size:20;not null;uniqueIndex:idx_plans_type_cycle" json:"plan_type"`
	BillingCycle      BillingCycle    `gorm:"size:20;not null;uniqueIndex:idx_plans_type_cycle" json:"billing_cycle"`
	Price             decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	MaxCustomers      *int            `json:"max_customers"`
	MaxOrdersPerMonth *int            `json:"max_orders_per_month"`
	MaxGalleryImages  *int            `json:"max_gallery_images"`
	MaxInventoryItems *int            `json:"max_inventory_items"`
	MaxStaffUsers     *int            `json:"max_staff_users"`
	RazorpayPlanID    string          `gorm:"size:100" json:"razorpay_plan_id"`
	IsActive          bool            `gorm:"not null" json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Plan) TableName() string { return "subscription_plans" }

type SubscriptionStatus string

const (
	SubTrial         SubscriptionStatus = "trial"
	SubActive        SubscriptionStatus = "active"
	SubCancelled     SubscriptionStatus = "cancelled"
	SubExpired       SubscriptionStatus = "expired"
	SubPaymentFailed SubscriptionStatus = "payment_failed"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubTrial, SubActive, SubCancelled, SubExpired, SubPaymentFailed:
		return true
	}
	return false
}

type Subscription struct {
	ID                     uint               `gorm:"primaryKey" json:"id"`
	UserID                 uint               `gorm:"uniqueIndex;not null" json:"user"`
	User                   *User              `json:"-"`
	PlanID                 *uint              `json:"plan"`
	Plan                   *Plan              `json:"plan_details"`
	Status                 SubscriptionStatus `gorm:"size:20;not null;index" json:"status"`
	TrialStartDate         *time.Time         `json:"trial_start_date"`
	TrialEndDate           *time.Time         `json:"trial_end_date"`
	StartDate              *time.Time         `json:"start_date"`
	EndDate                *time.Time         `json:"end_date"`
	RazorpaySubscriptionID string             `gorm:"size:100;index" json:"razorpay_subscription_id"`
	RazorpayCustomerID     string             `gorm:"size:100" json:"razorpay_customer_id"`
	CancelledAt            *time.Time         `json:"cancelled_at"`
	CancelAtPeriodEnd      bool               `gorm:"not null" json:"cancel_at_period_end"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// NewTrial starts a trial subscription for a freshly registered user.
func NewTrial(userID uint, now time.Time, days int) *Subscription {
	end := now.AddDate(0, 0, days)
	return &Subscription{UserID: userID, Status: SubTrial, TrialStartDate: &now, TrialEndDate: &end}
}

func (s *Subscription) IsTrialActive(now time.Time) bool {
	return s.Status == SubTrial && s.TrialEndDate != nil && now.Before(*s.TrialEndDate)
}

func (s *Subscription) IsSubscriptionActive(now time.Time) bool {
	return s.Status == SubActive && s.EndDate != nil && now.Before(*s.EndDate)
}

// HasAccess reports full read/write access.
func (s *Subscription) HasAccess(now time.Time) bool {
	return s.IsTrialActive(now) || s.IsSubscriptionActive(now)
}

// HasReadAccess extends HasAccess with a grace window after the trial or the
// paid period ends.
func (s *Subscription) HasReadAccess(now time.Time, grace time.Duration) bool {
	if s.HasAccess(now) {
		return true
	}
	var end *time.Time
	switch s.Status {
	case SubTrial:
		end = s.TrialEndDate
	case SubExpired, SubCancelled, SubPaymentFailed:
		end = s.EndDate
	}
	return end != nil && now.Before(end.Add(grace))
}

func (s *Subscription) IsReadOnly(now time.Time, grace time.Duration) bool {
	return s.HasReadAccess(now, grace) && !s.HasAccess(now)
}

// DaysUntilExpiry counts whole days left while access is active.
func (s *Subscription) DaysUntilExpiry(now time.Time) int {
	var end time.Time
	switch {
	case s.IsTrialActive(now):
		end = *s.TrialEndDate
	case s.IsSubscriptionActive(now):
		end = *s.EndDate
	default:
		return 0
	}
	return int(end.Sub(now) / (24 * time.Hour))
}

// GraceDaysRemaining counts whole days left in the read-only window.
func (s *Subscription) GraceDaysRemaining(now time.Time, grace time.Duration) int {
	var end *time.Time
	if s.Status == SubTrial {
		end = s.TrialEndDate
	} else {
		end = s.EndDate
	}
	if end == nil {
		return 0
	}
	left := end.Add(grace).Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / (24 * time.Hour))
}

// Activate starts or renews a paid period on plan.
func (s *Subscription) Activate(plan *Plan, now time.Time) {
	end := now.AddDate(0, 0, plan.BillingCycle.Days())
	s.PlanID = &plan.ID
	s.Plan = plan
	s.Status = SubActive
	s.StartDate = &now
	s.EndDate = &end
	s.CancelAtPeriodEnd = false
	s.CancelledAt = nil
}

// Extend pushes the end date out by one cycle of the current plan.
func (s *Subscription) Extend(now time.Time) {
	days := CycleMonthly.Days()
	if s.Plan != nil {
		days = s.Plan.BillingCycle.Days()
	}
	base := now
	if s.EndDate != nil && s.EndDate.After(now) {
		base = *s.EndDate
	}
	end := base.AddDate(0, 0, days)
	s.Status = SubActive
	s.EndDate = &end
}

type Resource string

const (
	ResourceCustomers Resource = "customers"
	ResourceOrders    Resource = "orders"
	ResourceGallery   Resource = "gallery"
	ResourceInventory Resource = "inventory"
	ResourceStaff     Resource = "staff"
)

// TrialLimits apply when a subscription has no plan.
var TrialLimits = map[Resource]int{
	ResourceCustomers: 100,
	ResourceOrders:    50,
	ResourceGallery:   50,
	ResourceInventory: 100,
	ResourceStaff:     1,
}

type LimitCheck struct {
	Allowed bool `json:"allowed"`
	Limit   *int `json:"limit"`
	Current int  `json:"current"`
}

// Limit returns the cap for r, nil meaning unlimited.
func (s *Subscription) Limit(r Resource) *int {
	if s.Plan == nil {
		v, ok := TrialLimits[r]
		if !ok {
			return nil
		}
		return &v
	}
	switch r {
	case ResourceCustomers:
		return s.Plan.MaxCustomers
	case ResourceOrders:
		return s.Plan.MaxOrdersPerMonth
	case ResourceGallery:
		return s.Plan.MaxGalleryImages
	case ResourceInventory:
		return s.Plan.MaxInventoryItems
	case ResourceStaff:
		return s.Plan.MaxStaffUsers
	}
	return nil
}

// CheckUsageLimit reports whether one more r may be created given current.
func (s *Subscription) CheckUsageLimit(r Resource, current int) LimitCheck {
	limit := s.Limit(r)
	return LimitCheck{Allowed: limit == nil || current < *limit, Limit: limit, Current: current}
}

type PaymentStatusValue string

const (
	PayPending   PaymentStatusValue = "pending"
	PayCompleted PaymentStatusValue = "completed"
	PayFailed    PaymentStatusValue = "failed"
	PayRefunded  PaymentStatusValue = "refunded"
)

type Payment struct {
	ID                uint               `gorm:"primaryKey" json:"id"`
	SubscriptionID    uint               `gorm:"not null;index" json:"subscription"`
	Amount            decimal.Decimal    `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency          string             `gorm:"size:3;not null" json:"currency"`
	Status            PaymentStatusValue `gorm:"size:20;not null;index" json:"status"`
	RazorpayPaymentID string             `gorm:"size:100;index" json:"razorpay_payment_id"`
	RazorpayOrderID   string             `gorm:"size:100" json:"razorpay_order_id"`
	RazorpaySignature string             `gorm:"size:255" json:"-"`
	PaymentMethod     string             `gorm:"size:50" json:"payment_method"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}
