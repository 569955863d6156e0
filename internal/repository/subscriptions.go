package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
)

type SubscriptionFilter struct {
	Status   models.SubscriptionStatus
	PlanType models.PlanType
}

type PaymentFilter struct {
	Status         models.PaymentStatusValue
	SubscriptionID uint
}

type PlanCount struct {
	PlanName string `json:"plan__name"`
	Count    int64  `json:"count"`
}

type SubscriptionStats struct {
	TotalUsers       int64           `json:"total_users"`
	TrialUsers       int64           `json:"trial_users"`
	ActiveUsers      int64           `json:"active_users"`
	ExpiredUsers     int64           `json:"expired_users"`
	CancelledUsers   int64           `json:"cancelled_users"`
	PaymentFailed    int64           `json:"payment_failed_users"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	PlanDistribution []PlanCount     `json:"plan_distribution"`
}

type SubscriptionRepository interface {
	Plans(ctx context.Context, activeOnly bool) ([]models.Plan, error)
	Plan(ctx context.Context, id uint) (*models.Plan, error)
	CreatePlan(ctx context.Context, p *models.Plan) error
	SavePlan(ctx context.Context, p *models.Plan) error
	// UpsertPlan inserts or updates the plan keyed by type and cycle.
	UpsertPlan(ctx context.Context, p *models.Plan) error

	ByUser(ctx context.Context, userID uint) (*models.Subscription, error)
	ByGatewayID(ctx context.Context, gatewayID string) (*models.Subscription, error)
	Create(ctx context.Context, s *models.Subscription) error
	Save(ctx context.Context, s *models.Subscription) error
	List(ctx context.Context, f SubscriptionFilter, p PageRequest) (Page[models.Subscription], error)

	CreatePayment(ctx context.Context, p *models.Payment) error
	SavePayment(ctx context.Context, p *models.Payment) error
	// PendingPayment returns the newest pending payment of a subscription.
	PendingPayment(ctx context.Context, subscriptionID uint) (*models.Payment, error)
	Payments(ctx context.Context, f PaymentFilter, p PageRequest) (Page[models.Payment], error)

	// ExpireDue marks active and cancelled subscriptions past their end date
	// as expired and returns them.
	ExpireDue(ctx context.Context, now time.Time) ([]models.Subscription, error)
	Stats(ctx context.Context) (*SubscriptionStats, error)
}

type Subscriptions struct{ db *gorm.DB }

var _ SubscriptionRepository = (*Subscriptions)(nil)

func NewSubscriptions(db *gorm.DB) *Subscriptions { return &Subscriptions{db: db} }

func (r *Subscriptions) Plans(ctx context.Context, activeOnly bool) ([]models.Plan, error) {
	q := r.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []models.Plan
	err := q.Order("price").Find(&out).Error
	return out, wrap(err, "plan", nil, "list plans")
}

func (r *Subscriptions) Plan(ctx context.Context, id uint) (*models.Plan, error) {
	var p models.Plan
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, wrap(err, "plan", id, "get plan")
	}
	return &p, nil
}

func (r *Subscriptions) CreatePlan(ctx context.Context, p *models.Plan) error {
	return wrap(r.db.WithContext(ctx).Create(p).Error, "plan", p.Name, "create plan")
}

func (r *Subscriptions) SavePlan(ctx context.Context, p *models.Plan) error {
	return wrap(r.db.WithContext(ctx).Save(p).Error, "plan", p.ID, "save plan")
}

func (r *Subscriptions) UpsertPlan(ctx context.Context, p *models.Plan) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "plan_type"}, {Name: "billing_cycle"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "price", "max_customers", "max_orders_per_month", "max_gallery_images",
			"max_inventory_items", "max_staff_users", "is_active", "updated_at",
		}),
	}).Create(p).Error
	return wrap(err, "plan", p.Name, "upsert plan")
}

func (r *Subscriptions) ByUser(ctx context.Context, userID uint) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.WithContext(ctx).Preload("Plan").Where("user_id = ?", userID).First(&s).Error
	if err != nil {
		return nil, wrap(err, "subscription", userID, "get subscription")
	}
	return &s, nil
}

// ByGatewayID looks up a subscription by its Razorpay id. Local trials have
// no gateway id, so an empty id never matches.
func (r *Subscriptions) ByGatewayID(ctx context.Context, gatewayID string) (*models.Subscription, error) {
	if gatewayID == "" {
		return nil, apperr.NewNotFound("subscription", nil)
	}
	var s models.Subscription
	err := r.db.WithContext(ctx).Preload("Plan").
		Where("razorpay_subscription_id = ?", gatewayID).First(&s).Error
	if err != nil {
		return nil, wrap(err, "subscription", gatewayID, "get subscription by gateway id")
	}
	return &s, nil
}

func (r *Subscriptions) Create(ctx context.Context, s *models.Subscription) error {
	return wrap(r.db.WithContext(ctx).Omit("Plan", "User").Create(s).Error, "subscription", s.UserID, "create subscription")
}

func (r *Subscriptions) Save(ctx context.Context, s *models.Subscription) error {
	return wrap(r.db.WithContext(ctx).Omit("Plan", "User").Save(s).Error, "subscription", s.ID, "save subscription")
}

func (r *Subscriptions) List(ctx context.Context, f SubscriptionFilter, p PageRequest) (Page[models.Subscription], error) {
	q := r.db.WithContext(ctx).Model(&models.Subscription{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PlanType != "" {
		q = q.Where("plan_id IN (SELECT id FROM subscription_plans WHERE plan_type = ?)", f.PlanType)
	}
	return paginate[models.Subscription](q, p, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Plan").Preload("User").Order("created_at DESC")
	})
}

func (r *Subscriptions) CreatePayment(ctx context.Context, p *models.Payment) error {
	return wrap(r.db.WithContext(ctx).Create(p).Error, "payment", nil, "create payment")
}

func (r *Subscriptions) SavePayment(ctx context.Context, p *models.Payment) error {
	return wrap(r.db.WithContext(ctx).Save(p).Error, "payment", p.ID, "save payment")
}

func (r *Subscriptions) PendingPayment(ctx context.Context, subscriptionID uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).
		Where("subscription_id = ? AND status = ?", subscriptionID, models.PayPending).
		Order("created_at DESC").First(&p).Error
	if err != nil {
		return nil, wrap(err, "payment", subscriptionID, "get pending payment")
	}
	return &p, nil
}

func (r *Subscriptions) Payments(ctx context.Context, f PaymentFilter, p PageRequest) (Page[models.Payment], error) {
	q := r.db.WithContext(ctx).Model(&models.Payment{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.SubscriptionID != 0 {
		q = q.Where("subscription_id = ?", f.SubscriptionID)
	}
	return paginate[models.Payment](q, p, func(q *gorm.DB) *gorm.DB { return q.Order("created_at DESC") })
}

func (r *Subscriptions) ExpireDue(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var due []models.Subscription
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status IN ? AND end_date < ?", []models.SubscriptionStatus{models.SubActive, models.SubCancelled}, now).
			Find(&due).Error
		if err != nil || len(due) == 0 {
			return err
		}
		ids := make([]uint, len(due))
		for i := range due {
			ids[i] = due[i].ID
			due[i].Status = models.SubExpired
		}
		return tx.Model(&models.Subscription{}).Where("id IN ?", ids).
			Update("status", models.SubExpired).Error
	})
	if err != nil {
		return nil, wrap(err, "subscription", nil, "expire subscriptions")
	}
	return due, nil
}

func (r *Subscriptions) Stats(ctx context.Context) (*SubscriptionStats, error) {
	st := &SubscriptionStats{PlanDistribution: []PlanCount{}}
	q := func() *gorm.DB { return r.db.WithContext(ctx).Model(&models.Subscription{}) }

	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&st.TotalUsers).Error; err != nil {
		return nil, wrap(err, "user", nil, "count users")
	}
	var byStatus []struct {
		Status models.SubscriptionStatus
		N      int64
	}
	if err := q().Select("status, COUNT(*) AS n").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, wrap(err, "subscription", nil, "count by status")
	}
	for _, s := range byStatus {
		switch s.Status {
		case models.SubTrial:
			st.TrialUsers = s.N
		case models.SubActive:
			st.ActiveUsers = s.N
		case models.SubExpired:
			st.ExpiredUsers = s.N
		case models.SubCancelled:
			st.CancelledUsers = s.N
		case models.SubPaymentFailed:
			st.PaymentFailed = s.N
		}
	}

	var revenue *decimal.Decimal
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("status = ?", models.PayCompleted).
		Select("COALESCE(SUM(amount), 0)").Scan(&revenue).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrap(err, "payment", nil, "sum revenue")
	}
	st.TotalRevenue = decimal.Or(revenue, decimal.Zero)

	err = q().Select("subscription_plans.name AS plan_name, COUNT(*) AS count").
		Joins("JOIN subscription_plans ON subscription_plans.id = subscriptions.plan_id").
		Group("subscription_plans.name").Order("count DESC").
		Scan(&st.PlanDistribution).Error
	if err != nil {
		return nil, wrap(err, "subscription", nil, "plan distribution")
	}
	return st, nil
}
