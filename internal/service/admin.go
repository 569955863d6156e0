package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
	"stitchdesk/internal/repository"
)

// PlanRequest edits a plan. On a full update the limits are replaced as
// sent, so an omitted limit becomes unlimited.
type PlanRequest struct {
	Name              *string              `json:"name" binding:"omitempty,max=100"`
	PlanType          *models.PlanType     `json:"plan_type"`
	BillingCycle      *models.BillingCycle `json:"billing_cycle"`
	Price             *decimal.Decimal     `json:"price"`
	MaxCustomers      *int                 `json:"max_customers"`
	MaxOrdersPerMonth *int                 `json:"max_orders_per_month"`
	MaxGalleryImages  *int                 `json:"max_gallery_images"`
	MaxInventoryItems *int                 `json:"max_inventory_items"`
	MaxStaffUsers     *int                 `json:"max_staff_users"`
	RazorpayPlanID    *string              `json:"razorpay_plan_id"`
	IsActive          *bool                `json:"is_active"`
}

type SubscriptionPatch struct {
	Status            *models.SubscriptionStatus `json:"status"`
	PlanID            *uint                      `json:"plan"`
	TrialEndDate      *time.Time                 `json:"trial_end_date"`
	StartDate         *time.Time                 `json:"start_date"`
	EndDate           *time.Time                 `json:"end_date"`
	CancelAtPeriodEnd *bool                      `json:"cancel_at_period_end"`
}

type AssignPlanRequest struct {
	PlanID    uint         `json:"plan_id"`
	StartDate *models.Date `json:"start_date"`
	EndDate   *models.Date `json:"end_date"`
}

type CreateUserRequest struct {
	Email    string       `json:"email"`
	Name     string       `json:"name"`
	Password string       `json:"password"`
	PlanID   *uint        `json:"plan_id"`
	EndDate  *models.Date `json:"end_date"`
}

type UserSummary struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	IsSuperuser bool   `json:"is_superuser"`
}

type CreatedUser struct {
	User         UserSummary          `json:"user"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

type AdminService struct {
	Subs      repository.SubscriptionRepository
	Users     repository.UserRepository
	Shops     repository.ShopRepository
	TrialDays int
	Now       func() time.Time
}

func (s *AdminService) Plans(ctx context.Context) ([]models.Plan, error) {
	return s.Subs.Plans(ctx, false)
}

func (s *AdminService) Plan(ctx context.Context, id uint) (*models.Plan, error) {
	return s.Subs.Plan(ctx, id)
}

func (s *AdminService) CreatePlan(ctx context.Context, req PlanRequest) (*models.Plan, error) {
	p := &models.Plan{IsActive: true}
	if err := applyPlan(p, req, true); err != nil {
		return nil, err
	}
	return p, s.Subs.CreatePlan(ctx, p)
}

func (s *AdminService) UpdatePlan(ctx context.Context, id uint, req PlanRequest, full bool) (*models.Plan, error) {
	p, err := s.Subs.Plan(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyPlan(p, req, full); err != nil {
		return nil, err
	}
	return p, s.Subs.SavePlan(ctx, p)
}

// DeletePlan deactivates the plan; subscriptions on it keep working.
func (s *AdminService) DeletePlan(ctx context.Context, id uint) error {
	p, err := s.Subs.Plan(ctx, id)
	if err != nil {
		return err
	}
	p.IsActive = false
	return s.Subs.SavePlan(ctx, p)
}

func applyPlan(p *models.Plan, req PlanRequest, full bool) error {
	verr := &apperr.Validation{}
	if req.Name != nil || full {
		name := ""
		if req.Name != nil {
			name = strings.TrimSpace(*req.Name)
		}
		if name == "" {
			verr.Add("name", "This field is required.")
		}
		p.Name = name
	}
	if req.PlanType != nil || full {
		if req.PlanType == nil || !req.PlanType.Valid() {
			verr.Add("plan_type", "Must be basic, pro or custom.")
		} else {
			p.PlanType = *req.PlanType
		}
	}
	if req.BillingCycle != nil || full {
		if req.BillingCycle == nil || !req.BillingCycle.Valid() {
			verr.Add("billing_cycle", "Must be monthly or yearly.")
		} else {
			p.BillingCycle = *req.BillingCycle
		}
	}
	if req.Price != nil || full {
		if req.Price == nil || req.Price.IsNegative() {
			verr.Add("price", "A non-negative price is required.")
		} else {
			p.Price = *req.Price
		}
	}
	limits := []struct {
		field string
		dst   **int
		v     *int
	}{
		{"max_customers", &p.MaxCustomers, req.MaxCustomers},
		{"max_orders_per_month", &p.MaxOrdersPerMonth, req.MaxOrdersPerMonth},
		{"max_gallery_images", &p.MaxGalleryImages, req.MaxGalleryImages},
		{"max_inventory_items", &p.MaxInventoryItems, req.MaxInventoryItems},
		{"max_staff_users", &p.MaxStaffUsers, req.MaxStaffUsers},
	}
	for _, l := range limits {
		if l.v != nil && *l.v < 0 {
			verr.Add(l.field, "Ensure this value is greater than or equal to 0.")
			continue
		}
		if l.v != nil || full {
			*l.dst = l.v
		}
	}
	setString(&p.RazorpayPlanID, req.RazorpayPlanID)
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return verr.OrNil()
}

func (s *AdminService) Subscriptions(ctx context.Context, f repository.SubscriptionFilter, p repository.PageRequest) (repository.Page[models.Subscription], error) {
	if f.Status != "" && !f.Status.Valid() {
		return repository.Page[models.Subscription]{}, apperr.Invalid("status", "Invalid status.")
	}
	return s.Subs.List(ctx, f, p)
}

func (s *AdminService) UserSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	return s.Subs.ByUser(ctx, userID)
}

func (s *AdminService) PatchSubscription(ctx context.Context, userID uint, req SubscriptionPatch) (*models.Subscription, error) {
	sub, err := s.Subs.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, apperr.Invalid("status", "Invalid status.")
		}
		sub.Status = *req.Status
	}
	if req.PlanID != nil {
		plan, err := s.Subs.Plan(ctx, *req.PlanID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return nil, apperr.Invalid("plan", "Invalid plan.")
			}
			return nil, err
		}
		sub.PlanID, sub.Plan = &plan.ID, plan
	}
	if req.TrialEndDate != nil {
		sub.TrialEndDate = req.TrialEndDate
	}
	if req.StartDate != nil {
		sub.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		sub.EndDate = req.EndDate
	}
	if req.CancelAtPeriodEnd != nil {
		sub.CancelAtPeriodEnd = *req.CancelAtPeriodEnd
	}
	return sub, s.Subs.Save(ctx, sub)
}

// AssignPlan puts the user on plan right away. Without an end date the
// period runs one billing cycle from the start.
func (s *AdminService) AssignPlan(ctx context.Context, userID uint, req AssignPlanRequest) (*models.Subscription, error) {
	if req.PlanID == 0 {
		return nil, apperr.BadRequest("plan_id is required")
	}
	sub, err := s.Subs.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	plan, err := s.Subs.Plan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	start := s.Now()
	if req.StartDate != nil && !req.StartDate.IsZero() {
		start = req.StartDate.Time
	}
	sub.Activate(plan, start)
	if req.EndDate != nil && !req.EndDate.IsZero() {
		end := req.EndDate.Time
		sub.EndDate = &end
	}
	return sub, s.Subs.Save(ctx, sub)
}

func (s *AdminService) CreateUser(ctx context.Context, req CreateUserRequest) (*CreatedUser, error) {
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Name) == "" || req.Password == "" {
		return nil, apperr.BadRequest("email, name, and password are required")
	}
	var plan *models.Plan
	if req.PlanID != nil {
		p, err := s.Subs.Plan(ctx, *req.PlanID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return nil, apperr.BadRequest("Invalid plan_id")
			}
			return nil, err
		}
		plan = p
	}
	u, err := createAccount(ctx, s.Users, RegisterRequest{Email: req.Email, Name: req.Name, Password: req.Password}, s.Now(), s.trialDays())
	if err != nil {
		var v *apperr.Validation
		if errors.As(err, &v) && len(v.Fields["email"]) > 0 {
			return nil, apperr.BadRequest("User with this email already exists")
		}
		return nil, err
	}
	out := &CreatedUser{User: UserSummary{ID: u.ID, Email: u.Email, Name: u.Name, IsSuperuser: u.IsSuperuser}}
	if plan == nil {
		return out, nil
	}
	sub, err := s.Subs.ByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	sub.Activate(plan, s.Now())
	if req.EndDate != nil && !req.EndDate.IsZero() {
		end := req.EndDate.Time
		sub.EndDate = &end
	}
	if err := s.Subs.Save(ctx, sub); err != nil {
		return nil, err
	}
	out.Subscription = sub
	return out, nil
}

// CreateSuperuser registers an account with full administrative rights.
func (s *AdminService) CreateSuperuser(ctx context.Context, email, name, password string) (*models.User, error) {
	u, err := createAccount(ctx, s.Users, RegisterRequest{Email: email, Name: name, Password: password}, s.Now(), s.trialDays())
	if err != nil {
		return nil, err
	}
	u.IsSuperuser = true
	u.IsStaff = true
	return u, s.Users.Save(ctx, u)
}

func (s *AdminService) trialDays() int {
	if s.TrialDays <= 0 {
		return 14
	}
	return s.TrialDays
}

func (s *AdminService) Payments(ctx context.Context, f repository.PaymentFilter, p repository.PageRequest) (repository.Page[models.Payment], error) {
	return s.Subs.Payments(ctx, f, p)
}

func (s *AdminService) Stats(ctx context.Context) (*repository.SubscriptionStats, error) {
	return s.Subs.Stats(ctx)
}

// RequireSuperuser guards the admin endpoints.
func RequireSuperuser(u *models.User) error {
	if u == nil || !u.IsSuperuser {
		return apperr.Message(http.StatusForbidden, "You do not have permission to perform this action.")
	}
	return nil
}
