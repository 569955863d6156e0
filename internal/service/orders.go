package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/decimal"
	"stitchdesk/internal/events"
	"stitchdesk/internal/models"
	"stitchdesk/internal/numbering"
	"stitchdesk/internal/pricing"
	"stitchdesk/internal/repository"
)

// numberAttempts bounds retries when two requests race for the same number.
const numberAttempts = 3

type OrderItemRequest struct {
	Template        *string          `json:"template"`
	ItemType        models.ItemType  `json:"item_type" binding:"omitempty,itemtype"`
	Quantity        *int             `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	Measurements    models.Values    `json:"measurements"`
	SampleGiven     bool             `json:"sample_given"`
	DesignReference string           `json:"design_reference"`
	Notes           string           `json:"notes"`
}

type OrderRequest struct {
	Customer        *string               `json:"customer"`
	OrderDate       *models.Date          `json:"order_date"`
	DeliveryDate    *models.Date          `json:"delivery_date"`
	Status          *models.OrderStatus   `json:"status"`
	StitchingCharge *decimal.Decimal      `json:"stitching_charge"`
	ExtraCharge     *decimal.Decimal      `json:"extra_charge"`
	Discount        *decimal.Decimal      `json:"discount"`
	Tax             *decimal.Decimal      `json:"tax"`
	PaymentStatus   *models.PaymentStatus `json:"payment_status"`
	AmountPaid      *decimal.Decimal      `json:"amount_paid"`
	PaymentMethod   *models.PaymentMode   `json:"payment_method"`
	Notes           *string               `json:"notes"`
	Items           *[]OrderItemRequest   `json:"items" binding:"omitempty,dive"`
}

type OrderService struct {
	Orders       repository.OrderRepository
	Customers    repository.CustomerRepository
	Measurements repository.MeasurementRepository
	Shops        repository.ShopRepository
	Limits       LimitEnforcer
	Events       events.Emitter
	Now          func() time.Time
}

func (s *OrderService) Create(ctx context.Context, u *models.User, req OrderRequest) (*models.Order, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	n, err := s.Orders.CountSince(ctx, shopID, startOfMonth(now))
	if err != nil {
		return nil, err
	}
	if err := s.Limits.Enforce(ctx, u, models.ResourceOrders, n); err != nil {
		return nil, err
	}
	shop, err := s.Shops.Get(ctx, shopID)
	if err != nil {
		return nil, err
	}

	o := &models.Order{
		ShopID:        shopID,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentUnpaid,
		CreatedByID:   &u.ID,
		OrderDate:     models.NewDate(now),
	}
	if req.Items == nil {
		req.Items = &[]OrderItemRequest{}
	}
	if err := s.apply(ctx, shopID, o, req, true); err != nil {
		return nil, err
	}
	if req.DeliveryDate == nil {
		o.DeliveryDate = o.OrderDate.AddDays(shop.DeliveryDurationDays)
	}

	prefix := numbering.OrderPrefix(now)
	for attempt := 1; ; attempt++ {
		last, err := s.Orders.LastNumber(ctx, shopID, prefix)
		if err != nil {
			return nil, err
		}
		o.OrderNumber = numbering.Next(prefix, last)
		err = s.Orders.Create(ctx, o)
		if err == nil {
			break
		}
		if !isConflict(err) || attempt == numberAttempts {
			return nil, err
		}
	}

	s.Events.Emit(ctx, events.OrderCreated, map[string]any{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"shop_id":      shopID,
		"customer_id":  o.CustomerID,
		"total_amount": o.TotalAmount,
	})
	return s.Orders.Get(ctx, shopID, o.ID)
}

func (s *OrderService) Get(ctx context.Context, u *models.User, id string) (*models.Order, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	oid, err := parseID("order", id)
	if err != nil {
		return nil, err
	}
	return s.Orders.Get(ctx, shopID, oid)
}

// Update applies a partial update. Items, when sent, replace the stored ones.
func (s *OrderService) Update(ctx context.Context, u *models.User, id string, req OrderRequest) (*models.Order, error) {
	o, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}
	prev := o.Status
	if req.Status != nil {
		if err := checkTransition(u, prev, *req.Status); err != nil {
			return nil, err
		}
	}
	if err := s.apply(ctx, o.ShopID, o, req, false); err != nil {
		return nil, err
	}
	if err := s.Orders.Update(ctx, o, req.Items != nil); err != nil {
		return nil, err
	}
	if o.Status != prev {
		s.emitStatus(ctx, o, prev)
	}
	return s.Orders.Get(ctx, o.ShopID, o.ID)
}

// ChangeStatus moves the order along the workflow. Only staff may move it
// back.
func (s *OrderService) ChangeStatus(ctx context.Context, u *models.User, id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperr.Invalid("status", "Invalid status.")
	}
	o, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(u, o.Status, status); err != nil {
		return nil, err
	}
	prev := o.Status
	o.Status = status
	if err := s.Orders.Update(ctx, o, false); err != nil {
		return nil, err
	}
	if prev != status {
		s.emitStatus(ctx, o, prev)
	}
	return o, nil
}

func (s *OrderService) Delete(ctx context.Context, u *models.User, id string) error {
	shopID, err := shopOf(u)
	if err != nil {
		return err
	}
	oid, err := parseID("order", id)
	if err != nil {
		return err
	}
	return s.Orders.Delete(ctx, shopID, oid)
}

type OrderQuery struct {
	Status   string
	Customer string
	Search   string
}

func (s *OrderService) List(ctx context.Context, u *models.User, q OrderQuery, p repository.PageRequest) (repository.Page[models.Order], error) {
	shopID, err := shopOf(u)
	if err != nil {
		return repository.Page[models.Order]{}, err
	}
	f := repository.OrderFilter{Status: models.OrderStatus(q.Status), Search: q.Search}
	if f.Status != "" && !f.Status.Valid() {
		return repository.Page[models.Order]{}, apperr.Invalid("status", "Invalid status.")
	}
	if f.CustomerID, err = parseOptionalID("customer", q.Customer); err != nil {
		return repository.Page[models.Order]{}, err
	}
	return s.Orders.List(ctx, shopID, f, p)
}

func (s *OrderService) emitStatus(ctx context.Context, o *models.Order, prev models.OrderStatus) {
	s.Events.Emit(ctx, events.OrderStatusChanged, map[string]any{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"shop_id":      o.ShopID,
		"from":         prev,
		"to":           o.Status,
	})
}

func checkTransition(u *models.User, from, to models.OrderStatus) error {
	if !to.Valid() {
		return apperr.Invalid("status", "Invalid status.")
	}
	if to.Before(from) && !u.CanRewindOrders() {
		return apperr.Invalid("status", fmt.Sprintf("Cannot move order back from %s to %s.", from, to))
	}
	return nil
}

// apply copies req onto o, validates the result and recomputes the totals.
func (s *OrderService) apply(ctx context.Context, shopID uuid.UUID, o *models.Order, req OrderRequest, creating bool) error {
	verr := &apperr.Validation{}

	if req.Customer != nil || creating {
		if err := s.setCustomer(ctx, shopID, o, req.Customer, verr); err != nil {
			return err
		}
	}
	if req.OrderDate != nil && !req.OrderDate.IsZero() {
		o.OrderDate = *req.OrderDate
	}
	if req.DeliveryDate != nil {
		if req.DeliveryDate.IsZero() {
			verr.Add("delivery_date", "This field may not be null.")
		}
		o.DeliveryDate = *req.DeliveryDate
	}
	if !o.DeliveryDate.IsZero() && o.DeliveryDate.Before(o.OrderDate) {
		verr.Add("delivery_date", "Delivery date cannot be before order date.")
	}
	if req.Status != nil {
		o.Status = *req.Status
	}
	if req.PaymentMethod != nil {
		if !req.PaymentMethod.Valid() {
			verr.Add("payment_method", "Must be one of CASH, UPI, BANK.")
		}
		o.PaymentMethod = *req.PaymentMethod
	}
	setString(&o.Notes, req.Notes)

	var items []models.OrderItem
	if req.Items != nil {
		if len(*req.Items) == 0 {
			verr.Add("items", "At least one item is required.")
		}
		var err error
		items, err = s.buildItems(ctx, shopID, *req.Items, verr)
		if err != nil {
			return err
		}
		o.Items = items
	}

	moneyChanged := false
	charge := func(field string, in *decimal.Decimal, out *decimal.Decimal) {
		if in == nil {
			return
		}
		moneyChanged = true
		if in.IsNegative() {
			verr.Add(field, "Must not be negative.")
		}
		*out = *in
	}
	if req.StitchingCharge == nil && creating {
		o.StitchingCharge = pricing.ItemsTotal(orderLines(o.Items))
	}
	charge("stitching_charge", req.StitchingCharge, &o.StitchingCharge)
	charge("extra_charge", req.ExtraCharge, &o.ExtraCharge)
	charge("discount", req.Discount, &o.Discount)
	charge("tax", req.Tax, &o.Tax)
	charge("amount_paid", req.AmountPaid, &o.AmountPaid)

	if err := verr.OrNil(); err != nil {
		return err
	}

	t := pricing.OrderTotals(o.StitchingCharge, o.ExtraCharge, o.Discount, o.Tax, o.AmountPaid)
	o.Subtotal, o.TotalAmount, o.BalanceAmount = t.Subtotal, t.Total, t.Balance

	switch {
	case req.PaymentStatus != nil:
		if !req.PaymentStatus.Valid() {
			return apperr.Invalid("payment_status", "Must be one of UNPAID, PARTIAL, PAID.")
		}
		o.PaymentStatus = *req.PaymentStatus
	case creating || moneyChanged:
		o.PaymentStatus = pricing.DerivePaymentStatus(o.TotalAmount, o.AmountPaid)
	}
	return nil
}

func (s *OrderService) setCustomer(ctx context.Context, shopID uuid.UUID, o *models.Order, raw *string, verr *apperr.Validation) error {
	if raw == nil || *raw == "" {
		verr.Add("customer", "This field is required.")
		return nil
	}
	cid, err := uuid.Parse(*raw)
	if err != nil {
		verr.Add("customer", "Invalid customer.")
		return nil
	}
	c, err := s.Customers.Get(ctx, shopID, cid)
	if apperr.IsNotFound(err) {
		verr.Add("customer", "Customer does not belong to your shop.")
		return nil
	}
	if err != nil {
		return err
	}
	o.CustomerID, o.Customer = c.ID, c
	return nil
}

// buildItems validates each requested item against its template. Problems
// are collected into verr; only infrastructure errors are returned.
func (s *OrderService) buildItems(ctx context.Context, shopID uuid.UUID, reqs []OrderItemRequest, verr *apperr.Validation) ([]models.OrderItem, error) {
	templates := map[uuid.UUID]*models.MeasurementTemplate{}
	out := make([]models.OrderItem, 0, len(reqs))
	for i, r := range reqs {
		label := fmt.Sprintf("Item %d: ", i+1)
		it := models.OrderItem{
			ItemType:        r.ItemType,
			Quantity:        1,
			UnitPrice:       r.UnitPrice,
			Measurements:    r.Measurements,
			SampleGiven:     r.SampleGiven,
			DesignReference: r.DesignReference,
			Notes:           r.Notes,
		}
		if it.Measurements == nil {
			it.Measurements = models.Values{}
		}
		if r.Quantity != nil {
			it.Quantity = *r.Quantity
		}
		if it.Quantity < 1 {
			verr.Add("items", label+"quantity must be at least 1.")
		}
		if r.UnitPrice != nil && r.UnitPrice.IsNegative() {
			verr.Add("items", label+"unit price must not be negative.")
		}

		if r.Template != nil && *r.Template != "" {
			tid, err := uuid.Parse(*r.Template)
			if err != nil {
				verr.Add("items", label+"invalid template.")
				out = append(out, it)
				continue
			}
			t, ok := templates[tid]
			if !ok {
				t, err = s.Measurements.GetTemplate(ctx, shopID, tid)
				if apperr.IsNotFound(err) {
					verr.Add("items", label+"invalid template.")
					out = append(out, it)
					continue
				}
				if err != nil {
					return nil, err
				}
				templates[tid] = t
			}
			it.TemplateID, it.Template = &tid, t
			if it.ItemType == "" {
				it.ItemType = t.ItemType
			}
			for _, msg := range validateValues(t, it.Measurements) {
				verr.Add("items", label+msg)
			}
		}
		if it.ItemType == "" {
			it.ItemType = models.ItemOther
		}
		if !it.ItemType.Valid() {
			verr.Add("items", label+"invalid item type.")
		}
		out = append(out, it)
	}
	return out, nil
}

func orderLines(items []models.OrderItem) []pricing.Line {
	out := make([]pricing.Line, len(items))
	for i, it := range items {
		out[i] = pricing.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return out
}

func isConflict(err error) bool {
	var st *apperr.Status
	return errors.As(err, &st) && st.Code == http.StatusConflict
}
