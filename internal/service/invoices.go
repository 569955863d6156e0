package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
	"stitchdesk/internal/numbering"
	"stitchdesk/internal/pricing"
	"stitchdesk/internal/repository"
)

type InvoiceItemRequest struct {
	ItemDescription string             `json:"item_description"`
	Quantity        *int               `json:"quantity"`
	Unit            models.InvoiceUnit `json:"unit"`
	UnitPrice       *decimal.Decimal   `json:"unit_price"`
	Amount          *decimal.Decimal   `json:"amount"`
	OrderItem       *string            `json:"order_item"`
}

type InvoiceRequest struct {
	InvoiceDate        *models.Date          `json:"invoice_date"`
	Order              *string               `json:"order"`
	Customer           *string               `json:"customer"`
	CustomerAddress    *string               `json:"customer_address"`
	GSTType            *string               `json:"gst_type"`
	CGSTPercent        *decimal.Decimal      `json:"cgst_percent"`
	SGSTPercent        *decimal.Decimal      `json:"sgst_percent"`
	IGSTPercent        *decimal.Decimal      `json:"igst_percent"`
	Notes              *string               `json:"notes"`
	TermsAndConditions *string               `json:"terms_and_conditions"`
	Items              *[]InvoiceItemRequest `json:"items"`
}

type InvoiceService struct {
	Invoices  repository.InvoiceRepository
	Orders    repository.OrderRepository
	Customers repository.CustomerRepository
	Shops     repository.ShopRepository
	Now       func() time.Time
}

func (s *InvoiceService) Create(ctx context.Context, u *models.User, req InvoiceRequest) (*models.Invoice, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	shop, err := s.Shops.Get(ctx, shopID)
	if err != nil {
		return nil, err
	}
	inv := &models.Invoice{
		ShopID:             shopID,
		InvoiceDate:        models.NewDate(s.Now()),
		CreatedByID:        &u.ID,
		TermsAndConditions: models.DefaultInvoiceTerms,
		CGSTPercent:        decimal.Ptr(shop.DefaultCGSTPercent),
		SGSTPercent:        decimal.Ptr(shop.DefaultSGSTPercent),
		IGSTPercent:        decimal.Ptr(shop.DefaultIGSTPercent),
	}
	if req.Items == nil {
		req.Items = &[]InvoiceItemRequest{}
	}
	if err := s.apply(ctx, inv, req, true); err != nil {
		return nil, err
	}

	key := numbering.SeriesKey(shop.InvoiceNumberingFormat, shop.InvoicePrefix)
	for attempt := 1; ; attempt++ {
		last, err := s.Invoices.LastNumber(ctx, shopID, key)
		if err != nil {
			return nil, err
		}
		inv.InvoiceNumber = numbering.Format(shop.InvoiceNumberingFormat, shop.InvoicePrefix, numbering.NextSeq(key, last))
		err = s.Invoices.Create(ctx, inv)
		if err == nil {
			break
		}
		if !isConflict(err) || attempt == numberAttempts {
			return nil, err
		}
	}
	return s.Invoices.Get(ctx, shopID, inv.ID)
}

func (s *InvoiceService) Get(ctx context.Context, u *models.User, id string) (*models.Invoice, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	iid, err := parseID("invoice", id)
	if err != nil {
		return nil, err
	}
	return s.Invoices.Get(ctx, shopID, iid)
}

// Document returns the invoice together with the shop it is printed for.
func (s *InvoiceService) Document(ctx context.Context, u *models.User, id string) (*models.Invoice, *models.Shop, error) {
	inv, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, nil, err
	}
	shop, err := s.Shops.Get(ctx, inv.ShopID)
	if err != nil {
		return nil, nil, err
	}
	return inv, shop, nil
}

func (s *InvoiceService) Update(ctx context.Context, u *models.User, id string, req InvoiceRequest) (*models.Invoice, error) {
	inv, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, inv, req, false); err != nil {
		return nil, err
	}
	if err := s.Invoices.Update(ctx, inv, req.Items != nil); err != nil {
		return nil, err
	}
	return s.Invoices.Get(ctx, inv.ShopID, inv.ID)
}

func (s *InvoiceService) Delete(ctx context.Context, u *models.User, id string) error {
	shopID, err := shopOf(u)
	if err != nil {
		return err
	}
	iid, err := parseID("invoice", id)
	if err != nil {
		return err
	}
	return s.Invoices.Delete(ctx, shopID, iid)
}

type InvoiceQuery struct {
	Customer string
	Order    string
	Search   string
}

func (s *InvoiceService) List(ctx context.Context, u *models.User, q InvoiceQuery, p repository.PageRequest) (repository.Page[models.Invoice], error) {
	shopID, err := shopOf(u)
	if err != nil {
		return repository.Page[models.Invoice]{}, err
	}
	f := repository.InvoiceFilter{Search: q.Search}
	if f.CustomerID, err = parseOptionalID("customer", q.Customer); err != nil {
		return repository.Page[models.Invoice]{}, err
	}
	if f.OrderID, err = parseOptionalID("order", q.Order); err != nil {
		return repository.Page[models.Invoice]{}, err
	}
	return s.Invoices.List(ctx, shopID, f, p)
}

// PopulateFromOrder replaces the invoice lines with one line per item of the
// linked order.
func (s *InvoiceService) PopulateFromOrder(ctx context.Context, u *models.User, id string) (*models.Invoice, error) {
	inv, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if inv.OrderID == nil {
		return nil, apperr.BadRequest("No order linked to this invoice")
	}
	o, err := s.Orders.Get(ctx, inv.ShopID, *inv.OrderID)
	if err != nil {
		return nil, err
	}
	inv.Items = itemsFromOrder(o)
	recomputeInvoice(inv)
	if err := s.Invoices.Update(ctx, inv, true); err != nil {
		return nil, err
	}
	return s.Invoices.Get(ctx, inv.ShopID, inv.ID)
}

func itemsFromOrder(o *models.Order) []models.InvoiceItem {
	out := make([]models.InvoiceItem, 0, len(o.Items))
	for _, it := range o.Items {
		desc := string(it.ItemType)
		if it.Template != nil && it.Template.Name != "" {
			desc = it.Template.Name
		}
		price := decimal.Or(it.UnitPrice, decimal.Zero)
		itemID := it.ID
		out = append(out, models.InvoiceItem{
			ItemDescription: desc,
			Quantity:        it.Quantity,
			Unit:            models.UnitPCS,
			UnitPrice:       price,
			Amount:          pricing.LineAmount(it.Quantity, price),
			OrderItemID:     &itemID,
		})
	}
	return out
}

func recomputeInvoice(inv *models.Invoice) {
	var sub decimal.Decimal
	for _, it := range inv.Items {
		sub = sub.Add(it.Amount)
	}
	tax := pricing.GST(sub, inv.GSTType, pricing.Rates{
		CGST: decimal.Or(inv.CGSTPercent, decimal.Zero),
		SGST: decimal.Or(inv.SGSTPercent, decimal.Zero),
		IGST: decimal.Or(inv.IGSTPercent, decimal.Zero),
	})
	inv.Subtotal = sub
	inv.CGSTAmount, inv.SGSTAmount, inv.IGSTAmount = tax.CGST, tax.SGST, tax.IGST
	inv.TaxAmount = tax.Total
	inv.TotalAmount = sub.Add(tax.Total)
}

func (s *InvoiceService) apply(ctx context.Context, inv *models.Invoice, req InvoiceRequest, creating bool) error {
	verr := &apperr.Validation{}

	if req.InvoiceDate != nil && !req.InvoiceDate.IsZero() {
		inv.InvoiceDate = *req.InvoiceDate
	}
	if req.Order != nil {
		if err := s.setOrder(ctx, inv, *req.Order, verr); err != nil {
			return err
		}
	}
	if req.Customer != nil && *req.Customer != "" {
		if err := s.setCustomer(ctx, inv, *req.Customer, verr); err != nil {
			return err
		}
	}
	if inv.Order != nil && inv.CustomerID == uuid.Nil {
		inv.CustomerID, inv.Customer = inv.Order.CustomerID, inv.Order.Customer
	}
	if inv.Order != nil && inv.CustomerID != inv.Order.CustomerID {
		verr.Add("customer", "Customer must match the order's customer.")
	}
	if creating && inv.CustomerID == uuid.Nil {
		verr.Add("customer", "This field is required.")
	}
	setString(&inv.CustomerAddress, req.CustomerAddress)
	if inv.CustomerAddress == "" && inv.Customer != nil {
		inv.CustomerAddress = inv.Customer.Address
	}

	if req.GSTType != nil {
		switch t := strings.TrimSpace(*req.GSTType); t {
		case models.GSTIntrastate, models.GSTInterstate, "none", "":
			inv.GSTType = t
		default:
			verr.Add("gst_type", "Must be intrastate, interstate or none.")
		}
	}
	for field, pair := range map[string]struct {
		in  *decimal.Decimal
		out **decimal.Decimal
	}{
		"cgst_percent": {req.CGSTPercent, &inv.CGSTPercent},
		"sgst_percent": {req.SGSTPercent, &inv.SGSTPercent},
		"igst_percent": {req.IGSTPercent, &inv.IGSTPercent},
	} {
		if pair.in == nil {
			continue
		}
		if pair.in.IsNegative() || pair.in.Cmp(decimal.FromInt(100)) > 0 {
			verr.Add(field, "Must be between 0 and 100.")
		}
		*pair.out = decimal.Ptr(*pair.in)
	}
	setString(&inv.Notes, req.Notes)
	if req.TermsAndConditions != nil {
		inv.TermsAndConditions = *req.TermsAndConditions
	}

	if req.Items != nil {
		if len(*req.Items) == 0 {
			verr.Add("items", "At least one item is required.")
		}
		allowed, err := s.orderItemIDs(ctx, inv)
		if err != nil {
			return err
		}
		inv.Items = buildInvoiceItems(*req.Items, allowed, verr)
	}
	if err := verr.OrNil(); err != nil {
		return err
	}
	recomputeInvoice(inv)
	return nil
}

func (s *InvoiceService) setOrder(ctx context.Context, inv *models.Invoice, raw string, verr *apperr.Validation) error {
	if raw == "" {
		inv.OrderID, inv.Order = nil, nil
		return nil
	}
	oid, err := uuid.Parse(raw)
	if err != nil {
		verr.Add("order", "Invalid order.")
		return nil
	}
	o, err := s.Orders.Get(ctx, inv.ShopID, oid)
	if apperr.IsNotFound(err) {
		verr.Add("order", "Order does not belong to your shop.")
		return nil
	}
	if err != nil {
		return err
	}
	inv.OrderID, inv.Order = &oid, o
	return nil
}

func (s *InvoiceService) setCustomer(ctx context.Context, inv *models.Invoice, raw string, verr *apperr.Validation) error {
	cid, err := uuid.Parse(raw)
	if err != nil {
		verr.Add("customer", "Invalid customer.")
		return nil
	}
	c, err := s.Customers.Get(ctx, inv.ShopID, cid)
	if apperr.IsNotFound(err) {
		verr.Add("customer", "Customer does not belong to your shop.")
		return nil
	}
	if err != nil {
		return err
	}
	inv.CustomerID, inv.Customer = c.ID, c
	return nil
}

// orderItemIDs lists the items of the linked order; lines may only point
// at those. Nil means no order is linked.
func (s *InvoiceService) orderItemIDs(ctx context.Context, inv *models.Invoice) (map[uuid.UUID]bool, error) {
	if inv.OrderID == nil {
		return nil, nil
	}
	o := inv.Order
	if o == nil || len(o.Items) == 0 {
		var err error
		o, err = s.Orders.Get(ctx, inv.ShopID, *inv.OrderID)
		if apperr.IsNotFound(err) {
			return map[uuid.UUID]bool{}, nil
		}
		if err != nil {
			return nil, err
		}
	}
	ids := make(map[uuid.UUID]bool, len(o.Items))
	for _, it := range o.Items {
		ids[it.ID] = true
	}
	return ids, nil
}

func buildInvoiceItems(reqs []InvoiceItemRequest, orderItems map[uuid.UUID]bool, verr *apperr.Validation) []models.InvoiceItem {
	out := make([]models.InvoiceItem, 0, len(reqs))
	for i, r := range reqs {
		label := fmt.Sprintf("Item %d: ", i+1)
		it := models.InvoiceItem{
			ItemDescription: strings.TrimSpace(r.ItemDescription),
			Quantity:        1,
			Unit:            r.Unit,
			UnitPrice:       decimal.Or(r.UnitPrice, decimal.Zero),
		}
		if it.ItemDescription == "" {
			verr.Add("items", label+"description is required.")
		}
		if r.Quantity != nil {
			it.Quantity = *r.Quantity
		}
		if it.Quantity < 1 {
			verr.Add("items", label+"quantity must be at least 1.")
		}
		if it.Unit == "" {
			it.Unit = models.UnitPCS
		}
		if !it.Unit.Valid() {
			verr.Add("items", label+"unit must be one of PCS, SET, PAIR, MTR.")
		}
		if it.UnitPrice.IsNegative() {
			verr.Add("items", label+"unit price must not be negative.")
		}
		it.Amount = decimal.Or(r.Amount, pricing.LineAmount(it.Quantity, it.UnitPrice))
		if it.Amount.IsNegative() {
			verr.Add("items", label+"amount must not be negative.")
		}
		if r.OrderItem != nil && *r.OrderItem != "" {
			id, err := uuid.Parse(*r.OrderItem)
			switch {
			case err != nil:
				verr.Add("items", label+"invalid order item.")
			case orderItems == nil:
				verr.Add("items", label+"order item requires a linked order.")
			case !orderItems[id]:
				verr.Add("items", label+"order item does not belong to the linked order.")
			default:
				it.OrderItemID = &id
			}
		}
		out = append(out, it)
	}
	return out
}
