package service

import (
	"context"
	"net/mail"
	"strings"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/models"
	"stitchdesk/internal/repository"
)

type CustomerRequest struct {
	Name           *string `json:"name" binding:"omitempty,max=200"`
	Phone          *string `json:"phone" binding:"omitempty,phone"`
	AlternatePhone *string `json:"alternate_phone" binding:"omitempty,phone"`
	Email          *string `json:"email"`
	Address        *string `json:"address"`
}

type CustomerService struct {
	Customers repository.CustomerRepository
	Limits    LimitEnforcer
}

func (s *CustomerService) Create(ctx context.Context, u *models.User, req CustomerRequest) (*models.Customer, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	n, err := s.Customers.Count(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if err := s.Limits.Enforce(ctx, u, models.ResourceCustomers, n); err != nil {
		return nil, err
	}
	c := &models.Customer{ShopID: shopID, CreatedByID: &u.ID}
	if err := applyCustomer(c, req, true); err != nil {
		return nil, err
	}
	return c, s.Customers.Create(ctx, c)
}

func (s *CustomerService) Get(ctx context.Context, u *models.User, id string) (*models.Customer, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	cid, err := parseID("customer", id)
	if err != nil {
		return nil, err
	}
	c, err := s.Customers.Get(ctx, shopID, cid)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Update applies the fields present in req. With full set, name and phone
// must be present as on create.
func (s *CustomerService) Update(ctx context.Context, u *models.User, id string, req CustomerRequest, full bool) (*models.Customer, error) {
	c, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if err := applyCustomer(c, req, full); err != nil {
		return nil, err
	}
	return c, s.Customers.Save(ctx, c)
}

func (s *CustomerService) Delete(ctx context.Context, u *models.User, id string) error {
	shopID, err := shopOf(u)
	if err != nil {
		return err
	}
	cid, err := parseID("customer", id)
	if err != nil {
		return err
	}
	return s.Customers.Delete(ctx, shopID, cid)
}

func (s *CustomerService) List(ctx context.Context, u *models.User, search string, p repository.PageRequest) (repository.Page[models.Customer], error) {
	shopID, err := shopOf(u)
	if err != nil {
		return repository.Page[models.Customer]{}, err
	}
	return s.Customers.List(ctx, shopID, search, p)
}

func applyCustomer(c *models.Customer, req CustomerRequest, requireAll bool) error {
	verr := &apperr.Validation{}
	if req.Name != nil || requireAll {
		name := ""
		if req.Name != nil {
			name = strings.TrimSpace(*req.Name)
		}
		if name == "" {
			verr.Add("name", "Name is required.")
		}
		c.Name = name
	}
	if req.Phone != nil || requireAll {
		phone := ""
		if req.Phone != nil {
			phone = strings.TrimSpace(*req.Phone)
		}
		if phone == "" {
			verr.Add("phone", "Phone number is required.")
		}
		c.Phone = phone
	}
	setString(&c.AlternatePhone, req.AlternatePhone)
	setString(&c.Address, req.Address)
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				verr.Add("email", "Enter a valid email address.")
			}
		}
		c.Email = email
	}
	return verr.OrNil()
}
