package service

import (
	"context"
	"mime/multipart"
	"slices"
	"strings"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/decimal"
	"stitchdesk/internal/models"
	"stitchdesk/internal/repository"
)

type BusinessSettings struct {
	ShopName    *string `json:"shop_name" form:"shop_name"`
	PhoneNumber *string `json:"phone_number" form:"phone_number" binding:"omitempty,phone"`
	Email       *string `json:"email" form:"email" binding:"omitempty,email"`
	FullAddress *string `json:"full_address" form:"full_address"`
	GSTNumber   *string `json:"gst_number" form:"gst_number" binding:"omitempty,max=20"`
}

type OrderSettings struct {
	DeliveryDurationDays *int `json:"delivery_duration_days" binding:"omitempty,min=1,max=365"`
}

type InvoiceSettings struct {
	InvoicePrefix          *string          `json:"invoice_prefix" binding:"omitempty,max=50"`
	QuotationPrefix        *string          `json:"quotation_prefix" binding:"omitempty,max=50"`
	DefaultCurrency        *string          `json:"default_currency"`
	InvoiceNumberingFormat *string          `json:"invoice_numbering_format" binding:"omitempty,max=100"`
	DefaultTaxType         *string          `json:"default_tax_type"`
	DefaultCGSTPercent     *decimal.Decimal `json:"default_cgst_percent"`
	DefaultSGSTPercent     *decimal.Decimal `json:"default_sgst_percent"`
	DefaultIGSTPercent     *decimal.Decimal `json:"default_igst_percent"`
	ShowTaxOnInvoice       *bool            `json:"show_tax_on_invoice"`
	InvoiceTemplate        *string          `json:"invoice_template"`
}

type PaymentInfoRequest struct {
	BankName      *string `json:"bank_name"`
	BranchName    *string `json:"branch_name"`
	AccountName   *string `json:"account_name"`
	AccountNumber *string `json:"account_number"`
	IFSCCode      *string `json:"ifsc_code"`
	GPayPhonePe   *string `json:"gpay_phonepe"`
}

type PrefixSettings struct {
	QuotationPrefix *string `json:"quotation_prefix" binding:"omitempty,max=50"`
	InvoicePrefix   *string `json:"invoice_prefix" binding:"omitempty,max=50"`
}

type PaymentMethodRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=50"`
	IsActive *bool   `json:"is_active"`
}

type StaffRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type SettingsService struct {
	Users  repository.UserRepository
	Shops  repository.ShopRepository
	Media  MediaStore
	Limits LimitEnforcer
}

// EnsureShop gives a user without a shop a fresh one.
func (s *SettingsService) EnsureShop(ctx context.Context, u *models.User) (*models.Shop, error) {
	if u.ShopID != nil {
		return s.Shops.Get(ctx, *u.ShopID)
	}
	shop := models.NewShop("My Shop")
	if err := s.Shops.Create(ctx, shop); err != nil {
		return nil, err
	}
	u.ShopID = &shop.ID
	if err := s.Users.Save(ctx, u); err != nil {
		return nil, err
	}
	return shop, nil
}

func (s *SettingsService) Shop(ctx context.Context, u *models.User) (*models.Shop, error) {
	shop, err := s.EnsureShop(ctx, u)
	if err != nil {
		return nil, err
	}
	shop.PaymentMethods, err = s.Shops.PaymentMethods(ctx, shop.ID)
	return shop, err
}

func (s *SettingsService) UpdateBusiness(ctx context.Context, u *models.User, req BusinessSettings, logo *multipart.FileHeader) (*models.Shop, error) {
	shop, err := s.EnsureShop(ctx, u)
	if err != nil {
		return nil, err
	}
	if req.ShopName != nil {
		name := strings.TrimSpace(*req.ShopName)
		if name == "" {
			return nil, apperr.Invalid("shop_name", "This field may not be blank.")
		}
		shop.ShopName = name
	}
	setString(&shop.PhoneNumber, req.PhoneNumber)
	setString(&shop.Email, req.Email)
	setString(&shop.FullAddress, req.FullAddress)
	setString(&shop.GSTNumber, req.GSTNumber)
	if logo != nil {
		path, err := s.Media.SaveImage(logo, "shop_logos")
		if err != nil {
			return nil, apperr.Invalid("logo", err.Error())
		}
		if shop.LogoPath != "" {
			_ = s.Media.Remove(shop.LogoPath)
		}
		shop.LogoPath = path
	}
	return shop, s.Shops.Save(ctx, shop)
}

func (s *SettingsService) UpdateOrder(ctx context.Context, u *models.User, req OrderSettings) (*models.Shop, error) {
	shop, err := s.EnsureShop(ctx, u)
	if err != nil {
		return nil, err
	}
	if req.DeliveryDurationDays != nil {
		shop.DeliveryDurationDays = *req.DeliveryDurationDays
	}
	return shop, s.Shops.Save(ctx, shop)
}

func (s *SettingsService) UpdateInvoice(ctx context.Context, u *models.User, req InvoiceSettings) (*models.Shop, error) {
	shop, err := s.EnsureShop(ctx, u)
	if err != nil {
		return nil, err
	}
	verr := &apperr.Validation{}
	setString(&shop.InvoicePrefix, req.InvoicePrefix)
	setString(&shop.QuotationPrefix, req.QuotationPrefix)
	if req.DefaultCurrency != nil {
		if !slices.Contains(models.Currencies, *req.DefaultCurrency) {
			verr.Add("default_currency", "Unsupported currency.")
		}
		shop.DefaultCurrency = *req.DefaultCurrency
	}
	if req.InvoiceNumberingFormat != nil {
		if !strings.Contains(*req.InvoiceNumberingFormat, "{number}") {
			verr.Add("invoice_numbering_format", "Format must contain {number}.")
		}
		shop.InvoiceNumberingFormat = *req.InvoiceNumberingFormat
	}
	if req.DefaultTaxType != nil {
		if *req.DefaultTaxType != models.TaxTypeGST && *req.DefaultTaxType != models.TaxTypeNonGST {
			verr.Add("default_tax_type", "Must be GST or NON_GST.")
		}
		shop.DefaultTaxType = *req.DefaultTaxType
	}
	for field, pair := range map[string]struct {
		in  *decimal.Decimal
		out *decimal.Decimal
	}{
		"default_cgst_percent": {req.DefaultCGSTPercent, &shop.DefaultCGSTPercent},
		"default_sgst_percent": {req.DefaultSGSTPercent, &shop.DefaultSGSTPercent},
		"default_igst_percent": {req.DefaultIGSTPercent, &shop.DefaultIGSTPercent},
	} {
		if pair.in == nil {
			continue
		}
		if pair.in.IsNegative() || pair.in.Cmp(decimal.FromInt(100)) > 0 {
			verr.Add(field, "Must be between 0 and 100.")
		}
		*pair.out = *pair.in
	}
	if req.ShowTaxOnInvoice != nil {
		shop.ShowTaxOnInvoice = *req.ShowTaxOnInvoice
	}
	if req.InvoiceTemplate != nil {
		if !slices.Contains(models.InvoiceTemplates, *req.InvoiceTemplate) {
			verr.Add("invoice_template", "Must be one of classic, modern, minimal, elegant.")
		}
		shop.InvoiceTemplate = *req.InvoiceTemplate
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return shop, s.Shops.Save(ctx, shop)
}

func (s *SettingsService) UpdatePaymentInfo(ctx context.Context, u *models.User, req PaymentInfoRequest) (*models.PaymentInfo, error) {
	setString(&u.BankName, req.BankName)
	setString(&u.BranchName, req.BranchName)
	setString(&u.AccountName, req.AccountName)
	setString(&u.AccountNumber, req.AccountNumber)
	setString(&u.IFSCCode, req.IFSCCode)
	setString(&u.GPayPhonePe, req.GPayPhonePe)
	return &u.PaymentInfo, s.Users.Save(ctx, u)
}

func (s *SettingsService) UpdatePrefixes(ctx context.Context, u *models.User, req PrefixSettings) (*models.Shop, error) {
	shop, err := s.EnsureShop(ctx, u)
	if err != nil {
		return nil, err
	}
	setString(&shop.QuotationPrefix, req.QuotationPrefix)
	setString(&shop.InvoicePrefix, req.InvoicePrefix)
	return shop, s.Shops.Save(ctx, shop)
}

func (s *SettingsService) PaymentMethods(ctx context.Context, u *models.User) ([]models.PaymentMethod, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	return s.Shops.PaymentMethods(ctx, shopID)
}

func (s *SettingsService) CreatePaymentMethod(ctx context.Context, u *models.User, req PaymentMethodRequest) (*models.PaymentMethod, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, apperr.Invalid("name", "This field is required.")
	}
	pm := &models.PaymentMethod{ShopID: shopID, Name: strings.TrimSpace(*req.Name), IsActive: true}
	if req.IsActive != nil {
		pm.IsActive = *req.IsActive
	}
	return pm, s.Shops.CreatePaymentMethod(ctx, pm)
}

func (s *SettingsService) UpdatePaymentMethod(ctx context.Context, u *models.User, id string, req PaymentMethodRequest) (*models.PaymentMethod, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	pmID, err := parseID("payment method", id)
	if err != nil {
		return nil, err
	}
	pm, err := s.Shops.PaymentMethod(ctx, shopID, pmID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Invalid("name", "This field may not be blank.")
		}
		pm.Name = name
	}
	if req.IsActive != nil {
		pm.IsActive = *req.IsActive
	}
	return pm, s.Shops.SavePaymentMethod(ctx, pm)
}

func (s *SettingsService) DeletePaymentMethod(ctx context.Context, u *models.User, id string) error {
	shopID, err := shopOf(u)
	if err != nil {
		return err
	}
	pmID, err := parseID("payment method", id)
	if err != nil {
		return err
	}
	return s.Shops.DeletePaymentMethod(ctx, shopID, pmID)
}

func (s *SettingsService) Staff(ctx context.Context, u *models.User) ([]models.User, error) {
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	return s.Users.ByShop(ctx, shopID)
}

// CreateStaff adds a staff login to the owner's shop.
func (s *SettingsService) CreateStaff(ctx context.Context, u *models.User, req StaffRequest) (*models.User, error) {
	if u.Role != models.RoleOwner && !u.IsSuperuser {
		return nil, apperr.Forbidden("Only the shop owner can add staff")
	}
	shopID, err := shopOf(u)
	if err != nil {
		return nil, err
	}
	n, err := s.Users.CountStaff(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if err := s.Limits.Enforce(ctx, u, models.ResourceStaff, n); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	taken, err := s.Users.EmailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Invalid("email", "User with this email already exists")
	}
	hash, err := models.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	staff := &models.User{
		Email:        email,
		Username:     email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         models.RoleStaff,
		ShopID:       &shopID,
	}
	return staff, s.Users.Create(ctx, staff)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
