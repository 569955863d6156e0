package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stitchdesk/internal/models"
)

type UserRepository interface {
	// Register stores a new shop, its owner, default payment methods and the
	// trial subscription in one transaction.
	Register(ctx context.Context, shop *models.Shop, u *models.User, methods []models.PaymentMethod, sub *models.Subscription) error
	Create(ctx context.Context, u *models.User) error
	Save(ctx context.Context, u *models.User) error
	ByID(ctx context.Context, id uint) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByShop(ctx context.Context, shopID uuid.UUID) ([]models.User, error)
	ShopOwner(ctx context.Context, shopID uuid.UUID) (*models.User, error)
	CountStaff(ctx context.Context, shopID uuid.UUID) (int64, error)
	EmailTaken(ctx context.Context, email string) (bool, error)

	IssueToken(ctx context.Context, userID uint) (*models.AuthToken, error)
	ByToken(ctx context.Context, key string) (*models.User, error)
	DeleteToken(ctx context.Context, userID uint) error
}

type ShopRepository interface {
	Create(ctx context.Context, s *models.Shop) error
	Get(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	Save(ctx context.Context, s *models.Shop) error

	PaymentMethods(ctx context.Context, shopID uuid.UUID) ([]models.PaymentMethod, error)
	PaymentMethod(ctx context.Context, shopID, id uuid.UUID) (*models.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error
	SavePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error
	DeletePaymentMethod(ctx context.Context, shopID, id uuid.UUID) error
}

type Users struct{ db *gorm.DB }

var _ UserRepository = (*Users)(nil)

func NewUsers(db *gorm.DB) *Users { return &Users{db: db} }

func (r *Users) Register(ctx context.Context, shop *models.Shop, u *models.User, methods []models.PaymentMethod, sub *models.Subscription) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(shop).Error; err != nil {
			return err
		}
		u.ShopID = &shop.ID
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		for i := range methods {
			methods[i].ShopID = shop.ID
		}
		if len(methods) > 0 {
			if err := tx.Create(&methods).Error; err != nil {
				return err
			}
		}
		if sub != nil {
			sub.UserID = u.ID
			if err := tx.Create(sub).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return wrap(err, "user", u.Email, "register")
}

func (r *Users) Create(ctx context.Context, u *models.User) error {
	return wrap(r.db.WithContext(ctx).Create(u).Error, "user", u.Email, "create user")
}

func (r *Users) Save(ctx context.Context, u *models.User) error {
	return wrap(r.db.WithContext(ctx).Omit("Shop").Save(u).Error, "user", u.ID, "save user")
}

func (r *Users) ByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	return &u, wrap(err, "user", id, "get user")
}

func (r *Users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&u).Error
	return &u, wrap(err, "user", email, "get user by email")
}

func (r *Users) ByShop(ctx context.Context, shopID uuid.UUID) ([]models.User, error) {
	var out []models.User
	err := r.db.WithContext(ctx).Where("shop_id = ?", shopID).Order("id").Find(&out).Error
	return out, wrap(err, "user", nil, "list shop users")
}

func (r *Users) ShopOwner(ctx context.Context, shopID uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND role = ?", shopID, models.RoleOwner).
		Order("id").First(&u).Error
	return &u, wrap(err, "shop owner", shopID, "get shop owner")
}

func (r *Users) CountStaff(ctx context.Context, shopID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("shop_id = ? AND role = ?", shopID, models.RoleStaff).Count(&n).Error
	return n, wrap(err, "user", nil, "count staff")
}

func (r *Users) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("LOWER(email) = LOWER(?)", email).Count(&n).Error
	return n > 0, wrap(err, "user", email, "check email")
}

// IssueToken returns the user's token, creating it on first login.
func (r *Users) IssueToken(ctx context.Context, userID uint) (*models.AuthToken, error) {
	var t models.AuthToken
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&t).Error
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrap(err, "token", userID, "get token")
	}
	key, err := models.NewTokenKey()
	if err != nil {
		return nil, err
	}
	t = models.AuthToken{Key: key, UserID: userID}
	return &t, wrap(r.db.WithContext(ctx).Create(&t).Error, "token", userID, "create token")
}

func (r *Users) ByToken(ctx context.Context, key string) (*models.User, error) {
	var t models.AuthToken
	err := r.db.WithContext(ctx).Preload("User").Where(&models.AuthToken{Key: key}).First(&t).Error
	if err != nil {
		return nil, wrap(err, "token", nil, "get token")
	}
	return t.User, nil
}

func (r *Users) DeleteToken(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.AuthToken{}).Error
	return wrap(err, "token", userID, "delete token")
}

type Shops struct{ db *gorm.DB }

var _ ShopRepository = (*Shops)(nil)

func NewShops(db *gorm.DB) *Shops { return &Shops{db: db} }

func (r *Shops) Create(ctx context.Context, s *models.Shop) error {
	return wrap(r.db.WithContext(ctx).Create(s).Error, "shop", nil, "create shop")
}

func (r *Shops) Get(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var s models.Shop
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, wrap(err, "shop", id, "get shop")
}

func (r *Shops) Save(ctx context.Context, s *models.Shop) error {
	return wrap(r.db.WithContext(ctx).Omit("PaymentMethods").Save(s).Error, "shop", s.ID, "save shop")
}

func (r *Shops) PaymentMethods(ctx context.Context, shopID uuid.UUID) ([]models.PaymentMethod, error) {
	var out []models.PaymentMethod
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Order("name").Find(&out).Error
	return out, wrap(err, "payment method", nil, "list payment methods")
}

func (r *Shops) PaymentMethod(ctx context.Context, shopID, id uuid.UUID) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	err := r.db.WithContext(ctx).Scopes(shopScope(shopID)).First(&pm, "id = ?", id).Error
	return &pm, wrap(err, "payment method", id, "get payment method")
}

func (r *Shops) CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	return wrap(r.db.WithContext(ctx).Create(pm).Error, "payment method", nil, "create payment method")
}

func (r *Shops) SavePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	return wrap(r.db.WithContext(ctx).Save(pm).Error, "payment method", pm.ID, "save payment method")
}

func (r *Shops) DeletePaymentMethod(ctx context.Context, shopID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(shopScope(shopID)).Where("id = ?", id).Delete(&models.PaymentMethod{})
	return deleted(res, "payment method", id)
}
