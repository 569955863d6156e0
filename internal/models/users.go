package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Role is the user's role inside their shop.
type Role string

const (
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
)

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	Username     string     `gorm:"uniqueIndex;not null" json:"username"`
	Name         string     `gorm:"size:100" json:"name"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         Role       `gorm:"type:varchar(16);not null;default:'owner'" json:"role"`
	ShopID       *uuid.UUID `gorm:"type:uuid;index" json:"shop_id"`
	Shop         *Shop      `json:"-"`
	IsStaff      bool       `json:"is_staff"`
	IsSuperuser  bool       `json:"is_superuser"`

	PaymentInfo `gorm:"embedded"`

	Is2FAEnabled bool       `gorm:"column:is_2fa_enabled" json:"is_2fa_enabled"`
	OTPCode      string     `gorm:"size:6" json:"-"`
	OTPExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentInfo is printed on quotations and invoices.
type PaymentInfo struct {
	BankName      string `json:"bank_name"`
	BranchName    string `json:"branch_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	IFSCCode      string `gorm:"column:ifsc_code" json:"ifsc_code"`
	GPayPhonePe   string `gorm:"column:gpay_phonepe" json:"gpay_phonepe"`
}

// CanRewindOrders reports whether the user may move an order back to an
// earlier status.
func (u *User) CanRewindOrders() bool { return u.IsStaff || u.IsSuperuser }

// AuthToken is the API key handed out on login.
type AuthToken struct {
	Key       string    `gorm:"primaryKey;size:40" json:"key"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"-"`
	User      *User     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTokenKey returns 40 random hex characters.
func NewTokenKey() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashPassword turns a plain password into a bcrypt hash.
func HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPassword compares a plain password with its hash.
func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
