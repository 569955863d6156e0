package models

import "github.com/google/uuid"

type Customer struct {
	Base
	SoftDelete
	ShopID         uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	CreatedByID    *uint     `json:"created_by,omitempty"`
	Name           string    `gorm:"size:200;not null" json:"name"`
	Phone          string    `gorm:"size:20;not null;index" json:"phone"`
	AlternatePhone string    `gorm:"size:20" json:"alternate_phone"`
	Email          string    `json:"email"`
	Address        string    `gorm:"type:text" json:"address"`
}
