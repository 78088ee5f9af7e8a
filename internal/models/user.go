package models

import (
	"time"
)

// User is the local identity row carrying role flags. Credentials live in
// Authorizer; this table only records who can be referenced as creator,
// responsable or RO on missions and gammes.
type User struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email     string    `gorm:"size:254" json:"email,omitempty"`
	FirstName string    `gorm:"size:150" json:"firstName,omitempty"`
	LastName  string    `gorm:"size:150" json:"lastName,omitempty"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"isAdmin"`
	IsOp      bool      `gorm:"not null;default:false" json:"isOp"`
	IsRs      bool      `gorm:"not null;default:false" json:"isRs"`
	IsRo      bool      `gorm:"not null;default:false" json:"isRo"`
	CreatedAt time.Time `json:"dateCreation"`
	UpdatedAt time.Time `json:"dateMiseAJour"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
