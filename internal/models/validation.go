package models

import (
	"time"
)

// Validation records that a gamme was signed off by an RO user, optionally
// countersigned by a client user later.
type Validation struct {
	ValidationID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	GammeID              uint       `gorm:"not null;index" json:"gammeId"`
	UserROID             uint       `gorm:"not null" json:"userRo"`
	DateValidationRO     time.Time  `gorm:"autoCreateTime" json:"dateValidationRo"`
	UserClientID         *uint      `json:"userClient,omitempty"`
	DateValidationClient *time.Time `json:"dateValidationClient,omitempty"`
	Commentaire          string     `gorm:"type:text" json:"commentaire,omitempty"`
}

// TableName overrides the table name for Validation
func (Validation) TableName() string {
	return "validations"
}
