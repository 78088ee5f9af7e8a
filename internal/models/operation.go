package models

import (
	"time"
)

// Operation represents one ordered step within a gamme's checklist
type Operation struct {
	OperationID uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	GammeID     uint   `gorm:"not null;uniqueIndex:idx_operation_ordre" json:"gammeId"`
	Ordre       int    `gorm:"not null;default:1;uniqueIndex:idx_operation_ordre" json:"ordre"`
	Titre       string `gorm:"size:100;not null;default:'Nouvelle opération'" json:"titre"`
	Description string `gorm:"type:text" json:"description"`
	Criteres    string `gorm:"type:text" json:"criteres"`
	// MoyenControle is the free-text instrument reference kept alongside the catalog links
	MoyenControle string    `gorm:"size:255" json:"moyenControle,omitempty"`
	Frequence     int       `gorm:"not null;default:1" json:"frequence"`
	CreatedAt     time.Time `json:"dateCreation"`
	UpdatedAt     time.Time `json:"dateMiseAJour"`
	CreatedByID   uint      `gorm:"not null" json:"createdBy"`
	UpdatedByID   *uint     `json:"updatedBy,omitempty"`

	Moyens []MoyenControle  `gorm:"many2many:operation_moyens;" json:"moyens,omitempty"`
	Photos []OperationPhoto `gorm:"foreignKey:OperationID;constraint:OnDelete:CASCADE" json:"photos,omitempty"`
}

// TableName overrides the table name for Operation
func (Operation) TableName() string {
	return "operations"
}
