package models

// Epi is a personal protective equipment catalog entry
type Epi struct {
	EpiID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Nom         string `gorm:"size:100;not null" json:"nom"`
	PhotoPath   string `gorm:"size:255" json:"photoPath,omitempty"`
	Commentaire string `gorm:"type:text" json:"commentaire,omitempty"`
}

// MoyenControle is a control instrument catalog entry
type MoyenControle struct {
	MoyenID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Nom       string `gorm:"size:100;not null" json:"nom"`
	PhotoPath string `gorm:"size:255" json:"photoPath,omitempty"`
	Ordre     int    `gorm:"not null" json:"ordre"`
}

// TableName overrides the table name for Epi
func (Epi) TableName() string {
	return "epis"
}

// TableName overrides the table name for MoyenControle
func (MoyenControle) TableName() string {
	return "moyens_controle"
}
