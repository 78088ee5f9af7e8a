package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/localnerve/gamme-qc/internal/models"
)

// EpiInput carries the fields accepted for EPI create/update.
type EpiInput struct {
	Nom         string `json:"nom"`
	PhotoPath   string `json:"photoPath,omitempty"`
	Commentaire string `json:"commentaire,omitempty"`
}

// MoyenInput carries the fields accepted for control instrument create/update.
type MoyenInput struct {
	Nom       string `json:"nom"`
	PhotoPath string `json:"photoPath,omitempty"`
	Ordre     int    `json:"ordre,omitempty"`
}

// ListEpis returns the EPI catalog ordered by name.
func ListEpis(db *gorm.DB) ([]models.Epi, error) {
	var epis []models.Epi
	if err := db.Order("nom ASC").Find(&epis).Error; err != nil {
		return nil, err
	}
	return epis, nil
}

// CreateEpi adds a personal protective equipment entry.
func CreateEpi(db *gorm.DB, in EpiInput) (*models.Epi, error) {
	if in.Nom == "" {
		return nil, fmt.Errorf("nom is required")
	}
	epi := models.Epi{Nom: in.Nom, PhotoPath: in.PhotoPath, Commentaire: in.Commentaire}
	if err := db.Create(&epi).Error; err != nil {
		return nil, err
	}
	return &epi, nil
}

// UpdateEpi edits an EPI catalog entry.
func UpdateEpi(db *gorm.DB, epiID uint, in EpiInput) (*models.Epi, error) {
	var epi models.Epi
	if err := db.First(&epi, epiID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Nom != "" {
		updates["nom"] = in.Nom
	}
	if in.PhotoPath != "" {
		updates["photo_path"] = in.PhotoPath
	}
	if in.Commentaire != "" {
		updates["commentaire"] = in.Commentaire
	}
	if len(updates) > 0 {
		if err := db.Model(&epi).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &epi, nil
}

// DeleteEpi removes an EPI catalog entry.
func DeleteEpi(db *gorm.DB, epiID uint) error {
	result := db.Delete(&models.Epi{}, epiID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("not found")
	}
	return nil
}

// ListMoyens returns the control instrument catalog in display order.
func ListMoyens(db *gorm.DB) ([]models.MoyenControle, error) {
	var moyens []models.MoyenControle
	if err := db.Order("ordre ASC").Find(&moyens).Error; err != nil {
		return nil, err
	}
	return moyens, nil
}

// CreateMoyen adds a control instrument entry. A zero ordre appends it
// after the current last one.
func CreateMoyen(db *gorm.DB, in MoyenInput) (*models.MoyenControle, error) {
	if in.Nom == "" {
		return nil, fmt.Errorf("nom is required")
	}
	ordre := in.Ordre
	if ordre == 0 {
		var maxOrdre int
		row := db.Model(&models.MoyenControle{}).Select("COALESCE(MAX(ordre), 0)").Row()
		if err := row.Scan(&maxOrdre); err != nil {
			return nil, err
		}
		ordre = maxOrdre + 1
	}
	moyen := models.MoyenControle{Nom: in.Nom, PhotoPath: in.PhotoPath, Ordre: ordre}
	if err := db.Create(&moyen).Error; err != nil {
		return nil, err
	}
	return &moyen, nil
}

// UpdateMoyen edits a control instrument entry.
func UpdateMoyen(db *gorm.DB, moyenID uint, in MoyenInput) (*models.MoyenControle, error) {
	var moyen models.MoyenControle
	if err := db.First(&moyen, moyenID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Nom != "" {
		updates["nom"] = in.Nom
	}
	if in.PhotoPath != "" {
		updates["photo_path"] = in.PhotoPath
	}
	if in.Ordre != 0 {
		updates["ordre"] = in.Ordre
	}
	if len(updates) > 0 {
		if err := db.Model(&moyen).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &moyen, nil
}

// DeleteMoyen removes a control instrument entry.
func DeleteMoyen(db *gorm.DB, moyenID uint) error {
	result := db.Delete(&models.MoyenControle{}, moyenID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("not found")
	}
	return nil
}
