// gamme.go
//
// A scalable quality-control gamme service, replacement for the legacy Django QC application
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of gamme-qc.
// gamme-qc is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// gamme-qc is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with gamme-qc.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"fmt"
	"mime/multipart"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localnerve/gamme-qc/internal/models"
	"github.com/localnerve/gamme-qc/internal/storage"
)

// GammeListFilter narrows the gamme list.
type GammeListFilter struct {
	MissionID  uint
	ActiveOnly bool
}

// ListGammes returns gammes matching the filter, newest version first.
func ListGammes(db *gorm.DB, filter GammeListFilter) ([]models.Gamme, error) {
	query := db.Model(&models.Gamme{}).Order("created_at DESC")
	if filter.MissionID != 0 {
		query = query.Where("mission_id = ?", filter.MissionID)
	}
	if filter.ActiveOnly {
		query = query.Where("statut = ?", true)
	}
	var gammes []models.Gamme
	if err := query.Find(&gammes).Error; err != nil {
		return nil, err
	}
	return gammes, nil
}

// GetGamme fetches one gamme with operations ordered by ordre, their
// photos, and the EPI/moyen associations.
func GetGamme(db *gorm.DB, gammeID uint) (*models.Gamme, error) {
	var gamme models.Gamme
	err := db.Preload("Operations", func(db *gorm.DB) *gorm.DB {
		return db.Order("operations.ordre ASC")
	}).Preload("Operations.Photos").
		Preload("Operations.Moyens").
		Preload("Epis").Preload("Moyens").
		Preload("DefectPhotos", func(db *gorm.DB) *gorm.DB {
			return db.Order("defect_photos.created_at ASC")
		}).
		First(&gamme, gammeID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}
	return &gamme, nil
}

// CreateGamme creates a brand new v1.0 gamme under a mission, with its
// nested operations and uploaded photos.
func CreateGamme(db *gorm.DB, store storage.Store, missionID uint, in NewGammeInput, files map[string]*multipart.FileHeader, userID uint) (*models.Gamme, error) {
	var created *models.Gamme
	var savedKeys []string

	err := db.Transaction(func(tx *gorm.DB) error {
		var mission models.Mission
		if err := tx.First(&mission, missionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("not found")
			}
			return err
		}
		gamme, keys, err := createGammeInTx(tx, store, &mission, in, files, userID)
		savedKeys = append(savedKeys, keys...)
		if err != nil {
			return err
		}
		created = gamme
		return nil
	})
	if err != nil {
		for _, key := range savedKeys {
			_ = store.Delete(key)
		}
		return nil, err
	}
	return created, nil
}

// DeleteGamme removes a gamme and everything under it.
func DeleteGamme(db *gorm.DB, gammeID uint) error {
	result := db.Select(clause.Associations).Delete(&models.Gamme{GammeID: gammeID})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("not found")
	}
	return nil
}

// ValidateGamme records an RO sign-off for a gamme.
func ValidateGamme(db *gorm.DB, gammeID uint, userROID uint, commentaire string) (*models.Validation, error) {
	var gamme models.Gamme
	if err := db.First(&gamme, gammeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}
	validation := models.Validation{
		GammeID:     gammeID,
		UserROID:    userROID,
		Commentaire: commentaire,
	}
	if err := db.Create(&validation).Error; err != nil {
		return nil, err
	}
	return &validation, nil
}
