// mission.go
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
	"log"
	"mime/multipart"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"

	"github.com/localnerve/gamme-qc/internal/models"
	"github.com/localnerve/gamme-qc/internal/storage"
)

// MissionCreateInput carries the fields accepted on mission creation.
type MissionCreateInput struct {
	Code        string `json:"code"`
	Intitule    string `json:"intitule"`
	Description string `json:"description,omitempty"`
	Reference   string `json:"reference,omitempty"`
	ProduitRef  string `json:"produitRef,omitempty"`
	Section     string `json:"section,omitempty"`
	Client      string `json:"client,omitempty"`
	Designation string `json:"designation,omitempty"`
}

// MissionListFilter narrows the mission list.
type MissionListFilter struct {
	Statut     *bool
	ProduitRef string
	ActiveOnly bool
}

// CheckMissionCode reports whether a mission code is free to use.
func CheckMissionCode(db *gorm.DB, code string) (bool, error) {
	query := db.Model(&models.Mission{})
	// USE INDEX is MySQL syntax; the other dialects plan this themselves
	if db.Dialector.Name() == "mysql" {
		query = query.Clauses(hints.UseIndex("idx_mission_code"))
	}
	var count int64
	if err := query.Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// CreateMission creates a mission, rejecting duplicate codes before the write.
func CreateMission(db *gorm.DB, in MissionCreateInput, userID uint) (*models.Mission, error) {
	if in.Code == "" || in.Intitule == "" {
		return nil, fmt.Errorf("code and intitule are required")
	}

	free, err := CheckMissionCode(db, in.Code)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, fmt.Errorf("E_DUPLICATE - mission code already in use")
	}

	mission := models.Mission{
		Code:        in.Code,
		Intitule:    in.Intitule,
		Description: in.Description,
		Reference:   in.Reference,
		ProduitRef:  in.ProduitRef,
		Section:     in.Section,
		Client:      in.Client,
		Designation: in.Designation,
		Statut:      true,
		CreatedByID: userID,
	}
	if err := db.Create(&mission).Error; err != nil {
		// The pre-check can race a concurrent insert, the unique index settles it
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("E_DUPLICATE - mission code already in use")
		}
		return nil, err
	}
	return &mission, nil
}

// ListMissions returns missions matching the filter, newest first.
func ListMissions(db *gorm.DB, filter MissionListFilter) ([]models.Mission, error) {
	query := db.Model(&models.Mission{}).Order("created_at DESC")
	if filter.ActiveOnly {
		query = query.Where("statut = ?", true)
	} else if filter.Statut != nil {
		query = query.Where("statut = ?", *filter.Statut)
	}
	if filter.ProduitRef != "" {
		query = query.Where("produit_ref LIKE ?", "%"+filter.ProduitRef+"%")
	}
	var missions []models.Mission
	if err := query.Find(&missions).Error; err != nil {
		return nil, err
	}
	return missions, nil
}

// GetMission fetches a mission with its gammes and their operations.
func GetMission(db *gorm.DB, missionID uint) (*models.Mission, error) {
	var mission models.Mission
	err := db.Preload("Gammes", func(db *gorm.DB) *gorm.DB {
		return db.Order("gammes.created_at DESC")
	}).Preload("Gammes.Operations", func(db *gorm.DB) *gorm.DB {
		return db.Order("operations.ordre ASC")
	}).Preload("Gammes.Operations.Photos").
		Preload("Gammes.Epis").Preload("Gammes.Moyens").
		First(&mission, missionID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}
	return &mission, nil
}

// DeleteMission removes a mission and everything under it.
func DeleteMission(db *gorm.DB, missionID uint) error {
	result := db.Select(clause.Associations).Delete(&models.Mission{MissionID: missionID})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("not found")
	}
	return nil
}

// SaveMissionPDF validates and stores the client-generated report PDF,
// replacing any prior one. The filename must end in .pdf and the declared
// content type must contain "pdf"; anything else is rejected leaving the
// previously stored PDF untouched.
func SaveMissionPDF(db *gorm.DB, store storage.Store, missionID uint, fh *multipart.FileHeader) (*models.Mission, error) {
	var mission models.Mission
	if err := db.First(&mission, missionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}

	contentType := fh.Header.Get("Content-Type")
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") ||
		!strings.Contains(strings.ToLower(contentType), "pdf") {
		return nil, fmt.Errorf("E_NOT_PDF - file must be a PDF document")
	}

	key, err := storage.SaveMultipart(store, "reports", fh)
	if err != nil {
		return nil, err
	}

	oldKey := mission.PDFPath
	if err := db.Model(&mission).Update("pdf_path", key).Error; err != nil {
		_ = store.Delete(key)
		return nil, err
	}

	if oldKey != "" {
		if err := store.Delete(oldKey); err != nil {
			log.Printf("warning: could not remove replaced report pdf %s: %v", oldKey, err)
		}
	}
	return &mission, nil
}
