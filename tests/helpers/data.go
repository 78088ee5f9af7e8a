// data.go
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

package helpers

import (
	"testing"

	"github.com/localnerve/gamme-qc/internal/models"
	"gorm.io/gorm"
)

// CreateTestUser creates a user row with optional role flags
func CreateTestUser(t *testing.T, db *gorm.DB, username string, admin, op, rs, ro bool) *models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		IsAdmin:  admin,
		IsOp:     op,
		IsRs:     rs,
		IsRo:     ro,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return &user
}

// CreateTestMission creates a mission row
func CreateTestMission(t *testing.T, db *gorm.DB, code, intitule string, createdBy uint) *models.Mission {
	t.Helper()
	mission := models.Mission{
		Code:        code,
		Intitule:    intitule,
		Statut:      true,
		CreatedByID: createdBy,
	}
	if err := db.Create(&mission).Error; err != nil {
		t.Fatalf("Failed to create mission %s: %v", code, err)
	}
	return &mission
}

// CreateTestGamme creates a gamme with sequentially ordered operations
func CreateTestGamme(t *testing.T, db *gorm.DB, missionID uint, intitule, version string, opTitles []string, createdBy uint) *models.Gamme {
	t.Helper()
	gamme := models.Gamme{
		MissionID:   missionID,
		Intitule:    intitule,
		Version:     version,
		Statut:      true,
		CreatedByID: createdBy,
	}
	if err := db.Create(&gamme).Error; err != nil {
		t.Fatalf("Failed to create gamme %s v%s: %v", intitule, version, err)
	}
	for i, title := range opTitles {
		op := models.Operation{
			GammeID:     gamme.GammeID,
			Ordre:       i + 1,
			Titre:       title,
			Frequence:   1,
			CreatedByID: createdBy,
		}
		if err := db.Create(&op).Error; err != nil {
			t.Fatalf("Failed to create operation %s: %v", title, err)
		}
		gamme.Operations = append(gamme.Operations, op)
	}
	return &gamme
}

// CreateTestOperationPhoto attaches a photo row to an operation
func CreateTestOperationPhoto(t *testing.T, db *gorm.DB, operationID uint, imagePath, description string) *models.OperationPhoto {
	t.Helper()
	photo := models.OperationPhoto{
		OperationID: operationID,
		ImagePath:   imagePath,
		Description: description,
	}
	if err := db.Create(&photo).Error; err != nil {
		t.Fatalf("Failed to create operation photo %s: %v", imagePath, err)
	}
	return &photo
}

// CreateTestEpi creates an EPI catalog entry
func CreateTestEpi(t *testing.T, db *gorm.DB, nom string) *models.Epi {
	t.Helper()
	epi := models.Epi{Nom: nom}
	if err := db.Create(&epi).Error; err != nil {
		t.Fatalf("Failed to create epi %s: %v", nom, err)
	}
	return &epi
}

// CreateTestMoyen creates a control instrument catalog entry
func CreateTestMoyen(t *testing.T, db *gorm.DB, nom string, ordre int) *models.MoyenControle {
	t.Helper()
	moyen := models.MoyenControle{Nom: nom, Ordre: ordre}
	if err := db.Create(&moyen).Error; err != nil {
		t.Fatalf("Failed to create moyen %s: %v", nom, err)
	}
	return &moyen
}
