// photo.go
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

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/localnerve/gamme-qc/internal/models"
	"github.com/localnerve/gamme-qc/internal/storage"
)

// AddDefectPhotos stores one or more defect pictures for a gamme. All files
// share the submitted description; metadata is optional raw JSON from the
// capture client. Files written before a rollback are removed afterwards.
func AddDefectPhotos(db *gorm.DB, store storage.Store, gammeID uint, files []*multipart.FileHeader, description string, metadata []byte, userID uint) ([]models.DefectPhoto, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no photo files submitted")
	}

	var created []models.DefectPhoto
	var savedKeys []string

	err := db.Transaction(func(tx *gorm.DB) error {
		var gamme models.Gamme
		if err := tx.First(&gamme, gammeID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("not found")
			}
			return err
		}
		for _, fh := range files {
			key, err := storage.SaveMultipart(store, "defects", fh)
			if err != nil {
				return err
			}
			savedKeys = append(savedKeys, key)
			row := models.DefectPhoto{
				GammeID:     gammeID,
				ImagePath:   key,
				Description: description,
				CreatedByID: &userID,
			}
			if len(metadata) > 0 {
				row.Metadata = models.JSON{JSON: datatypes.JSON(metadata)}
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			created = append(created, row)
		}
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

// DeleteDefectPhoto removes a defect photo row and then its backing file.
// The row goes first inside the transaction; the file is unlinked only
// after the commit so a rollback never loses the image.
func DeleteDefectPhoto(db *gorm.DB, store storage.Store, photoID uint) error {
	var imagePath string

	err := db.Transaction(func(tx *gorm.DB) error {
		var photo models.DefectPhoto
		if err := tx.First(&photo, photoID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("not found")
			}
			return err
		}
		imagePath = photo.ImagePath
		return tx.Delete(&photo).Error
	})
	if err != nil {
		return err
	}

	if err := store.Delete(imagePath); err != nil {
		log.Printf("warning: defect photo row %d removed but file %s was not: %v", photoID, imagePath, err)
	}
	return nil
}

// AddOperationPhoto stores one photo for an operation.
func AddOperationPhoto(db *gorm.DB, store storage.Store, operationID uint, fh *multipart.FileHeader, description string, userID uint) (*models.OperationPhoto, error) {
	var op models.Operation
	if err := db.First(&op, operationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}

	key, err := storage.SaveMultipart(store, "operations", fh)
	if err != nil {
		return nil, err
	}
	photo := models.OperationPhoto{
		OperationID: operationID,
		ImagePath:   key,
		Description: description,
		CreatedByID: &userID,
	}
	if err := db.Create(&photo).Error; err != nil {
		_ = store.Delete(key)
		return nil, err
	}
	return &photo, nil
}

// DeleteOperationPhoto removes the photo row only. The image file may be
// shared with rows carried into cloned gamme versions, so it stays.
func DeleteOperationPhoto(db *gorm.DB, photoID uint) error {
	result := db.Delete(&models.OperationPhoto{}, photoID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("not found")
	}
	return nil
}
