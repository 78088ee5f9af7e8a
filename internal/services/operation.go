package services

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localnerve/gamme-qc/internal/models"
	"github.com/localnerve/gamme-qc/internal/types"
)

// OperationCreateInput carries the fields accepted when adding an operation
// directly to a gamme, outside the versioning workflow.
type OperationCreateInput struct {
	GammeID       types.FlexUint64   `json:"gammeId"`
	Titre         string             `json:"titre,omitempty"`
	Ordre         types.FlexInt      `json:"ordre,omitempty"`
	Description   string             `json:"description,omitempty"`
	Criteres      string             `json:"criteres,omitempty"`
	MoyenControle string             `json:"moyenControle,omitempty"`
	Frequence     types.FlexInt      `json:"frequence,omitempty"`
	MoyenIDs      []types.FlexUint64 `json:"moyenIds,omitempty"`
}

// OperationUpdateInput carries the fields accepted on operation update.
// Pointers distinguish "leave alone" from "set empty".
type OperationUpdateInput struct {
	Titre         string             `json:"titre,omitempty"`
	Ordre         types.FlexInt      `json:"ordre,omitempty"`
	Description   *string            `json:"description,omitempty"`
	Criteres      *string            `json:"criteres,omitempty"`
	MoyenControle *string            `json:"moyenControle,omitempty"`
	Frequence     types.FlexInt      `json:"frequence,omitempty"`
	MoyenIDs      []types.FlexUint64 `json:"moyenIds,omitempty"`
}

// ListOperations returns the operations of a gamme ordered by ordre.
func ListOperations(db *gorm.DB, gammeID uint) ([]models.Operation, error) {
	var ops []models.Operation
	query := db.Model(&models.Operation{}).Order("ordre ASC").
		Preload("Photos").Preload("Moyens")
	if gammeID != 0 {
		query = query.Where("gamme_id = ?", gammeID)
	}
	if err := query.Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

// GetOperation fetches one operation with its photos and instrument links.
func GetOperation(db *gorm.DB, operationID uint) (*models.Operation, error) {
	var op models.Operation
	err := db.Preload("Photos").Preload("Moyens").First(&op, operationID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}
	return &op, nil
}

// nextFreeOrdre finds the first unclaimed ordre slot in a gamme at or above want.
func nextFreeOrdre(tx *gorm.DB, gammeID uint, want int) (int, error) {
	if want < 1 {
		want = 1
	}
	for {
		var count int64
		if err := tx.Model(&models.Operation{}).
			Where("gamme_id = ? AND ordre = ?", gammeID, want).
			Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			return want, nil
		}
		want++
	}
}

// CreateOperation adds an operation to a gamme. A colliding ordre slides to
// the next free slot instead of failing.
func CreateOperation(db *gorm.DB, in OperationCreateInput, userID uint) (*models.Operation, error) {
	var created models.Operation
	err := db.Transaction(func(tx *gorm.DB) error {
		var gamme models.Gamme
		if err := tx.First(&gamme, in.GammeID.Uint()).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("not found")
			}
			return err
		}

		want := in.Ordre.Int()
		if want == 0 {
			var maxOrdre int
			row := tx.Model(&models.Operation{}).
				Where("gamme_id = ?", gamme.GammeID).
				Select("COALESCE(MAX(ordre), 0)").Row()
			if err := row.Scan(&maxOrdre); err != nil {
				return err
			}
			want = maxOrdre + 1
		}
		ordre, err := nextFreeOrdre(tx, gamme.GammeID, want)
		if err != nil {
			return err
		}

		titre := in.Titre
		if titre == "" {
			titre = "Nouvelle opération"
		}
		frequence := in.Frequence.Int()
		if frequence == 0 {
			frequence = 1
		}
		created = models.Operation{
			GammeID:       gamme.GammeID,
			Ordre:         ordre,
			Titre:         titre,
			Description:   in.Description,
			Criteres:      in.Criteres,
			MoyenControle: in.MoyenControle,
			Frequence:     frequence,
			CreatedByID:   userID,
		}
		if err := tx.Create(&created).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("E_VERSION")
			}
			return err
		}
		if ids := flexIDs(in.MoyenIDs); len(ids) > 0 {
			var moyens []models.MoyenControle
			if err := tx.Find(&moyens, ids).Error; err != nil {
				return err
			}
			if err := tx.Model(&created).Association("Moyens").Append(&moyens); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateOperation edits an operation in place. This is the direct editing
// path; versioned edits go through the mission update workflow instead.
func UpdateOperation(db *gorm.DB, operationID uint, in OperationUpdateInput, userID uint) (*models.Operation, error) {
	var op models.Operation
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&op, operationID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("not found")
			}
			return err
		}

		updates := map[string]interface{}{"updated_by_id": userID}
		if in.Titre != "" {
			updates["titre"] = in.Titre
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.Criteres != nil {
			updates["criteres"] = *in.Criteres
		}
		if in.MoyenControle != nil {
			updates["moyen_controle"] = *in.MoyenControle
		}
		if in.Frequence.Int() != 0 {
			updates["frequence"] = in.Frequence.Int()
		}
		if want := in.Ordre.Int(); want != 0 && want != op.Ordre {
			ordre, err := nextFreeOrdre(tx, op.GammeID, want)
			if err != nil {
				return err
			}
			updates["ordre"] = ordre
		}
		if err := tx.Model(&op).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("E_VERSION")
			}
			return err
		}

		if in.MoyenIDs != nil {
			var moyens []models.MoyenControle
			if ids := flexIDs(in.MoyenIDs); len(ids) > 0 {
				if err := tx.Find(&moyens, ids).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&op).Association("Moyens").Replace(&moyens); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetOperation(db, operationID)
}

// DeleteOperation removes an operation and its photo rows. Image files are
// left alone, cloned versions may still reference them.
func DeleteOperation(db *gorm.DB, operationID uint) error {
	result := db.Select(clause.Associations).Delete(&models.Operation{OperationID: operationID})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("not found")
	}
	return nil
}
