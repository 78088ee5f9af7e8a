// revision.go
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
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localnerve/gamme-qc/internal/models"
	"github.com/localnerve/gamme-qc/internal/storage"
	"github.com/localnerve/gamme-qc/internal/types"
)

// PhotoInput describes an existing operation photo in the update payload.
// A nil Description leaves the stored description alone.
type PhotoInput struct {
	PhotoID     types.FlexUint64 `json:"id"`
	Description *string          `json:"description,omitempty"`
	Delete      bool             `json:"delete,omitempty"`
}

// NewPhotoInput references an uploaded file part by key (part name "file_<key>").
type NewPhotoInput struct {
	FileKey     string `json:"fileKey"`
	Description string `json:"description,omitempty"`
}

// OperationInput describes an existing operation in the update payload.
// Titre empty and Ordre zero mean "unchanged"; Description/Criteres are
// pointers because the empty string is a legitimate value for them.
type OperationInput struct {
	OperationID types.FlexUint64 `json:"id"`
	Titre       string           `json:"titre,omitempty"`
	Ordre       types.FlexInt    `json:"ordre,omitempty"`
	Description *string          `json:"description,omitempty"`
	Criteres    *string          `json:"criteres,omitempty"`
	Delete      bool             `json:"delete,omitempty"`
	Photos      []PhotoInput     `json:"photos,omitempty"`
	NewPhotos   []NewPhotoInput  `json:"newPhotos,omitempty"`
}

// NewOperationInput describes an operation to append to the successor version.
type NewOperationInput struct {
	Titre       string             `json:"titre,omitempty"`
	Description string             `json:"description,omitempty"`
	Criteres    string             `json:"criteres,omitempty"`
	MoyenIDs    []types.FlexUint64 `json:"moyenIds,omitempty"`
	Photos      []NewPhotoInput    `json:"photos,omitempty"`
}

// GammeInput describes one existing gamme in the update payload.
// EpiIDs/MoyenIDs nil means "associations unchanged"; an empty non-nil
// list clears them.
type GammeInput struct {
	GammeID       types.FlexUint64    `json:"id"`
	Intitule      string              `json:"intitule,omitempty"`
	NoIncident    string              `json:"noIncident,omitempty"`
	Statut        *types.FlexBool     `json:"statut,omitempty"`
	PictoS        *types.FlexBool     `json:"pictoS,omitempty"`
	PictoR        *types.FlexBool     `json:"pictoR,omitempty"`
	EpiIDs        []types.FlexUint64  `json:"epiIds,omitempty"`
	MoyenIDs      []types.FlexUint64  `json:"moyenIds,omitempty"`
	Operations    []OperationInput    `json:"operations,omitempty"`
	NewOperations []NewOperationInput `json:"newOperations,omitempty"`
}

// NewGammeInput describes a whole new gamme to create at version 1.0.
type NewGammeInput struct {
	Intitule   string              `json:"intitule,omitempty"`
	NoIncident string              `json:"noIncident,omitempty"`
	EpiIDs     []types.FlexUint64  `json:"epiIds,omitempty"`
	MoyenIDs   []types.FlexUint64  `json:"moyenIds,omitempty"`
	Operations []NewOperationInput `json:"operations,omitempty"`
}

// MissionUpdateInput is the typed tree carried by the "payload" part of
// POST /api/missions/:id/update. The legacy client serializes a lone gamme
// as a bare object, hence the FlexList.
type MissionUpdateInput struct {
	Code       string                     `json:"code,omitempty"`
	Intitule   string                     `json:"intitule,omitempty"`
	ProduitRef string                     `json:"produitRef,omitempty"`
	Statut     *types.FlexBool            `json:"statut,omitempty"`
	Gammes     types.FlexList[GammeInput] `json:"gammes,omitempty"`
	NewGamme   *NewGammeInput             `json:"newGamme,omitempty"`
}

// GammeCloneResult reports one gamme that was cloned to a new version.
type GammeCloneResult struct {
	PreviousGammeID uint   `json:"previousGammeId"`
	GammeID         uint   `json:"gammeId"`
	Version         string `json:"version"`
}

// MissionUpdateResult is the outcome of a mission update request.
type MissionUpdateResult struct {
	MissionID  uint               `json:"missionId"`
	Gammes     []GammeCloneResult `json:"gammes"`
	NewGammeID uint               `json:"newGammeId,omitempty"`
}

// isUniqueViolation recognizes uniqueness errors across the supported drivers
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "Violation of UNIQUE KEY")
}

func flexIDs(in []types.FlexUint64) []uint {
	out := make([]uint, 0, len(in))
	for _, v := range in {
		out = append(out, v.Uint())
	}
	return out
}

func sameIDSet(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[uint]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}

// DetectGammeChange decides whether the submitted gamme input differs from
// the stored gamme. It is a pure function: no change means the caller must
// not touch the gamme at all.
func DetectGammeChange(old *models.Gamme, in GammeInput) bool {
	if in.Intitule != "" && in.Intitule != old.Intitule {
		return true
	}
	if in.Statut != nil && in.Statut.Bool() != old.Statut {
		return true
	}
	if in.PictoS != nil && in.PictoS.Bool() != old.PictoS {
		return true
	}
	if in.PictoR != nil && in.PictoR.Bool() != old.PictoR {
		return true
	}
	if in.NoIncident != "" && in.NoIncident != old.NoIncident {
		return true
	}
	if in.EpiIDs != nil {
		oldIDs := make([]uint, 0, len(old.Epis))
		for _, e := range old.Epis {
			oldIDs = append(oldIDs, e.EpiID)
		}
		if !sameIDSet(oldIDs, flexIDs(in.EpiIDs)) {
			return true
		}
	}
	if in.MoyenIDs != nil {
		oldIDs := make([]uint, 0, len(old.Moyens))
		for _, m := range old.Moyens {
			oldIDs = append(oldIDs, m.MoyenID)
		}
		if !sameIDSet(oldIDs, flexIDs(in.MoyenIDs)) {
			return true
		}
	}
	if len(in.NewOperations) > 0 {
		return true
	}

	opByID := make(map[uint]*models.Operation, len(old.Operations))
	for i := range old.Operations {
		opByID[old.Operations[i].OperationID] = &old.Operations[i]
	}
	for _, opIn := range in.Operations {
		op, ok := opByID[opIn.OperationID.Uint()]
		if !ok {
			// Stale id from a previous version, nothing to compare against
			continue
		}
		if opIn.Delete {
			return true
		}
		if opIn.Titre != "" && opIn.Titre != op.Titre {
			return true
		}
		if opIn.Ordre.Int() != 0 && opIn.Ordre.Int() != op.Ordre {
			return true
		}
		if opIn.Description != nil && *opIn.Description != op.Description {
			return true
		}
		if opIn.Criteres != nil && *opIn.Criteres != op.Criteres {
			return true
		}
		if len(opIn.NewPhotos) > 0 {
			return true
		}
		photoByID := make(map[uint]*models.OperationPhoto, len(op.Photos))
		for i := range op.Photos {
			photoByID[op.Photos[i].PhotoID] = &op.Photos[i]
		}
		for _, phIn := range opIn.Photos {
			ph, ok := photoByID[phIn.PhotoID.Uint()]
			if !ok {
				continue
			}
			if phIn.Delete {
				return true
			}
			if phIn.Description != nil && *phIn.Description != ph.Description {
				return true
			}
		}
	}
	return false
}

// NextVersion computes the successor version string: round(latest + 0.1, 1).
// Unparseable stored versions fall back to 1.0, matching the legacy data.
func NextVersion(latest string) string {
	v, err := decimal.NewFromString(latest)
	if err != nil {
		v = decimal.NewFromInt(1)
	}
	return v.Add(decimal.New(1, -1)).Round(1).StringFixed(1)
}

// RunMissionUpdate applies the typed update tree to a mission: mission
// scalar changes, per-gamme change detection and clone-forward, and an
// optional whole-new gamme. Everything runs in one transaction; uploaded
// files written before a rollback are removed afterwards.
func RunMissionUpdate(db *gorm.DB, store storage.Store, missionID uint, in MissionUpdateInput, files map[string]*multipart.FileHeader, userID uint) (*MissionUpdateResult, error) {
	result := &MissionUpdateResult{MissionID: missionID, Gammes: []GammeCloneResult{}}
	var savedKeys []string

	err := db.Transaction(func(tx *gorm.DB) error {
		var mission models.Mission
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&mission, missionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("not found")
			}
			return err
		}

		updates := map[string]interface{}{}
		if in.Code != "" && in.Code != mission.Code {
			updates["code"] = in.Code
		}
		if in.Intitule != "" && in.Intitule != mission.Intitule {
			updates["intitule"] = in.Intitule
		}
		if in.ProduitRef != "" && in.ProduitRef != mission.ProduitRef {
			updates["produit_ref"] = in.ProduitRef
		}
		if in.Statut != nil && in.Statut.Bool() != mission.Statut {
			updates["statut"] = in.Statut.Bool()
		}
		if len(updates) > 0 {
			updates["updated_by_id"] = userID
			if err := tx.Model(&mission).Updates(updates).Error; err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("E_DUPLICATE - mission code already in use")
				}
				return err
			}
		}

		for _, gIn := range in.Gammes {
			var old models.Gamme
			err := tx.Preload("Operations", func(db *gorm.DB) *gorm.DB {
				return db.Order("operations.ordre ASC")
			}).Preload("Operations.Photos").
				Preload("Operations.Moyens").
				Preload("Epis").Preload("Moyens").
				Where("mission_id = ?", missionID).
				First(&old, gIn.GammeID.Uint()).Error
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return fmt.Errorf("not found")
				}
				return err
			}

			if !DetectGammeChange(&old, gIn) {
				continue
			}

			next, keys, err := cloneGamme(tx, store, &old, gIn, files, userID)
			savedKeys = append(savedKeys, keys...)
			if err != nil {
				return err
			}
			result.Gammes = append(result.Gammes, GammeCloneResult{
				PreviousGammeID: old.GammeID,
				GammeID:         next.GammeID,
				Version:         next.Version,
			})
		}

		if in.NewGamme != nil {
			created, keys, err := createGammeInTx(tx, store, &mission, *in.NewGamme, files, userID)
			savedKeys = append(savedKeys, keys...)
			if err != nil {
				return err
			}
			result.NewGammeID = created.GammeID
		}

		return nil
	})

	if err != nil {
		for _, key := range savedKeys {
			_ = store.Delete(key)
		}
		return nil, err
	}
	return result, nil
}

// cloneGamme inserts the successor version of old inside tx: deactivates
// every active prior (mission, intitule) version, bumps the version, copies
// scalars and associations per the payload, and rebuilds the operation list.
func cloneGamme(tx *gorm.DB, store storage.Store, old *models.Gamme, in GammeInput, files map[string]*multipart.FileHeader, userID uint) (*models.Gamme, []string, error) {
	var savedKeys []string

	// An edit built on a superseded revision has lost the race; refuse to
	// fork the history and let the client reconcile with the active version.
	if !old.Statut {
		return nil, savedKeys, fmt.Errorf("E_VERSION")
	}

	// Lock every active prior version of this checklist line
	var actives []models.Gamme
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("mission_id = ? AND intitule = ? AND statut = ?", old.MissionID, old.Intitule, true).
		Find(&actives).Error; err != nil {
		return nil, savedKeys, err
	}

	// Latest version across ALL revisions, active or not, so the bump
	// never re-issues an existing version string. old itself is in this
	// table, so the query always finds a row.
	var latest models.Gamme
	if err := tx.Where("mission_id = ? AND intitule = ?", old.MissionID, old.Intitule).
		Order("version_num DESC").First(&latest).Error; err != nil {
		return nil, savedKeys, err
	}

	if err := tx.Model(&models.Gamme{}).
		Where("mission_id = ? AND intitule = ? AND statut = ?", old.MissionID, old.Intitule, true).
		Update("statut", false).Error; err != nil {
		return nil, savedKeys, err
	}

	statut := old.Statut
	if in.Statut != nil {
		statut = in.Statut.Bool()
	}
	next := models.Gamme{
		MissionID:                 old.MissionID,
		Intitule:                  pickString(in.Intitule, old.Intitule),
		NumGamme:                  old.NumGamme,
		NoIncident:                pickString(in.NoIncident, old.NoIncident),
		Commentaire:               old.Commentaire,
		TempsAlloue:               old.TempsAlloue,
		CommentaireIdentification: old.CommentaireIdentification,
		CommentaireTraitementNC:   old.CommentaireTraitementNC,
		PhotoTraitementNC:         old.PhotoTraitementNC,
		Version:                   NextVersion(latest.Version),
		Statut:                    statut,
		PictoS:                    pickBool(in.PictoS, old.PictoS),
		PictoR:                    pickBool(in.PictoR, old.PictoR),
		CreatedByID:               userID,
	}
	if err := tx.Create(&next).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, savedKeys, fmt.Errorf("E_VERSION")
		}
		return nil, savedKeys, err
	}

	if err := attachGammeAssociations(tx, &next, in.EpiIDs, in.MoyenIDs, old); err != nil {
		return nil, savedKeys, err
	}

	// Surviving operations sorted by the submitted ordre
	opInByID := make(map[uint]OperationInput, len(in.Operations))
	for _, opIn := range in.Operations {
		opInByID[opIn.OperationID.Uint()] = opIn
	}
	type pending struct {
		old   *models.Operation
		in    OperationInput
		hasIn bool
		ordre int
	}
	var surviving []pending
	for i := range old.Operations {
		op := &old.Operations[i]
		opIn, hasIn := opInByID[op.OperationID]
		if hasIn && opIn.Delete {
			continue
		}
		ordre := op.Ordre
		if hasIn && opIn.Ordre.Int() != 0 {
			ordre = opIn.Ordre.Int()
		}
		surviving = append(surviving, pending{old: op, in: opIn, hasIn: hasIn, ordre: ordre})
	}
	sort.SliceStable(surviving, func(i, j int) bool {
		return surviving[i].ordre < surviving[j].ordre
	})

	used := make(map[int]bool)
	maxOrdre := 0
	claim := func(want int) int {
		if want < 1 {
			want = 1
		}
		for used[want] {
			want++
		}
		used[want] = true
		if want > maxOrdre {
			maxOrdre = want
		}
		return want
	}

	for _, p := range surviving {
		newOp := models.Operation{
			GammeID:       next.GammeID,
			Ordre:         claim(p.ordre),
			Titre:         p.old.Titre,
			Description:   p.old.Description,
			Criteres:      p.old.Criteres,
			MoyenControle: p.old.MoyenControle,
			Frequence:     p.old.Frequence,
			CreatedByID:   userID,
		}
		if p.hasIn {
			if p.in.Titre != "" {
				newOp.Titre = p.in.Titre
			}
			if p.in.Description != nil {
				newOp.Description = *p.in.Description
			}
			if p.in.Criteres != nil {
				newOp.Criteres = *p.in.Criteres
			}
		}
		if err := tx.Create(&newOp).Error; err != nil {
			return nil, savedKeys, err
		}
		if len(p.old.Moyens) > 0 {
			moyens := make([]*models.MoyenControle, len(p.old.Moyens))
			for i := range p.old.Moyens {
				moyens[i] = &p.old.Moyens[i]
			}
			if err := tx.Model(&newOp).Association("Moyens").Append(moyens); err != nil {
				return nil, savedKeys, err
			}
		}

		// Carry non-deleted photos, apply updated descriptions. The image
		// file is shared between versions, only the row is new.
		phInByID := make(map[uint]PhotoInput)
		if p.hasIn {
			for _, phIn := range p.in.Photos {
				phInByID[phIn.PhotoID.Uint()] = phIn
			}
		}
		for i := range p.old.Photos {
			ph := &p.old.Photos[i]
			phIn, hasPhIn := phInByID[ph.PhotoID]
			if hasPhIn && phIn.Delete {
				continue
			}
			desc := ph.Description
			if hasPhIn && phIn.Description != nil {
				desc = *phIn.Description
			}
			carried := models.OperationPhoto{
				OperationID: newOp.OperationID,
				ImagePath:   ph.ImagePath,
				Description: desc,
				CreatedByID: ph.CreatedByID,
			}
			if err := tx.Create(&carried).Error; err != nil {
				return nil, savedKeys, err
			}
		}
		if p.hasIn {
			keys, err := saveNewPhotos(tx, store, newOp.OperationID, p.in.NewPhotos, files, userID)
			savedKeys = append(savedKeys, keys...)
			if err != nil {
				return nil, savedKeys, err
			}
		}
	}

	// Trailing new operations take the next free slots
	for _, opIn := range in.NewOperations {
		keys, err := createNewOperation(tx, store, next.GammeID, opIn, claim(maxOrdre+1), files, userID)
		savedKeys = append(savedKeys, keys...)
		if err != nil {
			return nil, savedKeys, err
		}
	}

	return &next, savedKeys, nil
}

// createGammeInTx creates a brand new v1.0 gamme under mission inside tx.
// An empty title defaults to "Gamme: <mission title>".
func createGammeInTx(tx *gorm.DB, store storage.Store, mission *models.Mission, in NewGammeInput, files map[string]*multipart.FileHeader, userID uint) (*models.Gamme, []string, error) {
	var savedKeys []string

	intitule := in.Intitule
	if intitule == "" {
		intitule = "Gamme: " + mission.Intitule
	}
	gamme := models.Gamme{
		MissionID:   mission.MissionID,
		Intitule:    intitule,
		NoIncident:  in.NoIncident,
		Version:     "1.0",
		Statut:      true,
		CreatedByID: userID,
	}
	if err := tx.Create(&gamme).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, savedKeys, fmt.Errorf("E_VERSION")
		}
		return nil, savedKeys, err
	}
	if err := attachGammeAssociations(tx, &gamme, in.EpiIDs, in.MoyenIDs, nil); err != nil {
		return nil, savedKeys, err
	}
	for i, opIn := range in.Operations {
		keys, err := createNewOperation(tx, store, gamme.GammeID, opIn, i+1, files, userID)
		savedKeys = append(savedKeys, keys...)
		if err != nil {
			return nil, savedKeys, err
		}
	}
	return &gamme, savedKeys, nil
}

// attachGammeAssociations rebuilds the EPI and moyen links from submitted
// ids, falling back to the prior version's associations when nil.
func attachGammeAssociations(tx *gorm.DB, gamme *models.Gamme, epiIDs, moyenIDs []types.FlexUint64, old *models.Gamme) error {
	if epiIDs != nil {
		if ids := flexIDs(epiIDs); len(ids) > 0 {
			var epis []models.Epi
			if err := tx.Find(&epis, ids).Error; err != nil {
				return err
			}
			if err := tx.Model(gamme).Association("Epis").Append(&epis); err != nil {
				return err
			}
		}
	} else if old != nil && len(old.Epis) > 0 {
		if err := tx.Model(gamme).Association("Epis").Append(&old.Epis); err != nil {
			return err
		}
	}
	if moyenIDs != nil {
		if ids := flexIDs(moyenIDs); len(ids) > 0 {
			var moyens []models.MoyenControle
			if err := tx.Find(&moyens, ids).Error; err != nil {
				return err
			}
			if err := tx.Model(gamme).Association("Moyens").Append(&moyens); err != nil {
				return err
			}
		}
	} else if old != nil && len(old.Moyens) > 0 {
		if err := tx.Model(gamme).Association("Moyens").Append(&old.Moyens); err != nil {
			return err
		}
	}
	return nil
}

// createNewOperation inserts a new operation plus its uploaded photos.
func createNewOperation(tx *gorm.DB, store storage.Store, gammeID uint, in NewOperationInput, ordre int, files map[string]*multipart.FileHeader, userID uint) ([]string, error) {
	var savedKeys []string

	titre := in.Titre
	if titre == "" {
		titre = "Nouvelle opération"
	}
	op := models.Operation{
		GammeID:     gammeID,
		Ordre:       ordre,
		Titre:       titre,
		Description: in.Description,
		Criteres:    in.Criteres,
		CreatedByID: userID,
	}
	if err := tx.Create(&op).Error; err != nil {
		return savedKeys, err
	}
	if ids := flexIDs(in.MoyenIDs); len(ids) > 0 {
		var moyens []models.MoyenControle
		if err := tx.Find(&moyens, ids).Error; err != nil {
			return savedKeys, err
		}
		if err := tx.Model(&op).Association("Moyens").Append(&moyens); err != nil {
			return savedKeys, err
		}
	}
	keys, err := saveNewPhotos(tx, store, op.OperationID, in.Photos, files, userID)
	savedKeys = append(savedKeys, keys...)
	return savedKeys, err
}

// saveNewPhotos writes uploaded photo files to the store and inserts their rows.
func saveNewPhotos(tx *gorm.DB, store storage.Store, operationID uint, photos []NewPhotoInput, files map[string]*multipart.FileHeader, userID uint) ([]string, error) {
	var savedKeys []string
	for _, phIn := range photos {
		fh, ok := files[phIn.FileKey]
		if !ok {
			return savedKeys, fmt.Errorf("missing file part for key %q", phIn.FileKey)
		}
		key, err := storage.SaveMultipart(store, "operations", fh)
		if err != nil {
			return savedKeys, err
		}
		savedKeys = append(savedKeys, key)
		row := models.OperationPhoto{
			OperationID: operationID,
			ImagePath:   key,
			Description: phIn.Description,
			CreatedByID: &userID,
		}
		if err := tx.Create(&row).Error; err != nil {
			return savedKeys, err
		}
	}
	return savedKeys, nil
}

func pickString(submitted, fallback string) string {
	if submitted != "" {
		return submitted
	}
	return fallback
}

func pickBool(submitted *types.FlexBool, fallback bool) bool {
	if submitted != nil {
		return submitted.Bool()
	}
	return fallback
}
