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

package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Gamme represents one version of a mission's inspection checklist.
// The (mission, intitule, version) triple is unique so that two concurrent
// clones of the same revision cannot both commit.
type Gamme struct {
	GammeID                   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	MissionID                 uint   `gorm:"not null;uniqueIndex:idx_gamme_revision" json:"missionId"`
	Intitule                  string `gorm:"size:100;not null;uniqueIndex:idx_gamme_revision" json:"intitule"`
	NumGamme                  string `gorm:"size:100" json:"numGamme,omitempty"`
	NoIncident                string `gorm:"size:100" json:"noIncident"`
	Commentaire               string `gorm:"type:text" json:"commentaire,omitempty"`
	TempsAlloue               int    `json:"tempsAlloue,omitempty"`
	CommentaireIdentification string `gorm:"size:100" json:"commentaireIdentification,omitempty"`
	CommentaireTraitementNC   string `gorm:"size:100" json:"commentaireTraitementNC,omitempty"`
	// PhotoTraitementNC is the stored path of the non-conformance treatment photo
	PhotoTraitementNC string    `gorm:"size:255" json:"photoTraitementNC,omitempty"`
	Version           string    `gorm:"size:100;not null;uniqueIndex:idx_gamme_revision" json:"version"`
	VersionNum        float64   `gorm:"type:decimal(5,2);not null;default:1.0" json:"versionNum"`
	Statut            bool      `gorm:"not null;default:true" json:"statut"`
	PictoS            bool      `gorm:"not null;default:false" json:"pictoS"`
	PictoR            bool      `gorm:"not null;default:false" json:"pictoR"`
	CreatedAt         time.Time `json:"dateCreation"`
	UpdatedAt         time.Time `json:"dateMiseAJour"`
	CreatedByID       uint      `gorm:"not null" json:"createdBy"`
	UpdatedByID       *uint     `json:"updatedBy,omitempty"`

	Epis         []Epi           `gorm:"many2many:gamme_epis;" json:"epis,omitempty"`
	Moyens       []MoyenControle `gorm:"many2many:gamme_moyens;" json:"moyens,omitempty"`
	Operations   []Operation     `gorm:"foreignKey:GammeID;constraint:OnDelete:CASCADE" json:"operations,omitempty"`
	DefectPhotos []DefectPhoto   `gorm:"foreignKey:GammeID;constraint:OnDelete:CASCADE" json:"defectPhotos,omitempty"`
}

// TableName overrides the table name for Gamme
func (Gamme) TableName() string {
	return "gammes"
}

// BeforeSave keeps the numeric version mirror in sync with the version string.
// Unparseable versions fall back to 1.0, matching the legacy data.
func (g *Gamme) BeforeSave(_ *gorm.DB) error {
	v, err := decimal.NewFromString(g.Version)
	if err != nil {
		g.VersionNum = 1.0
		return nil
	}
	g.VersionNum, _ = v.Round(2).Float64()
	return nil
}
