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

package models

import (
	"time"
)

// Mission represents a top-level inspection engagement for a product reference
type Mission struct {
	MissionID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string `gorm:"uniqueIndex:idx_mission_code;size:100;not null" json:"code"`
	Intitule    string `gorm:"size:100;not null" json:"intitule"`
	Description string `gorm:"type:text" json:"description"`
	Reference   string `gorm:"size:100" json:"reference"`
	ProduitRef  string `gorm:"size:100" json:"produitref"`
	Section     string `gorm:"size:100" json:"section,omitempty"`
	Client      string `gorm:"size:100" json:"client,omitempty"`
	Designation string `gorm:"size:100" json:"designation,omitempty"`
	Statut      bool   `gorm:"not null;default:true" json:"statut"`
	// PDFPath is the stored path of the client-generated report, empty if none uploaded yet
	PDFPath     string    `gorm:"size:255" json:"pdfPath,omitempty"`
	CreatedAt   time.Time `json:"dateCreation"`
	UpdatedAt   time.Time `json:"dateMiseAJour"`
	CreatedByID uint      `gorm:"not null" json:"createdBy"`
	UpdatedByID *uint     `json:"updatedBy,omitempty"`
	Gammes      []Gamme   `gorm:"foreignKey:MissionID;constraint:OnDelete:CASCADE" json:"gammes,omitempty"`
}

// TableName overrides the table name for Mission
func (Mission) TableName() string {
	return "missions"
}
