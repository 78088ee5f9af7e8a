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

package models

import (
	"time"
)

// OperationPhoto is photographic evidence attached to a single operation.
// Cloned gamme versions share the same ImagePath, so deleting a row must
// never unlink the file.
type OperationPhoto struct {
	PhotoID     uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OperationID uint      `gorm:"not null;index" json:"operationId"`
	ImagePath   string    `gorm:"size:255;not null" json:"imagePath"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"dateAjout"`
	CreatedByID *uint     `json:"createdBy,omitempty"`
}

// DefectPhoto is a defect picture attached to a gamme. Unlike operation
// photos these are never carried forward to a new version, so the backing
// file is owned by exactly one row and is unlinked on delete.
type DefectPhoto struct {
	PhotoID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	GammeID     uint   `gorm:"not null;index" json:"gammeId"`
	ImagePath   string `gorm:"size:255;not null" json:"imagePath"`
	Description string `gorm:"size:255;not null;default:''" json:"description"`
	// Metadata carries optional client capture data (device, geometry, exif extract)
	Metadata    JSON      `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"dateAjout"`
	CreatedByID *uint     `json:"createdBy,omitempty"`
}

// TableName overrides the table name for OperationPhoto
func (OperationPhoto) TableName() string {
	return "operation_photos"
}

// TableName overrides the table name for DefectPhoto
func (DefectPhoto) TableName() string {
	return "defect_photos"
}
