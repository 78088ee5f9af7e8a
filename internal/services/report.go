// report.go
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

	"gorm.io/gorm"

	"github.com/localnerve/gamme-qc/internal/models"
)

// reportSlots is the fixed number of operation slots on the printed report.
const reportSlots = 8

// ReportPhoto is one photo reference in the report projection.
type ReportPhoto struct {
	ID          uint   `json:"id"`
	ImagePath   string `json:"imagePath"`
	Description string `json:"description"`
}

// ReportSlot is one of the eight operation slots. Empty slots keep their
// position so the client renders a fixed grid.
type ReportSlot struct {
	Slot        int           `json:"slot"`
	Titre       string        `json:"titre,omitempty"`
	Description string        `json:"description,omitempty"`
	Criteres    string        `json:"criteres,omitempty"`
	Photos      []ReportPhoto `json:"photos,omitempty"`
}

// ReportUser identifies a sign-off user on the report.
type ReportUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
}

// MissionReport is the read-only projection consumed by the client-side
// PDF generator.
type MissionReport struct {
	MissionID    uint          `json:"missionId"`
	Code         string        `json:"code"`
	Intitule     string        `json:"intitule"`
	ProduitRef   string        `json:"produitRef,omitempty"`
	Client       string        `json:"client,omitempty"`
	GammeID      uint          `json:"gammeId"`
	Version      string        `json:"version"`
	NoIncident   string        `json:"noIncident,omitempty"`
	PictoS       bool          `json:"pictoS"`
	PictoR       bool          `json:"pictoR"`
	Epis         []string      `json:"epis"`
	Moyens       []string      `json:"moyens"`
	Slots        []ReportSlot  `json:"slots"`
	DefectPhotos []ReportPhoto `json:"defectPhotos"`
	RS           ReportUser    `json:"rs"`
	RO           ReportUser    `json:"ro"`
}

func reportUser(u *models.User) ReportUser {
	full := u.FirstName
	if u.LastName != "" {
		if full != "" {
			full += " "
		}
		full += u.LastName
	}
	return ReportUser{ID: u.UserID, Username: u.Username, FullName: full}
}

// firstUserWithFlag returns the first user carrying the flag, or the
// requesting user when nobody does.
func firstUserWithFlag(db *gorm.DB, flag string, requesterID uint) (ReportUser, error) {
	var user models.User
	err := db.Where(flag+" = ?", true).Order("user_id ASC").First(&user).Error
	if err == gorm.ErrRecordNotFound {
		if err := db.First(&user, requesterID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ReportUser{ID: requesterID}, nil
			}
			return ReportUser{}, err
		}
		return reportUser(&user), nil
	}
	if err != nil {
		return ReportUser{}, err
	}
	return reportUser(&user), nil
}

// AssembleReport builds the report projection for a mission: its most
// recently created gamme, operations projected into exactly eight ordered
// slots, defect photos by date added, and the RS/RO sign-off users.
func AssembleReport(db *gorm.DB, missionID uint, requesterID uint) (*MissionReport, error) {
	var mission models.Mission
	if err := db.First(&mission, missionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}

	var gamme models.Gamme
	err := db.Preload("Operations", func(db *gorm.DB) *gorm.DB {
		return db.Order("operations.ordre ASC")
	}).Preload("Operations.Photos").
		Preload("Epis").Preload("Moyens").
		Preload("DefectPhotos", func(db *gorm.DB) *gorm.DB {
			return db.Order("defect_photos.created_at ASC")
		}).
		Where("mission_id = ?", missionID).
		Order("created_at DESC").
		First(&gamme).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}

	report := &MissionReport{
		MissionID:    mission.MissionID,
		Code:         mission.Code,
		Intitule:     mission.Intitule,
		ProduitRef:   mission.ProduitRef,
		Client:       mission.Client,
		GammeID:      gamme.GammeID,
		Version:      gamme.Version,
		NoIncident:   gamme.NoIncident,
		PictoS:       gamme.PictoS,
		PictoR:       gamme.PictoR,
		Epis:         []string{},
		Moyens:       []string{},
		Slots:        make([]ReportSlot, reportSlots),
		DefectPhotos: []ReportPhoto{},
	}
	for _, e := range gamme.Epis {
		report.Epis = append(report.Epis, e.Nom)
	}
	for _, m := range gamme.Moyens {
		report.Moyens = append(report.Moyens, m.Nom)
	}

	for i := 0; i < reportSlots; i++ {
		report.Slots[i] = ReportSlot{Slot: i + 1}
		if i >= len(gamme.Operations) {
			continue
		}
		op := gamme.Operations[i]
		report.Slots[i].Titre = op.Titre
		report.Slots[i].Description = op.Description
		report.Slots[i].Criteres = op.Criteres
		for _, ph := range op.Photos {
			report.Slots[i].Photos = append(report.Slots[i].Photos, ReportPhoto{
				ID:          ph.PhotoID,
				ImagePath:   ph.ImagePath,
				Description: ph.Description,
			})
		}
	}

	for _, ph := range gamme.DefectPhotos {
		report.DefectPhotos = append(report.DefectPhotos, ReportPhoto{
			ID:          ph.PhotoID,
			ImagePath:   ph.ImagePath,
			Description: ph.Description,
		})
	}

	rs, err := firstUserWithFlag(db, "is_rs", requesterID)
	if err != nil {
		return nil, err
	}
	ro, err := firstUserWithFlag(db, "is_ro", requesterID)
	if err != nil {
		return nil, err
	}
	report.RS = rs
	report.RO = ro

	return report, nil
}
