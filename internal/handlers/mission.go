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

package handlers

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/localnerve/gamme-qc/internal/services"
	"github.com/localnerve/gamme-qc/internal/storage"
	"github.com/localnerve/gamme-qc/internal/utils"
)

// MissionHandler handles mission routes
type MissionHandler struct {
	DB    *gorm.DB
	Store storage.Store
}

// ListMissions handles GET /api/missions
// @Summary List missions
// @Description List missions with optional statut and produitref filters
// @Tags Missions
// @Produce json
// @Param statut query string false "Filter by statut (0|1)"
// @Param produitref query string false "Filter by product reference substring"
// @Success 200 {array} models.Mission
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /missions [get]
func (h *MissionHandler) ListMissions(c *fiber.Ctx) error {
	user, err := requestUser(c, h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "listMissions")
	}

	filter := services.MissionListFilter{
		Statut:     parseBoolQuery(c, "statut"),
		ProduitRef: c.Query("produitref"),
		ActiveOnly: isOperatorOnly(user),
	}
	missions, err := services.ListMissions(h.DB, filter)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listMissions")
	}
	return c.Status(fiber.StatusOK).JSON(missions)
}

// CheckCode handles GET /api/missions/check-code
// @Summary Check mission code availability
// @Description Report whether a mission code is free to use
// @Tags Missions
// @Produce json
// @Param code query string true "Mission code to check"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /missions/check-code [get]
func (h *MissionHandler) CheckCode(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return utils.ErrorResponse(c, "code query parameter is required", fiber.StatusBadRequest, "checkCode")
	}
	free, err := services.CheckMissionCode(h.DB, code)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "checkCode")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"code": code, "available": free})
}

// CreateMission handles POST /api/missions
// @Summary Create a mission
// @Description Create a mission; duplicate codes are rejected
// @Tags Missions
// @Accept json
// @Produce json
// @Param mission body services.MissionCreateInput true "Mission fields"
// @Success 200 {object} models.Mission
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /missions [post]
func (h *MissionHandler) CreateMission(c *fiber.Ctx) error {
	user, err := requestUser(c, h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "createMission")
	}

	var in services.MissionCreateInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("invalid request body: %v", err), fiber.StatusBadRequest, "createMission")
	}

	mission, err := services.CreateMission(h.DB, in, user.UserID)
	if err != nil {
		if strings.Contains(err.Error(), "E_DUPLICATE") {
			return utils.DuplicateErrorResponse(c, err.Error())
		}
		if strings.Contains(err.Error(), "required") {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "createMission")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "createMission")
	}
	return c.Status(fiber.StatusOK).JSON(mission)
}

// GetMission handles GET /api/missions/:id
// @Summary Get a mission
// @Description Get a mission with its gammes and operations
// @Tags Missions
// @Produce json
// @Param id path int true "Mission ID"
// @Success 200 {object} models.Mission
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /missions/{id} [get]
func (h *MissionHandler) GetMission(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "getMission")
	}
	mission, err := services.GetMission(h.DB, id)
	if err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Mission %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "getMission")
	}
	return c.Status(fiber.StatusOK).JSON(mission)
}

// collectFileParts maps "file_<key>" multipart parts to their payload keys.
func collectFileParts(form *multipart.Form) map[string]*multipart.FileHeader {
	files := make(map[string]*multipart.FileHeader)
	for name, headers := range form.File {
		if !strings.HasPrefix(name, "file_") || len(headers) == 0 {
			continue
		}
		files[strings.TrimPrefix(name, "file_")] = headers[0]
	}
	return files
}

// UpdateMission handles POST /api/missions/:id/update
// @Summary Apply the mission update tree
// @Description Apply mission field changes and per-gamme change detection; changed gammes are cloned to a new version
// @Tags Missions
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Mission ID"
// @Param payload formData string true "JSON update tree"
// @Success 200 {object} services.MissionUpdateResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /missions/{id}/update [post]
func (h *MissionHandler) UpdateMission(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "updateMission")
	}
	user, err := requestUser(c, h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "updateMission")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("multipart form required: %v", err), fiber.StatusBadRequest, "updateMission")
	}
	payloads := form.Value["payload"]
	if len(payloads) == 0 {
		return utils.ErrorResponse(c, "payload part is required", fiber.StatusBadRequest, "updateMission")
	}
	var in services.MissionUpdateInput
	if err := json.Unmarshal([]byte(payloads[0]), &in); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("invalid payload: %v", err), fiber.StatusBadRequest, "updateMission")
	}

	result, err := services.RunMissionUpdate(h.DB, h.Store, id, in, collectFileParts(form), user.UserID)
	if err != nil {
		switch {
		case err.Error() == "not found":
			return utils.NotFoundResponse(c, fmt.Sprintf("Mission %d not found", id))
		case strings.Contains(err.Error(), "E_VERSION"):
			return utils.VersionErrorResponse(c)
		case strings.Contains(err.Error(), "E_DUPLICATE"):
			return utils.DuplicateErrorResponse(c, err.Error())
		case strings.Contains(err.Error(), "missing file part"):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "updateMission")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "updateMission")
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// DeleteMission handles DELETE /api/missions/:id
// @Summary Delete a mission
// @Description Delete a mission and everything under it
// @Tags Missions
// @Produce json
// @Param id path int true "Mission ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /missions/{id} [delete]
func (h *MissionHandler) DeleteMission(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "deleteMission")
	}
	if err := services.DeleteMission(h.DB, id); err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Mission %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "deleteMission")
	}
	return utils.MutationSuccessResponse(c, fiber.Map{"missionId": id})
}

// GetReport handles GET /api/missions/:id/report
// @Summary Get the mission report projection
// @Description Assemble the eight-slot report projection for the mission's latest gamme
// @Tags Missions
// @Produce json
// @Param id path int true "Mission ID"
// @Success 200 {object} services.MissionReport
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /missions/{id}/report [get]
func (h *MissionHandler) GetReport(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "getReport")
	}
	user, err := requestUser(c, h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "getReport")
	}
	report, err := services.AssembleReport(h.DB, id, user.UserID)
	if err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Mission %d or its gamme not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "getReport")
	}
	return c.Status(fiber.StatusOK).JSON(report)
}

// SavePDF handles POST /api/missions/:id/pdf
// @Summary Save the mission report PDF
// @Description Store the client-generated report PDF, replacing any prior one
// @Tags Missions
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Mission ID"
// @Param pdf_file formData file true "Report PDF"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /missions/{id}/pdf [post]
func (h *MissionHandler) SavePDF(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "savePdf")
	}
	fh, err := c.FormFile("pdf_file")
	if err != nil {
		return utils.ErrorResponse(c, "pdf_file part is required", fiber.StatusBadRequest, "savePdf")
	}
	mission, err := services.SaveMissionPDF(h.DB, h.Store, id, fh)
	if err != nil {
		switch {
		case err.Error() == "not found":
			return utils.NotFoundResponse(c, fmt.Sprintf("Mission %d not found", id))
		case strings.Contains(err.Error(), "E_NOT_PDF"):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "savePdf")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "savePdf")
	}
	return utils.MutationSuccessResponse(c, fiber.Map{
		"missionId": mission.MissionID,
		"pdfPath":   mission.PDFPath,
		"pdfUrl":    h.Store.URL(mission.PDFPath),
	})
}
