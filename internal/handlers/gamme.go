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

package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/localnerve/gamme-qc/internal/services"
	"github.com/localnerve/gamme-qc/internal/storage"
	"github.com/localnerve/gamme-qc/internal/utils"
)

// GammeHandler handles gamme routes
type GammeHandler struct {
	DB    *gorm.DB
	Store storage.Store
}

// ListGammes handles GET /api/gammes
// @Summary List gammes
// @Description List gammes, optionally filtered by mission
// @Tags Gammes
// @Produce json
// @Param mission query int false "Mission ID"
// @Param active query string false "Only active versions (0|1)"
// @Success 200 {array} models.Gamme
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /gammes [get]
func (h *GammeHandler) ListGammes(c *fiber.Ctx) error {
	filter := services.GammeListFilter{}
	if raw := c.Query("mission"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return utils.ErrorResponse(c, fmt.Sprintf("invalid mission %q", raw), fiber.StatusBadRequest, "listGammes")
		}
		filter.MissionID = uint(id)
	}
	if active := parseBoolQuery(c, "active"); active != nil && *active {
		filter.ActiveOnly = true
	}
	gammes, err := services.ListGammes(h.DB, filter)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listGammes")
	}
	return c.Status(fiber.StatusOK).JSON(gammes)
}

// GetGamme handles GET /api/gammes/:id
// @Summary Get a gamme
// @Description Get one gamme with ordered operations, photos and associations
// @Tags Gammes
// @Produce json
// @Param id path int true "Gamme ID"
// @Success 200 {object} models.Gamme
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /gammes/{id} [get]
func (h *GammeHandler) GetGamme(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "getGamme")
	}
	gamme, err := services.GetGamme(h.DB, id)
	if err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Gamme %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "getGamme")
	}
	return c.Status(fiber.StatusOK).JSON(gamme)
}

// CreateGamme handles POST /api/gammes
// @Summary Create a gamme
// @Description Create a new v1.0 gamme under a mission, nested operations and photos accepted
// @Tags Gammes
// @Accept multipart/form-data
// @Produce json
// @Param missionId formData int true "Mission ID"
// @Param payload formData string true "JSON gamme tree"
// @Success 200 {object} models.Gamme
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /gammes [post]
func (h *GammeHandler) CreateGamme(c *fiber.Ctx) error {
	user, err := requestUser(c, h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "createGamme")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("multipart form required: %v", err), fiber.StatusBadRequest, "createGamme")
	}
	missionRaw := ""
	if vals := form.Value["missionId"]; len(vals) > 0 {
		missionRaw = vals[0]
	}
	missionID, err := strconv.ParseUint(missionRaw, 10, 64)
	if err != nil || missionID == 0 {
		return utils.ErrorResponse(c, "missionId part is required", fiber.StatusBadRequest, "createGamme")
	}

	var in services.NewGammeInput
	if vals := form.Value["payload"]; len(vals) > 0 {
		if err := json.Unmarshal([]byte(vals[0]), &in); err != nil {
			return utils.ErrorResponse(c, fmt.Sprintf("invalid payload: %v", err), fiber.StatusBadRequest, "createGamme")
		}
	}

	gamme, err := services.CreateGamme(h.DB, h.Store, uint(missionID), in, collectFileParts(form), user.UserID)
	if err != nil {
		switch {
		case err.Error() == "not found":
			return utils.NotFoundResponse(c, fmt.Sprintf("Mission %d not found", missionID))
		case strings.Contains(err.Error(), "E_VERSION"):
			return utils.VersionErrorResponse(c)
		case strings.Contains(err.Error(), "missing file part"):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "createGamme")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "createGamme")
	}
	return c.Status(fiber.StatusOK).JSON(gamme)
}

// DeleteGamme handles DELETE /api/gammes/:id
// @Summary Delete a gamme
// @Description Delete a gamme and everything under it
// @Tags Gammes
// @Produce json
// @Param id path int true "Gamme ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /gammes/{id} [delete]
func (h *GammeHandler) DeleteGamme(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "deleteGamme")
	}
	if err := services.DeleteGamme(h.DB, id); err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Gamme %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "deleteGamme")
	}
	return utils.MutationSuccessResponse(c, fiber.Map{"gammeId": id})
}

// ValidateGamme handles POST /api/gammes/:id/validate
// @Summary Validate a gamme
// @Description Record an RO sign-off for the gamme
// @Tags Gammes
// @Accept json
// @Produce json
// @Param id path int true "Gamme ID"
// @Success 200 {object} models.Validation
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /gammes/{id}/validate [post]
func (h *GammeHandler) ValidateGamme(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "validateGamme")
	}
	user, err := requestUser(c, h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "validateGamme")
	}

	var body struct {
		Commentaire string `json:"commentaire"`
	}
	_ = c.BodyParser(&body)

	validation, err := services.ValidateGamme(h.DB, id, user.UserID, body.Commentaire)
	if err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Gamme %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "validateGamme")
	}
	return c.Status(fiber.StatusOK).JSON(validation)
}

// AddDefectPhotos handles POST /api/gammes/:id/photos-defaut
// @Summary Add defect photos
// @Description Store one or more defect pictures for the gamme
// @Tags Gammes
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Gamme ID"
// @Param photos formData file true "Defect pictures"
// @Param description formData string false "Shared description"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /gammes/{id}/photos-defaut [post]
func (h *GammeHandler) AddDefectPhotos(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "addDefectPhotos")
	}
	user, err := requestUser(c, h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "addDefectPhotos")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("multipart form required: %v", err), fiber.StatusBadRequest, "addDefectPhotos")
	}
	files := form.File["photos"]
	description := ""
	if vals := form.Value["description"]; len(vals) > 0 {
		description = vals[0]
	}
	var metadata []byte
	if vals := form.Value["metadata"]; len(vals) > 0 && vals[0] != "" {
		if !json.Valid([]byte(vals[0])) {
			return utils.ErrorResponse(c, "metadata must be valid JSON", fiber.StatusBadRequest, "addDefectPhotos")
		}
		metadata = []byte(vals[0])
	}

	photos, err := services.AddDefectPhotos(h.DB, h.Store, id, files, description, metadata, user.UserID)
	if err != nil {
		switch {
		case err.Error() == "not found":
			return utils.NotFoundResponse(c, fmt.Sprintf("Gamme %d not found", id))
		case strings.Contains(err.Error(), "no photo files"):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "addDefectPhotos")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "addDefectPhotos")
	}

	out := make([]fiber.Map, 0, len(photos))
	for _, ph := range photos {
		out = append(out, fiber.Map{
			"id":        ph.PhotoID,
			"imagePath": ph.ImagePath,
			"url":       h.Store.URL(ph.ImagePath),
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"gammeId": id, "photos": out})
}
