package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/localnerve/gamme-qc/internal/services"
	"github.com/localnerve/gamme-qc/internal/storage"
	"github.com/localnerve/gamme-qc/internal/utils"
)

// PhotoHandler handles standalone photo deletion routes
type PhotoHandler struct {
	DB    *gorm.DB
	Store storage.Store
}

// DeleteDefectPhoto handles DELETE /api/photos-defaut/:id
// @Summary Delete a defect photo
// @Description Remove the defect photo row and then its backing file
// @Tags Photos
// @Produce json
// @Param id path int true "Defect photo ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /photos-defaut/{id} [delete]
func (h *PhotoHandler) DeleteDefectPhoto(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "deleteDefectPhoto")
	}
	if err := services.DeleteDefectPhoto(h.DB, h.Store, id); err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Defect photo %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "deleteDefectPhoto")
	}
	return utils.MutationSuccessResponse(c, fiber.Map{"photoId": id})
}

// DeleteOperationPhoto handles DELETE /api/photos-operation/:id
// @Summary Delete an operation photo
// @Description Remove the photo row only; the image file may be shared across versions
// @Tags Photos
// @Produce json
// @Param id path int true "Operation photo ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /photos-operation/{id} [delete]
func (h *PhotoHandler) DeleteOperationPhoto(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "deleteOperationPhoto")
	}
	if err := services.DeleteOperationPhoto(h.DB, id); err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Operation photo %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "deleteOperationPhoto")
	}
	return utils.MutationSuccessResponse(c, fiber.Map{"photoId": id})
}
