package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/localnerve/gamme-qc/internal/services"
	"github.com/localnerve/gamme-qc/internal/storage"
	"github.com/localnerve/gamme-qc/internal/utils"
)

// OperationHandler handles operation routes
type OperationHandler struct {
	DB    *gorm.DB
	Store storage.Store
}

// ListOperations handles GET /api/operations
// @Summary List operations
// @Description List operations of a gamme ordered by ordre
// @Tags Operations
// @Produce json
// @Param gamme query int false "Gamme ID"
// @Success 200 {array} models.Operation
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /operations [get]
func (h *OperationHandler) ListOperations(c *fiber.Ctx) error {
	var gammeID uint
	if raw := c.Query("gamme"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return utils.ErrorResponse(c, fmt.Sprintf("invalid gamme %q", raw), fiber.StatusBadRequest, "listOperations")
		}
		gammeID = uint(id)
	}
	ops, err := services.ListOperations(h.DB, gammeID)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listOperations")
	}
	return c.Status(fiber.StatusOK).JSON(ops)
}

// GetOperation handles GET /api/operations/:id
// @Summary Get an operation
// @Tags Operations
// @Produce json
// @Param id path int true "Operation ID"
// @Success 200 {object} models.Operation
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /operations/{id} [get]
func (h *OperationHandler) GetOperation(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "getOperation")
	}
	op, err := services.GetOperation(h.DB, id)
	if err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Operation %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "getOperation")
	}
	return c.Status(fiber.StatusOK).JSON(op)
}

// CreateOperation handles POST /api/operations
// @Summary Create an operation
// @Description Add an operation to a gamme; a colliding ordre slides to the next free slot
// @Tags Operations
// @Accept json
// @Produce json
// @Param operation body services.OperationCreateInput true "Operation fields"
// @Success 200 {object} models.Operation
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /operations [post]
func (h *OperationHandler) CreateOperation(c *fiber.Ctx) error {
	user, err := requestUser(c, h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "createOperation")
	}
	var in services.OperationCreateInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("invalid request body: %v", err), fiber.StatusBadRequest, "createOperation")
	}
	if in.GammeID.Uint() == 0 {
		return utils.ErrorResponse(c, "gammeId is required", fiber.StatusBadRequest, "createOperation")
	}
	op, err := services.CreateOperation(h.DB, in, user.UserID)
	if err != nil {
		switch {
		case err.Error() == "not found":
			return utils.NotFoundResponse(c, fmt.Sprintf("Gamme %d not found", in.GammeID.Uint()))
		case strings.Contains(err.Error(), "E_VERSION"):
			return utils.VersionErrorResponse(c)
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "createOperation")
	}
	return c.Status(fiber.StatusOK).JSON(op)
}

// UpdateOperation handles PUT /api/operations/:id
// @Summary Update an operation
// @Description Edit an operation in place, outside the versioning workflow
// @Tags Operations
// @Accept json
// @Produce json
// @Param id path int true "Operation ID"
// @Param operation body services.OperationUpdateInput true "Operation fields"
// @Success 200 {object} models.Operation
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /operations/{id} [put]
func (h *OperationHandler) UpdateOperation(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "updateOperation")
	}
	user, err := requestUser(c, h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "updateOperation")
	}
	var in services.OperationUpdateInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("invalid request body: %v", err), fiber.StatusBadRequest, "updateOperation")
	}
	op, err := services.UpdateOperation(h.DB, id, in, user.UserID)
	if err != nil {
		switch {
		case err.Error() == "not found":
			return utils.NotFoundResponse(c, fmt.Sprintf("Operation %d not found", id))
		case strings.Contains(err.Error(), "E_VERSION"):
			return utils.VersionErrorResponse(c)
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "updateOperation")
	}
	return c.Status(fiber.StatusOK).JSON(op)
}

// DeleteOperation handles DELETE /api/operations/:id
// @Summary Delete an operation
// @Description Delete an operation and its photo rows; shared image files stay
// @Tags Operations
// @Produce json
// @Param id path int true "Operation ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /operations/{id} [delete]
func (h *OperationHandler) DeleteOperation(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "deleteOperation")
	}
	if err := services.DeleteOperation(h.DB, id); err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Operation %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "deleteOperation")
	}
	return utils.MutationSuccessResponse(c, fiber.Map{"operationId": id})
}

// AddPhoto handles POST /api/operations/:id/photos
// @Summary Add an operation photo
// @Tags Operations
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Operation ID"
// @Param photo formData file true "Photo file"
// @Param description formData string false "Photo description"
// @Success 200 {object} models.OperationPhoto
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /operations/{id}/photos [post]
func (h *OperationHandler) AddPhoto(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "addOperationPhoto")
	}
	user, err := requestUser(c, h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "addOperationPhoto")
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return utils.ErrorResponse(c, "photo part is required", fiber.StatusBadRequest, "addOperationPhoto")
	}
	photo, err := services.AddOperationPhoto(h.DB, h.Store, id, fh, c.FormValue("description"), user.UserID)
	if err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Operation %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "addOperationPhoto")
	}
	return c.Status(fiber.StatusOK).JSON(photo)
}
