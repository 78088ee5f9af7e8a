package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/localnerve/gamme-qc/internal/services"
	"github.com/localnerve/gamme-qc/internal/utils"
)

// UserHandler handles user administration routes
type UserHandler struct {
	DB *gorm.DB
}

// ListUsers handles GET /api/users
// @Summary List role-holding users
// @Description List the users holding an operator, responsable or RO role
// @Tags Users
// @Produce json
// @Success 200 {array} models.User
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	users, err := services.ListRoleUsers(h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listUsers")
	}
	return c.Status(fiber.StatusOK).JSON(users)
}

// CreateUser handles POST /api/users
// @Summary Create a user
// @Description Create a user with a single role flag set
// @Tags Users
// @Accept json
// @Produce json
// @Param user body services.UserInput true "User fields"
// @Success 200 {object} models.User
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /users [post]
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var in services.UserInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("invalid request body: %v", err), fiber.StatusBadRequest, "createUser")
	}
	user, err := services.CreateUser(h.DB, in)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "E_DUPLICATE"):
			return utils.DuplicateErrorResponse(c, err.Error())
		case strings.Contains(err.Error(), "required"), strings.Contains(err.Error(), "unknown role"):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "createUser")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "createUser")
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// UpdateUser handles PUT /api/users/:id
// @Summary Update a user
// @Description Edit a user; assigning a role resets every other role flag
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param user body services.UserInput true "User fields"
// @Success 200 {object} models.User
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "updateUser")
	}
	var in services.UserInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("invalid request body: %v", err), fiber.StatusBadRequest, "updateUser")
	}
	user, err := services.UpdateUser(h.DB, id, in)
	if err != nil {
		switch {
		case err.Error() == "not found":
			return utils.NotFoundResponse(c, fmt.Sprintf("User %d not found", id))
		case strings.Contains(err.Error(), "E_DUPLICATE"):
			return utils.DuplicateErrorResponse(c, err.Error())
		case strings.Contains(err.Error(), "unknown role"):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "updateUser")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "updateUser")
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// DeleteUser handles DELETE /api/users/:id
// @Summary Delete a user
// @Description Delete a user; self-deletion is refused
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "deleteUser")
	}
	requester, err := requestUser(c, h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "deleteUser")
	}
	if err := services.DeleteUser(h.DB, id, requester.UserID); err != nil {
		switch {
		case err.Error() == "not found":
			return utils.NotFoundResponse(c, fmt.Sprintf("User %d not found", id))
		case strings.Contains(err.Error(), "E_SELF_DELETE"):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "deleteUser")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "deleteUser")
	}
	return utils.MutationSuccessResponse(c, fiber.Map{"userId": id})
}
