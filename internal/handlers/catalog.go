package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/localnerve/gamme-qc/internal/services"
	"github.com/localnerve/gamme-qc/internal/utils"
)

// CatalogHandler handles the EPI and control instrument catalog routes
type CatalogHandler struct {
	DB *gorm.DB
}

// ListEpis handles GET /api/epis
// @Summary List EPIs
// @Tags Catalog
// @Produce json
// @Success 200 {array} models.Epi
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /epis [get]
func (h *CatalogHandler) ListEpis(c *fiber.Ctx) error {
	epis, err := services.ListEpis(h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listEpis")
	}
	return c.Status(fiber.StatusOK).JSON(epis)
}

// CreateEpi handles POST /api/epis
// @Summary Create an EPI
// @Tags Catalog
// @Accept json
// @Produce json
// @Param epi body services.EpiInput true "EPI fields"
// @Success 200 {object} models.Epi
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /epis [post]
func (h *CatalogHandler) CreateEpi(c *fiber.Ctx) error {
	var in services.EpiInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("invalid request body: %v", err), fiber.StatusBadRequest, "createEpi")
	}
	epi, err := services.CreateEpi(h.DB, in)
	if err != nil {
		if strings.Contains(err.Error(), "required") {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "createEpi")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "createEpi")
	}
	return c.Status(fiber.StatusOK).JSON(epi)
}

// UpdateEpi handles PUT /api/epis/:id
// @Summary Update an EPI
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path int true "EPI ID"
// @Param epi body services.EpiInput true "EPI fields"
// @Success 200 {object} models.Epi
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /epis/{id} [put]
func (h *CatalogHandler) UpdateEpi(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "updateEpi")
	}
	var in services.EpiInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("invalid request body: %v", err), fiber.StatusBadRequest, "updateEpi")
	}
	epi, err := services.UpdateEpi(h.DB, id, in)
	if err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("EPI %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "updateEpi")
	}
	return c.Status(fiber.StatusOK).JSON(epi)
}

// DeleteEpi handles DELETE /api/epis/:id
// @Summary Delete an EPI
// @Tags Catalog
// @Produce json
// @Param id path int true "EPI ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /epis/{id} [delete]
func (h *CatalogHandler) DeleteEpi(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "deleteEpi")
	}
	if err := services.DeleteEpi(h.DB, id); err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("EPI %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "deleteEpi")
	}
	return utils.MutationSuccessResponse(c, fiber.Map{"epiId": id})
}

// ListMoyens handles GET /api/moyens
// @Summary List control instruments
// @Description List the control instrument catalog in display order
// @Tags Catalog
// @Produce json
// @Success 200 {array} models.MoyenControle
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /moyens [get]
func (h *CatalogHandler) ListMoyens(c *fiber.Ctx) error {
	moyens, err := services.ListMoyens(h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listMoyens")
	}
	return c.Status(fiber.StatusOK).JSON(moyens)
}

// CreateMoyen handles POST /api/moyens
// @Summary Create a control instrument
// @Tags Catalog
// @Accept json
// @Produce json
// @Param moyen body services.MoyenInput true "Instrument fields"
// @Success 200 {object} models.MoyenControle
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /moyens [post]
func (h *CatalogHandler) CreateMoyen(c *fiber.Ctx) error {
	var in services.MoyenInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("invalid request body: %v", err), fiber.StatusBadRequest, "createMoyen")
	}
	moyen, err := services.CreateMoyen(h.DB, in)
	if err != nil {
		if strings.Contains(err.Error(), "required") {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "createMoyen")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "createMoyen")
	}
	return c.Status(fiber.StatusOK).JSON(moyen)
}

// UpdateMoyen handles PUT /api/moyens/:id
// @Summary Update a control instrument
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path int true "Instrument ID"
// @Param moyen body services.MoyenInput true "Instrument fields"
// @Success 200 {object} models.MoyenControle
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /moyens/{id} [put]
func (h *CatalogHandler) UpdateMoyen(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "updateMoyen")
	}
	var in services.MoyenInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, fmt.Sprintf("invalid request body: %v", err), fiber.StatusBadRequest, "updateMoyen")
	}
	moyen, err := services.UpdateMoyen(h.DB, id, in)
	if err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Instrument %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "updateMoyen")
	}
	return c.Status(fiber.StatusOK).JSON(moyen)
}

// DeleteMoyen handles DELETE /api/moyens/:id
// @Summary Delete a control instrument
// @Tags Catalog
// @Produce json
// @Param id path int true "Instrument ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /moyens/{id} [delete]
func (h *CatalogHandler) DeleteMoyen(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "deleteMoyen")
	}
	if err := services.DeleteMoyen(h.DB, id); err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Instrument %d not found", id))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "deleteMoyen")
	}
	return utils.MutationSuccessResponse(c, fiber.Map{"moyenId": id})
}
