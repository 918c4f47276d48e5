package handlers

import (
	"errors"

	"kopimatic/domain"
	"kopimatic/internal/api/presenters"
	"kopimatic/pkg/staff"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	StaffHandler interface {
		Register(c *fiber.Ctx) error
		Login(c *fiber.Ctx) error
		Me(c *fiber.Ctx) error
		GetAllStaff(c *fiber.Ctx) error
		DeleteStaff(c *fiber.Ctx) error
	}

	staffHandler struct {
		staffService staff.StaffService
		validator    *validator.Validate
	}
)

func NewStaffHandler(staffService staff.StaffService, validator *validator.Validate) StaffHandler {
	return &staffHandler{
		staffService: staffService,
		validator:    validator,
	}
}

func (h *staffHandler) Register(c *fiber.Ctx) error {
	req := new(domain.RegisterStaffRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRegisterStaff, err)
	}

	res, err := h.staffService.Register(c.Context(), *req)
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			status = fiber.StatusConflict
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedRegisterStaff, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessRegisterStaff)
}

func (h *staffHandler) Login(c *fiber.Ctx) error {
	req := new(domain.LoginStaffRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedLoginStaff, err)
	}

	res, err := h.staffService.Login(c.Context(), *req)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedLoginStaff, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessLoginStaff)
}

func (h *staffHandler) Me(c *fiber.Ctx) error {
	staffID := c.Locals("staff_id").(string)

	res, err := h.staffService.GetStaffByID(c.Context(), staffID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetStaff, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetStaff)
}

func (h *staffHandler) GetAllStaff(c *fiber.Ctx) error {
	res, err := h.staffService.GetAllStaff(c.Context())
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetStaff, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetStaff)
}

func (h *staffHandler) DeleteStaff(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.staffService.DeleteStaff(c.Context(), id); err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, domain.ErrStaffNotFound) {
			status = fiber.StatusNotFound
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedDeleteStaff, err)
	}
	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessDeleteStaff)
}
