package handlers

import (
	"errors"

	"kopimatic/domain"
	"kopimatic/internal/api/presenters"
	"kopimatic/pkg/machine"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	MachineHandler interface {
		CreateMachine(c *fiber.Ctx) error
		GetMachines(c *fiber.Ctx) error
		GetMachineByID(c *fiber.Ctx) error
		UpdateMachine(c *fiber.Ctx) error
		DeleteMachine(c *fiber.Ctx) error
		ReportTelemetry(c *fiber.Ctx) error
		GetInventory(c *fiber.Ctx) error
		UpdateInventory(c *fiber.Ctx) error
		GetStockWarnings(c *fiber.Ctx) error
		GetAvailability(c *fiber.Ctx) error
	}

	machineHandler struct {
		machineService machine.MachineService
		validator      *validator.Validate
	}
)

func NewMachineHandler(machineService machine.MachineService, validator *validator.Validate) MachineHandler {
	return &machineHandler{
		machineService: machineService,
		validator:      validator,
	}
}

func machineErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrMachineNotFound), errors.Is(err, domain.ErrIngredientNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrNegativeQuantity), errors.Is(err, domain.ErrInvalidMachineStatus):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusBadRequest
	}
}

func (h *machineHandler) CreateMachine(c *fiber.Ctx) error {
	req := new(domain.CreateMachineRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateMachine, err)
	}

	res, err := h.machineService.CreateMachine(c.Context(), *req)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateMachine, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCreateMachine)
}

func (h *machineHandler) GetMachines(c *fiber.Ctx) error {
	res, err := h.machineService.GetMachines(c.Context())
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetMachines, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetMachines)
}

func (h *machineHandler) GetMachineByID(c *fiber.Ctx) error {
	res, err := h.machineService.GetMachineByID(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, machineErrorStatus(err), domain.MessageFailedGetMachines, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetMachines)
}

func (h *machineHandler) UpdateMachine(c *fiber.Ctx) error {
	req := new(domain.UpdateMachineRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateMachine, err)
	}

	res, err := h.machineService.UpdateMachine(c.Context(), c.Params("id"), *req)
	if err != nil {
		return presenters.ErrorResponse(c, machineErrorStatus(err), domain.MessageFailedUpdateMachine, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessUpdateMachine)
}

func (h *machineHandler) DeleteMachine(c *fiber.Ctx) error {
	if err := h.machineService.DeleteMachine(c.Context(), c.Params("id")); err != nil {
		return presenters.ErrorResponse(c, machineErrorStatus(err), domain.MessageFailedDeleteMachine, err)
	}
	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessDeleteMachine)
}

// ReportTelemetry is the machine agent's periodic temperature push.
func (h *machineHandler) ReportTelemetry(c *fiber.Ctx) error {
	req := new(domain.MachineTelemetryRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.machineService.ReportTelemetry(c.Context(), c.Params("id"), *req); err != nil {
		return presenters.ErrorResponse(c, machineErrorStatus(err), domain.MessageFailedUpdateMachine, err)
	}
	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessUpdateMachine)
}

func (h *machineHandler) GetInventory(c *fiber.Ctx) error {
	res, err := h.machineService.GetInventory(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, machineErrorStatus(err), domain.MessageFailedGetInventory, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetInventory)
}

func (h *machineHandler) UpdateInventory(c *fiber.Ctx) error {
	req := new(domain.UpdateInventoryRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateInventory, err)
	}

	if err := h.machineService.UpdateInventory(c.Context(), c.Params("id"), *req); err != nil {
		return presenters.ErrorResponse(c, machineErrorStatus(err), domain.MessageFailedUpdateInventory, err)
	}
	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessUpdateInventory)
}

func (h *machineHandler) GetStockWarnings(c *fiber.Ctx) error {
	unresolvedOnly := c.QueryBool("unresolved_only", false)

	res, err := h.machineService.GetStockWarnings(c.Context(), c.Params("id"), unresolvedOnly)
	if err != nil {
		return presenters.ErrorResponse(c, machineErrorStatus(err), domain.MessageFailedGetWarnings, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetWarnings)
}

func (h *machineHandler) GetAvailability(c *fiber.Ctx) error {
	res, err := h.machineService.GetAvailability(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, machineErrorStatus(err), domain.MessageFailedGetMachines, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetMachines)
}
