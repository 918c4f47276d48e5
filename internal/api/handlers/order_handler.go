package handlers

import (
	"errors"
	"strconv"

	"kopimatic/domain"
	"kopimatic/internal/api/presenters"
	"kopimatic/pkg/order"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	OrderHandler interface {
		CreateOrder(c *fiber.Ctx) error
		GetOrders(c *fiber.Ctx) error
		GetOrderByID(c *fiber.Ctx) error
		UpdateOrderStatus(c *fiber.Ctx) error
		RateOrder(c *fiber.Ctx) error
	}

	orderHandler struct {
		orderService order.OrderService
		validator    *validator.Validate
	}
)

func NewOrderHandler(orderService order.OrderService, validator *validator.Validate) OrderHandler {
	return &orderHandler{
		orderService: orderService,
		validator:    validator,
	}
}

func (h *orderHandler) CreateOrder(c *fiber.Ctx) error {
	req := new(domain.CreateOrderRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateOrder, err)
	}

	res, missing, err := h.orderService.CreateOrder(c.Context(), *req)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return c.Status(fiber.StatusConflict).JSON(presenters.Response{
				Success: false,
				Message: domain.MessageFailedCreateOrder,
				Error:   err.Error(),
				Data: domain.InsufficientStockResponse{
					RecipeID:           req.RecipeID,
					MissingIngredients: missing,
				},
			})
		}
		status := fiber.StatusBadRequest
		switch {
		case errors.Is(err, domain.ErrMachineNotFound), errors.Is(err, domain.ErrRecipeNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, domain.ErrMachineNotOperational):
			status = fiber.StatusConflict
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedCreateOrder, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCreateOrder)
}

func (h *orderHandler) GetOrders(c *fiber.Ctx) error {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	res, count, err := h.orderService.GetOrders(c.Context(), c.Query("machine_id", ""), page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetOrders, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{
		"orders": res,
		"total":  count,
		"page":   page,
		"limit":  limit,
	}, fiber.StatusOK, domain.MessageSuccessGetOrders)
}

func (h *orderHandler) GetOrderByID(c *fiber.Ctx) error {
	res, err := h.orderService.GetOrderByID(c.Context(), c.Params("id"))
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, domain.ErrOrderNotFound) {
			status = fiber.StatusNotFound
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedGetOrders, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetOrders)
}

func (h *orderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	req := new(domain.UpdateOrderStatusRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateOrder, err)
	}

	if err := h.orderService.UpdateOrderStatus(c.Context(), c.Params("id"), req.Status); err != nil {
		status := fiber.StatusBadRequest
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, domain.ErrInvalidOrderStatus):
			status = fiber.StatusConflict
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedUpdateOrder, err)
	}
	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessUpdateOrder)
}

func (h *orderHandler) RateOrder(c *fiber.Ctx) error {
	req := new(domain.RateOrderRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRateOrder, err)
	}

	if err := h.orderService.RateOrder(c.Context(), c.Params("id"), req.Rating); err != nil {
		status := fiber.StatusBadRequest
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, domain.ErrOrderNotCompleted):
			status = fiber.StatusConflict
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedRateOrder, err)
	}
	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessRateOrder)
}
