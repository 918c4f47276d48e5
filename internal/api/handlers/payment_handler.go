package handlers

import (
	"errors"

	"kopimatic/domain"
	"kopimatic/internal/api/presenters"
	"kopimatic/pkg/payment"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	PaymentHandler interface {
		CreateTransaction(c *fiber.Ctx) error
		PaymentWebhookHandler(c *fiber.Ctx) error
	}

	paymentHandler struct {
		paymentService payment.PaymentService
		validator      *validator.Validate
	}
)

func NewPaymentHandler(paymentService payment.PaymentService, validator *validator.Validate) PaymentHandler {
	return &paymentHandler{
		paymentService: paymentService,
		validator:      validator,
	}
}

func (h *paymentHandler) CreateTransaction(c *fiber.Ctx) error {
	req := new(domain.CreatePaymentRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreatePayment, err)
	}

	res, err := h.paymentService.CreateTransaction(c.Context(), *req)
	if err != nil {
		status := fiber.StatusBadRequest
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, domain.ErrPaymentFailed):
			status = fiber.StatusBadGateway
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedCreatePayment, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCreatePayment)
}

// PaymentWebhookHandler always acknowledges notifications it could parse, even
// unknown transaction states, so the gateway stops retrying them.
func (h *paymentHandler) PaymentWebhookHandler(c *fiber.Ctx) error {
	notification := new(domain.PaymentNotification)
	if err := c.BodyParser(notification); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.paymentService.HandleNotification(c.Context(), *notification); err != nil {
		if errors.Is(err, domain.ErrUnknownPaymentState) {
			return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessWebhook)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedWebhook, err)
	}
	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessWebhook)
}
