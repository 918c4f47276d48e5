package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessGetOrders   = "success get orders"
	MessageSuccessCreateOrder = "order created successfully"
	MessageSuccessUpdateOrder = "order updated successfully"
	MessageSuccessRateOrder   = "order rated successfully"

	MessageFailedGetOrders   = "failed to get orders"
	MessageFailedCreateOrder = "failed to create order"
	MessageFailedUpdateOrder = "failed to update order"
	MessageFailedRateOrder   = "failed to rate order"

	ErrOrderNotFound         = errors.New("order not found")
	ErrInvalidOrderStatus    = errors.New("invalid order status")
	ErrOrderNotCompleted     = errors.New("order is not completed")
	ErrInsufficientStock     = errors.New("insufficient stock for recipe")
	ErrMachineNotOperational = errors.New("machine is not operational")
)

type (
	CreateOrderRequest struct {
		UserID    string `json:"user_id" validate:"required,uuid"`
		MachineID string `json:"machine_id" validate:"required,uuid"`
		RecipeID  string `json:"recipe_id" validate:"required,uuid"`
	}

	UpdateOrderStatusRequest struct {
		Status string `json:"status" validate:"required,oneof=pending processing completed failed cancelled"`
	}

	RateOrderRequest struct {
		Rating int `json:"rating" validate:"required,min=1,max=5"`
	}

	OrderResponse struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		MachineID string    `json:"machine_id"`
		RecipeID  string    `json:"recipe_id"`
		Bill      float64   `json:"bill"`
		OrderedAt time.Time `json:"ordered_at"`
		Status    string    `json:"status"`
		Rating    *int      `json:"rating,omitempty"`
	}

	// InsufficientStockResponse tells the kiosk why an order was rejected so the
	// UI can explain which ingredients are short.
	InsufficientStockResponse struct {
		RecipeID           string   `json:"recipe_id"`
		MissingIngredients []string `json:"missing_ingredients"`
	}
)
