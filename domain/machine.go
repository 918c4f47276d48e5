package domain

import (
	"errors"
	"time"
)

const (
	MachineStatusOnline      = "online"
	MachineStatusOffline     = "offline"
	MachineStatusMaintenance = "maintenance"

	// Low stock thresholds, in the ingredient's own unit.
	LowStockThreshold      = 10.0
	CriticalStockThreshold = 5.0

	StockSeverityHigh     = "high"
	StockSeverityCritical = "critical"
)

var (
	MessageSuccessGetMachines     = "success get machines"
	MessageSuccessCreateMachine   = "machine created successfully"
	MessageSuccessUpdateMachine   = "machine updated successfully"
	MessageSuccessDeleteMachine   = "machine deleted successfully"
	MessageSuccessGetInventory    = "success get machine inventory"
	MessageSuccessUpdateInventory = "machine inventory updated successfully"
	MessageSuccessGetWarnings     = "success get stock warnings"

	MessageFailedGetMachines     = "failed to get machines"
	MessageFailedCreateMachine   = "failed to create machine"
	MessageFailedUpdateMachine   = "failed to update machine"
	MessageFailedDeleteMachine   = "failed to delete machine"
	MessageFailedGetInventory    = "failed to get machine inventory"
	MessageFailedUpdateInventory = "failed to update machine inventory"
	MessageFailedGetWarnings     = "failed to get stock warnings"

	ErrMachineNotFound      = errors.New("machine not found")
	ErrInvalidMachineStatus = errors.New("invalid machine status")
	ErrNegativeQuantity     = errors.New("quantity must not be negative")
)

type (
	CreateMachineRequest struct {
		Name     string `json:"name" validate:"required"`
		Location string `json:"location" validate:"required"`
	}

	UpdateMachineRequest struct {
		Name     string `json:"name" validate:"omitempty"`
		Location string `json:"location" validate:"omitempty"`
		Status   string `json:"status" validate:"omitempty,oneof=online offline maintenance"`
	}

	MachineTelemetryRequest struct {
		Temperature float64 `json:"temperature"`
	}

	MachineResponse struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Location    string  `json:"location"`
		Status      string  `json:"status"`
		Temperature float64 `json:"temperature"`
		Revenue     float64 `json:"revenue"`
	}

	UpdateInventoryRequest struct {
		IngredientID string   `json:"ingredient_id" validate:"required,uuid"`
		Quantity     float64  `json:"quantity" validate:"gte=0"`
		MaxCapacity  *float64 `json:"max_capacity,omitempty" validate:"omitempty,gt=0"`
	}

	InventoryRowResponse struct {
		IngredientID string    `json:"ingredient_id"`
		Name         string    `json:"name,omitempty"`
		Unit         string    `json:"unit,omitempty"`
		Quantity     float64   `json:"quantity"`
		MaxCapacity  *float64  `json:"max_capacity,omitempty"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	StockWarningResponse struct {
		ID           string    `json:"id"`
		MachineID    string    `json:"machine_id"`
		IngredientID string    `json:"ingredient_id"`
		Quantity     float64   `json:"quantity"`
		Severity     string    `json:"severity"`
		Resolved     bool      `json:"resolved"`
		CreatedAt    time.Time `json:"created_at"`
	}
)
