package realtime

import "kopimatic/domain"

// Server-emitted event names. Catalog updates are broadcast to every
// connection; the rest are scoped to one machine's room.
const (
	EventRecipeUpdate           = "recipe-update"
	EventRecipeIngredientUpdate = "recipe-ingredient-update"
	EventMachineStatusUpdate    = "machine-status-update"
	EventMachineTemperature     = "machine-temperature-update"
	EventMachineInventory       = "machine-inventory-update"
	EventRecipeAvailability     = "recipe-availability-update"
)

// Client-sent message names.
const (
	MessageJoinMachine  = "join-machine"
	MessageLeaveMachine = "leave-machine"
	MessageRequestData  = "request-data"
)

type (
	// Event is the wire envelope for every push message.
	Event struct {
		Type string `json:"type"`
		Data any    `json:"data"`
	}

	// ClientMessage is what a kiosk sends upstream.
	ClientMessage struct {
		Type      string `json:"type"`
		MachineID string `json:"machine_id"`
	}

	// MachineStatusPayload carries either a full machine replacement or a
	// partial-field delta. Consumers must merge Delta onto prior state rather
	// than replacing it wholesale.
	MachineStatusPayload struct {
		MachineID string                  `json:"machine_id"`
		Machine   *domain.MachineResponse `json:"machine,omitempty"`
		Delta     map[string]any          `json:"delta,omitempty"`
	}

	TemperaturePayload struct {
		MachineID   string  `json:"machine_id"`
		Temperature float64 `json:"temperature"`
	}

	InventoryPayload struct {
		MachineID string                        `json:"machine_id"`
		Rows      []domain.InventoryRowResponse `json:"rows"`
	}
)
