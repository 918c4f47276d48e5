package entities

import (
	"time"

	"github.com/google/uuid"
)

type Machine struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Status      string    `json:"status"` // "online", "offline", "maintenance"
	Temperature float64   `json:"temperature"`
	Revenue     float64   `json:"revenue"`

	Timestamp
}

type MachineIngredientInventory struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	MachineID    uuid.UUID  `gorm:"uniqueIndex:idx_machine_ingredient" json:"machine_id"`
	IngredientID uuid.UUID  `gorm:"uniqueIndex:idx_machine_ingredient" json:"ingredient_id"`
	Quantity     float64    `json:"quantity"`
	MaxCapacity  *float64   `json:"max_capacity,omitempty"`
	UpdatedAt    time.Time  `gorm:"type:timestamp" json:"updated_at"`

	Machine    *Machine    `gorm:"foreignKey:MachineID"`
	Ingredient *Ingredient `gorm:"foreignKey:IngredientID"`
}

type StockWarning struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	MachineID    uuid.UUID `json:"machine_id"`
	IngredientID uuid.UUID `json:"ingredient_id"`
	Quantity     float64   `json:"quantity"`
	Severity     string    `json:"severity"` // "high", "critical"
	Resolved     bool      `json:"resolved"`

	Machine    *Machine    `gorm:"foreignKey:MachineID"`
	Ingredient *Ingredient `gorm:"foreignKey:IngredientID"`
	Timestamp
}
