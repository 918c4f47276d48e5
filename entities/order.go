package entities

import (
	"time"

	"github.com/google/uuid"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusFailed     = "failed"
	OrderStatusCancelled  = "cancelled"
)

type Order struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	MachineID uuid.UUID `json:"machine_id"`
	RecipeID  uuid.UUID `json:"recipe_id"`
	Bill      float64   `json:"bill"`
	OrderedAt time.Time `gorm:"type:timestamp" json:"ordered_at"`
	Status    string    `json:"status"`
	Rating    *int      `json:"rating,omitempty"`

	Machine *Machine `gorm:"foreignKey:MachineID"`
	Recipe  *Recipe  `gorm:"foreignKey:RecipeID"`
	Timestamp
}
