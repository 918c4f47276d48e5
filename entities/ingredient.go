package entities

import (
	"github.com/google/uuid"
)

type Ingredient struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name string    `gorm:"uniqueIndex" json:"name"`
	Unit string    `json:"unit"` // "ml", "g", "pcs"

	Timestamp
}
