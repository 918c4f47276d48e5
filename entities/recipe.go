package entities

import (
	"github.com/google/uuid"
)

type RecipeCategory struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name string    `gorm:"uniqueIndex" json:"name"`

	Timestamp
}

type Recipe struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	Price       float64    `json:"price"`
	ImageURL    string     `json:"image_url,omitempty"`
	Calories    int        `json:"calories"`
	Protein     int        `json:"protein"`
	Carbs       int        `json:"carbs"`
	Fat         int        `json:"fat"`
	Sugar       int        `json:"sugar"`

	Category    *RecipeCategory    `gorm:"foreignKey:CategoryID"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID"`
	Timestamp
}

type RecipeIngredient struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	RecipeID     uuid.UUID `gorm:"uniqueIndex:idx_recipe_ingredient" json:"recipe_id"`
	IngredientID uuid.UUID `gorm:"uniqueIndex:idx_recipe_ingredient" json:"ingredient_id"`
	Quantity     float64   `json:"quantity"` // amount per single preparation, in the ingredient's unit

	Recipe     *Recipe     `gorm:"foreignKey:RecipeID"`
	Ingredient *Ingredient `gorm:"foreignKey:IngredientID"`
	Timestamp
}
