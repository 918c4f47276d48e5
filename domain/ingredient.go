package domain

import (
	"errors"
)

var (
	MessageSuccessGetIngredients   = "success get ingredients"
	MessageSuccessCreateIngredient = "ingredient created successfully"
	MessageSuccessUpdateIngredient = "ingredient updated successfully"
	MessageSuccessDeleteIngredient = "ingredient deleted successfully"

	MessageFailedGetIngredients   = "failed to get ingredients"
	MessageFailedCreateIngredient = "failed to create ingredient"
	MessageFailedUpdateIngredient = "failed to update ingredient"
	MessageFailedDeleteIngredient = "failed to delete ingredient"

	ErrIngredientNotFound = errors.New("ingredient not found")
	ErrIngredientInUse    = errors.New("ingredient is used by at least one recipe")
)

type (
	CreateIngredientRequest struct {
		Name string `json:"name" validate:"required"`
		Unit string `json:"unit" validate:"required"`
	}

	UpdateIngredientRequest struct {
		Name string `json:"name" validate:"omitempty"`
		Unit string `json:"unit" validate:"omitempty"`
	}

	IngredientResponse struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Unit string `json:"unit"`
	}
)
