package domain

import (
	"errors"
	"mime/multipart"
	"time"
)

var (
	MessageSuccessGetRecipes           = "success get recipes"
	MessageSuccessGetRecipeDetail      = "success get recipe detail"
	MessageSuccessCreateRecipe         = "recipe created successfully"
	MessageSuccessUpdateRecipe         = "recipe updated successfully"
	MessageSuccessDeleteRecipe         = "recipe deleted successfully"
	MessageSuccessUploadRecipeImage    = "recipe image uploaded successfully"
	MessageSuccessSetRecipeIngredients = "recipe ingredients saved successfully"

	MessageFailedGetRecipes           = "failed to get recipes"
	MessageFailedGetRecipeDetail      = "failed to get recipe detail"
	MessageFailedCreateRecipe         = "failed to create recipe"
	MessageFailedUpdateRecipe         = "failed to update recipe"
	MessageFailedDeleteRecipe         = "failed to delete recipe"
	MessageFailedUploadRecipeImage    = "failed to upload recipe image"
	MessageFailedSetRecipeIngredients = "failed to save recipe ingredients"

	ErrRecipeNotFound         = errors.New("recipe not found")
	ErrRecipeCategoryNotFound = errors.New("recipe category not found")
	ErrDuplicateIngredientRow = errors.New("duplicate ingredient in recipe")
)

type (
	NutritionFacts struct {
		Calories int `json:"calories"`
		Protein  int `json:"protein"`
		Carbs    int `json:"carbs"`
		Fat      int `json:"fat"`
		Sugar    int `json:"sugar"`
	}

	CreateRecipeRequest struct {
		Name        string         `json:"name" validate:"required"`
		Description string         `json:"description"`
		CategoryID  string         `json:"category_id" validate:"omitempty,uuid"`
		Price       float64        `json:"price" validate:"required,gt=0"`
		Nutrition   NutritionFacts `json:"nutrition"`
	}

	UpdateRecipeRequest struct {
		Name        string         `json:"name" validate:"omitempty"`
		Description string         `json:"description"`
		CategoryID  string         `json:"category_id" validate:"omitempty,uuid"`
		Price       float64        `json:"price" validate:"omitempty,gt=0"`
		Nutrition   NutritionFacts `json:"nutrition"`
	}

	UploadRecipeImageRequest struct {
		RecipeID string                `json:"recipe_id" form:"recipe_id" validate:"required,uuid"`
		Image    *multipart.FileHeader `json:"image" form:"image" validate:"required"`
	}

	RecipeIngredientRequest struct {
		IngredientID string  `json:"ingredient_id" validate:"required,uuid"`
		Quantity     float64 `json:"quantity" validate:"required,gt=0"`
	}

	SetRecipeIngredientsRequest struct {
		Ingredients []RecipeIngredientRequest `json:"ingredients" validate:"required,dive"`
	}

	RecipeIngredientResponse struct {
		IngredientID string  `json:"ingredient_id"`
		Name         string  `json:"name"`
		Unit         string  `json:"unit"`
		Quantity     float64 `json:"quantity"`
	}

	RecipeResponse struct {
		ID          string         `json:"id"`
		Name        string         `json:"name"`
		Description string         `json:"description"`
		CategoryID  string         `json:"category_id,omitempty"`
		Price       float64        `json:"price"`
		ImageURL    string         `json:"image_url,omitempty"`
		Nutrition   NutritionFacts `json:"nutrition"`
		CreatedAt   time.Time      `json:"created_at"`
	}

	RecipeDetailResponse struct {
		RecipeResponse
		Ingredients []RecipeIngredientResponse `json:"ingredients"`
	}
)
