package recipe

import (
	"context"
	"errors"
	"fmt"

	"kopimatic/domain"
	"kopimatic/entities"
	"kopimatic/internal/utils/storage"
	"kopimatic/pkg/ingredient"
	"kopimatic/pkg/propagation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	RecipeService interface {
		CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest) (*domain.RecipeResponse, error)
		GetRecipes(ctx context.Context, categoryID string) ([]*domain.RecipeResponse, error)
		GetRecipeDetail(ctx context.Context, id string) (*domain.RecipeDetailResponse, error)
		UpdateRecipe(ctx context.Context, id string, req domain.UpdateRecipeRequest) (*domain.RecipeResponse, error)
		DeleteRecipe(ctx context.Context, id string) error
		UploadRecipeImage(ctx context.Context, req domain.UploadRecipeImageRequest) (string, error)
		SetRecipeIngredients(ctx context.Context, recipeID string, req domain.SetRecipeIngredientsRequest) error
	}

	recipeService struct {
		recipeRepository     RecipeRepository
		ingredientRepository ingredient.IngredientRepository
		pipeline             *propagation.Pipeline
		s3                   storage.AwsS3
	}
)

func NewRecipeService(recipeRepository RecipeRepository, ingredientRepository ingredient.IngredientRepository, pipeline *propagation.Pipeline, s3 storage.AwsS3) RecipeService {
	return &recipeService{
		recipeRepository:     recipeRepository,
		ingredientRepository: ingredientRepository,
		pipeline:             pipeline,
		s3:                   s3,
	}
}

func toRecipeResponse(r *entities.Recipe) *domain.RecipeResponse {
	out := &domain.RecipeResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		ImageURL:    r.ImageURL,
		Nutrition: domain.NutritionFacts{
			Calories: r.Calories,
			Protein:  r.Protein,
			Carbs:    r.Carbs,
			Fat:      r.Fat,
			Sugar:    r.Sugar,
		},
		CreatedAt: r.CreatedAt,
	}
	if r.CategoryID != nil {
		out.CategoryID = r.CategoryID.String()
	}
	return out
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest) (*domain.RecipeResponse, error) {
	r := &entities.Recipe{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Calories:    req.Nutrition.Calories,
		Protein:     req.Nutrition.Protein,
		Carbs:       req.Nutrition.Carbs,
		Fat:         req.Nutrition.Fat,
		Sugar:       req.Nutrition.Sugar,
	}
	if req.CategoryID != "" {
		categoryID, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return nil, domain.ErrParseUUID
		}
		if _, err := s.recipeRepository.GetCategoryByID(ctx, req.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrRecipeCategoryNotFound
			}
			return nil, err
		}
		r.CategoryID = &categoryID
	}

	if err := s.recipeRepository.CreateRecipe(ctx, r); err != nil {
		return nil, err
	}
	if err := s.pipeline.CatalogChanged(ctx); err != nil {
		return nil, err
	}
	return toRecipeResponse(r), nil
}

func (s *recipeService) GetRecipes(ctx context.Context, categoryID string) ([]*domain.RecipeResponse, error) {
	recipes, err := s.recipeRepository.GetRecipes(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.RecipeResponse, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, toRecipeResponse(r))
	}
	return out, nil
}

func (s *recipeService) GetRecipeDetail(ctx context.Context, id string) (*domain.RecipeDetailResponse, error) {
	r, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, err
	}

	detail := &domain.RecipeDetailResponse{
		RecipeResponse: *toRecipeResponse(r),
		Ingredients:    make([]domain.RecipeIngredientResponse, 0, len(r.Ingredients)),
	}
	for _, row := range r.Ingredients {
		item := domain.RecipeIngredientResponse{
			IngredientID: row.IngredientID.String(),
			Quantity:     row.Quantity,
		}
		if row.Ingredient != nil {
			item.Name = row.Ingredient.Name
			item.Unit = row.Ingredient.Unit
		}
		detail.Ingredients = append(detail.Ingredients, item)
	}
	return detail, nil
}

func (s *recipeService) UpdateRecipe(ctx context.Context, id string, req domain.UpdateRecipeRequest) (*domain.RecipeResponse, error) {
	r, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, err
	}

	if req.Name != "" {
		r.Name = req.Name
	}
	if req.Description != "" {
		r.Description = req.Description
	}
	if req.Price > 0 {
		r.Price = req.Price
	}
	if req.CategoryID != "" {
		categoryID, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return nil, domain.ErrParseUUID
		}
		r.CategoryID = &categoryID
	}
	r.Calories = req.Nutrition.Calories
	r.Protein = req.Nutrition.Protein
	r.Carbs = req.Nutrition.Carbs
	r.Fat = req.Nutrition.Fat
	r.Sugar = req.Nutrition.Sugar

	if err := s.recipeRepository.UpdateRecipe(ctx, r); err != nil {
		return nil, err
	}
	if err := s.pipeline.CatalogChanged(ctx); err != nil {
		return nil, err
	}
	return toRecipeResponse(r), nil
}

func (s *recipeService) DeleteRecipe(ctx context.Context, id string) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}
	if err := s.recipeRepository.DeleteRecipe(ctx, id); err != nil {
		return err
	}
	return s.pipeline.RecipeRemoved(ctx, id)
}

func (s *recipeService) UploadRecipeImage(ctx context.Context, req domain.UploadRecipeImageRequest) (string, error) {
	r, err := s.recipeRepository.GetRecipeByID(ctx, req.RecipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrRecipeNotFound
		}
		return "", err
	}

	objectKey, err := s.s3.UploadFile(
		fmt.Sprintf("recipe-%s", r.ID.String()),
		req.Image,
		"recipes",
		storage.AllowImage...,
	)
	if err != nil {
		return "", err
	}
	r.ImageURL = s.s3.GetPublicLinkKey(objectKey)

	if err := s.recipeRepository.UpdateRecipe(ctx, r); err != nil {
		return "", err
	}
	return r.ImageURL, nil
}

// SetRecipeIngredients replaces the recipe's whole requirement list. The
// request may not name the same ingredient twice.
func (s *recipeService) SetRecipeIngredients(ctx context.Context, recipeID string, req domain.SetRecipeIngredientsRequest) error {
	recipeUUID, err := uuid.Parse(recipeID)
	if err != nil {
		return domain.ErrParseUUID
	}
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	seen := make(map[string]bool, len(req.Ingredients))
	rows := make([]entities.RecipeIngredient, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		if seen[item.IngredientID] {
			return domain.ErrDuplicateIngredientRow
		}
		seen[item.IngredientID] = true

		ingredientUUID, err := uuid.Parse(item.IngredientID)
		if err != nil {
			return domain.ErrParseUUID
		}
		if _, err := s.ingredientRepository.GetIngredientByID(ctx, item.IngredientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrIngredientNotFound
			}
			return err
		}
		rows = append(rows, entities.RecipeIngredient{
			ID:           uuid.New(),
			RecipeID:     recipeUUID,
			IngredientID: ingredientUUID,
			Quantity:     item.Quantity,
		})
	}

	if err := s.recipeRepository.ReplaceRecipeIngredients(ctx, recipeID, rows); err != nil {
		return err
	}
	return s.pipeline.CatalogChanged(ctx)
}
