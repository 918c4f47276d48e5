package ingredient

import (
	"context"
	"errors"

	"kopimatic/domain"
	"kopimatic/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	IngredientService interface {
		CreateIngredient(ctx context.Context, req domain.CreateIngredientRequest) (*domain.IngredientResponse, error)
		GetIngredients(ctx context.Context) ([]*domain.IngredientResponse, error)
		GetIngredientByID(ctx context.Context, id string) (*domain.IngredientResponse, error)
		UpdateIngredient(ctx context.Context, id string, req domain.UpdateIngredientRequest) (*domain.IngredientResponse, error)
		DeleteIngredient(ctx context.Context, id string) error
	}

	ingredientService struct {
		ingredientRepository IngredientRepository
	}
)

func NewIngredientService(ingredientRepository IngredientRepository) IngredientService {
	return &ingredientService{ingredientRepository: ingredientRepository}
}

func toIngredientResponse(i *entities.Ingredient) *domain.IngredientResponse {
	return &domain.IngredientResponse{
		ID:   i.ID.String(),
		Name: i.Name,
		Unit: i.Unit,
	}
}

func (s *ingredientService) CreateIngredient(ctx context.Context, req domain.CreateIngredientRequest) (*domain.IngredientResponse, error) {
	i := &entities.Ingredient{
		ID:   uuid.New(),
		Name: req.Name,
		Unit: req.Unit,
	}
	if err := s.ingredientRepository.CreateIngredient(ctx, i); err != nil {
		return nil, err
	}
	return toIngredientResponse(i), nil
}

func (s *ingredientService) GetIngredients(ctx context.Context) ([]*domain.IngredientResponse, error) {
	ingredients, err := s.ingredientRepository.GetIngredients(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.IngredientResponse, 0, len(ingredients))
	for _, i := range ingredients {
		out = append(out, toIngredientResponse(i))
	}
	return out, nil
}

func (s *ingredientService) GetIngredientByID(ctx context.Context, id string) (*domain.IngredientResponse, error) {
	i, err := s.ingredientRepository.GetIngredientByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrIngredientNotFound
		}
		return nil, err
	}
	return toIngredientResponse(i), nil
}

func (s *ingredientService) UpdateIngredient(ctx context.Context, id string, req domain.UpdateIngredientRequest) (*domain.IngredientResponse, error) {
	i, err := s.ingredientRepository.GetIngredientByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrIngredientNotFound
		}
		return nil, err
	}

	if req.Name != "" {
		i.Name = req.Name
	}
	if req.Unit != "" {
		i.Unit = req.Unit
	}
	if err := s.ingredientRepository.UpdateIngredient(ctx, i); err != nil {
		return nil, err
	}
	return toIngredientResponse(i), nil
}

// DeleteIngredient refuses to remove an ingredient that any recipe still
// references. Callers must detach it from every recipe first.
func (s *ingredientService) DeleteIngredient(ctx context.Context, id string) error {
	if _, err := s.ingredientRepository.GetIngredientByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrIngredientNotFound
		}
		return err
	}

	used, err := s.ingredientRepository.CountRecipesUsing(ctx, id)
	if err != nil {
		return err
	}
	if used > 0 {
		return domain.ErrIngredientInUse
	}
	return s.ingredientRepository.DeleteIngredient(ctx, id)
}
