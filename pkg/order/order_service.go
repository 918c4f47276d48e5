package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kopimatic/domain"
	"kopimatic/entities"
	"kopimatic/pkg/machine"
	"kopimatic/pkg/propagation"
	"kopimatic/pkg/recipe"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	OrderService interface {
		// CreateOrder runs the availability pre-check, creates the order and
		// finalizes it in the same request (the kiosk's direct path). When the
		// recipe cannot be prepared the missing ingredient IDs come back with
		// ErrInsufficientStock so the UI can explain the rejection.
		CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.OrderResponse, []string, error)
		GetOrders(ctx context.Context, machineID string, page, limit int) ([]*domain.OrderResponse, int64, error)
		GetOrderByID(ctx context.Context, id string) (*domain.OrderResponse, error)
		UpdateOrderStatus(ctx context.Context, id, status string) error
		FinalizeOrder(ctx context.Context, id string) error
		RateOrder(ctx context.Context, id string, rating int) error
	}

	orderService struct {
		orderRepository   OrderRepository
		machineRepository machine.MachineRepository
		recipeRepository  recipe.RecipeRepository
		pipeline          *propagation.Pipeline
	}
)

func NewOrderService(orderRepository OrderRepository, machineRepository machine.MachineRepository, recipeRepository recipe.RecipeRepository, pipeline *propagation.Pipeline) OrderService {
	return &orderService{
		orderRepository:   orderRepository,
		machineRepository: machineRepository,
		recipeRepository:  recipeRepository,
		pipeline:          pipeline,
	}
}

func toOrderResponse(order *entities.Order) *domain.OrderResponse {
	return &domain.OrderResponse{
		ID:        order.ID.String(),
		UserID:    order.UserID.String(),
		MachineID: order.MachineID.String(),
		RecipeID:  order.RecipeID.String(),
		Bill:      order.Bill,
		OrderedAt: order.OrderedAt,
		Status:    order.Status,
		Rating:    order.Rating,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.OrderResponse, []string, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, nil, domain.ErrParseUUID
	}
	machineID, err := uuid.Parse(req.MachineID)
	if err != nil {
		return nil, nil, domain.ErrParseUUID
	}
	recipeID, err := uuid.Parse(req.RecipeID)
	if err != nil {
		return nil, nil, domain.ErrParseUUID
	}

	m, err := s.machineRepository.GetMachineByID(ctx, req.MachineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrMachineNotFound
		}
		return nil, nil, err
	}
	if m.Status != domain.MachineStatusOnline {
		return nil, nil, domain.ErrMachineNotOperational
	}

	r, err := s.recipeRepository.GetRecipeByID(ctx, req.RecipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrRecipeNotFound
		}
		return nil, nil, err
	}

	snapshot, err := s.pipeline.Snapshot(ctx, req.MachineID)
	if err != nil {
		return nil, nil, err
	}
	if missing, short := snapshot.MissingIngredients[req.RecipeID]; short {
		return nil, missing, domain.ErrInsufficientStock
	}

	order := &entities.Order{
		ID:        uuid.New(),
		UserID:    userID,
		MachineID: machineID,
		RecipeID:  recipeID,
		Bill:      r.Price,
		OrderedAt: time.Now(),
		Status:    entities.OrderStatusPending,
	}
	if err := s.orderRepository.CreateOrder(ctx, order); err != nil {
		return nil, nil, err
	}

	// Direct kiosk path: the machine dispenses right away, so finalize in the
	// same request through the shared routine.
	if err := s.FinalizeOrder(ctx, order.ID.String()); err != nil {
		return nil, nil, err
	}

	finalized, err := s.orderRepository.GetOrderByID(ctx, order.ID.String())
	if err != nil {
		return nil, nil, err
	}
	return toOrderResponse(finalized), nil, nil
}

// FinalizeOrder applies the completion side effects exactly once: inventory
// deduction, low stock warnings, revenue increment and an availability
// recompute pushed to the machine's room. The conditional status transition is
// the idempotency gate; a rerun on an already completed order is a no-op.
func (s *orderService) FinalizeOrder(ctx context.Context, id string) error {
	order, err := s.orderRepository.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrOrderNotFound
		}
		return err
	}

	switch order.Status {
	case entities.OrderStatusCompleted:
		return nil // already finalized
	case entities.OrderStatusFailed, entities.OrderStatusCancelled:
		return domain.ErrInvalidOrderStatus
	}

	won, err := s.orderRepository.TransitionStatus(ctx, id, order.Status, entities.OrderStatusCompleted)
	if err != nil {
		return err
	}
	if !won {
		// A concurrent caller moved the order first; its finalization owns the
		// side effects.
		return nil
	}

	machineID := order.MachineID.String()
	rows, err := s.recipeRepository.GetRecipeIngredients(ctx, order.RecipeID.String())
	if err != nil {
		return err
	}

	var deductErr error
	for _, row := range rows {
		ingredientID := row.IngredientID.String()
		ok, err := s.machineRepository.DeductInventory(ctx, machineID, ingredientID, row.Quantity)
		if err != nil {
			deductErr = err
			log.Errorf("order %s: deduct %s on machine %s: %v", id, ingredientID, machineID, err)
			break
		}
		if !ok {
			// Stock ran out between the pre-check and now, or the row never
			// existed. The order is already completed; keep the inventory as
			// it is and surface the inconsistency instead of pretending the
			// deduction happened.
			deductErr = fmt.Errorf("order %s: insufficient stock deducting %s on machine %s", id, ingredientID, machineID)
			log.Error(deductErr.Error())
			break
		}
		s.pipeline.CheckStockLevel(ctx, machineID, ingredientID)
	}

	if err := s.machineRepository.IncrementRevenue(ctx, machineID, order.Bill); err != nil {
		log.Errorf("order %s: increment revenue: %v", id, err)
	}

	if err := s.pipeline.RecomputeAndPublish(ctx, machineID); err != nil {
		log.Errorf("order %s: publish availability: %v", id, err)
	}

	return deductErr
}

func (s *orderService) GetOrders(ctx context.Context, machineID string, page, limit int) ([]*domain.OrderResponse, int64, error) {
	orders, count, err := s.orderRepository.GetOrders(ctx, machineID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderResponse(order))
	}
	return out, count, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, id string) (*domain.OrderResponse, error) {
	order, err := s.orderRepository.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return toOrderResponse(order), nil
}

var validTransitions = map[string][]string{
	entities.OrderStatusPending:    {entities.OrderStatusProcessing, entities.OrderStatusCompleted, entities.OrderStatusFailed, entities.OrderStatusCancelled},
	entities.OrderStatusProcessing: {entities.OrderStatusCompleted, entities.OrderStatusFailed, entities.OrderStatusCancelled},
}

// UpdateOrderStatus is the generic transition path. Completion funnels through
// FinalizeOrder so the two call sites cannot diverge.
func (s *orderService) UpdateOrderStatus(ctx context.Context, id, status string) error {
	if status == entities.OrderStatusCompleted {
		return s.FinalizeOrder(ctx, id)
	}

	order, err := s.orderRepository.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrOrderNotFound
		}
		return err
	}

	allowed := false
	for _, next := range validTransitions[order.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return domain.ErrInvalidOrderStatus
	}

	_, err = s.orderRepository.TransitionStatus(ctx, id, order.Status, status)
	return err
}

func (s *orderService) RateOrder(ctx context.Context, id string, rating int) error {
	order, err := s.orderRepository.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrOrderNotFound
		}
		return err
	}
	if order.Status != entities.OrderStatusCompleted {
		return domain.ErrOrderNotCompleted
	}
	order.Rating = &rating
	return s.orderRepository.UpdateOrder(ctx, order)
}
