package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"kopimatic/domain"
	"kopimatic/entities"
	"kopimatic/pkg/availability"
	"kopimatic/pkg/propagation"
	"kopimatic/pkg/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*entities.Order
}

func newFakeOrderRepository() *fakeOrderRepository {
	return &fakeOrderRepository{orders: make(map[string]*entities.Order)}
}

func (r *fakeOrderRepository) CreateOrder(_ context.Context, order *entities.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *order
	r.orders[order.ID.String()] = &clone
	return nil
}

func (r *fakeOrderRepository) GetOrderByID(_ context.Context, id string) (*entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

func (r *fakeOrderRepository) GetOrders(_ context.Context, machineID string, page, limit int) ([]*entities.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Order
	for _, order := range r.orders {
		if machineID == "" || order.MachineID.String() == machineID {
			clone := *order
			out = append(out, &clone)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepository) UpdateOrder(_ context.Context, order *entities.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *order
	r.orders[order.ID.String()] = &clone
	return nil
}

func (r *fakeOrderRepository) TransitionStatus(_ context.Context, id, expected, next string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.Status != expected {
		return false, nil
	}
	order.Status = next
	return true, nil
}

type fakeMachineRepository struct {
	mu        sync.Mutex
	machines  map[string]*entities.Machine
	inventory map[string]map[string]*entities.MachineIngredientInventory
	warnings  []*entities.StockWarning
}

func newFakeMachineRepository() *fakeMachineRepository {
	return &fakeMachineRepository{
		machines:  make(map[string]*entities.Machine),
		inventory: make(map[string]map[string]*entities.MachineIngredientInventory),
	}
}

func (r *fakeMachineRepository) CreateMachine(_ context.Context, m *entities.Machine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.machines[m.ID.String()] = m
	return nil
}

func (r *fakeMachineRepository) GetMachineByID(_ context.Context, id string) (*entities.Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.machines[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (r *fakeMachineRepository) GetMachines(_ context.Context) ([]*entities.Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.Machine, 0, len(r.machines))
	for _, m := range r.machines {
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMachineRepository) UpdateMachine(_ context.Context, m *entities.Machine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.machines[m.ID.String()] = m
	return nil
}

func (r *fakeMachineRepository) DeleteMachine(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.machines, id)
	return nil
}

func (r *fakeMachineRepository) IncrementRevenue(_ context.Context, id string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.machines[id]; ok {
		m.Revenue += amount
	}
	return nil
}

func (r *fakeMachineRepository) GetInventory(_ context.Context, machineID string) ([]*entities.MachineIngredientInventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.MachineIngredientInventory
	for _, row := range r.inventory[machineID] {
		clone := *row
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeMachineRepository) GetInventoryRow(_ context.Context, machineID, ingredientID string) (*entities.MachineIngredientInventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.inventory[machineID][ingredientID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *fakeMachineRepository) UpsertInventoryRow(_ context.Context, row *entities.MachineIngredientInventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	machineID := row.MachineID.String()
	if r.inventory[machineID] == nil {
		r.inventory[machineID] = make(map[string]*entities.MachineIngredientInventory)
	}
	clone := *row
	r.inventory[machineID][row.IngredientID.String()] = &clone
	return nil
}

func (r *fakeMachineRepository) DeductInventory(_ context.Context, machineID, ingredientID string, amount float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.inventory[machineID][ingredientID]
	if !ok || row.Quantity < amount {
		return false, nil
	}
	row.Quantity -= amount
	row.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeMachineRepository) CreateStockWarning(_ context.Context, warning *entities.StockWarning) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, warning)
	return nil
}

func (r *fakeMachineRepository) GetStockWarnings(_ context.Context, machineID string, unresolvedOnly bool) ([]*entities.StockWarning, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.StockWarning
	for _, w := range r.warnings {
		if w.MachineID.String() == machineID && (!unresolvedOnly || !w.Resolved) {
			out = append(out, w)
		}
	}
	return out, nil
}

type fakeRecipeRepository struct {
	recipes map[string]*entities.Recipe
	rows    []*entities.RecipeIngredient
}

func newFakeRecipeRepository() *fakeRecipeRepository {
	return &fakeRecipeRepository{recipes: make(map[string]*entities.Recipe)}
}

func (r *fakeRecipeRepository) CreateRecipe(_ context.Context, recipe *entities.Recipe) error {
	r.recipes[recipe.ID.String()] = recipe
	return nil
}

func (r *fakeRecipeRepository) GetRecipeByID(_ context.Context, id string) (*entities.Recipe, error) {
	recipe, ok := r.recipes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return recipe, nil
}

func (r *fakeRecipeRepository) GetRecipes(_ context.Context, categoryID string) ([]*entities.Recipe, error) {
	out := make([]*entities.Recipe, 0, len(r.recipes))
	for _, recipe := range r.recipes {
		out = append(out, recipe)
	}
	return out, nil
}

func (r *fakeRecipeRepository) UpdateRecipe(_ context.Context, recipe *entities.Recipe) error {
	r.recipes[recipe.ID.String()] = recipe
	return nil
}

func (r *fakeRecipeRepository) DeleteRecipe(_ context.Context, id string) error {
	delete(r.recipes, id)
	return nil
}

func (r *fakeRecipeRepository) GetRecipeIngredients(_ context.Context, recipeID string) ([]*entities.RecipeIngredient, error) {
	var out []*entities.RecipeIngredient
	for _, row := range r.rows {
		if row.RecipeID.String() == recipeID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeRecipeRepository) GetAllRecipeIngredients(_ context.Context) ([]*entities.RecipeIngredient, error) {
	return r.rows, nil
}

func (r *fakeRecipeRepository) ReplaceRecipeIngredients(_ context.Context, recipeID string, rows []entities.RecipeIngredient) error {
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.RecipeID.String() != recipeID {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	for i := range rows {
		row := rows[i]
		r.rows = append(r.rows, &row)
	}
	return nil
}

func (r *fakeRecipeRepository) GetCategoryByID(_ context.Context, id string) (*entities.RecipeCategory, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRecipeRepository) GetCategories(_ context.Context) ([]*entities.RecipeCategory, error) {
	return nil, nil
}

type fakeTransport struct {
	mu         sync.Mutex
	roomEvents []string
	broadcasts []string
}

func (t *fakeTransport) EmitToRoom(machineID, event string, data any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roomEvents = append(t.roomEvents, event)
}

func (t *fakeTransport) Broadcast(event string, data any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.broadcasts = append(t.broadcasts, event)
}

func (t *fakeTransport) countRoomEvents(event string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.roomEvents {
		if e == event {
			n++
		}
	}
	return n
}

type orderFixture struct {
	service   OrderService
	orders    *fakeOrderRepository
	machines  *fakeMachineRepository
	recipes   *fakeRecipeRepository
	transport *fakeTransport

	machineID  uuid.UUID
	coffeeID   uuid.UUID
	milkID     uuid.UUID
	espressoID uuid.UUID
	latteID    uuid.UUID
	userID     uuid.UUID

	criticalWarnings []*entities.StockWarning
}

func newOrderFixture() *orderFixture {
	fx := &orderFixture{
		orders:     newFakeOrderRepository(),
		machines:   newFakeMachineRepository(),
		recipes:    newFakeRecipeRepository(),
		transport:  &fakeTransport{},
		machineID:  uuid.New(),
		coffeeID:   uuid.New(),
		milkID:     uuid.New(),
		espressoID: uuid.New(),
		latteID:    uuid.New(),
		userID:     uuid.New(),
	}

	fx.machines.machines[fx.machineID.String()] = &entities.Machine{
		ID:     fx.machineID,
		Name:   "Lobby",
		Status: domain.MachineStatusOnline,
	}

	fx.recipes.recipes[fx.espressoID.String()] = &entities.Recipe{ID: fx.espressoID, Name: "Espresso", Price: 3}
	fx.recipes.recipes[fx.latteID.String()] = &entities.Recipe{ID: fx.latteID, Name: "Latte", Price: 4.5}
	fx.recipes.rows = []*entities.RecipeIngredient{
		{ID: uuid.New(), RecipeID: fx.espressoID, IngredientID: fx.coffeeID, Quantity: 30},
		{ID: uuid.New(), RecipeID: fx.latteID, IngredientID: fx.coffeeID, Quantity: 30},
		{ID: uuid.New(), RecipeID: fx.latteID, IngredientID: fx.milkID, Quantity: 90},
	}

	fx.setStock(fx.coffeeID, 100)
	fx.setStock(fx.milkID, 90)

	assocs := make([]availability.Association, 0, len(fx.recipes.rows))
	for _, row := range fx.recipes.rows {
		assocs = append(assocs, availability.Association{
			RecipeID:     row.RecipeID.String(),
			IngredientID: row.IngredientID.String(),
			Quantity:     row.Quantity,
		})
	}
	engine := availability.NewEngine(availability.NewIndex(assocs))
	pipeline := propagation.New(engine, fx.transport, fx.machines, fx.recipes, func(w *entities.StockWarning) {
		fx.criticalWarnings = append(fx.criticalWarnings, w)
	})

	fx.service = NewOrderService(fx.orders, fx.machines, fx.recipes, pipeline)
	return fx
}

func (fx *orderFixture) setStock(ingredientID uuid.UUID, quantity float64) {
	machineID := fx.machineID.String()
	if fx.machines.inventory[machineID] == nil {
		fx.machines.inventory[machineID] = make(map[string]*entities.MachineIngredientInventory)
	}
	fx.machines.inventory[machineID][ingredientID.String()] = &entities.MachineIngredientInventory{
		ID:           uuid.New(),
		MachineID:    fx.machineID,
		IngredientID: ingredientID,
		Quantity:     quantity,
	}
}

func (fx *orderFixture) stock(ingredientID uuid.UUID) float64 {
	return fx.machines.inventory[fx.machineID.String()][ingredientID.String()].Quantity
}

func (fx *orderFixture) pendingOrder(recipeID uuid.UUID, bill float64) *entities.Order {
	order := &entities.Order{
		ID:        uuid.New(),
		UserID:    fx.userID,
		MachineID: fx.machineID,
		RecipeID:  recipeID,
		Bill:      bill,
		OrderedAt: time.Now(),
		Status:    entities.OrderStatusPending,
	}
	fx.orders.orders[order.ID.String()] = order
	return order
}

func TestCreateOrderDeductsAndCompletes(t *testing.T) {
	fx := newOrderFixture()
	ctx := context.Background()

	resp, missing, err := fx.service.CreateOrder(ctx, domain.CreateOrderRequest{
		UserID:    fx.userID.String(),
		MachineID: fx.machineID.String(),
		RecipeID:  fx.espressoID.String(),
	})
	require.NoError(t, err)
	require.Empty(t, missing)
	require.NotNil(t, resp)

	assert.Equal(t, entities.OrderStatusCompleted, resp.Status)
	assert.Equal(t, 3.0, resp.Bill)
	assert.Equal(t, 70.0, fx.stock(fx.coffeeID))
	assert.Equal(t, 3.0, fx.machines.machines[fx.machineID.String()].Revenue)
	assert.GreaterOrEqual(t, fx.transport.countRoomEvents(realtime.EventRecipeAvailability), 1)
}

func TestCreateOrderRejectsWhenStockShort(t *testing.T) {
	fx := newOrderFixture()
	fx.setStock(fx.milkID, 50)

	_, missing, err := fx.service.CreateOrder(context.Background(), domain.CreateOrderRequest{
		UserID:    fx.userID.String(),
		MachineID: fx.machineID.String(),
		RecipeID:  fx.latteID.String(),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, []string{fx.milkID.String()}, missing)
	assert.Empty(t, fx.orders.orders, "a rejected order must not be persisted")
	assert.Equal(t, 100.0, fx.stock(fx.coffeeID))
}

func TestCreateOrderRejectsMachineNotOnline(t *testing.T) {
	fx := newOrderFixture()
	fx.machines.machines[fx.machineID.String()].Status = domain.MachineStatusMaintenance

	_, _, err := fx.service.CreateOrder(context.Background(), domain.CreateOrderRequest{
		UserID:    fx.userID.String(),
		MachineID: fx.machineID.String(),
		RecipeID:  fx.espressoID.String(),
	})
	require.ErrorIs(t, err, domain.ErrMachineNotOperational)
}

func TestFinalizeOrderIsIdempotent(t *testing.T) {
	fx := newOrderFixture()
	ctx := context.Background()
	order := fx.pendingOrder(fx.espressoID, 3)

	require.NoError(t, fx.service.FinalizeOrder(ctx, order.ID.String()))
	assert.Equal(t, 70.0, fx.stock(fx.coffeeID))

	// A webhook retry replays the completion; nothing may happen twice.
	require.NoError(t, fx.service.FinalizeOrder(ctx, order.ID.String()))
	assert.Equal(t, 70.0, fx.stock(fx.coffeeID))
	assert.Equal(t, 3.0, fx.machines.machines[fx.machineID.String()].Revenue)
}

func TestFinalizeOrderRejectsTerminalStates(t *testing.T) {
	fx := newOrderFixture()
	ctx := context.Background()
	order := fx.pendingOrder(fx.espressoID, 3)
	order.Status = entities.OrderStatusFailed

	require.ErrorIs(t, fx.service.FinalizeOrder(ctx, order.ID.String()), domain.ErrInvalidOrderStatus)
	assert.Equal(t, 100.0, fx.stock(fx.coffeeID))
}

func TestFinalizeOrderSurfacesPartialDeduction(t *testing.T) {
	fx := newOrderFixture()
	ctx := context.Background()
	// Stock moved between the pre-check and finalization.
	fx.setStock(fx.coffeeID, 10)
	order := fx.pendingOrder(fx.espressoID, 3)

	err := fx.service.FinalizeOrder(ctx, order.ID.String())
	require.Error(t, err)

	// The order stays completed; the shortfall is surfaced, not rolled back.
	stored, getErr := fx.orders.GetOrderByID(ctx, order.ID.String())
	require.NoError(t, getErr)
	assert.Equal(t, entities.OrderStatusCompleted, stored.Status)
	assert.Equal(t, 10.0, fx.stock(fx.coffeeID))
}

func TestFinalizeOrderRaisesStockWarnings(t *testing.T) {
	fx := newOrderFixture()
	ctx := context.Background()

	// 40 - 30 = 10 hits the low threshold.
	fx.setStock(fx.coffeeID, 40)
	order := fx.pendingOrder(fx.espressoID, 3)
	require.NoError(t, fx.service.FinalizeOrder(ctx, order.ID.String()))

	warnings, err := fx.machines.GetStockWarnings(ctx, fx.machineID.String(), true)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.StockSeverityHigh, warnings[0].Severity)
	assert.Empty(t, fx.criticalWarnings)

	// 10 - 30 cannot deduct; refill to 35 so the next order lands on 5.
	fx.setStock(fx.coffeeID, 35)
	order = fx.pendingOrder(fx.espressoID, 3)
	require.NoError(t, fx.service.FinalizeOrder(ctx, order.ID.String()))

	require.Len(t, fx.criticalWarnings, 1)
	assert.Equal(t, domain.StockSeverityCritical, fx.criticalWarnings[0].Severity)
	assert.Equal(t, 5.0, fx.criticalWarnings[0].Quantity)
}

func TestUpdateOrderStatusTransitions(t *testing.T) {
	fx := newOrderFixture()
	ctx := context.Background()
	order := fx.pendingOrder(fx.espressoID, 3)

	require.NoError(t, fx.service.UpdateOrderStatus(ctx, order.ID.String(), entities.OrderStatusProcessing))

	// Completion funnels through finalization and applies side effects.
	require.NoError(t, fx.service.UpdateOrderStatus(ctx, order.ID.String(), entities.OrderStatusCompleted))
	assert.Equal(t, 70.0, fx.stock(fx.coffeeID))

	// No transitions leave a terminal state.
	err := fx.service.UpdateOrderStatus(ctx, order.ID.String(), entities.OrderStatusProcessing)
	require.ErrorIs(t, err, domain.ErrInvalidOrderStatus)
}

func TestRateOrderRequiresCompletion(t *testing.T) {
	fx := newOrderFixture()
	ctx := context.Background()
	order := fx.pendingOrder(fx.espressoID, 3)

	require.ErrorIs(t, fx.service.RateOrder(ctx, order.ID.String(), 5), domain.ErrOrderNotCompleted)

	require.NoError(t, fx.service.FinalizeOrder(ctx, order.ID.String()))
	require.NoError(t, fx.service.RateOrder(ctx, order.ID.String(), 5))

	stored, err := fx.orders.GetOrderByID(ctx, order.ID.String())
	require.NoError(t, err)
	require.NotNil(t, stored.Rating)
	assert.Equal(t, 5, *stored.Rating)
}
