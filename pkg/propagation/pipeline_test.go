package propagation

import (
	"context"
	"sync"
	"testing"
	"time"

	"kopimatic/domain"
	"kopimatic/entities"
	"kopimatic/pkg/availability"
	"kopimatic/pkg/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	room  string
	event string
	data  any
}

type fakeTransport struct {
	mu         sync.Mutex
	roomEvents []emitted
	broadcasts []emitted
}

func (t *fakeTransport) EmitToRoom(machineID, event string, data any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roomEvents = append(t.roomEvents, emitted{room: machineID, event: event, data: data})
}

func (t *fakeTransport) Broadcast(event string, data any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.broadcasts = append(t.broadcasts, emitted{event: event, data: data})
}

func (t *fakeTransport) roomEventsOf(event string) []emitted {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []emitted
	for _, ev := range t.roomEvents {
		if ev.event == event {
			out = append(out, ev)
		}
	}
	return out
}

type fakeInventory struct {
	mu       sync.Mutex
	rows     map[string]map[string]*entities.MachineIngredientInventory
	warnings []*entities.StockWarning
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{rows: make(map[string]map[string]*entities.MachineIngredientInventory)}
}

func (f *fakeInventory) put(machineID, ingredientID uuid.UUID, qty float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.rows[machineID.String()]
	if m == nil {
		m = make(map[string]*entities.MachineIngredientInventory)
		f.rows[machineID.String()] = m
	}
	m[ingredientID.String()] = &entities.MachineIngredientInventory{
		ID:           uuid.New(),
		MachineID:    machineID,
		IngredientID: ingredientID,
		Quantity:     qty,
		UpdatedAt:    time.Now(),
	}
}

func (f *fakeInventory) GetInventory(ctx context.Context, machineID string) ([]*entities.MachineIngredientInventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.MachineIngredientInventory
	for _, row := range f.rows[machineID] {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeInventory) GetInventoryRow(ctx context.Context, machineID, ingredientID string) (*entities.MachineIngredientInventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[machineID][ingredientID]
	if !ok {
		return nil, assert.AnError
	}
	return row, nil
}

func (f *fakeInventory) CreateStockWarning(ctx context.Context, warning *entities.StockWarning) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warnings = append(f.warnings, warning)
	return nil
}

type fakeCatalog struct {
	recipes []*entities.Recipe
	rows    []*entities.RecipeIngredient
}

func (f *fakeCatalog) GetRecipes(ctx context.Context, categoryID string) ([]*entities.Recipe, error) {
	return f.recipes, nil
}

func (f *fakeCatalog) GetAllRecipeIngredients(ctx context.Context) ([]*entities.RecipeIngredient, error) {
	return f.rows, nil
}

type pipelineFixture struct {
	pipeline  *Pipeline
	transport *fakeTransport
	inventory *fakeInventory
	catalog   *fakeCatalog

	machineID  uuid.UUID
	coffeeID   uuid.UUID
	milkID     uuid.UUID
	espressoID uuid.UUID
	latteID    uuid.UUID
	waterID    uuid.UUID

	notified []*entities.StockWarning
}

func newPipelineFixture() *pipelineFixture {
	fx := &pipelineFixture{
		transport:  &fakeTransport{},
		inventory:  newFakeInventory(),
		machineID:  uuid.New(),
		coffeeID:   uuid.New(),
		milkID:     uuid.New(),
		espressoID: uuid.New(),
		latteID:    uuid.New(),
		waterID:    uuid.New(),
	}

	fx.catalog = &fakeCatalog{
		recipes: []*entities.Recipe{
			{ID: fx.espressoID, Name: "Espresso"},
			{ID: fx.latteID, Name: "Latte"},
			{ID: fx.waterID, Name: "Hot Water"},
		},
		rows: []*entities.RecipeIngredient{
			{ID: uuid.New(), RecipeID: fx.espressoID, IngredientID: fx.coffeeID, Quantity: 30},
			{ID: uuid.New(), RecipeID: fx.latteID, IngredientID: fx.coffeeID, Quantity: 30},
			{ID: uuid.New(), RecipeID: fx.latteID, IngredientID: fx.milkID, Quantity: 90},
		},
	}

	index := availability.NewIndex([]availability.Association{
		{RecipeID: fx.espressoID.String(), IngredientID: fx.coffeeID.String(), Quantity: 30},
		{RecipeID: fx.latteID.String(), IngredientID: fx.coffeeID.String(), Quantity: 30},
		{RecipeID: fx.latteID.String(), IngredientID: fx.milkID.String(), Quantity: 90},
	})
	engine := availability.NewEngine(index)

	fx.pipeline = New(engine, fx.transport, fx.inventory, fx.catalog, func(w *entities.StockWarning) {
		fx.notified = append(fx.notified, w)
	})

	fx.inventory.put(fx.machineID, fx.coffeeID, 100)
	fx.inventory.put(fx.machineID, fx.milkID, 90)
	return fx
}

func TestSnapshotFullRecompute(t *testing.T) {
	fx := newPipelineFixture()

	snap, err := fx.pipeline.Snapshot(context.Background(), fx.machineID.String())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{fx.espressoID.String(), fx.latteID.String(), fx.waterID.String()}, snap.AvailableRecipes)
	assert.Empty(t, snap.UnavailableRecipes)
	assert.Equal(t, fx.machineID.String(), snap.MachineID)
}

func TestRecomputeAndPublishEmitsToRoom(t *testing.T) {
	fx := newPipelineFixture()

	require.NoError(t, fx.pipeline.RecomputeAndPublish(context.Background(), fx.machineID.String()))

	events := fx.transport.roomEventsOf(realtime.EventRecipeAvailability)
	require.Len(t, events, 1)
	assert.Equal(t, fx.machineID.String(), events[0].room)
	snap := events[0].data.(domain.AvailabilitySnapshot)
	assert.Len(t, snap.AvailableRecipes, 3)
}

func TestIngredientChangedScopedUpdate(t *testing.T) {
	fx := newPipelineFixture()
	ctx := context.Background()

	// Seed the cached snapshot, then drain milk.
	_, err := fx.pipeline.Snapshot(ctx, fx.machineID.String())
	require.NoError(t, err)
	fx.inventory.put(fx.machineID, fx.milkID, 0)

	require.NoError(t, fx.pipeline.IngredientChanged(ctx, fx.machineID.String(), fx.milkID.String()))

	events := fx.transport.roomEventsOf(realtime.EventRecipeAvailability)
	require.Len(t, events, 1)
	snap := events[0].data.(domain.AvailabilitySnapshot)
	assert.Contains(t, snap.UnavailableRecipes, fx.latteID.String())
	assert.Contains(t, snap.AvailableRecipes, fx.espressoID.String(), "espresso does not use milk")
	assert.Contains(t, snap.AvailableRecipes, fx.waterID.String())
	assert.Equal(t, []string{fx.milkID.String()}, snap.MissingIngredients[fx.latteID.String()])

	rows := fx.transport.roomEventsOf(realtime.EventMachineInventory)
	require.Len(t, rows, 1, "changed inventory row must be pushed alongside availability")
	payload := rows[0].data.(realtime.InventoryPayload)
	require.Len(t, payload.Rows, 1)
	assert.Equal(t, 0.0, payload.Rows[0].Quantity)
}

func TestIngredientChangedWithoutCachedSnapshotFallsBackToFull(t *testing.T) {
	fx := newPipelineFixture()

	require.NoError(t, fx.pipeline.IngredientChanged(context.Background(), fx.machineID.String(), fx.milkID.String()))

	events := fx.transport.roomEventsOf(realtime.EventRecipeAvailability)
	require.Len(t, events, 1)
}

func TestCatalogChangedBroadcastsAndInvalidates(t *testing.T) {
	fx := newPipelineFixture()
	ctx := context.Background()

	_, err := fx.pipeline.Snapshot(ctx, fx.machineID.String())
	require.NoError(t, err)

	// Latte now needs much more milk than the machine holds.
	fx.catalog.rows[2].Quantity = 500
	require.NoError(t, fx.pipeline.CatalogChanged(ctx))

	require.Len(t, fx.transport.broadcasts, 1)
	assert.Equal(t, realtime.EventRecipeUpdate, fx.transport.broadcasts[0].event)

	// The stale snapshot is repaired on the next read.
	snap, err := fx.pipeline.Snapshot(ctx, fx.machineID.String())
	require.NoError(t, err)
	assert.Contains(t, snap.UnavailableRecipes, fx.latteID.String())
}

func TestConcurrentScopedUpdatesDoNotLoseFlips(t *testing.T) {
	fx := newPipelineFixture()
	ctx := context.Background()

	_, err := fx.pipeline.Snapshot(ctx, fx.machineID.String())
	require.NoError(t, err)

	// Drain both ingredients, then report each change from its own goroutine
	// the way two feed events land. Updates based on the same cached snapshot
	// would overwrite each other's recipe flips.
	fx.inventory.put(fx.machineID, fx.coffeeID, 0)
	fx.inventory.put(fx.machineID, fx.milkID, 0)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, fx.pipeline.IngredientChanged(ctx, fx.machineID.String(), fx.coffeeID.String()))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, fx.pipeline.IngredientChanged(ctx, fx.machineID.String(), fx.milkID.String()))
		}()
	}
	wg.Wait()

	snap, err := fx.pipeline.Snapshot(ctx, fx.machineID.String())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{fx.waterID.String()}, snap.AvailableRecipes)
	assert.ElementsMatch(t, []string{fx.espressoID.String(), fx.latteID.String()}, snap.UnavailableRecipes)
}

func TestCatalogChangedDropsDeletedRecipeFromScopedUpdates(t *testing.T) {
	fx := newPipelineFixture()
	ctx := context.Background()

	_, err := fx.pipeline.Snapshot(ctx, fx.machineID.String())
	require.NoError(t, err)

	// Latte is deleted straight in the database; the change feed can only
	// surface that as a generic catalog change, without the recipe ID.
	fx.catalog.recipes = []*entities.Recipe{
		{ID: fx.espressoID, Name: "Espresso"},
		{ID: fx.waterID, Name: "Hot Water"},
	}
	fx.catalog.rows = fx.catalog.rows[:1]
	require.NoError(t, fx.pipeline.CatalogChanged(ctx))

	snap, err := fx.pipeline.Snapshot(ctx, fx.machineID.String())
	require.NoError(t, err)
	assert.NotContains(t, snap.AvailableRecipes, fx.latteID.String())

	// A later milk change must not splice the deleted latte back in.
	fx.inventory.put(fx.machineID, fx.milkID, 0)
	require.NoError(t, fx.pipeline.IngredientChanged(ctx, fx.machineID.String(), fx.milkID.String()))

	events := fx.transport.roomEventsOf(realtime.EventRecipeAvailability)
	require.NotEmpty(t, events)
	published := events[len(events)-1].data.(domain.AvailabilitySnapshot)
	assert.NotContains(t, published.AvailableRecipes, fx.latteID.String())
	assert.NotContains(t, published.UnavailableRecipes, fx.latteID.String())
	assert.NotContains(t, published.MissingIngredients, fx.latteID.String())
}

func TestCheckStockLevelSeverityLadder(t *testing.T) {
	fx := newPipelineFixture()
	ctx := context.Background()

	// Plenty on hand: no warning.
	fx.pipeline.CheckStockLevel(ctx, fx.machineID.String(), fx.coffeeID.String())
	assert.Empty(t, fx.inventory.warnings)

	// At the low threshold: high severity, no page.
	fx.inventory.put(fx.machineID, fx.coffeeID, 10)
	fx.pipeline.CheckStockLevel(ctx, fx.machineID.String(), fx.coffeeID.String())
	require.Len(t, fx.inventory.warnings, 1)
	assert.Equal(t, domain.StockSeverityHigh, fx.inventory.warnings[0].Severity)
	assert.Empty(t, fx.notified)

	// At the critical threshold: critical severity and the notify hook fires.
	fx.inventory.put(fx.machineID, fx.coffeeID, 5)
	fx.pipeline.CheckStockLevel(ctx, fx.machineID.String(), fx.coffeeID.String())
	require.Len(t, fx.inventory.warnings, 2)
	assert.Equal(t, domain.StockSeverityCritical, fx.inventory.warnings[1].Severity)
	require.Len(t, fx.notified, 1)
}

type recordingHandler struct {
	mu        sync.Mutex
	inventory [][2]string
	machines  []string
	catalog   int
}

func (h *recordingHandler) InventoryChanged(ctx context.Context, machineID, ingredientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inventory = append(h.inventory, [2]string{machineID, ingredientID})
}

func (h *recordingHandler) MachineChanged(ctx context.Context, machineID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.machines = append(h.machines, machineID)
}

func (h *recordingHandler) CatalogChanged(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.catalog++
}

type fakeMachines struct {
	machines []*entities.Machine
}

func (f *fakeMachines) GetMachines(ctx context.Context) ([]*entities.Machine, error) {
	return f.machines, nil
}

func (f *fakeMachines) GetMachineByID(ctx context.Context, id string) (*entities.Machine, error) {
	for _, m := range f.machines {
		if m.ID.String() == id {
			return m, nil
		}
	}
	return nil, assert.AnError
}

func TestPollingFeedDetectsInventoryDeltas(t *testing.T) {
	fx := newPipelineFixture()
	machines := &fakeMachines{machines: []*entities.Machine{{ID: fx.machineID, Status: domain.MachineStatusOnline}}}
	feed := NewPollingFeed(machines, fx.inventory, fx.catalog)
	handler := &recordingHandler{}
	ctx := context.Background()

	feed.pollInventory(ctx, handler)
	assert.Empty(t, handler.inventory, "first observation is the baseline, not a change")

	fx.inventory.put(fx.machineID, fx.milkID, 10)
	feed.pollInventory(ctx, handler)
	require.Len(t, handler.inventory, 1)
	assert.Equal(t, [2]string{fx.machineID.String(), fx.milkID.String()}, handler.inventory[0])

	// No further change, no further event.
	feed.pollInventory(ctx, handler)
	assert.Len(t, handler.inventory, 1)
}

func TestPollingFeedDetectsMachineAndCatalogChanges(t *testing.T) {
	fx := newPipelineFixture()
	machine := &entities.Machine{ID: fx.machineID, Status: domain.MachineStatusOnline, Temperature: 90}
	machines := &fakeMachines{machines: []*entities.Machine{machine}}
	feed := NewPollingFeed(machines, fx.inventory, fx.catalog)
	handler := &recordingHandler{}
	ctx := context.Background()

	feed.pollMachines(ctx, nil)
	feed.pollCatalog(ctx, nil)

	machine.Status = domain.MachineStatusMaintenance
	feed.pollMachines(ctx, handler)
	require.Equal(t, []string{fx.machineID.String()}, handler.machines)

	fx.catalog.rows = fx.catalog.rows[:2]
	feed.pollCatalog(ctx, handler)
	assert.Equal(t, 1, handler.catalog)
}

func TestDispatcherInventoryChangeAppliesWarningRule(t *testing.T) {
	fx := newPipelineFixture()
	machines := &fakeMachines{machines: []*entities.Machine{{ID: fx.machineID, Status: domain.MachineStatusOnline}}}
	throttle := realtime.NewTemperatureThrottle(time.Hour, func(string, float64) {})
	dispatcher := NewDispatcher(fx.pipeline, machines, fx.transport, throttle)
	ctx := context.Background()

	fx.inventory.put(fx.machineID, fx.milkID, 3)
	dispatcher.InventoryChanged(ctx, fx.machineID.String(), fx.milkID.String())

	require.Len(t, fx.inventory.warnings, 1)
	assert.Equal(t, domain.StockSeverityCritical, fx.inventory.warnings[0].Severity)
	assert.NotEmpty(t, fx.transport.roomEventsOf(realtime.EventRecipeAvailability))
}

func TestDispatcherMachineChangeEmitsDelta(t *testing.T) {
	fx := newPipelineFixture()
	machine := &entities.Machine{ID: fx.machineID, Status: domain.MachineStatusMaintenance, Temperature: 88}
	machines := &fakeMachines{machines: []*entities.Machine{machine}}

	var temps []float64
	throttle := realtime.NewTemperatureThrottle(time.Hour, func(machineID string, temp float64) {
		temps = append(temps, temp)
	})
	dispatcher := NewDispatcher(fx.pipeline, machines, fx.transport, throttle)

	dispatcher.MachineChanged(context.Background(), fx.machineID.String())

	events := fx.transport.roomEventsOf(realtime.EventMachineStatusUpdate)
	require.Len(t, events, 1)
	payload := events[0].data.(realtime.MachineStatusPayload)
	assert.Equal(t, domain.MachineStatusMaintenance, payload.Delta["status"])
	assert.Equal(t, []float64{88}, temps)
}
