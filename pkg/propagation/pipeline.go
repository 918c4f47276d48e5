package propagation

import (
	"context"
	"sync"

	"kopimatic/domain"
	"kopimatic/entities"
	"kopimatic/pkg/availability"
	"kopimatic/pkg/realtime"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

type (
	// InventoryStore is the slice of the machine repository the pipeline reads
	// and writes. Satisfied by machine.MachineRepository.
	InventoryStore interface {
		GetInventory(ctx context.Context, machineID string) ([]*entities.MachineIngredientInventory, error)
		GetInventoryRow(ctx context.Context, machineID, ingredientID string) (*entities.MachineIngredientInventory, error)
		CreateStockWarning(ctx context.Context, warning *entities.StockWarning) error
	}

	// CatalogStore is the slice of the recipe repository the pipeline reads.
	// Satisfied by recipe.RecipeRepository.
	CatalogStore interface {
		GetRecipes(ctx context.Context, categoryID string) ([]*entities.Recipe, error)
		GetAllRecipeIngredients(ctx context.Context) ([]*entities.RecipeIngredient, error)
	}

	// CriticalStockFunc is called for every critical-severity warning, outside
	// the request path's error flow. Used to page staff by mail.
	CriticalStockFunc func(warning *entities.StockWarning)

	// Pipeline turns every inventory-affecting event into the matching
	// availability computation and publishes the result. It owns the cached
	// per-machine snapshots; catalog changes mark them stale and the next read
	// repairs them with a full recompute.
	Pipeline struct {
		engine    *availability.Engine
		transport realtime.Transport
		inventory InventoryStore
		catalog   CatalogStore
		notify    CriticalStockFunc

		mu        sync.Mutex
		snapshots map[string]*availability.Snapshot
		stale     map[string]bool
	}
)

func New(engine *availability.Engine, transport realtime.Transport, inventory InventoryStore, catalog CatalogStore, notify CriticalStockFunc) *Pipeline {
	return &Pipeline{
		engine:    engine,
		transport: transport,
		inventory: inventory,
		catalog:   catalog,
		notify:    notify,
		snapshots: make(map[string]*availability.Snapshot),
		stale:     make(map[string]bool),
	}
}

func (p *Pipeline) stockMap(ctx context.Context, machineID string) (map[string]float64, error) {
	rows, err := p.inventory.GetInventory(ctx, machineID)
	if err != nil {
		return nil, err
	}
	stock := make(map[string]float64, len(rows))
	for _, row := range rows {
		stock[row.IngredientID.String()] = row.Quantity
	}
	return stock, nil
}

func (p *Pipeline) recipeIDs(ctx context.Context) ([]string, error) {
	recipes, err := p.catalog.GetRecipes(ctx, "")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID.String())
	}
	return ids, nil
}

func (p *Pipeline) recompute(ctx context.Context, machineID string) (*availability.Snapshot, error) {
	stock, err := p.stockMap(ctx, machineID)
	if err != nil {
		return nil, err
	}
	ids, err := p.recipeIDs(ctx)
	if err != nil {
		return nil, err
	}
	snap := p.engine.Compute(machineID, ids, stock)

	p.mu.Lock()
	p.snapshots[machineID] = snap
	p.stale[machineID] = false
	p.mu.Unlock()
	return snap, nil
}

// Snapshot returns the machine's current availability, running a full
// recompute when none is cached yet or a catalog change marked it stale.
func (p *Pipeline) Snapshot(ctx context.Context, machineID string) (domain.AvailabilitySnapshot, error) {
	p.mu.Lock()
	snap, ok := p.snapshots[machineID]
	fresh := ok && !p.stale[machineID]
	p.mu.Unlock()

	if !fresh {
		var err error
		snap, err = p.recompute(ctx, machineID)
		if err != nil {
			return domain.AvailabilitySnapshot{}, err
		}
	}
	return snap.ToDomain(), nil
}

// RecomputeAndPublish re-derives the machine's whole snapshot and pushes it to
// the machine's room. Used after an order touched several ingredients at once
// and on catalog repair.
func (p *Pipeline) RecomputeAndPublish(ctx context.Context, machineID string) error {
	snap, err := p.recompute(ctx, machineID)
	if err != nil {
		return err
	}
	p.transport.EmitToRoom(machineID, realtime.EventRecipeAvailability, snap.ToDomain())
	return nil
}

// IngredientChanged handles a single-ingredient stock mutation: only the
// recipes using that ingredient are re-evaluated, then the updated snapshot
// and the changed inventory row are pushed to the room. The clone-update-swap
// runs under the cache lock so two concurrent scoped updates on the same
// machine cannot base themselves on the same snapshot and lose one of the
// updates; the engine work is bounded by the recipes using the ingredient.
func (p *Pipeline) IngredientChanged(ctx context.Context, machineID, ingredientID string) error {
	stock, err := p.stockMap(ctx, machineID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	snap, ok := p.snapshots[machineID]
	if !ok || p.stale[machineID] {
		p.mu.Unlock()
		return p.RecomputeAndPublish(ctx, machineID)
	}
	snap = snap.Clone()
	p.engine.UpdateForIngredient(snap, ingredientID, stock)
	p.snapshots[machineID] = snap
	p.mu.Unlock()

	p.transport.EmitToRoom(machineID, realtime.EventRecipeAvailability, snap.ToDomain())
	p.publishInventoryRow(ctx, machineID, ingredientID)
	return nil
}

func (p *Pipeline) publishInventoryRow(ctx context.Context, machineID, ingredientID string) {
	row, err := p.inventory.GetInventoryRow(ctx, machineID, ingredientID)
	if err != nil {
		log.Errorf("propagation: read inventory row %s/%s: %v", machineID, ingredientID, err)
		return
	}
	p.transport.EmitToRoom(machineID, realtime.EventMachineInventory, realtime.InventoryPayload{
		MachineID: machineID,
		Rows: []domain.InventoryRowResponse{{
			IngredientID: row.IngredientID.String(),
			Quantity:     row.Quantity,
			MaxCapacity:  row.MaxCapacity,
			UpdatedAt:    row.UpdatedAt,
		}},
	})
}

// CatalogChanged rebuilds the recipe-ingredient index from storage, broadcasts
// the new catalog to every client and marks every machine's snapshot stale.
// Catalog edits are rare; the next snapshot read or order repairs availability
// with a full recompute.
func (p *Pipeline) CatalogChanged(ctx context.Context) error {
	rows, err := p.catalog.GetAllRecipeIngredients(ctx)
	if err != nil {
		return err
	}
	byRecipe := make(map[string][]availability.Requirement)
	for _, row := range rows {
		recipeID := row.RecipeID.String()
		byRecipe[recipeID] = append(byRecipe[recipeID], availability.Requirement{
			IngredientID: row.IngredientID.String(),
			Quantity:     row.Quantity,
		})
	}

	index := p.engine.Index()
	p.mu.Lock()
	for machineID := range p.snapshots {
		p.stale[machineID] = true
	}
	p.mu.Unlock()

	// Rebuild in place so every holder of the engine sees the new catalog.
	for recipeID := range byRecipe {
		index.ReplaceRecipe(recipeID, byRecipe[recipeID])
	}
	// Recipes deleted from storage must leave the index too. The change feed
	// only reports catalog deletes as a generic catalog change, and a stale
	// entry would be spliced back into snapshots by the next scoped update.
	for _, recipeID := range index.RecipeIDs() {
		if _, ok := byRecipe[recipeID]; !ok {
			index.RemoveRecipe(recipeID)
		}
	}

	recipes, err := p.catalog.GetRecipes(ctx, "")
	if err != nil {
		return err
	}
	p.transport.Broadcast(realtime.EventRecipeUpdate, catalogPayload(recipes))
	return nil
}

func catalogPayload(recipes []*entities.Recipe) []domain.RecipeResponse {
	out := make([]domain.RecipeResponse, 0, len(recipes))
	for _, r := range recipes {
		item := domain.RecipeResponse{
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
			item.CategoryID = r.CategoryID.String()
		}
		out = append(out, item)
	}
	return out
}

// RecipeRemoved drops a deleted recipe from the index before the catalog
// broadcast, so stale requirement rows cannot linger in the reverse map.
func (p *Pipeline) RecipeRemoved(ctx context.Context, recipeID string) error {
	p.engine.Index().RemoveRecipe(recipeID)
	return p.CatalogChanged(ctx)
}

// CheckStockLevel raises a warning when the row's quantity fell to the low
// stock threshold: critical at <= 5, high at <= 10. Critical warnings also go
// through the notify hook.
func (p *Pipeline) CheckStockLevel(ctx context.Context, machineID, ingredientID string) {
	row, err := p.inventory.GetInventoryRow(ctx, machineID, ingredientID)
	if err != nil {
		log.Errorf("propagation: stock level check %s/%s: %v", machineID, ingredientID, err)
		return
	}
	if row.Quantity > domain.LowStockThreshold {
		return
	}

	severity := domain.StockSeverityHigh
	if row.Quantity <= domain.CriticalStockThreshold {
		severity = domain.StockSeverityCritical
	}
	warning := &entities.StockWarning{
		ID:           uuid.New(),
		MachineID:    row.MachineID,
		IngredientID: row.IngredientID,
		Quantity:     row.Quantity,
		Severity:     severity,
	}
	if err := p.inventory.CreateStockWarning(ctx, warning); err != nil {
		log.Errorf("propagation: create stock warning %s/%s: %v", machineID, ingredientID, err)
		return
	}
	if severity == domain.StockSeverityCritical && p.notify != nil {
		p.notify(warning)
	}
}
