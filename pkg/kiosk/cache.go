package kiosk

import (
	"sort"

	"kopimatic/domain"
	"kopimatic/pkg/realtime"
)

// Cache is the kiosk's normalized view of one machine's server state. All
// mutation happens on the client's event loop goroutine; readers on other
// goroutines must go through the client, never the cache directly.
//
// Every collection is keyed by ID. Flattened slices and the category index
// are rebuilt on catalog arrival, not on read, so reads stay O(1) lookups.
type Cache struct {
	machineID string

	recipes    map[string]domain.RecipeResponse
	recipeList []string            // recipe IDs sorted by name
	byCategory map[string][]string // category ID -> recipe IDs sorted by name

	machine   *domain.MachineResponse
	inventory map[string]domain.InventoryRowResponse // ingredient ID -> row

	available map[string]bool
	missing   map[string][]string

	temperature float64
}

func NewCache(machineID string) *Cache {
	return &Cache{
		machineID:  machineID,
		recipes:    make(map[string]domain.RecipeResponse),
		byCategory: make(map[string][]string),
		inventory:  make(map[string]domain.InventoryRowResponse),
		available:  make(map[string]bool),
		missing:    make(map[string][]string),
	}
}

func (c *Cache) MachineID() string { return c.machineID }

// ApplyRecipes replaces the whole catalog and rebuilds the flattened views.
func (c *Cache) ApplyRecipes(recipes []domain.RecipeResponse) {
	c.recipes = make(map[string]domain.RecipeResponse, len(recipes))
	for _, r := range recipes {
		c.recipes[r.ID] = r
	}
	c.reindex()
}

func (c *Cache) reindex() {
	ids := make([]string, 0, len(c.recipes))
	for id := range c.recipes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := c.recipes[ids[i]], c.recipes[ids[j]]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	c.recipeList = ids

	c.byCategory = make(map[string][]string)
	for _, id := range ids {
		category := c.recipes[id].CategoryID
		c.byCategory[category] = append(c.byCategory[category], id)
	}
}

// ApplyMachine merges a status event. A full machine payload replaces the
// cached row; a delta patches only the fields it names.
func (c *Cache) ApplyMachine(payload realtime.MachineStatusPayload) {
	if payload.MachineID != c.machineID {
		return
	}
	if payload.Machine != nil {
		m := *payload.Machine
		c.machine = &m
		return
	}
	if c.machine == nil || payload.Delta == nil {
		return
	}
	if v, ok := payload.Delta["status"].(string); ok {
		c.machine.Status = v
	}
	if v, ok := payload.Delta["temperature"].(float64); ok {
		c.machine.Temperature = v
	}
	if v, ok := payload.Delta["revenue"].(float64); ok {
		c.machine.Revenue = v
	}
}

func (c *Cache) ApplyTemperature(payload realtime.TemperaturePayload) {
	if payload.MachineID != c.machineID {
		return
	}
	c.temperature = payload.Temperature
	if c.machine != nil {
		c.machine.Temperature = payload.Temperature
	}
}

// ApplyInventory replaces the inventory rows the payload carries. A payload
// with the machine's full row set resets the map; a single-row delta patches
// just that ingredient.
func (c *Cache) ApplyInventory(payload realtime.InventoryPayload, full bool) {
	if payload.MachineID != c.machineID {
		return
	}
	if full {
		c.inventory = make(map[string]domain.InventoryRowResponse, len(payload.Rows))
	}
	for _, row := range payload.Rows {
		c.inventory[row.IngredientID] = row
	}
}

// ApplyAvailability replaces the availability partition for this machine.
func (c *Cache) ApplyAvailability(snapshot domain.AvailabilitySnapshot) {
	if snapshot.MachineID != c.machineID {
		return
	}
	c.available = make(map[string]bool, len(snapshot.AvailableRecipes))
	for _, id := range snapshot.AvailableRecipes {
		c.available[id] = true
	}
	c.missing = make(map[string][]string, len(snapshot.MissingIngredients))
	for id, ingredients := range snapshot.MissingIngredients {
		c.missing[id] = append([]string(nil), ingredients...)
	}
}

// IsRecipeAvailable is a set-membership lookup.
func (c *Cache) IsRecipeAvailable(recipeID string) bool {
	return c.available[recipeID]
}

func (c *Cache) MissingIngredients(recipeID string) []string {
	return append([]string(nil), c.missing[recipeID]...)
}

func (c *Cache) Recipe(id string) (domain.RecipeResponse, bool) {
	r, ok := c.recipes[id]
	return r, ok
}

// Recipes returns the catalog sorted by name.
func (c *Cache) Recipes() []domain.RecipeResponse {
	out := make([]domain.RecipeResponse, 0, len(c.recipeList))
	for _, id := range c.recipeList {
		out = append(out, c.recipes[id])
	}
	return out
}

// RecipesInCategory returns the category's recipes sorted by name.
func (c *Cache) RecipesInCategory(categoryID string) []domain.RecipeResponse {
	ids := c.byCategory[categoryID]
	out := make([]domain.RecipeResponse, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.recipes[id])
	}
	return out
}

func (c *Cache) Machine() *domain.MachineResponse {
	if c.machine == nil {
		return nil
	}
	m := *c.machine
	return &m
}

func (c *Cache) Temperature() float64 { return c.temperature }

func (c *Cache) InventoryLevel(ingredientID string) (float64, bool) {
	row, ok := c.inventory[ingredientID]
	if !ok {
		return 0, false
	}
	return row.Quantity, true
}

func (c *Cache) InventoryCount() int { return len(c.inventory) }
