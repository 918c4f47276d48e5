package availability

import (
	"sort"

	"kopimatic/domain"
)

type (
	// Snapshot is the derived availability state of one machine: every recipe
	// of the catalog sits in exactly one of the two sets, and Missing carries
	// the short ingredient IDs only for unavailable recipes.
	Snapshot struct {
		MachineID   string
		Available   map[string]bool
		Unavailable map[string]bool
		Missing     map[string][]string
	}

	// Engine classifies recipes against a machine's stock. It is a pure
	// computation over the index and the stock map handed in per call; it keeps
	// no machine state and takes no locks of its own.
	Engine struct {
		index *Index
	}
)

func NewEngine(index *Index) *Engine {
	return &Engine{index: index}
}

func (e *Engine) Index() *Index {
	return e.index
}

// missingFor returns the ingredient IDs whose stock is below the recipe's
// requirement. An absent stock row counts as zero; a requirement of zero is
// never missing. A recipe with no requirements at all returns nil, which makes
// it available by definition.
func (e *Engine) missingFor(recipeID string, stock map[string]float64) []string {
	var missing []string
	for _, req := range e.index.Requirements(recipeID) {
		if req.Quantity <= 0 {
			continue
		}
		if stock[req.IngredientID] < req.Quantity {
			missing = append(missing, req.IngredientID)
		}
	}
	return missing
}

// Compute classifies every recipe from scratch and replaces the prior snapshot
// wholesale. O(recipes x ingredients-per-recipe); meant for coarse triggers
// such as a room join, an explicit resync, or an order that touched several
// ingredients at once.
func (e *Engine) Compute(machineID string, recipeIDs []string, stock map[string]float64) *Snapshot {
	snap := &Snapshot{
		MachineID:   machineID,
		Available:   make(map[string]bool, len(recipeIDs)),
		Unavailable: make(map[string]bool),
		Missing:     make(map[string][]string),
	}
	for _, recipeID := range recipeIDs {
		if missing := e.missingFor(recipeID, stock); len(missing) > 0 {
			snap.Unavailable[recipeID] = true
			snap.Missing[recipeID] = missing
		} else {
			snap.Available[recipeID] = true
		}
	}
	return snap
}

// UpdateRecipe re-evaluates a single recipe and splices it into the right
// partition without touching any other recipe.
func (e *Engine) UpdateRecipe(snap *Snapshot, recipeID string, stock map[string]float64) {
	if missing := e.missingFor(recipeID, stock); len(missing) > 0 {
		delete(snap.Available, recipeID)
		snap.Unavailable[recipeID] = true
		snap.Missing[recipeID] = missing
	} else {
		delete(snap.Unavailable, recipeID)
		delete(snap.Missing, recipeID)
		snap.Available[recipeID] = true
	}
}

// UpdateForIngredient re-evaluates only the recipes that use the ingredient,
// found through the index. Returns the affected recipe IDs. This is the right
// response to a single-ingredient stock change: it avoids rescanning the whole
// catalog.
func (e *Engine) UpdateForIngredient(snap *Snapshot, ingredientID string, stock map[string]float64) []string {
	affected := e.index.RecipesUsing(ingredientID)
	for _, recipeID := range affected {
		e.UpdateRecipe(snap, recipeID, stock)
	}
	return affected
}

// ToDomain converts the snapshot into its wire form with deterministic
// ordering.
func (s *Snapshot) ToDomain() domain.AvailabilitySnapshot {
	out := domain.AvailabilitySnapshot{
		MachineID:          s.MachineID,
		AvailableRecipes:   make([]string, 0, len(s.Available)),
		UnavailableRecipes: make([]string, 0, len(s.Unavailable)),
		MissingIngredients: make(map[string][]string, len(s.Missing)),
	}
	for id := range s.Available {
		out.AvailableRecipes = append(out.AvailableRecipes, id)
	}
	for id := range s.Unavailable {
		out.UnavailableRecipes = append(out.UnavailableRecipes, id)
	}
	sort.Strings(out.AvailableRecipes)
	sort.Strings(out.UnavailableRecipes)
	for id, missing := range s.Missing {
		cp := make([]string, len(missing))
		copy(cp, missing)
		out.MissingIngredients[id] = cp
	}
	return out
}

// Clone deep-copies a snapshot so an incremental update never mutates state a
// reader may still hold.
func (s *Snapshot) Clone() *Snapshot {
	cp := &Snapshot{
		MachineID:   s.MachineID,
		Available:   make(map[string]bool, len(s.Available)),
		Unavailable: make(map[string]bool, len(s.Unavailable)),
		Missing:     make(map[string][]string, len(s.Missing)),
	}
	for id := range s.Available {
		cp.Available[id] = true
	}
	for id := range s.Unavailable {
		cp.Unavailable[id] = true
	}
	for id, missing := range s.Missing {
		m := make([]string, len(missing))
		copy(m, missing)
		cp.Missing[id] = m
	}
	return cp
}
