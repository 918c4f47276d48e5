package availability

import (
	"sync"
)

type (
	// Association is one recipe-ingredient row as loaded from storage.
	Association struct {
		RecipeID     string
		IngredientID string
		Quantity     float64
	}

	// Requirement is the amount of one ingredient a recipe needs per preparation.
	Requirement struct {
		IngredientID string
		Quantity     float64
	}

	// Index keeps the recipe-ingredient associations in both directions:
	// recipe -> required ingredients with quantities, and ingredient -> recipes
	// using it. Both maps are maintained together on every mutation and a key is
	// deleted as soon as its list becomes empty, so "does this ingredient affect
	// any recipe" stays answerable by a plain map lookup.
	Index struct {
		mu                  sync.RWMutex
		ingredientsByRecipe map[string][]Requirement
		recipesByIngredient map[string][]string
	}
)

// NewIndex builds both maps in a single pass over the association rows. A
// duplicate (recipe, ingredient) pair overwrites the earlier quantity.
func NewIndex(rows []Association) *Index {
	ix := &Index{
		ingredientsByRecipe: make(map[string][]Requirement),
		recipesByIngredient: make(map[string][]string),
	}
	for _, row := range rows {
		ix.set(row.RecipeID, row.IngredientID, row.Quantity)
	}
	return ix
}

// Set adds or updates one association in both directions.
func (ix *Index) Set(recipeID, ingredientID string, quantity float64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.set(recipeID, ingredientID, quantity)
}

func (ix *Index) set(recipeID, ingredientID string, quantity float64) {
	reqs := ix.ingredientsByRecipe[recipeID]
	updated := false
	for i := range reqs {
		if reqs[i].IngredientID == ingredientID {
			reqs[i].Quantity = quantity
			updated = true
			break
		}
	}
	if !updated {
		ix.ingredientsByRecipe[recipeID] = append(reqs, Requirement{
			IngredientID: ingredientID,
			Quantity:     quantity,
		})
	}

	recipes := ix.recipesByIngredient[ingredientID]
	for _, id := range recipes {
		if id == recipeID {
			return // already present, keep deduplicated
		}
	}
	ix.recipesByIngredient[ingredientID] = append(recipes, recipeID)
}

// Remove deletes one association from both directions, dropping map keys whose
// lists become empty.
func (ix *Index) Remove(recipeID, ingredientID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	reqs := ix.ingredientsByRecipe[recipeID]
	for i := range reqs {
		if reqs[i].IngredientID == ingredientID {
			reqs = append(reqs[:i], reqs[i+1:]...)
			break
		}
	}
	if len(reqs) == 0 {
		delete(ix.ingredientsByRecipe, recipeID)
	} else {
		ix.ingredientsByRecipe[recipeID] = reqs
	}

	recipes := ix.recipesByIngredient[ingredientID]
	for i, id := range recipes {
		if id == recipeID {
			recipes = append(recipes[:i], recipes[i+1:]...)
			break
		}
	}
	if len(recipes) == 0 {
		delete(ix.recipesByIngredient, ingredientID)
	} else {
		ix.recipesByIngredient[ingredientID] = recipes
	}
}

// RemoveRecipe drops every association of one recipe.
func (ix *Index) RemoveRecipe(recipeID string) {
	ix.mu.Lock()
	reqs := ix.ingredientsByRecipe[recipeID]
	ix.mu.Unlock()
	for _, req := range reqs {
		ix.Remove(recipeID, req.IngredientID)
	}
}

// ReplaceRecipe swaps a recipe's full requirement list in one step.
func (ix *Index) ReplaceRecipe(recipeID string, reqs []Requirement) {
	ix.RemoveRecipe(recipeID)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, req := range reqs {
		ix.set(recipeID, req.IngredientID, req.Quantity)
	}
}

// RecipeIDs returns the recipes currently holding at least one association.
func (ix *Index) RecipeIDs() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, 0, len(ix.ingredientsByRecipe))
	for id := range ix.ingredientsByRecipe {
		out = append(out, id)
	}
	return out
}

// Requirements returns a copy of the recipe's requirement list. A recipe with
// no associations yields nil.
func (ix *Index) Requirements(recipeID string) []Requirement {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	reqs := ix.ingredientsByRecipe[recipeID]
	if len(reqs) == 0 {
		return nil
	}
	out := make([]Requirement, len(reqs))
	copy(out, reqs)
	return out
}

// RecipesUsing returns a copy of the recipe IDs that use the ingredient.
func (ix *Index) RecipesUsing(ingredientID string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	recipes := ix.recipesByIngredient[ingredientID]
	if len(recipes) == 0 {
		return nil
	}
	out := make([]string, len(recipes))
	copy(out, recipes)
	return out
}

// UsedByAnyRecipe reports whether at least one recipe requires the ingredient.
func (ix *Index) UsedByAnyRecipe(ingredientID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.recipesByIngredient[ingredientID]
	return ok
}
