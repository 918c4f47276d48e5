package domain

// AvailabilitySnapshot partitions every recipe of the catalog into available and
// unavailable for one machine. The two sets are disjoint and together cover the
// full recipe set; MissingIngredients carries detail only for unavailable recipes.
type AvailabilitySnapshot struct {
	MachineID          string              `json:"machine_id"`
	AvailableRecipes   []string            `json:"availableRecipes"`
	UnavailableRecipes []string            `json:"unavailableRecipes"`
	MissingIngredients map[string][]string `json:"missingIngredientsByRecipe"`
}
