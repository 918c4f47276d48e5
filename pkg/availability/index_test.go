package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndexBuildsBothDirections(t *testing.T) {
	ix := NewIndex([]Association{
		{RecipeID: "latte", IngredientID: "coffee", Quantity: 30},
		{RecipeID: "latte", IngredientID: "milk", Quantity: 90},
		{RecipeID: "espresso", IngredientID: "coffee", Quantity: 30},
	})

	reqs := ix.Requirements("latte")
	require.Len(t, reqs, 2)
	assert.Equal(t, Requirement{IngredientID: "coffee", Quantity: 30}, reqs[0])

	assert.ElementsMatch(t, []string{"latte", "espresso"}, ix.RecipesUsing("coffee"))
	assert.Equal(t, []string{"latte"}, ix.RecipesUsing("milk"))
	assert.Nil(t, ix.RecipesUsing("sugar"))
}

func TestIndexDeduplicatesReverseDirection(t *testing.T) {
	ix := NewIndex(nil)
	ix.Set("latte", "coffee", 30)
	ix.Set("latte", "coffee", 45) // quantity update, not a new row

	reqs := ix.Requirements("latte")
	require.Len(t, reqs, 1)
	assert.Equal(t, 45.0, reqs[0].Quantity)
	assert.Equal(t, []string{"latte"}, ix.RecipesUsing("coffee"))
}

func TestIndexRemoveDropsEmptyKeys(t *testing.T) {
	ix := NewIndex([]Association{
		{RecipeID: "latte", IngredientID: "coffee", Quantity: 30},
		{RecipeID: "latte", IngredientID: "milk", Quantity: 90},
	})

	ix.Remove("latte", "milk")
	assert.False(t, ix.UsedByAnyRecipe("milk"), "empty reverse entry must be deleted")
	require.Len(t, ix.Requirements("latte"), 1)

	ix.Remove("latte", "coffee")
	assert.Nil(t, ix.Requirements("latte"))
	assert.False(t, ix.UsedByAnyRecipe("coffee"))
}

func TestIndexRemoveRecipe(t *testing.T) {
	ix := NewIndex([]Association{
		{RecipeID: "latte", IngredientID: "coffee", Quantity: 30},
		{RecipeID: "latte", IngredientID: "milk", Quantity: 90},
		{RecipeID: "espresso", IngredientID: "coffee", Quantity: 30},
	})

	ix.RemoveRecipe("latte")

	assert.Nil(t, ix.Requirements("latte"))
	assert.Equal(t, []string{"espresso"}, ix.RecipesUsing("coffee"))
	assert.False(t, ix.UsedByAnyRecipe("milk"))
}

func TestIndexReplaceRecipe(t *testing.T) {
	ix := NewIndex([]Association{
		{RecipeID: "latte", IngredientID: "coffee", Quantity: 30},
		{RecipeID: "latte", IngredientID: "milk", Quantity: 90},
	})

	ix.ReplaceRecipe("latte", []Requirement{
		{IngredientID: "coffee", Quantity: 25},
		{IngredientID: "oat-milk", Quantity: 100},
	})

	reqs := ix.Requirements("latte")
	require.Len(t, reqs, 2)
	assert.Equal(t, 25.0, reqs[0].Quantity)
	assert.False(t, ix.UsedByAnyRecipe("milk"))
	assert.True(t, ix.UsedByAnyRecipe("oat-milk"))
}
