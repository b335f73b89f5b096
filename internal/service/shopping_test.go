package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aJLaxzzz/foodgram-st/internal/service"
	"github.com/aJLaxzzz/foodgram-st/internal/testhelpers"
	"github.com/aJLaxzzz/foodgram-st/internal/types"
)

func TestShoppingListService_Build(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	ctx := context.Background()
	author := testhelpers.CreateUser(t, db, "chef")
	buyer := testhelpers.CreateUser(t, db, "buyer")
	flour := testhelpers.CreateIngredient(t, db, "flour", "g")
	eggs := testhelpers.CreateIngredient(t, db, "eggs", "pcs")
	milk := testhelpers.CreateIngredient(t, db, "milk", "ml")

	pancakes := testhelpers.CreateRecipe(t, db, author.ID, "pancakes", map[uint]int{flour.ID: 200, eggs.ID: 2, milk.ID: 300})
	bread := testhelpers.CreateRecipe(t, db, author.ID, "bread", map[uint]int{flour.ID: 500})
	testhelpers.CreateRecipe(t, db, author.ID, "omelette", map[uint]int{eggs.ID: 3})

	cart := service.NewShoppingCart(db)
	require.NoError(t, cart.Add(ctx, buyer.ID, pancakes.ID))
	require.NoError(t, cart.Add(ctx, buyer.ID, bread.ID))

	svc := service.NewShoppingListService(db)
	items, err := svc.Build(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, []types.ShoppingListItem{
		{Name: "eggs", MeasurementUnit: "pcs", Total: 2},
		{Name: "flour", MeasurementUnit: "g", Total: 700},
		{Name: "milk", MeasurementUnit: "ml", Total: 300},
	}, items)

	empty, err := svc.Build(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRender(t *testing.T) {
	separator := "=================================================="

	t.Run("items", func(t *testing.T) {
		got := service.Render([]types.ShoppingListItem{
			{Name: "flour", MeasurementUnit: "g", Total: 700},
			{Name: "milk", MeasurementUnit: "ml", Total: 300},
		})
		want := "Shopping list:\n" + separator + "\n" +
			"flour (g) — 700\n" +
			"milk (ml) — 300\n"
		assert.Equal(t, want, got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "Shopping list:\n"+separator+"\nYour shopping list is empty.\n", service.Render(nil))
	})
}
