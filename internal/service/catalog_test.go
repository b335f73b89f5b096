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

func TestCatalogService_Ingredients(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	catalog := service.NewCatalogService(db)
	ctx := context.Background()

	testhelpers.CreateIngredient(t, db, "Sugar", "g")
	testhelpers.CreateIngredient(t, db, "salt", "g")
	testhelpers.CreateIngredient(t, db, "brown sugar", "g")
	testhelpers.CreateIngredient(t, db, "s_pecial", "g")

	names := func(items []types.IngredientResponse) []string {
		out := make([]string, len(items))
		for i := range items {
			out[i] = items[i].Name
		}
		return out
	}

	tests := []struct {
		prefix string
		want   []string
	}{
		{"", []string{"Sugar", "brown sugar", "s_pecial", "salt"}},
		{"su", []string{"Sugar"}},
		{"SA", []string{"salt"}},
		{"s_", []string{"s_pecial"}},
		{"sugar", []string{"Sugar"}},
		{"%", []string{}},
	}
	for _, tt := range tests {
		t.Run("prefix "+tt.prefix, func(t *testing.T) {
			got, err := catalog.Ingredients(ctx, tt.prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestCatalogService_IngredientsFoldNonLatinCase(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	catalog := service.NewCatalogService(db)
	ctx := context.Background()

	apple := testhelpers.CreateIngredient(t, db, "Яблоко", "г")
	testhelpers.CreateIngredient(t, db, "Изюм", "г")

	for _, prefix := range []string{"я", "ЯБ", "яблоко"} {
		got, err := catalog.Ingredients(ctx, prefix)
		require.NoError(t, err)
		require.Len(t, got, 1, "prefix %q", prefix)
		assert.Equal(t, apple.ID, got[0].ID)
	}

	got, err := catalog.Ingredients(ctx, "яйцо")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCatalogService_Lookups(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	catalog := service.NewCatalogService(db)
	ctx := context.Background()

	salt := testhelpers.CreateIngredient(t, db, "salt", "g")
	testhelpers.CreateTag(t, db, "Lunch", "lunch")
	breakfast := testhelpers.CreateTag(t, db, "Breakfast", "breakfast")

	ing, err := catalog.Ingredient(ctx, salt.ID)
	require.NoError(t, err)
	assert.Equal(t, types.IngredientResponse{ID: salt.ID, Name: "salt", MeasurementUnit: "g"}, *ing)
	_, err = catalog.Ingredient(ctx, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)

	tags, err := catalog.Tags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "breakfast", tags[0].Slug)

	tag, err := catalog.Tag(ctx, breakfast.ID)
	require.NoError(t, err)
	assert.Equal(t, "Breakfast", tag.Name)
	_, err = catalog.Tag(ctx, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
