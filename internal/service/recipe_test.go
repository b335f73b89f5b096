package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aJLaxzzz/foodgram-st/internal/models"
	"github.com/aJLaxzzz/foodgram-st/internal/service"
	"github.com/aJLaxzzz/foodgram-st/internal/testhelpers"
	"github.com/aJLaxzzz/foodgram-st/internal/types"
)

type recipeFixture struct {
	db      *gorm.DB
	store   *testhelpers.MemoryStorage
	recipes *service.RecipeService
	links   *service.ShortLinkService
	author  *models.User
	other   *models.User
	flour   *models.Ingredient
	sugar   *models.Ingredient
	lunch   *models.Tag
	dinner  *models.Tag
}

func newRecipeFixture(t *testing.T) *recipeFixture {
	t.Helper()
	db := testhelpers.SetupSQLite(t)
	_, rdb := testhelpers.SetupRedis(t)
	store := testhelpers.NewMemoryStorage()
	links := service.NewShortLinkService(db, rdb)
	return &recipeFixture{
		db:      db,
		store:   store,
		recipes: service.NewRecipeService(db, store, links),
		links:   links,
		author:  testhelpers.CreateUser(t, db, "author"),
		other:   testhelpers.CreateUser(t, db, "other"),
		flour:   testhelpers.CreateIngredient(t, db, "flour", "g"),
		sugar:   testhelpers.CreateIngredient(t, db, "sugar", "g"),
		lunch:   testhelpers.CreateTag(t, db, "Lunch", "lunch"),
		dinner:  testhelpers.CreateTag(t, db, "Dinner", "dinner"),
	}
}

func ptr[T any](v T) *T { return &v }

func (f *recipeFixture) request(name string) *types.RecipeWriteRequest {
	return &types.RecipeWriteRequest{
		Ingredients: &[]types.IngredientAmount{{ID: f.flour.ID, Amount: 200}, {ID: f.sugar.ID, Amount: 50}},
		Tags:        &[]uint{f.lunch.ID},
		Image:       ptr(testhelpers.PNGDataURI),
		Name:        ptr(name),
		Text:        ptr("Bake for 30 minutes."),
		CookingTime: ptr(45),
	}
}

func TestRecipeService_Create(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	got, err := f.recipes.Create(ctx, f.author.ID, f.request("Pie"))
	require.NoError(t, err)
	assert.Equal(t, "Pie", got.Name)
	assert.Equal(t, 45, got.CookingTime)
	assert.Equal(t, f.author.ID, got.Author.ID)
	assert.False(t, got.IsFavorited)
	assert.True(t, strings.HasPrefix(got.Image, "http://testserver/media/"+service.RecipeImagePrefix))
	require.Len(t, got.Ingredients, 2)
	assert.Equal(t, types.RecipeIngredientResponse{ID: f.flour.ID, Name: "flour", MeasurementUnit: "g", Amount: 200}, got.Ingredients[0])
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "lunch", got.Tags[0].Slug)
	assert.Equal(t, 1, f.store.Len())

	t.Run("tags are optional", func(t *testing.T) {
		req := f.request("Plain")
		req.Tags = nil
		got, err := f.recipes.Create(ctx, f.author.ID, req)
		require.NoError(t, err)
		assert.Empty(t, got.Tags)
	})
}

func TestRecipeService_CreateValidation(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		_, err := f.recipes.Create(ctx, f.author.ID, &types.RecipeWriteRequest{})
		fields := validationFields(t, err)
		for _, field := range []string{"ingredients", "image", "name", "text", "cooking_time"} {
			assert.Contains(t, fields, field)
		}
		assert.NotContains(t, fields, "tags")
	})

	tests := []struct {
		name   string
		mutate func(r *types.RecipeWriteRequest)
		field  string
		msg    string
	}{
		{"empty ingredients", func(r *types.RecipeWriteRequest) { r.Ingredients = &[]types.IngredientAmount{} }, "ingredients", "At least one ingredient is required."},
		{"repeated ingredient", func(r *types.RecipeWriteRequest) {
			r.Ingredients = &[]types.IngredientAmount{{ID: f.flour.ID, Amount: 1}, {ID: f.flour.ID, Amount: 2}}
		}, "ingredients", "Ingredients must not repeat."},
		{"unknown ingredient", func(r *types.RecipeWriteRequest) {
			r.Ingredients = &[]types.IngredientAmount{{ID: 999, Amount: 1}}
		}, "ingredients", "Ingredient with id 999 does not exist."},
		{"zero amount", func(r *types.RecipeWriteRequest) {
			r.Ingredients = &[]types.IngredientAmount{{ID: f.flour.ID, Amount: 0}}
		}, "ingredients", ""},
		{"repeated tag", func(r *types.RecipeWriteRequest) { r.Tags = &[]uint{f.lunch.ID, f.lunch.ID} }, "tags", "Tags must not repeat."},
		{"unknown tag", func(r *types.RecipeWriteRequest) { r.Tags = &[]uint{42} }, "tags", "Tag with id 42 does not exist."},
		{"bad image", func(r *types.RecipeWriteRequest) { r.Image = ptr("data:text/plain;base64,aGk=") }, "image", ""},
		{"blank name", func(r *types.RecipeWriteRequest) { r.Name = ptr("   ") }, "name", "Recipe name must not be empty."},
		{"long name", func(r *types.RecipeWriteRequest) { r.Name = ptr(strings.Repeat("a", 257)) }, "name", ""},
		{"blank text", func(r *types.RecipeWriteRequest) { r.Text = ptr("") }, "text", "Recipe text must not be empty."},
		{"zero cooking time", func(r *types.RecipeWriteRequest) { r.CookingTime = ptr(0) }, "cooking_time", ""},
		{"huge cooking time", func(r *types.RecipeWriteRequest) { r.CookingTime = ptr(32001) }, "cooking_time", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request("Invalid")
			tt.mutate(req)
			_, err := f.recipes.Create(ctx, f.author.ID, req)
			fields := validationFields(t, err)
			require.Contains(t, fields, tt.field)
			if tt.msg != "" {
				assert.Contains(t, fields[tt.field], tt.msg)
			}
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, f.store.Len(), "rejected payloads store no images")
}

func TestRecipeService_ConfiguredBounds(t *testing.T) {
	previous := models.CurrentBounds()
	models.SetBounds(models.Bounds{MinCookingTime: 5, MaxCookingTime: 60, MinIngredientAmount: 1, MaxIngredientAmount: 10})
	t.Cleanup(func() { models.SetBounds(previous) })

	f := newRecipeFixture(t)
	req := f.request("Bounded")
	req.Ingredients = &[]types.IngredientAmount{{ID: f.flour.ID, Amount: 11}}
	req.CookingTime = ptr(61)

	_, err := f.recipes.Create(context.Background(), f.author.ID, req)
	fields := validationFields(t, err)
	assert.Contains(t, fields, "ingredients")
	assert.Contains(t, fields, "cooking_time")
}

func TestRecipeService_Update(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	created, err := f.recipes.Create(ctx, f.author.ID, f.request("Soup"))
	require.NoError(t, err)
	oldImage := strings.TrimPrefix(created.Image, "http://testserver/media/")

	t.Run("other user is forbidden", func(t *testing.T) {
		_, err := f.recipes.Update(ctx, f.other.ID, created.ID, f.request("Stolen"))
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("missing recipe", func(t *testing.T) {
		_, err := f.recipes.Update(ctx, f.author.ID, 999, f.request("Ghost"))
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("ingredients are required", func(t *testing.T) {
		_, err := f.recipes.Update(ctx, f.author.ID, created.ID, &types.RecipeWriteRequest{Name: ptr("Renamed")})
		assert.Contains(t, validationFields(t, err), "ingredients")
	})

	t.Run("partial update keeps tags and image", func(t *testing.T) {
		got, err := f.recipes.Update(ctx, f.author.ID, created.ID, &types.RecipeWriteRequest{
			Ingredients: &[]types.IngredientAmount{{ID: f.sugar.ID, Amount: 5}},
			Name:        ptr("Sweet soup"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Sweet soup", got.Name)
		assert.Equal(t, created.Text, got.Text)
		assert.Equal(t, created.Image, got.Image)
		require.Len(t, got.Ingredients, 1)
		assert.Equal(t, f.sugar.ID, got.Ingredients[0].ID)
		assert.Len(t, got.Tags, 1)

		var links int64
		require.NoError(t, f.db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", created.ID).Count(&links).Error)
		assert.EqualValues(t, 1, links)
	})

	t.Run("tags and image are replaced when sent", func(t *testing.T) {
		req := f.request("Soup")
		req.Tags = &[]uint{f.dinner.ID}
		got, err := f.recipes.Update(ctx, f.author.ID, created.ID, req)
		require.NoError(t, err)
		require.Len(t, got.Tags, 1)
		assert.Equal(t, "dinner", got.Tags[0].Slug)
		assert.NotEqual(t, created.Image, got.Image)
		assert.False(t, f.store.Has(oldImage))
		assert.Equal(t, 1, f.store.Len())
	})

	t.Run("empty tags clear them", func(t *testing.T) {
		req := f.request("Soup")
		req.Image = nil
		req.Tags = &[]uint{}
		got, err := f.recipes.Update(ctx, f.author.ID, created.ID, req)
		require.NoError(t, err)
		assert.Empty(t, got.Tags)
	})
}

func TestRecipeService_Delete(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	created, err := f.recipes.Create(ctx, f.author.ID, f.request("Cake"))
	require.NoError(t, err)
	_, err = f.recipes.AddFavorite(ctx, f.other.ID, created.ID)
	require.NoError(t, err)
	_, err = f.recipes.AddToCart(ctx, f.other.ID, created.ID)
	require.NoError(t, err)
	code, err := f.links.GetOrCreate(ctx, created.ID)
	require.NoError(t, err)
	_, err = f.links.Resolve(ctx, code)
	require.NoError(t, err)

	assert.ErrorIs(t, f.recipes.Delete(ctx, f.other.ID, created.ID), service.ErrForbidden)
	require.NoError(t, f.recipes.Delete(ctx, f.author.ID, created.ID))
	assert.ErrorIs(t, f.recipes.Delete(ctx, f.author.ID, created.ID), service.ErrNotFound)

	for _, model := range []interface{}{&models.Favorite{}, &models.ShoppingCart{}, &models.RecipeIngredient{}, &models.RecipeTag{}, &models.ShortLink{}} {
		var count int64
		require.NoError(t, f.db.Model(model).Where("recipe_id = ?", created.ID).Count(&count).Error)
		assert.Zero(t, count, "%T rows left behind", model)
	}
	assert.Zero(t, f.store.Len())

	_, err = f.links.Resolve(ctx, code)
	assert.ErrorIs(t, err, service.ErrNotFound, "cached code is evicted")
}

func TestRecipeService_List(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	mine, err := f.recipes.Create(ctx, f.author.ID, f.request("Mine"))
	require.NoError(t, err)
	theirs, err := f.recipes.Create(ctx, f.other.ID, f.request("Theirs"))
	require.NoError(t, err)
	_, err = f.recipes.AddFavorite(ctx, f.author.ID, theirs.ID)
	require.NoError(t, err)
	_, err = f.recipes.AddToCart(ctx, f.author.ID, mine.ID)
	require.NoError(t, err)

	ids := func(rs []types.RecipeResponse) []uint {
		out := make([]uint, len(rs))
		for i := range rs {
			out[i] = rs[i].ID
		}
		return out
	}
	page := types.PageRequest{Page: 1, Limit: 10}

	tests := []struct {
		name   string
		viewer uint
		filter types.RecipeFilter
		want   []uint
	}{
		{"newest first", 0, types.RecipeFilter{}, []uint{theirs.ID, mine.ID}},
		{"by author", 0, types.RecipeFilter{AuthorID: f.author.ID}, []uint{mine.ID}},
		{"favorited", f.author.ID, types.RecipeFilter{IsFavorited: ptr(true)}, []uint{theirs.ID}},
		{"not favorited", f.author.ID, types.RecipeFilter{IsFavorited: ptr(false)}, []uint{mine.ID}},
		{"in cart", f.author.ID, types.RecipeFilter{IsInShoppingCart: ptr(true)}, []uint{mine.ID}},
		{"anonymous favorited", 0, types.RecipeFilter{IsFavorited: ptr(true)}, []uint{}},
		{"anonymous cart is ignored", 0, types.RecipeFilter{IsInShoppingCart: ptr(true)}, []uint{theirs.ID, mine.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, count, err := f.recipes.List(ctx, tt.viewer, tt.filter, page)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
			assert.EqualValues(t, len(tt.want), count)
		})
	}

	got, count, err := f.recipes.List(ctx, f.author.ID, types.RecipeFilter{}, types.PageRequest{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)
	assert.True(t, got[0].IsInShoppingCart)
	assert.False(t, got[0].IsFavorited)
}

func TestRecipeService_FavoritesAndCart(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	recipe := testhelpers.CreateRecipe(t, f.db, f.author.ID, "toast", map[uint]int{f.flour.ID: 100})

	fav, err := f.recipes.AddFavorite(ctx, f.other.ID, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RecipeMinified{
		ID:          recipe.ID,
		Name:        "toast",
		Image:       "http://testserver/media/recipes/images/toast.png",
		CookingTime: 10,
	}, *fav)

	_, err = f.recipes.AddFavorite(ctx, f.other.ID, recipe.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyFavorited)
	require.NoError(t, f.recipes.RemoveFavorite(ctx, f.other.ID, recipe.ID))
	assert.ErrorIs(t, f.recipes.RemoveFavorite(ctx, f.other.ID, recipe.ID), service.ErrNotFavorited)

	_, err = f.recipes.AddToCart(ctx, f.other.ID, recipe.ID)
	require.NoError(t, err)
	_, err = f.recipes.AddToCart(ctx, f.other.ID, recipe.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyInCart)
	require.NoError(t, f.recipes.RemoveFromCart(ctx, f.other.ID, recipe.ID))
	assert.ErrorIs(t, f.recipes.RemoveFromCart(ctx, f.other.ID, recipe.ID), service.ErrNotInCart)

	_, err = f.recipes.AddFavorite(ctx, f.other.ID, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.ErrorIs(t, f.recipes.RemoveFromCart(ctx, f.other.ID, 999), service.ErrNotFound)
}
