package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/aJLaxzzz/foodgram-st/internal/models"
	"github.com/aJLaxzzz/foodgram-st/internal/types"
)

// presenter turns models into API representations computed for a viewer.
// A zero viewer is anonymous.
type presenter struct {
	db    *gorm.DB
	store Storage
}

func (p presenter) avatarURL(u *models.User) *string {
	if u.Avatar == "" {
		return nil
	}
	url := p.store.URL(u.Avatar)
	return &url
}

func (p presenter) imageURL(key string) string {
	if key == "" {
		return ""
	}
	return p.store.URL(key)
}

func (p presenter) user(u *models.User, subscribed bool) types.UserResponse {
	return types.UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
		Avatar:       p.avatarURL(u),
	}
}

func (p presenter) minified(r *models.Recipe) types.RecipeMinified {
	return types.RecipeMinified{
		ID:          r.ID,
		Name:        r.Name,
		Image:       p.imageURL(r.Image),
		CookingTime: r.CookingTime,
	}
}

// pairSet returns which of ids appear in column right of model for left = viewer.
func (p presenter) pairSet(ctx context.Context, model interface{}, left, right string, viewerID uint, ids []uint) (map[uint]bool, error) {
	set := make(map[uint]bool, len(ids))
	if viewerID == 0 || len(ids) == 0 {
		return set, nil
	}
	var found []uint
	err := p.db.WithContext(ctx).Model(model).
		Where(left+" = ? AND "+right+" IN ?", viewerID, ids).
		Pluck(right, &found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load viewer relations: %w", err)
	}
	for _, id := range found {
		set[id] = true
	}
	return set, nil
}

func (p presenter) subscribedTo(ctx context.Context, viewerID uint, authorIDs []uint) (map[uint]bool, error) {
	return p.pairSet(ctx, &models.Follow{}, "user_id", "author_id", viewerID, authorIDs)
}

func (p presenter) users(ctx context.Context, viewerID uint, users []models.User) ([]types.UserResponse, error) {
	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	subscribed, err := p.subscribedTo(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	out := make([]types.UserResponse, len(users))
	for i := range users {
		out[i] = p.user(&users[i], subscribed[users[i].ID])
	}
	return out, nil
}

// recipes renders fully preloaded recipes (Author, Tags, Ingredients.Ingredient).
func (p presenter) recipes(ctx context.Context, viewerID uint, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	recipeIDs := make([]uint, len(recipes))
	authorIDs := make([]uint, len(recipes))
	for i := range recipes {
		recipeIDs[i] = recipes[i].ID
		authorIDs[i] = recipes[i].AuthorID
	}

	favorited, err := p.pairSet(ctx, &models.Favorite{}, "user_id", "recipe_id", viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := p.pairSet(ctx, &models.ShoppingCart{}, "user_id", "recipe_id", viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	subscribed, err := p.subscribedTo(ctx, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]types.RecipeResponse, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		tags := make([]types.TagResponse, len(r.Tags))
		for j, t := range r.Tags {
			tags[j] = tagResponse(&t)
		}
		ingredients := make([]types.RecipeIngredientResponse, len(r.Ingredients))
		for j, ri := range r.Ingredients {
			ingredients[j] = types.RecipeIngredientResponse{
				ID:              ri.IngredientID,
				Name:            ri.Ingredient.Name,
				MeasurementUnit: ri.Ingredient.MeasurementUnit,
				Amount:          ri.Amount,
			}
		}
		out[i] = types.RecipeResponse{
			ID:               r.ID,
			Tags:             tags,
			Author:           p.user(&r.Author, subscribed[r.AuthorID]),
			Ingredients:      ingredients,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            p.imageURL(r.Image),
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
	}
	return out, nil
}

func tagResponse(t *models.Tag) types.TagResponse {
	return types.TagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

func ingredientResponse(i *models.Ingredient) types.IngredientResponse {
	return types.IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}
