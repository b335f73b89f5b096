package service

import (
	"context"

	"github.com/aJLaxzzz/foodgram-st/internal/types"
)

// IAuthService defines the interface for token operations
type IAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
}

// IUserService defines the interface for account and profile operations
type IUserService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*types.UserCreatedResponse, error)
	Get(ctx context.Context, viewerID, id uint) (*types.UserResponse, error)
	List(ctx context.Context, viewerID uint, page types.PageRequest) ([]types.UserResponse, int64, error)
	SetPassword(ctx context.Context, userID uint, current, next string) error
	SetAvatar(ctx context.Context, userID uint, raw string) (string, error)
	DeleteAvatar(ctx context.Context, userID uint) error
	Subscriptions(ctx context.Context, viewerID uint, page types.PageRequest, recipesLimit int) ([]types.UserWithRecipes, int64, error)
}

// ISubscriptionService defines follow/unfollow
type ISubscriptionService interface {
	Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.UserWithRecipes, error)
	Unsubscribe(ctx context.Context, userID, authorID uint) error
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	List(ctx context.Context, viewerID uint, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeResponse, int64, error)
	Get(ctx context.Context, viewerID, id uint) (*types.RecipeResponse, error)
	Create(ctx context.Context, authorID uint, req *types.RecipeWriteRequest) (*types.RecipeResponse, error)
	Update(ctx context.Context, userID, id uint, req *types.RecipeWriteRequest) (*types.RecipeResponse, error)
	Delete(ctx context.Context, userID, id uint) error
	AddFavorite(ctx context.Context, userID, recipeID uint) (*types.RecipeMinified, error)
	RemoveFavorite(ctx context.Context, userID, recipeID uint) error
	AddToCart(ctx context.Context, userID, recipeID uint) (*types.RecipeMinified, error)
	RemoveFromCart(ctx context.Context, userID, recipeID uint) error
}

type IShoppingListService interface {
	Build(ctx context.Context, userID uint) ([]types.ShoppingListItem, error)
}

type IShortLinkService interface {
	GetOrCreate(ctx context.Context, recipeID uint) (string, error)
	Resolve(ctx context.Context, code string) (uint, error)
}

type ICatalogService interface {
	Ingredients(ctx context.Context, prefix string) ([]types.IngredientResponse, error)
	Ingredient(ctx context.Context, id uint) (*types.IngredientResponse, error)
	Tags(ctx context.Context) ([]types.TagResponse, error)
	Tag(ctx context.Context, id uint) (*types.TagResponse, error)
}

var (
	_ IAuthService         = (*AuthService)(nil)
	_ IUserService         = (*UserService)(nil)
	_ ISubscriptionService = (*SubscriptionService)(nil)
	_ IRecipeService       = (*RecipeService)(nil)
	_ IShoppingListService = (*ShoppingListService)(nil)
	_ IShortLinkService    = (*ShortLinkService)(nil)
	_ ICatalogService      = (*CatalogService)(nil)
)
