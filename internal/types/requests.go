package types

// LoginRequest represents the token login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,max=128"`
}

type SetPasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,max=128"`
}

type AvatarRequest struct {
	Avatar string `json:"avatar" binding:"required"`
}

// IngredientAmount is one {id, amount} entry of a recipe write payload.
type IngredientAmount struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// RecipeWriteRequest is shared by create and partial update. Pointer fields
// distinguish "absent" from "empty".
type RecipeWriteRequest struct {
	Ingredients *[]IngredientAmount `json:"ingredients"`
	Tags        *[]uint             `json:"tags"`
	Image       *string             `json:"image"`
	Name        *string             `json:"name"`
	Text        *string             `json:"text"`
	CookingTime *int                `json:"cooking_time"`
}

// RecipeFilter holds the recipe list query parameters.
type RecipeFilter struct {
	AuthorID         uint
	IsFavorited      *bool
	IsInShoppingCart *bool
}

// PageRequest is a 1-based page with a size already clamped to the allowed range.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}
