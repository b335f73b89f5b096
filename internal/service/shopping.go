package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/aJLaxzzz/foodgram-st/internal/types"
)

const (
	ShoppingListFilename = "shopping_list.txt"
	shoppingListHeader   = "Shopping list:"
	shoppingListEmpty    = "Your shopping list is empty."
)

// ShoppingListService aggregates the ingredients of a user's cart.
type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Build sums ingredient amounts over every recipe in the cart of userID,
// one row per (name, unit), ordered by name then unit.
func (s *ShoppingListService) Build(ctx context.Context, userID uint) ([]types.ShoppingListItem, error) {
	var items []types.ShoppingListItem
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients AS ri").
		Select("i.name AS name, i.measurement_unit AS measurement_unit, SUM(ri.amount) AS total").
		Joins("JOIN ingredients AS i ON i.id = ri.ingredient_id").
		Joins("JOIN shopping_carts AS sc ON sc.recipe_id = ri.recipe_id").
		Where("sc.user_id = ?", userID).
		Group("i.name, i.measurement_unit").
		Order("i.name, i.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	return items, nil
}

// Render formats the list as the downloadable text file.
func Render(items []types.ShoppingListItem) string {
	var b strings.Builder
	b.WriteString(shoppingListHeader + "\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	if len(items) == 0 {
		b.WriteString(shoppingListEmpty + "\n")
		return b.String()
	}
	for _, it := range items {
		fmt.Fprintf(&b, "%s (%s) — %d\n", it.Name, it.MeasurementUnit, it.Total)
	}
	return b.String()
}
