package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/aJLaxzzz/foodgram-st/internal/models"
	"github.com/aJLaxzzz/foodgram-st/internal/types"
)

// CatalogService serves the read-only ingredient and tag dictionaries.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Ingredients lists ingredients whose name starts with prefix, case-insensitively.
func (s *CatalogService) Ingredients(ctx context.Context, prefix string) ([]types.IngredientResponse, error) {
	q := s.db.WithContext(ctx).Order("name").Order("id")
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	// SQLite's LOWER only folds ASCII, so non-Latin names are matched in Go there.
	foldInGo := prefix != "" && s.db.Dialector.Name() == "sqlite"
	if prefix != "" && !foldInGo {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likeEscaper.Replace(prefix)+"%")
	}
	var ingredients []models.Ingredient
	if err := q.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	if foldInGo {
		matched := ingredients[:0]
		for _, ing := range ingredients {
			if strings.HasPrefix(strings.ToLower(ing.Name), prefix) {
				matched = append(matched, ing)
			}
		}
		ingredients = matched
	}
	out := make([]types.IngredientResponse, len(ingredients))
	for i := range ingredients {
		out[i] = ingredientResponse(&ingredients[i])
	}
	return out, nil
}

func (s *CatalogService) Ingredient(ctx context.Context, id uint) (*types.IngredientResponse, error) {
	var ingredient models.Ingredient
	if err := first(s.db.WithContext(ctx), &ingredient, id); err != nil {
		return nil, err
	}
	out := ingredientResponse(&ingredient)
	return &out, nil
}

func (s *CatalogService) Tags(ctx context.Context) ([]types.TagResponse, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	out := make([]types.TagResponse, len(tags))
	for i := range tags {
		out[i] = tagResponse(&tags[i])
	}
	return out, nil
}

func (s *CatalogService) Tag(ctx context.Context, id uint) (*types.TagResponse, error) {
	var tag models.Tag
	if err := first(s.db.WithContext(ctx), &tag, id); err != nil {
		return nil, err
	}
	out := tagResponse(&tag)
	return &out, nil
}

func first(db *gorm.DB, dest interface{}, id uint) error {
	err := db.First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load record %d: %w", id, err)
	}
	return nil
}
