package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/aJLaxzzz/foodgram-st/internal/database"
	"github.com/aJLaxzzz/foodgram-st/internal/models"
)

// PairRelation is a unique (left, right) link table: favorites, shopping
// cart entries and follows all share the same add/remove rules.
type PairRelation struct {
	db         *gorm.DB
	newRow     func(left, right uint) interface{}
	leftCol    string
	rightCol   string
	ErrExists  error
	ErrMissing error
}

func NewFavorites(db *gorm.DB) *PairRelation {
	return &PairRelation{
		db: db,
		newRow: func(userID, recipeID uint) interface{} {
			return &models.Favorite{UserID: userID, RecipeID: recipeID}
		},
		leftCol:    "user_id",
		rightCol:   "recipe_id",
		ErrExists:  ErrAlreadyFavorited,
		ErrMissing: ErrNotFavorited,
	}
}

func NewShoppingCart(db *gorm.DB) *PairRelation {
	return &PairRelation{
		db: db,
		newRow: func(userID, recipeID uint) interface{} {
			return &models.ShoppingCart{UserID: userID, RecipeID: recipeID}
		},
		leftCol:    "user_id",
		rightCol:   "recipe_id",
		ErrExists:  ErrAlreadyInCart,
		ErrMissing: ErrNotInCart,
	}
}

func NewFollows(db *gorm.DB) *PairRelation {
	return &PairRelation{
		db: db,
		newRow: func(userID, authorID uint) interface{} {
			return &models.Follow{UserID: userID, AuthorID: authorID}
		},
		leftCol:    "user_id",
		rightCol:   "author_id",
		ErrExists:  ErrAlreadySubscribed,
		ErrMissing: ErrNotSubscribed,
	}
}

func (r *PairRelation) where(tx *gorm.DB, left, right uint) *gorm.DB {
	return tx.Model(r.newRow(0, 0)).Where(r.leftCol+" = ? AND "+r.rightCol+" = ?", left, right)
}

// Add inserts the pair. An existing pair, or one inserted concurrently,
// yields ErrExists.
func (r *PairRelation) Add(ctx context.Context, left, right uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := r.where(tx, left, right).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check relation: %w", err)
		}
		if count > 0 {
			return r.ErrExists
		}
		return tx.Create(r.newRow(left, right)).Error
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, r.ErrExists), database.IsUniqueViolation(err):
		return r.ErrExists
	case errors.Is(err, models.ErrSelfFollow):
		return ErrSelfFollow
	default:
		return fmt.Errorf("failed to add relation: %w", err)
	}
}

// Remove deletes the pair or returns ErrMissing when it is absent.
func (r *PairRelation) Remove(ctx context.Context, left, right uint) error {
	res := r.db.WithContext(ctx).
		Where(r.leftCol+" = ? AND "+r.rightCol+" = ?", left, right).
		Delete(r.newRow(0, 0))
	if res.Error != nil {
		return fmt.Errorf("failed to remove relation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.ErrMissing
	}
	return nil
}

// Exists reports whether the pair is present.
func (r *PairRelation) Exists(ctx context.Context, left, right uint) (bool, error) {
	var count int64
	if err := r.where(r.db.WithContext(ctx), left, right).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check relation: %w", err)
	}
	return count > 0, nil
}
