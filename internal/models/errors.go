package models

import (
	"errors"
	"fmt"
	"sync"
)

var ErrSelfFollow = errors.New("you cannot subscribe to yourself")

// FieldError is returned by model hooks when a value breaks a write-time bound.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Bounds are the numeric limits enforced by the recipe hooks.
type Bounds struct {
	MinCookingTime      int
	MaxCookingTime      int
	MinIngredientAmount int
	MaxIngredientAmount int
}

var (
	boundsMu sync.RWMutex
	bounds   = Bounds{MinCookingTime: 1, MaxCookingTime: 32000, MinIngredientAmount: 1, MaxIngredientAmount: 32000}
)

// SetBounds replaces the limits used by the hooks. Called once at startup.
func SetBounds(b Bounds) {
	boundsMu.Lock()
	bounds = b
	boundsMu.Unlock()
}

func CurrentBounds() Bounds {
	boundsMu.RLock()
	defer boundsMu.RUnlock()
	return bounds
}

// CookingTimeMessage is the validation text for an out-of-range cooking time.
func (b Bounds) CookingTimeMessage() string {
	return fmt.Sprintf("Cooking time must be between %d and %d minutes.", b.MinCookingTime, b.MaxCookingTime)
}

func (b Bounds) AmountMessage() string {
	return fmt.Sprintf("Amount must be between %d and %d.", b.MinIngredientAmount, b.MaxIngredientAmount)
}
