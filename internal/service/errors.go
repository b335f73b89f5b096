package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("you do not have permission to perform this action")
)

// ValidationError collects per-field messages.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ConflictError is a pair-relation state error: adding something already
// present or removing something absent.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

var (
	ErrAlreadyFavorited  = &ConflictError{Message: "Recipe is already in favorites."}
	ErrNotFavorited      = &ConflictError{Message: "Recipe is not in favorites."}
	ErrAlreadyInCart     = &ConflictError{Message: "Recipe is already in the shopping cart."}
	ErrNotInCart         = &ConflictError{Message: "Recipe is not in the shopping cart."}
	ErrAlreadySubscribed = &ConflictError{Message: "You are already subscribed to this user."}
	ErrNotSubscribed     = &ConflictError{Message: "You are not subscribed to this user."}
)

// ErrSelfFollow is returned for subscribe and unsubscribe on oneself.
var ErrSelfFollow = NewValidationError("errors", "You cannot subscribe to yourself.")
