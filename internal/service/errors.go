package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sentinel errors mapped to HTTP status codes by the handlers.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrAIUnavailable = errors.New("compliance report provider unavailable")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFoundOr translates gorm.ErrRecordNotFound into ErrNotFound and wraps anything else.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}
