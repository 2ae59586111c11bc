package entity

import (
	"errors"
	"fmt"
)

// Lookup errors surfaced to callers as not-found failures.
var (
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrPlacementNotFound = errors.New("placement not found")
	ErrCompanyNotFound   = errors.New("company not found")
	ErrStatusNotFound    = errors.New("status not found")
	ErrPositionNotFound  = errors.New("position not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrPageNotFound      = errors.New("page not found")
)

// ValidationError marks malformed caller input (bad date format, missing
// required field). The api layer maps it to a bad-request response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsNotFound reports whether err is one of the lookup errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrPlacementNotFound) ||
		errors.Is(err, ErrCompanyNotFound) ||
		errors.Is(err, ErrStatusNotFound) ||
		errors.Is(err, ErrPositionNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrPageNotFound)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
