package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Common validation errors for models.
var (
	// ErrNameRequired indicates a required name field is empty.
	ErrNameRequired = errors.New("name is required")

	// ErrURLRequired indicates a required URL field is empty.
	ErrURLRequired = errors.New("url is required")

	// ErrInvalidURL indicates a malformed URL.
	ErrInvalidURL = errors.New("invalid URL format")

	// ErrKeyRequired indicates a required settings key is empty.
	ErrKeyRequired = errors.New("key is required")

	// ErrTitleRequired indicates a required title field is empty.
	ErrTitleRequired = errors.New("title is required")

	// ErrInvalidCoordinates indicates latitude/longitude outside valid ranges.
	ErrInvalidCoordinates = errors.New("latitude must be in [-90,90] and longitude in [-180,180]")

	// ErrInvalidBreakKind indicates an unknown break kind.
	ErrInvalidBreakKind = errors.New("invalid break kind: must be 'scheduled' or 'breaking'")

	// ErrInvalidBreakStatus indicates an unknown break status.
	ErrInvalidBreakStatus = errors.New("invalid break status")

	// ErrInvalidTransition indicates a break status change that the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid break status transition")

	// ErrSlugRequired indicates a required host slug is empty.
	ErrSlugRequired = errors.New("slug is required")

	// ErrBodyRequired indicates a required template body is empty.
	ErrBodyRequired = errors.New("template body is required")

	// ErrEventTypeRequired indicates a required event type is empty.
	ErrEventTypeRequired = errors.New("event type is required")
)
