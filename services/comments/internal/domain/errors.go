package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("comment not found")
	ErrForbidden     = errors.New("not your comment")
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrRestoreWindowExpired matches ErrForbidden under errors.Is.
	ErrRestoreWindowExpired = fmt.Errorf("%w: restore window expired", ErrForbidden)
)

// ValidationError reports malformed input rejected before it reaches storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a *ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a *ValidationError or a bad cursor.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidCursor)
}
