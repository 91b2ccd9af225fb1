package contentcore

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind sentinels. Every error surfaced by this package unwraps to exactly
// one of these, so callers can classify without inspecting concrete types.
var (
	// ErrInvalid indicates malformed or semantically invalid input.
	ErrInvalid = errors.New("invalid input")

	// ErrNotFound indicates a referenced record is absent. A privacy-key
	// mismatch is deliberately indistinguishable from absence.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden indicates an authenticated but unauthorized actor.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError is a terminal input error.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an absent resource by name.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s is not found", e.Resource) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ForbiddenError reports an authorization failure.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// IsValidation reports whether err classifies as invalid input.
func IsValidation(err error) bool { return errors.Is(err, ErrInvalid) }

// IsNotFound reports whether err classifies as an absent record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsForbidden reports whether err classifies as an authorization failure.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// ContentError wraps an error from a content operation with its context.
type ContentError struct {
	ContentID uuid.UUID
	Op        string
	Err       error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content operation %s failed for content %s: %v", e.Op, e.ContentID, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}
