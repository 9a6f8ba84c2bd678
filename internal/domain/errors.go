package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidInput matches every InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports a malformed asset series: wrong period count,
// non-numeric or non-positive price fields.
type InvalidInputError struct {
	Symbol string
	Reason string
}

// NewInvalidInputError creates an InvalidInputError.
func NewInvalidInputError(symbol, format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Symbol: symbol, Reason: fmt.Sprintf(format, args...)}
}

func (e *InvalidInputError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input for %s: %s", e.Symbol, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}
