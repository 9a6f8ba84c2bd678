// Package domain defines core data structures used throughout the signal service.
package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Pair cryptocurrency trading pair.
type Pair struct {
	// From base currency symbol.
	From string
	// To quote currency symbol.
	To string
}

// NewPair builds a pair from a BASE_QUOTE or BASE/QUOTE string.
func NewPair(s string) (Pair, error) {
	sep := "_"
	if strings.Contains(s, "/") {
		sep = "/"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, errors.Errorf("invalid pair %q, expected BASE_QUOTE", s)
	}
	return Pair{From: strings.ToUpper(parts[0]), To: strings.ToUpper(parts[1])}, nil
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Symbol returns the concatenated symbol representation.
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.From, p.To)
}

// Display returns the slash separated form used in rationales, e.g. ETH/USD.
func (p Pair) Display() string {
	return fmt.Sprintf("%s/%s", p.From, p.To)
}
