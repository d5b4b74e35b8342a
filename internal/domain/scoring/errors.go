package scoring

import (
	"errors"
	"fmt"
)

// Sentinel kinds for scoring errors.
var (
	ErrInvalidInput = errors.New("invalid event input")
)

// InvalidInputError reports an event that cannot be scored. It is fatal for
// that event only.
type InvalidInputError struct {
	EventID string
	Field   string
}

func (e *InvalidInputError) Error() string {
	if e.EventID == "" {
		return fmt.Sprintf("%s: missing %s", ErrInvalidInput, e.Field)
	}
	return fmt.Sprintf("%s: event %s: missing %s", ErrInvalidInput, e.EventID, e.Field)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }
