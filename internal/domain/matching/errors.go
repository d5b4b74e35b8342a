package matching

import "errors"

// Sentinel kinds for matching diagnostics.
var (
	ErrAmbiguousMatch = errors.New("contact matched by more than one rule")
)
