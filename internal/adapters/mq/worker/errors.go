package worker

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel kinds for scheduler errors.
var (
	ErrRateLimited = errors.New("rate limited")
	ErrInterrupted = errors.New("Analysis was interrupted") //nolint:revive,stylecheck // user-visible reason string
	ErrTaskPanic   = errors.New("scoring task panicked")
)

// RateLimitError reports that a task hit an external quota. RetryAfter is
// the hint given by the quota owner, zero when none was given.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	msg := ErrRateLimited.Error()
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// Is matches ErrRateLimited.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

var rateLimitHints = []string{"rate limit", "too many requests", "429", "quota"}

// IsRateLimit classifies err as a quota failure, either typed or by the
// wording external services commonly use.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range rateLimitHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// retryAfter extracts the retry hint from err, if any.
func retryAfter(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}
