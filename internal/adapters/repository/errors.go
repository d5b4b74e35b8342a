package repository

import "errors"

// Sentinel kinds for result store errors.
var (
	ErrNotFound     = errors.New("scored event not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrInvalidEvent = errors.New("scored event has no name")
	ErrClosed       = errors.New("store closed")
)
