package config

import "errors"

// Sentinel kinds for configuration errors.
var (
	// ErrLoadConfig wraps failures reading the .env file, the YAML file or
	// the environment.
	ErrLoadConfig = errors.New("load eventscore config")
	// ErrInvalidConfig wraps validation failures; the message lists every problem.
	ErrInvalidConfig = errors.New("invalid eventscore config")
)
