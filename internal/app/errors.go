package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted       = errors.New("service not started")
	ErrRunNotFound      = errors.New("run not found")
	ErrEmptyRun         = errors.New("run has no events")
	ErrTooManyEvents    = errors.New("run exceeds the event limit")
	ErrDuplicateEventID = errors.New("duplicate event id in run")
	ErrRunFinished      = errors.New("run already finished")
)
