// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry
type Entry struct {
	Rank             int    `json:"rank"`
	EventID          string `json:"event_id"`
	CompanyName      string `json:"company_name"`
	TotalScore       int    `json:"total_score"`
	NextStepStrategy string `json:"next_step_strategy"`
}

// RunStatus is the lifecycle of a scoring run as exposed to API clients.
type RunStatus string

// Run statuses.
const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
)

// Finished reports whether a run in status s can no longer change.
func (s RunStatus) Finished() bool {
	return s == RunCompleted || s == RunCancelled
}
