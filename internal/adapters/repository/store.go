// Package repository persists scored events and serves the leaderboard.
package repository

import (
	"context"
	"strings"

	"github.com/okian/eventscore/internal/domain/model"
	"github.com/okian/eventscore/internal/domain/types"
)

// Store provides read/write access to scored events keyed by event name.
type Store interface {
	// Get returns the stored result for an event name.
	// Returns ErrNotFound if the name is unknown.
	Get(ctx context.Context, name string) (model.ScoredEvent, error)

	// Upsert stores ev unless a non-zero prior result exists and ev scored
	// zero. Returns true if the stored value changed.
	Upsert(ctx context.Context, ev model.ScoredEvent) (bool, error)

	// TopN returns the top-N entries ordered by total desc, name asc.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of events tracked.
	Count(ctx context.Context) (int, error)

	Close() error
}

// key is the identity of a stored event.
func key(name string) string {
	return strings.TrimSpace(name)
}

// keepPrior reports whether an existing result must survive an incoming one.
func keepPrior(prior, next model.ScoredEvent) bool {
	return prior.TotalScore > 0 && next.TotalScore == 0
}

// before reports whether a sorts ahead of b on the leaderboard.
func before(aTotal int, aName string, bTotal int, bName string) bool {
	if aTotal != bTotal {
		return aTotal > bTotal
	}
	return aName < bName
}

func entry(rank int, ev model.ScoredEvent) types.Entry {
	return types.Entry{
		Rank:             rank,
		EventID:          ev.EventID,
		CompanyName:      ev.CompanyName,
		TotalScore:       ev.TotalScore,
		NextStepStrategy: ev.NextStepStrategy,
	}
}
