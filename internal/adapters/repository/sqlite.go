package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/eventscore/internal/domain/model"
	"github.com/okian/eventscore/internal/domain/types"
	"github.com/okian/eventscore/pkg/logger"
	"github.com/okian/eventscore/pkg/metrics"
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS scored_events (
	company_name TEXT PRIMARY KEY,
	total_score  INTEGER NOT NULL,
	payload      TEXT NOT NULL,
	updated_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scored_events_rank ON scored_events(total_score DESC, company_name ASC);
`

// The WHERE clause keeps a non-zero prior when the incoming total is zero.
const upsertSQL = `
INSERT INTO scored_events (company_name, total_score, payload, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(company_name) DO UPDATE SET
	total_score = excluded.total_score,
	payload     = excluded.payload,
	updated_at  = excluded.updated_at
WHERE NOT (scored_events.total_score > 0 AND excluded.total_score = 0)
`

// SQLiteStore persists scored events in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  logger.Logger
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := newSettings(opts)

	if path == "" {
		path = MemoryPath
	}
	if path != MemoryPath && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(s.maxOpenConns)
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	st := &SQLiteStore{db: db, path: path, log: s.log}
	if n, err := st.Count(ctx); err == nil {
		metrics.UpdateStoredEvents(n)
	}
	st.log.Info(ctx, "sqlite store ready", logger.String("path", path))
	return st, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, name string) (model.ScoredEvent, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("get", msSince(start)) }()

	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM scored_events WHERE company_name = ?", key(name)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScoredEvent{}, fmt.Errorf("get %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return model.ScoredEvent{}, fmt.Errorf("get %q: %w", name, err)
	}

	var ev model.ScoredEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return model.ScoredEvent{}, fmt.Errorf("decode %q: %w", name, err)
	}
	return ev, nil
}

// Upsert implements Store.
func (s *SQLiteStore) Upsert(ctx context.Context, ev model.ScoredEvent) (bool, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("upsert", msSince(start)) }()

	k := key(ev.CompanyName)
	if k == "" {
		return false, ErrInvalidEvent
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return false, fmt.Errorf("encode %q: %w", k, err)
	}

	res, err := s.db.ExecContext(ctx, upsertSQL, k, ev.TotalScore, string(payload), time.Now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "database is closed") {
			return false, ErrClosed
		}
		return false, fmt.Errorf("upsert %q: %w", k, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert %q: %w", k, err)
	}
	if affected == 0 {
		s.log.Debug(ctx, "kept prior non-zero result", logger.String("event", k))
		return false, nil
	}

	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateStoredEvents(n)
	}
	return true, nil
}

// TopN implements Store.
func (s *SQLiteStore) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("top %d: %w", n, ErrInvalidLimit)
	}
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("top_n", msSince(start)) }()

	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM scored_events ORDER BY total_score DESC, company_name ASC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("top %d: %w", n, err)
	}
	defer rows.Close()

	out := make([]types.Entry, 0, n)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		var ev model.ScoredEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("decode leaderboard row: %w", err)
		}
		out = append(out, entry(len(out)+1, ev))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return out, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scored_events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
