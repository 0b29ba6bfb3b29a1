// Package history persists desired state transitions to a sqlite log.
//
// The log is an audit trail, not a restore mechanism: each row records the
// snapshot carried by one StateUpdated event. It is optional; when no
// database path is configured the daemon runs without it.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/statekeeper/internal/events"
	ferrors "git.home.luguber.info/inful/statekeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/statekeeper/internal/logfields"
)

// ServiceEntry is the JSON shape of one service inside a recorded snapshot.
type ServiceEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Transition is one recorded state transition.
type Transition struct {
	ID            string
	SchemaVersion string
	Services      []ServiceEntry
	OccurredAt    time.Time
}

// Log implements the transition log using sqlite.
type Log struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates a sqlite-backed transition log.
// Use ":memory:" for an in-memory database, or a file path for persistence.
func Open(dbPath string) (*Log, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "failed to open history database").
			WithContext("path", dbPath).
			Build()
	}

	l := &Log{db: db}
	if err := l.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "failed to initialize history schema").
			WithContext("path", dbPath).
			Build()
	}
	return l, nil
}

func (l *Log) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		transition_id TEXT NOT NULL,
		schema_version TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_timestamp ON transitions(timestamp);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Append records one state transition.
func (l *Log) Append(ctx context.Context, evt events.StateUpdated) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]ServiceEntry, 0, len(evt.Services))
	for _, svc := range evt.Services {
		entries = append(entries, ServiceEntry{Name: svc.Name, Version: svc.RequirementString()})
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "failed to marshal transition payload").Build()
	}

	occurred := evt.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}

	_, err = l.db.ExecContext(ctx,
		"INSERT INTO transitions (transition_id, schema_version, timestamp, payload) VALUES (?, ?, ?, ?)",
		uuid.NewString(), evt.SchemaVersion, occurred.UnixNano(), payload,
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "failed to insert transition").Build()
	}
	return nil
}

// Recent returns up to limit transitions, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Transition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		"SELECT transition_id, schema_version, timestamp, payload FROM transitions ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "failed to query transitions").Build()
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var tr Transition
		var ts int64
		var payload []byte
		if err := rows.Scan(&tr.ID, &tr.SchemaVersion, &ts, &payload); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "failed to scan transition").Build()
		}
		tr.OccurredAt = time.Unix(0, ts)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &tr.Services); err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "failed to unmarshal transition payload").Build()
			}
		}
		transitions = append(transitions, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "failed to iterate transitions").Build()
	}
	return transitions, nil
}

// Consume appends every event received on the channel until the channel
// closes or the context is canceled. Append failures are logged and skipped:
// the log is an observer and must never disturb the mutation path.
func (l *Log) Consume(ctx context.Context, ch <-chan events.StateUpdated) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := l.Append(ctx, evt); err != nil {
				slog.Warn("Failed to record state transition", logfields.Error(err))
			}
		}
	}
}

// Close closes the database connection.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}
