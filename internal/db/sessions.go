package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session id has no row.
var ErrSessionNotFound = errors.New("session not found")

// Session is one recording run. EndedAt is zero while the run is open.
type Session struct {
	ID        string    `json:"session_id"`
	Source    string    `json:"source"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Samples   int64     `json:"samples"`
}

// StartSession records the beginning of a recording run.
func (db *DB) StartSession(ctx context.Context, id, source string, at time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, source, started_at) VALUES (?, ?, ?)`,
		id, source, toMillis(at))
	if err != nil {
		return fmt.Errorf("failed to start session %s: %w", id, err)
	}
	return nil
}

// EndSession stamps the end of a recording run.
func (db *DB) EndSession(ctx context.Context, id string, at time.Time) error {
	res, err := db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE session_id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// Sessions lists up to limit sessions, most recently started first, with
// the number of rows each stored.
func (db *DB) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT s.session_id, s.source, s.started_at, s.ended_at,
			(SELECT COUNT(*) FROM sensor_data d WHERE d.session_id = s.session_id)
		FROM sessions s
		ORDER BY s.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		var (
			s       Session
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Source, &started, &ended, &s.Samples); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.StartedAt = fromMillis(started)
		if ended.Valid {
			s.EndedAt = fromMillis(ended.Int64)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
