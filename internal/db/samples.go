package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/segment"
)

// ErrUnconfirmedLabel is returned when asked to store a row whose label is
// not one of the four motion labels.
var ErrUnconfirmedLabel = errors.New("label is not a confirmed motion label")

// SensorRecord is one stored reading with the confirmed label at the time
// it arrived.
type SensorRecord struct {
	ID           int64         `json:"id"`
	SessionID    string        `json:"session_id"`
	DeviceMillis int64         `json:"device_ms"`
	Sample       motion.Sample `json:"sample"`
	TemperatureC float64       `json:"temperature_c"`
	Label        motion.Label  `json:"motion_label"`
}

const insertSampleSQL = `
	INSERT INTO sensor_data (
		session_id, timestamp, device_ms,
		accel_x, accel_y, accel_z, gyro_x, gyro_y, gyro_z,
		temperature_c, motion_label
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (r SensorRecord) args() ([]any, error) {
	if !r.Label.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnconfirmedLabel, r.Label)
	}
	if r.SessionID == "" {
		return nil, errors.New("session id is required")
	}
	s := r.Sample
	return []any{
		r.SessionID, toMillis(s.Timestamp), r.DeviceMillis,
		s.AccelX, s.AccelY, s.AccelZ, s.GyroX, s.GyroY, s.GyroZ,
		r.TemperatureC, string(r.Label),
	}, nil
}

// RecordSample stores one labelled reading.
func (db *DB) RecordSample(ctx context.Context, r SensorRecord) error {
	args, err := r.args()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, insertSampleSQL, args...); err != nil {
		return fmt.Errorf("failed to record sample: %w", err)
	}
	return nil
}

// RecordSamples stores a batch of readings in one transaction. Either all
// rows are stored or none are.
func (db *DB) RecordSamples(ctx context.Context, records []SensorRecord) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSampleSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		args, err := r.args()
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to record sample %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LabeledSamplesSince returns every stored (timestamp, label) pair at or
// after since, oldest first. This is the input of the segment analyzer.
func (db *DB) LabeledSamplesSince(ctx context.Context, since time.Time) ([]segment.LabeledSample, error) {
	return db.LabeledSamplesBetween(ctx, since, time.Time{})
}

// LabeledSamplesBetween returns labelled samples in [from, to). A zero to
// leaves the range open ended.
func (db *DB) LabeledSamplesBetween(ctx context.Context, from, to time.Time) ([]segment.LabeledSample, error) {
	query := `SELECT timestamp, motion_label FROM sensor_data WHERE timestamp >= ?`
	args := []any{toMillis(from)}
	if !to.IsZero() {
		query += ` AND timestamp < ?`
		args = append(args, toMillis(to))
	}
	query += ` ORDER BY timestamp, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query labelled samples: %w", err)
	}
	defer rows.Close()

	var out []segment.LabeledSample
	for rows.Next() {
		var (
			ms    int64
			label string
		)
		if err := rows.Scan(&ms, &label); err != nil {
			return nil, fmt.Errorf("failed to scan labelled sample: %w", err)
		}
		out = append(out, segment.LabeledSample{Timestamp: fromMillis(ms), Label: motion.Label(label)})
	}
	return out, rows.Err()
}

// RecentSamples returns up to limit of the newest stored readings, newest
// first. An empty session matches every session.
func (db *DB) RecentSamples(ctx context.Context, sessionID string, limit int) ([]SensorRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, session_id, timestamp, device_ms,
			accel_x, accel_y, accel_z, gyro_x, gyro_y, gyro_z,
			temperature_c, motion_label
		FROM sensor_data`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent samples: %w", err)
	}
	defer rows.Close()

	var out []SensorRecord
	for rows.Next() {
		var (
			r     SensorRecord
			ms    int64
			temp  sql.NullFloat64
			label string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &ms, &r.DeviceMillis,
			&r.Sample.AccelX, &r.Sample.AccelY, &r.Sample.AccelZ,
			&r.Sample.GyroX, &r.Sample.GyroY, &r.Sample.GyroZ,
			&temp, &label); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		r.Sample.Timestamp = fromMillis(ms)
		r.TemperatureC = temp.Float64
		r.Label = motion.Label(label)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Timestamps are stored as Unix milliseconds.
func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
