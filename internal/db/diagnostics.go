package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LabelCount is the number of stored rows for one label.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Diagnostics describes what the database holds. The analyze command prints
// it when the requested window is empty.
type Diagnostics struct {
	TotalRows int64        `json:"total_rows"`
	Latest    time.Time    `json:"latest,omitempty"`
	Labels    []LabelCount `json:"labels"`
}

// Age returns how long before now the newest row was written, or zero when
// the table is empty.
func (d Diagnostics) Age(now time.Time) time.Duration {
	if d.Latest.IsZero() {
		return 0
	}
	return now.Sub(d.Latest)
}

// Diagnostics counts rows, finds the newest timestamp and groups rows by label.
func (db *DB) Diagnostics(ctx context.Context) (Diagnostics, error) {
	var (
		d      Diagnostics
		latest sql.NullInt64
	)
	err := db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(timestamp) FROM sensor_data`).Scan(&d.TotalRows, &latest)
	if err != nil {
		return Diagnostics{}, fmt.Errorf("failed to count sensor data: %w", err)
	}
	if latest.Valid {
		d.Latest = fromMillis(latest.Int64)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT motion_label, COUNT(*) AS n
		FROM sensor_data
		GROUP BY motion_label
		ORDER BY n DESC, motion_label`)
	if err != nil {
		return Diagnostics{}, fmt.Errorf("failed to group labels: %w", err)
	}
	defer rows.Close()

	d.Labels = []LabelCount{}
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return Diagnostics{}, fmt.Errorf("failed to scan label count: %w", err)
		}
		d.Labels = append(d.Labels, lc)
	}
	return d, rows.Err()
}
