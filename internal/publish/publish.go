// Package publish announces confirmed motion states to other processes.
package publish

import (
	"time"

	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/segment"
)

// Change is published whenever the debounced state moves to a new label.
type Change struct {
	SessionID string          `json:"session_id"`
	Previous  motion.Label    `json:"previous"`
	Label     motion.Label    `json:"label"`
	Raw       motion.Label    `json:"raw"`
	Time      time.Time       `json:"time"`
	Features  motion.Features `json:"features"`
}

// Publisher sends confirmed changes and analysis summaries somewhere.
type Publisher interface {
	PublishChange(Change) error
	PublishSummary(segment.Summary) error
	Close() error
}

// Nop discards everything. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishChange(Change) error           { return nil }
func (Nop) PublishSummary(segment.Summary) error { return nil }
func (Nop) Close() error                         { return nil }
