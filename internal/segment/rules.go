package segment

import (
	"fmt"

	"github.com/banshee-data/motion.report/internal/motion"
)

// Pattern names in the default table.
const (
	PatternActive     = "active"
	PatternStationary = "stationary"
	PatternMixed      = "mixed"
	PatternUnknown    = "unknown"
)

// PatternRule is one declarative condition set. Nil thresholds are not
// checked. With no motions, the percentage and consecutive checks are
// skipped and only MinTransitions applies.
type PatternRule struct {
	Motions        []motion.Label `json:"motions"`
	MinConsecutive *int           `json:"min_consecutive,omitempty"`
	MinPercentage  *float64       `json:"min_percentage,omitempty"`
	MinTransitions *int           `json:"min_transitions,omitempty"`
}

// PatternEntry names a pattern and the rules, any of which assigns it.
type PatternEntry struct {
	Name  string        `json:"name"`
	Rules []PatternRule `json:"rules"`
}

// PatternTable is evaluated in order; the first entry with a matching rule
// wins.
type PatternTable []PatternEntry

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// DefaultPatternTable returns the active, stationary, mixed table.
func DefaultPatternTable() PatternTable {
	return PatternTable{
		{Name: PatternActive, Rules: []PatternRule{{
			Motions:        []motion.Label{motion.LabelWalking, motion.LabelRunning},
			MinConsecutive: intPtr(3),
			MinPercentage:  floatPtr(0.4),
		}}},
		{Name: PatternStationary, Rules: []PatternRule{{
			Motions:        []motion.Label{motion.LabelResting, motion.LabelIdle},
			MinConsecutive: intPtr(5),
			MinPercentage:  floatPtr(0.7),
		}}},
		{Name: PatternMixed, Rules: []PatternRule{{
			Motions:        []motion.Label{motion.LabelWalking, motion.LabelIdle},
			MinPercentage:  floatPtr(0.4),
			MinTransitions: intPtr(3),
		}}},
	}
}

// Names returns the pattern names in table order followed by "unknown".
func (t PatternTable) Names() []string {
	out := make([]string, 0, len(t)+1)
	for _, e := range t {
		out = append(out, e.Name)
	}
	return append(out, PatternUnknown)
}

// Validate rejects empty or duplicate names, unknown motion labels and
// out-of-range thresholds.
func (t PatternTable) Validate() error {
	seen := make(map[string]bool, len(t))
	for i, e := range t {
		if e.Name == "" {
			return fmt.Errorf("pattern %d has no name", i)
		}
		if e.Name == PatternUnknown {
			return fmt.Errorf("pattern name %q is reserved", PatternUnknown)
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate pattern %q", e.Name)
		}
		seen[e.Name] = true
		for j, r := range e.Rules {
			if err := r.validate(); err != nil {
				return fmt.Errorf("pattern %q rule %d: %w", e.Name, j, err)
			}
		}
	}
	return nil
}

func (r PatternRule) validate() error {
	for _, m := range r.Motions {
		if !m.Valid() {
			return fmt.Errorf("unknown motion %q", m)
		}
	}
	if r.MinPercentage != nil && (*r.MinPercentage < 0 || *r.MinPercentage > 1) {
		return fmt.Errorf("min_percentage %v outside [0,1]", *r.MinPercentage)
	}
	if r.MinConsecutive != nil && *r.MinConsecutive < 0 {
		return fmt.Errorf("min_consecutive must be non-negative")
	}
	if r.MinTransitions != nil && *r.MinTransitions < 0 {
		return fmt.Errorf("min_transitions must be non-negative")
	}
	return nil
}

// Matches reports whether every configured condition of r holds for f.
func (r PatternRule) Matches(f Features) bool {
	if r.MinPercentage != nil && len(r.Motions) > 0 {
		var total float64
		for _, m := range r.Motions {
			total += f.LabelPercentage[m]
		}
		if total < *r.MinPercentage*100 {
			return false
		}
	}

	if r.MinConsecutive != nil && len(r.Motions) > 0 {
		longest := 0
		for _, m := range r.Motions {
			if f.MaxConsecutive[m] > longest {
				longest = f.MaxConsecutive[m]
			}
		}
		if longest < *r.MinConsecutive {
			return false
		}
	}

	if r.MinTransitions != nil && f.TransitionCount < *r.MinTransitions {
		return false
	}
	return true
}

// RuleEngine assigns pattern names from a fixed table.
type RuleEngine struct {
	table PatternTable
}

// NewRuleEngine validates and copies table. A nil table uses
// DefaultPatternTable.
func NewRuleEngine(table PatternTable) (*RuleEngine, error) {
	if table == nil {
		table = DefaultPatternTable()
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	cp := make(PatternTable, len(table))
	copy(cp, table)
	return &RuleEngine{table: cp}, nil
}

// Table returns the engine's pattern table.
func (e *RuleEngine) Table() PatternTable { return e.table }

// AssignPattern returns the first pattern with a matching rule, or
// PatternUnknown.
func (e *RuleEngine) AssignPattern(f Features) string {
	for _, entry := range e.table {
		for _, rule := range entry.Rules {
			if rule.Matches(f) {
				return entry.Name
			}
		}
	}
	return PatternUnknown
}
