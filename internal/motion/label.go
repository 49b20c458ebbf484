package motion

import "fmt"

// Label is an instantaneous or confirmed motion state.
type Label string

const (
	// LabelResting means the sensor is still: gravity only, no rotation.
	LabelResting Label = "resting"
	// LabelIdle is the catch-all for movement that is not walking or running.
	LabelIdle Label = "idle"
	// LabelWalking means moderate, sustained acceleration.
	LabelWalking Label = "walking"
	// LabelRunning means high, sustained acceleration.
	LabelRunning Label = "running"

	// StateCollecting is returned while the buffer holds too few samples to
	// classify. It is not a motion label and never becomes a confirmed state.
	StateCollecting Label = "collecting_data"
)

// Labels is the closed set of motion labels in display order.
var Labels = []Label{LabelResting, LabelIdle, LabelWalking, LabelRunning}

// Valid reports whether l is one of the four motion labels.
func (l Label) Valid() bool {
	switch l {
	case LabelResting, LabelIdle, LabelWalking, LabelRunning:
		return true
	}
	return false
}

func (l Label) String() string { return string(l) }

// ParseLabel converts a stored label string back into a Label.
func ParseLabel(s string) (Label, error) {
	l := Label(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown motion label %q", s)
	}
	return l, nil
}
