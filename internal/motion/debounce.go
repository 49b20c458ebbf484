package motion

// DefaultDebounceSteps is the number of consecutive disagreeing raw labels
// needed to change the confirmed state.
const DefaultDebounceSteps = 3

// DebounceState is the hysteresis state: the confirmed label and a signed
// agreement counter in [-n, n].
type DebounceState struct {
	Confirmed Label `json:"confirmed"`
	Counter   int   `json:"counter"`
}

// InitialDebounceState is the state before any samples arrive.
func InitialDebounceState() DebounceState {
	return DebounceState{Confirmed: LabelIdle}
}

// Step advances the state by one raw classification. Agreement raises the
// counter up to n; disagreement lowers it, and on reaching -n the raw label
// becomes confirmed and the counter resets. StateCollecting (or any other
// non-motion label) leaves the state untouched. The returned bool reports
// whether the confirmed label changed.
func Step(s DebounceState, raw Label, n int) (DebounceState, bool) {
	if !raw.Valid() {
		return s, false
	}
	if n <= 0 {
		n = DefaultDebounceSteps
	}

	if raw == s.Confirmed {
		if s.Counter < n {
			s.Counter++
		}
		return s, false
	}

	s.Counter--
	if s.Counter > -n {
		return s, false
	}
	return DebounceState{Confirmed: raw}, true
}

// Debouncer applies Step with a fixed threshold.
type Debouncer struct {
	steps int
	state DebounceState
}

// NewDebouncer creates a Debouncer in the initial state. A non-positive
// steps uses DefaultDebounceSteps.
func NewDebouncer(steps int) *Debouncer {
	if steps <= 0 {
		steps = DefaultDebounceSteps
	}
	return &Debouncer{steps: steps, state: InitialDebounceState()}
}

// Update feeds one raw label and returns the confirmed label and whether it
// changed.
func (d *Debouncer) Update(raw Label) (Label, bool) {
	var changed bool
	d.state, changed = Step(d.state, raw, d.steps)
	return d.state.Confirmed, changed
}

// State returns the current hysteresis state.
func (d *Debouncer) State() DebounceState { return d.state }

// Steps returns the configured threshold.
func (d *Debouncer) Steps() int { return d.steps }
