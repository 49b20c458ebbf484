package motion

// DefaultWindowSize is the number of recent samples considered per decision.
const DefaultWindowSize = 20

// SampleBuffer is a fixed-capacity sliding window of the most recent samples.
// Once full, each Push overwrites the oldest entry.
type SampleBuffer struct {
	data []Sample
	pos  int
	full bool
}

// NewSampleBuffer creates a SampleBuffer holding at most capacity samples.
// A non-positive capacity uses DefaultWindowSize.
func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &SampleBuffer{data: make([]Sample, capacity)}
}

// Push appends s, evicting the oldest sample if the buffer is full.
func (b *SampleBuffer) Push(s Sample) {
	b.data[b.pos] = s
	b.pos++
	if b.pos >= len(b.data) {
		b.pos = 0
		b.full = true
	}
}

// Len returns the number of samples currently held.
func (b *SampleBuffer) Len() int {
	if b.full {
		return len(b.data)
	}
	return b.pos
}

// Cap returns the buffer capacity.
func (b *SampleBuffer) Cap() int { return len(b.data) }

// Samples returns a copy of the buffer contents, oldest first.
func (b *SampleBuffer) Samples() []Sample {
	out := make([]Sample, b.Len())
	if b.full {
		n := copy(out, b.data[b.pos:])
		copy(out[n:], b.data[:b.pos])
	} else {
		copy(out, b.data[:b.pos])
	}
	return out
}

// Reset empties the buffer without releasing its storage.
func (b *SampleBuffer) Reset() {
	b.pos = 0
	b.full = false
}
