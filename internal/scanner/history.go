package scanner

// Outcome is the last recorded result of fetching with a given range size
type Outcome uint8

const (
	OutcomeUnknown Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RangeSizeHistory remembers, per range size, the outcome of the most recent
// attempt with that size. It is a hint for growing the range, never a cache
// of results.
type RangeSizeHistory struct {
	outcomes map[uint64]Outcome
}

// NewRangeSizeHistory returns an empty history
func NewRangeSizeHistory() *RangeSizeHistory {
	return &RangeSizeHistory{outcomes: make(map[uint64]Outcome)}
}

// Record stores the outcome of an attempt with the given size
func (h *RangeSizeHistory) Record(size uint64, outcome Outcome) {
	h.outcomes[size] = outcome
}

// Outcome returns the last recorded outcome for size
func (h *RangeSizeHistory) Outcome(size uint64) Outcome {
	return h.outcomes[size]
}

// CanGrowTo reports whether the scanner may switch to size: either the size
// was never tried, or its last attempt succeeded.
func (h *RangeSizeHistory) CanGrowTo(size uint64) bool {
	return h.outcomes[size] != OutcomeFailed
}
