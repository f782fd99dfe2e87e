package incremental

// Counters is one reading's cumulative counter set. A nil counter means
// the source row carried no value for that meter.
type Counters struct {
	Total      *int64
	A3         *int64
	Black      *int64
	Large      *int64
	Colour     *int64
	ExtraLarge *int64
}

// Deltas is the per-period usage derived from two temporally adjacent
// readings. A nil delta means unknown, not zero: either there is no
// preceding reading, or the counter moved backwards (a hardware reset
// or replacement), which must never surface as a negative or
// wrapped-positive value.
type Deltas struct {
	Total      *int64
	A3         *int64
	Black      *int64
	Large      *int64
	Colour     *int64
	ExtraLarge *int64
}

// Compute converts a machine's cumulative counters into per-period
// deltas, one output per input in the same order. Input must already be
// sorted by reading timestamp ascending. The first element always gets
// all-nil deltas. Counters reset independently: one counter going
// backwards does not invalidate its siblings in the same pair.
func Compute(readings []Counters) []Deltas {
	deltas := make([]Deltas, len(readings))

	for i := 1; i < len(readings); i++ {
		prev := readings[i-1]
		curr := readings[i]

		deltas[i] = Deltas{
			Total:      safeIncrement(curr.Total, prev.Total),
			A3:         safeIncrement(curr.A3, prev.A3),
			Black:      safeIncrement(curr.Black, prev.Black),
			Large:      safeIncrement(curr.Large, prev.Large),
			Colour:     safeIncrement(curr.Colour, prev.Colour),
			ExtraLarge: safeIncrement(curr.ExtraLarge, prev.ExtraLarge),
		}
	}

	return deltas
}

// safeIncrement returns curr-prev when both values are known and the
// counter did not move backwards; otherwise nil.
func safeIncrement(curr, prev *int64) *int64 {
	if curr == nil || prev == nil {
		return nil
	}
	diff := *curr - *prev
	if diff < 0 {
		return nil
	}
	return &diff
}
