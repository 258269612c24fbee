package ast

// TicksPerQuarter is the internal exact-arithmetic resolution: one quarter
// note is 32 ticks, which divides evenly through a dotted 32nd note (4
// ticks, halved twice by two augmentation dots) without any fractional
// remainder. Measure partitioning (parser) and duration encoding
// (musicxml) both work in ticks so that beat-boundary comparisons are
// exact integer equality rather than floating-point-with-epsilon.
const TicksPerQuarter = 32

var baseTicks = map[DurationBase]int{
	DurationWhole:        4 * TicksPerQuarter,
	DurationHalf:         2 * TicksPerQuarter,
	DurationQuarter:      1 * TicksPerQuarter,
	DurationEighth:       TicksPerQuarter / 2,
	DurationSixteenth:    TicksPerQuarter / 4,
	DurationThirtySecond: TicksPerQuarter / 8,
}

// Ticks returns a duration's length in ticks, including its augmentation
// dots: base + base/2 + base/4 + ... for `dots` terms, each term truncated
// by integer division.
func (d Duration) Ticks() int {
	base, ok := baseTicks[d.Base]
	if !ok {
		base = baseTicks[DurationQuarter]
	}
	total := base
	extension := base
	for i := 0; i < d.Dots; i++ {
		extension /= 2
		total += extension
	}
	return total
}

// MeasureCapacityTicks returns how many ticks fit in one measure of the
// given time signature: beats * (TicksPerQuarter*4/beatType).
func (ts TimeSignature) MeasureCapacityTicks() int {
	beatType := ts.BeatType
	if beatType == 0 {
		beatType = 4
	}
	beats := ts.Beats
	if beats == 0 {
		beats = 4
	}
	return beats * (TicksPerQuarter * 4 / beatType)
}
