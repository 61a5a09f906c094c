package domain

// Probability is a price expressed on the canonical 0..1 scale, independent of
// venue-native units (Kalshi integer cents vs. Polymarket decimal dollars).
type Probability float64

// ProbabilityFromCents converts a Kalshi price in integer cents (0-100) to a
// canonical probability.
func ProbabilityFromCents(cents int64) Probability {
	return Probability(float64(cents) / 100.0)
}

// Cents converts a probability back to integer cents, rounding to the nearest
// cent. Round-tripping a valid cent price recovers it exactly.
func (p Probability) Cents() int64 {
	return int64(float64(p)*100.0 + 0.5)
}

// Valid reports whether p is inside the representable [0,1] range.
func (p Probability) Valid() bool {
	return p >= 0 && p <= 1
}
