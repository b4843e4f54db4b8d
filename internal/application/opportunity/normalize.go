package opportunity

// MinMax rescales values to [0, 1] as (v-min)/(max-min).  When every value is
// equal the result is all zeros and degenerate is true.
func MinMax(values []float64) (normalized []float64, degenerate bool) {
	normalized = make([]float64, len(values))
	if len(values) == 0 {
		return normalized, true
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return normalized, true
	}
	span := hi - lo
	for i, v := range values {
		normalized[i] = (v - lo) / span
	}
	return normalized, false
}
