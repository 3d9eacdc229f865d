package stats

import "slices"

// CalculateMedianContinuous finds the median value in a slice of floats.
func CalculateMedianContinuous(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	temp := sortedCopy(values)
	n := len(temp)
	if n%2 == 1 {
		return temp[n/2]
	}
	return (temp[n/2-1] + temp[n/2]) / 2.0
}

// CalculateMean returns the arithmetic mean, or 0 for an empty slice.
func CalculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Percentile returns the value at index floor(p * n) of the sorted values,
// the same rule the simulation uses for completion dates.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	temp := sortedCopy(values)
	idx := int(float64(len(temp)) * p)
	if idx >= len(temp) {
		idx = len(temp) - 1
	}
	return temp[idx]
}

// CalculateFatTail returns the P98/P50 ratio of a throughput series.
// A ratio above FatTailThreshold marks a volatile, hard to forecast process.
func CalculateFatTail(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	p50 := Percentile(values, 0.50)
	p98 := Percentile(values, 0.98)

	if p50 == 0 {
		if p98 > 0 {
			return 10.0 // Symbolic high value for sparse processes
		}
		return 1.0
	}
	return p98 / p50
}

func sortedCopy(values []float64) []float64 {
	temp := make([]float64, len(values))
	copy(temp, values)
	slices.Sort(temp)
	return temp
}
