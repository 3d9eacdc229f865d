package simulation

import (
	"slices"
	"time"

	"mcs-portfolio/internal/portfolio"
)

const dateLayout = "2006-01-02"

// ExpectedPercentile is the conservative confidence level reported as the expected date.
const ExpectedPercentile = 0.85

// accumulator collects, per feature index, the day offsets on which the
// feature completed, one entry per trial in which it did.
type accumulator [][]int

func newAccumulator(features int) accumulator {
	return make(accumulator, features)
}

func (a accumulator) record(s *trialState) {
	for fi, day := range s.completedOn {
		if day >= 0 {
			a[fi] = append(a[fi], day)
		}
	}
}

// merge appends other's entries. Entries are never overwritten.
func (a accumulator) merge(other accumulator) {
	for fi := range other {
		a[fi] = append(a[fi], other[fi]...)
	}
}

// PercentileIndex returns the zero-based index floor(p * count) into a sorted
// sample of size count.
func PercentileIndex(count int, p float64) int {
	idx := int(float64(count) * p)
	if idx >= count {
		idx = count - 1
	}
	return idx
}

// Summarize turns the completion days of one feature into its forecast.
// days holds one offset from start per trial in which the feature completed.
func Summarize(days []int, totalTrials int, start time.Time) portfolio.Forecast {
	fc := portfolio.Forecast{
		Completions:  len(days),
		ExpectedDate: portfolio.NotCompleted,
		P50Date:      portfolio.NotCompleted,
		P95Date:      portfolio.NotCompleted,
	}
	if totalTrials > 0 {
		fc.Probability = 100 * float64(len(days)) / float64(totalTrials)
	}
	if len(days) == 0 {
		return fc
	}

	sorted := make([]int, len(days))
	copy(sorted, days)
	slices.Sort(sorted)

	at := func(p float64) string {
		return start.AddDate(0, 0, sorted[PercentileIndex(len(sorted), p)]).Format(dateLayout)
	}
	fc.ExpectedDate = at(ExpectedPercentile)
	fc.P50Date = at(0.50)
	fc.P95Date = at(0.95)
	return fc
}
