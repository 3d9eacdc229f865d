package stats

import (
	"fmt"
	"math"
)

// FatTailThreshold is the P98/P50 ratio above which a history is considered volatile.
const FatTailThreshold = 5.6

// ThroughputSummary describes a team's daily throughput history.
type ThroughputSummary struct {
	Days     int       `json:"days"`
	Mean     float64   `json:"mean"`
	Median   float64   `json:"median"`
	P85      float64   `json:"p85"`
	FatTail  float64   `json:"fat_tail_ratio"`
	Volatile bool      `json:"volatile"`
	XmR      XmRResult `json:"xmr"`
}

// SummarizeThroughput computes the descriptive statistics shown next to each
// team's forecast. An empty history yields a zero summary.
func SummarizeThroughput(history []float64) ThroughputSummary {
	if len(history) == 0 {
		return ThroughputSummary{}
	}

	keys := make([]string, len(history))
	for i := range history {
		keys[i] = fmt.Sprintf("day %d", i+1)
	}

	fatTail := CalculateFatTail(history)
	return ThroughputSummary{
		Days:     len(history),
		Mean:     round2(CalculateMean(history)),
		Median:   CalculateMedianContinuous(history),
		P85:      Percentile(history, 0.85),
		FatTail:  round2(fatTail),
		Volatile: fatTail >= FatTailThreshold,
		XmR:      CalculateXmRWithKeys(history, keys),
	}
}

// Stable reports whether the history shows no special-cause signals.
func (s ThroughputSummary) Stable() bool {
	return len(s.XmR.Signals) == 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
