package stats

import (
	"fmt"
	"math"
)

// Wheeler's scaling constant for an Individuals chart.
const naturalLimitScale = 2.66

// shiftRun is the number of consecutive points on one side of the average
// that signals a shift in the process.
const shiftRun = 8

const (
	SignalOutlier = "outlier"
	SignalShift   = "shift"
)

// XmRResult is an Individuals and Moving Range (process behavior) chart of a
// daily throughput series.
type XmRResult struct {
	Average     float64   `json:"average"`
	AmR         float64   `json:"average_moving_range"`
	UNPL        float64   `json:"upper_natural_process_limit"`
	LNPL        float64   `json:"lower_natural_process_limit"`
	MovingRange []float64 `json:"moving_ranges,omitempty"`
	Signals     []Signal  `json:"signals,omitempty"`
}

// Signal is a detected special cause variation.
type Signal struct {
	Index       int    `json:"index"`
	Key         string `json:"key"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// CalculateXmR builds the chart with positional keys.
func CalculateXmR(values []float64) XmRResult {
	return CalculateXmRWithKeys(values, nil)
}

// CalculateXmRWithKeys builds the chart and labels each signal with keys[i].
func CalculateXmRWithKeys(values []float64, keys []string) XmRResult {
	if len(values) == 0 {
		return XmRResult{}
	}

	res := XmRResult{Average: CalculateMean(values)}
	if len(values) > 1 {
		res.MovingRange = make([]float64, len(values)-1)
		for i := 1; i < len(values); i++ {
			res.MovingRange[i-1] = math.Abs(values[i] - values[i-1])
		}
		res.AmR = CalculateMean(res.MovingRange)
	}
	res.UNPL = res.Average + naturalLimitScale*res.AmR
	// Throughput is never negative.
	res.LNPL = math.Max(0, res.Average-naturalLimitScale*res.AmR)

	label := func(i int) string {
		if i < len(keys) {
			return keys[i]
		}
		return fmt.Sprintf("#%d", i)
	}
	res.Signals = append(outliers(values, res, label), shifts(values, res.Average, label)...)
	return res
}

func outliers(values []float64, res XmRResult, label func(int) string) []Signal {
	var out []Signal
	for i, v := range values {
		switch {
		case v > res.UNPL:
			out = append(out, Signal{Index: i, Key: label(i), Type: SignalOutlier,
				Description: fmt.Sprintf("throughput %g above upper natural process limit %.2f", v, res.UNPL)})
		case v < res.LNPL:
			out = append(out, Signal{Index: i, Key: label(i), Type: SignalOutlier,
				Description: fmt.Sprintf("throughput %g below lower natural process limit %.2f", v, res.LNPL)})
		}
	}
	return out
}

// shifts reports the point completing each run of shiftRun values strictly on
// one side of the average.
func shifts(values []float64, avg float64, label func(int) string) []Signal {
	var out []Signal
	side, run := 0, 0
	for i, v := range values {
		s := 0
		if v > avg {
			s = 1
		} else if v < avg {
			s = -1
		}
		if s != 0 && s == side {
			run++
		} else {
			side, run = s, 1
		}
		if s != 0 && run == shiftRun {
			dir := "above"
			if s < 0 {
				dir = "below"
			}
			out = append(out, Signal{Index: i, Key: label(i), Type: SignalShift,
				Description: fmt.Sprintf("%d consecutive days %s the average", shiftRun, dir)})
		}
	}
	return out
}
