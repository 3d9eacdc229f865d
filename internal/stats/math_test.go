package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMedianContinuous(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"Empty", []float64{}, 0},
		{"SingleItem", []float64{5.5}, 5.5},
		{"OddCount", []float64{1.1, 3.3, 2.2, 4.4, 5.5}, 3.3},
		{"EvenCount", []float64{1.1, 2.2, 3.3, 4.4}, 2.75},
		{"Unsorted", []float64{10.5, 2.5, 8.5, 4.5, 6.5}, 6.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CalculateMedianContinuous(tt.values), 1e-9)
		})
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}
	assert.Equal(t, 9.0, Percentile(values, 0.85))
	assert.Equal(t, 6.0, Percentile(values, 0.50))
	assert.Equal(t, 10.0, Percentile(values, 1.0))
	assert.Equal(t, 0.0, Percentile(nil, 0.85))
	assert.Equal(t, 10.0, values[0], "input must not be sorted in place")
}

func TestCalculateFatTail(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"Empty", nil, 0},
		{"Stable", []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, 1},
		{"AllZero", []float64{0, 0, 0}, 1},
		{"Sparse", []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 4}, 10},
		{"Volatile", []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 8}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateFatTail(tt.values), 1e-9)
		})
	}
}

func TestSummarizeThroughput(t *testing.T) {
	s := SummarizeThroughput([]float64{0, 1, 2, 3, 1, 2, 1, 0, 2, 3})

	assert.Equal(t, 10, s.Days)
	assert.InDelta(t, 1.5, s.Mean, 1e-9)
	assert.InDelta(t, 1.5, s.Median, 1e-9)
	assert.Equal(t, 3.0, s.P85)
	assert.InDelta(t, 1.5, s.FatTail, 1e-9)
	assert.False(t, s.Volatile)
	assert.True(t, s.Stable())

	assert.Equal(t, ThroughputSummary{}, SummarizeThroughput(nil))
}
