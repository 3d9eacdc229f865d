package simulation

import "math/rand"

// FallbackThroughput is used for teams without any throughput history.
const FallbackThroughput = 1.0

// Sample draws one daily throughput value uniformly, with replacement, from
// history. Every call is independent: autocorrelation in the real history is
// deliberately ignored.
func Sample(history []float64, rng *rand.Rand) float64 {
	if len(history) == 0 {
		return FallbackThroughput
	}
	return history[rng.Intn(len(history))]
}
