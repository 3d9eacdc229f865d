// Package engine generates synthetic portfolios for demos and tests.
package engine

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"mcs-portfolio/internal/csvio"
	"mcs-portfolio/internal/portfolio"
)

type GeneratorConfig struct {
	Scenario     string // "mild", "chaos" or "drift"
	Distribution string // "uniform" or "weibull"
	Teams        int
	HistoryDays  int
	Seed         int64
	Now          time.Time
}

var teamNames = []string{"Platform", "Payments", "Mobile", "Search", "Identity", "Data", "Growth", "Billing"}

// Generate builds a portfolio of cfg.Teams teams. Each team may depend on
// features of earlier teams only, so the dependency graph is acyclic.
func Generate(cfg GeneratorConfig) *portfolio.Portfolio {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.Teams <= 0 {
		cfg.Teams = 3
	}
	cfg.Teams = min(cfg.Teams, len(teamNames))
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 10
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	teams := make([]portfolio.Team, 0, cfg.Teams)
	for ti := 0; ti < cfg.Teams; ti++ {
		name := teamNames[ti]
		t := portfolio.Team{
			ID:             csvio.TeamID(name),
			Name:           name,
			WIPLimit:       2 + rng.Intn(3),
			PastThroughput: history(cfg, rng),
		}

		features := 3 + rng.Intn(5)
		for fi := 0; fi < features; fi++ {
			f := portfolio.Feature{
				ID:       fmt.Sprintf("%s-%d", name[:3], fi+1),
				Name:     fmt.Sprintf("%s feature %d", name, fi+1),
				Size:     float64(5 + rng.Intn(20)),
				Priority: fi + 1,
				TeamID:   t.ID,
			}
			// Roughly one feature in four waits on an earlier team.
			if ti > 0 && rng.Float64() < 0.25 {
				upstream := teams[rng.Intn(ti)]
				target := upstream.Features[rng.Intn(len(upstream.Features))]
				f.DependsOn = &portfolio.FeatureKey{TeamID: upstream.ID, FeatureID: target.ID}
				f.IsBlocked = true
			}
			t.Features = append(t.Features, f)
		}
		teams = append(teams, t)
	}

	due := cfg.Now.AddDate(0, 3, 0).Format("2006-01-02")
	return &portfolio.Portfolio{DueDate: due, Teams: teams}
}

// history samples daily throughput in the 0-3 range. Chaos adds occasional
// bursts and drift lets the rate decay over the window.
func history(cfg GeneratorConfig, rng *rand.Rand) []float64 {
	out := make([]float64, cfg.HistoryDays)
	for d := range out {
		var v float64
		if cfg.Distribution == "weibull" {
			k, lambda := 2.5, 1.8
			if cfg.Scenario == "chaos" {
				k = 0.8
			}
			v = weibullSample(rng, k, lambda)
		} else {
			v = float64(rng.Intn(4))
		}

		switch cfg.Scenario {
		case "chaos":
			if rng.Float64() < 0.1 {
				v += float64(3 + rng.Intn(5))
			}
		case "drift":
			ratio := float64(d) / float64(cfg.HistoryDays)
			v *= 1.0 - 0.6*ratio
		}
		out[d] = math.Round(v)
	}
	return out
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

// Save writes p to path in the format its extension names, creating the
// parent directory.
func Save(path string, p *portfolio.Portfolio) error {
	format, err := portfolio.FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return csvio.Encode(f, format, p)
}
