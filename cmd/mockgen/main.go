package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"mcs-portfolio/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Distribution to use: uniform, weibull")
	out := flag.String("out", "./.cache/portfolio.csv", "Output file (.csv, .json, .yaml or .toml)")
	teams := flag.Int("teams", 3, "Number of teams to generate")
	days := flag.Int("days", 10, "Days of throughput history per team")
	seed := flag.Int64("seed", 0, "Random seed (0 uses the clock)")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	cfg := engine.GeneratorConfig{
		Scenario:     *scenario,
		Distribution: *distribution,
		Teams:        *teams,
		HistoryDays:  *days,
		Seed:         *seed,
		Now:          time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Distribution: %s, Teams: %d, Seed: %d) to %s...\n", cfg.Scenario, cfg.Distribution, cfg.Teams, cfg.Seed, *out)

	p := engine.Generate(cfg)
	if err := engine.Save(*out, p); err != nil {
		fmt.Printf("Failed to save mock portfolio: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}
