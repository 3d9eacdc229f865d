package simulation

import (
	"math/rand"

	"mcs-portfolio/internal/portfolio"
)

// TrialOutcome describes one finished trial. It is only built when an
// observer is registered.
type TrialOutcome struct {
	CompletedOn map[portfolio.FeatureKey]int // day offset from the start date
	PeakWIP     map[string]int               // per team ID, highest in-progress count on any day
}

// TrialObserver is called once per trial, from worker goroutines.
type TrialObserver func(trial int, outcome TrialOutcome)

// runTrial simulates every day from the start date through the due date
// inclusive. Teams advance in list order; a trial always stops at the due
// date, whatever is left open.
func runTrial(p *plan, rng *rand.Rand) *trialState {
	s := newTrialState(p)
	for day := 0; day < p.days; day++ {
		for ti := range p.teams {
			s.advanceTeam(p, ti, day, rng)
		}
	}
	return s
}

func (s *trialState) outcome(p *plan, teams []portfolio.Team) TrialOutcome {
	out := TrialOutcome{
		CompletedOn: make(map[portfolio.FeatureKey]int),
		PeakWIP:     make(map[string]int, len(teams)),
	}
	for fi, day := range s.completedOn {
		if day >= 0 {
			out.CompletedOn[p.features[fi].key] = day
		}
	}
	for ti, peak := range s.peakWIP {
		out.PeakWIP[teams[ti].ID] = peak
	}
	return out
}
