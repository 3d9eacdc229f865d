package portfolio

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidPortfolio  = errors.New("invalid portfolio")
	ErrCyclicDependency  = errors.New("dependency would create a cycle")
	ErrUnknownDependency = errors.New("dependency target does not exist")
	ErrFeatureNotFound   = errors.New("feature not found")
	ErrTeamNotFound      = errors.New("team not found")
)

// Validate checks the structural invariants the simulation relies on and
// reports the first violation with the offending team or feature name.
// Dependency edges are not checked here: a dangling or cyclic edge only
// stalls the affected features during simulation.
func Validate(teams []Team) error {
	seenTeams := make(map[string]bool, len(teams))
	for _, t := range teams {
		if t.ID == "" {
			return fmt.Errorf("%w: team %q has no id", ErrInvalidPortfolio, t.Name)
		}
		if seenTeams[t.ID] {
			return fmt.Errorf("%w: duplicate team id %q (team %s)", ErrInvalidPortfolio, t.ID, t.Name)
		}
		seenTeams[t.ID] = true

		if t.WIPLimit < 1 {
			return fmt.Errorf("%w: WIP limit for team %s must be at least 1, got %d", ErrInvalidPortfolio, t.Name, t.WIPLimit)
		}
		for _, v := range t.PastThroughput {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: invalid past throughput %v for team %s", ErrInvalidPortfolio, v, t.Name)
			}
		}

		seenFeatures := make(map[string]bool, len(t.Features))
		for _, f := range t.Features {
			if f.ID == "" {
				return fmt.Errorf("%w: feature %q of team %s has no id", ErrInvalidPortfolio, f.Name, t.Name)
			}
			if seenFeatures[f.ID] {
				return fmt.Errorf("%w: duplicate feature id %q in team %s", ErrInvalidPortfolio, f.ID, t.Name)
			}
			seenFeatures[f.ID] = true

			if f.TeamID != "" && f.TeamID != t.ID {
				return fmt.Errorf("%w: feature %s is listed under team %s but owned by %q", ErrInvalidPortfolio, f.Name, t.Name, f.TeamID)
			}
			if !(f.Size > 0) || math.IsInf(f.Size, 0) {
				return fmt.Errorf("%w: invalid size %v for feature %s", ErrInvalidPortfolio, f.Size, f.Name)
			}
		}
	}
	return nil
}

// Issue is a non-fatal observation about the dependency graph.
type Issue struct {
	Feature FeatureKey   `json:"feature"`
	Kind    string       `json:"kind"` // "cycle" or "missing_target"
	Message string       `json:"message"`
	Stalled []FeatureKey `json:"stalled,omitempty"` // downstream features that can never start either
}

// Inspect reports dependency problems that the edit operations would have rejected.
func Inspect(teams []Team) []Issue {
	g := NewGraph(teams)
	var issues []Issue
	for _, key := range g.MissingTargets() {
		dep, _ := g.DependsOn(key)
		issues = append(issues, Issue{
			Feature: key,
			Kind:    "missing_target",
			Message: fmt.Sprintf("feature %s depends on %s which does not exist; it will never start", key, dep),
			Stalled: g.Downstream(key),
		})
	}
	if key, ok := g.HasCycle(); ok {
		issues = append(issues, Issue{
			Feature: key,
			Kind:    "cycle",
			Message: fmt.Sprintf("feature %s is part of a dependency cycle; every feature on the cycle will stall", key),
			Stalled: g.Downstream(key),
		})
	}
	for i := range issues {
		if n := len(issues[i].Stalled); n > 0 {
			issues[i].Message += fmt.Sprintf(" (%d downstream feature(s) stall with it)", n)
		}
	}
	return issues
}
