package simulation

import "mcs-portfolio/internal/portfolio"

const (
	noDependency         = -1
	unresolvedDependency = -2 // target does not exist, never completes
)

type plannedFeature struct {
	key      portfolio.FeatureKey
	team     int
	size     float64
	priority int
	dep      int
}

type plannedTeam struct {
	name     string
	wipLimit int
	history  []float64
	features []int // indices into plan.features, ascending priority
}

// plan is the immutable, index-based view of the input that every trial reads.
type plan struct {
	teams    []plannedTeam
	features []plannedFeature
	days     int // simulated days, start and due date inclusive
}

func compilePlan(teams []portfolio.Team, days int) *plan {
	p := &plan{
		teams: make([]plannedTeam, len(teams)),
		days:  days,
	}

	index := make(map[portfolio.FeatureKey]int, portfolio.FeatureCount(teams))
	for ti, t := range teams {
		p.teams[ti] = plannedTeam{
			name:     t.Name,
			wipLimit: t.WIPLimit,
			history:  t.PastThroughput,
		}

		ordered := make([]portfolio.Feature, len(t.Features))
		copy(ordered, t.Features)
		portfolio.SortByPriority(ordered)

		for _, f := range ordered {
			key := portfolio.FeatureKey{TeamID: t.ID, FeatureID: f.ID}
			idx := len(p.features)
			index[key] = idx
			p.features = append(p.features, plannedFeature{
				key:      key,
				team:     ti,
				size:     f.Size,
				priority: f.Priority,
				dep:      noDependency,
			})
			p.teams[ti].features = append(p.teams[ti].features, idx)
		}
	}

	// Resolve edges once all features have an index.
	g := portfolio.NewGraph(teams)
	for i := range p.features {
		target, ok := g.DependsOn(p.features[i].key)
		if !ok {
			continue
		}
		if ti, found := index[target]; found {
			p.features[i].dep = ti
		} else {
			p.features[i].dep = unresolvedDependency
		}
	}

	return p
}
