package portfolio

import (
	"fmt"
	"slices"
	"sort"
)

// Renumber assigns dense priorities 1..N in the current slice order.
func Renumber(features []Feature) {
	for i := range features {
		features[i].Priority = i + 1
	}
}

// SortByPriority orders features by their declared priority, keeping the
// existing order for ties.
func SortByPriority(features []Feature) {
	sort.SliceStable(features, func(i, j int) bool {
		return features[i].Priority < features[j].Priority
	})
}

// AddFeature appends f to the team's backlog at the lowest priority.
func AddFeature(teams []Team, teamID string, f Feature) ([]Team, error) {
	out := Clone(teams)
	ti := FindTeam(out, teamID)
	if ti < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}
	for _, existing := range out[ti].Features {
		if existing.ID == f.ID {
			return nil, fmt.Errorf("%w: duplicate feature id %q in team %s", ErrInvalidPortfolio, f.ID, out[ti].Name)
		}
	}
	f.TeamID = teamID
	f.IsBlocked = f.DependsOn != nil
	f.Forecast = nil
	out[ti].Features = append(out[ti].Features, f)
	Renumber(out[ti].Features)
	return out, nil
}

// UpdateFeature replaces the feature with the same ID. A changed priority
// moves the feature to that place, clamped to the backlog; the features in
// between shift by one. A changed dependency must point at an existing
// feature and keep the graph acyclic. The stored forecast is dropped.
func UpdateFeature(teams []Team, teamID string, f Feature) ([]Team, error) {
	out := Clone(teams)
	ti := FindTeam(out, teamID)
	if ti < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}
	i := slices.IndexFunc(out[ti].Features, func(existing Feature) bool { return existing.ID == f.ID })
	if i < 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrFeatureNotFound, teamID, f.ID)
	}
	f.TeamID = teamID
	if f.DependsOn != nil && !sameDependency(out[ti].Features[i].DependsOn, f.DependsOn) {
		if !NewGraph(teams).Has(*f.DependsOn) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDependency, *f.DependsOn)
		}
	}
	if f.DependsOn != nil && WouldCreateCycle(teams, f, f.DependsOn.FeatureID, f.DependsOn.TeamID) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrCyclicDependency, f.Key(), *f.DependsOn)
	}

	to := min(max(f.Priority, 1), len(out[ti].Features))
	movePriority(out[ti].Features, f.ID, out[ti].Features[i].Priority, to)
	f.Priority = to
	f.IsBlocked = f.DependsOn != nil
	f.Forecast = nil
	out[ti].Features[i] = f
	SortByPriority(out[ti].Features)
	Renumber(out[ti].Features)
	return out, nil
}

func sameDependency(a, b *FeatureKey) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// movePriority shifts the features between from and to by one place so the
// moved feature can take priority to without a tie.
func movePriority(features []Feature, movedID string, from, to int) {
	for i := range features {
		f := &features[i]
		if f.ID == movedID {
			continue
		}
		switch {
		case to < from && f.Priority >= to && f.Priority < from:
			f.Priority++
		case to > from && f.Priority > from && f.Priority <= to:
			f.Priority--
		}
	}
}

// RemoveFeature deletes the feature and closes the priority gap. Dependencies
// of other features on the removed one are left in place and will stall.
func RemoveFeature(teams []Team, teamID, featureID string) ([]Team, error) {
	out := Clone(teams)
	ti := FindTeam(out, teamID)
	if ti < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}
	features := out[ti].Features[:0]
	removed := false
	for _, f := range out[ti].Features {
		if f.ID == featureID {
			removed = true
			continue
		}
		features = append(features, f)
	}
	if !removed {
		return nil, fmt.Errorf("%w: %s/%s", ErrFeatureNotFound, teamID, featureID)
	}
	out[ti].Features = features
	Renumber(out[ti].Features)
	return out, nil
}

// SetDependency makes (teamID, featureID) depend on dep after checking that
// the target exists and that the edge keeps the graph acyclic. A nil dep
// clears the dependency. IsBlocked follows the edge and the stored forecast
// is dropped.
func SetDependency(teams []Team, teamID, featureID string, dep *FeatureKey) ([]Team, error) {
	g := NewGraph(teams)
	key := FeatureKey{TeamID: teamID, FeatureID: featureID}
	current, ok := g.Feature(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFeatureNotFound, key)
	}

	if dep != nil {
		if !g.Has(*dep) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDependency, *dep)
		}
		if WouldCreateCycle(teams, *current, dep.FeatureID, dep.TeamID) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrCyclicDependency, key, *dep)
		}
	}

	out := Clone(teams)
	ti := FindTeam(out, teamID)
	for i := range out[ti].Features {
		if out[ti].Features[i].ID != featureID {
			continue
		}
		f := &out[ti].Features[i]
		f.DependsOn = nil
		if dep != nil {
			d := *dep
			f.DependsOn = &d
		}
		f.IsBlocked = f.DependsOn != nil
		f.Forecast = nil
	}
	return out, nil
}
