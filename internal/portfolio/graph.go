package portfolio

import "sort"

// Graph is the portfolio-wide dependency graph keyed by FeatureKey.
// Every feature has at most one outgoing edge (its dependency).
type Graph struct {
	nodes      map[FeatureKey]*Feature
	edges      map[FeatureKey]FeatureKey
	dependents map[FeatureKey][]FeatureKey
	order      []FeatureKey
}

// NewGraph indexes the features of all teams. The teams are not copied; the
// graph must not outlive a mutation of its input.
func NewGraph(teams []Team) *Graph {
	g := &Graph{
		nodes:      make(map[FeatureKey]*Feature),
		edges:      make(map[FeatureKey]FeatureKey),
		dependents: make(map[FeatureKey][]FeatureKey),
	}
	for ti := range teams {
		for fi := range teams[ti].Features {
			f := &teams[ti].Features[fi]
			key := FeatureKey{TeamID: teams[ti].ID, FeatureID: f.ID}
			g.nodes[key] = f
			g.order = append(g.order, key)
			if f.DependsOn != nil {
				g.edges[key] = *f.DependsOn
				g.dependents[*f.DependsOn] = append(g.dependents[*f.DependsOn], key)
			}
		}
	}
	return g
}

// Has reports whether a feature with the given key exists.
func (g *Graph) Has(key FeatureKey) bool {
	_, ok := g.nodes[key]
	return ok
}

// Feature returns the feature stored under key.
func (g *Graph) Feature(key FeatureKey) (*Feature, bool) {
	f, ok := g.nodes[key]
	return f, ok
}

// DependsOn returns the dependency target of key, if it declares one.
func (g *Graph) DependsOn(key FeatureKey) (FeatureKey, bool) {
	dep, ok := g.edges[key]
	return dep, ok
}

// Dependents returns the features that declare key as their dependency.
func (g *Graph) Dependents(key FeatureKey) []FeatureKey {
	return g.dependents[key]
}

// Downstream returns every feature whose dependency chain passes through
// key, nearest first. key itself is never included.
func (g *Graph) Downstream(key FeatureKey) []FeatureKey {
	seen := map[FeatureKey]bool{key: true}
	var out []FeatureKey
	queue := []FeatureKey{key}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, d := range g.dependents[next] {
			if seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
			queue = append(queue, d)
		}
	}
	return out
}

// ReachesFrom walks the dependency chain starting at start and reports whether
// it reaches target. Visited nodes are memoized so malformed (already cyclic)
// input terminates, and edges to unknown features are dead ends.
func (g *Graph) ReachesFrom(start, target FeatureKey) bool {
	visited := make(map[FeatureKey]bool)

	var dfs func(key FeatureKey) bool
	dfs = func(key FeatureKey) bool {
		if visited[key] {
			return false
		}
		visited[key] = true

		if _, ok := g.nodes[key]; !ok {
			return false
		}
		if key == target {
			return true
		}
		if next, ok := g.edges[key]; ok {
			return dfs(next)
		}
		return false
	}

	return dfs(start)
}

// HasCycle reports the first feature (in graph order) that sits on a dependency cycle.
func (g *Graph) HasCycle() (FeatureKey, bool) {
	for _, key := range g.order {
		dep, ok := g.edges[key]
		if !ok {
			continue
		}
		if g.ReachesFrom(dep, key) {
			return key, true
		}
	}
	return FeatureKey{}, false
}

// MissingTargets returns the features whose dependency points at a feature that does not exist.
func (g *Graph) MissingTargets() []FeatureKey {
	var missing []FeatureKey
	for _, key := range g.order {
		dep, ok := g.edges[key]
		if ok && !g.Has(dep) {
			missing = append(missing, key)
		}
	}
	sort.SliceStable(missing, func(i, j int) bool { return missing[i].String() < missing[j].String() })
	return missing
}

// WouldCreateCycle reports whether making candidate depend on
// (depTeamID, depFeatureID) would close a cycle in the dependency graph.
// The walk starts at the proposed target and follows each feature's own edge;
// it is true as soon as it reaches candidate. It never mutates teams.
func WouldCreateCycle(teams []Team, candidate Feature, depFeatureID, depTeamID string) bool {
	g := NewGraph(teams)
	target := FeatureKey{TeamID: candidate.TeamID, FeatureID: candidate.ID}
	return g.ReachesFrom(FeatureKey{TeamID: depTeamID, FeatureID: depFeatureID}, target)
}
