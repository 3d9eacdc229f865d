package simulation

import "math/rand"

type activeItem struct {
	feature   int
	remaining float64
}

// trialState is the private arena of a single trial. It is allocated when the
// trial starts and dropped when it ends; nothing in it is shared.
type trialState struct {
	inProgress  [][]activeItem // per team, ascending priority
	completed   []bool
	started     []bool
	blocked     []bool
	wasBlocked  []bool // blocked at any earlier evaluation in this trial
	completedOn []int  // simulated day index, -1 while open
	peakWIP     []int
}

func newTrialState(p *plan) *trialState {
	n := len(p.features)
	s := &trialState{
		inProgress:  make([][]activeItem, len(p.teams)),
		completed:   make([]bool, n),
		started:     make([]bool, n),
		blocked:     make([]bool, n),
		wasBlocked:  make([]bool, n),
		completedOn: make([]int, n),
		peakWIP:     make([]int, len(p.teams)),
	}
	for ti := range p.teams {
		s.inProgress[ti] = make([]activeItem, 0, p.teams[ti].wipLimit)
	}
	for i := range s.completedOn {
		s.completedOn[i] = -1
	}
	return s
}

// advanceTeam moves one team forward by exactly one simulated day:
// retire, re-evaluate blocking, admit, allocate.
func (s *trialState) advanceTeam(p *plan, team int, day int, rng *rand.Rand) {
	t := &p.teams[team]

	// 1. Retire items finished on an earlier day. Their completion is dated today.
	active := s.inProgress[team][:0]
	for _, item := range s.inProgress[team] {
		if item.remaining <= 0 {
			s.completed[item.feature] = true
			s.completedOn[item.feature] = day
			continue
		}
		active = append(active, item)
	}
	s.inProgress[team] = active

	// 2. Re-evaluate blocking for every feature of the team.
	for _, fi := range t.features {
		s.blocked[fi] = s.isBlocked(p, fi)
		if s.blocked[fi] {
			s.wasBlocked[fi] = true
		}
	}

	// 3. Admit eligible features up to the WIP limit.
	for len(s.inProgress[team]) < t.wipLimit {
		next := s.nextEligible(t)
		if next < 0 {
			break
		}
		s.started[next] = true
		s.insertActive(p, team, activeItem{feature: next, remaining: p.features[next].size})
	}
	if n := len(s.inProgress[team]); n > s.peakWIP[team] {
		s.peakWIP[team] = n
	}

	// 4. Spend today's throughput in priority order. Items reaching zero are
	// retired at the start of the next day.
	if len(s.inProgress[team]) == 0 {
		return
	}
	left := Sample(t.history, rng)
	for i := range s.inProgress[team] {
		if left <= 0 {
			break
		}
		item := &s.inProgress[team][i]
		work := min(item.remaining, left)
		item.remaining -= work
		left -= work
	}
}

func (s *trialState) isBlocked(p *plan, fi int) bool {
	switch dep := p.features[fi].dep; dep {
	case noDependency:
		return false
	case unresolvedDependency:
		return true
	default:
		return !s.completed[dep]
	}
}

// nextEligible picks the next feature to start. Features that were blocked
// earlier in the trial go first so work released by a finished dependency is
// not starved by backlog that was always ready; ties fall back to priority.
// TODO: confirm with product owners that previously blocked features should
// jump ahead of higher-priority ready work; pure priority order would change dates.
func (s *trialState) nextEligible(t *plannedTeam) int {
	firstReady := -1
	for _, fi := range t.features {
		if s.completed[fi] || s.started[fi] || s.blocked[fi] {
			continue
		}
		if s.wasBlocked[fi] {
			return fi
		}
		if firstReady < 0 {
			firstReady = fi
		}
	}
	return firstReady
}

func (s *trialState) insertActive(p *plan, team int, item activeItem) {
	list := append(s.inProgress[team], item)
	prio := p.features[item.feature].priority
	i := len(list) - 1
	for i > 0 && p.features[list[i-1].feature].priority > prio {
		list[i] = list[i-1]
		i--
	}
	list[i] = item
	s.inProgress[team] = list
}
