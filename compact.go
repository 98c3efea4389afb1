package lira

// Compaction of the draft graph: bound propagation, bypassing of states
// without outgoing transitions, renumbering by fan-out and sorting.

import (
	"sort"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// useless tells whether s has no outgoing transition and may be
// bypassed. Zerogram and final are always kept.
func (g *graph) useless(s StateId) bool {
	return s != _STATE_ZEROGRAM && s != _STATE_FINAL && g.states[s].FanOut == 0
}

// linkOrphans gives every useless state without a back-off (a context
// that was never an n-gram itself) a free back-off to zerogram, so that
// bypassing it always ends somewhere.
func (g *graph) linkOrphans() int {
	n := 0
	for i := range g.states {
		s := StateId(i)
		if g.useless(s) && g.states[s].BackOff.State == STATE_NIL {
			g.states[s].BackOff = StateWeight{_STATE_ZEROGRAM, LOG_ONE}
			n++
		}
	}
	return n
}

// bypass follows back-offs from q until a useful state, accumulating
// their weights onto w.
func (g *graph) bypass(q StateId, w Weight) (StateId, Weight) {
	for g.useless(q) {
		bo := g.states[q].BackOff
		q, w = bo.State, w+bo.Weight
	}
	return q, w
}

// bypassDestinations retargets transitions leading to useless states
// and drops the transitions of useless origins.
func (g *graph) bypassDestinations() {
	n := 0
	for _, t := range g.transitions {
		if g.useless(t.Origin) {
			continue
		}
		t.Dest, t.Prob = g.bypass(t.Dest, t.Prob)
		g.transitions[n] = t
		n++
	}
	if dropped := len(g.transitions) - n; dropped > 0 {
		glog.Infof("dropped %d transitions from states without fan-out", dropped)
	}
	g.transitions = g.transitions[:n]
}

// propagateBounds raises each useful state's BestProb to the best
// probability reachable through its back-off chain and returns the
// largest bound overall.
func (g *graph) propagateBounds() Weight {
	maxBound := g.logZero
	for i := len(g.states) - 1; i >= 0; i-- {
		s := StateId(i)
		if s == _STATE_FINAL || g.useless(s) {
			continue
		}
		best, acc := g.states[s].BestProb, LOG_ONE
		for q := s; g.states[q].BackOff.State != STATE_NIL; {
			bo := g.states[q].BackOff
			acc += bo.Weight
			q = bo.State
			best = maxWeight(best, acc+g.states[q].BestProb)
		}
		g.states[s].BestProb = best
		maxBound = maxWeight(maxBound, best)
	}
	return maxBound
}

// bypassBackOffs makes every useful state back off to a useful state
// and returns how many useful states there are for each fan-out,
// ascending by fan-out.
func (g *graph) bypassBackOffs() []FanOutCount {
	hist := map[int32]int{}
	for i := range g.states {
		s := StateId(i)
		if g.useless(s) {
			continue
		}
		st := &g.states[s]
		if st.BackOff.State != STATE_NIL {
			st.BackOff.State, st.BackOff.Weight = g.bypass(st.BackOff.State, st.BackOff.Weight)
		}
		hist[st.FanOut]++
	}
	fanOuts := make([]FanOutCount, 0, len(hist))
	for f, n := range hist {
		fanOuts = append(fanOuts, FanOutCount{n, int(f)})
	}
	sort.Slice(fanOuts, func(i, j int) bool { return fanOuts[i].FanOut < fanOuts[j].FanOut })
	return fanOuts
}

// renumber assigns codes grouped by ascending fan-out, keeping draft
// order within a group, and returns the number of useful states.
func (g *graph) renumber(fanOuts []FanOutCount) int {
	next := make(map[int32]StateId, len(fanOuts))
	total := 0
	for _, f := range fanOuts {
		next[int32(f.FanOut)] = StateId(total)
		total += f.Count
	}
	for i := range g.states {
		s := StateId(i)
		if g.useless(s) {
			g.states[s].Cod = STATE_NIL
			continue
		}
		st := &g.states[s]
		st.Cod = next[st.FanOut]
		next[st.FanOut]++
	}
	return total
}

// sortTransitions sorts ts by (origin, word); origins must be codes in
// [0, numStates). It returns the sorted transitions and, for each
// origin p, the offset of its first transition (first[numStates] ==
// len(ts)). The per-origin sorts run on up to numThreads goroutines.
func sortTransitions(ts []Transition, numStates, numThreads int) ([]Transition, []int) {
	first := make([]int, numStates+1)
	for _, t := range ts {
		first[t.Origin+1]++
	}
	for p := 0; p < numStates; p++ {
		first[p+1] += first[p]
	}
	pos := make([]int, numStates)
	copy(pos, first)
	sorted := make([]Transition, len(ts))
	for _, t := range ts {
		sorted[pos[t.Origin]] = t
		pos[t.Origin]++
	}

	if numThreads < 1 {
		numThreads = 1
	}
	parts := 4 * numThreads
	if parts > numStates {
		parts = numStates
	}
	var eg errgroup.Group
	eg.SetLimit(numThreads)
	for i := 0; i < parts; i++ {
		lo, hi := numStates*i/parts, numStates*(i+1)/parts
		eg.Go(func() error {
			for p := lo; p < hi; p++ {
				sort.Stable(byWord(sorted[first[p]:first[p+1]]))
			}
			return nil
		})
	}
	eg.Wait()
	return sorted, first
}

// compact turns the draft graph into the final Automaton. g is
// modified in place and must not be used afterwards.
func compact(g *graph, initial StateId, vocab *Vocabulary, order, numThreads int) *Automaton {
	numStates, numTransitions := len(g.states), len(g.transitions)
	if n := g.linkOrphans(); n > 0 {
		glog.Warningf("%d contexts without their own n-gram back off to the zerogram", n)
	}
	maxBound := g.propagateBounds()
	fanOuts := g.bypassBackOffs()
	g.bypassDestinations()
	numUseful := g.renumber(fanOuts)
	glog.Infof("compacted %d states into %d, %d transitions into %d", numStates, numUseful, numTransitions, len(g.transitions))

	if g.useless(initial) {
		q, _ := g.bypass(initial, LOG_ONE)
		glog.Warningf("initial state %d has no transition; starting from state %d instead", initial, q)
		initial = q
	}

	states := make([]StateInfo, numUseful)
	for i := range g.states {
		st := &g.states[i]
		if st.Cod == STATE_NIL {
			continue
		}
		bo := st.BackOff
		if bo.State != STATE_NIL {
			bo.State = g.states[bo.State].Cod
		}
		states[st.Cod] = StateInfo{bo, st.BestProb}
	}
	for i := range g.transitions {
		t := &g.transitions[i]
		t.Origin, t.Dest = g.states[t.Origin].Cod, g.states[t.Dest].Cod
	}
	transitions, first := sortTransitions(g.transitions, numUseful, numThreads)
	a := &Automaton{
		vocab:       vocab,
		order:       order,
		maxBound:    maxBound,
		fanOuts:     fanOuts,
		initial:     g.states[initial].Cod,
		final:       g.states[_STATE_FINAL].Cod,
		zerogram:    g.states[_STATE_ZEROGRAM].Cod,
		states:      states,
		transitions: transitions,
		first:       first,
	}
	g.states, g.transitions = nil, nil
	return a
}
