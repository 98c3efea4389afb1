package lira

import (
	"fmt"
	"io"
	"sort"

	"github.com/kho/word"
)

// StateInfo is what the lira format stores per state.
type StateInfo struct {
	// Back-off state and weight; State is STATE_NIL when there is none.
	BackOff StateWeight
	// Upper bound of the log-probability of any word from this state,
	// including those reached by backing off.
	BestProb Weight
}

// FanOutCount says Count states have FanOut transitions each.
type FanOutCount struct {
	Count, FanOut int
}

// Automaton is a compacted n-gram automaton. States are numbered so
// that their fan-out is non-decreasing, and transitions are sorted by
// (origin, word). An Automaton is usually built with a Builder or read
// from a lira file.
type Automaton struct {
	vocab                    *Vocabulary
	order                    int
	maxBound                 Weight
	fanOuts                  []FanOutCount
	initial, final, zerogram StateId
	states                   []StateInfo
	transitions              []Transition
	// p's transitions are transitions[first[p]:first[p+1]].
	first []int
}

func (a *Automaton) Vocab() *Vocabulary { return a.vocab }

// Order returns the maximum n-gram order of the source model.
func (a *Automaton) Order() int { return a.order }

// MaxBound returns the largest BestProb.
func (a *Automaton) MaxBound() Weight { return a.maxBound }

// FanOuts returns the fan-out histogram, ascending by fan-out.
func (a *Automaton) FanOuts() []FanOutCount { return a.fanOuts }

func (a *Automaton) NumStates() int      { return len(a.states) }
func (a *Automaton) NumTransitions() int { return len(a.transitions) }

// Start returns the initial state, i.e. the state of context <s> (or
// zerogram for a unigram model).
func (a *Automaton) Start() StateId { return a.initial }

// FinalState returns the state reached by consuming </s>.
func (a *Automaton) FinalState() StateId { return a.final }

// Zerogram returns the state of the empty context.
func (a *Automaton) Zerogram() StateId { return a.zerogram }

// State returns the stored information of p.
func (a *Automaton) State(p StateId) StateInfo { return a.states[p] }

// BackOff returns the back-off state and weight of p. The back-off state
// is STATE_NIL when p has none.
func (a *Automaton) BackOff(p StateId) (StateId, Weight) {
	bo := a.states[p].BackOff
	return bo.State, bo.Weight
}

// Transitions returns the lexical transitions leaving p, sorted by
// word. The slice must not be modified.
func (a *Automaton) Transitions(p StateId) []Transition {
	return a.transitions[a.first[p]:a.first[p+1]]
}

func (a *Automaton) find(p StateId, x word.Id) *Transition {
	ts := a.Transitions(p)
	i := sort.Search(len(ts), func(i int) bool { return ts[i].Word >= x })
	if i < len(ts) && ts[i].Word == x {
		return &ts[i]
	}
	return nil
}

// NextI finds out the next state to go from p consuming x, backing off
// as needed. The returned weight is WEIGHT_LOG0 when x cannot be
// consumed even from the zerogram (an OOV), in which case q is the
// zerogram.
func (a *Automaton) NextI(p StateId, x word.Id) (q StateId, w Weight) {
	for {
		if t := a.find(p, x); t != nil {
			return t.Dest, w + t.Prob
		}
		bo := a.states[p].BackOff
		if bo.State == STATE_NIL {
			return a.zerogram, WEIGHT_LOG0
		}
		p, w = bo.State, w+bo.Weight
	}
}

// NextS is similar to NextI. Words outside the vocabulary are OOVs.
func (a *Automaton) NextS(p StateId, s string) (q StateId, w Weight) {
	x, ok := a.vocab.IdOf(s)
	if !ok {
		return a.zerogram, WEIGHT_LOG0
	}
	return a.NextI(p, x)
}

// Final returns the weight of consuming </s> from p. A sentence query
// should finish with this to score the *whole* sentence.
func (a *Automaton) Final(p StateId) Weight {
	_, w := a.NextI(p, a.vocab.EosId())
	return w
}

// Graphviz prints out the topology of the automaton that can be
// visualized with Graphviz. Mostly for debugging; could be quite slow.
func (a *Automaton) Graphviz(w io.Writer) {
	fmt.Fprintln(w, "digraph {")
	fmt.Fprintln(w, "  // lexical transitions")
	for _, t := range a.transitions {
		fmt.Fprintf(w, "  %d -> %d [label=%q]\n", t.Origin, t.Dest, fmt.Sprintf("%s : %g", a.vocab.StringOf(t.Word), t.Prob))
	}
	fmt.Fprintln(w, "  // back-off transitions")
	for p, s := range a.states {
		if s.BackOff.State != STATE_NIL {
			fmt.Fprintf(w, "  %d -> %d [label=%q,style=dashed]\n", p, s.BackOff.State, fmt.Sprintf("%g", s.BackOff.Weight))
		}
	}
	fmt.Fprintln(w, "}")
}
