package lira

import (
	"fmt"
	"io"

	"github.com/golang/glog"
	"github.com/kho/word"
)

// state is a draft state. BackOff.State is STATE_NIL until a back-off
// is found for it.
type state struct {
	FanOut   int32
	BackOff  StateWeight
	BestProb Weight
	Cod      StateId // Assigned by compaction; STATE_NIL when bypassed.
}

// graph is the draft automaton. Its storage is allocated once with the
// upper bounds given to newGraph and never grows past them.
type graph struct {
	states      []state
	transitions []Transition
	logZero     Weight
}

func newGraph(maxStates, maxTransitions int, logZero Weight) *graph {
	return &graph{
		states:      make([]state, 0, maxStates),
		transitions: make([]Transition, 0, maxTransitions),
		logZero:     logZero,
	}
}

func (g *graph) newState() (StateId, error) {
	if len(g.states) == cap(g.states) {
		return STATE_NIL, capacityError("more than %d states", cap(g.states))
	}
	s := StateId(len(g.states))
	g.states = append(g.states, state{
		BackOff:  StateWeight{STATE_NIL, g.logZero},
		BestProb: g.logZero,
		Cod:      STATE_NIL,
	})
	return s, nil
}

func (g *graph) addTransition(t Transition) error {
	if len(g.transitions) == cap(g.transitions) {
		return capacityError("more than %d transitions", cap(g.transitions))
	}
	g.transitions = append(g.transitions, t)
	return nil
}

func (g *graph) NumStates() int      { return len(g.states) }
func (g *graph) NumTransitions() int { return len(g.transitions) }

// State returns the state with id s; it panics when s is out of range.
func (g *graph) State(s StateId) *state {
	if int(s) >= len(g.states) {
		panic(fmt.Sprintf("state %d out of range [0, %d)", s, len(g.states)))
	}
	return &g.states[s]
}

// Builder builds the draft automaton from n-grams. Must be constructed
// using NewBuilder(). N-grams have to be added order by order, lowest
// first.
type Builder struct {
	vocab     *Vocabulary
	order     int
	logZero   Weight
	g         *graph
	contexts  *contextStore
	initial   StateId
	lastOrder int
}

// NewBuilder constructs a new Builder for an ARPA model whose header
// declared counts[k-1] n-grams of order k. The draft storage is sized
// from counts.
func NewBuilder(vocab *Vocabulary, counts []int, logZero Weight) *Builder {
	if len(counts) == 0 {
		panic("LM order should be positive")
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	b := &Builder{
		vocab:    vocab,
		order:    len(counts),
		logZero:  logZero,
		g:        newGraph(total+3, total, logZero),
		contexts: newContextStore(total + total/4),
	}
	// Zerogram and final states, which never go through the store.
	b.g.newState()
	b.g.newState()
	b.initial = _STATE_ZEROGRAM
	if b.order > 1 {
		// Cannot fail: the capacity is at least 3.
		b.initial, _ = b.contextState([]word.Id{vocab.BosId()})
	}
	return b
}

// Order returns the maximum order.
func (b *Builder) Order() int { return b.order }

// Initial returns the draft id of the initial state.
func (b *Builder) Initial() StateId { return b.initial }

// contextState returns the state of ctx, creating it when needed.
func (b *Builder) contextState(ctx []word.Id) (StateId, error) {
	if len(ctx) == 0 {
		return _STATE_ZEROGRAM, nil
	}
	if ctx[len(ctx)-1] == b.vocab.EosId() {
		return _STATE_FINAL, nil
	}
	s, _, err := b.contexts.FindOrInsert(ctx, b.g.newState)
	return s, err
}

// findContextState is contextState without creation.
func (b *Builder) findContextState(ctx []word.Id) (StateId, bool) {
	if len(ctx) == 0 {
		return _STATE_ZEROGRAM, true
	}
	if ctx[len(ctx)-1] == b.vocab.EosId() {
		return _STATE_FINAL, true
	}
	return b.contexts.Find(ctx)
}

// AddNgram adds one n-gram of order len(words) with log-probability
// prob and back-off bow (LOG_ONE when the ARPA line has none).
func (b *Builder) AddNgram(words []word.Id, prob, bow Weight) error {
	k := len(words)
	if k == 0 || k > b.order {
		return formatError("adding %d-gram to order-%d LM", k, b.order)
	}
	if k < b.lastOrder {
		return formatError("%d-gram added after %d-grams", k, b.lastOrder)
	}
	b.lastOrder = k
	b.warn(words, prob, bow)

	deepest := k == b.order
	origin, err := b.contextState(words[:k-1])
	if err != nil {
		return err
	}
	x := words[k-1]
	dest := _STATE_FINAL
	if x != b.vocab.EosId() {
		// The deepest order cannot be extended, so its destination is
		// the context without the oldest word.
		from := 0
		if deepest {
			from = 1
		}
		if dest, err = b.contextState(words[from:]); err != nil {
			return err
		}
		if !deepest {
			// A log(0) back-off is kept so that bypassing dest stays
			// log(0) instead of falling back to the orphan default.
			b.linkBackOff(dest, words[from+1:], maxWeight(bow, b.logZero))
		}
	}

	o := b.g.State(origin)
	o.BestProb = maxWeight(o.BestProb, prob)
	if err := b.g.addTransition(Transition{origin, dest, x, prob}); err != nil {
		return err
	}
	o.FanOut++
	return nil
}

// linkBackOff makes dest back off to the state of the longest suffix
// of ctx that already exists.
func (b *Builder) linkBackOff(dest StateId, ctx []word.Id, bow Weight) {
	for i := 0; ; i++ {
		if q, ok := b.findContextState(ctx[i:]); ok {
			b.g.State(dest).BackOff = StateWeight{q, bow}
			return
		}
	}
}

func (b *Builder) warn(words []word.Id, prob, bow Weight) {
	k := len(words)
	bos, eos := b.vocab.BosId(), b.vocab.EosId()
	for i, x := range words[:k-1] {
		if x == eos {
			glog.Warningf("end-of-sentence in context %s", b.ngramString(words))
		}
		if x == bos && i > 0 {
			glog.Warningf("begin-of-sentence not in the beginning of context %s", b.ngramString(words))
		}
	}
	if k > 1 && words[k-1] == bos && prob > arpaProb(-10, b.logZero) {
		glog.Warningf("there is a non-unigram %s ending in %q with weight %g (such n-gram should have -inf weight or not occur in the LM)", b.ngramString(words), b.vocab.BOS(), prob)
	}
	if words[k-1] == eos && bow != LOG_ONE {
		glog.Warningf("non-zero back-off %g for %s ending in %q", bow, b.ngramString(words), b.vocab.EOS())
	}
}

func (b *Builder) ngramString(words []word.Id) string {
	s := make([]string, len(words))
	for i, x := range words {
		s[i] = b.vocab.StringOf(x)
	}
	return fmt.Sprintf("%q", s)
}

// Dump compacts the draft into the final Automaton. The Builder must
// not be used afterwards.
func (b *Builder) Dump(numThreads int) *Automaton {
	g := b.g
	b.g, b.contexts = nil, nil
	return compact(g, b.initial, b.vocab, b.order, numThreads)
}

// Graphviz visualizes the current draft topology.
func (b *Builder) Graphviz(w io.Writer) {
	fmt.Fprintln(w, "digraph {")
	fmt.Fprintln(w, "  // lexical transitions")
	for _, t := range b.g.transitions {
		fmt.Fprintf(w, "  %d -> %d [label=%q]\n", t.Origin, t.Dest, fmt.Sprintf("%s : %g", b.vocab.StringOf(t.Word), t.Prob))
	}
	fmt.Fprintln(w, "  // back-off transitions")
	for i, s := range b.g.states {
		if s.BackOff.State != STATE_NIL {
			fmt.Fprintf(w, "  %d -> %d [label=%q,style=dashed]\n", i, s.BackOff.State, fmt.Sprintf("%g", s.BackOff.Weight))
		}
	}
	fmt.Fprintln(w, "}")
}
