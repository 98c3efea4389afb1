package lira

// Lira file parsing using iteratees.

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/kho/easy"
	"github.com/kho/stream"
	"github.com/kho/word"
)

// ReadLira reads an automaton written by WriteLira. bos and eos name
// the sentence boundary words, which must be in the file's word list.
func ReadLira(in io.Reader, bos, eos string) (*Automaton, error) {
	it := &liraTables{bos: bos, eos: eos}
	if err := stream.Run(stream.EnumRead(in, lineSplit), it); err != nil {
		return nil, formatError("%v", err)
	}
	return it.automaton()
}

// ReadLiraFile reads the lira file at path (possibly gzipped).
func ReadLiraFile(path, bos, eos string) (*Automaton, error) {
	in, err := easy.Open(path)
	if err != nil {
		return nil, ioError(err, "opening %q", path)
	}
	defer in.Close()
	return ReadLira(in, bos, eos)
}

// Sections of a lira file, in order.
const (
	liraNumWords = iota
	liraWords
	liraOrder
	liraNumStates
	liraNumTransitions
	liraMaxBound
	liraNumFanOuts
	liraFanOuts
	liraSpecialStates
	liraStates
	liraTransitions
	liraDone
)

var liraSectionNames = []string{
	"number of words",
	"word",
	"max order",
	"number of states",
	"number of transitions",
	"bound max trans prob",
	"number of fan-outs",
	"fan-out count",
	"initial, final and lowest state",
	"state",
	"transition",
	"end of file",
}

// liraTables is a single iteratee that consumes every line of a lira
// file, moving through the sections as their counts are met.
type liraTables struct {
	bos, eos string
	section  int
	// How many lines the current section still expects.
	left int

	words                    []string
	order                    int
	numStates                int
	numTransitions           int
	maxBound                 Weight
	fanOuts                  []FanOutCount
	initial, final, zerogram StateId
	states                   []StateInfo
	transitions              []Transition
}

func (it *liraTables) Final() error {
	if it.section != liraDone {
		return stream.ErrExpect(liraSectionNames[it.section])
	}
	return nil
}

func (it *liraTables) Next(line []byte) (stream.Iteratee, bool, error) {
	// Comments only come between sections; a word may start with '#'.
	if line[0] == '#' && it.section != liraWords {
		return it, true, nil
	}
	fields, err := it.fields(line)
	if err != nil {
		return nil, false, err
	}
	switch it.section {
	case liraNumWords:
		it.left, err = parseCount(fields[0])
		it.words = make([]string, 0, it.left)
	case liraWords:
		it.words = append(it.words, fields[0])
		it.left--
	case liraOrder:
		it.order, err = parseCount(fields[0])
		if err == nil && it.order == 0 {
			err = fmt.Errorf("order must be positive")
		}
	case liraNumStates:
		it.numStates, err = parseCount(fields[0])
		it.states = make([]StateInfo, 0, it.numStates)
	case liraNumTransitions:
		it.numTransitions, err = parseCount(fields[0])
		it.transitions = make([]Transition, 0, it.numTransitions)
	case liraMaxBound:
		it.maxBound, err = parseLiraWeight(fields[0])
	case liraNumFanOuts:
		it.left, err = parseCount(fields[0])
		it.fanOuts = make([]FanOutCount, 0, it.left)
	case liraFanOuts:
		var f FanOutCount
		if f.Count, err = parseCount(fields[0]); err == nil {
			f.FanOut, err = parseCount(fields[1])
		}
		it.fanOuts = append(it.fanOuts, f)
		it.left--
	case liraSpecialStates:
		if it.initial, err = it.parseState(fields[0]); err != nil {
			break
		}
		if it.final, err = it.parseState(fields[1]); err != nil {
			break
		}
		it.zerogram, err = it.parseState(fields[2])
	case liraStates:
		err = it.addState(fields)
		it.left--
	case liraTransitions:
		err = it.addTransition(fields)
		it.left--
	}
	if err != nil {
		return nil, false, err
	}
	it.advance()
	return it, true, nil
}

// fields splits line into exactly as many tokens as the current
// section needs.
func (it *liraTables) fields(line []byte) ([]string, error) {
	var n int
	switch it.section {
	case liraFanOuts:
		n = 2
	case liraSpecialStates:
		n = 3
	case liraStates, liraTransitions:
		n = 4
	case liraDone:
		return nil, stream.ErrExpect("end of file")
	default:
		n = 1
	}
	fields := make([]string, n)
	xs := line
	for i := range fields {
		fields[i], xs = tokenSplit(xs)
		if fields[i] == "" {
			return nil, stream.ErrExpect(fmt.Sprintf("%d field(s) in %s line", n, liraSectionNames[it.section]))
		}
	}
	if len(xs) != 0 {
		return nil, stream.ErrExpect(fmt.Sprintf("end of %s line", liraSectionNames[it.section]))
	}
	return fields, nil
}

// advance moves past sections that are complete, including empty ones.
func (it *liraTables) advance() {
	for {
		switch it.section {
		case liraNumWords, liraNumFanOuts:
			it.section++
			continue
		case liraWords, liraFanOuts:
			if it.left > 0 {
				return
			}
		case liraSpecialStates:
			it.left = it.numStates
		case liraStates:
			if it.left > 0 {
				return
			}
			it.left = it.numTransitions
		case liraTransitions:
			if it.left > 0 {
				return
			}
		case liraDone:
			return
		}
		it.section++
		// Sections entered here wait for their first line.
		switch it.section {
		case liraWords, liraFanOuts, liraStates, liraTransitions:
			if it.left > 0 {
				return
			}
			// Empty; skip it.
			continue
		}
		return
	}
}

func (it *liraTables) parseState(x string) (StateId, error) {
	n, err := parseCount(x)
	if err != nil {
		return STATE_NIL, err
	}
	if n >= it.numStates {
		return STATE_NIL, fmt.Errorf("state %d out of range [0, %d)", n, it.numStates)
	}
	return StateId(n), nil
}

func (it *liraTables) addState(fields []string) error {
	p, err := it.parseState(fields[0])
	if err != nil {
		return err
	}
	if int(p) != len(it.states) {
		return fmt.Errorf("expect state %d; got %d", len(it.states), p)
	}
	var s StateInfo
	if fields[1] == "-1" {
		s.BackOff.State = STATE_NIL
	} else if s.BackOff.State, err = it.parseState(fields[1]); err != nil {
		return err
	}
	if s.BackOff.Weight, err = parseLiraWeight(fields[2]); err != nil {
		return err
	}
	if s.BestProb, err = parseLiraWeight(fields[3]); err != nil {
		return err
	}
	it.states = append(it.states, s)
	return nil
}

func (it *liraTables) addTransition(fields []string) error {
	var t Transition
	var err error
	if t.Origin, err = it.parseState(fields[0]); err != nil {
		return err
	}
	if t.Dest, err = it.parseState(fields[1]); err != nil {
		return err
	}
	x, err := parseCount(fields[2])
	if err != nil {
		return err
	}
	if x == 0 || x > len(it.words) {
		return fmt.Errorf("word %d out of range [1, %d]", x, len(it.words))
	}
	t.Word = word.Id(x - 1)
	if t.Prob, err = parseLiraWeight(fields[3]); err != nil {
		return err
	}
	it.transitions = append(it.transitions, t)
	return nil
}

// automaton checks the tables for consistency and builds the
// Automaton.
func (it *liraTables) automaton() (*Automaton, error) {
	vocab, err := NewVocabulary(it.words, it.bos, it.eos)
	if err != nil {
		return nil, err
	}
	numStates, numTransitions := 0, 0
	for i, f := range it.fanOuts {
		if i > 0 && f.FanOut <= it.fanOuts[i-1].FanOut {
			return nil, formatError("fan-outs not strictly ascending at %d", f.FanOut)
		}
		numStates += f.Count
		numTransitions += f.Count * f.FanOut
	}
	if numStates != it.numStates {
		return nil, formatError("fan-out histogram covers %d states; expect %d", numStates, it.numStates)
	}
	if numTransitions != it.numTransitions {
		return nil, formatError("fan-out histogram covers %d transitions; expect %d", numTransitions, it.numTransitions)
	}

	ts := it.transitions
	if !sort.SliceIsSorted(ts, func(i, j int) bool {
		return ts[i].Origin < ts[j].Origin || ts[i].Origin == ts[j].Origin && ts[i].Word < ts[j].Word
	}) {
		return nil, formatError("transitions not sorted by origin and word")
	}
	first := make([]int, it.numStates+1)
	for _, t := range ts {
		first[t.Origin+1]++
	}
	for p := 0; p < it.numStates; p++ {
		first[p+1] += first[p]
	}

	// States must come grouped by their fan-out as in the histogram.
	p := 0
	for _, f := range it.fanOuts {
		for i := 0; i < f.Count; i++ {
			if n := first[p+1] - first[p]; n != f.FanOut {
				return nil, formatError("state %d has %d transitions; expect %d", p, n, f.FanOut)
			}
			p++
		}
	}

	return &Automaton{
		vocab:       vocab,
		order:       it.order,
		maxBound:    it.maxBound,
		fanOuts:     it.fanOuts,
		initial:     it.initial,
		final:       it.final,
		zerogram:    it.zerogram,
		states:      it.states,
		transitions: ts,
		first:       first,
	}, nil
}

func parseCount(x string) (int, error) {
	n, err := strconv.Atoi(x)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

func parseLiraWeight(x string) (Weight, error) {
	f, err := strconv.ParseFloat(x, WEIGHT_SIZE)
	return Weight(f), err
}
