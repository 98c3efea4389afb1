package lira

// Basic types and related constants.

import (
	"math"
	"strconv"

	"github.com/kho/word"
)

// StateId represents an automaton state. Before compaction it is the
// draft id; after compaction it is the state's code.
type StateId uint32

const (
	STATE_NIL       StateId = ^StateId(0) // No back-off / invalid state.
	_STATE_ZEROGRAM StateId = 0           // The empty context.
	_STATE_FINAL    StateId = 1           // Reached by consuming the end cue.
	_FIRST_STATE    StateId = 2           // First id handed out by the key store.
)

// Weight is the floating point number type for natural-log
// probabilities.
type Weight float32

const WEIGHT_SIZE = 32 // The bit size of Weight.

const (
	LOG_ONE          Weight = 0     // log(1); also the back-off of a line without one.
	DEFAULT_LOG_ZERO Weight = -1e12 // Default replacement of log(0) in the output.
	arpaLog0                = -99   // ARPA values <= this are log(0) by convention.
)

// WEIGHT_LOG0 is what scoring queries return for an OOV.
var WEIGHT_LOG0 = Weight(math.Inf(-1))

func (w *Weight) String() string {
	return strconv.FormatFloat(float64(*w), 'g', -1, WEIGHT_SIZE)
}

func (w *Weight) Set(s string) error {
	f, err := strconv.ParseFloat(s, WEIGHT_SIZE)
	if err == nil {
		*w = Weight(f)
	}
	return err
}

func formatWeight(w Weight) string {
	return strconv.FormatFloat(float64(w), 'g', -1, WEIGHT_SIZE)
}

func maxWeight(a, b Weight) Weight {
	if a > b {
		return a
	}
	return b
}

type StateWeight struct {
	State  StateId
	Weight Weight
}

// Transition is a lexical edge of the automaton.
type Transition struct {
	Origin, Dest StateId
	Word         word.Id
	Prob         Weight
}

// byWord orders the transitions of a single origin.
type byWord []Transition

func (s byWord) Len() int           { return len(s) }
func (s byWord) Less(i, j int) bool { return s[i].Word < s[j].Word }
func (s byWord) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
