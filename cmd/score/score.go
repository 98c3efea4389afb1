package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/golang/glog"
	"github.com/kho/easy"
	"github.com/kho/lira"
)

var unkScore lira.Weight

func init() {
	flag.Var(&unkScore, "unk", "score for words outside the vocabulary")
}

func main() {
	var args struct {
		Model string `name:"model" usage:"lira file"`
	}
	bos := flag.String("bos", "<s>", "begin-of-sentence word")
	eos := flag.String("eos", "</s>", "end-of-sentence word")
	cpuprofile := flag.String("cpuprofile", "", "path to write CPU profile")
	memprofile := flag.String("memprofile", "", "path to write memory profile")
	easy.ParseFlagsAndArgs(&args)

	if *cpuprofile != "" {
		w := easy.MustCreate(*cpuprofile)
		pprof.StartCPUProfile(w)
		defer func() {
			pprof.StopCPUProfile()
			w.Close()
		}()
	}

	if *memprofile != "" {
		defer func() {
			w := easy.MustCreate(*memprofile)
			pprof.WriteHeapProfile(w)
			w.Close()
		}()
	}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	model, err := lira.ReadLiraFile(args.Model, *bos, *eos)
	if err != nil {
		glog.Fatal(err)
	}
	runtime.GC()
	runtime.ReadMemStats(&after)
	glog.Infof("loaded %d-gram automaton with %d states, %d transitions, and %d words", model.Order(), model.NumStates(), model.NumTransitions(), model.Vocab().Size())
	glog.Infof("automaton memory usage: %.2fMB", float64(after.Alloc-before.Alloc)/float64(1<<20))
	in := bufio.NewScanner(os.Stdin)

	score, numWords, numSents, numOOVs := lira.Weight(0), 0, 0, 0
	verbose := bool(glog.V(1))
	for in.Scan() {
		sent := strings.Fields(in.Text())
		s, o := Score(model, sent, verbose)
		score += s
		numWords += len(sent)
		numSents++
		numOOVs += o
	}
	if err := in.Err(); err != nil {
		glog.Fatal(err)
	}

	if numWords > 0 {
		fmt.Printf("%d sents, %d words, %d OOVs\n", numSents, numWords, numOOVs)
		// Weights are natural logs.
		fmt.Printf("logprob=%g ppl=%g ppl1=%g\n",
			score, math.Exp(-float64(score)/float64(numSents+numWords)),
			math.Exp(-float64(score)/float64(numWords)))
	}
}

// Score scores one sentence from the start state through the final
// weight, printing each word's weight when verbose.
func Score(model *lira.Automaton, sent []string, verbose bool) (total lira.Weight, numOOVs int) {
	p := model.Start()
	for _, x := range sent {
		var w lira.Weight
		p, w = model.NextS(p, x)
		if w == lira.WEIGHT_LOG0 {
			w = unkScore
			numOOVs++
			if verbose {
				fmt.Printf("<unk>")
			}
		} else if verbose {
			fmt.Printf("%q", x)
		}
		total += w
		if verbose {
			fmt.Printf("\t%g\t%g\n", w, total)
		}
	}
	w := model.Final(p)
	total += w
	if verbose {
		fmt.Printf("%s\t%g\t%g\n\n", model.Vocab().EOS(), w, total)
	}
	return
}
