package lira

import (
	"fmt"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// Convert compiles the ARPA model at arpaPath over the vocabulary at
// vocabPath into a lira file at liraPath. Scratch files are created
// through tmp and all of them are gone when Convert returns, whether or
// not it succeeds.
func Convert(cfg Config, tmp *TempFiles, vocabPath, arpaPath, liraPath string) error {
	a, err := Compile(cfg, tmp, vocabPath, arpaPath)
	if err == nil {
		err = a.WriteLiraFile(liraPath, tmp)
	}
	if cerr := tmp.Cleanup(); err == nil {
		err = cerr
	}
	return err
}

// Compile is Convert without writing the result. Scratch files created
// before an error are left to the caller's tmp.Cleanup.
func Compile(cfg Config, tmp *TempFiles, vocabPath, arpaPath string) (*Automaton, error) {
	vocab, err := LoadVocabulary(vocabPath, cfg.BOS, cfg.EOS)
	if err != nil {
		return nil, err
	}
	glog.Infof("loaded %d words from %s", vocab.Size(), vocabPath)

	arpa, err := OpenMappedFile(arpaPath, false)
	if err != nil {
		return nil, err
	}
	defer arpa.Close()
	s := newArpaScanner(arpa.Bytes(), vocab, cfg.LogZero)
	counts, err := s.readHeader(cfg.MaxOrder)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", arpaPath, err)
	}

	levels, err := stageAll(cfg, tmp, s, counts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", arpaPath, err)
	}
	defer func() {
		for _, o := range levels {
			if o != nil {
				o.close(tmp)
			}
		}
	}()

	b := NewBuilder(vocab, counts, cfg.LogZero)
	for i, o := range levels {
		k := i + 1
		rec := newNgramRecord(k)
		for j := 0; j < o.Len(); j++ {
			o.record(j, rec)
			if err := b.AddNgram(rec.words, rec.prob, rec.bow); err != nil {
				return nil, err
			}
		}
		glog.Infof("added %d %d-grams; %d states and %d transitions so far", o.Len(), k, b.g.NumStates(), b.g.NumTransitions())
		if err := o.close(tmp); err != nil {
			return nil, err
		}
		levels[i] = nil
	}
	a := b.Dump(cfg.numThreads())
	glog.Infof("automaton has %d states and %d transitions", a.NumStates(), a.NumTransitions())
	return a, nil
}

// stageAll stages every order of the ARPA file and sorts the staged
// orders concurrently. It returns once all sorts are done.
func stageAll(cfg Config, tmp *TempFiles, s *arpaScanner, counts []int) ([]*stagedOrder, error) {
	levels := make([]*stagedOrder, 0, len(counts))
	fail := func(err error) ([]*stagedOrder, error) {
		for _, o := range levels {
			o.close(tmp)
		}
		return nil, err
	}

	var eg errgroup.Group
	eg.SetLimit(cfg.numThreads())
	for i, count := range counts {
		k := i + 1
		if _, err := s.skipToSection(k); err != nil {
			eg.Wait()
			return fail(err)
		}
		path, err := stageOrder(s, tmp, k, count, k < len(counts), cfg.Progress)
		if err != nil {
			eg.Wait()
			return fail(err)
		}
		o, err := openStagedOrder(path)
		if err != nil {
			tmp.Remove(path)
			eg.Wait()
			return fail(err)
		}
		levels = append(levels, o)
		eg.Go(func() error {
			o.sort()
			return nil
		})
	}
	eg.Wait()
	s.checkEnd()
	return levels, nil
}
