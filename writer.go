package lira

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

// WriteLira writes a in the lira text format. Words are numbered from 1
// in the file.
func (a *Automaton) WriteLira(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 1<<16)
	p := func(format string, args ...interface{}) {
		fmt.Fprintf(bw, format, args...)
	}

	p("# number of words and words\n%d\n", a.vocab.Size())
	for _, x := range a.vocab.Words() {
		p("%s\n", x)
	}
	p("# max order of ngrams\n%d\n", a.order)
	p("# number of states\n%d\n", len(a.states))
	p("# number of transitions\n%d\n", len(a.transitions))
	p("# bound max trans prob\n%s\n", formatWeight(a.maxBound))
	p("# how many different number of transitions\n%d\n", len(a.fanOuts))
	p("# \"x y\" means there are x states with y transitions\n")
	for _, f := range a.fanOuts {
		p("%d %d\n", f.Count, f.FanOut)
	}
	p("# initial state, final state and lowest state\n%d %d %d\n", a.initial, a.final, a.zerogram)
	p("# state backoff_st 'weight(state->backoff_st)' [max_transition_prob]\n")
	p("# backoff_st == -1 means there is no backoff\n")
	for i, s := range a.states {
		if s.BackOff.State == STATE_NIL {
			p("%d -1 %s %s\n", i, formatWeight(s.BackOff.Weight), formatWeight(s.BestProb))
		} else {
			p("%d %d %s %s\n", i, s.BackOff.State, formatWeight(s.BackOff.Weight), formatWeight(s.BestProb))
		}
	}
	p("# transitions\n")
	for _, t := range a.transitions {
		p("%d %d %d %s\n", t.Origin, t.Dest, t.Word+1, formatWeight(t.Prob))
	}
	if err := bw.Flush(); err != nil {
		return ioError(err, "writing lira")
	}
	return nil
}

// WriteLiraFile writes a to path. The output is first written to a
// scratch file next to path and then renamed into place, so path is
// either untouched or complete. When the directory of path cannot hold
// the scratch file, tmp's directory is used and the result is copied
// over if rename fails across devices.
func (a *Automaton) WriteLiraFile(path string, tmp *TempFiles) (err error) {
	f, err := tmp.CreateIn(filepath.Dir(path), "lira")
	if err != nil {
		glog.Warningf("writing to scratch directory instead: %v", err)
		if f, err = tmp.Create("lira"); err != nil {
			return err
		}
	}
	name := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			tmp.Remove(name)
		}
	}()
	if err = a.WriteLira(f); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return ioError(err, "syncing %q", name)
	}
	if err = f.Close(); err != nil {
		return ioError(err, "closing %q", name)
	}
	if err = os.Chmod(name, 0644); err != nil {
		return ioError(err, "chmod %q", name)
	}

	err = os.Rename(name, path)
	if errors.Is(err, unix.EXDEV) {
		glog.Infof("%s and %s are on different devices; copying", name, path)
		err = copyFile(path, name)
		if err == nil {
			tmp.Remove(name)
			return nil
		}
	}
	if err != nil {
		return ioError(err, "moving %q to %q", name, path)
	}
	tmp.Forget(name)
	return nil
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
