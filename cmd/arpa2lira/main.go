package main

import (
	"flag"
	"os"
	"runtime/pprof"

	"github.com/golang/glog"
	"github.com/kho/easy"
	"github.com/kho/lira"
)

func main() {
	cfg := lira.DefaultConfig()
	var args struct {
		Vocab string `name:"vocab" usage:"vocabulary file, one word per line"`
		ARPA  string `name:"arpa" usage:"ARPA LM file"`
		Lira  string `name:"lira" usage:"output lira file"`
	}
	flag.StringVar(&cfg.ScratchDir, "scratch", cfg.ScratchDir, "directory for scratch files")
	flag.IntVar(&cfg.NumThreads, "threads", cfg.NumThreads, "number of concurrent sorts")
	flag.IntVar(&cfg.MaxOrder, "max_order", cfg.MaxOrder, "largest n-gram order accepted")
	flag.Var(&cfg.LogZero, "log0", "weight written for log(0)")
	flag.StringVar(&cfg.BOS, "bos", cfg.BOS, "begin-of-sentence word")
	flag.StringVar(&cfg.EOS, "eos", cfg.EOS, "end-of-sentence word")
	progress := flag.Bool("progress", true, "print progress to stderr")
	cpuprofile := flag.String("cpuprofile", "", "path to write CPU profile")
	easy.ParseFlagsAndArgs(&args)

	if *progress {
		cfg.Progress = os.Stderr
	}
	if *cpuprofile != "" {
		w := easy.MustCreate(*cpuprofile)
		pprof.StartCPUProfile(w)
		defer func() {
			pprof.StopCPUProfile()
			w.Close()
		}()
	}

	tmp := lira.NewTempFiles(cfg.ScratchDir)
	stop := lira.CleanupOnSignal(tmp, os.Exit)
	defer stop()

	if err := lira.Convert(cfg, tmp, args.Vocab, args.ARPA, args.Lira); err != nil {
		tmp.Cleanup()
		pprof.StopCPUProfile()
		glog.Fatal(err)
	}
	glog.Infof("wrote %s", args.Lira)
}
