package lira

import (
	"io"
	"os"
	"runtime"
)

// Config holds everything a conversion needs besides the file paths.
type Config struct {
	// Directory for the per-order staging files and the output before
	// it is renamed into place. Empty means os.TempDir().
	ScratchDir string
	// Upper bound on concurrent sorts. Values < 1 mean 1.
	NumThreads int
	// Largest n-gram order accepted in the ARPA header.
	MaxOrder int
	// Written instead of log(0).
	LogZero Weight
	// Sentence boundary words; both must be in the vocabulary.
	BOS, EOS string
	// Receives progress percentages while scanning; nil disables.
	Progress io.Writer
}

const DEFAULT_MAX_ORDER = 20

func DefaultConfig() Config {
	return Config{
		ScratchDir: os.TempDir(),
		NumThreads: 1,
		MaxOrder:   DEFAULT_MAX_ORDER,
		LogZero:    DEFAULT_LOG_ZERO,
		BOS:        "<s>",
		EOS:        "</s>",
	}
}

func (c Config) numThreads() int {
	if c.NumThreads < 1 {
		return 1
	}
	if n := runtime.NumCPU(); c.NumThreads > 4*n {
		return 4 * n
	}
	return c.NumThreads
}

func (c Config) scratchDir() string {
	if c.ScratchDir == "" {
		return os.TempDir()
	}
	return c.ScratchDir
}
