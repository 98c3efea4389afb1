package lira

import (
	"errors"
	"os"
	"os/signal"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

// Cleaner releases whatever must not outlive the process.
type Cleaner interface {
	Cleanup() error
}

// TempFiles creates scratch files in one directory and remembers them
// until they are removed. It is safe for concurrent use.
type TempFiles struct {
	dir   string
	mu    sync.Mutex
	files map[string]bool
}

func NewTempFiles(dir string) *TempFiles {
	if dir == "" {
		dir = os.TempDir()
	}
	return &TempFiles{dir: dir, files: map[string]bool{}}
}

// Dir returns the scratch directory.
func (t *TempFiles) Dir() string { return t.dir }

// Create creates a new scratch file whose name starts with "a2l-" and
// prefix.
func (t *TempFiles) Create(prefix string) (*os.File, error) {
	return t.CreateIn(t.dir, prefix)
}

// CreateIn is like Create but uses dir instead of the scratch
// directory. The file is still removed by Cleanup.
func (t *TempFiles) CreateIn(dir, prefix string) (*os.File, error) {
	f, err := os.CreateTemp(dir, "a2l-"+prefix+"-*")
	if err != nil {
		return nil, ioError(err, "creating scratch file in %q", dir)
	}
	t.mu.Lock()
	t.files[f.Name()] = true
	t.mu.Unlock()
	if glog.V(1) {
		glog.Infof("created scratch file %s", f.Name())
	}
	return f, nil
}

// Forget stops tracking path without removing it, e.g. after it has
// been renamed into its final place.
func (t *TempFiles) Forget(path string) {
	t.mu.Lock()
	delete(t.files, path)
	t.mu.Unlock()
}

// Remove removes a tracked file. Removing an already missing file is
// not an error.
func (t *TempFiles) Remove(path string) error {
	t.Forget(path)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ioError(err, "removing scratch file")
	}
	return nil
}

// Len returns the number of tracked files.
func (t *TempFiles) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.files)
}

// Cleanup removes every tracked file and returns the first error.
func (t *TempFiles) Cleanup() error {
	t.mu.Lock()
	files := t.files
	t.files = map[string]bool{}
	t.mu.Unlock()
	var first error
	for path := range files {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			glog.Errorf("unable to remove %s: %v", path, err)
			if first == nil {
				first = ioError(err, "removing scratch file")
			}
		}
	}
	return first
}

// CleanupOnSignal runs c.Cleanup and then exit(1) when the process gets
// SIGINT, SIGTERM or SIGABRT. The returned function uninstalls the
// handler.
func CleanupOnSignal(c Cleaner, exit func(int)) (stop func()) {
	ch := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(ch, unix.SIGINT, unix.SIGTERM, unix.SIGABRT)
	go func() {
		select {
		case sig := <-ch:
			c.Cleanup()
			glog.Errorf("received signal %v", sig)
			exit(1)
		case <-done:
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}
