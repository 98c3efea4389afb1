package lira

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestTempFiles(t *testing.T) {
	dir := t.TempDir()
	tmp := NewTempFiles(dir)
	var paths []string
	for _, prefix := range []string{"1-grams", "2-grams", "lira"} {
		f, err := tmp.Create(prefix)
		if err != nil {
			t.Fatal(err)
		}
		f.Close()
		if filepath.Dir(f.Name()) != dir {
			t.Errorf("%s not in %s", f.Name(), dir)
		}
		paths = append(paths, f.Name())
	}
	if n := tmp.Len(); n != 3 {
		t.Errorf("expect 3 tracked files; got %d", n)
	}

	if err := tmp.Remove(paths[0]); err != nil {
		t.Error(err)
	}
	// Removing twice is fine.
	if err := tmp.Remove(paths[0]); err != nil {
		t.Error(err)
	}
	tmp.Forget(paths[1])
	if err := tmp.Cleanup(); err != nil {
		t.Error(err)
	}
	if n := tmp.Len(); n != 0 {
		t.Errorf("expect no tracked file; got %d", n)
	}
	for i, path := range paths {
		_, err := os.Stat(path)
		if exists := err == nil; exists != (i == 1) {
			t.Errorf("%s: exists = %v", path, exists)
		}
	}
}

func TestCleanupOnSignal(t *testing.T) {
	tmp := NewTempFiles(t.TempDir())
	f, err := tmp.Create("signal")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	exited := make(chan int, 1)
	stop := CleanupOnSignal(tmp, func(code int) { exited <- code })
	defer stop()
	if err := unix.Kill(os.Getpid(), unix.SIGTERM); err != nil {
		t.Fatal(err)
	}
	select {
	case code := <-exited:
		if code != 1 {
			t.Errorf("expect exit code 1; got %d", code)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("signal not handled")
	}
	if _, err := os.Stat(f.Name()); !os.IsNotExist(err) {
		t.Errorf("%s still exists", f.Name())
	}
	// Stopping more than once is fine.
	stop()
}
