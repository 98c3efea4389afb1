package lira

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMappedFile(t *testing.T) {
	dir := t.TempDir()
	for _, i := range []string{"", "abc\n", "\\data\\\nngram 1=1\n"} {
		path := filepath.Join(dir, "f")
		if err := os.WriteFile(path, []byte(i), 0644); err != nil {
			t.Fatal(err)
		}
		m, err := OpenMappedFile(path, false)
		if err != nil {
			t.Fatalf("case %q: %v", i, err)
		}
		if string(m.Bytes()) != i {
			t.Errorf("case %q: got %q", i, m.Bytes())
		}
		if err := m.Close(); err != nil {
			t.Errorf("case %q: close: %v", i, err)
		}
		// Close is idempotent.
		if err := m.Close(); err != nil {
			t.Errorf("case %q: second close: %v", i, err)
		}
	}
}

func TestMappedFile_writable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := OpenMappedFile(path, true)
	if err != nil {
		t.Fatal(err)
	}
	m.Bytes()[0] = 'x'
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if b, _ := os.ReadFile(path); string(b) != "xbc" {
		t.Errorf("expect changes to reach the file; got %q", b)
	}
}

func TestMappedFile_missing(t *testing.T) {
	if _, err := OpenMappedFile(filepath.Join(t.TempDir(), "missing"), false); !errors.Is(err, ErrIO) {
		t.Errorf("expect i/o error; got %v", err)
	}
}
