package lira

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kho/word"
)

func TestVocabulary(t *testing.T) {
	v, err := NewVocabulary([]string{"<s>", "</s>", "x", "y"}, "<s>", "</s>")
	if err != nil {
		t.Fatal(err)
	}
	if n := v.Size(); n != 4 {
		t.Errorf("expected v.Size() = 4; got %d", n)
	}
	if v.BosId() != 0 || v.EosId() != 1 {
		t.Errorf("expected bos/eos = 0/1; got %d/%d", v.BosId(), v.EosId())
	}
	for _, i := range []struct {
		S  string
		I  word.Id
		Ok bool
	}{
		{"<s>", 0, true}, {"</s>", 1, true}, {"x", 2, true}, {"y", 3, true}, {"z", word.NIL, false},
	} {
		if a, ok := v.IdOf(i.S); a != i.I || ok != i.Ok {
			t.Errorf("expected v.IdOf(%q) = %d, %v; got %d, %v", i.S, i.I, i.Ok, a, ok)
		}
		if i.Ok {
			if a := v.StringOf(i.I); a != i.S {
				t.Errorf("expected v.StringOf(%d) = %q; got %q", i.I, i.S, a)
			}
		}
	}
	if diff := cmp.Diff([]string{"<s>", "</s>", "x", "y"}, v.Words()); diff != "" {
		t.Errorf("words differ (-want +got):\n%s", diff)
	}
}

func TestNewVocabulary_errors(t *testing.T) {
	for _, i := range []struct {
		Words    []string
		BOS, EOS string
	}{
		{nil, "<s>", "</s>"},
		{[]string{"<s>", "</s>", "x", "x"}, "<s>", "</s>"},
		{[]string{"</s>", "x"}, "<s>", "</s>"},
		{[]string{"<s>", "x"}, "<s>", "</s>"},
		{[]string{"<s>", "</s>"}, "<s>", "<s>"},
	} {
		if _, err := NewVocabulary(i.Words, i.BOS, i.EOS); !errors.Is(err, ErrDictionary) {
			t.Errorf("case %+v: expect dictionary error; got %v", i, err)
		}
	}
}

func TestReadVocabulary(t *testing.T) {
	v, err := ReadVocabulary(strings.NewReader("  <s>\n</s> a\n\n b\t\n"), "<s>", "</s>")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"<s>", "</s>", "a", "b"}, v.Words()); diff != "" {
		t.Errorf("words differ (-want +got):\n%s", diff)
	}
}

func TestLoadVocabulary(t *testing.T) {
	for _, i := range []string{"simple.vocab", "simple.vocab.gz"} {
		v, err := LoadVocabulary(filepath.Join("testdata", i), "<s>", "</s>")
		if err != nil {
			t.Errorf("%s: unexpected error: %v", i, err)
			continue
		}
		if diff := cmp.Diff([]string{"<s>", "</s>", "a", "b", "c"}, v.Words()); diff != "" {
			t.Errorf("%s: words differ (-want +got):\n%s", i, diff)
		}
	}
	if _, err := LoadVocabulary(filepath.Join("testdata", "missing.vocab"), "<s>", "</s>"); !errors.Is(err, ErrIO) {
		t.Errorf("expect i/o error; got %v", err)
	}
}
