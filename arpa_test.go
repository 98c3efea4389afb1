package lira

import (
	"bufio"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kho/word"
)

func Test_lineSplit(t *testing.T) {
	for _, i := range []struct {
		Data  string
		Lines []string
	}{
		{"a\nb\n", []string{"a", "b"}},
		{"ab\ncd", []string{"ab", "cd"}},
		{" \tab\ncd \n", []string{"ab", "cd"}},
		{"\nab\n\ncd\n\n", []string{"ab", "cd"}},
		{"ab\r\ncd\r\n", []string{"ab", "cd"}},
		{"", nil},
		{"\n\n\n\n", nil},
	} {
		in := bufio.NewScanner(strings.NewReader(i.Data))
		in.Split(lineSplit)
		var lines []string
		for in.Scan() {
			lines = append(lines, in.Text())
		}
		if err := in.Err(); err != nil {
			t.Errorf("case %q: unexpected error: %v", i.Data, err)
		}
		if diff := cmp.Diff(i.Lines, lines); diff != "" {
			t.Errorf("case %q: lines differ (-want +got):\n%s", i.Data, diff)
		}
	}
}

func Test_tokenSplit(t *testing.T) {
	for _, i := range []struct {
		Line   string
		Tokens []string
	}{
		{"a b c", []string{"a", "b", "c"}},
		{"ab cd", []string{"ab", "cd"}},
		{"", nil},
		{"ab \t cd", []string{"ab", "cd"}},
		{"ab cd \t ", []string{"ab", "cd"}},
	} {
		var tokens []string
		for x, xs := tokenSplit([]byte(i.Line)); x != ""; x, xs = tokenSplit(xs) {
			tokens = append(tokens, x)
		}
		if diff := cmp.Diff(i.Tokens, tokens); diff != "" {
			t.Errorf("case %q: tokens differ (-want +got):\n%s", i.Line, diff)
		}
	}
}

func Test_arpaScanner_nextLine(t *testing.T) {
	s := newArpaScanner([]byte("\n\n a\nb  \n\n\nc"), nil, DEFAULT_LOG_ZERO)
	for _, i := range []struct {
		Line   string
		LineNo int
	}{
		{"a", 3}, {"b", 4}, {"c", 7},
	} {
		line, ok := s.nextLine()
		if !ok || string(line) != i.Line || s.lineNo != i.LineNo {
			t.Errorf("expect %q at line %d; got %q (%v) at line %d", i.Line, i.LineNo, line, ok, s.lineNo)
		}
	}
	if line, ok := s.nextLine(); ok {
		t.Errorf("expect end of data; got %q", line)
	}
}

func Test_arpaScanner_readHeader(t *testing.T) {
	for _, i := range []struct {
		Data     string
		MaxOrder int
		Counts   []int
	}{
		{"\\data\\\nngram 1=3\nngram 2=10\n\n\\1-grams:\n", 20, []int{3, 10}},
		{"junk\n\\data\\\nngram 1 = 3\n", 20, []int{3}},
		{"\\data\\\nngram 1=0\nngram 2=0\nngram 3=1\n", 3, []int{0, 0, 1}},
		// Errors.
		{"ngram 1=3\n", 20, nil},
		{"\\data\\\n\\1-grams:\n", 20, nil},
		{"\\data\\\nngram 1=3\nngram 3=1\n", 20, nil},
		{"\\data\\\nngram 2=3\n", 20, nil},
		{"\\data\\\nngram 1=3\nngram 2=1\nngram 3=1\n", 2, nil},
		{"\\data\\\nngram 1=x\n", 20, nil},
		{"\\data\\\nngram 1=-1\n", 20, nil},
		{"\\data\\\nngram 1\n", 20, nil},
	} {
		s := newArpaScanner([]byte(i.Data), nil, DEFAULT_LOG_ZERO)
		counts, err := s.readHeader(i.MaxOrder)
		if i.Counts == nil {
			if !errors.Is(err, ErrFormat) {
				t.Errorf("case %q: expect format error; got %v", i.Data, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("case %q: unexpected error: %v", i.Data, err)
		}
		if diff := cmp.Diff(i.Counts, counts); diff != "" {
			t.Errorf("case %q: counts differ (-want +got):\n%s", i.Data, diff)
		}
	}
}

func Test_arpaScanner_skipToSection(t *testing.T) {
	s := newArpaScanner([]byte("\\data\\\nngram 1=1\n\n\\1-grams:\n-1 a\n\\end\\\n"), nil, DEFAULT_LOG_ZERO)
	if _, err := s.skipToSection(1); err != nil {
		t.Fatal(err)
	}
	if line, _ := s.nextLine(); string(line) != "-1 a" {
		t.Errorf("expect first 1-gram line; got %q", line)
	}
	if _, err := s.skipToSection(2); !errors.Is(err, ErrFormat) {
		t.Errorf("expect format error; got %v", err)
	}
}

func Test_arpaScanner_skipToSection_extraLines(t *testing.T) {
	// The header declares one 1-gram but the section has three.
	s := newArpaScanner([]byte("\\1-grams:\n-1 a\n-1 b\n-1 c\n\n\\2-grams:\n-1 a b\n"), nil, DEFAULT_LOG_ZERO)
	if n, err := s.skipToSection(1); err != nil || n != 0 {
		t.Fatalf("expect nothing skipped; got %d, %v", n, err)
	}
	s.nextLine()
	n, err := s.skipToSection(2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expect 2 skipped 1-gram lines; got %d", n)
	}
	if line, _ := s.nextLine(); string(line) != "-1 a b" {
		t.Errorf("expect first 2-gram line; got %q", line)
	}
}

func Test_arpaScanner_readNgram(t *testing.T) {
	vocab, err := NewVocabulary([]string{"<s>", "</s>", "ab", "cd", "ef", "-2"}, "<s>", "</s>")
	if err != nil {
		t.Fatal(err)
	}
	ln := func(x float64) Weight { return Weight(x * math.Ln10) }
	for _, i := range []struct {
		N           int
		WithBackOff bool
		Line        string
		Err         bool
		P, BOW      Weight
		Words       []word.Id
		Extra       bool
	}{
		{1, true, "-1 ab -2", false, ln(-1), ln(-2), []word.Id{2}, false},
		{1, true, "-1 ab", false, ln(-1), LOG_ONE, []word.Id{2}, false},
		{2, true, "-1 ab cd -2", false, ln(-1), ln(-2), []word.Id{2, 3}, false},
		{3, false, "-3 ab cd ef", false, ln(-3), LOG_ONE, []word.Id{2, 3, 4}, false},
		{1, true, "-1 -2", false, ln(-1), LOG_ONE, []word.Id{5}, false},
		{2, false, "-1 ab cd -0.5", false, ln(-1), LOG_ONE, []word.Id{2, 3}, true},
		{1, true, "-99 <s> -1", false, DEFAULT_LOG_ZERO, ln(-1), []word.Id{0}, false},
		{1, true, "-1 ab -120", false, ln(-1), DEFAULT_LOG_ZERO, []word.Id{2}, false},
		{N: 3, WithBackOff: true, Line: "-1 ab cd", Err: true},
		{N: 2, WithBackOff: true, Line: "-1", Err: true},
		{N: 2, WithBackOff: true, Line: "-1 ab cd -4 -5", Err: true},
		{N: 2, WithBackOff: true, Line: "ab cd ef", Err: true},
		{N: 2, WithBackOff: true, Line: "-1 ab cd ef", Err: true},
		{N: 1, WithBackOff: true, Line: "-1 gh", Err: true},
		{N: 1, WithBackOff: true, Line: "\\2-grams:", Err: true},
	} {
		s := newArpaScanner([]byte(i.Line), vocab, DEFAULT_LOG_ZERO)
		rec := newNgramRecord(i.N)
		// Mess up the state before reading.
		rec.prob, rec.bow, rec.extraBackOff = 9999, 9999, !i.Extra
		err := s.readNgram(i.WithBackOff, rec)
		if i.Err {
			if !errors.Is(err, ErrFormat) {
				t.Errorf("case %+v: expect format error; got %v", i, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("case %+v: unexpected error: %v", i, err)
			continue
		}
		if rec.prob != i.P {
			t.Errorf("case %+v: rec.prob = %g", i, rec.prob)
		}
		if rec.bow != i.BOW {
			t.Errorf("case %+v: rec.bow = %g", i, rec.bow)
		}
		if rec.extraBackOff != i.Extra {
			t.Errorf("case %+v: rec.extraBackOff = %v", i, rec.extraBackOff)
		}
		if diff := cmp.Diff(i.Words, rec.words); diff != "" {
			t.Errorf("case %+v: words differ (-want +got):\n%s", i, diff)
		}
	}
}

func Test_readNgram_endOfFile(t *testing.T) {
	s := newArpaScanner([]byte("\n\n"), nil, DEFAULT_LOG_ZERO)
	if err := s.readNgram(true, newNgramRecord(1)); !errors.Is(err, ErrFormat) {
		t.Errorf("expect format error; got %v", err)
	}
}
