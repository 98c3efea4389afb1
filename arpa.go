package lira

// ARPA scanning over a mapped buffer.

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/golang/glog"
	"github.com/kho/word"
)

// arpaScanner is a cursor over the text of an ARPA file.
type arpaScanner struct {
	data    []byte
	pos     int
	lineNo  int // Number of the line returned last by nextLine.
	vocab   *Vocabulary
	logZero Weight
}

func newArpaScanner(data []byte, vocab *Vocabulary, logZero Weight) *arpaScanner {
	return &arpaScanner{data: data, vocab: vocab, logZero: logZero}
}

// nextLine returns the next non-blank line with surrounding spaces
// trimmed.
func (s *arpaScanner) nextLine() ([]byte, bool) {
	n, line, _ := lineSplit(s.data[s.pos:], true)
	if line == nil {
		s.pos = len(s.data)
		return nil, false
	}
	// line shares its backing array with s.data.
	start := cap(s.data) - cap(line)
	s.lineNo += bytes.Count(s.data[s.pos:start], []byte{'\n'}) + 1
	s.pos += n
	return line, true
}

// mark and reset allow one line of look-ahead.
func (s *arpaScanner) mark() (int, int) {
	return s.pos, s.lineNo
}

func (s *arpaScanner) reset(pos, lineNo int) {
	s.pos, s.lineNo = pos, lineNo
}

func (s *arpaScanner) errorf(format string, args ...interface{}) error {
	return formatError("line %d: %s", s.lineNo, fmt.Sprintf(format, args...))
}

// readHeader reads the \data\ section and returns the number of n-grams
// declared for each order, counts[k-1] being the count of order k.
func (s *arpaScanner) readHeader(maxOrder int) ([]int, error) {
	for {
		line, ok := s.nextLine()
		if !ok {
			return nil, formatError(`missing \data\ section`)
		}
		if string(line) == `\data\` {
			break
		}
	}
	var counts []int
	for {
		pos, lineNo := s.mark()
		line, ok := s.nextLine()
		if !ok {
			break
		}
		x, xs := tokenSplit(line)
		if x != "ngram" {
			s.reset(pos, lineNo)
			break
		}
		order, count, err := parseNgramCount(xs)
		if err != nil {
			return nil, s.errorf("%v", err)
		}
		if order != len(counts)+1 {
			return nil, s.errorf("order %d declared after order %d", order, len(counts))
		}
		if order > maxOrder {
			return nil, s.errorf("order %d exceeds the maximum order %d", order, maxOrder)
		}
		counts = append(counts, count)
		glog.Infof("header: %d-grams = %d", order, count)
	}
	if len(counts) == 0 {
		return nil, s.errorf("no n-gram counts in header")
	}
	return counts, nil
}

// parseNgramCount parses "k=count" (spaces allowed around "=").
func parseNgramCount(decl []byte) (order, count int, err error) {
	eq := bytes.IndexByte(decl, '=')
	if eq < 0 {
		return 0, 0, fmt.Errorf("expect \"ngram k=count\"; got %q", decl)
	}
	if order, err = strconv.Atoi(string(bytes.TrimSpace(decl[:eq]))); err != nil || order <= 0 {
		return 0, 0, fmt.Errorf("bad n-gram order in %q", decl)
	}
	if count, err = strconv.Atoi(string(bytes.TrimSpace(decl[eq+1:]))); err != nil || count < 0 {
		return 0, 0, fmt.Errorf("bad n-gram count in %q", decl)
	}
	return order, count, nil
}

// skipToSection skips everything up to and including the header of the
// order-k section and returns how many lines it skipped.
func (s *arpaScanner) skipToSection(k int) (int, error) {
	header := fmt.Sprintf(`\%d-grams:`, k)
	for skipped := 0; ; skipped++ {
		line, ok := s.nextLine()
		if !ok {
			return skipped, formatError("missing section %q", header)
		}
		if string(line) == header {
			if skipped > 0 && k > 1 {
				glog.Warningf("skipped %d line(s) before %s at line %d; the header may understate the %d-gram count", skipped, header, s.lineNo, k-1)
			}
			return skipped, nil
		}
	}
}

// checkEnd logs a warning when the file does not end with \end\.
func (s *arpaScanner) checkEnd() {
	line, ok := s.nextLine()
	if !ok || string(line) != `\end\` {
		glog.Warningf(`ARPA file does not end with \end\ (line %d)`, s.lineNo)
	}
}

// ngramRecord is one data line of an ARPA section.
type ngramRecord struct {
	words []word.Id
	prob  Weight
	bow   Weight
	// Set when a back-off was present but not expected.
	extraBackOff bool
}

func newNgramRecord(k int) *ngramRecord {
	return &ngramRecord{words: make([]word.Id, k)}
}

// readNgram parses the next data line of the order-k section into rec,
// whose words must have length k. withBackOff tells whether the
// section may carry back-off weights (i.e. it is not the deepest
// order); without one the back-off is LOG_ONE.
func (s *arpaScanner) readNgram(withBackOff bool, rec *ngramRecord) error {
	k := len(rec.words)
	line, ok := s.nextLine()
	if !ok {
		return formatError("unexpected end of file in %d-gram section", k)
	}
	if line[0] == '\\' {
		return s.errorf("%d-gram section ended early at %q", k, line)
	}
	// p
	x, xs := tokenSplit(line)
	p, err := s.parseWeight(x)
	if err != nil {
		return s.errorf("log-probability: %v", err)
	}
	rec.prob = p
	// words
	for i := 0; i < k; i++ {
		x, xs = tokenSplit(xs)
		if x == "" {
			return s.errorf("expect %d word(s) in %q", k, line)
		}
		id, ok := s.vocab.IdOf(x)
		if !ok {
			return s.errorf("word %q not in vocabulary", x)
		}
		rec.words[i] = id
	}
	// bow
	rec.bow, rec.extraBackOff = LOG_ONE, false
	x, xs = tokenSplit(xs)
	if x != "" {
		bow, err := s.parseWeight(x)
		if err != nil {
			return s.errorf("back-off: %v", err)
		}
		if withBackOff {
			rec.bow = bow
		} else {
			rec.extraBackOff = true
		}
	}
	// no extra stuff
	if len(xs) != 0 {
		return s.errorf("expect end of line; got %q", xs)
	}
	return nil
}

// parseWeight parses a log10 value and converts it to natural log.
func (s *arpaScanner) parseWeight(x string) (Weight, error) {
	if x == "" {
		return 0, fmt.Errorf("missing value")
	}
	// Full precision until the ln(10) scaling.
	f, err := strconv.ParseFloat(x, 64)
	if err != nil {
		return 0, err
	}
	return arpaProb(f, s.logZero), nil
}

func arpaProb(x float64, logZero Weight) Weight {
	if x <= arpaLog0 {
		return logZero
	}
	return Weight(x * math.Ln10)
}

// progress prints a percentage every so often.
type progress struct {
	w     io.Writer
	what  string
	total int
	step  int
}

func newProgress(w io.Writer, what string, total int) *progress {
	step := total / 1000
	if step < 100 {
		step = 100
	}
	return &progress{w, what, total, step}
}

func (p *progress) update(i int) {
	if p.w != nil && i > 0 && i%p.step == 0 {
		fmt.Fprintf(p.w, "\r%s %6.2f%%", p.what, float64(i)*100/float64(p.total))
	}
}

func (p *progress) done() {
	if p.w != nil {
		fmt.Fprintf(p.w, "\r%s 100.00%%\n", p.what)
	}
}

// Low-level lexer code.

func isSpace(b byte) bool {
	switch b {
	case '\t', '\v', '\f', '\r', ' ':
		return true
	default:
		return false
	}
}

// lineSplit is a bufio.SplitFunc returning non-blank lines without
// surrounding spaces.
func lineSplit(data []byte, atEOF bool) (int, []byte, error) {
	l, r, n := -1, -1, 0
	// Skip leading spaces or newlines.
	for i, b := range data {
		if !isSpace(b) && b != '\n' {
			l = i
			break
		}
	}
	if l < 0 {
		return len(data), nil, nil
	}
	// Find newline.
	for i, b := range data[l+1:] {
		if b == '\n' {
			r, n = l+i, l+i+2
			break
		}
	}
	if r < 0 {
		if !atEOF {
			return l, nil, nil
		}
		r, n = len(data)-1, len(data)
	}
	// Trim trailing spaces.
	for isSpace(data[r]) {
		// At most we shall stop at l.
		r--
	}
	return n, data[l : r+1], nil
}

func tokenSplit(line []byte) (string, []byte) {
	// Assuming line has no leading space.
	r := -1
	for i, b := range line {
		if isSpace(b) {
			r = i
			break
		}
	}
	if r < 0 {
		r = len(line)
	}
	token := string(line[:r])
	// Skip trailing spaces.
	for i, b := range line[r:] {
		if !isSpace(b) {
			return token, line[r+i:]
		}
	}
	return token, nil
}
