package lira

import (
	"bufio"
	"io"

	"github.com/kho/easy"
	"github.com/kho/word"
)

// Vocabulary is the word list of a lira automaton together with its
// sentence boundary words. Ids follow the order of the word list.
type Vocabulary struct {
	vocab        *word.Vocab
	bos, eos     string
	bosId, eosId word.Id
}

// NewVocabulary builds a Vocabulary from words, which must not contain
// duplicates and must contain both bos and eos.
func NewVocabulary(words []string, bos, eos string) (*Vocabulary, error) {
	if len(words) == 0 {
		return nil, dictionaryError("empty vocabulary")
	}
	if bos == eos {
		return nil, dictionaryError("begin-of-sentence and end-of-sentence are the same word %q", bos)
	}
	seen := make(map[string]int, len(words))
	for i, w := range words {
		if j, ok := seen[w]; ok {
			return nil, dictionaryError("duplicate word %q at positions %d and %d", w, j+1, i+1)
		}
		seen[w] = i
	}
	v := &Vocabulary{vocab: word.NewVocab(words), bos: bos, eos: eos}
	if v.bosId = v.vocab.IdOf(bos); v.bosId == word.NIL {
		return nil, dictionaryError("%q not in vocabulary", bos)
	}
	if v.eosId = v.vocab.IdOf(eos); v.eosId == word.NIL {
		return nil, dictionaryError("%q not in vocabulary", eos)
	}
	return v, nil
}

// ReadVocabulary reads whitespace separated words from in.
func ReadVocabulary(in io.Reader, bos, eos string) (*Vocabulary, error) {
	var words []string
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 64*1024), 1<<20)
	s.Split(bufio.ScanWords)
	for s.Scan() {
		words = append(words, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, ioError(err, "reading vocabulary")
	}
	return NewVocabulary(words, bos, eos)
}

// LoadVocabulary reads the vocabulary file at path (possibly gzipped).
func LoadVocabulary(path, bos, eos string) (*Vocabulary, error) {
	in, err := easy.Open(path)
	if err != nil {
		return nil, ioError(err, "opening vocabulary %q", path)
	}
	defer in.Close()
	return ReadVocabulary(in, bos, eos)
}

// IdOf looks up the id of s.
func (v *Vocabulary) IdOf(s string) (word.Id, bool) {
	i := v.vocab.IdOf(s)
	return i, i != word.NIL
}

// StringOf returns the word of an id that belongs to this vocabulary.
func (v *Vocabulary) StringOf(i word.Id) string { return v.vocab.StringOf(i) }

// Size returns the number of words.
func (v *Vocabulary) Size() int { return int(v.vocab.Bound()) }

// Words returns the words in id order.
func (v *Vocabulary) Words() []string {
	words := make([]string, v.Size())
	for i := range words {
		words[i] = v.vocab.StringOf(word.Id(i))
	}
	return words
}

func (v *Vocabulary) BOS() string    { return v.bos }
func (v *Vocabulary) EOS() string    { return v.eos }
func (v *Vocabulary) BosId() word.Id { return v.bosId }
func (v *Vocabulary) EosId() word.Id { return v.eosId }
