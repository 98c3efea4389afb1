package lira

import (
	"unsafe"

	spooky "github.com/dgryski/go-spooky"
	"github.com/kho/word"
)

// contextStore maps word-id sequences (contexts) to states. It is an
// open-addressing hash table with linear probing; the keys live in a
// single arena so that a context costs no allocation of its own.
type contextStore struct {
	buckets   []int32 // Index into entries or -1.
	entries   []contextEntry
	arena     []word.Id
	threshold int
}

type contextEntry struct {
	hash  uint64
	off   int
	n     int32
	state StateId
}

const contextMaxUsed = 0.8

func newContextStore(initNumBuckets int) *contextStore {
	if initNumBuckets < 4 {
		initNumBuckets = 4
	}
	m := &contextStore{}
	m.resize(initNumBuckets)
	return m
}

// hashContext hashes the raw bytes of ctx.
func hashContext(ctx []word.Id) uint64 {
	if len(ctx) == 0 {
		return spooky.Hash64(nil)
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&ctx[0])), len(ctx)*int(unsafe.Sizeof(ctx[0])))
	return spooky.Hash64(raw)
}

func (m *contextStore) Len() int { return len(m.entries) }

func (m *contextStore) key(e *contextEntry) []word.Id {
	return m.arena[e.off : e.off+int(e.n)]
}

func (m *contextStore) equal(e *contextEntry, h uint64, ctx []word.Id) bool {
	if e.hash != h || int(e.n) != len(ctx) {
		return false
	}
	for i, x := range m.key(e) {
		if x != ctx[i] {
			return false
		}
	}
	return true
}

// findBucket returns the bucket holding ctx or the empty bucket where
// it would go.
func (m *contextStore) findBucket(h uint64, ctx []word.Id) int {
	i := int(h % uint64(len(m.buckets)))
	for {
		j := m.buckets[i]
		if j < 0 || m.equal(&m.entries[j], h, ctx) {
			return i
		}
		i++
		if i == len(m.buckets) {
			i = 0
		}
	}
}

// Find looks up ctx without inserting it.
func (m *contextStore) Find(ctx []word.Id) (StateId, bool) {
	j := m.buckets[m.findBucket(hashContext(ctx), ctx)]
	if j < 0 {
		return STATE_NIL, false
	}
	return m.entries[j].state, true
}

// FindOrInsert looks up ctx; when absent it asks newState for a state,
// stores a copy of ctx and reports inserted = true.
func (m *contextStore) FindOrInsert(ctx []word.Id, newState func() (StateId, error)) (s StateId, inserted bool, err error) {
	h := hashContext(ctx)
	i := m.findBucket(h, ctx)
	if j := m.buckets[i]; j >= 0 {
		return m.entries[j].state, false, nil
	}
	if s, err = newState(); err != nil {
		return STATE_NIL, false, err
	}
	if len(m.entries) >= m.threshold {
		m.resize(len(m.buckets) * 2)
		i = m.findBucket(h, ctx)
	}
	m.buckets[i] = int32(len(m.entries))
	m.entries = append(m.entries, contextEntry{h, len(m.arena), int32(len(ctx)), s})
	m.arena = append(m.arena, ctx...)
	return s, true, nil
}

func (m *contextStore) resize(numBuckets int) {
	if numBuckets < len(m.entries)+1 {
		numBuckets = len(m.entries) + 1
	}
	m.buckets = make([]int32, numBuckets)
	for i := range m.buckets {
		m.buckets[i] = -1
	}
	for j := range m.entries {
		i := int(m.entries[j].hash % uint64(numBuckets))
		for m.buckets[i] >= 0 {
			i++
			if i == numBuckets {
				i = 0
			}
		}
		m.buckets[i] = int32(j)
	}
	m.threshold = int(float64(numBuckets) * contextMaxUsed)
	if m.threshold > numBuckets-1 {
		m.threshold = numBuckets - 1
	}
}
