package vectorstore

import (
	"errors"
	"math"
	"sort"
	"sync"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

type Entry struct {
	ID      string
	Title   string
	Content string
	Vector  []float32
}

type Match struct {
	Entry
	Score float64
}

// Memory is an in-process vector index with brute-force cosine similarity.
// The dimension is fixed by the first insert.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	entries   []Entry
	norms     []float64
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Add(entries ...Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dim := m.dimension
	for _, e := range entries {
		if dim == 0 {
			dim = len(e.Vector)
		}
		if len(e.Vector) == 0 || len(e.Vector) != dim {
			return ErrDimensionMismatch
		}
	}
	m.dimension = dim
	for _, e := range entries {
		m.entries = append(m.entries, e)
		m.norms = append(m.norms, norm(e.Vector))
	}
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimension = 0
	m.entries = nil
	m.norms = nil
}

// Search returns at most k matches ordered by descending cosine similarity.
// Ties keep insertion order.
func (m *Memory) Search(vector []float32, k int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	if len(vector) != m.dimension {
		return nil, ErrDimensionMismatch
	}
	qn := norm(vector)

	scores := make([]float64, len(m.entries))
	for i, e := range m.entries {
		if qn == 0 || m.norms[i] == 0 {
			continue
		}
		scores[i] = dot(e.Vector, vector) / (qn * m.norms[i])
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })

	if k > len(idxs) {
		k = len(idxs)
	}
	out := make([]Match, 0, k)
	for _, j := range idxs[:k] {
		out = append(out, Match{Entry: m.entries[j], Score: scores[j]})
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
