package vectorstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchOrdersByCosine(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Add(
		Entry{ID: "a", Vector: []float32{1, 0}},
		Entry{ID: "b", Vector: []float32{0, 1}},
		Entry{ID: "c", Vector: []float32{3, 3}},
	))

	got, err := m.Search([]float32{2, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].ID)
	require.Equal(t, "c", got[1].ID)
	require.Greater(t, got[0].Score, got[1].Score)
}

func TestSearchBoundsResultCount(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Add(Entry{ID: "a", Vector: []float32{1}}))

	got, err := m.Search([]float32{1}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = m.Search([]float32{1}, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDimensionIsEnforced(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Add(Entry{ID: "a", Vector: []float32{1, 2, 3}}))
	require.ErrorIs(t, m.Add(Entry{ID: "b", Vector: []float32{1}}), ErrDimensionMismatch)

	_, err := m.Search([]float32{1, 2}, 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	m.Reset()
	require.Zero(t, m.Len())
	require.NoError(t, m.Add(Entry{ID: "b", Vector: []float32{1}}))
}

func TestEmptyIndexSearch(t *testing.T) {
	got, err := NewMemory().Search([]float32{1, 2}, 3)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = m.Add(Entry{ID: "x", Vector: []float32{1, 1}})
		}()
		go func() {
			defer wg.Done()
			_, _ = m.Search([]float32{1, 1}, 3)
		}()
	}
	wg.Wait()
	require.Equal(t, 8, m.Len())
}
