package knowledge

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process Index with exact cosine search. It backs
// dry runs and tests.
type MemoryIndex struct {
	mu     sync.RWMutex
	points map[uint64]Point
	order  []uint64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[uint64]Point)}
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, k int) ([]ScoredPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]ScoredPoint, 0, len(m.points))
	for _, id := range m.order {
		p := m.points[id]
		results = append(results, ScoredPoint{
			ID:      p.ID,
			Score:   cosine(vector, p.Vector),
			Payload: p.Payload,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *MemoryIndex) Upsert(ctx context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range points {
		if _, ok := m.points[p.ID]; !ok {
			m.order = append(m.order, p.ID)
		}
		m.points[p.ID] = p
	}
	return nil
}

func (m *MemoryIndex) ExistingOriginalIDs(ctx context.Context, ids []uint64) (map[uint64]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	existing := make(map[uint64]string)
	for _, id := range ids {
		if p, ok := m.points[id]; ok {
			existing[id] = p.Payload.OriginalID
		}
	}
	return existing, nil
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
