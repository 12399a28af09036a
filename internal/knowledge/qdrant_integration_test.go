//go:build integration

package knowledge

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

func TestIntegration_QdrantIndex(t *testing.T) {
	url := os.Getenv("QDRANT_URL")
	if url == "" {
		t.Skip("QDRANT_URL required for integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	index, err := NewQdrantIndex(QdrantConfig{
		URL:        url,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		Collection: fmt.Sprintf("mathgate_it_%d", time.Now().UnixNano()),
		Dims:       4,
	}, utils.NopLogger())
	require.NoError(t, err)
	defer index.Close()

	require.NoError(t, index.EnsureCollection(ctx, true))
	require.NoError(t, index.Healthy(ctx))

	points := []Point{
		{ID: PointID("q-1", 0), Vector: []float32{1, 0, 0, 0}, Payload: Payload{Question: "Solve 2x = 4", Answer: "x = 2", OriginalID: "q-1"}},
		{ID: PointID("q-2", 1), Vector: []float32{0, 1, 0, 0}, Payload: Payload{Question: "Derivative of x^2", Answer: "2x", OriginalID: "q-2"}},
	}
	require.NoError(t, index.Upsert(ctx, points))
	// upsert is idempotent on id
	require.NoError(t, index.Upsert(ctx, points))

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	hits, err := index.Query(ctx, []float32{0.9, 0.1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Solve 2x = 4", hits[0].Payload.Question)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)

	existing, err := index.ExistingOriginalIDs(ctx, []uint64{points[0].ID, 42})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]string{points[0].ID: "q-1"}, existing)
}
