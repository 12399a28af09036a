package knowledge

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/embedding"
)

// Retriever embeds a query and looks it up in the index. It never writes.
type Retriever struct {
	embedder embedding.Provider
	index    Index
	logger   *logrus.Logger
}

func NewRetriever(embedder embedding.Provider, index Index, logger *logrus.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// Search returns at most k candidates ordered by descending similarity.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]Candidate, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	points, err := r.index.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge base: %w", err)
	}

	candidates := make([]Candidate, 0, len(points))
	for _, p := range points {
		candidates = append(candidates, candidateFrom(p))
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	r.logger.WithFields(logrus.Fields{
		"query":   truncate(query, 50),
		"results": len(candidates),
	}).Debug("Knowledge base search completed")

	return candidates, nil
}

// FindBest returns the top candidate when its similarity is at least
// threshold, or nil.
func (r *Retriever) FindBest(ctx context.Context, query string, threshold float64) (*Candidate, error) {
	candidates, err := r.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 || candidates[0].Similarity < threshold {
		return nil, nil
	}
	best := candidates[0]
	return &best, nil
}

// FindRelated returns every candidate among the top k with similarity at
// least threshold.
func (r *Retriever) FindRelated(ctx context.Context, query string, threshold float64, k int) ([]Candidate, error) {
	candidates, err := r.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	related := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Similarity >= threshold {
			related = append(related, c)
		}
	}
	return related, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
