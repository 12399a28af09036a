package knowledge

import (
	"context"
	"errors"
)

var ErrIDCollision = errors.New("point id collision")

// Payload is what the knowledge base stores next to each vector.
type Payload struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Steps      string `json:"steps,omitempty"`
	Level      string `json:"level"`
	Type       string `json:"type"`
	Category   string `json:"category"`
	Difficulty int    `json:"difficulty"`
	OriginalID string `json:"original_id"`
}

type Point struct {
	ID      uint64
	Vector  []float32
	Payload Payload
}

type ScoredPoint struct {
	ID      uint64
	Score   float64
	Payload Payload
}

type Metadata struct {
	Level      string `json:"level"`
	Type       string `json:"type"`
	Category   string `json:"category"`
	Difficulty int    `json:"difficulty"`
	OriginalID string `json:"original_id"`
}

// Candidate is one retrieved question/answer pair. Similarity is always
// within [0,1].
type Candidate struct {
	ID         uint64   `json:"id"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Steps      string   `json:"steps,omitempty"`
	Similarity float64  `json:"similarity"`
	Metadata   Metadata `json:"metadata"`
}

// Index is the nearest-neighbour store behind the retriever.
type Index interface {
	// Query returns at most k points ordered by descending score.
	Query(ctx context.Context, vector []float32, k int) ([]ScoredPoint, error)

	// Upsert replaces payload and vector for points that already exist.
	Upsert(ctx context.Context, points []Point) error

	// ExistingOriginalIDs returns the stored original_id for each of ids
	// that is already present.
	ExistingOriginalIDs(ctx context.Context, ids []uint64) (map[uint64]string, error)
}

func clampSimilarity(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func candidateFrom(sp ScoredPoint) Candidate {
	return Candidate{
		ID:         sp.ID,
		Question:   sp.Payload.Question,
		Answer:     sp.Payload.Answer,
		Steps:      sp.Payload.Steps,
		Similarity: clampSimilarity(sp.Score),
		Metadata: Metadata{
			Level:      sp.Payload.Level,
			Type:       sp.Payload.Type,
			Category:   sp.Payload.Category,
			Difficulty: sp.Payload.Difficulty,
			OriginalID: sp.Payload.OriginalID,
		},
	}
}
