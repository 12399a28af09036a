package feedback

import (
	"context"
	"fmt"
	"math"
	"strings"
)

const (
	DefaultThreshold    = 0.7
	DefaultContextLimit = 3
)

// Store persists feedback records. Implementations are safe for
// concurrent use.
type Store interface {
	Append(ctx context.Context, r Record) error
	QuerySimilar(ctx context.Context, question string, threshold float64) ([]Match, error)
	All(ctx context.Context) ([]Record, error)
	Stats(ctx context.Context) (Stats, error)
}

type Stats struct {
	Total         int     `json:"total_feedback"`
	AverageRating float64 `json:"average_rating"`
	Positive      int     `json:"positive_feedback"`
	Negative      int     `json:"negative_feedback"`
}

func computeStats(records []Record) Stats {
	stats := Stats{Total: len(records)}
	if stats.Total == 0 {
		return stats
	}

	sum := 0
	for _, r := range records {
		sum += r.Rating
		switch {
		case r.Rating >= 4:
			stats.Positive++
		case r.Rating <= 2:
			stats.Negative++
		}
	}
	stats.AverageRating = math.Round(float64(sum)/float64(stats.Total)*100) / 100
	return stats
}

// BuildContext renders up to limit matches as prompt context for the
// synthesizer. It returns "" when there is nothing to add.
func BuildContext(matches []Match, limit int) string {
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		var b strings.Builder
		fmt.Fprintf(&b, "Previous feedback on similar question '%s':\n", m.Question)
		fmt.Fprintf(&b, "Rating: %d/5\n", m.Rating)
		if m.FeedbackText != "" {
			fmt.Fprintf(&b, "Feedback: %s\n", m.FeedbackText)
		}
		if m.SuggestedCorrection != "" {
			fmt.Fprintf(&b, "Suggested correction: %s\n", m.SuggestedCorrection)
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(parts, "\n\n")
}
