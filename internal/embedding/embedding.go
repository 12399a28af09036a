// Package embedding turns text into fixed-size vectors for the knowledge
// base. Providers are interchangeable behind Provider.
package embedding

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/config"
)

// Provider generates vector embeddings from text.
type Provider interface {
	// Embed generates a single embedding vector from text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector dimensionality.
	Dimensions() int
}

func checkDimensions(vecs [][]float32, dims int) error {
	for i, v := range vecs {
		if len(v) != dims {
			return fmt.Errorf("embedding: vector %d has %d dimensions, expected %d", i, len(v), dims)
		}
	}
	return nil
}

func embedOne(ctx context.Context, p Provider, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding: provider returned no vectors")
	}
	return vecs[0], nil
}

// New builds the provider selected by cfg.Embedding.Provider.
func New(cfg *config.Config, logger *logrus.Logger) (Provider, error) {
	if err := cfg.ValidateEmbedding(); err != nil {
		return nil, err
	}

	switch cfg.Embedding.Provider {
	case "huggingface":
		return NewHuggingFaceProvider(cfg.Embedding.BaseURL, cfg.Embedding.Token, cfg.Embedding.Model, cfg.Embedding.Dimensions, logger), nil
	case "openai":
		return NewOpenAIProvider(cfg.LLM.OpenAIAPIKey, "", cfg.Embedding.Dimensions, logger), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}
