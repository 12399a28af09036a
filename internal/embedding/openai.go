package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAIProvider asks text-embedding-3-small for vectors truncated to the
// knowledge base dimensionality.
type OpenAIProvider struct {
	client     *openai.Client
	dimensions int
	logger     *logrus.Logger
}

// NewOpenAIProvider keeps the library default endpoint when baseURL is empty.
func NewOpenAIProvider(apiKey, baseURL string, dimensions int, logger *logrus.Logger) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(cfg),
		dimensions: dimensions,
		logger:     logger,
	}
}

func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, p, text)
}

func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.SmallEmbedding3,
		Dimensions: p.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: openai request: %w", err)
	}

	// Ensure results are in input order.
	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding: invalid index %d in response", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	if err := checkDimensions(vecs, p.dimensions); err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"inputs": len(texts),
		"tokens": resp.Usage.TotalTokens,
	}).Debug("Embeddings generated")

	return vecs, nil
}
