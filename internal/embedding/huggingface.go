package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/restclient"
)

type hfRequest struct {
	Inputs  []string  `json:"inputs"`
	Options hfOptions `json:"options"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// HuggingFaceProvider calls the inference API feature-extraction pipeline.
type HuggingFaceProvider struct {
	client     *restclient.Client
	model      string
	dimensions int
	logger     *logrus.Logger
}

func NewHuggingFaceProvider(baseURL, token, model string, dimensions int, logger *logrus.Logger) *HuggingFaceProvider {
	return &HuggingFaceProvider{
		client:     restclient.New("huggingface", baseURL, 60*time.Second, logger, restclient.WithBearer(token)),
		model:      model,
		dimensions: dimensions,
		logger:     logger,
	}
}

func (p *HuggingFaceProvider) Dimensions() int {
	return p.dimensions
}

func (p *HuggingFaceProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, p, text)
}

func (p *HuggingFaceProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var raw json.RawMessage
	req := hfRequest{Inputs: texts, Options: hfOptions{WaitForModel: true}}
	if err := p.client.Do(ctx, "POST", "/pipeline/feature-extraction/"+p.model, req, &raw); err != nil {
		return nil, fmt.Errorf("embedding: huggingface request: %w", err)
	}

	vecs, err := decodeFeatures(raw)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d inputs", len(vecs), len(texts))
	}
	if err := checkDimensions(vecs, p.dimensions); err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"model":  p.model,
		"inputs": len(texts),
	}).Debug("Embeddings generated")

	return vecs, nil
}

// decodeFeatures accepts sentence-level output ([][]float32) or token-level
// output ([][][]float32), which is mean pooled.
func decodeFeatures(raw json.RawMessage) ([][]float32, error) {
	var sentences [][]float32
	if err := json.Unmarshal(raw, &sentences); err == nil {
		return sentences, nil
	}

	var tokens [][][]float32
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("embedding: unexpected feature-extraction output: %w", err)
	}

	pooled := make([][]float32, len(tokens))
	for i, seq := range tokens {
		pooled[i] = meanPool(seq)
	}
	return pooled, nil
}

func meanPool(seq [][]float32) []float32 {
	if len(seq) == 0 {
		return nil
	}
	out := make([]float32, len(seq[0]))
	for _, tok := range seq {
		for j := range out {
			if j < len(tok) {
				out[j] += tok[j]
			}
		}
	}
	n := float32(len(seq))
	for j := range out {
		out[j] /= n
	}
	return out
}
