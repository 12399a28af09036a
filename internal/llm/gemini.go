package llm

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/restclient"
)

const geminiTimeout = 60 * time.Second

type geminiRequest struct {
	Contents []Content `json:"contents"`
}

// GeminiClient calls the generateContent REST endpoint. It never retries.
type GeminiClient struct {
	client *restclient.Client
	model  string
	logger *logrus.Logger
}

func NewGeminiClient(baseURL, apiKey, model string, logger *logrus.Logger) *GeminiClient {
	return &GeminiClient{
		client: restclient.New("gemini", baseURL, geminiTimeout, logger,
			restclient.WithHeader("x-goog-api-key", apiKey)),
		model:  model,
		logger: logger,
	}
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (*Response, error) {
	req := geminiRequest{
		Contents: []Content{{
			Role:  "user",
			Parts: []Part{{Text: prompt}},
		}},
	}

	endpoint := fmt.Sprintf("/v1beta/models/%s:generateContent", url.PathEscape(g.model))

	var resp Response
	if err := g.client.Do(ctx, "POST", endpoint, req, &resp); err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"model":      g.model,
		"candidates": len(resp.Candidates),
	}).Debug("Gemini response decoded")

	return &resp, nil
}
