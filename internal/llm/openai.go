package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const defaultOpenAIModel = "gpt-4o-mini"

type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *logrus.Logger
}

// NewOpenAIClient builds a chat completion generator. An empty baseURL keeps
// the library default.
func NewOpenAIClient(apiKey, model, baseURL string, logger *logrus.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

func (o *OpenAIClient) Generate(ctx context.Context, prompt string) (*Response, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}

	o.logger.WithFields(logrus.Fields{
		"model":   o.model,
		"choices": len(resp.Choices),
		"tokens":  resp.Usage.TotalTokens,
	}).Debug("OpenAI response decoded")

	if len(resp.Choices) == 0 {
		return &Response{}, nil
	}
	return &Response{Text: resp.Choices[0].Message.Content}, nil
}
