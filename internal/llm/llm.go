package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/config"
)

var ErrEmptyResponse = errors.New("empty response from text generation")

// Generator is the text generation capability used by guardrails, the
// synthesizer and the verifier.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Response, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (*Response, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (*Response, error) {
	return f(ctx, prompt)
}

// TextResponse wraps plain text in the flat response shape.
func TextResponse(text string) *Response {
	return &Response{Text: text}
}

type Part struct {
	Text string `json:"text"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

// Response exposes generated text through either nested candidates or a
// flat Text field, depending on the backend.
type Response struct {
	Candidates []Candidate `json:"candidates,omitempty"`
	Text       string      `json:"text,omitempty"`
}

// ExtractText returns the first candidate's first non-empty part, falling
// back to the flat text field.
func ExtractText(resp *Response) (string, bool) {
	if resp == nil {
		return "", false
	}

	if len(resp.Candidates) > 0 {
		if content := resp.Candidates[0].Content; content != nil {
			for _, part := range content.Parts {
				if text := strings.TrimSpace(part.Text); text != "" {
					return text, true
				}
			}
		}
	}

	if text := strings.TrimSpace(resp.Text); text != "" {
		return text, true
	}

	return "", false
}

// GenerateText is Generate followed by ExtractText.
func GenerateText(ctx context.Context, g Generator, prompt string) (string, error) {
	resp, err := g.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text, ok := ExtractText(resp)
	if !ok {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// New builds the generator selected by cfg.LLM.Provider.
func New(cfg *config.Config, logger *logrus.Logger) (Generator, error) {
	if err := cfg.ValidateLLM(); err != nil {
		return nil, err
	}

	switch cfg.LLM.Provider {
	case "gemini":
		return NewGeminiClient(cfg.LLM.BaseURL, cfg.LLM.GeminiAPIKey, cfg.LLM.Model, logger), nil
	case "openai":
		model := cfg.LLM.Model
		if model == "" || strings.HasPrefix(model, "gemini") {
			model = defaultOpenAIModel
		}
		return NewOpenAIClient(cfg.LLM.OpenAIAPIKey, model, "", logger), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}
