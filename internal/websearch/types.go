package websearch

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds every provider call.
const DefaultTimeout = 30 * time.Second

var ErrNoContent = errors.New("search results contain no usable content")

type Document struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// SearchResult is the normalized outcome of one provider call. Transport
// and API failures are reported through Success and Error, never as a Go
// error.
type SearchResult struct {
	Provider     string     `json:"provider"`
	Success      bool       `json:"success"`
	Documents    []Document `json:"documents,omitempty"`
	DirectAnswer string     `json:"direct_answer,omitempty"`
	// KnowledgeGraph is a short entity description some providers return
	// next to or instead of a direct answer.
	KnowledgeGraph string `json:"knowledge_graph,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Provider is the web-search capability.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) SearchResult
}

func failedResult(provider string, err error) SearchResult {
	return SearchResult{
		Provider: provider,
		Success:  false,
		Error:    err.Error(),
	}
}
