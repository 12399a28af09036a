package websearch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/restclient"
)

const (
	TavilyName       = "tavily"
	DefaultTavilyURL = "https://api.tavily.com"
)

var tutoringDomains = []string{
	"khanacademy.org",
	"mathway.com",
	"symbolab.com",
	"wolframalpha.com",
	"brilliant.org",
	"mathsisfun.com",
	"stackoverflow.com",
}

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	IncludeAnswer  bool     `json:"include_answer"`
	IncludeDomains []string `json:"include_domains"`
	MaxResults     int      `json:"max_results"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// TavilyClient searches tutoring sites through the Tavily research API.
type TavilyClient struct {
	apiKey     string
	client     *restclient.Client
	timeout    time.Duration
	maxResults int
	logger     *logrus.Logger
}

func NewTavilyClient(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *TavilyClient {
	if baseURL == "" {
		baseURL = DefaultTavilyURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TavilyClient{
		apiKey:     apiKey,
		client:     restclient.New(TavilyName, baseURL, timeout, logger),
		timeout:    timeout,
		maxResults: 5,
		logger:     logger,
	}
}

func (c *TavilyClient) Name() string {
	return TavilyName
}

func (c *TavilyClient) Search(ctx context.Context, query string) SearchResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := tavilyRequest{
		APIKey:         c.apiKey,
		Query:          fmt.Sprintf("mathematics %s step by step solution", query),
		SearchDepth:    "advanced",
		IncludeAnswer:  true,
		IncludeDomains: tutoringDomains,
		MaxResults:     c.maxResults,
	}

	var resp tavilyResponse
	if err := c.client.Do(ctx, http.MethodPost, "/search", req, &resp); err != nil {
		c.logger.WithError(err).WithField("provider", TavilyName).Warn("Search failed")
		return failedResult(TavilyName, err)
	}

	docs := make([]Document, 0, len(resp.Results))
	for _, r := range resp.Results {
		docs = append(docs, Document{Title: r.Title, Content: r.Content, URL: r.URL})
	}

	c.logger.WithFields(logrus.Fields{
		"provider":   TavilyName,
		"results":    len(docs),
		"has_answer": resp.Answer != "",
	}).Info("Search completed")

	return SearchResult{
		Provider:     TavilyName,
		Success:      true,
		Documents:    docs,
		DirectAnswer: resp.Answer,
	}
}
