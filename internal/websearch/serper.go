package websearch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/restclient"
)

const (
	SerperName       = "serper"
	DefaultSerperURL = "https://google.serper.dev"
)

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
	AnswerBox struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answerBox"`
	KnowledgeGraph struct {
		Description string `json:"description"`
	} `json:"knowledgeGraph"`
}

// SerperClient searches Google through serper.dev.
type SerperClient struct {
	client     *restclient.Client
	timeout    time.Duration
	numResults int
	logger     *logrus.Logger
}

func NewSerperClient(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *SerperClient {
	if baseURL == "" {
		baseURL = DefaultSerperURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SerperClient{
		client:     restclient.New(SerperName, baseURL, timeout, logger, restclient.WithHeader("X-API-KEY", apiKey)),
		timeout:    timeout,
		numResults: 10,
		logger:     logger,
	}
}

func (c *SerperClient) Name() string {
	return SerperName
}

func (c *SerperClient) Search(ctx context.Context, query string) SearchResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := serperRequest{
		Q:   fmt.Sprintf("mathematics %s step by step solution tutorial", query),
		Num: c.numResults,
		GL:  "us",
		HL:  "en",
	}

	var resp serperResponse
	if err := c.client.Do(ctx, http.MethodPost, "/search", req, &resp); err != nil {
		c.logger.WithError(err).WithField("provider", SerperName).Warn("Search failed")
		return failedResult(SerperName, err)
	}

	docs := make([]Document, 0, len(resp.Organic))
	for _, r := range resp.Organic {
		docs = append(docs, Document{Title: r.Title, Content: r.Snippet, URL: r.Link})
	}

	// answer box wins over the knowledge graph
	graph := strings.TrimSpace(resp.KnowledgeGraph.Description)
	answer := strings.TrimSpace(resp.AnswerBox.Answer)
	if answer == "" {
		answer = graph
	}

	c.logger.WithFields(logrus.Fields{
		"provider":   SerperName,
		"results":    len(docs),
		"has_answer": answer != "",
		"has_graph":  graph != "",
	}).Info("Search completed")

	return SearchResult{
		Provider:     SerperName,
		Success:      true,
		Documents:    docs,
		DirectAnswer:   answer,
		KnowledgeGraph: graph,
	}
}
