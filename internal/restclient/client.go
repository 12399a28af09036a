package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// maxErrorBody caps how much of a failed response is kept in errors and logs.
const maxErrorBody = 512

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client is a small JSON-over-HTTP client shared by the external API
// wrappers (Gemini, HuggingFace, Tavily, Serper).
type Client struct {
	service    string
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
	logger     *logrus.Logger
}

type Option func(*Client)

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithBearer sets an Authorization: Bearer header when token is non-empty.
func WithBearer(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.headers["Authorization"] = "Bearer " + token
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(service, baseURL string, timeout time.Duration, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		service: service,
		baseURL: baseURL,
		headers: map[string]string{"Content-Type": "application/json"},
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends payload as JSON and decodes the response body into result when
// result is non-nil.
func (c *Client) Do(ctx context.Context, method, endpoint string, payload interface{}, result interface{}) error {
	var body io.Reader
	var sent int
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", c.service, err)
		}
		body = bytes.NewReader(data)
		sent = len(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.service, err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	entry := c.logger.WithFields(logrus.Fields{
		"service":  c.service,
		"method":   method,
		"endpoint": endpoint,
		"sent":     sent,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", c.service, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", c.service, err)
	}

	entry = entry.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"received": len(raw),
		"duration": time.Since(start),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(raw)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		entry.WithField("body", snippet).Debug("External API returned an error")
		return &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}
	entry.Debug("External API call")

	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.service, err)
	}
	return nil
}
