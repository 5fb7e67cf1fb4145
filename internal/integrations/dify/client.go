package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chat-relay/internal/domain"
)

const (
	DefaultBaseURL = "https://api.dify.ai"
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
	maxErrorBytes    = 64 << 10
)

// ErrResponseTooLarge is returned when a successful reply exceeds the read limit.
var ErrResponseTooLarge = fmt.Errorf("dify: response body exceeds %d bytes", maxResponseBytes)

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("dify: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

func (e *HTTPStatusError) ResponseBody() []byte {
	return e.Body
}

// Client calls the workflow API's "create chat message" endpoint in
// blocking mode.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds each call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("dify: invalid base URL %q", c.baseURL)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

func chatMessagesURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat-messages"
	}
	return base + "/v1/chat-messages"
}

// CreateChatMessage posts one turn and returns the raw response body. A
// non-2xx answer is reported as *HTTPStatusError carrying the upstream body.
func (c *Client) CreateChatMessage(ctx context.Context, apiKey string, in domain.UpstreamRequest) (json.RawMessage, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("dify: api key must not be empty")
	}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("dify: marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := chatMessagesURL(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("dify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dify: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBytes))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        endpoint,
			Body:       buf,
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("dify: read response body: %w", err)
	}
	if len(buf) > maxResponseBytes {
		return nil, ErrResponseTooLarge
	}
	return buf, nil
}
