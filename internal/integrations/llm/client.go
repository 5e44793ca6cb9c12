package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// Request is a fully-built upstream call produced by an Adapter.
type Request struct {
	URL     string
	Headers map[string]string
	Body    []byte
}

// Adapter translates a prompt into one provider's wire format and back.
// New providers are added by implementing Adapter; Client stays unchanged.
type Adapter interface {
	Name() string
	BuildRequest(prompt, credential string) (Request, error)
	ExtractReplyText(body []byte) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// ParseError reports a 2xx upstream body that did not have the expected shape.
type ParseError struct {
	Provider string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse reply: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Client executes a single POST for an Adapter.
type Client struct {
	adapter    Adapter
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds the whole upstream exchange, body read included. It sets
// the timeout on a copy of the configured http.Client, so transports supplied
// through WithHTTPClient are kept.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		hc := http.Client{}
		if c.httpClient != nil {
			hc = *c.httpClient
		}
		hc.Timeout = d
		c.httpClient = &hc
	}
}

func NewClient(adapter Adapter, opts ...Option) (*Client, error) {
	if adapter == nil {
		return nil, errors.New("llm: adapter must not be nil")
	}
	c := &Client{
		adapter:    adapter,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string {
	return c.adapter.Name()
}

// Complete sends prompt upstream and returns the generated text.
func (c *Client) Complete(ctx context.Context, prompt, credential string) (string, error) {
	built, err := c.adapter.BuildRequest(prompt, credential)
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", c.adapter.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, built.URL, bytes.NewReader(built.Body))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", c.adapter.Name(), err)
	}
	for k, v := range built.Headers {
		req.Header.Set(k, v)
	}

	raw, err := c.doJSONRequest(req)
	if err != nil {
		return "", err
	}

	text, err := c.adapter.ExtractReplyText(raw)
	if err != nil {
		return "", &ParseError{Provider: c.adapter.Name(), Err: err}
	}
	return text, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func (c *Client) doJSONRequest(req *http.Request) ([]byte, error) {
	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", c.adapter.Name(), err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			Provider:   c.adapter.Name(),
			StatusCode: res.StatusCode,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read response body: %w", c.adapter.Name(), err)
	}
	return buf, nil
}
