package anthropic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"portfolio-chat/internal/integrations/llm"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	DefaultModel     = "claude-3-sonnet-20240229"
	APIVersion       = "2023-06-01"
	defaultMaxTokens = 1000
)

// messagesRequest is the minimal request shape for the Messages endpoint.
type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the minimal response shape returned by the Messages endpoint.
type messagesResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string  `json:"type"`
		Text *string `json:"text"`
	} `json:"content"`
}

// Adapter speaks the Anthropic Messages API. The credential travels in the
// x-api-key header.
type Adapter struct {
	baseURL   string
	model     string
	maxTokens int
}

type Option func(*Adapter)

func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) {
		a.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithModel(model string) Option {
	return func(a *Adapter) {
		if m := strings.TrimSpace(model); m != "" {
			a.model = m
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{
		baseURL:   defaultBaseURL,
		model:     DefaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string {
	return "anthropic"
}

func messagesURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/messages"
	}
	return base + "/v1/messages"
}

func (a *Adapter) BuildRequest(prompt, credential string) (llm.Request, error) {
	if credential == "" {
		return llm.Request{}, errors.New("anthropic: credential must not be empty")
	}
	body, err := json.Marshal(messagesRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return llm.Request{}, fmt.Errorf("anthropic: marshal request: %w", err)
	}
	return llm.Request{
		URL: messagesURL(a.baseURL),
		Headers: map[string]string{
			"Content-Type":      "application/json",
			"x-api-key":         credential,
			"anthropic-version": APIVersion,
		},
		Body: body,
	}, nil
}

// ExtractReplyText returns content[0].text. An empty text is a valid reply; a
// block without a text field is not.
func (a *Adapter) ExtractReplyText(body []byte) (string, error) {
	var payload messagesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}
	if len(payload.Content) == 0 {
		return "", errors.New("anthropic: no content in response")
	}
	text := payload.Content[0].Text
	if text == nil {
		return "", errors.New("anthropic: first content block has no text")
	}
	return *text, nil
}
