package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"portfolio-chat/internal/integrations/llm"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"
)

// GenerationConfig holds the fixed sampling parameters sent with every call.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1000,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Role  string `json:"role"`
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// Adapter speaks the Gemini generateContent API. The credential travels as
// the key query parameter.
type Adapter struct {
	baseURL string
	model   string
	config  GenerationConfig
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

func WithMaxOutputTokens(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.config.MaxOutputTokens = n
		}
	}
}

func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{
		baseURL: defaultBaseURL,
		model:   DefaultModel,
		config:  DefaultGenerationConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string {
	return "gemini"
}

func generateURL(baseURL, model, key string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/models/" + url.PathEscape(model) + ":generateContent?key=" + url.QueryEscape(key)
}

func (a *Adapter) BuildRequest(prompt, credential string) (llm.Request, error) {
	if credential == "" {
		return llm.Request{}, errors.New("gemini: credential must not be empty")
	}
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: a.config,
	})
	if err != nil {
		return llm.Request{}, fmt.Errorf("gemini: marshal request: %w", err)
	}
	return llm.Request{
		URL:     generateURL(a.baseURL, a.model, credential),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	}, nil
}

// ExtractReplyText returns candidates[0].content.parts[0].text.
func (a *Adapter) ExtractReplyText(body []byte) (string, error) {
	var payload generateResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(payload.Candidates) == 0 {
		return "", errors.New("gemini: no candidates in response")
	}
	parts := payload.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == nil {
		return "", errors.New("gemini: first candidate has no text part")
	}
	return *parts[0].Text, nil
}
