package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"portfolio-chat/internal/integrations/llm"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens = 1000
	defaultTimeout   = 30 * time.Second
)

// invokeAPI is the minimal Bedrock runtime interface required by Client.
// *bedrockruntime.Client satisfies this interface.
type invokeAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type invokeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Messages         []invokeMessage `json:"messages"`
}

type invokeMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type invokeResponse struct {
	Content []struct {
		Type string  `json:"type"`
		Text *string `json:"text"`
	} `json:"content"`
}

// Client runs Claude through Amazon Bedrock. Requests are signed by the SDK,
// so the credential passed to Complete is not sent on the wire.
type Client struct {
	api       invokeAPI
	modelID   string
	maxTokens int
	timeout   time.Duration
}

type Option func(*Client)

func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(api invokeAPI, modelID string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, errors.New("bedrock: model id must not be empty")
	}
	c := &Client{
		api:       api,
		modelID:   modelID,
		maxTokens: defaultMaxTokens,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string {
	return "bedrock"
}

func (c *Client) Complete(ctx context.Context, prompt, _ string) (string, error) {
	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		Messages: []invokeMessage{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: prompt}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		// SDK response errors expose HTTPStatusCode, so callers classify them
		// the same way as llm.HTTPStatusError.
		return "", fmt.Errorf("bedrock: invoke model: %w", err)
	}
	if out == nil {
		return "", &llm.ParseError{Provider: c.Name(), Err: errors.New("empty output")}
	}

	text, err := extractReplyText(out.Body)
	if err != nil {
		return "", &llm.ParseError{Provider: c.Name(), Err: err}
	}
	return text, nil
}

func extractReplyText(body []byte) (string, error) {
	var payload invokeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Content) == 0 || payload.Content[0].Text == nil {
		return "", errors.New("no text content in response")
	}
	return *payload.Content[0].Text, nil
}
