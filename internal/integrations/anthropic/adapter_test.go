package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfolio-chat/internal/integrations/llm"
)

func TestMessagesURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.anthropic.com/v1", "https://api.anthropic.com/v1/messages"},
		{"https://api.anthropic.com/v1/", "https://api.anthropic.com/v1/messages"},
		{"http://localhost:8080", "http://localhost:8080/v1/messages"},
		{"", "https://api.anthropic.com/v1/messages"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, messagesURL(tc.base), "base=%q", tc.base)
	}
}

func TestNewAdapter_Defaults(t *testing.T) {
	a := NewAdapter()
	require.Equal(t, "anthropic", a.Name())
	require.Equal(t, DefaultModel, a.model)
	require.Equal(t, 1000, a.maxTokens)

	a = NewAdapter(WithModel(" "), WithMaxTokens(0))
	require.Equal(t, DefaultModel, a.model)
	require.Equal(t, 1000, a.maxTokens)
}

func TestBuildRequest(t *testing.T) {
	a := NewAdapter(WithModel("claude-test"), WithMaxTokens(64))
	req, err := a.BuildRequest("the prompt", "sk-ant")
	require.NoError(t, err)
	require.Equal(t, "https://api.anthropic.com/v1/messages", req.URL)
	require.Equal(t, "sk-ant", req.Headers["x-api-key"])
	require.Equal(t, "2023-06-01", req.Headers["anthropic-version"])
	require.Equal(t, "application/json", req.Headers["Content-Type"])

	var body messagesRequest
	require.NoError(t, json.Unmarshal(req.Body, &body))
	require.Equal(t, "claude-test", body.Model)
	require.Equal(t, 64, body.MaxTokens)
	require.Equal(t, []message{{Role: "user", Content: "the prompt"}}, body.Messages)
}

func TestBuildRequest_EmptyCredential(t *testing.T) {
	_, err := NewAdapter().BuildRequest("p", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "credential")
}

func TestExtractReplyText(t *testing.T) {
	a := NewAdapter()

	text, err := a.ExtractReplyText([]byte(`{"id":"msg_1","content":[{"type":"text","text":"Hello"},{"type":"text","text":"ignored"}]}`))
	require.NoError(t, err)
	require.Equal(t, "Hello", text)

	_, err = a.ExtractReplyText([]byte(`not-json`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")

	_, err = a.ExtractReplyText([]byte(`{"content":[]}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no content")

	_, err = a.ExtractReplyText([]byte(`{"content":[{"type":"tool_use"}]}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no text")

	text, err = a.ExtractReplyText([]byte(`{"content":[{"type":"text","text":""}]}`))
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestAdapter_WithLLMClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		require.Equal(t, APIVersion, r.Header.Get("anthropic-version"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(raw), `"max_tokens":1000`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Hello from mock"}]}`))
	}))
	defer srv.Close()

	c, err := llm.NewClient(NewAdapter(WithBaseURL(srv.URL)), llm.WithHTTPClient(&http.Client{Timeout: 2 * time.Second}))
	require.NoError(t, err)
	out, err := c.Complete(context.Background(), "hi", "sk-test")
	require.NoError(t, err)
	require.Equal(t, "Hello from mock", out)
}
