package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"portfolio-chat/internal/credential"
	"portfolio-chat/internal/domain"
	"portfolio-chat/internal/integrations/llm"
)

type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

type LLMClient interface {
	Name() string
	Complete(ctx context.Context, prompt, credential string) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ChatService turns one chat request into one reply or one *Error. It holds
// no per-request state and is safe for concurrent use.
type ChatService struct {
	creds CredentialSource
	llm   LLMClient
}

func NewChatService(creds CredentialSource, llm LLMClient) (*ChatService, error) {
	if creds == nil {
		return nil, errors.New("usecase: credential source must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	return &ChatService{creds: creds, llm: llm}, nil
}

func (s *ChatService) Chat(ctx context.Context, in domain.ChatRequest) (domain.Reply, error) {
	if in.Message == "" {
		return domain.Reply{}, newError(ErrorInvalidInput, "empty_message", nil)
	}

	key, err := s.creds.Credential(ctx)
	if err != nil {
		if errors.Is(err, credential.ErrMissing) {
			return domain.Reply{}, newError(ErrorConfiguration, "credential_missing", err)
		}
		return domain.Reply{}, newError(ErrorInternal, "credential_lookup_error", err)
	}

	text, err := s.llm.Complete(ctx, buildPrompt(in.Context, in.Message), key)
	if err != nil {
		return domain.Reply{}, classifyUpstreamError(s.llm.Name(), err)
	}

	return domain.Reply{
		Response:  text,
		Timestamp: time.Now().UTC(),
	}, nil
}

func classifyUpstreamError(provider string, err error) *Error {
	var parseErr *llm.ParseError
	if errors.As(err, &parseErr) {
		return newError(ErrorInternal, provider+"_malformed_response", err)
	}
	status, ok := upstreamStatusCode(err)
	if !ok {
		return newError(ErrorInternal, provider+"_call_failed", err)
	}
	switch status {
	case http.StatusUnauthorized:
		return newError(ErrorUpstreamAuth, provider+"_unauthorized", err)
	case http.StatusTooManyRequests:
		return newError(ErrorRateLimited, provider+"_rate_limited", err)
	default:
		return newError(ErrorUpstream, provider+"_error", err)
	}
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
