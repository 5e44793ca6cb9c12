package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"portfolio-chat/internal/domain"
	"portfolio-chat/internal/usecase"
)

const (
	headerCorrelationID = "X-Correlation-Id"
	timestampLayout     = "2006-01-02T15:04:05.000Z07:00"

	msgMethodNotAllowed = "Method not allowed"
	msgMessageRequired  = "Message is required"
	msgConfiguration    = "API configuration error"
	msgAuthFailed       = "API authentication failed"
	msgRateLimited      = "Rate limit exceeded. Please try again in a moment."
	msgUnavailable      = "AI service temporarily unavailable"
	msgInternal         = "Internal server error"
	msgInternalDetail   = "Please try again or contact Richard directly"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type",
}

type ChatUseCase interface {
	Chat(ctx context.Context, in domain.ChatRequest) (domain.Reply, error)
}

type Handler struct {
	uc ChatUseCase
}

type chatResponse struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func NewHandler(uc ChatUseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	return &Handler{uc: uc}, nil
}

// Handle serves one API Gateway proxy event. It always returns a nil error:
// every failure, panics included, becomes a JSON error response.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	correlationID := correlationIDFrom(event.Headers)
	logger := slog.With("correlation_id", correlationID)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "panic in chat handler", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			resp, err = internalErrorResponse(correlationID), nil
		}
	}()

	switch strings.ToUpper(event.HTTPMethod) {
	case http.MethodOptions:
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    responseHeaders(correlationID, false),
		}, nil
	case http.MethodPost:
	default:
		return jsonResponse(http.StatusMethodNotAllowed, correlationID, errorResponse{Error: msgMethodNotAllowed}), nil
	}

	in, decodeErr := decodeBody(event)
	if decodeErr != nil {
		logger.ErrorContext(ctx, "chat request body rejected", "err", decodeErr)
		return internalErrorResponse(correlationID), nil
	}

	reply, chatErr := h.uc.Chat(ctx, in)
	if chatErr != nil {
		return errorToResponse(ctx, logger, correlationID, chatErr), nil
	}

	return jsonResponse(http.StatusOK, correlationID, chatResponse{
		Response:  reply.Response,
		Timestamp: reply.Timestamp.UTC().Format(timestampLayout),
	}), nil
}

// decodeBody treats an empty body as an empty request so that validation,
// not parsing, reports the missing message.
func decodeBody(event events.APIGatewayProxyRequest) (domain.ChatRequest, error) {
	raw := event.Body
	if event.IsBase64Encoded {
		buf, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return domain.ChatRequest{}, fmt.Errorf("handler: decode base64 body: %w", err)
		}
		raw = string(buf)
	}
	var in domain.ChatRequest
	if strings.TrimSpace(raw) == "" {
		return in, nil
	}
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return domain.ChatRequest{}, fmt.Errorf("handler: decode body: %w", err)
	}
	return in, nil
}

func errorToResponse(ctx context.Context, logger *slog.Logger, correlationID string, err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		logger.ErrorContext(ctx, "chat request failed", "code", usecase.ErrorInternal, "err", err)
		return internalErrorResponse(correlationID)
	}

	attrs := []any{"code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		logger.InfoContext(ctx, "chat request invalid", attrs...)
		return jsonResponse(http.StatusBadRequest, correlationID, errorResponse{Error: msgMessageRequired})
	case usecase.ErrorConfiguration:
		logger.ErrorContext(ctx, "upstream API key not configured", attrs...)
		return jsonResponse(http.StatusInternalServerError, correlationID, errorResponse{Error: msgConfiguration})
	case usecase.ErrorUpstreamAuth:
		logger.ErrorContext(ctx, "upstream API error", attrs...)
		return jsonResponse(http.StatusInternalServerError, correlationID, errorResponse{Error: msgAuthFailed})
	case usecase.ErrorRateLimited:
		logger.WarnContext(ctx, "upstream API error", attrs...)
		return jsonResponse(http.StatusTooManyRequests, correlationID, errorResponse{Error: msgRateLimited})
	case usecase.ErrorUpstream:
		logger.ErrorContext(ctx, "upstream API error", attrs...)
		return jsonResponse(http.StatusInternalServerError, correlationID, errorResponse{Error: msgUnavailable})
	default:
		logger.ErrorContext(ctx, "chat request failed", attrs...)
		return internalErrorResponse(correlationID)
	}
}

func internalErrorResponse(correlationID string) events.APIGatewayProxyResponse {
	return jsonResponse(http.StatusInternalServerError, correlationID, errorResponse{
		Error:   msgInternal,
		Message: msgInternalDetail,
	})
}

func jsonResponse(status int, correlationID string, v any) events.APIGatewayProxyResponse {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"` + msgInternal + `","message":"` + msgInternalDetail + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    responseHeaders(correlationID, true),
		Body:       string(b),
	}
}

func responseHeaders(correlationID string, withJSON bool) map[string]string {
	headers := make(map[string]string, len(corsHeaders)+2)
	for k, v := range corsHeaders {
		headers[k] = v
	}
	if withJSON {
		headers["Content-Type"] = "application/json"
	}
	headers[headerCorrelationID] = correlationID
	return headers
}

func correlationIDFrom(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, headerCorrelationID) {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return newCorrelationID()
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
