package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsbedrock "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"portfolio-chat/handler"
	"portfolio-chat/internal/credential"
	"portfolio-chat/internal/integrations/anthropic"
	"portfolio-chat/internal/integrations/bedrock"
	"portfolio-chat/internal/integrations/gemini"
	"portfolio-chat/internal/integrations/llm"
	"portfolio-chat/internal/integrations/paramstore"
	"portfolio-chat/internal/usecase"
)

func main() {
	ctx := context.Background()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	})))

	// ---- Configuration (read only here) ----
	provider := strings.ToLower(envString("LLM_PROVIDER", "anthropic"))
	apiKeyParam := strings.TrimSpace(os.Getenv("API_KEY_PARAM"))
	maxOutputTokens := envInt("MAX_OUTPUT_TOKENS", 1000)
	upstreamTimeout := envDuration("UPSTREAM_TIMEOUT", 30*time.Second)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Provider ----
	var (
		llmClient usecase.LLMClient
		creds     usecase.CredentialSource
	)
	switch provider {
	case "anthropic":
		llmClient = mustHTTPClient(anthropic.NewAdapter(
			anthropic.WithModel(os.Getenv("ANTHROPIC_MODEL")),
			anthropic.WithMaxTokens(maxOutputTokens),
		), upstreamTimeout)
		creds = secretSource(cfg, apiKeyParam, "ANTHROPIC_API_KEY")
	case "gemini":
		llmClient = mustHTTPClient(gemini.NewAdapter(
			gemini.WithModel(os.Getenv("GEMINI_MODEL")),
			gemini.WithMaxOutputTokens(maxOutputTokens),
		), upstreamTimeout)
		creds = secretSource(cfg, apiKeyParam, "GEMINI_API_KEY")
	case "bedrock":
		bedrockClient, err := bedrock.NewClient(
			awsbedrock.NewFromConfig(cfg),
			mustEnv("BEDROCK_MODEL_ID"),
			bedrock.WithMaxTokens(maxOutputTokens),
			bedrock.WithTimeout(upstreamTimeout),
		)
		if err != nil {
			slog.Error("failed to create Bedrock client", "err", err)
			os.Exit(1)
		}
		llmClient = bedrockClient
		creds, err = credential.NewAWS(cfg.Credentials)
		if err != nil {
			slog.Error("failed to create AWS credential source", "err", err)
			os.Exit(1)
		}
	default:
		slog.Error("unsupported LLM provider", "provider", provider)
		os.Exit(1)
	}

	// ---- Handler ----
	chatService, err := usecase.NewChatService(creds, llmClient)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(chatService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	slog.Info("chat handler ready", "provider", llmClient.Name(), "upstream_timeout", upstreamTimeout.String())
	lambda.Start(h.Handle)
}

func mustHTTPClient(adapter llm.Adapter, timeout time.Duration) *llm.Client {
	c, err := llm.NewClient(adapter, llm.WithTimeout(timeout))
	if err != nil {
		slog.Error("failed to create LLM client", "provider", adapter.Name(), "err", err)
		os.Exit(1)
	}
	return c
}

// secretSource prefers an SSM parameter when one is configured and falls back
// to the provider's environment variable.
func secretSource(cfg aws.Config, param, envKey string) usecase.CredentialSource {
	if param != "" {
		params, err := paramstore.New(awsssm.NewFromConfig(cfg))
		if err != nil {
			slog.Error("failed to create paramstore client", "err", err)
			os.Exit(1)
		}
		src, err := credential.NewSSM(params, param)
		if err != nil {
			slog.Error("failed to create SSM credential source", "err", err)
			os.Exit(1)
		}
		return src
	}
	src, err := credential.NewEnv(envKey)
	if err != nil {
		slog.Error("failed to create env credential source", "err", err)
		os.Exit(1)
	}
	return src
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func logLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
