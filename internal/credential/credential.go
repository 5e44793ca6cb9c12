// Package credential resolves the upstream provider secret. Every source is
// consulted on each call; nothing is cached between invocations.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"

	"portfolio-chat/internal/integrations/paramstore"
)

// ErrMissing reports that no credential is configured. It is a configuration
// error, not a transient failure.
var ErrMissing = errors.New("credential: not configured")

// Env reads the credential from an environment variable.
type Env struct {
	key    string
	lookup func(string) string
}

func NewEnv(key string) (*Env, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("credential: env key must not be empty")
	}
	return &Env{key: key, lookup: os.Getenv}, nil
}

func (e *Env) Credential(_ context.Context) (string, error) {
	v := strings.TrimSpace(e.lookup(e.key))
	if v == "" {
		return "", fmt.Errorf("credential: env %s: %w", e.key, ErrMissing)
	}
	return v, nil
}

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

// SSM reads the credential from a SecureString parameter holding
// {"token": "..."}.
type SSM struct {
	params paramstore.Getter
	name   string
}

func NewSSM(params paramstore.Getter, name string) (*SSM, error) {
	if params == nil {
		return nil, errors.New("credential: parameter getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("credential: parameter name must not be empty")
	}
	return &SSM{params: params, name: name}, nil
}

func (s *SSM) Credential(ctx context.Context) (string, error) {
	raw, err := s.params.GetParameter(ctx, s.name)
	if err != nil {
		if errors.Is(err, paramstore.ErrNotFound) {
			return "", fmt.Errorf("credential: %v: %w", err, ErrMissing)
		}
		return "", fmt.Errorf("credential: %w", err)
	}

	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("credential: unmarshal parameter %q as JSON: %w", s.name, err)
	}
	token := strings.TrimSpace(tp.Token)
	if token == "" {
		return "", fmt.Errorf("credential: parameter %q has empty token: %w", s.name, ErrMissing)
	}
	return token, nil
}

// AWS checks that the ambient AWS credential chain yields keys. Providers that
// sign with SigV4 use it; the returned value is the access key id.
type AWS struct {
	provider aws.CredentialsProvider
}

func NewAWS(provider aws.CredentialsProvider) (*AWS, error) {
	if provider == nil {
		return nil, errors.New("credential: aws credentials provider must not be nil")
	}
	return &AWS{provider: provider}, nil
}

func (a *AWS) Credential(ctx context.Context) (string, error) {
	creds, err := a.provider.Retrieve(ctx)
	if err != nil {
		return "", fmt.Errorf("credential: retrieve aws credentials: %v: %w", err, ErrMissing)
	}
	if !creds.HasKeys() {
		return "", fmt.Errorf("credential: aws credentials have no keys: %w", ErrMissing)
	}
	return creds.AccessKeyID, nil
}
