package credential

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"

	"portfolio-chat/internal/integrations/paramstore"
)

func TestNewEnv_EmptyKey(t *testing.T) {
	_, err := NewEnv(" ")
	require.Error(t, err)
}

func TestEnv_ReadsOnEveryCall(t *testing.T) {
	env := map[string]string{}
	e, err := NewEnv("ANTHROPIC_API_KEY")
	require.NoError(t, err)
	e.lookup = func(k string) string { return env[k] }

	_, err = e.Credential(context.Background())
	require.ErrorIs(t, err, ErrMissing)
	require.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	env["ANTHROPIC_API_KEY"] = " sk-ant "
	v, err := e.Credential(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-ant", v)

	delete(env, "ANTHROPIC_API_KEY")
	_, err = e.Credential(context.Background())
	require.ErrorIs(t, err, ErrMissing)
}

func TestEnv_UsesProcessEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "AIza-env")
	e, err := NewEnv("GEMINI_API_KEY")
	require.NoError(t, err)
	v, err := e.Credential(context.Background())
	require.NoError(t, err)
	require.Equal(t, "AIza-env", v)
}

// fakeParams is a simple fake implementing paramstore.Getter for tests.
type fakeParams struct {
	value string
	err   error
	calls int
	last  string
}

func (f *fakeParams) GetParameter(_ context.Context, name string) (string, error) {
	f.calls++
	f.last = name
	return f.value, f.err
}

func TestNewSSM_Validates(t *testing.T) {
	_, err := NewSSM(nil, "/p")
	require.Error(t, err)

	_, err = NewSSM(&fakeParams{}, " ")
	require.Error(t, err)
}

func TestSSM_HappyPath_NotCached(t *testing.T) {
	params := &fakeParams{value: `{"token":"sk-from-ssm"}`}
	s, err := NewSSM(params, "/portfolio-chat/api-key")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		v, err := s.Credential(context.Background())
		require.NoError(t, err)
		require.Equal(t, "sk-from-ssm", v)
	}
	require.Equal(t, 2, params.calls)
	require.Equal(t, "/portfolio-chat/api-key", params.last)
}

func TestSSM_MissingCases(t *testing.T) {
	cases := []struct {
		name   string
		params *fakeParams
	}{
		{name: "not found", params: &fakeParams{err: fmt.Errorf("paramstore: get parameter %q: %w", "/p", paramstore.ErrNotFound)}},
		{name: "empty token", params: &fakeParams{value: `{"token":" "}`}},
		{name: "no token field", params: &fakeParams{value: `{"other":"v"}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSSM(tc.params, "/p")
			require.NoError(t, err)
			_, err = s.Credential(context.Background())
			require.ErrorIs(t, err, ErrMissing)
		})
	}
}

func TestSSM_RuntimeFailuresAreNotMissing(t *testing.T) {
	s, err := NewSSM(&fakeParams{err: errors.New("ssm unavailable")}, "/p")
	require.NoError(t, err)
	_, err = s.Credential(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMissing)
	require.Contains(t, err.Error(), "ssm unavailable")

	s, err = NewSSM(&fakeParams{value: `{"broken`}, "/p")
	require.NoError(t, err)
	_, err = s.Credential(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMissing)
	require.Contains(t, err.Error(), "unmarshal")
}

// Runs the real paramstore client over a fake SSM API so ParameterNotFound
// from AWS reaches the caller as ErrMissing.
type fakeSSMAPI struct {
	out *ssm.GetParameterOutput
	err error
}

func (f *fakeSSMAPI) GetParameter(_ context.Context, _ *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	return f.out, f.err
}

func TestSSM_WithParamstoreClient(t *testing.T) {
	client, err := paramstore.New(&fakeSSMAPI{err: &types.ParameterNotFound{}})
	require.NoError(t, err)
	s, err := NewSSM(client, "/p")
	require.NoError(t, err)
	_, err = s.Credential(context.Background())
	require.ErrorIs(t, err, ErrMissing)

	client, err = paramstore.New(&fakeSSMAPI{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Value: aws.String(`{"token":"sk-ant"}`),
	}}})
	require.NoError(t, err)
	s, err = NewSSM(client, "/p")
	require.NoError(t, err)
	v, err := s.Credential(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-ant", v)
}

func TestNewAWS_NilProvider(t *testing.T) {
	_, err := NewAWS(nil)
	require.Error(t, err)
}

func TestAWS_Credential(t *testing.T) {
	a, err := NewAWS(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{AccessKeyID: "AKIA123", SecretAccessKey: "secret"}, nil
	}))
	require.NoError(t, err)
	v, err := a.Credential(context.Background())
	require.NoError(t, err)
	require.Equal(t, "AKIA123", v)

	a, err = NewAWS(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{}, errors.New("no EC2 IMDS role found")
	}))
	require.NoError(t, err)
	_, err = a.Credential(context.Background())
	require.ErrorIs(t, err, ErrMissing)

	a, err = NewAWS(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{}, nil
	}))
	require.NoError(t, err)
	_, err = a.Credential(context.Background())
	require.ErrorIs(t, err, ErrMissing)
}
