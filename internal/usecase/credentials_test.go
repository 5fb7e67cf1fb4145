package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/internal/domain"
)

type fakeTokens struct {
	token    string
	err      error
	failOnce bool
	calls    int
}

func (f *fakeTokens) GetToken(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.failOnce && f.calls == 1 {
		return "", errors.New("transient ssm failure")
	}
	return f.token, f.err
}

func TestStaticCredentials(t *testing.T) {
	creds, err := StaticCredentials{APIKey: "k", AppID: "a"}.Credentials(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.Credentials{APIKey: "k", AppID: "a"}, creds)
}

func TestNewParamStoreCredentials_Validates(t *testing.T) {
	_, err := NewParamStoreCredentials(nil, "/p", "a")
	require.Error(t, err)
	_, err = NewParamStoreCredentials(&fakeTokens{}, " ", "a")
	require.Error(t, err)
}

func TestParamStoreCredentials_CachesSuccess(t *testing.T) {
	tokens := &fakeTokens{token: "app-from-ssm"}
	src, err := NewParamStoreCredentials(tokens, "/chat-relay/dify-token", "app-1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		creds, err := src.Credentials(context.Background())
		require.NoError(t, err)
		require.Equal(t, domain.Credentials{APIKey: "app-from-ssm", AppID: "app-1"}, creds)
	}
	require.Equal(t, 1, tokens.calls)
}

func TestParamStoreCredentials_RetriesAfterFailure(t *testing.T) {
	tokens := &fakeTokens{token: "app-from-ssm", failOnce: true}
	src, err := NewParamStoreCredentials(tokens, "/chat-relay/dify-token", "app-1")
	require.NoError(t, err)

	_, err = src.Credentials(context.Background())
	require.ErrorContains(t, err, "transient ssm failure")

	creds, err := src.Credentials(context.Background())
	require.NoError(t, err)
	require.Equal(t, "app-from-ssm", creds.APIKey)
	require.Equal(t, 2, tokens.calls)
}

func TestValidateCredentials(t *testing.T) {
	require.NoError(t, validateCredentials(domain.Credentials{APIKey: "k", AppID: "a"}))
	require.ErrorContains(t, validateCredentials(domain.Credentials{AppID: "a"}), "api key")
	require.ErrorContains(t, validateCredentials(domain.Credentials{APIKey: "k", AppID: "  "}), "app id is not set")
	require.ErrorContains(t, validateCredentials(domain.Credentials{APIKey: "k", AppID: PlaceholderAppID}), "placeholder")
}
