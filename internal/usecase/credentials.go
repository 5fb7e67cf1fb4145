package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"chat-relay/internal/domain"
)

// PlaceholderAppID is the sample value shipped in .env templates.
const PlaceholderAppID = "your-workflow-id-here"

const configHint = "Please set valid DIFY_API_KEY and DIFY_APP_ID in .env file"

// CredentialSource yields the upstream credentials for a turn.
type CredentialSource interface {
	Credentials(ctx context.Context) (domain.Credentials, error)
}

// TokenGetter reads a secret token by name. *paramstore.Client satisfies it.
type TokenGetter interface {
	GetToken(ctx context.Context, name string) (string, error)
}

// StaticCredentials serves credentials fixed at startup.
type StaticCredentials domain.Credentials

func (c StaticCredentials) Credentials(context.Context) (domain.Credentials, error) {
	return domain.Credentials(c), nil
}

// ParamStoreCredentials loads the API key from a parameter store on first
// use. A failed load is retried on the next turn; a successful one is kept
// for the lifetime of the process.
type ParamStoreCredentials struct {
	tokens    TokenGetter
	paramName string
	appID     string

	mu     sync.RWMutex
	loaded bool
	apiKey string
}

func NewParamStoreCredentials(tokens TokenGetter, paramName, appID string) (*ParamStoreCredentials, error) {
	if tokens == nil {
		return nil, errors.New("usecase: token getter must not be nil")
	}
	paramName = strings.TrimSpace(paramName)
	if paramName == "" {
		return nil, errors.New("usecase: api key parameter name must not be empty")
	}
	return &ParamStoreCredentials{tokens: tokens, paramName: paramName, appID: appID}, nil
}

func (c *ParamStoreCredentials) Credentials(ctx context.Context) (domain.Credentials, error) {
	c.mu.RLock()
	if c.loaded {
		defer c.mu.RUnlock()
		return domain.Credentials{APIKey: c.apiKey, AppID: c.appID}, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		key, err := c.tokens.GetToken(ctx, c.paramName)
		if err != nil {
			return domain.Credentials{}, fmt.Errorf("usecase: load api key: %w", err)
		}
		c.apiKey = key
		c.loaded = true
	}
	return domain.Credentials{APIKey: c.apiKey, AppID: c.appID}, nil
}

// validateCredentials rejects empty values and the template placeholder.
func validateCredentials(c domain.Credentials) error {
	appID := strings.TrimSpace(c.AppID)
	switch {
	case strings.TrimSpace(c.APIKey) == "":
		return errors.New("usecase: api key is not set")
	case appID == "":
		return errors.New("usecase: app id is not set")
	case appID == PlaceholderAppID:
		return errors.New("usecase: app id is a placeholder")
	}
	return nil
}
