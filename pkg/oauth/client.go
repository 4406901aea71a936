package oauth

import (
	"context"
	"fmt"
	"strings"
)

// Client sequences the authorization code flow for one Provider:
// state save, authorization URL, state check, code exchange and user
// info retrieval. It is safe for concurrent use when its StateStorage is.
type Client struct {
	provider Provider
	storage  StateStorage
	usePKCE  bool
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithStateStorage sets where pending state and code verifiers are kept.
// The default is a NewMemoryStateStorage with DefaultStateTTL.
func WithStateStorage(s StateStorage) ClientOption {
	return func(c *Client) {
		c.storage = s
	}
}

// NewClient creates a Client for provider. The provider's options must
// pass Options.Validate. The PKCE flag is copied from the options.
func NewClient(provider Provider, opts ...ClientOption) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: provider is nil", ErrInvalidConfiguration)
	}

	options := provider.Options()
	if err := options.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		provider: provider,
		usePKCE:  options.UsePKCE,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.storage == nil {
		c.storage = NewMemoryStateStorage(DefaultStateTTL)
	}

	return c, nil
}

// Provider returns the client's provider.
func (c *Client) Provider() Provider { return c.provider }

// StateStorage returns the client's state storage.
func (c *Client) StateStorage() StateStorage { return c.storage }

// UsePKCE reports whether the client sends PKCE parameters.
func (c *Client) UsePKCE() bool { return c.usePKCE }

// AuthorizationURL stores state (and, with PKCE, a fresh code verifier)
// and returns the provider's authorization URL.
func (c *Client) AuthorizationURL(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", fmt.Errorf("%w: state is empty", ErrInvalidState)
	}

	if err := c.storage.SaveState(ctx, state); err != nil {
		return "", fmt.Errorf("%w: save state: %v", ErrStateStorage, err)
	}

	var challenge string
	if c.usePKCE {
		verifier := GenerateCodeVerifier()
		if err := c.storage.SaveCodeVerifier(ctx, verifier); err != nil {
			return "", fmt.Errorf("%w: save code verifier: %v", ErrStateStorage, err)
		}
		challenge = GenerateCodeChallenge(verifier)
	}

	return c.provider.AuthorizationURL(state, challenge), nil
}

// VerifyState consumes the stored state and compares it with returned.
// The stored value is removed whatever the outcome.
func (c *Client) VerifyState(ctx context.Context, returned string) error {
	stored, err := c.storage.TakeState(ctx)
	if err != nil {
		return fmt.Errorf("%w: load state: %v", ErrStateStorage, err)
	}
	if stored == "" || stored != returned {
		return ErrInvalidState
	}
	return nil
}

// ValidateState reports whether returned matches the stored state. It
// returns true at most once per stored value.
func (c *Client) ValidateState(ctx context.Context, returned string) bool {
	return c.VerifyState(ctx, returned) == nil
}

// AccessToken exchanges code for a token, sending the stored code
// verifier when PKCE is enabled.
func (c *Client) AccessToken(ctx context.Context, code string) (*Token, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrMissingCode
	}

	var verifier string
	if c.usePKCE {
		v, err := c.storage.TakeCodeVerifier(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: load code verifier: %v", ErrStateStorage, err)
		}
		if v == "" {
			return nil, fmt.Errorf("%w: code verifier not found", ErrInvalidState)
		}
		verifier = v
	}

	return c.provider.ExchangeCode(ctx, code, verifier)
}

// UserInfo fetches the raw user info document.
func (c *Client) UserInfo(ctx context.Context, accessToken string) ([]byte, error) {
	return c.provider.FetchUserInfo(ctx, accessToken)
}

// RefreshAccessToken obtains a new token with refreshToken.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*Token, error) {
	return c.provider.RefreshAccessToken(ctx, refreshToken)
}

// ValidateAuthorization completes an attempt whose state has already been
// checked: it exchanges code, fetches and parses the user info. It never
// returns an error or panics; failures are reported in the result.
func (c *Client) ValidateAuthorization(ctx context.Context, code string) (result *AuthorizationResult) {
	if ctx == nil {
		ctx = context.Background()
	}

	name := c.provider.Name()
	step := StepStateValidated

	defer func() {
		if r := recover(); r != nil {
			result = Failed(name, step, fmt.Errorf("oauth: provider panic: %v", r))
		}
	}()

	if strings.TrimSpace(code) == "" {
		return Failed(name, step, ErrMissingCode)
	}

	token, err := c.AccessToken(ctx, code)
	if err != nil {
		return Failed(name, step, err)
	}
	if token == nil || token.AccessToken == "" {
		return Failed(name, step, fmt.Errorf("%w: %w", ErrTokenExchangeFailed, ErrMissingToken))
	}
	step = StepTokenExchanged

	raw, err := c.UserInfo(ctx, token.AccessToken)
	if err != nil {
		return Failed(name, step, err)
	}

	user, err := c.provider.ParseUserJSON(raw)
	if err != nil {
		return Failed(name, step, err)
	}

	return Succeeded(name, token, user)
}
