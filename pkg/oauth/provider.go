package oauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Provider is a per-identity-provider protocol adapter for the OAuth 2.0
// authorization code flow. Implementations are safe for concurrent use.
type Provider interface {
	// Name returns the provider's display name (e.g., "Google").
	Name() string

	// Options returns a copy of the provider's options.
	Options() Options

	// RedirectURI returns the callback URL the provider redirects to.
	RedirectURI() string

	// AuthorizationURL builds the URL the user agent is sent to.
	// codeChallenge is optional; when set the PKCE parameters are appended.
	AuthorizationURL(state, codeChallenge string) string

	// ExchangeCode trades an authorization code for a token.
	// codeVerifier is optional and selects the PKCE path.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*Token, error)

	// FetchUserInfo returns the raw user info JSON for accessToken.
	FetchUserInfo(ctx context.Context, accessToken string) ([]byte, error)

	// ParseUserJSON normalizes a user info payload.
	ParseUserJSON(data []byte) (*UserInfo, error)

	// RefreshAccessToken obtains a new token with a refresh token.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*Token, error)
}

// Kind selects a provider variant in NewProvider.
type Kind string

const (
	KindGeneric  Kind = "generic"
	KindGoogle   Kind = "google"
	KindFacebook Kind = "facebook"
	KindLine     Kind = "line"
	KindAzure    Kind = "azure"
	KindAuth0    Kind = "auth0"
	KindOkta     Kind = "okta"
	KindGitHub   Kind = "github"
	KindKeycloak Kind = "keycloak"
)

// Kinds lists every supported provider kind.
func Kinds() []Kind {
	return []Kind{KindGeneric, KindGoogle, KindFacebook, KindLine, KindAzure, KindAuth0, KindOkta, KindGitHub, KindKeycloak}
}

// ProviderOption customizes a provider built by NewProvider or a variant constructor.
type ProviderOption func(*provider)

// WithHTTPClient sets the HTTP client used for token and user info requests.
func WithHTTPClient(c HTTPClient) ProviderOption {
	return func(p *provider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// WithName overrides the provider's display name.
func WithName(name string) ProviderOption {
	return func(p *provider) {
		if name != "" {
			p.name = name
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) ProviderOption {
	return func(p *provider) {
		p.userAgent = ua
	}
}

// NewProvider builds the provider variant named by kind. The options'
// endpoints must already be filled in (see the *Options helpers).
func NewProvider(kind Kind, opts Options, options ...ProviderOption) (Provider, error) {
	var p *provider
	switch kind {
	case KindGeneric:
		p = newGeneric(opts)
	case KindGoogle:
		p = newGoogle(opts)
	case KindFacebook:
		p = newFacebook(opts)
	case KindLine:
		p = newLine(opts)
	case KindAzure:
		p = newAzure(opts)
	case KindAuth0:
		p = newAuth0(opts)
	case KindOkta:
		p = newOkta(opts)
	case KindGitHub:
		p = newGitHub(opts)
	case KindKeycloak:
		p = newKeycloak(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrProviderNotSupported, kind)
	}
	return p.apply(options), nil
}

// NewGeneric creates an RFC 6749 provider that reads OIDC-shaped user info
// (sub, name, email).
func NewGeneric(opts Options, options ...ProviderOption) Provider {
	return newGeneric(opts).apply(options)
}

// NewGoogle creates a Google provider.
func NewGoogle(opts Options, options ...ProviderOption) Provider {
	return newGoogle(opts).apply(options)
}

// NewFacebook creates a Facebook provider.
func NewFacebook(opts Options, options ...ProviderOption) Provider {
	return newFacebook(opts).apply(options)
}

// NewLine creates a LINE Login provider.
func NewLine(opts Options, options ...ProviderOption) Provider {
	return newLine(opts).apply(options)
}

// NewAzure creates a Microsoft identity platform provider.
func NewAzure(opts Options, options ...ProviderOption) Provider {
	return newAzure(opts).apply(options)
}

// NewAuth0 creates an Auth0 provider from tenant options.
func NewAuth0(opts *Auth0Options, options ...ProviderOption) Provider {
	return newAuth0(opts.Options).apply(options)
}

// NewOkta creates an Okta provider from tenant options.
func NewOkta(opts *OktaOptions, options ...ProviderOption) Provider {
	return newOkta(opts.Options).apply(options)
}

// NewGitHub creates a GitHub OAuth App provider.
func NewGitHub(opts Options, options ...ProviderOption) Provider {
	return newGitHub(opts).apply(options)
}

// NewKeycloak creates a Keycloak provider.
func NewKeycloak(opts Options, options ...ProviderOption) Provider {
	return newKeycloak(opts).apply(options)
}

// Variants. Each one fixes its name and overrides only the steps that
// differ from the generic flow.

func newGeneric(opts Options) *provider {
	return newBaseProvider("Generic", opts, oidcKeys)
}

func newGoogle(opts Options) *provider {
	p := newBaseProvider("Google", opts, oidcKeys)
	p.alwaysSendSecret = true
	return p
}

func newFacebook(opts Options) *provider {
	p := newBaseProvider("Facebook", opts, userInfoKeys{
		userID:   []string{"id"},
		userName: []string{"name"},
		email:    []string{"email"},
	})
	p.scopeSeparator = ","
	p.userInfoQuery = url.Values{"fields": {"id,name,email,picture"}}
	p.refreshUnsupported = true
	return p
}

func newLine(opts Options) *provider {
	return newBaseProvider("LINE", opts, userInfoKeys{
		userID:   []string{"userId"},
		userName: []string{"displayName"},
		email:    []string{"email"},
	})
}

func newAzure(opts Options) *provider {
	p := newBaseProvider("Azure", opts, userInfoKeys{
		userID:   []string{"oid", "sub"},
		userName: []string{"name"},
		email:    []string{"email", "userPrincipalName"},
	})
	p.tokenParams = url.Values{"response_mode": {"query"}}
	return p
}

func newAuth0(opts Options) *provider {
	return newBaseProvider("Auth0", opts, userInfoKeys{
		userID:   []string{"sub"},
		userName: []string{"name", "nickname"},
		email:    []string{"email"},
	})
}

func newOkta(opts Options) *provider {
	return newBaseProvider("Okta", opts, preferredUsernameKeys)
}

func newGitHub(opts Options) *provider {
	return newBaseProvider("GitHub", opts, userInfoKeys{
		userID:   []string{"id"},
		userName: []string{"name", "login"},
		email:    []string{"email"},
	})
}

func newKeycloak(opts Options) *provider {
	return newBaseProvider("Keycloak", opts, preferredUsernameKeys)
}

var (
	oidcKeys = userInfoKeys{
		userID:   []string{"sub"},
		userName: []string{"name"},
		email:    []string{"email"},
	}

	preferredUsernameKeys = userInfoKeys{
		userID:   []string{"sub"},
		userName: []string{"name", "preferred_username"},
		email:    []string{"email"},
	}
)

// joinScopes joins scopes with the provider's separator.
func (p *provider) joinScopes() string {
	return strings.Join(p.opts.Scopes, p.scopeSeparator)
}
