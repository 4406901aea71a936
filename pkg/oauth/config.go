package oauth

import (
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Options holds the settings of one OAuth 2.0 provider registration.
// A Provider copies its Options on construction; later changes to the
// caller's value do not affect it.
type Options struct {
	// ClientID is the OAuth client identifier.
	ClientID string

	// ClientSecret is the OAuth client secret (confidential clients).
	ClientSecret string

	// RedirectURI is the callback URL registered with the provider.
	RedirectURI string

	// Scopes are the OAuth scopes to request, in order.
	Scopes []string

	// Endpoint holds the authorization and token endpoint URLs.
	Endpoint oauth2.Endpoint

	// UserInfoURL is the endpoint returning the user's profile JSON.
	UserInfoURL string

	// UsePKCE enables Proof Key for Code Exchange.
	UsePKCE bool
}

// Validate checks that the options carry everything the authorization
// code flow needs.
func (o Options) Validate() error {
	if strings.TrimSpace(o.ClientID) == "" {
		return fmt.Errorf("%w: client_id is required", ErrInvalidConfiguration)
	}
	if strings.TrimSpace(o.RedirectURI) == "" {
		return fmt.Errorf("%w: redirect_uri is required", ErrInvalidConfiguration)
	}
	if strings.TrimSpace(o.Endpoint.AuthURL) == "" {
		return fmt.Errorf("%w: authorization endpoint is required", ErrInvalidConfiguration)
	}
	if strings.TrimSpace(o.Endpoint.TokenURL) == "" {
		return fmt.Errorf("%w: token endpoint is required", ErrInvalidConfiguration)
	}
	if strings.TrimSpace(o.UserInfoURL) == "" {
		return fmt.Errorf("%w: user info endpoint is required", ErrInvalidConfiguration)
	}
	if !o.UsePKCE && o.ClientSecret == "" {
		return fmt.Errorf("%w: client_secret is required when pkce is disabled", ErrInvalidConfiguration)
	}
	return nil
}

// Clone returns a deep copy of the options.
func (o Options) Clone() Options {
	c := o
	if o.Scopes != nil {
		c.Scopes = append([]string(nil), o.Scopes...)
	}
	return c
}

// Pre-configured provider options

// GoogleOptions returns the default Google endpoints and scopes.
func GoogleOptions() Options {
	return Options{
		Scopes: []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		UserInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
	}
}

// FacebookOptions returns the default Facebook Graph API endpoints and scopes.
func FacebookOptions() Options {
	return Options{
		Scopes: []string{"public_profile", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.facebook.com/v18.0/dialog/oauth",
			TokenURL: "https://graph.facebook.com/v18.0/oauth/access_token",
		},
		UserInfoURL: "https://graph.facebook.com/me",
	}
}

// LineOptions returns the default LINE Login v2.1 endpoints and scopes.
func LineOptions() Options {
	return Options{
		Scopes: []string{"profile", "openid", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://access.line.me/oauth2/v2.1/authorize",
			TokenURL: "https://api.line.me/oauth2/v2.1/token",
		},
		UserInfoURL: "https://api.line.me/v2/profile",
	}
}

// AzureOptions returns the default Microsoft identity platform (v2, common tenant) endpoints.
func AzureOptions() Options {
	return Options{
		Scopes: []string{"openid", "profile", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
			TokenURL: "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		},
		UserInfoURL: "https://graph.microsoft.com/oidc/userinfo",
	}
}

// GitHubOptions returns the default GitHub OAuth App endpoints and scopes.
func GitHubOptions() Options {
	return Options{
		Scopes: []string{"read:user", "user:email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://github.com/login/oauth/authorize",
			TokenURL: "https://github.com/login/oauth/access_token",
		},
		UserInfoURL: "https://api.github.com/user",
	}
}

// KeycloakOptions returns the endpoints of a Keycloak realm.
// baseURL is your Keycloak server URL (e.g., "https://keycloak.example.com").
func KeycloakOptions(baseURL, realm string) Options {
	base := fmt.Sprintf("%s/realms/%s/protocol/openid-connect", strings.TrimRight(baseURL, "/"), realm)
	return Options{
		Scopes: []string{"openid", "profile", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  base + "/auth",
			TokenURL: base + "/token",
		},
		UserInfoURL: base + "/userinfo",
	}
}

// Auth0Options are Options whose endpoints derive from an Auth0 tenant domain.
type Auth0Options struct {
	Options
	domain string
}

// NewAuth0Options creates Auth0 options for domain (e.g., "myapp.us.auth0.com").
func NewAuth0Options(domain string) *Auth0Options {
	o := &Auth0Options{
		Options: Options{Scopes: []string{"openid", "profile", "email"}},
	}
	o.SetDomain(domain)
	return o
}

// Domain returns the last domain set.
func (o *Auth0Options) Domain() string { return o.domain }

// SetDomain sets the tenant domain and rewrites the three endpoints.
// An empty domain clears them.
func (o *Auth0Options) SetDomain(domain string) {
	o.domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	if o.domain == "" {
		o.Endpoint = oauth2.Endpoint{}
		o.UserInfoURL = ""
		return
	}
	o.Endpoint = oauth2.Endpoint{
		AuthURL:  fmt.Sprintf("https://%s/authorize", o.domain),
		TokenURL: fmt.Sprintf("https://%s/oauth/token", o.domain),
	}
	o.UserInfoURL = fmt.Sprintf("https://%s/userinfo", o.domain)
}

// defaultOktaServerID is the id of Okta's built-in custom authorization server.
const defaultOktaServerID = "default"

// OktaOptions are Options whose endpoints derive from an Okta domain and
// authorization server id.
type OktaOptions struct {
	Options
	domain   string
	serverID string
}

// NewOktaOptions creates Okta options for domain (e.g., "dev-123456.okta.com"
// or "https://dev-123456.okta.com") using the "default" authorization server.
func NewOktaOptions(domain string) *OktaOptions {
	o := &OktaOptions{
		Options:  Options{Scopes: []string{"openid", "profile", "email"}},
		serverID: defaultOktaServerID,
	}
	o.SetDomain(domain)
	return o
}

// Domain returns the last domain set.
func (o *OktaOptions) Domain() string { return o.domain }

// AuthorizationServerID returns the authorization server id.
func (o *OktaOptions) AuthorizationServerID() string { return o.serverID }

// SetDomain sets the Okta domain and rewrites the endpoints.
func (o *OktaOptions) SetDomain(domain string) {
	o.domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	o.updateEndpoints()
}

// SetAuthorizationServerID sets the authorization server id; empty selects "default".
func (o *OktaOptions) SetAuthorizationServerID(id string) {
	id = strings.Trim(strings.TrimSpace(id), "/")
	if id == "" {
		id = defaultOktaServerID
	}
	o.serverID = id
	o.updateEndpoints()
}

func (o *OktaOptions) updateEndpoints() {
	if o.domain == "" {
		o.Endpoint = oauth2.Endpoint{}
		o.UserInfoURL = ""
		return
	}

	baseURL := o.domain
	if !strings.HasPrefix(strings.ToLower(baseURL), "http") {
		baseURL = "https://" + baseURL
	}

	base := fmt.Sprintf("%s/oauth2/%s/v1", baseURL, o.serverID)
	o.Endpoint = oauth2.Endpoint{
		AuthURL:  base + "/authorize",
		TokenURL: base + "/token",
	}
	o.UserInfoURL = base + "/userinfo"
}
