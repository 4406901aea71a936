package oauth

import (
	"errors"
	"testing"

	"golang.org/x/oauth2"
)

func validOptions() Options {
	return Options{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURI:  "http://localhost:8080/callback",
		Scopes:       []string{"openid", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://idp.example/authorize",
			TokenURL: "https://idp.example/token",
		},
		UserInfoURL: "https://idp.example/userinfo",
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{
			name:    "valid confidential client",
			mutate:  func(o *Options) {},
			wantErr: false,
		},
		{
			name: "valid public client with pkce",
			mutate: func(o *Options) {
				o.ClientSecret = ""
				o.UsePKCE = true
			},
			wantErr: false,
		},
		{
			name:    "missing client id",
			mutate:  func(o *Options) { o.ClientID = " " },
			wantErr: true,
		},
		{
			name:    "missing redirect uri",
			mutate:  func(o *Options) { o.RedirectURI = "" },
			wantErr: true,
		},
		{
			name:    "missing authorization endpoint",
			mutate:  func(o *Options) { o.Endpoint.AuthURL = "" },
			wantErr: true,
		},
		{
			name:    "missing token endpoint",
			mutate:  func(o *Options) { o.Endpoint.TokenURL = "" },
			wantErr: true,
		},
		{
			name:    "missing user info endpoint",
			mutate:  func(o *Options) { o.UserInfoURL = "" },
			wantErr: true,
		},
		{
			name:    "no secret and no pkce",
			mutate:  func(o *Options) { o.ClientSecret = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestOptions_Clone(t *testing.T) {
	opts := validOptions()
	clone := opts.Clone()

	clone.Scopes[0] = "changed"
	if opts.Scopes[0] != "openid" {
		t.Errorf("Clone shares scopes with original: %v", opts.Scopes)
	}
}

func TestDefaultOptions(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		authURL     string
		tokenURL    string
		userInfoURL string
		scopes      []string
	}{
		{
			name:        "google",
			opts:        GoogleOptions(),
			authURL:     "https://accounts.google.com/o/oauth2/auth",
			tokenURL:    "https://oauth2.googleapis.com/token",
			userInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
			scopes:      []string{"openid", "email", "profile"},
		},
		{
			name:        "facebook",
			opts:        FacebookOptions(),
			authURL:     "https://www.facebook.com/v18.0/dialog/oauth",
			tokenURL:    "https://graph.facebook.com/v18.0/oauth/access_token",
			userInfoURL: "https://graph.facebook.com/me",
			scopes:      []string{"public_profile", "email"},
		},
		{
			name:        "line",
			opts:        LineOptions(),
			authURL:     "https://access.line.me/oauth2/v2.1/authorize",
			tokenURL:    "https://api.line.me/oauth2/v2.1/token",
			userInfoURL: "https://api.line.me/v2/profile",
			scopes:      []string{"profile", "openid", "email"},
		},
		{
			name:        "azure",
			opts:        AzureOptions(),
			authURL:     "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
			tokenURL:    "https://login.microsoftonline.com/common/oauth2/v2.0/token",
			userInfoURL: "https://graph.microsoft.com/oidc/userinfo",
			scopes:      []string{"openid", "profile", "email"},
		},
		{
			name:        "github",
			opts:        GitHubOptions(),
			authURL:     "https://github.com/login/oauth/authorize",
			tokenURL:    "https://github.com/login/oauth/access_token",
			userInfoURL: "https://api.github.com/user",
			scopes:      []string{"read:user", "user:email"},
		},
		{
			name:        "keycloak",
			opts:        KeycloakOptions("https://keycloak.example.com/", "master"),
			authURL:     "https://keycloak.example.com/realms/master/protocol/openid-connect/auth",
			tokenURL:    "https://keycloak.example.com/realms/master/protocol/openid-connect/token",
			userInfoURL: "https://keycloak.example.com/realms/master/protocol/openid-connect/userinfo",
			scopes:      []string{"openid", "profile", "email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.opts.Endpoint.AuthURL != tt.authURL {
				t.Errorf("Expected auth URL '%s', got '%s'", tt.authURL, tt.opts.Endpoint.AuthURL)
			}
			if tt.opts.Endpoint.TokenURL != tt.tokenURL {
				t.Errorf("Expected token URL '%s', got '%s'", tt.tokenURL, tt.opts.Endpoint.TokenURL)
			}
			if tt.opts.UserInfoURL != tt.userInfoURL {
				t.Errorf("Expected user info URL '%s', got '%s'", tt.userInfoURL, tt.opts.UserInfoURL)
			}
			if len(tt.opts.Scopes) != len(tt.scopes) {
				t.Fatalf("Expected scopes %v, got %v", tt.scopes, tt.opts.Scopes)
			}
			for i := range tt.scopes {
				if tt.opts.Scopes[i] != tt.scopes[i] {
					t.Errorf("Expected scopes %v, got %v", tt.scopes, tt.opts.Scopes)
				}
			}
		})
	}
}

func TestAuth0Options_SetDomain(t *testing.T) {
	opts := NewAuth0Options("myapp.us.auth0.com/")

	if opts.Domain() != "myapp.us.auth0.com" {
		t.Errorf("Expected trailing slash trimmed, got '%s'", opts.Domain())
	}
	if opts.Endpoint.AuthURL != "https://myapp.us.auth0.com/authorize" {
		t.Errorf("Unexpected auth URL '%s'", opts.Endpoint.AuthURL)
	}
	if opts.Endpoint.TokenURL != "https://myapp.us.auth0.com/oauth/token" {
		t.Errorf("Unexpected token URL '%s'", opts.Endpoint.TokenURL)
	}
	if opts.UserInfoURL != "https://myapp.us.auth0.com/userinfo" {
		t.Errorf("Unexpected user info URL '%s'", opts.UserInfoURL)
	}

	// Endpoints follow the last domain set
	opts.SetDomain("other.eu.auth0.com")
	if opts.Endpoint.AuthURL != "https://other.eu.auth0.com/authorize" {
		t.Errorf("Expected endpoints rewritten, got '%s'", opts.Endpoint.AuthURL)
	}
	if opts.UserInfoURL != "https://other.eu.auth0.com/userinfo" {
		t.Errorf("Expected user info rewritten, got '%s'", opts.UserInfoURL)
	}

	opts.SetDomain("")
	if opts.Endpoint.AuthURL != "" || opts.Endpoint.TokenURL != "" || opts.UserInfoURL != "" {
		t.Errorf("Expected endpoints cleared, got %+v %s", opts.Endpoint, opts.UserInfoURL)
	}
}

func TestOktaOptions(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		serverID string
		authURL  string
	}{
		{
			name:    "bare domain uses default server",
			domain:  "dev-123456.okta.com",
			authURL: "https://dev-123456.okta.com/oauth2/default/v1/authorize",
		},
		{
			name:    "domain with scheme",
			domain:  "http://localhost:9000/",
			authURL: "http://localhost:9000/oauth2/default/v1/authorize",
		},
		{
			name:     "custom authorization server",
			domain:   "dev-123456.okta.com",
			serverID: "aus123",
			authURL:  "https://dev-123456.okta.com/oauth2/aus123/v1/authorize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOktaOptions(tt.domain)
			if tt.serverID != "" {
				opts.SetAuthorizationServerID(tt.serverID)
			}

			if opts.Endpoint.AuthURL != tt.authURL {
				t.Errorf("Expected auth URL '%s', got '%s'", tt.authURL, opts.Endpoint.AuthURL)
			}

			base := tt.authURL[:len(tt.authURL)-len("/authorize")]
			if opts.Endpoint.TokenURL != base+"/token" {
				t.Errorf("Expected token URL '%s', got '%s'", base+"/token", opts.Endpoint.TokenURL)
			}
			if opts.UserInfoURL != base+"/userinfo" {
				t.Errorf("Expected user info URL '%s', got '%s'", base+"/userinfo", opts.UserInfoURL)
			}
		})
	}
}

func TestOktaOptions_EmptyServerIDResetsDefault(t *testing.T) {
	opts := NewOktaOptions("dev-123456.okta.com")
	opts.SetAuthorizationServerID("custom")
	opts.SetAuthorizationServerID("")

	if opts.AuthorizationServerID() != "default" {
		t.Errorf("Expected 'default', got '%s'", opts.AuthorizationServerID())
	}
}
