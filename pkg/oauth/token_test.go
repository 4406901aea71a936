package oauth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestToken_Valid(t *testing.T) {
	tests := []struct {
		name  string
		token *Token
		valid bool
	}{
		{
			name:  "no expiry",
			token: &Token{AccessToken: "at"},
			valid: true,
		},
		{
			name:  "future expiry",
			token: &Token{AccessToken: "at", Expiry: time.Now().Add(time.Hour)},
			valid: true,
		},
		{
			name:  "expired",
			token: &Token{AccessToken: "at", Expiry: time.Now().Add(-time.Minute)},
			valid: false,
		},
		{
			name:  "no access token",
			token: &Token{},
			valid: false,
		},
		{
			name:  "nil token",
			token: nil,
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestToken_ExpiresIn(t *testing.T) {
	token := &Token{Expiry: time.Now().Add(-time.Minute)}
	if token.ExpiresIn() != 0 {
		t.Errorf("Expected 0 for expired token, got %v", token.ExpiresIn())
	}

	token = &Token{}
	if token.ExpiresIn() != 0 {
		t.Errorf("Expected 0 without expiry, got %v", token.ExpiresIn())
	}

	token = &Token{Expiry: time.Now().Add(time.Hour)}
	if d := token.ExpiresIn(); d <= 59*time.Minute || d > time.Hour {
		t.Errorf("Unexpected ExpiresIn %v", d)
	}
}

func TestSplitScopes(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"openid", []string{"openid"}},
		{"openid profile  email", []string{"openid", "profile", "email"}},
		{"read:user,user:email", []string{"read:user", "user:email"}},
		{" a, b ", []string{"a", "b"}},
	}

	for _, tt := range tests {
		got := splitScopes(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitScopes(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitScopes(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}

func TestParseTokenResponse(t *testing.T) {
	token, err := parseTokenResponse([]byte(`{"access_token":"at","token_type":"bearer","expires_in":120}`), ErrTokenExchangeFailed)
	if err != nil {
		t.Fatalf("parseTokenResponse() failed: %v", err)
	}
	if token.TokenType != "bearer" {
		t.Errorf("Expected token type 'bearer', got '%s'", token.TokenType)
	}
	if token.Expiry.IsZero() {
		t.Error("Expected expiry to be set")
	}

	_, err = parseTokenResponse([]byte(`{"refresh_token":"rt"}`), ErrRefreshFailed)
	if !errors.Is(err, ErrMissingToken) || !errors.Is(err, ErrRefreshFailed) {
		t.Errorf("Expected ErrMissingToken wrapped in ErrRefreshFailed, got %v", err)
	}
}

func TestTokenFromOAuth2(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	src := (&oauth2.Token{
		AccessToken:  "at",
		TokenType:    "Bearer",
		RefreshToken: "rt",
		Expiry:       expiry,
	}).WithExtra(map[string]interface{}{
		"id_token": "idt",
		"scope":    "openid email",
	})

	token := tokenFromOAuth2(src)

	if token.AccessToken != "at" || token.RefreshToken != "rt" || token.IDToken != "idt" {
		t.Errorf("Unexpected token %+v", token)
	}
	if !token.Expiry.Equal(expiry) {
		t.Errorf("Expected expiry %v, got %v", expiry, token.Expiry)
	}
	if len(token.Scopes) != 2 {
		t.Errorf("Expected 2 scopes, got %v", token.Scopes)
	}
}
