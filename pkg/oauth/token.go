package oauth

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Token represents an OAuth 2.0 access token and associated metadata.
type Token struct {
	// AccessToken is the OAuth access token.
	AccessToken string

	// TokenType is the type of token (usually "Bearer").
	TokenType string

	// RefreshToken is used to obtain new access tokens (optional).
	RefreshToken string

	// Expiry is when the access token expires.
	Expiry time.Time

	// Scopes are the scopes granted to this token.
	Scopes []string

	// IDToken is the OpenID Connect ID token (optional). It is carried
	// through unverified.
	IDToken string
}

// Valid returns true if the token carries an access token and is not expired.
func (t *Token) Valid() bool {
	return t != nil && t.AccessToken != "" && !t.Expired()
}

// Expired returns true if the token has expired.
func (t *Token) Expired() bool {
	if t.Expiry.IsZero() {
		return false
	}
	return time.Now().After(t.Expiry)
}

// ExpiresIn returns the duration until the token expires.
// Returns 0 if the token is already expired or has no expiry.
func (t *Token) ExpiresIn() time.Duration {
	if t.Expiry.IsZero() {
		return 0
	}
	d := time.Until(t.Expiry)
	if d < 0 {
		return 0
	}
	return d
}

// tokenResponse is the JSON body of a successful token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	IDToken      string `json:"id_token"`
}

// parseTokenResponse decodes a token endpoint body. op is the sentinel
// reported when the body is not JSON.
func parseTokenResponse(body []byte, op error) (*Token, error) {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", op, err)
	}

	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: %w", op, ErrMissingToken)
	}

	token := &Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
		IDToken:      tr.IDToken,
		Scopes:       splitScopes(tr.Scope),
	}

	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}

	if tr.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	return token, nil
}

// tokenFromOAuth2 converts a token returned by golang.org/x/oauth2.
func tokenFromOAuth2(t *oauth2.Token) *Token {
	token := &Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.Type(),
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
	if idToken, ok := t.Extra("id_token").(string); ok {
		token.IDToken = idToken
	}
	if scope, ok := t.Extra("scope").(string); ok {
		token.Scopes = splitScopes(scope)
	}
	return token
}

// splitScopes splits a granted scope string. Providers separate scopes with
// spaces (RFC 6749) or commas (GitHub, Facebook).
func splitScopes(scope string) []string {
	if scope == "" {
		return nil
	}
	return strings.FieldsFunc(scope, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}
