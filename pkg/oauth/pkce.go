package oauth

import "golang.org/x/oauth2"

// GenerateCodeVerifier returns a fresh PKCE code verifier: 32 random bytes,
// base64url encoded without padding (43 characters).
func GenerateCodeVerifier() string {
	return oauth2.GenerateVerifier()
}

// GenerateCodeChallenge derives the S256 code challenge of verifier:
// base64url(SHA-256(verifier)) without padding.
func GenerateCodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

const codeChallengeMethod = "S256"
