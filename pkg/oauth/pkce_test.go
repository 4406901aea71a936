package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

func TestGenerateCodeVerifier(t *testing.T) {
	v1 := GenerateCodeVerifier()
	v2 := GenerateCodeVerifier()

	if len(v1) < 43 {
		t.Errorf("Expected at least 43 characters, got %d", len(v1))
	}
	if v1 == v2 {
		t.Error("Expected distinct verifiers")
	}
	if strings.ContainsAny(v1, "+/=") {
		t.Errorf("Verifier is not base64url without padding: %s", v1)
	}
}

func TestGenerateCodeChallenge(t *testing.T) {
	// RFC 7636 Appendix B
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	if got := GenerateCodeChallenge(verifier); got != want {
		t.Errorf("GenerateCodeChallenge() = %s, want %s", got, want)
	}
}

func TestGenerateCodeChallenge_MatchesSHA256(t *testing.T) {
	for i := 0; i < 20; i++ {
		verifier := GenerateCodeVerifier()
		sum := sha256.Sum256([]byte(verifier))

		challenge := GenerateCodeChallenge(verifier)
		if challenge != base64.RawURLEncoding.EncodeToString(sum[:]) {
			t.Fatalf("Challenge mismatch for verifier %s", verifier)
		}
		if strings.ContainsAny(challenge, "+/=") {
			t.Fatalf("Challenge is not base64url without padding: %s", challenge)
		}
	}
}
