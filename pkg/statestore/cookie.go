package statestore

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeff377/bee-oauth2/pkg/oauth"
)

// MinSecretSize is the shortest accepted cookie signing secret.
const MinSecretSize = 32

const (
	subjectState    = "state"
	subjectVerifier = "code_verifier"
)

// CookieConfig configures a Cookie storage.
type CookieConfig struct {
	// Name prefixes the cookie names ("<Name>_state", "<Name>_cv").
	// Default "oauth2".
	Name string

	// Secret signs the cookies (HS256). At least MinSecretSize bytes.
	Secret []byte

	// TTL bounds the life of a pending value. Default oauth.DefaultStateTTL.
	TTL time.Duration

	CookieAttributes
}

// Cookie stores the state and code verifier in signed, HttpOnly cookies.
// Each value is a JWT whose subject names the slot and whose exp claim
// enforces the TTL; a cookie that is expired, forged or moved to the other
// slot reads as absent.
type Cookie struct {
	cfg CookieConfig
	now func() time.Time
}

var _ oauth.StateStorage = (*Cookie)(nil)

type valueClaims struct {
	Value string `json:"v"`
	jwt.RegisteredClaims
}

// NewCookie creates a Cookie storage.
func NewCookie(cfg CookieConfig) (*Cookie, error) {
	if len(cfg.Secret) < MinSecretSize {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrInvalidSecret, MinSecretSize, len(cfg.Secret))
	}
	if cfg.Name == "" {
		cfg.Name = "oauth2"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = oauth.DefaultStateTTL
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)

	return &Cookie{cfg: cfg, now: time.Now}, nil
}

func (c *Cookie) SaveState(ctx context.Context, state string) error {
	return c.save(ctx, subjectState, state)
}

func (c *Cookie) TakeState(ctx context.Context) (string, error) {
	return c.take(ctx, subjectState)
}

func (c *Cookie) SaveCodeVerifier(ctx context.Context, verifier string) error {
	return c.save(ctx, subjectVerifier, verifier)
}

func (c *Cookie) TakeCodeVerifier(ctx context.Context) (string, error) {
	return c.take(ctx, subjectVerifier)
}

func (c *Cookie) cookieName(subject string) string {
	if subject == subjectVerifier {
		return c.cfg.Name + "_cv"
	}
	return c.cfg.Name + "_state"
}

func (c *Cookie) save(ctx context.Context, subject, value string) error {
	x, err := fromContext(ctx)
	if err != nil {
		return err
	}

	now := c.now()
	claims := valueClaims{
		Value: value,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.Secret)
	if err != nil {
		return fmt.Errorf("statestore: sign %s cookie: %w", subject, err)
	}

	x.set(c.cookieName(subject), signed, c.cfg.TTL, c.cfg.CookieAttributes)
	return nil
}

func (c *Cookie) take(ctx context.Context, subject string) (string, error) {
	x, err := fromContext(ctx)
	if err != nil {
		return "", err
	}

	raw, ok := x.take(c.cookieName(subject), c.cfg.CookieAttributes)
	if !ok {
		return "", nil
	}
	return c.parse(raw, subject), nil
}

// parse returns the value sealed in raw, or "" when raw does not verify.
func (c *Cookie) parse(raw, subject string) string {
	claims := &valueClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return c.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(subject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return ""
	}
	return claims.Value
}
