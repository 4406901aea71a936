package statestore

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

type exchangeKey struct{}

// exchange is the request/response pair of one HTTP round trip. Cookies
// written or consumed during the request shadow the request's own cookies,
// so a value taken once cannot be read again in the same request.
type exchange struct {
	w http.ResponseWriter
	r *http.Request

	mu       sync.Mutex
	pending  map[string]string
	consumed map[string]bool
}

// WithHTTP binds w and r to ctx for the storages of this package.
func WithHTTP(ctx context.Context, w http.ResponseWriter, r *http.Request) context.Context {
	return context.WithValue(ctx, exchangeKey{}, &exchange{
		w:        w,
		r:        r,
		pending:  make(map[string]string),
		consumed: make(map[string]bool),
	})
}

func fromContext(ctx context.Context) (*exchange, error) {
	if ctx == nil {
		return nil, ErrNoHTTPContext
	}
	x, ok := ctx.Value(exchangeKey{}).(*exchange)
	if !ok || x.w == nil || x.r == nil {
		return nil, ErrNoHTTPContext
	}
	return x, nil
}

// get returns the current value of cookie name.
func (x *exchange) get(name string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if v, ok := x.pending[name]; ok {
		return v, true
	}
	if x.consumed[name] {
		return "", false
	}
	c, err := x.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// take returns the value of cookie name and expires it.
func (x *exchange) take(name string, attrs CookieAttributes) (string, bool) {
	v, ok := x.get(name)

	x.mu.Lock()
	delete(x.pending, name)
	x.consumed[name] = true
	x.mu.Unlock()

	if ok {
		http.SetCookie(x.w, attrs.deletion(name))
	}
	return v, ok
}

func (x *exchange) set(name, value string, ttl time.Duration, attrs CookieAttributes) {
	x.mu.Lock()
	x.pending[name] = value
	delete(x.consumed, name)
	x.mu.Unlock()

	http.SetCookie(x.w, attrs.build(name, value, ttl))
}

// CookieAttributes are the attributes of the cookies a storage writes.
type CookieAttributes struct {
	Path   string
	Domain string
	Secure bool

	// SameSite defaults to Lax, which lets the cookie ride along the
	// top-level redirect back from the authorization server.
	SameSite http.SameSite
}

func (a CookieAttributes) build(name, value string, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     a.Path,
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: a.SameSite,
	}
	if ck.Path == "" {
		ck.Path = "/"
	}
	if ck.SameSite == 0 {
		ck.SameSite = http.SameSiteLaxMode
	}
	if strings.TrimSpace(a.Domain) != "" {
		ck.Domain = a.Domain
	}
	if ttl > 0 {
		ck.Expires = time.Now().Add(ttl).UTC()
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

func (a CookieAttributes) deletion(name string) *http.Cookie {
	ck := a.build(name, "", 0)
	ck.Expires = time.Unix(0, 0).UTC()
	ck.MaxAge = -1
	return ck
}
