package manager

import (
	"context"
	"net/http"

	"github.com/pkg/browser"
)

// Redirector sends the user agent to an authorization URL. Web hosts
// answer with an HTTP redirect; desktop hosts open the system browser.
type Redirector interface {
	Redirect(ctx context.Context, url string) error
}

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func(ctx context.Context, url string) error

func (f RedirectFunc) Redirect(ctx context.Context, url string) error {
	return f(ctx, url)
}

// HTTPRedirector answers r with a 302 Found to the authorization URL.
func HTTPRedirector(w http.ResponseWriter, r *http.Request) Redirector {
	return RedirectFunc(func(_ context.Context, url string) error {
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, url, http.StatusFound)
		return nil
	})
}

// openURL is replaced in tests.
var openURL = browser.OpenURL

// BrowserRedirector opens the authorization URL in the system browser.
func BrowserRedirector() Redirector {
	return RedirectFunc(func(_ context.Context, url string) error {
		return openURL(url)
	})
}
