package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeff377/bee-oauth2/internal/logger"
	"github.com/jeff377/bee-oauth2/pkg/config"
	"github.com/jeff377/bee-oauth2/pkg/manager"
	"github.com/jeff377/bee-oauth2/pkg/oauth"
)

// errLoginFailed is returned after a failed result has been reported.
var errLoginFailed = errors.New("login failed")

func newLoginCmd(root *rootOptions) *cobra.Command {
	var (
		timeout  time.Duration
		noBrowse bool
	)

	cmd := &cobra.Command{
		Use:   "login <client>",
		Short: "Sign in with a configured client through the system browser",
		Long: "login runs the authorization code flow as a desktop application: it\n" +
			"listens on the client's loopback redirect_uri, opens the browser and\n" +
			"prints the signed-in user as JSON.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log)
			defer log.Sync() //nolint:errcheck

			// A desktop host drives one attempt at a time; state lives in
			// process memory.
			a, err := newApp(cfg, log, loginStorage(cfg.State.TTL))
			if err != nil {
				return err
			}
			defer a.Close()

			redirector := manager.BrowserRedirector()
			if noBrowse {
				redirector = manager.RedirectFunc(func(_ context.Context, u string) error {
					fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL to sign in:\n\n  %s\n\n", u)
					return nil
				})
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			result, err := a.login(ctx, args[0], redirector)
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the callback")
	cmd.Flags().BoolVar(&noBrowse, "no-browser", false, "print the authorization URL instead of opening a browser")
	return cmd
}

// loginStorage gives every client its own in-memory storage.
func loginStorage(ttl time.Duration) func(string) (oauth.StateStorage, error) {
	return func(string) (oauth.StateStorage, error) {
		return oauth.NewMemoryStateStorage(ttl), nil
	}
}

// login listens on the loopback redirect URI of the named client, sends
// the user to the authorization server and waits for the callback.
func (a *app) login(ctx context.Context, name string, redirector manager.Redirector) (*oauth.AuthorizationResult, error) {
	client, ok := a.manager.GetClient(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", manager.ErrClientNotFound, name)
	}

	redirect, err := url.Parse(client.Provider().RedirectURI())
	if err != nil {
		return nil, fmt.Errorf("redirect_uri: %w", err)
	}
	if !isLoopback(redirect.Hostname()) {
		return nil, fmt.Errorf("redirect_uri %q is not a loopback address", redirect.String())
	}

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", redirect.Host, err)
	}

	results := make(chan *oauth.AuthorizationResult, 1)
	srv := &http.Server{
		Handler:           a.callbackHandler(redirect.Path, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.log.Debug("waiting for callback", logger.Client(name), logger.Addr(ln.Addr().String()))
	if err := a.manager.RedirectToAuthorization(ctx, name, redirector); err != nil {
		return nil, err
	}

	select {
	case result := <-results:
		return result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for callback: %w", ctx.Err())
	}
}

// callbackHandler completes the first authorization response received on
// path and delivers its result. Other requests get 404.
func (a *app) callbackHandler(path string, results chan<- *oauth.AuthorizationResult) http.Handler {
	if path == "" {
		path = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		// Browsers also ask for /favicon.ico and the like; only an
		// authorization response ends the attempt.
		query := r.URL.Query()
		if r.URL.Path != path || (!query.Has("code") && !query.Has("error")) {
			http.NotFound(w, r)
			return
		}

		result := a.manager.ValidateAuthorization(r.Context(), query)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if result.IsSuccess() {
			fmt.Fprintf(w, callbackPage, "Signed in", "You can close this window and return to the terminal.")
		} else {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintf(w, callbackPage, "Sign-in failed", html.EscapeString(callbackError(result.Err)))
		}

		select {
		case results <- result:
		default:
		}
	})
	return mux
}

const callbackPage = `<!DOCTYPE html>
<html>
<head><title>bee-oauth2</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px">
<h1>%s</h1>
<p>%s</p>
</body>
</html>
`

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type loginOutput struct {
	Provider string `json:"provider"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Expiry   string `json:"token_expiry,omitempty"`
}

func printResult(cmd *cobra.Command, result *oauth.AuthorizationResult) error {
	if !result.IsSuccess() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (after step %s)\n", result.ProviderName, callbackError(result.Err), result.Step())
		return errLoginFailed
	}

	out := loginOutput{
		Provider: result.ProviderName,
		UserID:   result.UserInfo.UserID,
		UserName: result.UserInfo.UserName,
		Email:    result.UserInfo.Email,
	}
	if result.Token != nil && !result.Token.Expiry.IsZero() {
		out.Expiry = result.Token.Expiry.UTC().Format(time.RFC3339)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
