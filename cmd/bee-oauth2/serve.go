package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeff377/bee-oauth2/internal/logger"
	"github.com/jeff377/bee-oauth2/pkg/config"
	"github.com/jeff377/bee-oauth2/pkg/manager"
	"github.com/jeff377/bee-oauth2/pkg/oauth"
	"github.com/jeff377/bee-oauth2/pkg/statestore"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /login/{client} and the shared authorization callback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			log := logger.New(cfg.Log)
			defer log.Sync() //nolint:errcheck

			a, err := newApp(cfg, log, nil)
			if err != nil {
				log.Error("startup failed", logger.Err(err))
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("listening", logger.Addr(srv.Addr), zap.String("callback", a.cfg.Server.CallbackPath))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", a.handleIndex)
	r.Get("/login/{client}", a.handleLogin)
	r.Get(a.cfg.Server.CallbackPath, a.handleCallback)
	if a.cfg.Server.MetricsPath != "-" {
		r.Handle(a.cfg.Server.MetricsPath, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	}
	return r
}

func (a *app) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"clients": a.manager.Names()})
}

func (a *app) handleLogin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "client")
	ctx := statestore.WithHTTP(r.Context(), w, r)

	err := a.manager.RedirectToAuthorization(ctx, name, manager.HTTPRedirector(w, r))
	switch {
	case err == nil:
	case errors.Is(err, manager.ErrClientNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown client"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "authorization request failed"})
	}
}

// callbackResponse is the body of a completed callback. Tokens are never
// echoed back.
type callbackResponse struct {
	Provider string `json:"provider,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	UserName string `json:"user_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Error    string `json:"error,omitempty"`
	Step     string `json:"step,omitempty"`
}

func (a *app) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := statestore.WithHTTP(r.Context(), w, r)
	result := a.manager.ValidateAuthorization(ctx, r.URL.Query())

	if !result.IsSuccess() {
		status := http.StatusUnauthorized
		if errors.Is(result.Err, manager.ErrMissingCallbackParams) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, callbackResponse{
			Provider: result.ProviderName,
			Error:    callbackError(result.Err),
			Step:     string(result.Step()),
		})
		return
	}

	writeJSON(w, http.StatusOK, callbackResponse{
		Provider: result.ProviderName,
		UserID:   result.UserInfo.UserID,
		UserName: result.UserInfo.UserName,
		Email:    result.UserInfo.Email,
	})
}

// callbackError maps a failure to a message safe to show the user agent.
func callbackError(err error) string {
	switch {
	case errors.Is(err, manager.ErrMissingCallbackParams):
		return "missing code or state"
	case errors.Is(err, oauth.ErrInvalidState):
		return "invalid state"
	case errors.Is(err, manager.ErrAuthorizationDenied):
		return "authorization denied"
	case errors.Is(err, oauth.ErrTokenExchangeFailed):
		return "token exchange failed"
	case errors.Is(err, oauth.ErrUserInfoFailed), errors.Is(err, oauth.ErrInvalidUserInfo):
		return "user info unavailable"
	}
	return "authorization failed"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
