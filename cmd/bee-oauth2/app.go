package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jeff377/bee-oauth2/internal/logger"
	"github.com/jeff377/bee-oauth2/pkg/config"
	"github.com/jeff377/bee-oauth2/pkg/manager"
	"github.com/jeff377/bee-oauth2/pkg/metrics"
	"github.com/jeff377/bee-oauth2/pkg/oauth"
	"github.com/jeff377/bee-oauth2/pkg/statecrypt"
	"github.com/jeff377/bee-oauth2/pkg/statestore"
)

const userAgent = "bee-oauth2"

var errSharedMemoryStore = errors.New(`state.store "memory" is only supported by login; use "session" or "cookie" to serve`)

// app is the wiring shared by the commands.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	manager  *manager.Manager
	registry *prometheus.Registry
	closers  []func() error
}

// newApp builds the registry of configured clients. storage overrides
// cfg.State when not nil; without it the memory store is refused.
func newApp(cfg *config.Config, log *zap.Logger, storage func(name string) (oauth.StateStorage, error)) (*app, error) {
	codec, err := stateCodec(cfg.State)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}

	observer, err := metrics.NewPrometheus(a.registry)
	if err != nil {
		return nil, err
	}

	a.manager, err = manager.New(codec, manager.WithLogger(log), manager.WithObserver(observer))
	if err != nil {
		return nil, err
	}

	if storage == nil {
		storage, err = a.storageFactory(cfg.State)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	ua := cfg.HTTP.UserAgent
	if ua == "" {
		ua = userAgent
	}
	opts := []oauth.ProviderOption{
		oauth.WithHTTPClient(httpClient(cfg.HTTP)),
		oauth.WithUserAgent(ua),
	}
	if err := cfg.Register(a.manager, storage, opts...); err != nil {
		a.Close()
		return nil, err
	}

	log.Info("clients registered",
		zap.Strings("clients", a.manager.Names()),
		zap.String("store", cfg.State.Store),
	)
	return a, nil
}

func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// stateCodec loads the state key from the configuration, or from
// OAUTH2_STATE_KEY when none is configured.
func stateCodec(cfg config.StateConfig) (*statecrypt.Cryptor, error) {
	if cfg.Key != "" {
		return statecrypt.NewFromBase64(cfg.Key)
	}
	return statecrypt.Default()
}

func httpClient(cfg config.HTTPConfig) oauth.HTTPClient {
	if cfg.RetryAttempts > 1 {
		return oauth.NewRetryingHTTPClient(cfg.Timeout, nil, oauth.RetryPolicy{
			MaxAttempts:    cfg.RetryAttempts,
			InitialBackoff: cfg.RetryBackoff,
		})
	}
	return oauth.NewHTTPClient(cfg.Timeout, nil)
}

// storageFactory returns the per-client StateStorage constructor for cfg.
// Session storages of all clients share one backend and one cookie.
func (a *app) storageFactory(cfg config.StateConfig) (func(string) (oauth.StateStorage, error), error) {
	attrs := statestore.CookieAttributes{Secure: cfg.CookieSecure}

	switch cfg.Store {
	case config.StoreMemory:
		// One memory slot per client would be shared by every browser.
		return nil, errSharedMemoryStore

	case config.StoreCookie:
		return func(name string) (oauth.StateStorage, error) {
			return statestore.NewCookie(statestore.CookieConfig{
				Name:             "oauth2_" + name,
				Secret:           []byte(cfg.CookieSecret),
				TTL:              cfg.TTL,
				CookieAttributes: attrs,
			})
		}, nil
	}

	backend, err := a.sessionBackend(cfg)
	if err != nil {
		return nil, err
	}
	return func(name string) (oauth.StateStorage, error) {
		return statestore.NewSession(backend, statestore.SessionConfig{
			Namespace:        name,
			TTL:              cfg.TTL,
			CookieAttributes: attrs,
		})
	}, nil
}

func (a *app) sessionBackend(cfg config.StateConfig) (statestore.Backend, error) {
	if cfg.Backend != config.BackendRedis {
		return statestore.NewMemoryBackend(cfg.TTL), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}

	a.closers = append(a.closers, rdb.Close)
	a.log.Info("redis session backend connected", logger.Addr(cfg.Redis.Addr))

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "bee-oauth2"
	}
	return statestore.NewRedisBackend(rdb, prefix), nil
}
