// Package config loads the bee-oauth2 configuration: a YAML file
// overlaid with environment variables. Client secrets are normally only
// supplied through the environment (BEE_OAUTH2_<CLIENT>_CLIENT_SECRET).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jeff377/bee-oauth2/internal/logger"
	"github.com/jeff377/bee-oauth2/pkg/manager"
	"github.com/jeff377/bee-oauth2/pkg/oauth"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BEE_OAUTH2_"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the top-level configuration.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Log     logger.Config  `yaml:"log"`
	State   StateConfig    `yaml:"state"`
	HTTP    HTTPConfig     `yaml:"http"`
	Clients []ClientConfig `yaml:"clients"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	// Addr is the listen address. Default ":8080".
	Addr string `yaml:"addr" env:"ADDR"`

	// CallbackPath is the shared redirect endpoint. Default "/callback".
	CallbackPath string `yaml:"callback_path" env:"CALLBACK_PATH"`

	// MetricsPath exposes Prometheus metrics; "-" disables it.
	// Default "/metrics".
	MetricsPath string `yaml:"metrics_path" env:"METRICS_PATH"`
}

// Storage kinds of StateConfig.Store.
const (
	StoreMemory  = "memory"
	StoreCookie  = "cookie"
	StoreSession = "session"
)

// Session backends of StateConfig.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// StateConfig configures state sealing and storage.
type StateConfig struct {
	// Key is the base64 combined AES/HMAC key. When empty the key is read
	// from OAUTH2_STATE_KEY.
	Key string `yaml:"key" env:"KEY"`

	// Store is "memory", "cookie" or "session". Default "session".
	// serve refuses "memory", which holds a single attempt per client.
	Store string `yaml:"store" env:"STORE"`

	// TTL bounds pending states and code verifiers. Default 10m.
	TTL time.Duration `yaml:"ttl" env:"TTL"`

	// CookieSecret signs state cookies (Store "cookie").
	CookieSecret string `yaml:"cookie_secret" env:"COOKIE_SECRET"`

	// CookieSecure marks state and session cookies Secure.
	CookieSecure bool `yaml:"cookie_secure" env:"COOKIE_SECURE"`

	// Backend is the session backend: "memory" or "redis". Default "memory".
	Backend string `yaml:"backend" env:"BACKEND"`

	Redis RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
}

// RedisConfig configures the Redis session backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	Prefix   string `yaml:"prefix" env:"PREFIX"`
}

// HTTPConfig configures outbound requests to authorization servers.
type HTTPConfig struct {
	// Timeout of each request. Default oauth.DefaultTimeout.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// RetryAttempts > 1 retries transient failures.
	RetryAttempts int `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`

	// RetryBackoff is the first retry delay; it doubles per attempt.
	RetryBackoff time.Duration `yaml:"retry_backoff" env:"RETRY_BACKOFF"`

	UserAgent string `yaml:"user_agent" env:"USER_AGENT"`
}

// Load reads the YAML file at path (skipped when path is empty) and
// applies environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// clientEnv holds the per-client environment overrides, read with the
// prefix BEE_OAUTH2_<NAME>_.
type clientEnv struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	RedirectURI  string   `env:"REDIRECT_URI"`
	Scopes       []string `env:"SCOPES" envSeparator:","`
}

func (c *Config) applyEnv() error {
	if err := env.ParseWithOptions(&c.Server, env.Options{Prefix: EnvPrefix + "SERVER_"}); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	if err := env.ParseWithOptions(&c.Log, env.Options{Prefix: EnvPrefix + "LOG_"}); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	if err := env.ParseWithOptions(&c.State, env.Options{Prefix: EnvPrefix + "STATE_"}); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	if err := env.ParseWithOptions(&c.HTTP, env.Options{Prefix: EnvPrefix + "HTTP_"}); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}

	for i := range c.Clients {
		cl := &c.Clients[i]
		var raw clientEnv
		if err := env.ParseWithOptions(&raw, env.Options{Prefix: ClientEnvPrefix(cl.Name)}); err != nil {
			return fmt.Errorf("config: env for client %q: %w", cl.Name, err)
		}
		if raw.ClientID != "" {
			cl.ClientID = raw.ClientID
		}
		if raw.ClientSecret != "" {
			cl.ClientSecret = raw.ClientSecret
		}
		if raw.RedirectURI != "" {
			cl.RedirectURI = raw.RedirectURI
		}
		if len(raw.Scopes) > 0 {
			cl.Scopes = raw.Scopes
		}
	}
	return nil
}

// ClientEnvPrefix returns the environment prefix of the named client,
// e.g. "BEE_OAUTH2_AZURE_WORK_" for "azure-work".
func ClientEnvPrefix(name string) string {
	up := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
	return EnvPrefix + up + "_"
}

// Validate fills in defaults and checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.CallbackPath == "" {
		c.Server.CallbackPath = "/callback"
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = "/metrics"
	}
	if c.State.Store == "" {
		c.State.Store = StoreSession
	}
	if c.State.Backend == "" {
		c.State.Backend = BackendMemory
	}
	if c.State.TTL <= 0 {
		c.State.TTL = oauth.DefaultStateTTL
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = oauth.DefaultTimeout
	}

	switch c.State.Store {
	case StoreMemory, StoreSession:
	case StoreCookie:
		if c.State.CookieSecret == "" {
			return fmt.Errorf("%w: state.cookie_secret is required for the cookie store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown state.store %q", ErrInvalidConfig, c.State.Store)
	}

	switch c.State.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.State.Redis.Addr == "" {
			return fmt.Errorf("%w: state.redis.addr is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown state.backend %q", ErrInvalidConfig, c.State.Backend)
	}

	seen := make(map[string]bool, len(c.Clients))
	for i := range c.Clients {
		cl := &c.Clients[i]
		if strings.TrimSpace(cl.Name) == "" {
			return fmt.Errorf("%w: clients[%d]: name is required", ErrInvalidConfig, i)
		}
		if seen[cl.Name] {
			return fmt.Errorf("%w: duplicate client %q", ErrInvalidConfig, cl.Name)
		}
		seen[cl.Name] = true

		if err := cl.Validate(); err != nil {
			return fmt.Errorf("%w: client %q: %w", ErrInvalidConfig, cl.Name, err)
		}
	}
	return nil
}

// Register builds one oauth.Client per configured client and registers it
// with m. storage returns the StateStorage of a client; when nil every
// client keeps its own in-memory storage.
func (c *Config) Register(m *manager.Manager, storage func(name string) (oauth.StateStorage, error), opts ...oauth.ProviderOption) error {
	for _, cl := range c.Clients {
		p, err := cl.Provider(opts...)
		if err != nil {
			return fmt.Errorf("config: client %q: %w", cl.Name, err)
		}

		var copts []oauth.ClientOption
		if storage != nil {
			s, err := storage(cl.Name)
			if err != nil {
				return fmt.Errorf("config: client %q storage: %w", cl.Name, err)
			}
			copts = append(copts, oauth.WithStateStorage(s))
		}

		client, err := oauth.NewClient(p, copts...)
		if err != nil {
			return fmt.Errorf("config: client %q: %w", cl.Name, err)
		}
		if err := m.RegisterClient(cl.Name, client); err != nil {
			return err
		}
	}
	return nil
}
