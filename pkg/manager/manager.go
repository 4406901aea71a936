// Package manager routes OAuth 2.0 authorization attempts of several
// registered clients through one callback endpoint.
//
// The state sent to the authorization server is the client name sealed by
// a StateCodec (see package statecrypt). On the callback the Manager opens
// the state to find the client, checks it against the client's stored
// state and completes the attempt with that client.
package manager

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeff377/bee-oauth2/internal/logger"
	"github.com/jeff377/bee-oauth2/pkg/oauth"
)

// StateCodec seals a client name into an opaque state value and opens it.
// *statecrypt.Cryptor implements it.
type StateCodec interface {
	EncryptClientName(name string) (string, error)
	DecryptClientName(token string) (string, error)
}

// Observer is notified of redirects and completed authorization attempts.
// client is empty when the callback could not be routed.
type Observer interface {
	OnRedirect(client string)
	OnAuthorization(client string, result *oauth.AuthorizationResult)
}

// Manager is a registry of named OAuth clients. It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	clients  map[string]*oauth.Client
	codec    StateCodec
	logger   *zap.Logger
	observer Observer
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver sets an observer, e.g. the Prometheus one of package metrics.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

// New creates an empty Manager.
func New(codec StateCodec, opts ...Option) (*Manager, error) {
	if codec == nil {
		return nil, fmt.Errorf("%w: state codec is nil", oauth.ErrInvalidConfiguration)
	}

	m := &Manager{
		clients: make(map[string]*oauth.Client),
		codec:   codec,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("oauth2.manager")
	return m, nil
}

// RegisterClient adds client under name. Registering a name twice fails
// with ErrDuplicateClient; use ReplaceClient to swap a client.
func (m *Manager) RegisterClient(name string, client *oauth.Client) error {
	return m.put(name, client, false)
}

// ReplaceClient registers client under name, replacing any existing one.
func (m *Manager) ReplaceClient(name string, client *oauth.Client) error {
	return m.put(name, client, true)
}

func (m *Manager) put(name string, client *oauth.Client, replace bool) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: client name is empty", oauth.ErrInvalidConfiguration)
	}
	if client == nil {
		return fmt.Errorf("%w: client %q is nil", oauth.ErrInvalidConfiguration, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; exists && !replace {
		return fmt.Errorf("%w: %q", ErrDuplicateClient, name)
	}
	m.clients[name] = client

	m.logger.Info("client registered",
		logger.Client(name),
		logger.Provider(client.Provider().Name()),
		zap.Bool("pkce", client.UsePKCE()),
		zap.Bool("replaced", replace),
	)
	return nil
}

// GetClient returns the client registered under name.
func (m *Manager) GetClient(name string) (*oauth.Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[name]
	return c, ok
}

// Names returns the registered client names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	m.mu.RUnlock()

	sort.Strings(names)
	return names
}

// AuthorizationURL seals name into a fresh state and returns the named
// client's authorization URL.
func (m *Manager) AuthorizationURL(ctx context.Context, name string) (string, error) {
	client, ok := m.GetClient(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrClientNotFound, name)
	}

	state, err := m.codec.EncryptClientName(name)
	if err != nil {
		return "", err
	}

	return client.AuthorizationURL(ctx, state)
}

// RedirectToAuthorization sends the user agent to the named client's
// authorization URL through r.
func (m *Manager) RedirectToAuthorization(ctx context.Context, name string, r Redirector) error {
	authURL, err := m.AuthorizationURL(ctx, name)
	if err != nil {
		m.logger.Error("authorization url failed", logger.Client(name), logger.Err(err))
		return err
	}

	if err := r.Redirect(ctx, authURL); err != nil {
		m.logger.Error("redirect failed", logger.Client(name), logger.Err(err))
		return err
	}

	m.logger.Debug("redirected to authorization", logger.Client(name))
	if m.observer != nil {
		m.observer.OnRedirect(name)
	}
	return nil
}

// ValidateAuthorization completes the attempt a callback belongs to. query
// holds the callback parameters (code, state and optionally error). It
// never returns an error; failures are reported in the result.
func (m *Manager) ValidateAuthorization(ctx context.Context, query url.Values) *oauth.AuthorizationResult {
	var clientName string
	result := m.validate(ctx, query, &clientName)

	if result.IsSuccess() {
		m.logger.Info("authorization succeeded",
			logger.Client(clientName),
			logger.Provider(result.ProviderName),
		)
	} else {
		m.logger.Warn("authorization failed",
			logger.Client(clientName),
			logger.Provider(result.ProviderName),
			logger.Step(string(result.Step())),
			logger.Err(result.Err),
		)
	}

	if m.observer != nil {
		m.observer.OnAuthorization(clientName, result)
	}
	return result
}

func (m *Manager) validate(ctx context.Context, query url.Values, clientName *string) *oauth.AuthorizationResult {
	code := query.Get("code")
	state := query.Get("state")
	denied := query.Get("error")

	if state == "" || (code == "" && denied == "") {
		return oauth.Failed("", oauth.StepAuthURLIssued, ErrMissingCallbackParams)
	}

	name, err := m.codec.DecryptClientName(state)
	if err != nil {
		m.logger.Warn("state integrity check failed", logger.Op("decrypt_state"), logger.Err(err))
		return oauth.Failed("", oauth.StepAuthURLIssued, oauth.ErrInvalidState)
	}

	client, ok := m.GetClient(name)
	if !ok {
		m.logger.Warn("state names an unknown client", logger.Op("lookup_client"), logger.Client(name))
		return oauth.Failed("", oauth.StepAuthURLIssued, oauth.ErrInvalidState)
	}
	*clientName = name
	providerName := client.Provider().Name()

	if err := client.VerifyState(ctx, state); err != nil {
		m.logger.Warn("state mismatch", logger.Op("verify_state"), logger.Client(name), logger.Err(err))
		return oauth.Failed(providerName, oauth.StepAuthURLIssued, err)
	}

	if denied != "" {
		if client.UsePKCE() {
			// The verifier belongs to this attempt; drop it.
			_, _ = client.StateStorage().TakeCodeVerifier(ctx)
		}
		err := fmt.Errorf("%w: %s", ErrAuthorizationDenied, denied)
		if desc := query.Get("error_description"); desc != "" {
			err = fmt.Errorf("%w: %s: %s", ErrAuthorizationDenied, denied, desc)
		}
		return oauth.Failed(providerName, oauth.StepStateValidated, err)
	}

	return client.ValidateAuthorization(ctx, code)
}
