// Package metrics exports client registry activity to Prometheus.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jeff377/bee-oauth2/pkg/manager"
	"github.com/jeff377/bee-oauth2/pkg/oauth"
)

// Outcome label values of oauth2_authorizations_total.
const (
	OutcomeSuccess       = "success"
	OutcomeBadCallback   = "bad_callback"
	OutcomeInvalidState  = "invalid_state"
	OutcomeDenied        = "denied"
	OutcomeTokenExchange = "token_exchange_failed"
	OutcomeUserInfo      = "user_info_failed"
	OutcomeError         = "error"
)

// unknownClient labels callbacks that could not be routed to a client.
const unknownClient = "unknown"

// Prometheus counts redirects and authorization outcomes per client.
type Prometheus struct {
	redirects      *prometheus.CounterVec
	authorizations *prometheus.CounterVec
}

var _ manager.Observer = (*Prometheus)(nil)

// NewPrometheus registers the collectors with reg
// (prometheus.DefaultRegisterer when nil).
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Prometheus{
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth2_redirects_total",
			Help: "Redirects to an authorization server, by client",
		}, []string{"client"}),
		authorizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth2_authorizations_total",
			Help: "Completed authorization callbacks, by client and outcome",
		}, []string{"client", "outcome"}),
	}

	for _, c := range []prometheus.Collector{p.redirects, p.authorizations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) OnRedirect(client string) {
	p.redirects.WithLabelValues(clientLabel(client)).Inc()
}

func (p *Prometheus) OnAuthorization(client string, result *oauth.AuthorizationResult) {
	p.authorizations.WithLabelValues(clientLabel(client), Outcome(result)).Inc()
}

// Outcome classifies result for the outcome label.
func Outcome(result *oauth.AuthorizationResult) string {
	if result.IsSuccess() {
		return OutcomeSuccess
	}
	if result == nil {
		return OutcomeError
	}

	err := result.Err
	switch {
	case errors.Is(err, manager.ErrMissingCallbackParams):
		return OutcomeBadCallback
	case errors.Is(err, oauth.ErrInvalidState):
		return OutcomeInvalidState
	case errors.Is(err, manager.ErrAuthorizationDenied):
		return OutcomeDenied
	case errors.Is(err, oauth.ErrTokenExchangeFailed), errors.Is(err, oauth.ErrMissingCode):
		return OutcomeTokenExchange
	case errors.Is(err, oauth.ErrUserInfoFailed), errors.Is(err, oauth.ErrInvalidUserInfo):
		return OutcomeUserInfo
	}
	return OutcomeError
}

func clientLabel(client string) string {
	if client == "" {
		return unknownClient
	}
	return client
}
