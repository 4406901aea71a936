package statestore

import "errors"

var (
	// ErrNoHTTPContext is returned when the context carries no request
	// bound with WithHTTP.
	ErrNoHTTPContext = errors.New("statestore: no http request in context")

	// ErrInvalidSecret is returned for a cookie signing secret shorter
	// than MinSecretSize.
	ErrInvalidSecret = errors.New("statestore: invalid signing secret")

	// ErrNilBackend is returned by NewSession without a backend.
	ErrNilBackend = errors.New("statestore: backend is nil")
)
