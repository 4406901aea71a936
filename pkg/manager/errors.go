package manager

import "errors"

var (
	// ErrDuplicateClient indicates a client name is already registered.
	ErrDuplicateClient = errors.New("manager: client already registered")

	// ErrClientNotFound indicates no client is registered under the name.
	ErrClientNotFound = errors.New("manager: client not found")

	// ErrMissingCallbackParams indicates the callback lacks code or state.
	ErrMissingCallbackParams = errors.New("manager: authorization code or state is missing")

	// ErrAuthorizationDenied indicates the authorization server returned an error parameter.
	ErrAuthorizationDenied = errors.New("manager: authorization denied")
)
