package logger

import "go.uber.org/zap"

// Tokens, codes, secrets and state values are never logged; only the
// fields below are.

// Client is the registered client name.
func Client(v string) zap.Field {
	return zap.String("client", v)
}

// Provider is the provider display name.
func Provider(v string) zap.Field {
	return zap.String("provider", v)
}

// Op is the operation being performed.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Step is the last completed step of an authorization attempt.
func Step(v string) zap.Field {
	return zap.String("step", v)
}

// Err records an error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Addr is a listen address.
func Addr(v string) zap.Field {
	return zap.String("addr", v)
}
