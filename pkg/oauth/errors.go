package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration indicates the provider options or client configuration are invalid.
	ErrInvalidConfiguration = errors.New("oauth: invalid configuration")

	// ErrProviderNotSupported indicates the requested provider kind is not supported.
	ErrProviderNotSupported = errors.New("oauth: provider not supported")

	// ErrMissingCode indicates the authorization code is empty.
	ErrMissingCode = errors.New("oauth: authorization code is empty")

	// ErrMissingToken indicates the token endpoint did not return an access token.
	ErrMissingToken = errors.New("oauth: access token not found in response")

	// ErrTokenExchangeFailed indicates the authorization code exchange failed.
	ErrTokenExchangeFailed = errors.New("oauth: token exchange failed")

	// ErrRefreshFailed indicates the refresh token grant failed.
	ErrRefreshFailed = errors.New("oauth: token refresh failed")

	// ErrUserInfoFailed indicates the user info request failed.
	ErrUserInfoFailed = errors.New("oauth: user info request failed")

	// ErrInvalidUserInfo indicates the user info payload is empty or not valid JSON.
	ErrInvalidUserInfo = errors.New("oauth: invalid user info payload")

	// ErrUnsupportedOperation indicates the provider does not support the requested operation.
	ErrUnsupportedOperation = errors.New("oauth: operation not supported by provider")

	// ErrInvalidState indicates the returned state did not match the stored state.
	ErrInvalidState = errors.New("oauth: invalid state")

	// ErrStateStorage indicates the state storage could not save or load a value.
	ErrStateStorage = errors.New("oauth: state storage failure")
)

// ResponseError is returned when the token or user info endpoint answers
// with a non-success status. It unwraps to the sentinel of the failed step.
type ResponseError struct {
	// Op is the failed operation sentinel (ErrTokenExchangeFailed, ErrUserInfoFailed, ErrRefreshFailed).
	Op error

	// StatusCode is the HTTP status returned by the endpoint.
	StatusCode int

	// Body is the raw response body.
	Body string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *ResponseError) Unwrap() error {
	return e.Op
}

// Step identifies a stage of one authorization attempt.
type Step string

const (
	StepStart           Step = "start"
	StepAuthURLIssued   Step = "auth_url_issued"
	StepStateValidated  Step = "state_validated"
	StepTokenExchanged  Step = "token_exchanged"
	StepUserInfoFetched Step = "user_info_fetched"
)

// StepError records which step of the authorization flow failed.
// The step is the last one completed before the failure.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep reports the last completed step recorded in err, if any.
func FailedStep(err error) (Step, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return "", false
}
