package oauth

// AuthorizationResult is the outcome of one authorization attempt.
// On success UserInfo, AccessToken and Token are set and Err is nil;
// on failure only ProviderName and Err are set.
type AuthorizationResult struct {
	ProviderName string
	UserInfo     *UserInfo
	AccessToken  string
	Token        *Token

	// Err is a *StepError naming the last completed step.
	Err error
}

// IsSuccess reports whether the attempt produced a user.
func (r *AuthorizationResult) IsSuccess() bool {
	return r != nil && r.Err == nil && r.UserInfo != nil
}

// Step returns the last step completed before a failure, or
// StepUserInfoFetched for a successful result.
func (r *AuthorizationResult) Step() Step {
	if r.IsSuccess() {
		return StepUserInfoFetched
	}
	if step, ok := FailedStep(r.Err); ok {
		return step
	}
	return StepStart
}

// Succeeded builds a successful result.
func Succeeded(providerName string, token *Token, user *UserInfo) *AuthorizationResult {
	return &AuthorizationResult{
		ProviderName: providerName,
		UserInfo:     user,
		AccessToken:  token.AccessToken,
		Token:        token,
	}
}

// Failed builds a failed result. err is wrapped in a *StepError unless it
// already is one.
func Failed(providerName string, step Step, err error) *AuthorizationResult {
	if _, ok := FailedStep(err); !ok {
		err = &StepError{Step: step, Err: err}
	}
	return &AuthorizationResult{
		ProviderName: providerName,
		Err:          err,
	}
}
