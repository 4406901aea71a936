// Package oauth implements the client side of the OAuth 2.0 authorization
// code flow against any identity provider.
//
// A Provider adapts one identity provider: it builds the authorization
// URL, exchanges the code for a token, fetches the user info document and
// normalizes it into a UserInfo. Pre-configured variants exist for Google,
// Facebook, LINE, Microsoft (Azure), Auth0, Okta, GitHub and Keycloak, plus
// a Generic provider for any OIDC-shaped server. Variants are chosen with
// NewProvider and a Kind, or with their own constructor.
//
// A Client drives one authorization attempt with a Provider and a
// StateStorage:
//
//	START -> AUTH_URL_ISSUED -> STATE_VALIDATED -> TOKEN_EXCHANGED -> USER_INFO_FETCHED
//
// Any step may fail. Client.ValidateAuthorization never returns an error;
// the outcome is an AuthorizationResult whose Err is a *StepError naming
// the last completed step.
//
// # PKCE
//
// When Options.UsePKCE is set, the Client stores a fresh code verifier in
// its StateStorage and sends the S256 challenge with the authorization
// request. The verifier is read once, at code exchange.
//
// # State storage
//
// StateStorage holds the pending state and code verifier of one attempt.
// Take methods remove what they return, so a state validates at most once.
// MemoryStateStorage suits single-user hosts; web hosts use the cookie or
// session storages of package statestore.
//
// Example - Authorization Code Flow:
//
//	opts := oauth.GoogleOptions()
//	opts.ClientID = "your-client-id"
//	opts.ClientSecret = "your-client-secret"
//	opts.RedirectURI = "https://app.example.com/callback"
//	opts.UsePKCE = true
//
//	client, err := oauth.NewClient(oauth.NewGoogle(opts))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	authURL, err := client.AuthorizationURL(ctx, state)
//	// redirect to authURL, then on the callback:
//
//	if !client.ValidateState(ctx, r.URL.Query().Get("state")) {
//	    http.Error(w, "invalid state", http.StatusBadRequest)
//	    return
//	}
//	result := client.ValidateAuthorization(ctx, r.URL.Query().Get("code"))
//	if !result.IsSuccess() {
//	    log.Printf("Login failed: %v", result.Err)
//	    return
//	}
//	fmt.Printf("User: %s (%s)\n", result.UserInfo.UserName, result.UserInfo.Email)
//
// # Errors
//
// Failures wrap the sentinel errors of this package and can be tested with
// errors.Is. A non-success HTTP status from the token or user info endpoint
// is a *ResponseError carrying the status code and body. Providers that
// cannot refresh tokens return ErrUnsupportedOperation.
//
// The package does not validate ID tokens; Token.IDToken is passed through
// as received.
package oauth
