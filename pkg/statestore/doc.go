// Package statestore provides oauth.StateStorage implementations for web
// hosts, where the pending state and code verifier of an authorization
// attempt must survive the round trip through the user's browser.
//
// Cookie keeps both values in HS256-signed cookies; Session keeps them in
// a server-side Backend (go-cache or Redis) keyed by a session cookie.
// Both read and write cookies through the request bound to the context
// with WithHTTP:
//
//	ctx := statestore.WithHTTP(r.Context(), w, r)
//	url, err := client.AuthorizationURL(ctx, state)
package statestore
