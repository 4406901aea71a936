package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// maxResponseSize caps token and user info bodies.
const maxResponseSize = 1 << 20

// provider implements the generic RFC 6749 authorization code flow. The
// variant constructors in provider.go switch on the fields below instead
// of overriding methods.
type provider struct {
	name       string
	opts       Options
	httpClient HTTPClient
	userAgent  string

	// scopeSeparator joins Options.Scopes (space unless overridden).
	scopeSeparator string

	// tokenParams are appended to every authorization code exchange.
	tokenParams url.Values

	// alwaysSendSecret sends client_secret on the PKCE path too.
	alwaysSendSecret bool

	// userInfoQuery is appended to the user info URL.
	userInfoQuery url.Values

	refreshUnsupported bool

	keys userInfoKeys
}

func newBaseProvider(name string, opts Options, keys userInfoKeys) *provider {
	return &provider{
		name:           name,
		opts:           opts.Clone(),
		scopeSeparator: " ",
		keys:           keys,
	}
}

func (p *provider) apply(options []ProviderOption) *provider {
	for _, opt := range options {
		opt(p)
	}
	if p.httpClient == nil {
		p.httpClient = NewHTTPClient(DefaultTimeout, nil)
	}
	return p
}

func (p *provider) Name() string        { return p.name }
func (p *provider) Options() Options    { return p.opts.Clone() }
func (p *provider) RedirectURI() string { return p.opts.RedirectURI }

// AuthorizationURL builds the authorization request URL. Parameters keep
// a fixed order and every value is percent-encoded (space as %20).
func (p *provider) AuthorizationURL(state, codeChallenge string) string {
	params := [][2]string{
		{"client_id", p.opts.ClientID},
		{"redirect_uri", p.opts.RedirectURI},
		{"response_type", "code"},
		{"scope", p.joinScopes()},
		{"state", state},
	}
	if codeChallenge != "" {
		params = append(params,
			[2]string{"code_challenge", codeChallenge},
			[2]string{"code_challenge_method", codeChallengeMethod},
		)
	}

	var b strings.Builder
	b.WriteString(p.opts.Endpoint.AuthURL)
	if strings.Contains(p.opts.Endpoint.AuthURL, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	for i, kv := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(kv[0])
		b.WriteByte('=')
		b.WriteString(escapeValue(kv[1]))
	}
	return b.String()
}

// escapeValue percent-encodes a query value the way RFC 3986 data does,
// so spaces become %20 rather than '+'.
func escapeValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// tokenRequestParams assembles the authorization code exchange form.
func (p *provider) tokenRequestParams(code, codeVerifier string) url.Values {
	data := url.Values{}
	data.Set("client_id", p.opts.ClientID)
	data.Set("redirect_uri", p.opts.RedirectURI)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")

	if codeVerifier != "" {
		data.Set("code_verifier", codeVerifier)
		if p.alwaysSendSecret && p.opts.ClientSecret != "" {
			data.Set("client_secret", p.opts.ClientSecret)
		}
	} else {
		data.Set("client_secret", p.opts.ClientSecret)
	}

	for k, vs := range p.tokenParams {
		for _, v := range vs {
			data.Add(k, v)
		}
	}
	return data
}

// ExchangeCode exchanges an authorization code for tokens.
func (p *provider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*Token, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrMissingCode
	}
	return p.exchangeToken(ctx, p.tokenRequestParams(code, codeVerifier))
}

// exchangeToken posts a form to the token endpoint.
func (p *provider) exchangeToken(ctx context.Context, data url.Values) (*Token, error) {
	tokenURL := p.opts.Endpoint.TokenURL
	if tokenURL == "" {
		return nil, fmt.Errorf("%w: token url not configured", ErrTokenExchangeFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, err := p.do(req, ErrTokenExchangeFailed)
	if err != nil {
		return nil, err
	}
	return parseTokenResponse(body, ErrTokenExchangeFailed)
}

// FetchUserInfo retrieves the user info document with a bearer token.
func (p *provider) FetchUserInfo(ctx context.Context, accessToken string) ([]byte, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: %w", ErrUserInfoFailed, ErrMissingToken)
	}

	userInfoURL, err := p.userInfoURL()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfoFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfoFailed, err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	return p.do(req, ErrUserInfoFailed)
}

// userInfoURL returns the user info endpoint with the provider's field
// selection merged into any query it already has.
func (p *provider) userInfoURL() (string, error) {
	if p.opts.UserInfoURL == "" {
		return "", errors.New("user info url not configured")
	}
	if len(p.userInfoQuery) == 0 {
		return p.opts.UserInfoURL, nil
	}

	u, err := url.Parse(p.opts.UserInfoURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range p.userInfoQuery {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// do sends req and returns the body of a 2xx response. Any other status
// becomes a *ResponseError for op.
func (p *provider) do(req *http.Request, op error) ([]byte, error) {
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ResponseError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// RefreshAccessToken runs the refresh token grant through golang.org/x/oauth2.
// client_id and client_secret travel in the form body.
func (p *provider) RefreshAccessToken(ctx context.Context, refreshToken string) (*Token, error) {
	if p.refreshUnsupported {
		return nil, fmt.Errorf("%w: %s does not issue refresh tokens", ErrUnsupportedOperation, p.name)
	}
	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%w: refresh token is required", ErrRefreshFailed)
	}
	if p.opts.Endpoint.TokenURL == "" {
		return nil, fmt.Errorf("%w: token url not configured", ErrRefreshFailed)
	}

	cfg := &oauth2.Config{
		ClientID:     p.opts.ClientID,
		ClientSecret: p.opts.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.opts.Endpoint.AuthURL,
			TokenURL:  p.opts.Endpoint.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: p.opts.RedirectURI,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.stdClient())
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, &ResponseError{Op: ErrRefreshFailed, StatusCode: re.Response.StatusCode, Body: string(re.Body)}
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, ErrMissingToken)
	}

	token := tokenFromOAuth2(tok)
	if token.RefreshToken == "" {
		// Providers may omit a rotated refresh token; the old one stays valid.
		token.RefreshToken = refreshToken
	}
	return token, nil
}

// stdClient returns the provider's client as *http.Client, adding the
// User-Agent header when one is configured.
func (p *provider) stdClient() *http.Client {
	if p.userAgent == "" {
		return stdClient(p.httpClient)
	}
	return &http.Client{Transport: userAgentTransport{c: p.httpClient, ua: p.userAgent}}
}

type userAgentTransport struct {
	c  HTTPClient
	ua string
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.ua)
	return t.c.Do(req)
}
