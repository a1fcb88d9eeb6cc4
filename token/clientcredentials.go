package token

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/adamwoolhether/reqflow/errs"
	"github.com/adamwoolhether/reqflow/request"
	"github.com/adamwoolhether/reqflow/response"
)

// ClientCredentialsConfig describes an OAuth2 client_credentials grant.
type ClientCredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// ClientCredentials fetches tokens from an OAuth2 token endpoint and
// caches each one until it is within the expiry skew of expiring.
// Concurrent callers share a single in-flight fetch; a caller waiting on
// it gives up when its own context ends.
type ClientCredentials struct {
	cfg    ClientCredentialsConfig
	client *http.Client
	skew   time.Duration
	now    func() time.Time

	fetching chan struct{}

	mu     sync.Mutex
	cached Token
}

// ClientCredentialsOption configures a ClientCredentials provider.
type ClientCredentialsOption func(*ClientCredentials)

// WithHTTPClient sets the client used to call the token endpoint.
func WithHTTPClient(c *http.Client) ClientCredentialsOption {
	return func(cc *ClientCredentials) {
		cc.client = c
	}
}

// WithExpirySkew refreshes tokens this long before they expire.
func WithExpirySkew(d time.Duration) ClientCredentialsOption {
	return func(cc *ClientCredentials) {
		cc.skew = d
	}
}

func withClock(now func() time.Time) ClientCredentialsOption {
	return func(cc *ClientCredentials) {
		cc.now = now
	}
}

// NewClientCredentials validates cfg and returns a caching provider.
func NewClientCredentials(cfg ClientCredentialsConfig, opts ...ClientCredentialsOption) (*ClientCredentials, error) {
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, errs.InvalidArgument("tokenURL", "must not be empty")
	}
	if _, err := url.Parse(cfg.TokenURL); err != nil {
		return nil, fmt.Errorf("parsing token url: %w", err)
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errs.InvalidArgument("clientID", "must not be empty")
	}

	cc := ClientCredentials{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		skew:   30 * time.Second,
		now:    time.Now,

		fetching: make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(&cc)
	}

	return &cc, nil
}

// Token returns the cached token or fetches a new one.
func (cc *ClientCredentials) Token(ctx context.Context) (Token, error) {
	if tok, ok := cc.current(); ok {
		return tok, nil
	}

	select {
	case cc.fetching <- struct{}{}:
	case <-ctx.Done():
		return Token{}, &Error{Code: "cancelled", Target: cc.cfg.TokenURL, Message: ctx.Err().Error()}
	}
	defer func() { <-cc.fetching }()

	// Another caller may have refreshed the token while this one waited.
	if tok, ok := cc.current(); ok {
		return tok, nil
	}

	tok, err := cc.fetch(ctx)
	if err != nil {
		return Token{}, err
	}

	cc.mu.Lock()
	cc.cached = tok
	cc.mu.Unlock()

	return tok, nil
}

func (cc *ClientCredentials) current() (Token, bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if cc.cached.AccessToken == "" || cc.cached.Expired(cc.now(), cc.skew) {
		return Token{}, false
	}

	return cc.cached, true
}

// Invalidate drops the cached token so the next call fetches afresh.
func (cc *ClientCredentials) Invalidate() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cached = Token{}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type oauthError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func (cc *ClientCredentials) fetch(ctx context.Context) (Token, error) {
	u, _ := url.Parse(cc.cfg.TokenURL)

	form := []request.Pair{{Key: "grant_type", Value: "client_credentials"}}
	if len(cc.cfg.Scopes) > 0 {
		form = append(form, request.Pair{Key: "scope", Value: strings.Join(cc.cfg.Scopes, " ")})
	}

	b := request.NewWithURL(ctx, u).
		Method().Post().
		WithAcceptJSON().
		WithFormURLEncoded(form...)
	if cc.cfg.ClientSecret != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(cc.cfg.ClientID + ":" + cc.cfg.ClientSecret))
		b.WithAuthorization("Basic", creds)
	}

	req, err := b.Request()
	if err != nil {
		return Token{}, fmt.Errorf("building token request: %w", err)
	}

	resp, err := cc.client.Do(req)
	if err != nil {
		return Token{}, &Error{Code: "transport_error", Target: cc.cfg.TokenURL, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

		var oe oauthError
		if json.Unmarshal(body, &oe) == nil && oe.Error != "" {
			return Token{}, &Error{Code: oe.Error, Target: cc.cfg.TokenURL, Message: oe.Description}
		}

		return Token{}, &Error{
			Code:    "unexpected_status",
			Target:  cc.cfg.TokenURL,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	payload, err := response.DecodeJSON[tokenResponse](resp.Body)
	if err != nil {
		return Token{}, &Error{Code: "invalid_response", Target: cc.cfg.TokenURL, Message: err.Error()}
	}
	if payload.AccessToken == "" {
		return Token{}, &Error{Code: "invalid_response", Target: cc.cfg.TokenURL, Message: "access_token missing"}
	}

	tok := Token{AccessToken: payload.AccessToken}
	if payload.ExpiresIn > 0 {
		tok.ExpiresAt = cc.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}

	return tok, nil
}
