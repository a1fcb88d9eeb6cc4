// Package token defines the credential sources consumed by the token
// injection handler.
package token

import (
	"context"
	"time"
)

// Token is an access token and its optional expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Expired reports whether the token expires within skew of now. Tokens
// without an expiry never expire.
func (t Token) Expired(now time.Time, skew time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}

	return !now.Add(skew).Before(t.ExpiresAt)
}

// Provider yields the current token. Failures should be reported as
// *Error so handlers can log the code, target and details.
type Provider interface {
	Token(ctx context.Context) (Token, error)
}

// ProviderFunc adapts a function to a Provider.
type ProviderFunc func(ctx context.Context) (Token, error)

func (f ProviderFunc) Token(ctx context.Context) (Token, error) {
	return f(ctx)
}

// Static always returns the same access token.
func Static(accessToken string) Provider {
	return ProviderFunc(func(context.Context) (Token, error) {
		return Token{AccessToken: accessToken}, nil
	})
}
