package handler

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/reqflow/errs"
	"github.com/adamwoolhether/reqflow/token"
)

// Token sets "Authorization: Bearer <token>" from p on every request.
//
// A provider failure never fails the request: the failure is logged with
// its code, target, message and details, added as an event on the
// active span, and the request is forwarded with whatever Authorization
// header it already had. An empty access token is treated the same way.
// A nil provider makes the handler a pass-through.
func Token(p token.Provider, opts ...Option) Middleware {
	o := newOptions(opts)

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if p == nil {
				return next.RoundTrip(r)
			}

			ctx := r.Context()

			tok, err := p.Token(ctx)
			if err != nil {
				reportTokenFailure(ctx, o.logger, token.AsError(err))
				return next.RoundTrip(r)
			}
			if tok.AccessToken == "" {
				o.logger.WarnContext(ctx, "token provider returned an empty access token", "url", r.URL.Redacted())
				return next.RoundTrip(r)
			}

			cpy := clone(r)
			cpy.Header.Set("Authorization", "Bearer "+tok.AccessToken)

			return next.RoundTrip(cpy)
		})
	}
}

// TokenFromFactory resolves the provider registered under name right
// away. A missing factory or provider is an errs.ErrConfiguration error.
func TokenFromFactory(f token.Factory, name string, opts ...Option) (Middleware, error) {
	if f == nil {
		return nil, errs.Configuration("no token factory configured")
	}

	p, err := f.Provider(name)
	if err != nil {
		return nil, errs.Configuration("resolving token provider %q: %v", name, err)
	}
	if p == nil {
		return nil, errs.Configuration("no token provider registered with the name %q", name)
	}

	return Token(p, opts...), nil
}

// TokenFromFunc calls fn once, immediately, to obtain the provider.
func TokenFromFunc(fn func() (token.Provider, error), opts ...Option) (Middleware, error) {
	if fn == nil {
		return nil, errs.Configuration("token provider func must not be nil")
	}

	p, err := fn()
	if err != nil {
		return nil, errs.Configuration("resolving token provider: %v", err)
	}
	if p == nil {
		return nil, errs.Configuration("token provider func returned no provider")
	}

	return Token(p, opts...), nil
}

func reportTokenFailure(ctx context.Context, logger *slog.Logger, te *token.Error) {
	logger.ErrorContext(ctx, "failed to retrieve token",
		"code", te.Code,
		"target", te.Target,
		"message", te.Message,
		"details", te.DetailMessages(),
	)

	trace.SpanFromContext(ctx).AddEvent("token.failure", trace.WithAttributes(
		attribute.String("token.code", te.Code),
		attribute.String("token.target", te.Target),
		attribute.String("token.message", te.Message),
	))
}
