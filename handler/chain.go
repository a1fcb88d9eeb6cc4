// Package handler provides delegating round trippers that decorate
// outbound requests before passing them to the next transport in a
// chain.
//
// Every handler clones the request before changing it and keeps no
// per-call state, so a chain built once may serve concurrent requests.
// Responses are passed back up the chain untouched.
package handler

import (
	"log/slog"
	"net/http"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Middleware wraps the next round tripper in the chain.
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to an http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain wraps base with mw so that mw[0] runs first on the way out and
// last on the way back. A nil base means http.DefaultTransport; nil
// middlewares are skipped.
func Chain(base http.RoundTripper, mw ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	for _, mwFn := range slices.Backward(mw) {
		if mwFn != nil {
			base = mwFn(base)
		}
	}

	return base
}

// Option configures handlers that report to a logger or a propagator.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	propagator propagation.TextMapPropagator
}

// WithLogger sets the logger handlers report to.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPropagator overrides the global OpenTelemetry propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *options) {
		if p != nil {
			o.propagator = p
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:     slog.Default(),
		propagator: otel.GetTextMapPropagator(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func clone(r *http.Request) *http.Request {
	cpy := r.Clone(r.Context())
	if cpy.Header == nil {
		cpy.Header = make(http.Header)
	}

	return cpy
}
