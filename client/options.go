package client

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/reqflow/errs"
	"github.com/adamwoolhether/reqflow/handler"
	"github.com/adamwoolhether/reqflow/throttle"
	"github.com/adamwoolhether/reqflow/token"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	noFollowRedirects bool
	logger            *slog.Logger
	propagator        propagation.TextMapPropagator
	handlers          []handlerFn
}

func (o *options) use(fn handlerFn) {
	o.handlers = append(o.handlers, fn)
}

func (o *options) useStatic(mw handler.Middleware) {
	o.use(func(*slog.Logger, []handler.Option) (handler.Middleware, error) {
		return mw, nil
	})
}

// WithClient replaces the default [http.Client] used by the [Client].
// The client is copied, so later changes to hc do not leak in.
func WithClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errs.InvalidArgument("client", "must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errs.InvalidArgument("transport", "must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errs.InvalidArgument("timeout", "must not be negative")
		}
		o.timeout = &d
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(o *options) error {
		o.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client] and its handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithPropagator overrides the global propagator used by WithTracer.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *options) error {
		o.propagator = p
		return nil
	}
}

// WithHandler installs a custom handler at this point of the chain.
func WithHandler(mw handler.Middleware) Option {
	return func(o *options) error {
		if mw == nil {
			return errs.InvalidArgument("handler", "must not be nil")
		}
		o.useStatic(mw)
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(o *options) error {
		if header == "" {
			return nil
		}
		o.useStatic(handler.UserAgent(header))
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		cfg := throttle.Config{RPS: rps, Burst: burst}
		if err := cfg.Validate(); err != nil {
			return err
		}

		o.use(func(logger *slog.Logger, _ []handler.Option) (handler.Middleware, error) {
			return throttle.New(cfg, logger)
		})
		return nil
	}
}

// WithHeader sets a default header on requests that do not carry one.
func WithHeader(name, value string) Option {
	return func(o *options) error {
		if strings.TrimSpace(name) == "" {
			return errs.InvalidArgument("name", "must not be blank")
		}
		o.useStatic(handler.Header(name, value))
		return nil
	}
}

// WithAuthorization sets a default Authorization header.
func WithAuthorization(scheme, parameter string) Option {
	return func(o *options) error {
		if strings.TrimSpace(scheme) == "" {
			return errs.InvalidArgument("scheme", "must not be blank")
		}
		o.useStatic(handler.Authorization(scheme, parameter))
		return nil
	}
}

// WithBearerToken sets a default bearer Authorization header.
func WithBearerToken(tok string) Option {
	return WithAuthorization("Bearer", tok)
}

// WithTokenProvider fetches a bearer token from p for every request.
func WithTokenProvider(p token.Provider) Option {
	return func(o *options) error {
		if p == nil {
			return errs.Configuration("token provider must not be nil")
		}

		o.use(func(_ *slog.Logger, hopts []handler.Option) (handler.Middleware, error) {
			return handler.Token(p, hopts...), nil
		})
		return nil
	}
}

// WithNamedTokenProvider resolves the provider registered under name
// while the client is built.
func WithNamedTokenProvider(f token.Factory, name string) Option {
	return func(o *options) error {
		o.use(func(_ *slog.Logger, hopts []handler.Option) (handler.Middleware, error) {
			return handler.TokenFromFactory(f, name, hopts...)
		})
		return nil
	}
}

// WithTokenProviderFunc calls fn while the client is built to obtain the provider.
func WithTokenProviderFunc(fn func() (token.Provider, error)) Option {
	return func(o *options) error {
		o.use(func(_ *slog.Logger, hopts []handler.Option) (handler.Middleware, error) {
			return handler.TokenFromFunc(fn, hopts...)
		})
		return nil
	}
}

// WithAPIVersion pins the api-version query parameter.
func WithAPIVersion(value string) Option {
	return WithAPIVersionParam(handler.DefaultAPIVersionParam, value)
}

// WithAPIVersionParam pins the named version query parameter.
func WithAPIVersionParam(name, value string) Option {
	return func(o *options) error {
		if strings.TrimSpace(value) == "" {
			return errs.InvalidArgument("apiVersion", "must not be blank")
		}
		o.useStatic(handler.APIVersion(handler.APIVersionOptions{QueryParamName: name, Value: value}))
		return nil
	}
}

// WithRequestID tags requests lacking an X-Request-ID with a random one.
func WithRequestID() Option {
	return func(o *options) error {
		o.useStatic(handler.RequestID())
		return nil
	}
}

// WithTracer wraps each request in a client span from tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.use(func(_ *slog.Logger, hopts []handler.Option) (handler.Middleware, error) {
			return handler.Tracing(tracer, hopts...), nil
		})
		return nil
	}
}

// WithRequestLogging logs the start and end of every request.
func WithRequestLogging() Option {
	return func(o *options) error {
		o.use(func(_ *slog.Logger, hopts []handler.Option) (handler.Middleware, error) {
			return handler.Logging(hopts...), nil
		})
		return nil
	}
}

// DoOption is a functional option for [Client.Do].
type DoOption func(options *doOpts) error

type doOpts struct {
	responseBody any
	useJSONNum   bool
}

// WithDestination decodes the HTTP response body into bodyTemplate.
// bodyTemplate must be a pointer.
func WithDestination[T any](bodyTemplate *T) DoOption {
	return func(opts *doOpts) error {
		if bodyTemplate == nil {
			return fmt.Errorf("destination: %w", errs.InvalidArgument("bodyTemplate", "must not be nil"))
		}
		opts.responseBody = bodyTemplate

		return nil
	}
}

// WithJSONNumb tells the JSON decoder to use [json.Decoder.UseNumber],
// preserving number precision as [json.Number] instead of float64.
func WithJSONNumb() DoOption {
	return func(opts *doOpts) error {
		opts.useJSONNum = true

		return nil
	}
}
