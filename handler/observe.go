package handler

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracing starts a client span per request and injects its context
// into the outgoing headers. A nil tracer falls back to a noop tracer,
// which still propagates a parent span found on the request context.
func Tracing(tracer trace.Tracer, opts ...Option) Middleware {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	o := newOptions(opts)

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			ctx, span := tracer.Start(r.Context(), "http.client "+r.Method, trace.WithSpanKind(trace.SpanKindClient))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.full", r.URL.Redacted()),
			)

			cpy := r.Clone(ctx)
			if cpy.Header == nil {
				cpy.Header = make(http.Header)
			}
			o.propagator.Inject(ctx, propagation.HeaderCarrier(cpy.Header))

			resp, err := next.RoundTrip(cpy)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}

			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			if resp.StatusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
			}

			return resp, nil
		})
	}
}

// Logging logs the start and completion of every request.
func Logging(opts ...Option) Middleware {
	o := newOptions(opts)

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			ctx := r.Context()
			url := r.URL.Redacted()
			start := time.Now()

			o.logger.InfoContext(ctx, "request started", "method", r.Method, "url", url)

			resp, err := next.RoundTrip(r)
			if err != nil {
				o.logger.ErrorContext(ctx, "request failed", "method", r.Method, "url", url, "since", time.Since(start).String(), "error", err)
				return nil, err
			}

			o.logger.InfoContext(ctx, "request completed", "method", r.Method, "url", url, "statusCode", resp.StatusCode, "since", time.Since(start).String())

			return resp, nil
		})
	}
}
