// Package throttle rate-limits a handler chain with a token bucket from
// [golang.org/x/time/rate].
//
// Requests block until a token is available or their context ends:
//
//	mw, err := throttle.New(throttle.Config{RPS: 10, Burst: 5}, slog.Default())
//	rt := handler.Chain(http.DefaultTransport, mw)
package throttle
