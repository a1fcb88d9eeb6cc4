package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/adamwoolhether/reqflow/request"
)

// RequestIDHeader carries the id set by RequestID.
const RequestIDHeader = "X-Request-ID"

// Header adds a default header, leaving requests that already carry
// name unchanged.
func Header(name, value string) Middleware {
	key := http.CanonicalHeaderKey(name)

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if len(r.Header.Values(key)) > 0 {
				return next.RoundTrip(r)
			}

			cpy := clone(r)
			cpy.Header.Set(key, value)

			return next.RoundTrip(cpy)
		})
	}
}

// Authorization is a default Authorization header of the given scheme.
func Authorization(scheme, parameter string) Middleware {
	return Header("Authorization", request.FormatAuthorization(scheme, parameter))
}

// Bearer is a default Authorization header with the Bearer scheme.
func Bearer(token string) Middleware {
	return Authorization("Bearer", token)
}

// UserAgent sets the User-Agent header on every request, replacing the
// one Go's transport would send.
func UserAgent(value string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			cpy := clone(r)
			cpy.Header.Set("User-Agent", value)

			return next.RoundTrip(cpy)
		})
	}
}

// RequestID sets a random UUID in X-Request-ID unless one is present.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(RequestIDHeader) != "" {
				return next.RoundTrip(r)
			}

			cpy := clone(r)
			cpy.Header.Set(RequestIDHeader, uuid.NewString())

			return next.RoundTrip(cpy)
		})
	}
}
