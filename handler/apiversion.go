package handler

import (
	"net/http"
	"strings"

	"github.com/adamwoolhether/reqflow/urlbuilder"
)

// DefaultAPIVersionParam is the query parameter used when
// APIVersionOptions.QueryParamName is blank.
const DefaultAPIVersionParam = "api-version"

// APIVersionOptions configures APIVersion.
type APIVersionOptions struct {
	QueryParamName string
	Value          string
}

// APIVersion pins the version query parameter to a single value,
// replacing any values already on the URL. A blank Value makes the
// handler a pass-through. Running it more than once on the same request
// leaves exactly one parameter.
func APIVersion(opts APIVersionOptions) Middleware {
	name := opts.QueryParamName
	if strings.TrimSpace(name) == "" {
		name = DefaultAPIVersionParam
	}
	value := opts.Value

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if strings.TrimSpace(value) == "" || r.URL == nil {
				return next.RoundTrip(r)
			}

			cpy := clone(r)
			cpy.URL = urlbuilder.SetSingleQueryParam(r.URL, name, value)

			return next.RoundTrip(cpy)
		})
	}
}
