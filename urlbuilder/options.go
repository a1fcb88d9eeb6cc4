package urlbuilder

// QueryOption adjusts how SetQueryParam treats a single value.
type QueryOption func(opts *queryOpts)

type queryOpts struct {
	ignoreIfNull bool
	escapeValue  bool
}

// WithNullValues keeps nil values, rendering them as an empty string.
func WithNullValues() QueryOption {
	return func(opts *queryOpts) {
		opts.ignoreIfNull = false
	}
}

// WithoutEscaping writes the stringified value to the query verbatim.
func WithoutEscaping() QueryOption {
	return func(opts *queryOpts) {
		opts.escapeValue = false
	}
}
