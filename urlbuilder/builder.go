// Package urlbuilder provides a mutable URL builder with path token
// replacement and ordered, accumulating query parameters.
//
//	u, err := urlbuilder.Parse("libraries/{libraryId}/cmd/exists").
//		ReplaceToken("{libraryId}", libraryID).
//		SetQueryParam("path", "/foo").
//		URL()
package urlbuilder

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-querystring/query"

	"github.com/adamwoolhether/reqflow/errs"
)

// QueryParam is a single key/value pair. Value holds the
// final (possibly escaped) form written to the query string.
type QueryParam struct {
	Key   string
	Value string
}

// Builder holds the parts of a URL. Every exported field may be
// mutated directly; the URL string is derived from them on each call
// to String or URL.
type Builder struct {
	Scheme      string
	User        *url.Userinfo
	Host        string
	Port        int
	Path        string
	Fragment    string
	QueryParams []QueryParam

	err error
}

func nilBuilderErr() error {
	return errs.InvalidArgument("builder", "must not be nil")
}

// halted reports whether a call on b must be skipped. A nil b yields a
// new Builder carrying the error.
func (b *Builder) halted() (*Builder, bool) {
	if b == nil {
		return &Builder{err: nilBuilderErr()}, true
	}

	return b, b.err != nil
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Parse seeds a Builder from rawURL, which may be absolute or relative.
// User information is kept and rendered back by String. Path
// placeholders like `{id}` are kept verbatim. An existing query
// string is split into QueryParams in order. Parse errors are reported
// by Err and URL.
func Parse(rawURL string) *Builder {
	b := &Builder{}

	u, err := url.Parse(rawURL)
	if err != nil {
		b.err = fmt.Errorf("parsing url: %w", err)
		return b
	}

	b.Scheme = u.Scheme
	b.User = u.User
	b.Host = u.Hostname()
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			b.err = fmt.Errorf("parsing port[%s]: %w", p, err)
			return b
		}
		b.Port = port
	}

	b.Path = u.RawPath
	if b.Path == "" {
		b.Path = u.EscapedPath()
	}
	b.Fragment = u.EscapedFragment()

	for seg := range strings.SplitSeq(u.RawQuery, "&") {
		if seg == "" {
			continue
		}
		k, v, _ := strings.Cut(seg, "=")
		b.QueryParams = append(b.QueryParams, QueryParam{Key: k, Value: v})
	}

	return b
}

// Err returns the first error recorded by the builder.
func (b *Builder) Err() error {
	if b == nil {
		return nilBuilderErr()
	}

	return b.err
}

// ReplaceToken substitutes every literal occurrence of token in the
// path with the escaped string form of value.
func (b *Builder) ReplaceToken(token string, value any) *Builder {
	if nb, stop := b.halted(); stop {
		return nb
	}
	if strings.TrimSpace(token) == "" {
		b.err = errs.InvalidArgument("token", "must not be empty or whitespace")
		return b
	}

	b.Path = strings.ReplaceAll(b.Path, token, EscapeDataString(Stringify(value)))

	return b
}

// SetQueryParam appends key=value to the query. Existing values for key
// are kept; parameters accumulate in insertion order. By default a nil
// value is skipped and the value is escaped, see WithNullValues and
// WithoutEscaping.
func (b *Builder) SetQueryParam(key string, value any, opts ...QueryOption) *Builder {
	if nb, stop := b.halted(); stop {
		return nb
	}
	if strings.TrimSpace(key) == "" {
		b.err = errs.InvalidArgument("key", "must not be empty or whitespace")
		return b
	}

	settings := queryOpts{ignoreIfNull: true, escapeValue: true}
	for _, opt := range opts {
		opt(&settings)
	}

	if settings.ignoreIfNull && isNil(value) {
		return b
	}

	str := Stringify(value)
	if settings.escapeValue {
		str = EscapeDataString(str)
	}

	b.QueryParams = append(b.QueryParams, QueryParam{Key: key, Value: str})

	return b
}

// SetQueryParams flattens v, a struct with `url` tags or a url.Values,
// into query parameters appended in sorted key order.
func (b *Builder) SetQueryParams(v any) *Builder {
	if nb, stop := b.halted(); stop {
		return nb
	}
	if isNil(v) {
		return b
	}

	var values url.Values
	switch val := v.(type) {
	case url.Values:
		values = val
	default:
		var err error
		values, err = query.Values(v)
		if err != nil {
			b.err = fmt.Errorf("encoding query params: %w", err)
			return b
		}
	}

	for _, key := range sortedKeys(values) {
		for _, val := range values[key] {
			b.QueryParams = append(b.QueryParams, QueryParam{Key: key, Value: EscapeDataString(val)})
		}
	}

	return b
}

// QueryString materializes the query parameters as `?k1=v1&k2=v2`,
// or an empty string when there are none.
func (b *Builder) QueryString() string {
	if b == nil || len(b.QueryParams) == 0 {
		return ""
	}

	pairs := make([]string, len(b.QueryParams))
	for i, p := range b.QueryParams {
		pairs[i] = p.Key + "=" + p.Value
	}

	return "?" + strings.Join(pairs, "&")
}

// String renders the URL from the current field values.
func (b *Builder) String() string {
	if b == nil {
		return ""
	}

	var sb strings.Builder

	if b.Scheme != "" || b.Host != "" {
		if b.Scheme != "" {
			sb.WriteString(b.Scheme)
			sb.WriteByte(':')
		}
		sb.WriteString("//")
		if b.User != nil {
			sb.WriteString(b.User.String())
			sb.WriteByte('@')
		}

		host := b.Host
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		if b.Port > 0 {
			host = net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
		}
		sb.WriteString(host)

		if b.Path != "" && !strings.HasPrefix(b.Path, "/") {
			sb.WriteByte('/')
		}
	}

	sb.WriteString(b.Path)
	sb.WriteString(b.QueryString())

	if b.Fragment != "" {
		sb.WriteByte('#')
		sb.WriteString(b.Fragment)
	}

	return sb.String()
}

// URL materializes the builder into a *url.URL.
func (b *Builder) URL() (*url.URL, error) {
	if b == nil {
		return nil, nilBuilderErr()
	}
	if b.err != nil {
		return nil, b.err
	}

	u, err := url.Parse(b.String())
	if err != nil {
		return nil, fmt.Errorf("materializing url: %w", err)
	}

	return u, nil
}
