package request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/adamwoolhether/reqflow/errs"
	"github.com/adamwoolhether/reqflow/urlbuilder"
)

// Builder wraps a single *http.Request. Each With* method mutates the
// wrapped request in place and returns the same Builder. The first
// invalid argument is recorded and turns every later call into a no-op;
// it is reported by Err and Request.
type Builder struct {
	req     *http.Request
	content Content
	err     error

	// consumed is set once a single-use body has been handed out.
	consumed bool
}

func nilBuilderErr() error {
	return errs.InvalidArgument("builder", "must not be nil")
}

// halted reports whether a call on b must be skipped. A nil b yields a
// new Builder carrying the error so chained calls keep working.
func (b *Builder) halted() (*Builder, bool) {
	if b == nil {
		return &Builder{err: nilBuilderErr()}, true
	}

	return b, b.err != nil
}

// New creates a GET request with an empty URL.
func New(ctx context.Context) *Builder {
	return NewWithURL(ctx, &url.URL{})
}

// NewWithURL creates a GET request targeting u.
func NewWithURL(ctx context.Context, u *url.URL) *Builder {
	if ctx == nil {
		return &Builder{err: errs.InvalidArgument("ctx", "must not be nil")}
	}
	if u == nil {
		return &Builder{err: errs.InvalidArgument("url", "must not be nil")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &Builder{err: fmt.Errorf("instantiating request: %w", err)}
	}
	req.URL = u

	return &Builder{req: req}
}

// FromURL materializes ub and creates a GET request targeting it.
func FromURL(ctx context.Context, ub *urlbuilder.Builder) *Builder {
	if ub == nil {
		return &Builder{err: errs.InvalidArgument("urlBuilder", "must not be nil")}
	}

	u, err := ub.URL()
	if err != nil {
		return &Builder{err: err}
	}

	return NewWithURL(ctx, u)
}

// Wrap adopts an existing request. Its current body is left untouched
// unless content is set through the Builder.
func Wrap(req *http.Request) *Builder {
	if req == nil {
		return &Builder{err: errs.InvalidArgument("request", "must not be nil")}
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	return &Builder{req: req}
}

// Err returns the first error recorded by the builder.
func (b *Builder) Err() error {
	if b == nil {
		return nilBuilderErr()
	}

	return b.err
}

// Content returns the body content currently attached, if any.
func (b *Builder) Content() Content {
	if b == nil {
		return nil
	}

	return b.content
}

// WithMethod sets the request method.
func (b *Builder) WithMethod(method string) *Builder {
	if nb, stop := b.halted(); stop {
		return nb
	}
	if strings.TrimSpace(method) == "" {
		b.err = errs.InvalidArgument("method", "must not be empty")
		return b
	}

	b.req.Method = method

	return b
}

// Method returns a sub-builder for choosing the request method.
func (b *Builder) Method() *MethodBuilder {
	return &MethodBuilder{builder: b}
}

// WithHeader appends value to the header name; existing values are kept.
func (b *Builder) WithHeader(name, value string) *Builder {
	if nb, stop := b.halted(); stop {
		return nb
	}
	if strings.TrimSpace(name) == "" {
		b.err = errs.InvalidArgument("name", "must not be empty or whitespace")
		return b
	}

	b.req.Header.Add(name, value)

	return b
}

// WithAccept appends a media type, optionally with a quality
// parameter such as "application/json;q=0.9", to the Accept header.
func (b *Builder) WithAccept(mediaType string) *Builder {
	if nb, stop := b.halted(); stop {
		return nb
	}

	mt, err := parseMediaType("accept", mediaType)
	if err != nil {
		b.err = err
		return b
	}

	b.req.Header.Add("Accept", mt)

	return b
}

func (b *Builder) WithAcceptOctetStream() *Builder { return b.WithAccept(MediaTypeOctetStream) }
func (b *Builder) WithAcceptJSON() *Builder        { return b.WithAccept(MediaTypeJSON) }
func (b *Builder) WithAcceptTextXML() *Builder     { return b.WithAccept(MediaTypeTextXML) }
func (b *Builder) WithAcceptTextPlain() *Builder   { return b.WithAccept(MediaTypeTextPlain) }

// WithAuthorization replaces the Authorization header with
// "<scheme> <parameter>", or just the scheme when parameter is empty.
func (b *Builder) WithAuthorization(scheme, parameter string) *Builder {
	if nb, stop := b.halted(); stop {
		return nb
	}
	if strings.TrimSpace(scheme) == "" {
		b.err = errs.InvalidArgument("scheme", "must not be empty or whitespace")
		return b
	}

	b.req.Header.Set("Authorization", FormatAuthorization(scheme, parameter))

	return b
}

// WithBearer sets the Authorization header using the Bearer scheme.
func (b *Builder) WithBearer(token string) *Builder {
	return b.WithAuthorization("Bearer", token)
}

// WithContent attaches c as the request body, replacing prior content.
func (b *Builder) WithContent(c Content) *Builder {
	if nb, stop := b.halted(); stop {
		return nb
	}
	if c == nil {
		b.err = errs.InvalidArgument("content", "must not be nil")
		return b
	}

	b.content = c
	b.consumed = false

	return b
}

// WithJSON serializes v immediately and attaches it as the body.
func (b *Builder) WithJSON(v any) *Builder {
	if nb, stop := b.halted(); stop {
		return nb
	}

	c, err := JSON(v)
	if err != nil {
		b.err = err
		return b
	}

	return b.WithContent(c)
}

// WithFormURLEncoded attaches pairs as a form-urlencoded body.
func (b *Builder) WithFormURLEncoded(pairs ...Pair) *Builder {
	return b.WithContent(FormURLEncoded(pairs...))
}

// WithText attaches s as UTF-8 text/plain.
func (b *Builder) WithText(s string) *Builder {
	return b.WithContent(Text(s))
}

// WithTextEncoded attaches s transcoded with enc and labelled mediaType.
func (b *Builder) WithTextEncoded(s string, enc encoding.Encoding, mediaType string) *Builder {
	if nb, stop := b.halted(); stop {
		return nb
	}
	if mediaType != "" {
		if _, err := parseMediaType("mediaType", mediaType); err != nil {
			b.err = err
			return b
		}
	}

	return b.WithContent(TextEncoded(s, enc, mediaType))
}

// WithBytes attaches raw bytes as the body.
func (b *Builder) WithBytes(data []byte) *Builder {
	return b.WithContent(Bytes(data))
}

// WithStream attaches r as a single-use body.
func (b *Builder) WithStream(r io.Reader, mediaType string) *Builder {
	if nb, stop := b.halted(); stop {
		return nb
	}
	if r == nil {
		b.err = errs.InvalidArgument("stream", "must not be nil")
		return b
	}

	return b.WithContent(Stream(r, mediaType))
}

// Multipart attaches an empty multipart/form-data body to the request
// right away and returns a builder for adding parts to it.
func (b *Builder) Multipart() *MultipartBuilder {
	m := NewMultipart()
	b = b.WithContent(m)

	return &MultipartBuilder{parent: b, content: m}
}

// Request materializes the attached content onto the wrapped request
// and returns it. The returned request is owned by the caller. Content
// that can only be read once is materialized by the first call; later
// calls fail until new content is attached.
func (b *Builder) Request() (*http.Request, error) {
	if b == nil {
		return nil, nilBuilderErr()
	}
	if b.err != nil {
		return nil, b.err
	}

	if b.content == nil {
		return b.req, nil
	}

	_, canReplay := b.content.(replayable)
	if !canReplay && b.consumed {
		return nil, errs.InvalidArgument("content", "single-use body already materialized")
	}

	body, n, err := b.content.Body()
	if err != nil {
		return nil, fmt.Errorf("materializing body: %w", err)
	}

	rc, ok := body.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(body)
	}
	b.req.Body = rc
	b.req.ContentLength = n
	b.req.GetBody = nil
	b.consumed = !canReplay

	if canReplay {
		content := b.content
		b.req.GetBody = func() (io.ReadCloser, error) {
			r, _, err := content.Body()
			if err != nil {
				return nil, err
			}
			return io.NopCloser(r), nil
		}
	}

	if ct := b.content.ContentType(); ct != "" {
		b.req.Header.Set("Content-Type", ct)
	}

	return b.req, nil
}

// FormatAuthorization renders an Authorization header value.
func FormatAuthorization(scheme, parameter string) string {
	if parameter == "" {
		return scheme
	}
	return scheme + " " + parameter
}
