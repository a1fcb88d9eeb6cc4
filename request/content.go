package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// Content is a request body. Body returns a reader positioned at the
// start of the content along with its length, or -1 when unknown.
type Content interface {
	Body() (io.Reader, int64, error)
	ContentType() string
}

// replayable marks content whose Body can be produced more than once,
// enabling http.Request.GetBody for redirects.
type replayable interface {
	replayable()
}

// Pair is an ordered form field.
type Pair struct {
	Key   string
	Value string
}

// /////////////////////////////////////////////////////////////////

type bytesContent struct {
	data      []byte
	mediaType string
}

// Bytes wraps raw bytes with no Content-Type.
func Bytes(data []byte) Content {
	return &bytesContent{data: data}
}

func (c *bytesContent) Body() (io.Reader, int64, error) {
	return bytes.NewReader(c.data), int64(len(c.data)), nil
}

func (c *bytesContent) ContentType() string { return c.mediaType }
func (c *bytesContent) replayable()         {}

// /////////////////////////////////////////////////////////////////

type streamContent struct {
	r         io.Reader
	mediaType string
}

// Stream wraps r, which is read exactly once. mediaType may be empty.
func Stream(r io.Reader, mediaType string) Content {
	return &streamContent{r: r, mediaType: mediaType}
}

func (c *streamContent) Body() (io.Reader, int64, error) {
	return c.r, -1, nil
}

func (c *streamContent) ContentType() string { return c.mediaType }

// /////////////////////////////////////////////////////////////////

type textContent struct {
	text      string
	enc       encoding.Encoding
	mediaType string
}

// Text is UTF-8 text/plain content.
func Text(s string) Content {
	return &textContent{text: s, mediaType: MediaTypeTextPlain}
}

// TextEncoded is text content transcoded with enc and labelled with
// mediaType. A nil enc means UTF-8, an empty mediaType means text/plain.
func TextEncoded(s string, enc encoding.Encoding, mediaType string) Content {
	if mediaType == "" {
		mediaType = MediaTypeTextPlain
	}
	return &textContent{text: s, enc: enc, mediaType: mediaType}
}

func (c *textContent) Body() (io.Reader, int64, error) {
	if c.enc == nil {
		return strings.NewReader(c.text), int64(len(c.text)), nil
	}

	encoded, err := c.enc.NewEncoder().String(c.text)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding text content: %w", err)
	}

	return strings.NewReader(encoded), int64(len(encoded)), nil
}

func (c *textContent) ContentType() string {
	cs := charset(c.enc)
	if cs == "" {
		return c.mediaType
	}
	return c.mediaType + "; charset=" + cs
}

func (c *textContent) replayable() {}

// charset names enc for a Content-Type parameter, preferring the IANA
// MIME name. Encodings with no registered name yield "".
func charset(enc encoding.Encoding) string {
	if enc == nil {
		return "utf-8"
	}
	if name, err := ianaindex.MIME.Name(enc); err == nil && name != "" {
		return strings.ToLower(name)
	}
	if name, err := htmlindex.Name(enc); err == nil {
		return name
	}
	return ""
}

// /////////////////////////////////////////////////////////////////

type formContent struct {
	pairs []Pair
}

// FormURLEncoded encodes pairs in order as application/x-www-form-urlencoded.
func FormURLEncoded(pairs ...Pair) Content {
	return &formContent{pairs: pairs}
}

func (c *formContent) Body() (io.Reader, int64, error) {
	encoded := make([]string, len(c.pairs))
	for i, p := range c.pairs {
		encoded[i] = url.QueryEscape(p.Key) + "=" + url.QueryEscape(p.Value)
	}

	body := strings.Join(encoded, "&")

	return strings.NewReader(body), int64(len(body)), nil
}

func (c *formContent) ContentType() string { return MediaTypeFormURLEncoded }
func (c *formContent) replayable()         {}

// /////////////////////////////////////////////////////////////////

// JSON serializes v with encoding/json as application/json; charset=utf-8.
func JSON(v any) (Content, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding json content: %w", err)
	}

	return &bytesContent{data: data, mediaType: MediaTypeJSON + "; charset=utf-8"}, nil
}
