package request

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"slices"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/adamwoolhether/reqflow/errs"
)

// Part is a single named section of a multipart/form-data body.
type Part struct {
	Name     string
	FileName string
	Content  Content
}

// Multipart is a multipart/form-data body. Parts are append-only and
// written in insertion order each time Body is called.
type Multipart struct {
	boundary string
	parts    []Part
}

// NewMultipart creates an empty body with a random boundary.
func NewMultipart() *Multipart {
	w := multipart.NewWriter(io.Discard)

	return &Multipart{boundary: w.Boundary()}
}

// Boundary returns the part delimiter used on the wire.
func (m *Multipart) Boundary() string {
	return m.boundary
}

// Parts returns a snapshot of the parts in insertion order.
func (m *Multipart) Parts() []Part {
	return slices.Clone(m.parts)
}

func (m *Multipart) ContentType() string {
	return MediaTypeMultipartForm + "; boundary=" + m.boundary
}

// Body streams the encoded parts through a pipe. The returned reader
// must be drained or closed to release the encoding goroutine.
func (m *Multipart) Body() (io.Reader, int64, error) {
	parts := m.Parts()

	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	if err := w.SetBoundary(m.boundary); err != nil {
		return nil, 0, fmt.Errorf("setting boundary: %w", err)
	}

	go func() {
		pw.CloseWithError(writeParts(w, parts))
	}()

	return pr, -1, nil
}

func (m *Multipart) add(p Part) {
	m.parts = append(m.parts, p)
}

func writeParts(w *multipart.Writer, parts []Part) error {
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		disposition := `form-data; name="` + quoteEscaper.Replace(p.Name) + `"`
		if p.FileName != "" {
			disposition += `; filename="` + quoteEscaper.Replace(p.FileName) + `"`
		}
		h.Set("Content-Disposition", disposition)
		if ct := p.Content.ContentType(); ct != "" {
			h.Set("Content-Type", ct)
		}

		dst, err := w.CreatePart(h)
		if err != nil {
			return fmt.Errorf("creating part %q: %w", p.Name, err)
		}

		src, _, err := p.Content.Body()
		if err != nil {
			return fmt.Errorf("opening part %q: %w", p.Name, err)
		}

		if _, err := io.Copy(dst, src); err != nil {
			return fmt.Errorf("writing part %q: %w", p.Name, err)
		}
	}

	return w.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// /////////////////////////////////////////////////////////////////

// MultipartBuilder appends parts to the multipart body already attached
// to its parent request. Argument errors are recorded on the parent.
type MultipartBuilder struct {
	parent  *Builder
	content *Multipart
}

// Request returns the parent request builder.
func (mb *MultipartBuilder) Request() *Builder {
	return mb.parent
}

// Content returns the live multipart body.
func (mb *MultipartBuilder) Content() *Multipart {
	return mb.content
}

// WithFile adds a file part read from r. Both fileName and contentType
// are required; contentType must be a valid media type.
func (mb *MultipartBuilder) WithFile(name string, r io.Reader, fileName, contentType string) *MultipartBuilder {
	if !mb.checkName(name) {
		return mb
	}
	if r == nil {
		mb.parent.err = errs.InvalidArgument("stream", "must not be nil")
		return mb
	}
	if strings.TrimSpace(fileName) == "" {
		mb.parent.err = errs.InvalidArgument("fileName", "must not be empty or whitespace")
		return mb
	}

	mt, err := parseMediaType("contentType", contentType)
	if err != nil {
		mb.parent.err = err
		return mb
	}

	mb.content.add(Part{Name: name, FileName: fileName, Content: Stream(r, mt)})

	return mb
}

// WithString adds a UTF-8 text/plain part.
func (mb *MultipartBuilder) WithString(name, s string) *MultipartBuilder {
	return mb.WithStringMedia(name, s, nil, MediaTypeTextPlain)
}

// WithStringEncoded adds a text/plain part transcoded with enc.
func (mb *MultipartBuilder) WithStringEncoded(name, s string, enc encoding.Encoding) *MultipartBuilder {
	return mb.WithStringMedia(name, s, enc, MediaTypeTextPlain)
}

// WithStringMedia adds a text part transcoded with enc and labelled
// mediaType. A nil enc means UTF-8.
func (mb *MultipartBuilder) WithStringMedia(name, s string, enc encoding.Encoding, mediaType string) *MultipartBuilder {
	if !mb.checkName(name) {
		return mb
	}

	mt, err := parseMediaType("mediaType", mediaType)
	if err != nil {
		mb.parent.err = err
		return mb
	}

	mb.content.add(Part{Name: name, Content: TextEncoded(s, enc, mt)})

	return mb
}

// WithJSON serializes v and adds it as an application/json part.
func (mb *MultipartBuilder) WithJSON(name string, v any) *MultipartBuilder {
	return mb.WithJSONEncoded(name, v, nil)
}

// WithJSONEncoded serializes v and adds it as an application/json part
// transcoded with enc.
func (mb *MultipartBuilder) WithJSONEncoded(name string, v any, enc encoding.Encoding) *MultipartBuilder {
	if mb.parent.err != nil {
		return mb
	}

	data, err := json.Marshal(v)
	if err != nil {
		mb.parent.err = fmt.Errorf("encoding json part %q: %w", name, err)
		return mb
	}

	return mb.WithStringMedia(name, string(data), enc, MediaTypeJSON)
}

// WithBytes adds a raw part with no Content-Type.
func (mb *MultipartBuilder) WithBytes(name string, data []byte) *MultipartBuilder {
	if !mb.checkName(name) {
		return mb
	}

	mb.content.add(Part{Name: name, Content: Bytes(data)})

	return mb
}

func (mb *MultipartBuilder) checkName(name string) bool {
	if mb.parent.err != nil {
		return false
	}
	if strings.TrimSpace(name) == "" {
		mb.parent.err = errs.InvalidArgument("name", "must not be empty or whitespace")
		return false
	}

	return true
}
