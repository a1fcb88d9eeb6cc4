// Package response wraps completed HTTP exchanges as file-like values
// that own the body stream and the transport handle behind it.
package response

import (
	"fmt"
	"io"
	"maps"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/adamwoolhether/reqflow/errs"
)

// MediaType is a parsed Content-Type value.
type MediaType struct {
	MediaType string
	Params    map[string]string
}

func (m MediaType) String() string {
	return mime.FormatMediaType(m.MediaType, m.Params)
}

// Charset returns the charset parameter, if any.
func (m MediaType) Charset() string {
	return m.Params["charset"]
}

// Disposition is a parsed Content-Disposition value.
type Disposition struct {
	Type   string
	Params map[string]string
}

// FileName returns the filename parameter with any directory removed.
// RFC 2231 "filename*" values are decoded into it during parsing.
func (d Disposition) FileName() string {
	name := d.Params["filename"]
	if name == "" {
		return ""
	}

	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if base == "/" || base == "." {
		return ""
	}

	return base
}

// FileResponse is a response body together with the status and headers
// it arrived with. Close releases both the body and the handle passed
// at construction; it is safe to call more than once.
type FileResponse struct {
	StatusCode         int
	Header             http.Header
	Body               io.ReadCloser
	ContentType        *MediaType
	ContentDisposition *Disposition

	handle    io.Closer
	closeOnce sync.Once
	closeErr  error
}

// New assembles a FileResponse from explicit parts. A nil body is
// replaced by http.NoBody; handle may be nil. Non-blank Content-Type and
// Content-Disposition headers are parsed and a failure is returned as
// an errs.ErrParse error.
func New(statusCode int, header http.Header, body io.ReadCloser, handle io.Closer) (*FileResponse, error) {
	if header == nil {
		header = make(http.Header)
	}
	if body == nil {
		body = http.NoBody
	}

	fr := FileResponse{
		StatusCode: statusCode,
		Header:     header,
		Body:       body,
		handle:     handle,
	}

	if v := header.Get("Content-Type"); strings.TrimSpace(v) != "" {
		mt, params, err := mime.ParseMediaType(v)
		if err != nil {
			return nil, errs.Parse("Content-Type", v, err)
		}
		fr.ContentType = &MediaType{MediaType: mt, Params: params}
	}

	if v := header.Get("Content-Disposition"); strings.TrimSpace(v) != "" {
		typ, params, err := mime.ParseMediaType(v)
		if err != nil {
			return nil, errs.Parse("Content-Disposition", v, err)
		}
		fr.ContentDisposition = &Disposition{Type: typ, Params: params}
	}

	return &fr, nil
}

// FromResponse adopts a completed *http.Response. Body-describing values
// the transport tracks outside the header map take precedence over the
// message headers. The response body becomes the stream.
func FromResponse(resp *http.Response) (*FileResponse, error) {
	if resp == nil {
		return nil, errs.InvalidArgument("response", "must not be nil")
	}

	header := MergeHeaders(resp.Header, contentHeaders(resp))

	fr, err := New(resp.StatusCode, header, resp.Body, nil)
	if err != nil {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}

	return fr, nil
}

// MergeHeaders returns a copy of message with every key in content
// replacing the message values.
func MergeHeaders(message, content http.Header) http.Header {
	out := message.Clone()
	if out == nil {
		out = make(http.Header, len(content))
	}

	maps.Copy(out, content)

	return out
}

func contentHeaders(resp *http.Response) http.Header {
	h := make(http.Header)
	if resp.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}

	return h
}

// IsPartial reports a 206 Partial Content status.
func (r *FileResponse) IsPartial() bool {
	return r.StatusCode == http.StatusPartialContent
}

// ContentLength returns the Content-Length header, or -1 when absent.
func (r *FileResponse) ContentLength() int64 {
	n, err := strconv.ParseInt(r.Header.Get("Content-Length"), 10, 64)
	if err != nil || n < 0 {
		return -1
	}

	return n
}

// FileName returns the Content-Disposition filename, or "".
func (r *FileResponse) FileName() string {
	if r.ContentDisposition == nil {
		return ""
	}

	return r.ContentDisposition.FileName()
}

func (r *FileResponse) Read(p []byte) (int, error) {
	if r.Body == nil {
		return 0, io.EOF
	}

	return r.Body.Read(p)
}

// Close releases the body stream and then the handle. Only the first
// call does any work; later calls return the first result. A nil or
// zero FileResponse closes without error.
func (r *FileResponse) Close() error {
	if r == nil {
		return nil
	}

	r.closeOnce.Do(func() {
		var merr *multierror.Error

		if r.Body != nil {
			if err := r.Body.Close(); err != nil {
				merr = multierror.Append(merr, fmt.Errorf("closing stream: %w", err))
			}
		}
		if r.handle != nil {
			if err := r.handle.Close(); err != nil {
				merr = multierror.Append(merr, fmt.Errorf("closing handle: %w", err))
			}
		}

		r.closeErr = merr.ErrorOrNil()
	})

	return r.closeErr
}
