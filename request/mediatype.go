package request

import (
	"mime"
	"strings"

	"github.com/adamwoolhether/reqflow/errs"
)

const (
	MediaTypeOctetStream    = "application/octet-stream"
	MediaTypeJSON           = "application/json"
	MediaTypeTextXML        = "text/xml"
	MediaTypeTextPlain      = "text/plain"
	MediaTypeFormURLEncoded = "application/x-www-form-urlencoded"
	MediaTypeMultipartForm  = "multipart/form-data"
)

// parseMediaType validates v and returns it in canonical form.
func parseMediaType(field, v string) (string, error) {
	if strings.TrimSpace(v) == "" {
		return "", errs.InvalidArgument(field, "must not be empty or whitespace")
	}

	mt, params, err := mime.ParseMediaType(v)
	if err != nil {
		return "", errs.Parse(field, v, err)
	}

	return mime.FormatMediaType(mt, params), nil
}
