package urlbuilder

import (
	"net/url"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// EscapeDataString percent-encodes every byte of s outside the RFC 3986
// unreserved set (ALPHA, DIGIT, '-', '.', '_', '~'). Unlike
// url.QueryEscape, spaces become %20 and sub-delimiters such as '&',
// '=' and '+' are always encoded.
func EscapeDataString(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&15])
	}

	return sb.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

// SetSingleQueryParam returns a copy of u whose query carries exactly one
// name parameter set to value. The first existing occurrence is replaced
// in place and any others are dropped; if name is absent it is appended.
// Unrelated parameters keep their raw form and order.
func SetSingleQueryParam(u *url.URL, name, value string) *url.URL {
	if u == nil {
		return nil
	}

	pair := EscapeDataString(name) + "=" + EscapeDataString(value)

	var (
		out      []string
		replaced bool
	)
	for seg := range strings.SplitSeq(u.RawQuery, "&") {
		if seg == "" {
			continue
		}

		key, _, _ := strings.Cut(seg, "=")
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}

		if key == name {
			if !replaced {
				out = append(out, pair)
				replaced = true
			}
			continue
		}

		out = append(out, seg)
	}
	if !replaced {
		out = append(out, pair)
	}

	cpy := *u
	cpy.RawQuery = strings.Join(out, "&")
	cpy.ForceQuery = false

	return &cpy
}
