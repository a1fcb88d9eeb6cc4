package token

import (
	"errors"
	"strings"
)

// Error describes why a token could not be acquired.
type Error struct {
	Code    string
	Target  string
	Message string
	Details []*Error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code)
	if e.Target != "" {
		sb.WriteString(" (" + e.Target + ")")
	}
	if e.Message != "" {
		sb.WriteString(": " + e.Message)
	}

	return sb.String()
}

// DetailMessages flattens Details into "code: message" strings.
func (e *Error) DetailMessages() []string {
	if len(e.Details) == 0 {
		return nil
	}

	out := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		if d != nil {
			out = append(out, d.Error())
		}
	}

	return out
}

// AsError returns err as an *Error, wrapping foreign errors under the
// "token_error" code.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var te *Error
	if errors.As(err, &te) {
		return te
	}

	return &Error{Code: "token_error", Message: err.Error()}
}
