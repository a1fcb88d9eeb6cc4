package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adamwoolhether/reqflow/handler"
)

// maxErrBodySize caps how much of an unexpected response is kept on
// the returned UnexpectedStatusError.
const maxErrBodySize = 4 << 10 // 4KB

// execFn represents a func to operate on a response.
type execFn func(response *http.Response) error

// handlerFn builds a handler once Build knows the final logger.
type handlerFn func(logger *slog.Logger, hopts []handler.Option) (handler.Middleware, error)

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrBatchShutdown is returned for batch downloads that had not
	// started when the batch was shut down.
	ErrBatchShutdown = errors.New("batch shut down")
)

// UnexpectedStatusError is returned when the HTTP response status code
// does not match the expected value.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}
