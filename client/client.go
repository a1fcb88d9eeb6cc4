package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/adamwoolhether/reqflow/errs"
	"github.com/adamwoolhether/reqflow/handler"
	"github.com/adamwoolhether/reqflow/request"
	"github.com/adamwoolhether/reqflow/response"
)

// Client sends requests through a chain of delegating handlers that
// sits on top of a base transport.
type Client struct {
	hc     *http.Client
	logger *slog.Logger
}

// Build creates a Client. Handlers are installed in the order their
// options are given: the first one sees the request first.
func Build(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	c := &Client{
		hc:     &http.Client{},
		logger: slog.Default(),
	}

	if opts.client != nil {
		cpy := *opts.client
		c.hc = &cpy
	}

	if opts.logger != nil {
		c.logger = opts.logger
	}

	if opts.timeout != nil {
		c.hc.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		c.hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}

	hopts := []handler.Option{handler.WithLogger(c.logger)}
	if opts.propagator != nil {
		hopts = append(hopts, handler.WithPropagator(opts.propagator))
	}

	mws := make([]handler.Middleware, 0, len(opts.handlers))
	for _, fn := range opts.handlers {
		mw, err := fn(c.logger, hopts)
		if err != nil {
			return nil, fmt.Errorf("configuring handler: %w", err)
		}
		mws = append(mws, mw)
	}
	c.hc.Transport = handler.Chain(transport, mws...)

	return c, nil
}

// HTTPClient exposes the configured *http.Client, handlers included.
func (c *Client) HTTPClient() *http.Client {
	return c.hc
}

// Send materializes b and sends it. The caller owns the response body.
func (c *Client) Send(b *request.Builder) (*http.Response, error) {
	if b == nil {
		return nil, errs.InvalidArgument("builder", "must not be nil")
	}

	req, err := b.Request()
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exec http do: %w", err)
	}

	return resp, nil
}

// Do will fire the request, and write response to the given dest object if any.
func (c *Client) Do(req *http.Request, expCode int, opts ...DoOption) error {
	var settings doOpts
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return err
		}
	}

	doFunc := func(resp *http.Response) error {
		if settings.responseBody == nil {
			return nil
		}

		d := json.NewDecoder(resp.Body)
		if settings.useJSONNum {
			d.UseNumber()
		}

		if err := d.Decode(settings.responseBody); err != nil {
			return fmt.Errorf("decoding body: %w", err)
		}

		return nil
	}

	return c.exec(req, expCode, doFunc)
}

// File sends req and hands the response back as a FileResponse whatever
// its status. The caller must Close it.
func (c *Client) File(req *http.Request) (*response.FileResponse, error) {
	if req == nil {
		return nil, errs.InvalidArgument("request", "must not be nil")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exec http do: %w", err)
	}

	fr, err := response.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("reading file response: %w", err)
	}

	return fr, nil
}

// Download executes a request that's intended to stream the response body it to destPath.
// Data streams to a temp file in the same directory, then the temp file is renamed to
// destPath on success or cleared on failure.
func (c *Client) Download(req *http.Request, expCode int, destPath string, opts ...response.SaveOption) error {
	if destPath == "" {
		return errs.InvalidArgument("destPath", "must not be empty")
	}

	dlFunc := func(resp *http.Response) error {
		fr, err := response.FromResponse(resp)
		if err != nil {
			return fmt.Errorf("reading file response: %w", err)
		}

		saveOpts := slices.Concat([]response.SaveOption{response.WithLogger(c.logger)}, opts)
		if err := fr.SaveTo(req.Context(), destPath, saveOpts...); err != nil {
			return fmt.Errorf("download: %w", err)
		}

		return nil
	}

	return c.exec(req, expCode, dlFunc)
}

// exec runs the request and injected function on success after validating the expected status code.
func (c *Client) exec(req *http.Request, expCode int, fn execFn) error {
	if req == nil {
		return errs.InvalidArgument("request", "must not be nil")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("exec http do: %w", err)
	}

	discardBody := true
	defer func() {
		if discardBody {
			if _, err := io.Copy(io.Discard, resp.Body); err != nil {
				c.logger.Error("failed to discard unused body", "error", err)
			}
		}
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != expCode {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if err != nil {
			b = []byte("unable to read body")
		}

		statusErr := ErrUnexpectedStatusCode
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			statusErr = errors.Join(ErrUnexpectedStatusCode, ErrAuthFailure)
		}

		return &UnexpectedStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(b),
			Err:        statusErr,
		}
	}

	if err := fn(resp); err != nil {
		discardBody = false
		return fmt.Errorf("exec fn: %w", err)
	}

	return nil
}
