package client_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/reqflow/client"
	"github.com/adamwoolhether/reqflow/errs"
	"github.com/adamwoolhether/reqflow/handler"
	"github.com/adamwoolhether/reqflow/request"
	"github.com/adamwoolhether/reqflow/response"
	"github.com/adamwoolhether/reqflow/throttle"
	"github.com/adamwoolhether/reqflow/token"
)

const successRespBody = "success"

type test struct {
	*client.Client

	server    *httptest.Server
	serverURL *url.URL
	teardown  func()
}

type payload struct {
	Body string `json:"body"`
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newRequest(t *testing.T, ctx context.Context, u *url.URL, method string) *http.Request {
	t.Helper()

	req, err := request.NewWithURL(ctx, u).WithMethod(method).Request()
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	return req
}

func parseURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse test server URL: %v", err)
	}

	return u
}

func TestClient_WithUserAgent(t *testing.T) {
	expectedUA := "TestUserAgent/1.0"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != expectedUA {
			t.Errorf("expected User-Agent %q, got %q", expectedUA, ua)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.Build(client.WithUserAgent(expectedUA), client.WithThrottle(100, 10))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	req := newRequest(t, t.Context(), parseURL(t, ts.URL), http.MethodGet)
	if err := c.Do(req, http.StatusOK); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
}

func TestClient_WithTransport(t *testing.T) {
	var called bool
	custom := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return http.DefaultTransport.RoundTrip(r)
	})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.Build(client.WithTransport(custom))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	req := newRequest(t, t.Context(), parseURL(t, ts.URL), http.MethodGet)
	if err := c.Do(req, http.StatusOK); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !called {
		t.Error("custom transport was not called")
	}
}

func TestClient_BuildValidation(t *testing.T) {
	testCases := map[string]struct {
		opt    client.Option
		expErr error
	}{
		"nilTransport":       {opt: client.WithTransport(nil), expErr: errs.ErrInvalidArgument},
		"nilClient":          {opt: client.WithClient(nil), expErr: errs.ErrInvalidArgument},
		"negativeTimeout":    {opt: client.WithTimeout(-1), expErr: errs.ErrInvalidArgument},
		"zeroRPS":            {opt: client.WithThrottle(0, 10), expErr: throttle.ErrMustNotBeZero},
		"nilHandler":         {opt: client.WithHandler(nil), expErr: errs.ErrInvalidArgument},
		"blankHeader":        {opt: client.WithHeader(" ", "v"), expErr: errs.ErrInvalidArgument},
		"blankScheme":        {opt: client.WithAuthorization("", "p"), expErr: errs.ErrInvalidArgument},
		"blankAPIVersion":    {opt: client.WithAPIVersion(" "), expErr: errs.ErrInvalidArgument},
		"nilTokenProvider":   {opt: client.WithTokenProvider(nil), expErr: errs.ErrConfiguration},
		"missingNamed":       {opt: client.WithNamedTokenProvider(token.NewRegistry(), "missing"), expErr: errs.ErrConfiguration},
		"nilFactory":         {opt: client.WithNamedTokenProvider(nil, "any"), expErr: errs.ErrConfiguration},
		"nilProviderFunc":    {opt: client.WithTokenProviderFunc(nil), expErr: errs.ErrConfiguration},
		"failedProviderFunc": {opt: client.WithTokenProviderFunc(func() (token.Provider, error) { return nil, errors.New("boom") }), expErr: errs.ErrConfiguration},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := client.Build(tc.opt)
			if !errors.Is(err, tc.expErr) {
				t.Errorf("exp err %v; got: %v", tc.expErr, err)
			}
		})
	}
}

func TestClient_WithTimeoutZero(t *testing.T) {
	// Zero means no timeout per stdlib.
	if _, err := client.Build(client.WithTimeout(0)); err != nil {
		t.Fatalf("expected no error for zero timeout, got: %v", err)
	}
}

func TestClient_WithClientIsCopied(t *testing.T) {
	custom := &http.Client{Timeout: 42 * time.Second}

	c, err := client.Build(client.WithClient(custom), client.WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if custom.Timeout != 42*time.Second {
		t.Errorf("caller's client mutated: timeout %v", custom.Timeout)
	}
	if custom.Transport != nil {
		t.Error("caller's client transport mutated")
	}
	if got := c.HTTPClient().Timeout; got != time.Second {
		t.Errorf("timeout = %v, want 1s", got)
	}
}

func TestClient_DoesNotMutateDefaultClient(t *testing.T) {
	if _, err := client.Build(client.WithTimeout(time.Second), client.WithNoFollowRedirects()); err != nil {
		t.Fatal(err)
	}

	if http.DefaultClient.Timeout != 0 || http.DefaultClient.CheckRedirect != nil || http.DefaultClient.Transport != nil {
		t.Error("http.DefaultClient was mutated")
	}
}

func TestClient_WithNoFollowRedirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/target", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.Build(client.WithNoFollowRedirects())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	req := newRequest(t, t.Context(), parseURL(t, ts.URL+"/redirect"), http.MethodGet)
	if err := c.Do(req, http.StatusFound); err != nil {
		t.Errorf("expected 302 without following, got: %v", err)
	}
}

func TestClient_HandlerOrder(t *testing.T) {
	var order []string
	mark := func(name string) handler.Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return handler.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}

	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		order = append(order, "transport")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})

	c, err := client.Build(
		client.WithHandler(mark("first")),
		client.WithTransport(base),
		client.WithHandler(mark("second")),
		client.WithHandler(mark("third")),
	)
	if err != nil {
		t.Fatal(err)
	}

	req := newRequest(t, t.Context(), parseURL(t, "http://example.com/x"), http.MethodGet)
	if err := c.Do(req, http.StatusOK); err != nil {
		t.Fatal(err)
	}

	exp := []string{"first", "second", "third", "transport"}
	if diff := cmp.Diff(exp, order); diff != "" {
		t.Errorf("handler order mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_HandlersDecorateRequest(t *testing.T) {
	var got *http.Request
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = r
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})

	registry := token.NewRegistry()
	if err := registry.Register("svc", token.Static("named-token")); err != nil {
		t.Fatal(err)
	}

	testCases := map[string]struct {
		opts      []client.Option
		reqHeader http.Header
		expAuth   string
		expQuery  string
		expHeader map[string]string
	}{
		"bearerDefault": {
			opts:    []client.Option{client.WithBearerToken("static")},
			expAuth: "Bearer static",
		},
		"bearerDefaultKeepsExisting": {
			opts:      []client.Option{client.WithBearerToken("static")},
			reqHeader: http.Header{"Authorization": {"Basic abc"}},
			expAuth:   "Basic abc",
		},
		"tokenProviderOverridesExisting": {
			opts:      []client.Option{client.WithTokenProvider(token.Static("fresh"))},
			reqHeader: http.Header{"Authorization": {"Bearer stale"}},
			expAuth:   "Bearer fresh",
		},
		"namedProvider": {
			opts:    []client.Option{client.WithNamedTokenProvider(registry, "svc")},
			expAuth: "Bearer named-token",
		},
		"providerFunc": {
			opts: []client.Option{client.WithTokenProviderFunc(func() (token.Provider, error) {
				return token.Static("from-func"), nil
			})},
			expAuth: "Bearer from-func",
		},
		"apiVersion": {
			opts:     []client.Option{client.WithAPIVersion("2024-01-01")},
			expQuery: "a=1&api-version=2024-01-01",
		},
		"apiVersionParam": {
			opts:     []client.Option{client.WithAPIVersionParam("v", "3")},
			expQuery: "a=1&v=3",
		},
		"staticHeaders": {
			opts: []client.Option{
				client.WithHeader("X-Tenant", "acme"),
				client.WithAuthorization("ApiKey", "k1"),
				client.WithUserAgent("reqflow-test/1.0"),
			},
			expAuth:   "ApiKey k1",
			expHeader: map[string]string{"X-Tenant": "acme", "User-Agent": "reqflow-test/1.0"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got = nil
			c, err := client.Build(append([]client.Option{client.WithTransport(base)}, tc.opts...)...)
			if err != nil {
				t.Fatal(err)
			}

			req := newRequest(t, t.Context(), parseURL(t, "http://example.com/x?a=1"), http.MethodGet)
			for k, v := range tc.reqHeader {
				req.Header[k] = v
			}

			if err := c.Do(req, http.StatusOK); err != nil {
				t.Fatal(err)
			}

			if auth := got.Header.Get("Authorization"); auth != tc.expAuth {
				t.Errorf("Authorization = %q, want %q", auth, tc.expAuth)
			}
			if tc.expQuery != "" && got.URL.RawQuery != tc.expQuery {
				t.Errorf("query = %q, want %q", got.URL.RawQuery, tc.expQuery)
			}
			for k, v := range tc.expHeader {
				if h := got.Header.Get(k); h != v {
					t.Errorf("%s = %q, want %q", k, h, v)
				}
			}
			if req.Header.Get("Authorization") != tc.reqHeader.Get("Authorization") {
				t.Error("caller's request was mutated")
			}
		})
	}
}

func TestClient_TokenFailureStillSends(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("unexpected Authorization %q", auth)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	failing := token.ProviderFunc(func(context.Context) (token.Token, error) {
		return token.Token{}, &token.Error{Code: "invalid_client", Message: "bad secret"}
	})

	c, err := client.Build(client.WithLogger(logger), client.WithTokenProvider(failing))
	if err != nil {
		t.Fatal(err)
	}

	req := newRequest(t, t.Context(), parseURL(t, ts.URL), http.MethodGet)
	if err := c.Do(req, http.StatusOK); err != nil {
		t.Fatalf("expected the request to be sent, got: %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1", calls.Load())
	}
	if !strings.Contains(buf.String(), "invalid_client") {
		t.Errorf("client logger did not receive the token failure: %s", buf.String())
	}
}

func TestClient_RequestID(t *testing.T) {
	var got string
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = r.Header.Get(handler.RequestIDHeader)
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})

	c, err := client.Build(client.WithTransport(base), client.WithRequestID(), client.WithTracer(nil), client.WithRequestLogging())
	if err != nil {
		t.Fatal(err)
	}

	req := newRequest(t, t.Context(), parseURL(t, "http://example.com"), http.MethodGet)
	if err := c.Do(req, http.StatusOK); err != nil {
		t.Fatal(err)
	}

	if len(got) != 36 {
		t.Errorf("request id = %q, want a uuid", got)
	}
}

func TestClient_Send(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, p.Body)
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatal(err)
	}

	b := request.NewWithURL(t.Context(), parseURL(t, ts.URL)).
		Method().Post().
		WithJSON(payload{Body: "hey there"})

	resp, err := c.Send(b)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "hey there" {
		t.Errorf("body = %q", body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestClient_SendBuilderError(t *testing.T) {
	c, err := client.Build()
	if err != nil {
		t.Fatal(err)
	}

	b := request.New(t.Context()).WithAccept("not a media type/")
	if _, err := c.Send(b); !errors.Is(err, errs.ErrParse) {
		t.Errorf("exp ErrParse, got: %v", err)
	}

	if _, err := c.Send(nil); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("exp ErrInvalidArgument, got: %v", err)
	}
}

func TestClient_TransportErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	var calls int
	base := roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, boom
	})

	c, err := client.Build(client.WithTransport(base))
	if err != nil {
		t.Fatal(err)
	}

	req := newRequest(t, t.Context(), parseURL(t, "http://example.com"), http.MethodGet)
	if err := c.Do(req, http.StatusOK); !errors.Is(err, boom) {
		t.Errorf("exp %v, got: %v", boom, err)
	}
	if calls != 1 {
		t.Errorf("transport calls = %d, want 1", calls)
	}
}

func TestClient_Do(t *testing.T) {
	test := mockServer(t)
	defer test.teardown()

	testCases := map[string]struct {
		path        string
		method      string
		expStatus   int
		payload     *payload
		captureResp *payload
		captureRaw  *map[string]any
		useJSONNumb bool
		checkResp   func(t *testing.T, raw map[string]any)
		err         error
	}{
		"basicGet": {
			method:    http.MethodGet,
			expStatus: http.StatusOK,
		},
		"basicExp202NotOK": {
			method:    http.MethodGet,
			expStatus: http.StatusAccepted,
			err:       client.ErrUnexpectedStatusCode,
		},
		"basicExp202OK": {
			path:      "/expstatus",
			method:    http.MethodGet,
			expStatus: http.StatusAccepted,
		},
		"unauthorized": {
			path:      "/unauthorized",
			method:    http.MethodGet,
			expStatus: http.StatusOK,
			err:       client.ErrAuthFailure,
		},
		"getCaptureResp": {
			method:      http.MethodGet,
			expStatus:   http.StatusOK,
			captureResp: new(payload),
		},
		"postCaptureResp": {
			path:        "/echo",
			method:      http.MethodPost,
			expStatus:   http.StatusOK,
			payload:     &payload{Body: "hey there"},
			captureResp: new(payload),
		},
		"withJSONNumb": {
			path:        "/number",
			method:      http.MethodGet,
			expStatus:   http.StatusOK,
			captureRaw:  &map[string]any{},
			useJSONNumb: true,
			checkResp: func(t *testing.T, raw map[string]any) {
				t.Helper()
				n, ok := raw["id"].(json.Number)
				if !ok {
					t.Fatalf("expected json.Number, got %T", raw["id"])
				}
				if n.String() != "12345678901234567" {
					t.Errorf("expected 12345678901234567, got %s", n.String())
				}
			},
		},
		"withoutJSONNumb": {
			path:       "/number",
			method:     http.MethodGet,
			expStatus:  http.StatusOK,
			captureRaw: &map[string]any{},
			checkResp: func(t *testing.T, raw map[string]any) {
				t.Helper()
				if _, ok := raw["id"].(float64); !ok {
					t.Fatalf("expected float64 without UseNumber, got %T", raw["id"])
				}
			},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			u := *test.serverURL
			u.Path = tc.path

			b := request.NewWithURL(t.Context(), &u).WithMethod(tc.method)
			if tc.payload != nil {
				b.WithJSON(*tc.payload)
			}
			req, err := b.Request()
			if err != nil {
				t.Fatalf("generating req: %v", err)
			}

			var opts []client.DoOption
			if tc.captureResp != nil {
				opts = append(opts, client.WithDestination(tc.captureResp))
			}
			if tc.captureRaw != nil {
				opts = append(opts, client.WithDestination(tc.captureRaw))
			}
			if tc.useJSONNumb {
				opts = append(opts, client.WithJSONNumb())
			}

			err = test.Do(req, tc.expStatus, opts...)
			if !errors.Is(err, tc.err) {
				t.Errorf("exp err: %v, got: %v", tc.err, err)
			}

			if tc.captureResp != nil && tc.payload != nil {
				if diff := cmp.Diff(tc.payload, tc.captureResp); diff != "" {
					t.Errorf("expected identical body from echo server (-want +got):\n%s", diff)
				}
			}
			if tc.captureResp != nil && tc.payload == nil && tc.captureResp.Body != successRespBody {
				t.Errorf("body = %q, want %q", tc.captureResp.Body, successRespBody)
			}

			if tc.checkResp != nil && tc.captureRaw != nil {
				tc.checkResp(t, *tc.captureRaw)
			}
		})
	}
}

func TestClient_Do_ErrorBodyCapped(t *testing.T) {
	big := strings.Repeat("x", 64<<10)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, big)
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatal(err)
	}

	req := newRequest(t, t.Context(), parseURL(t, ts.URL), http.MethodGet)
	err = c.Do(req, http.StatusOK)

	var statusErr *client.UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected UnexpectedStatusError, got: %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", statusErr.StatusCode)
	}
	if len(statusErr.Body) != 4<<10 {
		t.Errorf("error body length = %d, want %d", len(statusErr.Body), 4<<10)
	}
}

func TestClient_File(t *testing.T) {
	body := []byte("partial file body")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(body)
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatal(err)
	}

	fr, err := c.File(newRequest(t, t.Context(), parseURL(t, ts.URL), http.MethodGet))
	if err != nil {
		t.Fatal(err)
	}
	defer fr.Close()

	if !fr.IsPartial() {
		t.Errorf("status = %d, want partial", fr.StatusCode)
	}
	if fr.ContentType == nil || fr.ContentType.MediaType != "application/pdf" {
		t.Errorf("content type = %+v", fr.ContentType)
	}
	if fr.FileName() != "report.pdf" {
		t.Errorf("file name = %q", fr.FileName())
	}
	if fr.ContentLength() != int64(len(body)) {
		t.Errorf("content length = %d", fr.ContentLength())
	}

	got, err := io.ReadAll(fr)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("body = %q", got)
	}

	if err := fr.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if err := fr.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestClient_FileBadHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/;;")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.File(newRequest(t, t.Context(), parseURL(t, ts.URL), http.MethodGet)); !errors.Is(err, errs.ErrParse) {
		t.Errorf("exp ErrParse, got: %v", err)
	}
}

// /////////////////////////////////////////////////////////////////
// Download Tests

func fileServer(t *testing.T, body []byte, header http.Header) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range header {
			w.Header()[k] = v
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)

	return ts
}

func TestClient_Download(t *testing.T) {
	expBody := []byte("checksum test data")
	sum := sha256.Sum256(expBody)
	expChecksum := hex.EncodeToString(sum[:])

	testCases := map[string]struct {
		header   http.Header
		dest     func(dir string) string
		opts     []response.SaveOption
		expFile  string
		expErr   error
		expNoTmp bool
	}{
		"basic": {
			dest:    func(dir string) string { return filepath.Join(dir, "downloaded.bin") },
			expFile: "downloaded.bin",
		},
		"checksumPass": {
			dest:    func(dir string) string { return filepath.Join(dir, "checksum-pass.bin") },
			opts:    []response.SaveOption{response.WithChecksum(sha256.New(), expChecksum)},
			expFile: "checksum-pass.bin",
		},
		"checksumFail": {
			dest:     func(dir string) string { return filepath.Join(dir, "checksum-fail.bin") },
			opts:     []response.SaveOption{response.WithChecksum(sha256.New(), strings.Repeat("0", 64))},
			expErr:   response.ErrChecksumMismatch,
			expNoTmp: true,
		},
		"directoryUsesDisposition": {
			header:  http.Header{"Content-Disposition": {`attachment; filename="named.bin"`}},
			dest:    func(dir string) string { return dir },
			expFile: "named.bin",
		},
		"emptyDestPath": {
			dest:   func(string) string { return "" },
			expErr: errs.ErrInvalidArgument,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			ts := fileServer(t, expBody, tc.header)

			c, err := client.Build()
			if err != nil {
				t.Fatalf("creating client: %v", err)
			}

			dir := t.TempDir()
			req := newRequest(t, t.Context(), parseURL(t, ts.URL), http.MethodGet)

			err = c.Download(req, http.StatusOK, tc.dest(dir), tc.opts...)
			if !errors.Is(err, tc.expErr) {
				t.Fatalf("exp err %v, got: %v", tc.expErr, err)
			}

			if tc.expFile != "" {
				got, err := os.ReadFile(filepath.Join(dir, tc.expFile))
				if err != nil {
					t.Fatalf("reading downloaded file: %v", err)
				}
				if !bytes.Equal(got, expBody) {
					t.Errorf("file contents mismatch; got %q, want %q", got, expBody)
				}
			}

			if tc.expNoTmp {
				entries, _ := os.ReadDir(dir)
				if len(entries) != 0 {
					t.Errorf("expected an empty directory, found %d entries", len(entries))
				}
			}
		})
	}
}

func TestClient_Download_StatusCodeMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatal(err)
	}

	destPath := filepath.Join(t.TempDir(), "never.bin")
	req := newRequest(t, t.Context(), parseURL(t, ts.URL), http.MethodGet)

	err = c.Download(req, http.StatusOK, destPath)

	var statusErr *client.UnexpectedStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 UnexpectedStatusError, got: %v", err)
	}
	if _, statErr := os.Stat(destPath); !os.IsNotExist(statErr) {
		t.Error("dest file should not exist")
	}
}

func TestClient_Download_CancelMidDownload(t *testing.T) {
	// Server writes 1KB chunks with a delay between each to simulate a slow download.
	const chunkSize = 1024
	const totalChunks = 20
	chunk := bytes.Repeat([]byte("a"), chunkSize)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(chunkSize*totalChunks))
		w.WriteHeader(http.StatusOK)

		for range totalChunks {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			time.Sleep(100 * time.Millisecond)
		}
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	tmpDir := t.TempDir()
	destPath := filepath.Join(tmpDir, "cancelled.bin")

	ctx, cancel := context.WithCancel(t.Context())
	req := newRequest(t, ctx, parseURL(t, ts.URL), http.MethodGet)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Download(req, http.StatusOK, destPath)
	}()

	// Let a few chunks arrive, then cancel.
	time.Sleep(250 * time.Millisecond)
	cancel()

	err = <-errCh
	if err == nil {
		t.Fatal("expected error after cancellation, got nil")
	}

	if !errors.Is(err, response.ErrSaveCancelled) && !errors.Is(err, context.Canceled) {
		t.Errorf("expected a cancellation error, got: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(tmpDir, ".reqflow-save-*"))
	if len(matches) > 0 {
		t.Errorf("expected no temp files, found: %v", matches)
	}
	if _, statErr := os.Stat(destPath); !os.IsNotExist(statErr) {
		t.Errorf("expected dest file to not exist at %s after cancellation", destPath)
	}
}

func mockServer(t *testing.T) *test {
	t.Helper()

	testClient, err := client.Build()
	if err != nil {
		t.Fatalf("failed to create testClient: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		data, err := json.Marshal(payload{Body: successRespBody})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})
	mux.HandleFunc("/expstatus", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/unauthorized", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusUnauthorized)
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		var decoded payload
		if err := json.NewDecoder(r.Body).Decode(&decoded); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		_ = json.NewEncoder(w).Encode(decoded)
	})
	mux.HandleFunc("/number", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":12345678901234567}`)
	})

	server := httptest.NewServer(mux)

	serverURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("failed to parse server url: %v", err)
	}

	return &test{
		Client:    testClient,
		server:    server,
		serverURL: serverURL,
		teardown:  server.Close,
	}
}
