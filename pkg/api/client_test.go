package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// staticReachability is a settable Reachability for tests
type staticReachability struct {
	online atomic.Bool
}

func (r *staticReachability) Online() bool {
	return r.online.Load()
}

// trackingBody records whether it was closed
type trackingBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *trackingBody) Close() error {
	b.closed.Store(true)
	return nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type capturedRequest struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
}

// ClientTestSuite tests the request wrapper against a mock backend
type ClientTestSuite struct {
	suite.Suite
	mockServer   *httptest.Server
	reachability *staticReachability
	client       *Client

	mu       sync.Mutex
	captured []capturedRequest
	hits     atomic.Int32
}

func (s *ClientTestSuite) SetupTest() {
	s.captured = nil
	s.hits.Store(0)

	s.mockServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.captured = append(s.captured, capturedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			Headers: r.Header.Clone(),
			Body:    body,
		})
		s.mu.Unlock()

		switch r.URL.Path {
		case "/api/health":
			w.WriteHeader(http.StatusOK)
		case "/api/models":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"models":["small","large"],"count":2}`))
		case "/api/echo":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
		case "/api/empty":
			w.WriteHeader(http.StatusNoContent)
		case "/api/garbage":
			_, _ = w.Write([]byte("not json"))
		case "/api/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "/api/overloaded":
			w.WriteHeader(599)
		case "/api/slow":
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	s.reachability = &staticReachability{}
	s.reachability.online.Store(true)
	s.client = NewClient(Config{BaseURL: s.mockServer.URL + "/"}, s.reachability)
}

func (s *ClientTestSuite) TearDownTest() {
	if s.mockServer != nil {
		s.mockServer.Close()
	}
}

func (s *ClientTestSuite) lastRequest() capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Require().NotEmpty(s.captured)
	return s.captured[len(s.captured)-1]
}

func (s *ClientTestSuite) TestNewClientDefaults() {
	s.Equal(s.mockServer.URL, s.client.BaseURL())
	s.Equal(DefaultHealthPath, s.client.healthPath)
	s.Equal(DefaultProbeTimeout, s.client.probeTimeout)
	s.Equal(DefaultRequestTimeout, s.client.requestTimeout)
	s.Equal(0, s.client.client.RetryMax)
}

// TestRequestOfflineShortCircuits checks no I/O happens while offline
func (s *ClientTestSuite) TestRequestOfflineShortCircuits() {
	s.reachability.online.Store(false)

	for _, endpoint := range []string{"/api/models", "/api/broken", "/does/not/exist", ""} {
		err := s.client.Request(context.Background(), endpoint, nil, nil)
		s.ErrorIs(err, ErrOffline)
		s.Equal("server is offline", err.Error())
	}
	s.Equal(int32(0), s.hits.Load())
}

func (s *ClientTestSuite) TestRequestDecodesJSON() {
	var result struct {
		Models []string `json:"models"`
		Count  int      `json:"count"`
	}

	err := s.client.Request(context.Background(), "/api/models", nil, &result)
	s.Require().NoError(err)
	s.Equal([]string{"small", "large"}, result.Models)
	s.Equal(2, result.Count)

	req := s.lastRequest()
	s.Equal(http.MethodGet, req.Method)
	s.Equal("/api/models", req.Path)
}

// TestRequestMergesHeaders checks caller headers are added to the defaults
func (s *ClientTestSuite) TestRequestMergesHeaders() {
	err := s.client.Request(context.Background(), "/api/models", &Options{
		Headers: map[string]string{"X": "1"},
	}, nil)
	s.Require().NoError(err)

	req := s.lastRequest()
	s.Equal("application/json", req.Headers.Get("Content-Type"))
	s.Equal("1", req.Headers.Get("X"))
}

func (s *ClientTestSuite) TestRequestCallerHeaderOverridesDefault() {
	err := s.client.Request(context.Background(), "/api/models", &Options{
		Headers: map[string]string{"content-type": "text/plain"},
	}, nil)
	s.Require().NoError(err)

	req := s.lastRequest()
	s.Equal([]string{"text/plain"}, req.Headers.Values("Content-Type"))
}

func (s *ClientTestSuite) TestRequestSendsJSONBody() {
	payload := map[string]string{"prompt": "hello"}
	var echoed map[string]string

	err := s.client.Request(context.Background(), "/api/echo", &Options{
		Method: http.MethodPost,
		JSON:   payload,
	}, &echoed)
	s.Require().NoError(err)
	s.Equal(payload, echoed)

	req := s.lastRequest()
	s.Equal(http.MethodPost, req.Method)
	s.JSONEq(`{"prompt":"hello"}`, string(req.Body))
}

func (s *ClientTestSuite) TestRequestSendsRawBody() {
	var echoed json.RawMessage

	err := s.client.Request(context.Background(), "/api/echo", &Options{
		Method: http.MethodPut,
		Body:   []byte(`{"a":1}`),
	}, &echoed)
	s.Require().NoError(err)
	s.JSONEq(`{"a":1}`, string(echoed))
}

func (s *ClientTestSuite) TestRequestHTTPError() {
	err := s.client.Request(context.Background(), "/api/broken", nil, nil)
	s.Require().Error(err)

	var httpErr *HTTPError
	s.Require().ErrorAs(err, &httpErr)
	s.Equal(http.StatusInternalServerError, httpErr.StatusCode)
	s.Equal("HTTP 500: Internal Server Error", err.Error())
	s.ErrorIs(err, ErrRequestFailed)
	s.NotErrorIs(err, ErrOffline)
}

func (s *ClientTestSuite) TestRequestNotFound() {
	err := s.client.Request(context.Background(), "/missing", nil, nil)
	s.EqualError(err, "HTTP 404: Not Found")
}

func (s *ClientTestSuite) TestRequestUnregisteredStatusKeepsReason() {
	err := s.client.Request(context.Background(), "/api/overloaded", nil, nil)

	var httpErr *HTTPError
	s.Require().ErrorAs(err, &httpErr)
	s.Equal(599, httpErr.StatusCode)
	s.NotEmpty(httpErr.Status)
	s.Equal("HTTP 599: "+httpErr.Status, err.Error())
}

// cancelledTransport answers with body and cancels the caller's context before
// returning, so the response arrives together with an error.
func (s *ClientTestSuite) cancelledTransport(cancel context.CancelFunc, body *trackingBody) {
	s.client.client.HTTPClient.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		cancel()
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Header:     http.Header{},
			Body:       body,
			Request:    r,
		}, nil
	})
}

func (s *ClientTestSuite) TestRequestClosesBodyOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	body := &trackingBody{Reader: strings.NewReader(`{}`)}
	s.cancelledTransport(cancel, body)

	err := s.client.Request(ctx, "/api/models", nil, nil)
	s.ErrorIs(err, ErrRequestFailed)
	s.ErrorIs(err, context.Canceled)
	s.True(body.closed.Load())
}

func (s *ClientTestSuite) TestProbeClosesBodyOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	body := &trackingBody{Reader: strings.NewReader("")}
	s.cancelledTransport(cancel, body)

	s.ErrorIs(s.client.Probe(ctx), context.Canceled)
	s.True(body.closed.Load())
}

func (s *ClientTestSuite) TestRequestEmptyBody() {
	result := map[string]string{"keep": "me"}
	s.Require().NoError(s.client.Request(context.Background(), "/api/empty", nil, &result))
	s.Equal("me", result["keep"])
}

func (s *ClientTestSuite) TestRequestInvalidJSON() {
	var result map[string]any
	err := s.client.Request(context.Background(), "/api/garbage", nil, &result)
	s.ErrorIs(err, ErrRequestFailed)
	s.Contains(err.Error(), "parse response")
}

func (s *ClientTestSuite) TestRequestTimeout() {
	s.client.requestTimeout = 50 * time.Millisecond

	err := s.client.Request(context.Background(), "/api/slow", nil, nil)
	s.ErrorIs(err, ErrRequestFailed)
	s.True(errors.Is(err, context.DeadlineExceeded))
}

func (s *ClientTestSuite) TestRequestConnectionRefused() {
	s.mockServer.Close()

	err := s.client.Request(context.Background(), "/api/models", nil, nil)
	s.ErrorIs(err, ErrRequestFailed)

	var httpErr *HTTPError
	s.False(errors.As(err, &httpErr))
}

func (s *ClientTestSuite) TestProbeIgnoresFlag() {
	s.reachability.online.Store(false)

	s.NoError(s.client.Probe(context.Background()))
	s.Equal("/api/health", s.lastRequest().Path)
}

func (s *ClientTestSuite) TestProbeNon2xx() {
	client := NewClient(Config{BaseURL: s.mockServer.URL, HealthPath: "/api/broken"}, s.reachability)

	err := client.Probe(context.Background())
	var httpErr *HTTPError
	s.Require().ErrorAs(err, &httpErr)
	s.Equal(http.StatusInternalServerError, httpErr.StatusCode)
}

func (s *ClientTestSuite) TestProbeTimeout() {
	client := NewClient(Config{
		BaseURL:      s.mockServer.URL,
		HealthPath:   "/api/slow",
		ProbeTimeout: 50 * time.Millisecond,
	}, s.reachability)

	s.ErrorIs(client.Probe(context.Background()), ErrRequestFailed)
}

func (s *ClientTestSuite) TestProbeConnectionRefused() {
	s.mockServer.Close()
	s.ErrorIs(s.client.Probe(context.Background()), ErrRequestFailed)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestNewHTTPErrorReason(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		status   string
		expected string
	}{
		{"server reason", 599, "599 Upstream Overloaded", "HTTP 599: Upstream Overloaded"},
		{"custom reason for known code", 503, "503 Warming Up", "HTTP 503: Warming Up"},
		{"missing reason", 503, "503", "HTTP 503: Service Unavailable"},
		{"empty status", 404, "", "HTTP 404: Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newHTTPError(&http.Response{StatusCode: tt.code, Status: tt.status})
			if err.Error() != tt.expected {
				t.Fatalf("got %q, want %q", err.Error(), tt.expected)
			}
		})
	}
}

func TestHTTPErrorFallsBackToStatusText(t *testing.T) {
	err := &HTTPError{StatusCode: http.StatusTeapot}
	if err.Error() != "HTTP 418: I'm a teapot" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
