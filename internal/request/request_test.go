package request

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/ratelimit"
)

func TestParseRateLimit(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantNil bool
	}{
		{name: "empty string", input: "", wantNil: true},
		{name: "invalid format - no slash", input: "100", wantNil: true},
		{name: "invalid format - non-numeric count", input: "abc/sec", wantNil: true},
		{name: "invalid format - zero count", input: "0/sec", wantNil: true},
		{name: "invalid format - negative count", input: "-10/sec", wantNil: true},
		{name: "invalid unit", input: "100/invalid", wantNil: true},
		{name: "valid - per second", input: "100/sec"},
		{name: "valid - per second (long form)", input: "100/second"},
		{name: "valid - per minute", input: "250/minute"},
		{name: "valid - per minute (plural)", input: "60/minutes"},
		{name: "valid - per hour", input: "3600/hr"},
		{name: "valid - per day", input: "1000/day"},
		{name: "valid - whitespace", input: " 10 / Second "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRateLimit(tt.input)
			if tt.wantNil {
				assert.Nil(t, got)
			} else {
				assert.NotNil(t, got)
			}
		})
	}
}

func TestJoinURL(t *testing.T) {
	got, err := JoinURL("https://api.real-debrid.com/rest/1.0", "torrents", "info/ABC?foo=bar")
	require.NoError(t, err)
	assert.Equal(t, "https://api.real-debrid.com/rest/1.0/torrents/info/ABC?foo=bar", got)

	got, err = JoinURL("https://api.torbox.app/v1/api/", "user/me")
	require.NoError(t, err)
	assert.Equal(t, "https://api.torbox.app/v1/api/user/me", got)
}

func TestMakeRequest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "value", r.Header.Get("X-Custom"))
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "Debridify/"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := New(WithHeaders(map[string]string{"X-Custom": "value"}))

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	body, err := client.MakeRequest(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestMakeRequest_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"unknown_ressource","error_code":7}`))
	}))
	defer server.Close()

	client := New()
	req, _ := http.NewRequest(http.MethodDelete, server.URL, nil)

	_, err := client.MakeRequest(req)
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Contains(t, string(httpErr.Body), "unknown_ressource")
}

func TestMakeRequest_NoRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New()
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	_, err := client.MakeRequest(req)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestMakeRequest_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(WithTimeout(50 * time.Millisecond))
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	_, err := client.MakeRequest(req)
	require.Error(t, err)

	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))

	var httpErr *HTTPError
	assert.False(t, errors.As(err, &httpErr))
}

func TestDo_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := New(WithRateLimiter(ratelimit.New(100)))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)

	_, err := client.Do(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedact(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://api.torbox.app/v1/api/user/me?api_key=secret&settings=true", nil)
	got := redact(req.URL)

	assert.NotContains(t, got, "secret")
	assert.Contains(t, got, "settings=true")
}

func TestDo_RateLimitWaitHonoursDeadline(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(WithRateLimiter(ParseRateLimit("1/minute")))

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, err := client.MakeRequest(req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	req, _ = http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	_, err = client.MakeRequest(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(1), calls.Load())

	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
}
