package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoWithRetry_Success(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	resp, err := doWithRetry(context.Background(), defaultRetryConfig(), func() (*http.Response, error) {
		return http.Get(server.URL)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestDoWithRetry_429ThenSuccess(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(429)
			w.Write([]byte(`rate limited`))
			return
		}
		w.WriteHeader(200)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := retryConfig{maxRetries: 5, baseDelay: 10 * time.Millisecond, maxDelay: 100 * time.Millisecond}
	resp, err := doWithRetry(context.Background(), cfg, func() (*http.Response, error) {
		return http.Get(server.URL)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestDoWithRetry_AuthErrorNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(401)
		w.Write([]byte(`unauthorized`))
	}))
	defer server.Close()

	_, err := doWithRetry(context.Background(), defaultRetryConfig(), func() (*http.Response, error) {
		return http.Get(server.URL)
	})
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no retries on auth error, got %d calls", calls.Load())
	}
	if !strings.HasPrefix(err.Error(), "Unauthorized: ") {
		t.Errorf("expected message to start with %q, got %q", "Unauthorized: ", err.Error())
	}
}

func TestDoWithRetry_ErrorMessagesByStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		body       string
		wantPrefix string
		wantBody   string
	}{
		{
			name:       "401 unauthorized",
			statusCode: 401,
			body:       `no creds`,
			wantPrefix: "Unauthorized: ",
			wantBody:   "no creds",
		},
		{
			name:       "403 forbidden bundled with unauthorized",
			statusCode: 403,
			body:       `forbidden`,
			wantPrefix: "Unauthorized: ",
			wantBody:   "forbidden",
		},
		{
			name:       "404 endpoint not found",
			statusCode: 404,
			body:       `no such route`,
			wantPrefix: "Endpoint not found: ",
			wantBody:   "no such route",
		},
		{
			name:       "400 bad request without nested detail",
			statusCode: 400,
			body:       `plain text error`,
			wantPrefix: "Bad request: ",
			wantBody:   "plain text error",
		},
		{
			name:       "400 bad request with nested object detail",
			statusCode: 400,
			body:       `{"error":{"message":"model is required"}}`,
			wantPrefix: "Bad request: ",
			wantBody:   "model is required",
		},
		{
			name:       "400 bad request with nested string detail",
			statusCode: 400,
			body:       `{"error":"missing field"}`,
			wantPrefix: "Bad request: ",
			wantBody:   "missing field",
		},
		{
			name:       "other status passes through as API Error",
			statusCode: 418,
			body:       `teapot`,
			wantPrefix: "API Error: ",
			wantBody:   "teapot",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := doWithRetry(context.Background(), defaultRetryConfig(), func() (*http.Response, error) {
				return http.Get(server.URL)
			})
			if err == nil {
				t.Fatalf("expected error for status %d", tt.statusCode)
			}
			if !strings.HasPrefix(err.Error(), tt.wantPrefix) {
				t.Errorf("expected message to start with %q, got %q", tt.wantPrefix, err.Error())
			}
			if !strings.Contains(err.Error(), tt.wantBody) {
				t.Errorf("expected message to contain %q, got %q", tt.wantBody, err.Error())
			}
		})
	}
}
