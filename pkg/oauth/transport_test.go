package oauth

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewHTTPClient_Success(t *testing.T) {
	client := NewHTTPClient(30*time.Second, nil)

	if client == nil {
		t.Fatal("Expected non-nil client")
	}

	dc, ok := client.(*defaultHTTPClient)
	if !ok {
		t.Fatal("Expected defaultHTTPClient type")
	}

	// The default client must not retry
	if _, ok := dc.client.Transport.(*retryTransport); ok {
		t.Error("Expected plain transport, got retryTransport")
	}
}

func TestNewHTTPClient_DefaultTimeout(t *testing.T) {
	client := NewHTTPClient(0, nil).(*defaultHTTPClient)

	if client.client.Timeout != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, client.client.Timeout)
	}
}

func TestNewHTTPClient_TLSConfig(t *testing.T) {
	customTLS := &tls.Config{
		MinVersion: tls.VersionTLS13,
	}

	client := NewHTTPClient(30*time.Second, customTLS)

	if client == nil {
		t.Fatal("Expected non-nil client")
	}

	// Verify the original TLS config is not modified
	if customTLS.MinVersion != tls.VersionTLS13 {
		t.Error("Original TLS config was modified")
	}
}

func TestNewRetryingHTTPClient(t *testing.T) {
	client := NewRetryingHTTPClient(time.Second, nil, RetryPolicy{}).(*defaultHTTPClient)

	rt, ok := client.client.Transport.(*retryTransport)
	if !ok {
		t.Fatal("Expected retryTransport")
	}
	if rt.policy.MaxAttempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", rt.policy.MaxAttempts)
	}
	if rt.policy.InitialBackoff != 100*time.Millisecond {
		t.Errorf("Expected 100ms backoff, got %v", rt.policy.InitialBackoff)
	}
}

func TestDo_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	}))
	defer server.Close()

	client := NewHTTPClient(30*time.Second, nil)

	req, err := http.NewRequest("GET", server.URL, nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "success" {
		t.Errorf("Expected body 'success', got '%s'", string(body))
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(30*time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, "GET", server.URL, nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	// Cancel immediately
	cancel()

	_, err = client.Do(req)
	if err == nil {
		t.Fatal("Expected error for canceled context")
	}

	if !errors.Is(err, context.Canceled) && !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("Expected context canceled error, got %v", err)
	}
}

func TestDo_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(100*time.Millisecond, nil)

	req, err := http.NewRequest("GET", server.URL, nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	_, err = client.Do(req)
	if err == nil {
		t.Error("Expected timeout error")
	}
}

func TestRoundTrip_RetryOn503(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := NewRetryTransport(http.DefaultTransport, RetryPolicy{InitialBackoff: time.Millisecond})

	req, _ := http.NewRequest("GET", server.URL, nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestRoundTrip_ReplaysBody(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != "code=abc" {
			t.Errorf("Expected body 'code=abc', got '%s'", string(body))
		}
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := NewRetryTransport(http.DefaultTransport, RetryPolicy{InitialBackoff: time.Millisecond})

	req, _ := http.NewRequest("POST", server.URL, strings.NewReader("code=abc"))
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() failed: %v", err)
	}
	resp.Body.Close()

	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestRoundTrip_NoRetryOn4xx(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	transport := NewRetryTransport(http.DefaultTransport, RetryPolicy{InitialBackoff: time.Millisecond})

	req, _ := http.NewRequest("GET", server.URL, nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts.Load())
	}
}

func TestRoundTrip_ExhaustedReturnsLastResponse(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	transport := NewRetryTransport(http.DefaultTransport, RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond})

	req, _ := http.NewRequest("GET", server.URL, nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", resp.StatusCode)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"ok", http.StatusOK, false},
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
		{"too many requests", http.StatusTooManyRequests, true},
		{"internal error", http.StatusInternalServerError, true},
		{"service unavailable", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(&http.Response{StatusCode: tt.status}); got != tt.want {
				t.Errorf("shouldRetry(%d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}

	if !shouldRetry(nil) {
		t.Error("Expected nil response to be retried")
	}
}

func TestStdClient(t *testing.T) {
	dc := NewHTTPClient(time.Second, nil)
	if stdClient(dc) != dc.(*defaultHTTPClient).client {
		t.Error("Expected the wrapped *http.Client")
	}

	hc := &http.Client{}
	if stdClient(hc) != hc {
		t.Error("Expected *http.Client to pass through")
	}
}
