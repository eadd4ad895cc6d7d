package github

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func retryClient() *http.Client {
	return &http.Client{Transport: &retryTransport{base: http.DefaultTransport}}
}

func TestRetryTransportRetriesSecondaryRateLimit(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++

		if callCount == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message": "You have exceeded a secondary rate limit"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"items": []}`))
	}))
	defer server.Close()

	resp, err := retryClient().Get(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d after honoring Retry-After", resp.StatusCode, http.StatusOK)
	}
	if callCount != 2 {
		t.Errorf("expected 2 calls (1 rate limited + 1 success), got %d", callCount)
	}
}

func TestRetryTransportRetriesPrimaryRateLimit(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++

		if callCount == 1 {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"message": "API rate limit exceeded"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"items": []}`))
	}))
	defer server.Close()

	resp, err := retryClient().Get(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if callCount != 2 {
		t.Errorf("expected 2 calls, got %d", callCount)
	}
}

func TestRetryTransportReturnsLastRateLimitResponse(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message": "still rate limited"}`))
	}))
	defer server.Close()

	resp, err := retryClient().Get(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if callCount != maxRetries+1 {
		t.Errorf("expected %d calls, got %d", maxRetries+1, callCount)
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("final response body must stay readable: %v", err)
	}
	if !strings.Contains(string(body), "still rate limited") {
		t.Errorf("body = %q", body)
	}
}

func TestRetryTransportPassesThroughAuthErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "bad credentials", status: http.StatusUnauthorized},
		{name: "forbidden without rate limit headers", status: http.StatusForbidden},
		{name: "repo not visible", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			callCount := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				callCount++
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			resp, err := retryClient().Get(server.URL)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if callCount != 1 {
				t.Errorf("expected 1 call without retries, got %d", callCount)
			}
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		want    bool
	}{
		{name: "secondary limit", status: http.StatusTooManyRequests, want: true},
		{name: "primary limit with remaining header", status: http.StatusForbidden, headers: map[string]string{"X-RateLimit-Remaining": "0"}, want: true},
		{name: "primary limit with retry-after", status: http.StatusForbidden, headers: map[string]string{"Retry-After": "30"}, want: true},
		{name: "plain forbidden", status: http.StatusForbidden, want: false},
		{name: "server error", status: http.StatusInternalServerError, want: false},
		{name: "success", status: http.StatusOK, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			for k, v := range tt.headers {
				resp.Header.Set(k, v)
			}
			if got := isRateLimited(resp); got != tt.want {
				t.Errorf("isRateLimited() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetRateLimitRetryAfter(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    time.Duration
	}{
		{name: "retry-after seconds", headers: map[string]string{"Retry-After": "7"}, want: 7 * time.Second},
		{name: "retry-after zero", headers: map[string]string{"Retry-After": "0"}, want: 0},
		{name: "no headers falls back to default", want: 60 * time.Second},
		{name: "reset in the past falls back to default", headers: map[string]string{"X-RateLimit-Reset": "1000"}, want: 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			for k, v := range tt.headers {
				resp.Header.Set(k, v)
			}
			if got := getRateLimitRetryAfter(resp); got != tt.want {
				t.Errorf("getRateLimitRetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("reset in the future waits past it", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{}}
		resp.Header.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(100*time.Second).Unix(), 10))

		got := getRateLimitRetryAfter(resp)
		if got < 90*time.Second || got > 105*time.Second {
			t.Errorf("getRateLimitRetryAfter() = %v, want roughly reset + 5s buffer", got)
		}
	})
}
