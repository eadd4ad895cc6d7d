// Package github adapts the GitHub REST API into the digest's Source.
package github

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

const (
	userAgent         = "support-digest/1.0"
	maxRetries        = 3
	baseBackoffMs     = 1000
	requestTimeoutSec = 30
)

// New creates a GitHub client with OAuth2 authentication and retry logic.
func New(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})

	httpClient := &http.Client{
		Timeout: requestTimeoutSec * time.Second,
		Transport: &retryTransport{
			base: &oauth2.Transport{
				Source: ts,
				Base:   http.DefaultTransport,
			},
		},
	}

	client := github.NewClient(httpClient)
	client.UserAgent = userAgent

	return client
}

// retryTransport wraps http.RoundTripper with retry logic for the GitHub API.
// Primary rate limits (403 with rate limit headers) and secondary limits
// (429) honor Retry-After and X-RateLimit-Reset; 5xx responses back off
// exponentially; authorization failures return immediately.
type retryTransport struct {
	base http.RoundTripper
}

func (rt *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		reqClone := req.Clone(req.Context())

		resp, err := rt.base.RoundTrip(reqClone)
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				time.Sleep(calculateBackoff(attempt))
			}
			continue
		}

		if isAuthorizationError(resp) {
			return resp, nil
		}

		if attempt < maxRetries {
			switch {
			case isRateLimited(resp):
				resp.Body.Close()
				time.Sleep(getRateLimitRetryAfter(resp))
				continue
			case resp.StatusCode >= 500:
				resp.Body.Close()
				time.Sleep(calculateBackoff(attempt))
				continue
			}
		}

		return resp, nil
	}

	return nil, fmt.Errorf("GitHub API request failed after %d attempts: %w", maxRetries+1, lastErr)
}

// isRateLimited reports whether the response is a rate limit answer.
// Secondary limits use 429; primary limits use 403 plus rate limit headers.
// The search and comment fan-out trips the secondary limits most often.
func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden &&
		(resp.Header.Get("X-RateLimit-Remaining") != "" ||
			resp.Header.Get("Retry-After") != "")
}

// getRateLimitRetryAfter calculates the retry delay for rate limit responses
func getRateLimitRetryAfter(resp *http.Response) time.Duration {
	if retryAfterStr := resp.Header.Get("Retry-After"); retryAfterStr != "" {
		if retryAfterSec, err := strconv.Atoi(retryAfterStr); err == nil {
			return time.Duration(retryAfterSec) * time.Second
		}
	}

	if resetTimeStr := resp.Header.Get("X-RateLimit-Reset"); resetTimeStr != "" {
		if resetTime, err := strconv.ParseInt(resetTimeStr, 10, 64); err == nil {
			resetDuration := time.Until(time.Unix(resetTime, 0))
			if resetDuration > 0 {
				// Small buffer to avoid racing with the reset.
				return resetDuration + (5 * time.Second)
			}
		}
	}

	return 60 * time.Second
}

// isAuthorizationError checks for failures that retrying cannot fix: bad
// tokens, missing SSO authorization, or repos the token cannot see.
func isAuthorizationError(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return !isRateLimited(resp)
	case http.StatusNotFound:
		// 404 on private repos can mean insufficient permissions.
		return true
	}
	return false
}

// calculateBackoff calculates exponential backoff with jitter
func calculateBackoff(attempt int) time.Duration {
	backoff := time.Duration(baseBackoffMs*int(math.Pow(2, float64(attempt)))) * time.Millisecond
	jitter := time.Duration(rand.Float64() * float64(backoff) * 0.1) // 10% jitter
	return backoff + jitter
}
