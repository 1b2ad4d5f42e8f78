package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// retryConfig holds retry parameters shared by every dialect adapter.
// Grounded on lowkaihon-cli-coding-agent/llm/retry.go's doWithRetry.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{maxRetries: 5, baseDelay: 2 * time.Second, maxDelay: 60 * time.Second}
}

// retryableError is returned once retries are exhausted against a 429
// or 5xx response.
type retryableError struct {
	StatusCode int
	Body       string
	Retries    int
}

func (e *retryableError) Error() string {
	if e.StatusCode == 429 {
		return fmt.Sprintf("rate limited (HTTP 429) after %d retries: %s", e.Retries, e.Body)
	}
	return fmt.Sprintf("server error (HTTP %d) after %d retries: %s", e.StatusCode, e.Retries, e.Body)
}

// doWithRetry runs doReq with exponential backoff on 429/5xx, honoring
// Retry-After when present. Returns the live response body on success —
// the caller is responsible for closing it.
func doWithRetry(ctx context.Context, cfg retryConfig, doReq func() (*http.Response, error)) (*http.Response, error) {
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffDelay(attempt-1, cfg.baseDelay, cfg.maxDelay)):
			}
		}

		resp, err := doReq()
		if err != nil {
			if attempt < cfg.maxRetries {
				continue
			}
			return nil, fmt.Errorf("http request: %w", err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == 401 || resp.StatusCode == 403:
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("Unauthorized: %s", string(body))

		case resp.StatusCode == 404:
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("Endpoint not found: %s", string(body))

		case resp.StatusCode == 400:
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if detail := nestedErrorDetail(body); detail != "" {
				return nil, fmt.Errorf("Bad request: %s", detail)
			}
			return nil, fmt.Errorf("Bad request: %s", string(body))

		case resp.StatusCode == 429, resp.StatusCode >= 500:
			if retryAfter := parseRetryAfter(resp); retryAfter > 0 {
				cfg.baseDelay = retryAfter
			}
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if attempt < cfg.maxRetries {
				continue
			}
			return nil, &retryableError{StatusCode: resp.StatusCode, Body: string(body), Retries: cfg.maxRetries}

		default:
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("API Error: %s", string(body))
		}
	}
	return nil, fmt.Errorf("exhausted retries")
}

// nestedErrorDetail extracts a provider's nested error message from a
// 400 response body, matching the common {"error": {"message": "..."}}
// and {"error": "..."} shapes used by OpenAI-compatible and Anthropic
// dialects alike. Returns "" if body doesn't match either shape.
func nestedErrorDetail(body []byte) string {
	var withObject struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &withObject); err == nil && withObject.Error.Message != "" {
		return withObject.Error.Message
	}

	var withString struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &withString); err == nil && withString.Error != "" {
		return withString.Error
	}

	return ""
}

func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	delay += time.Duration(rand.Intn(1000)) * time.Millisecond
	if delay > max {
		delay = max
	}
	return delay
}

func parseRetryAfter(resp *http.Response) time.Duration {
	val := resp.Header.Get("Retry-After")
	if val == "" {
		return 0
	}
	seconds, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
