package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

const (
	defaultHTTPTimeout = 120 * time.Second
	maxHTTPRetries     = 3
)

// transientError is a retryable HTTP failure (5xx or 429).
type transientError struct {
	status int
	body   string
}

func (e *transientError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, e.body)
}

func transientStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// retryDelay grows quadratically with the attempt number, with jitter so
// concurrent callers do not retry in lockstep.
func retryDelay(attempt int) time.Duration {
	base := time.Duration(attempt*attempt) * time.Second
	return base + time.Duration(rand.Int64N(int64(base/2+1)))
}

// doWithRetry runs an HTTP request, retrying transient failures (network
// errors, 5xx, 429) a bounded number of times. The request is rebuilt per
// attempt because a consumed body cannot be resent. This is the only place an
// adapter waits between tries; the fallback coordinator above moves to the
// next provider immediately.
func doWithRetry(ctx context.Context, client *http.Client, buildReq func() (*http.Request, error), logger *slog.Logger) (*http.Response, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case transientStatus(resp.StatusCode):
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = &transientError{status: resp.StatusCode, body: string(body)}
		default:
			return resp, nil
		}

		if attempt > maxHTTPRetries {
			return nil, fmt.Errorf("giving up after %d attempts: %w", attempt, lastErr)
		}

		delay := retryDelay(attempt)
		logger.Warn("transient failure, retrying", "attempt", attempt, "backoff", delay, "error", lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// sharedHTTPClient builds the pooled client every adapter reuses.
func sharedHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			ExpectContinueTimeout: time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}
}
