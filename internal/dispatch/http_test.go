package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDoWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := doWithRetry(context.Background(), srv.Client(), func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	}, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if calls != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}
}

func TestDoWithRetryDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := doWithRetry(context.Background(), srv.Client(), func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	}, testLogger())
	if err != nil {
		t.Fatalf("4xx must be handed back, not retried: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || calls != 1 {
		t.Fatalf("expected single 404, got status %d after %d calls", resp.StatusCode, calls)
	}
}

func TestDoWithRetryPropagatesBuildErrors(t *testing.T) {
	wantErr := errors.New("no base url")
	_, err := doWithRetry(context.Background(), http.DefaultClient, func() (*http.Request, error) {
		return nil, wantErr
	}, testLogger())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected build error, got %v", err)
	}
}

func TestTransientStatus(t *testing.T) {
	for code, want := range map[int]bool{
		http.StatusOK:                  false,
		http.StatusNotFound:            false,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
	} {
		if got := transientStatus(code); got != want {
			t.Errorf("transientStatus(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestRetryDelayGrowsWithAttempts(t *testing.T) {
	for attempt := 1; attempt <= 3; attempt++ {
		base := time.Duration(attempt*attempt) * time.Second
		d := retryDelay(attempt)
		if d < base || d > base+base/2 {
			t.Errorf("retryDelay(%d) = %v outside [%v, %v]", attempt, d, base, base+base/2)
		}
	}
}
