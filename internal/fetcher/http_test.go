package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/trendscout/internal/config"
	"github.com/IshaanNene/trendscout/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig().Fetcher
	cfg.Timeout = 5 * time.Second
	f, err := NewHTTPFetcher(cfg, nil, testLogger())
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFetchDetailBrotli(t *testing.T) {
	const page = `<html><body><h1>Veste en lin</h1></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing user agent")
		}
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		_, _ = bw.Write([]byte(page))
		_ = bw.Close()
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	body, err := newTestFetcher(t).FetchDetail(context.Background(), srv.URL+"/p/1")
	if err != nil {
		t.Fatalf("FetchDetail: %v", err)
	}
	if body != page {
		t.Errorf("body = %q", body)
	}
}

func TestFetchDetailStatusErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		retryable  bool
		wantWait   time.Duration
	}{
		{"not found", http.StatusNotFound, "", false, 0},
		{"server error", http.StatusBadGateway, "", true, 0},
		{"rate limited", http.StatusTooManyRequests, "7", true, 7 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestFetcher(t).FetchDetail(context.Background(), srv.URL)
			var fe *types.FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FetchError, got %v", err)
			}
			if fe.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", fe.StatusCode, tt.status)
			}
			if fe.IsRetryable() != tt.retryable {
				t.Errorf("retryable = %v, want %v", fe.Retryable, tt.retryable)
			}
			if fe.RetryAfter != tt.wantWait {
				t.Errorf("retry after = %s, want %s", fe.RetryAfter, tt.wantWait)
			}
		})
	}
}

func TestFetchDetailEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := newTestFetcher(t).FetchDetail(context.Background(), srv.URL)
	if !errors.Is(err, types.ErrEmptyPage) {
		t.Errorf("expected ErrEmptyPage, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 5 * time.Second},
		{"3", 3 * time.Second},
		{"600", 2 * time.Minute},
		{"soon", 5 * time.Second},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDomainKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.zara.com/fr/fr/femme-l1000.html", "zara.com"},
		{"https://static.zara.net/photos/1.jpg", "zara.net"},
		{"https://www2.hm.com/fr_fr/", "hm.com"},
		{"https://www.asos.co.uk/women/", "asos.co.uk"},
		{"http://127.0.0.1:8080/x", "127.0.0.1"},
	}
	for _, tt := range tests {
		if got := DomainKey(tt.in); got != tt.want {
			t.Errorf("DomainKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestThrottleSpacesSameDomain(t *testing.T) {
	th := NewThrottle(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	if err := th.Wait(ctx, "https://www.zara.com/a"); err != nil {
		t.Fatal(err)
	}
	if err := th.Wait(ctx, "https://static.zara.com/b"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("second request not delayed, elapsed %s", elapsed)
	}

	start = time.Now()
	if err := th.Wait(ctx, "https://www2.hm.com/"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("other domain should not wait, elapsed %s", elapsed)
	}
}

func TestThrottleHonoursContext(t *testing.T) {
	th := NewThrottle(time.Hour)
	_ = th.Wait(context.Background(), "https://www.zara.com/")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := th.Wait(ctx, "https://www.zara.com/"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	var nilThrottle *Throttle
	if err := nilThrottle.Wait(context.Background(), "https://x.com"); err != nil {
		t.Errorf("nil throttle should not fail: %v", err)
	}
}
