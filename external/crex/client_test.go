package crex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"github.com/riskibarqy/crex-scraper/internal/platform/resilience"
	"github.com/riskibarqy/crex-scraper/internal/usecase"
)

func newTestClient(t *testing.T, baseURL string, cfg ClientConfig) *Client {
	t.Helper()

	cfg.BaseURL = baseURL
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = time.Millisecond
	}
	return NewClient(cfg)
}

func TestClientFetch_SendsUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path != "/fixtures/match-list" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, ClientConfig{})
	body, err := c.Fetch(context.Background(), c.ListURL())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Fatalf("unexpected body %q", body)
	}
	if gotUA != DefaultUserAgent {
		t.Fatalf("unexpected user agent %q", gotUA)
	}
}

func TestClientFetch_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("done"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, ClientConfig{MaxRetries: 3})
	body, err := c.Fetch(context.Background(), "/match/7")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != "done" {
		t.Fatalf("unexpected body %q", body)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestClientFetch_ReturnsFetchErrorAfterRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, ClientConfig{MaxRetries: 3})
	_, err := c.Fetch(context.Background(), "/match/404")

	var fetchErr *usecase.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T %v", err, err)
	}
	if fetchErr.Attempts != 4 || calls.Load() != 4 {
		t.Fatalf("expected 4 attempts, got error=%d server=%d", fetchErr.Attempts, calls.Load())
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status %d", fetchErr.StatusCode)
	}
	if fetchErr.URL != srv.URL+"/match/404" {
		t.Fatalf("unexpected url %q", fetchErr.URL)
	}
}

func TestClientFetch_ExponentialBackoff(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	c := newTestClient(t, srv.URL, ClientConfig{MaxRetries: 3, BackoffBase: time.Second, Clock: clock})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, "/fixtures/match-list")
		done <- err
	}()

	for _, wait := range []time.Duration{time.Second, 2 * time.Second} {
		if err := clock.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("waiting for backoff timer: %v", err)
		}
		clock.Advance(wait - time.Millisecond)
		select {
		case <-done:
			t.Fatalf("fetch finished before %s backoff elapsed", wait)
		case <-time.After(20 * time.Millisecond):
		}
		clock.Advance(time.Millisecond)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
	case <-ctx.Done():
		t.Fatalf("fetch did not finish")
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestClientFetch_CanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	c := newTestClient(t, srv.URL, ClientConfig{MaxRetries: 3, BackoffBase: time.Second, Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, "/")
		done <- err
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := clock.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("waiting for backoff timer: %v", err)
	}
	cancel()

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	var fetchErr *usecase.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if state := c.breaker.State(); state != resilience.CircuitStateClosed {
		t.Fatalf("expected breaker to stay closed, got %s", state)
	}
}

func TestClientFetch_CanceledCallerDoesNotFailSharedFetch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	hit := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case hit <- struct{}{}:
		default:
		}
		<-release
		_, _ = w.Write([]byte("<html>list</html>"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, ClientConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	ctxA, cancelA := context.WithCancel(context.Background())
	doneA := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctxA, c.ListURL())
		doneA <- err
	}()

	select {
	case <-hit:
	case <-time.After(5 * time.Second):
		t.Fatalf("request never reached the server")
	}

	type result struct {
		body []byte
		err  error
	}
	doneB := make(chan result, 1)
	go func() {
		body, err := c.Fetch(context.Background(), c.ListURL())
		doneB <- result{body: body, err: err}
	}()

	cancelA()
	select {
	case err := <-doneA:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected canceled caller to see context canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("canceled caller did not return")
	}

	close(release)
	select {
	case res := <-doneB:
		if res.err != nil {
			t.Fatalf("expected joined caller to succeed, got %v", res.err)
		}
		if string(res.body) != "<html>list</html>" {
			t.Fatalf("unexpected body %q", res.body)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("joined caller did not return")
	}

	if state := c.breaker.State(); state != resilience.CircuitStateClosed {
		t.Fatalf("expected breaker to stay closed, got %s", state)
	}
	if got := calls.Load(); got > 2 {
		t.Fatalf("expected at most 2 upstream requests, got %d", got)
	}
}

func TestIsCircuitFailure(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err  error
		want bool
	}{
		"transient": {err: errCrexTransient, want: true},
		"canceled":  {err: fmt.Errorf("send request: %w", context.Canceled), want: false},
		"deadline":  {err: fmt.Errorf("send request: %w", context.DeadlineExceeded), want: false},
		"unrelated": {err: errors.New("build request"), want: false},
	}
	for name, tc := range cases {
		if got := isCircuitFailure(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, got)
		}
	}
}

func TestAbbreviateBody_KeepsRunesWhole(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("é", 300)
	got := abbreviateBody([]byte(body))
	if !utf8.ValidString(got) {
		t.Fatalf("expected valid utf-8, got %q", got)
	}
	if want := strings.Repeat("é", maxBodyPreviewRunes) + "..."; got != want {
		t.Fatalf("unexpected preview length %d", utf8.RuneCountInString(got))
	}
	if short := abbreviateBody([]byte("  tiny  ")); short != "tiny" {
		t.Fatalf("unexpected short preview %q", short)
	}
}

func TestClientFetch_CircuitBreakerOpens(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, ClientConfig{
		MaxRetries: 0,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	if _, err := c.Fetch(context.Background(), "/match/1"); err == nil {
		t.Fatalf("expected first fetch to fail")
	}
	_, err := c.Fetch(context.Background(), "/match/2")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected open breaker to skip the request, got %d calls", got)
	}
}

func TestClientURLs(t *testing.T) {
	t.Parallel()

	c := NewClient(ClientConfig{BaseURL: "https://crex.com/"})
	if got := c.ListURL(); got != "https://crex.com/fixtures/match-list" {
		t.Fatalf("unexpected list url %q", got)
	}
	if got := c.DetailURL(42); got != "https://crex.com/match/42" {
		t.Fatalf("unexpected detail url %q", got)
	}
	if got := c.ResolveURL("scores/live"); got != "https://crex.com/scores/live" {
		t.Fatalf("unexpected resolved url %q", got)
	}
	if got := c.ResolveURL("https://m.crex.com/x"); got != "https://m.crex.com/x" {
		t.Fatalf("unexpected absolute url %q", got)
	}
}
