package crex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	crerr "github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/riskibarqy/crex-scraper/internal/platform/logging"
	"github.com/riskibarqy/crex-scraper/internal/platform/resilience"
	"github.com/riskibarqy/crex-scraper/internal/usecase"
)

const (
	DefaultBaseURL   = "https://crex.com"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	listPath         = "/fixtures/match-list"
	detailPathFormat = "/match/%d"
	maxBodyBytes     = 6 << 20

	maxBodyPreviewRunes = 240
)

var errCrexTransient = crerr.New("crex transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	RateLimitRPS   float64
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	Clock          clockwork.Clock
}

// Client fetches crex pages. One client is shared by every pipeline run.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	maxRetries  int
	backoffBase time.Duration
	limiter     *rate.Limiter
	logger      *logging.Logger
	breaker     *resilience.CircuitBreaker
	clock       clockwork.Clock
	flight      resilience.SingleFlight[[]byte]

	flightTimeout time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoffBase := cfg.BackoffBase
	if backoffBase <= 0 {
		backoffBase = time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		userAgent:   userAgent,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		limiter:     limiter,
		logger:      logger,
		breaker:     resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker, clock),
		clock:       clock,

		flightTimeout: flightBudget(httpClient.Timeout, backoffBase, maxRetries),
	}
}

// flightBudget bounds one shared fetch: every attempt plus every back-off.
func flightBudget(attemptTimeout, backoffBase time.Duration, maxRetries int) time.Duration {
	attempts := time.Duration(maxRetries + 1)
	return attempts*attemptTimeout + backoffBase*((1<<(maxRetries+1))-1)
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListURL() string {
	return c.baseURL + listPath
}

func (c *Client) DetailURL(matchID int64) string {
	return c.baseURL + fmt.Sprintf(detailPathFormat, matchID)
}

// ResolveURL makes a page link absolute against the configured origin.
func (c *Client) ResolveURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return c.baseURL + "/" + strings.TrimLeft(ref, "/")
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return c.baseURL + "/" + strings.TrimLeft(ref, "/")
	}
	return base.ResolveReference(parsed).String()
}

// Fetch returns the raw page body or a *usecase.FetchError once retries are exhausted.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	rawURL = c.ResolveURL(rawURL)
	if rawURL == "" {
		return nil, &usecase.FetchError{URL: rawURL, Err: fmt.Errorf("%w: empty url", usecase.ErrInvalidInput)}
	}

	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "crex circuit breaker rejected request", "url", rawURL, "state", c.breaker.State())
		return nil, &usecase.FetchError{
			URL: rawURL,
			Err: fmt.Errorf("%w: crex is temporarily unavailable: %v", usecase.ErrDependencyUnavailable, err),
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, &usecase.FetchError{URL: rawURL, Err: err}
	}

	// The shared request outlives any single caller; each caller only stops waiting.
	results := c.flight.DoChan(rawURL, func() ([]byte, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout)
		defer cancel()
		raw, reqErr := c.executeRequest(flightCtx, rawURL)
		c.breaker.Record(reqErr != nil && isCircuitFailure(reqErr))
		return raw, reqErr
	})

	select {
	case <-ctx.Done():
		return nil, &usecase.FetchError{URL: rawURL, Err: ctx.Err()}
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val, nil
	}
}

func (c *Client) executeRequest(ctx context.Context, rawURL string) ([]byte, error) {
	var (
		lastErr    error
		lastStatus int
		attempts   int
	)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		attempts++
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &usecase.FetchError{URL: rawURL, Attempts: attempts, Err: err}
		}

		raw, status, err := c.get(ctx, rawURL)
		if err == nil {
			return raw, nil
		}
		lastErr, lastStatus = err, status
		c.logger.WarnContext(ctx, "crex fetch attempt failed",
			"url", rawURL,
			"attempt", attempts,
			"status", status,
			"error", err,
		)

		if ctx.Err() != nil || attempt == c.maxRetries {
			break
		}
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	c.logger.ErrorContext(ctx, "crex fetch failed", "url", rawURL, "attempts", attempts, "error", lastErr)
	return nil, &usecase.FetchError{
		URL:        rawURL,
		Attempts:   attempts,
		StatusCode: lastStatus,
		Err:        lastErr,
	}
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, fmt.Errorf("send request: %w", ctxErr)
		}
		return nil, 0, crerr.Wrapf(errCrexTransient, "send request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, crerr.Wrapf(errCrexTransient, "read response body: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, crerr.Wrapf(errCrexTransient, "status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	}
	return raw, resp.StatusCode, nil
}

// backoff doubles from the base delay: 1s, 2s, 4s...
func (c *Client) backoff(attempt int) time.Duration {
	return c.backoffBase << attempt
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := c.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

// isCircuitFailure ignores context errors so cancellations never trip the breaker.
func isCircuitFailure(err error) bool {
	if crerr.Is(err, context.Canceled) || crerr.Is(err, context.DeadlineExceeded) {
		return false
	}
	return crerr.Is(err, errCrexTransient)
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if utf8.RuneCountInString(text) <= maxBodyPreviewRunes {
		return text
	}
	return string([]rune(text)[:maxBodyPreviewRunes]) + "..."
}
