package trend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	// DefaultTimeout bounds a single trend lookup end to end. Pricing must
	// never block indefinitely on a slow trend backend.
	DefaultTimeout = 5 * time.Second

	// DefaultRetryMax is the number of retries for transient failures.
	DefaultRetryMax = 2
)

// HTTPConfig holds configuration for the remote trend provider.
type HTTPConfig struct {
	// BaseURL of the trend service, e.g. "http://localhost:8090".
	BaseURL string

	// Timeout for a whole lookup including retries (default 5s).
	Timeout time.Duration

	// RetryMax is the number of retries for transient failures (default 2).
	RetryMax int

	// Logger receives degradation warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// HTTPProvider fetches trend scores from a remote service.
// GET {base}/trends?designer=X&model=Y responds {"trend_score": 0.7}.
type HTTPProvider struct {
	baseURL string
	timeout time.Duration
	client  *retryablehttp.Client
	logger  *slog.Logger
}

type trendResponse struct {
	Score float64 `json:"trend_score"`
}

// NewHTTPProvider creates a remote trend provider with bounded retries.
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	retryMax := cfg.RetryMax
	if retryMax <= 0 {
		retryMax = DefaultRetryMax
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 1 * time.Second
	client.Logger = nil // slog output below is enough

	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		timeout: timeout,
		client:  client,
		logger:  logger,
	}
}

// TrendScore fetches the score, falling back to DefaultScore on any failure.
// The returned error marks the lookup as degraded; it is never fatal.
func (p *HTTPProvider) TrendScore(ctx context.Context, designer, model string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/trends?designer=%s&model=%s",
		p.baseURL, url.QueryEscape(designer), url.QueryEscape(model))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return DefaultScore, fmt.Errorf("failed to create trend request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("trend lookup failed, using default score",
			"designer", designer, "model", model, "error", err)
		return DefaultScore, fmt.Errorf("trend lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("trend service returned non-OK status, using default score",
			"designer", designer, "model", model, "status", resp.StatusCode)
		return DefaultScore, fmt.Errorf("trend service status %d", resp.StatusCode)
	}

	var tr trendResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return DefaultScore, fmt.Errorf("failed to decode trend response: %w", err)
	}

	return clamp01(tr.Score), nil
}

// Ensure HTTPProvider implements Provider.
var _ Provider = (*HTTPProvider)(nil)
