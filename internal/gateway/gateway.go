package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"countrypulse/internal/metrics"
)

// RawCountry is a country record as returned by the country-directory
// upstream, before any derivation.
type RawCountry struct {
	Name       string     `json:"name"`
	Capital    string     `json:"capital"`
	Region     string     `json:"region"`
	Population int64      `json:"population"`
	Currencies []Currency `json:"currencies"`
	Flag       string     `json:"flag"`
}

// Currency is one currency descriptor attached to a raw country record.
type Currency struct {
	Code string `json:"code"`
}

// ratesEnvelope is the exchange-rate upstream's response shape.
type ratesEnvelope struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// UpstreamError reports which upstream failed and why. It maps to a
// service-unavailable response at the API layer.
type UpstreamError struct {
	Upstream string
	URL      string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s unavailable (%s): %v", e.Upstream, e.URL, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Config controls the gateway's upstream endpoints and fetch timeout.
type Config struct {
	CountriesURL string
	RatesURL     string
	Timeout      time.Duration
}

// Client fetches raw country and exchange-rate data from the two upstreams.
// It does not retry; retry and backoff policy belongs to the caller.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger

	countriesCB *gobreaker.CircuitBreaker
	ratesCB     *gobreaker.CircuitBreaker
}

// NewClient builds a gateway client. A zero Timeout falls back to 5 seconds.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	newBreaker := func(name string) *gobreaker.CircuitBreaker {
		return gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
		})
	}
	return &Client{
		cfg:         cfg,
		http:        &http.Client{Timeout: cfg.Timeout},
		logger:      logger.Named("gateway"),
		countriesCB: newBreaker("countries-upstream"),
		ratesCB:     newBreaker("rates-upstream"),
	}
}

// FetchCountries returns the raw country list from the country-directory
// upstream. An empty list is a valid result.
func (c *Client) FetchCountries(ctx context.Context) ([]RawCountry, error) {
	var out []RawCountry
	err := c.fetchJSON(ctx, c.countriesCB, "countries", c.cfg.CountriesURL, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchRates returns the currency-code to rate mapping against the base
// currency published by the exchange-rate upstream.
func (c *Client) FetchRates(ctx context.Context) (map[string]float64, error) {
	var env ratesEnvelope
	err := c.fetchJSON(ctx, c.ratesCB, "rates", c.cfg.RatesURL, &env)
	if err != nil {
		return nil, err
	}
	if env.Rates == nil {
		env.Rates = map[string]float64{}
	}
	return env.Rates, nil
}

// FetchCountriesWithRates fetches both upstreams. An empty country list is
// returned as-is; derivation is the merge engine's job.
func (c *Client) FetchCountriesWithRates(ctx context.Context) ([]RawCountry, map[string]float64, error) {
	rates, err := c.FetchRates(ctx)
	if err != nil {
		return nil, nil, err
	}
	countries, err := c.FetchCountries(ctx)
	if err != nil {
		return nil, nil, err
	}
	return countries, rates, nil
}

func (c *Client) fetchJSON(ctx context.Context, cb *gobreaker.CircuitBreaker, upstream, url string, dest any) error {
	start := time.Now()
	_, err := cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return nil, nil
	})

	metrics.UpstreamFetchDurationSeconds.WithLabelValues(upstream).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamFetchErrorsTotal.WithLabelValues(upstream).Inc()
		c.logger.Warn("upstream fetch failed",
			zap.String("upstream", upstream),
			zap.String("url", url),
			zap.Error(err),
		)
		return &UpstreamError{Upstream: upstream, URL: url, Err: err}
	}
	return nil
}
