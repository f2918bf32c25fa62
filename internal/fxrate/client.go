package fxrate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/meridianbank/returns-engine/internal/logger"
)

// fallbackRates maps currency codes to indicative AUD rates, used when
// the live service is unreachable or times out. Not for production
// pricing.
var fallbackRates = map[string]float64{
	"EUR": 1.7786,
	"USD": 1.5132,
	"GBP": 1.9500,
	"JPY": 0.0101,
	"CHF": 1.7000,
}

// Source supplies conversion rates into the reporting currency.
type Source interface {
	// Rate returns the rate converting one unit of ccy into the
	// reporting currency. ok is false when no rate is known.
	Rate(ctx context.Context, ccy string) (rate float64, ok bool)
}

// Client looks rates up against a Frankfurter-style HTTP API with a
// bounded timeout, caching hits and degrading to the static fallback
// table on any failure.
type Client struct {
	baseURL   string
	reporting string
	http      *http.Client
	cache     *gocache.Cache
	fallback  map[string]float64
}

// New builds a rate client. An empty baseURL disables live lookups.
func New(baseURL, reporting string, timeout, cacheTTL time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		reporting: strings.ToUpper(reporting),
		http:      &http.Client{Timeout: timeout},
		cache:     gocache.New(cacheTTL, 2*cacheTTL),
		fallback:  fallbackRates,
	}
}

// NewStatic builds a client that only consults the given table. Used by
// tests to pin rates.
func NewStatic(reporting string, table map[string]float64) *Client {
	return &Client{
		reporting: strings.ToUpper(reporting),
		cache:     gocache.New(gocache.NoExpiration, 0),
		fallback:  table,
	}
}

// Rate implements Source.
func (c *Client) Rate(ctx context.Context, ccy string) (float64, bool) {
	ccy = strings.ToUpper(strings.TrimSpace(ccy))
	if ccy == "" {
		return 0, false
	}
	if ccy == c.reporting {
		return 1.0, true
	}

	if v, found := c.cache.Get(ccy); found {
		return v.(float64), true
	}

	if c.baseURL != "" && c.http != nil {
		if rate, err := c.fetch(ctx, ccy); err == nil {
			c.cache.Set(ccy, rate, gocache.DefaultExpiration)
			return rate, true
		} else {
			logger.For("fxrate").Warn("live rate lookup failed, using fallback",
				"currency", ccy, "error", err)
		}
	}

	rate, ok := c.fallback[ccy]
	return rate, ok
}

type latestResponse struct {
	Rates map[string]float64 `json:"rates"`
}

func (c *Client) fetch(ctx context.Context, ccy string) (float64, error) {
	url := fmt.Sprintf("%s/latest?from=%s&to=%s", c.baseURL, ccy, c.reporting)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate service returned %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode rate response: %w", err)
	}

	rate, ok := body.Rates[c.reporting]
	if !ok {
		return 0, fmt.Errorf("no %s rate in response", c.reporting)
	}
	return rate, nil
}
