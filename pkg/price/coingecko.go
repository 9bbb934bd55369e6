package price

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tokengate/middleware/pkg/config"
)

// apiKeyHeader carries the optional CoinGecko API key. Absence of a key must
// not block unauthenticated access to the public endpoints.
const apiKeyHeader = "x-cg-demo-api-key"

// CoinGecko fetches USD spot prices from the CoinGecko simple-price API.
type CoinGecko struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewCoinGecko creates a price fetcher from configuration
func NewCoinGecko(cfg *config.PricingConfig) *CoinGecko {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinGecko{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch resolves the USD unit price for a source from the upstream API.
func (c *CoinGecko) Fetch(ctx context.Context, src Source) (decimal.Decimal, error) {
	var endpoint, key string
	switch src.Mode {
	case ModeOnchain:
		platform := src.Platform
		if platform == "" {
			platform = DefaultPlatform
		}
		if src.TokenAddress == "" {
			return decimal.Zero, fmt.Errorf("%w: token address not configured", ErrPriceUnavailable)
		}
		// The API keys its response map by lowercased contract address.
		key = strings.ToLower(src.TokenAddress)
		endpoint = fmt.Sprintf("%s/simple/token_price/%s?contract_addresses=%s&vs_currencies=usd",
			c.baseURL, url.PathEscape(platform), url.QueryEscape(key))
	default:
		if src.CoinID == "" {
			return decimal.Zero, fmt.Errorf("%w: coin id not configured", ErrPriceUnavailable)
		}
		key = src.CoinID
		endpoint = fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
			c.baseURL, url.QueryEscape(key))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: upstream returned status %d", ErrPriceUnavailable, resp.StatusCode)
	}

	// Both endpoints answer {"<key>": {"usd": <price>}}.
	var prices map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	entry, ok := prices[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no entry for %q", ErrPriceUnavailable, key)
	}
	value, ok := entry["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no usd quote for %q", ErrPriceUnavailable, key)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return decimal.Zero, fmt.Errorf("%w: invalid price %v for %q", ErrPriceUnavailable, value, key)
	}
	return decimal.NewFromFloat(value), nil
}
