// Package price resolves and caches USD unit prices for tokens, either by
// coin identifier or by on-chain contract address.
package price

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable is returned when the upstream price API fails or the
// resolved price is not a finite positive number. A zero or negative price is
// never trusted: it would silently gate everyone in or out.
var ErrPriceUnavailable = errors.New("price unavailable")

// Mode selects how a price is resolved.
type Mode string

const (
	// ModeCoinID resolves a spot price by coin identifier.
	ModeCoinID Mode = "coin_id"
	// ModeOnchain resolves a price by contract address on a platform.
	ModeOnchain Mode = "onchain"
)

// DefaultPlatform is used for on-chain lookups when no platform is configured.
const DefaultPlatform = "solana"

// Source identifies one priceable asset.
type Source struct {
	Mode         Mode
	CoinID       string
	Platform     string
	TokenAddress string
}

// CacheKey returns the cache key for the source. Contract addresses are
// lowercased, matching how the upstream API keys its responses.
func (s Source) CacheKey() string {
	if s.Mode == ModeOnchain {
		platform := s.Platform
		if platform == "" {
			platform = DefaultPlatform
		}
		return fmt.Sprintf("price:onchain:%s:%s", platform, strings.ToLower(s.TokenAddress))
	}
	return fmt.Sprintf("price:coin:%s", s.CoinID)
}

// Oracle resolves the current USD unit price for a source.
type Oracle interface {
	UsdPrice(ctx context.Context, src Source) (decimal.Decimal, error)
}

// Fetcher retrieves a price from the upstream API, bypassing any cache.
type Fetcher interface {
	Fetch(ctx context.Context, src Source) (decimal.Decimal, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, src Source) (decimal.Decimal, error)

func (f FetcherFunc) Fetch(ctx context.Context, src Source) (decimal.Decimal, error) {
	return f(ctx, src)
}

// Cache is a keyed store with absolute TTL expiry. Values are only trusted
// within their TTL window; an expired entry reads as a miss.
type Cache interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, key string, value decimal.Decimal, ttl time.Duration) error
}
