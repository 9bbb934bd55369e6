package price

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tokengate/middleware/internal/metrics"
)

// Service is the caching price oracle: cache lookup first, then the fetcher,
// then a cache write with an absolute TTL.
type Service struct {
	fetcher Fetcher
	cache   Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewService creates a caching price oracle.
func NewService(fetcher Fetcher, cache Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// UsdPrice resolves the USD unit price for a source, serving from cache when
// a live entry exists.
func (s *Service) UsdPrice(ctx context.Context, src Source) (decimal.Decimal, error) {
	key := src.CacheKey()

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to a fetch; it must not fail the decision.
		s.logger.Warn("price cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		metrics.PriceCacheTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.PriceCacheTotal.WithLabelValues("miss").Inc()

	value, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		metrics.PriceFetchesTotal.WithLabelValues(string(src.Mode), "error").Inc()
		return decimal.Zero, err
	}
	metrics.PriceFetchesTotal.WithLabelValues(string(src.Mode), "ok").Inc()

	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("price cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
