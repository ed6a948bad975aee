package cache

import (
	"context"
	"time"

	"github.com/mkruijt/linkmap/pkg/linkage"
	"github.com/mkruijt/linkmap/pkg/observability"
)

const keyTypeEstimate = "estimate"

// CachedEstimator memoizes an Estimator through a Cache. Cache failures
// never fail an evaluation; on any backend error the inner estimator is
// consulted directly.
type CachedEstimator struct {
	inner       linkage.Estimator
	store       Cache
	keyer       Keyer
	datasetHash string
	ttl         time.Duration
}

// NewCachedEstimator wraps inner with memoization against data. A nil
// keyer means the default; ttl zero stores entries without expiration.
func NewCachedEstimator(inner linkage.Estimator, store Cache, keyer Keyer, data *linkage.Dataset, ttl time.Duration) *CachedEstimator {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	return &CachedEstimator{
		inner:       inner,
		store:       store,
		keyer:       keyer,
		datasetHash: DatasetHash(data),
		ttl:         ttl,
	}
}

// Estimate implements linkage.Estimator.
func (c *CachedEstimator) Estimate(ctx context.Context, data *linkage.Dataset, req linkage.EstimateRequest) (linkage.EstimateResult, error) {
	key := c.keyer.EstimateKey(c.datasetHash, req)

	if raw, ok, err := c.store.Get(ctx, key); err == nil && ok {
		if res, err := decode(raw); err == nil {
			observability.Cache().OnCacheHit(ctx, keyTypeEstimate)
			return res, nil
		}
		// Damaged entry: drop it and fall through to a fresh fit.
		_ = c.store.Delete(ctx, key)
	}
	observability.Cache().OnCacheMiss(ctx, keyTypeEstimate)

	res, err := c.inner.Estimate(ctx, data, req)
	if err != nil {
		return res, err
	}
	if raw, err := encode(res); err == nil {
		if c.store.Set(ctx, key, raw, c.ttl) == nil {
			observability.Cache().OnCacheSet(ctx, keyTypeEstimate, len(raw))
		}
	}
	return res, nil
}

var _ linkage.Estimator = (*CachedEstimator)(nil)
