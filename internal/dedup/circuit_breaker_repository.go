package dedup

import (
	"context"
	"time"

	"linksum/internal/config"
	"linksum/pkg/circuitbreaker"
)

// CircuitBreakerRepository shields the pipeline from a flapping Redis:
// once the breaker opens, checks fail fast and the store's fallback
// policy decides whether events still flow.
type CircuitBreakerRepository struct {
	inner   Repository
	breaker *circuitbreaker.Wrapper
}

func NewCircuitBreakerRepository(inner Repository, cfg config.CircuitBreakerConfig) *CircuitBreakerRepository {
	cbCfg := circuitbreaker.DefaultConfig("dedup-redis")
	if cfg.MaxRequests > 0 {
		cbCfg.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbCfg.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbCfg.Timeout = cfg.Timeout
	}

	return &CircuitBreakerRepository{
		inner:   inner,
		breaker: circuitbreaker.NewWrapper(cbCfg),
	}
}

func (r *CircuitBreakerRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	result, err := r.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return r.inner.SetNX(ctx, key, value, ttl)
	})
	r.breaker.RecordRequest(err == nil)
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}
