package geocoding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/observability"
)

// RateLimited serializes calls to a geocoder through a single token bucket
// with burst 1, so no more than one request starts per interval no matter how
// many workers share it.
type RateLimited struct {
	inner   domain.Geocoder
	limiter *rate.Limiter
	metrics *observability.Metrics
}

// NewRateLimited gates inner to one call per interval. A non-positive
// interval disables the gate.
func NewRateLimited(inner domain.Geocoder, interval time.Duration, metrics *observability.Metrics) *RateLimited {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(limit, 1),
		metrics: metrics,
	}
}

func (r *RateLimited) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("wait for geocoding slot: %w", err)
	}
	r.metrics.GeocodeRateWait.Observe(time.Since(start).Seconds())
	return r.inner.Geocode(ctx, address)
}
