package geocoding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crisis-signal-etl/internal/observability"
)

func TestRateLimited_SpacesConcurrentCalls(t *testing.T) {
	inner := &countingGeocoder{result: austin}
	gate := NewRateLimited(inner, 50*time.Millisecond, observability.NewMetricsForTesting())

	start := time.Now()
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gate.Geocode(context.Background(), "austin, TX")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Burst 1: the first call is immediate, the other three wait one interval each.
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
	assert.Equal(t, 4, inner.calls)
}

func TestRateLimited_CancelledContext(t *testing.T) {
	inner := &countingGeocoder{result: austin}
	gate := NewRateLimited(inner, time.Hour, observability.NewMetricsForTesting())

	_, err := gate.Geocode(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = gate.Geocode(ctx, "second")

	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRateLimited_ZeroIntervalDisablesGate(t *testing.T) {
	inner := &countingGeocoder{result: austin}
	gate := NewRateLimited(inner, 0, observability.NewMetricsForTesting())

	start := time.Now()
	for range 5 {
		_, err := gate.Geocode(context.Background(), "x")
		require.NoError(t, err)
	}

	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 5, inner.calls)
}
