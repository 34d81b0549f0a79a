// Package geocoding assembles the configured geocoding provider behind the
// shared rate gate and LRU cache.
package geocoding

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/crisis-signal-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/crisis-signal-etl/internal/adapter/nominatim"
	"github.com/couchcryptid/crisis-signal-etl/internal/config"
	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/observability"
)

// New builds the geocoder chain cache -> rate gate -> provider. Cache hits
// never wait on the gate. It returns nil when geocoding is disabled.
func New(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (domain.Geocoder, error) {
	var client domain.Geocoder
	switch cfg.GeocoderProvider {
	case config.ProviderNone:
		metrics.GeocodeEnabled.Set(0)
		logger.Info("geocoding disabled")
		return nil, nil
	case config.ProviderNominatim:
		client = nominatim.NewClient(cfg.NominatimURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, metrics, logger)
	case config.ProviderMapbox:
		client = mapbox.NewClient(cfg.MapboxToken, cfg.GeocoderTimeout, metrics, logger)
	default:
		return nil, fmt.Errorf("geocoder %q: %w", cfg.GeocoderProvider, config.ErrUnknownProvider)
	}

	metrics.GeocodeEnabled.Set(1)
	logger.Info("geocoding enabled",
		"provider", cfg.GeocoderProvider,
		"rate_interval", cfg.GeocoderRateInterval,
		"cache_size", cfg.GeocoderCacheSize,
		"timeout", cfg.GeocoderTimeout,
	)
	gated := NewRateLimited(client, cfg.GeocoderRateInterval, metrics)
	return NewCachedGeocoder(gated, cfg.GeocoderCacheSize, metrics), nil
}
