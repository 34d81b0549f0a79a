package domain

import (
	"context"
	"log/slog"
)

// GeocodeQuery returns the address sent to the geocoder for a candidate. Bare
// city or state names get ", USA" appended so "portland" is not resolved abroad.
func GeocodeQuery(candidate string, g *Gazetteer) string {
	if g != nil && g.IsKnownPlace(candidate) {
		return candidate + ", USA"
	}
	return candidate
}

// ResolveGeoPoint geocodes a location candidate. It returns nil when the
// candidate or geocoder is absent, or when geocoding fails or finds nothing;
// failures are logged and never propagated.
func ResolveGeoPoint(ctx context.Context, candidate *LocationCandidate, geocoder Geocoder, g *Gazetteer, logger *slog.Logger) *GeoPoint {
	if candidate == nil || geocoder == nil {
		return nil
	}

	query := GeocodeQuery(candidate.Text, g)
	result, err := geocoder.Geocode(ctx, query)
	if err != nil {
		logger.Warn("geocoding failed",
			"location", candidate.Text,
			"query", query,
			"error", err,
		)
		return nil
	}
	if !result.Found() {
		logger.Debug("geocoding found no match", "location", candidate.Text, "query", query)
		return nil
	}

	return &GeoPoint{
		Lat:     result.Lat,
		Lon:     result.Lon,
		Address: result.FormattedAddress,
	}
}
