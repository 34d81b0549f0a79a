package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
// A zero result with a nil error means the provider found no match.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score, when reported
}

// Found reports whether the result carries a usable match.
func (r GeocodingResult) Found() bool {
	return r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves a free-form address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (GeocodingResult, error)
}
