package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock geocoder ---

type mockGeocoder struct {
	result  GeocodingResult
	err     error
	queries []string
}

func (m *mockGeocoder) Geocode(_ context.Context, address string) (GeocodingResult, error) {
	m.queries = append(m.queries, address)
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var austinResult = GeocodingResult{
	Lat:              30.2672,
	Lon:              -97.7431,
	FormattedAddress: "Austin, Travis County, Texas, United States",
	PlaceName:        "Austin",
	Confidence:       0.9,
}

// --- tests ---

func TestGeocodeQuery(t *testing.T) {
	g := NewUSGazetteer()

	tests := []struct {
		candidate string
		want      string
	}{
		{"portland", "portland, USA"},
		{"new york", "new york, USA"},
		{"texas", "texas, USA"},
		{"Denver", "Denver, USA"},
		{"austin, TX", "austin, TX"},
		{"TX", "TX"},
		{"gotham", "gotham"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GeocodeQuery(tt.candidate, g), tt.candidate)
	}

	assert.Equal(t, "portland", GeocodeQuery("portland", nil))
}

func TestResolveGeoPoint_NilCandidate(t *testing.T) {
	geo := &mockGeocoder{result: austinResult}

	got := ResolveGeoPoint(context.Background(), nil, geo, NewUSGazetteer(), discardLogger())

	assert.Nil(t, got)
	assert.Empty(t, geo.queries)
}

func TestResolveGeoPoint_NilGeocoder(t *testing.T) {
	candidate := &LocationCandidate{Text: "austin, TX", Source: SourcePattern}

	got := ResolveGeoPoint(context.Background(), candidate, nil, NewUSGazetteer(), discardLogger())

	assert.Nil(t, got)
}

func TestResolveGeoPoint_Success(t *testing.T) {
	geo := &mockGeocoder{result: austinResult}
	candidate := &LocationCandidate{Text: "austin, TX", Source: SourcePattern}

	got := ResolveGeoPoint(context.Background(), candidate, geo, NewUSGazetteer(), discardLogger())

	require.NotNil(t, got)
	assert.Equal(t, GeoPoint{Lat: 30.2672, Lon: -97.7431, Address: austinResult.FormattedAddress}, *got)
	assert.Equal(t, []string{"austin, TX"}, geo.queries)
}

func TestResolveGeoPoint_BareCityGetsCountry(t *testing.T) {
	geo := &mockGeocoder{result: austinResult}
	candidate := &LocationCandidate{Text: "austin", Source: SourceGazetteer}

	ResolveGeoPoint(context.Background(), candidate, geo, NewUSGazetteer(), discardLogger())

	assert.Equal(t, []string{"austin, USA"}, geo.queries)
}

func TestResolveGeoPoint_Error_GracefulDegradation(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("service unavailable")}
	candidate := &LocationCandidate{Text: "austin, TX", Source: SourcePattern}

	got := ResolveGeoPoint(context.Background(), candidate, geo, NewUSGazetteer(), discardLogger())

	assert.Nil(t, got)
	assert.Len(t, geo.queries, 1)
}

func TestResolveGeoPoint_NoMatch(t *testing.T) {
	geo := &mockGeocoder{}
	candidate := &LocationCandidate{Text: "gotham", Source: SourceEntity}

	got := ResolveGeoPoint(context.Background(), candidate, geo, NewUSGazetteer(), discardLogger())

	assert.Nil(t, got)
}

func TestGeocodingResult_Found(t *testing.T) {
	assert.False(t, GeocodingResult{}.Found())
	assert.True(t, GeocodingResult{Lat: 0, Lon: 12.5}.Found())
	assert.True(t, austinResult.Found())
}
