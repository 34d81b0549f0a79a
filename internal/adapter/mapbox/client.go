package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/observability"
)

const (
	provider     = "mapbox"
	maxFeatures  = 3
	minRelevance = 0.5
)

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode resolves a free-form address, restricted to US places. Features
// below minRelevance count as no match.
func (c *Client) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	params := url.Values{
		"access_token": {c.token},
		"limit":        {strconv.Itoa(maxFeatures)},
		"country":      {"us"},
		"types":        {"place,locality,region,district"},
		"autocomplete": {"false"},
	}
	u := fmt.Sprintf("%s/%s.json?%s", c.baseURL, url.PathEscape(address), params.Encode())

	start := time.Now()
	features, err := c.fetch(ctx, u)
	c.metrics.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(provider, "error").Inc()
		return domain.GeocodingResult{}, err
	}

	result, ok := bestFeature(features)
	if !ok {
		c.metrics.GeocodeRequests.WithLabelValues(provider, "empty").Inc()
		c.logger.Debug("mapbox returned no usable feature", "address", address, "features", len(features))
		return domain.GeocodingResult{}, nil
	}
	c.metrics.GeocodeRequests.WithLabelValues(provider, "success").Inc()
	return result, nil
}

func (c *Client) fetch(ctx context.Context, fullURL string) ([]feature, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapbox geocode request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return body.Features, nil
}

// bestFeature returns the first feature with a center point and enough
// relevance. Mapbox orders features by relevance already.
func bestFeature(features []feature) (domain.GeocodingResult, bool) {
	for _, f := range features {
		if len(f.Center) != 2 || f.Relevance < minRelevance {
			continue
		}
		return domain.GeocodingResult{
			Lat:              f.Center[1],
			Lon:              f.Center[0],
			FormattedAddress: f.PlaceName,
			PlaceName:        f.Text,
			Confidence:       f.Relevance,
		}, true
	}
	return domain.GeocodingResult{}, false
}

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
