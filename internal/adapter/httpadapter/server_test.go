package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crisis-signal-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/store/sqlite"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockLister struct {
	posts []domain.AnalyzedPost
	err   error
	last  sqlite.Filter
}

func (m *mockLister) List(_ context.Context, f sqlite.Filter) ([]domain.AnalyzedPost, error) {
	m.last = f
	return m.posts, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, nil, domain.NewUSGazetteer(), discardLogger())
}

func strPtr(s string) *string { return &s }

func storedPosts() []domain.AnalyzedPost {
	return []domain.AnalyzedPost{
		{
			RawPost:    domain.RawPost{PostID: "a"},
			Risk:       domain.RiskAssessment{Tier: domain.RiskHigh, Label: domain.SentimentNegative},
			Location:   &domain.LocationCandidate{Text: "austin, TX", Source: domain.SourcePattern},
			Geo:        &domain.GeoPoint{Lat: 30.27, Lon: -97.74},
			State:      strPtr("TX"),
			HeatWeight: 3,
		},
		{
			RawPost:    domain.RawPost{PostID: "b"},
			Risk:       domain.RiskAssessment{Tier: domain.RiskModerate, Label: domain.SentimentNegative},
			Location:   &domain.LocationCandidate{Text: "austin, TX", Source: domain.SourcePattern},
			State:      strPtr("TX"),
			HeatWeight: 2,
		},
		{
			RawPost:    domain.RawPost{PostID: "c"},
			Risk:       domain.RiskAssessment{Tier: domain.RiskLow, Label: domain.SentimentPositive},
			HeatWeight: 1,
		},
	}
}

func serve(srv http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(fmt.Errorf("not ready yet")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestReportRoutesAbsentWithoutStore(t *testing.T) {
	rec := serve(newTestServer(nil), "/api/stats")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAllReady(t *testing.T) {
	notYet := errors.New("pipeline idle")

	require.NoError(t, httpadapter.AllReady{&mockReadiness{}, &mockReadiness{}}.CheckReadiness(context.Background()))
	require.ErrorIs(t, httpadapter.AllReady{&mockReadiness{}, &mockReadiness{err: notYet}}.CheckReadiness(context.Background()), notYet)
}

func newReportServer(lister *mockLister) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{}, lister, domain.NewUSGazetteer(), discardLogger())
}

func TestPostsEndpoint_Filters(t *testing.T) {
	lister := &mockLister{posts: storedPosts()[:1]}

	rec := serve(newReportServer(lister), "/api/posts?risk=High&state=tx&since=2024-05-01T00:00:00Z&limit=5")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RiskHigh, lister.last.Tier)
	assert.Equal(t, "tx", lister.last.State)
	assert.Equal(t, 5, lister.last.Limit)
	assert.Equal(t, 2024, lister.last.Since.Year())

	var posts []domain.AnalyzedPost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "a", posts[0].PostID)
}

func TestPostsEndpoint_EmptyIsArray(t *testing.T) {
	rec := serve(newReportServer(&mockLister{}), "/api/posts")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestPostsEndpoint_BadParams(t *testing.T) {
	tests := []string{
		"/api/posts?risk=Severe",
		"/api/posts?since=yesterday",
		"/api/posts?limit=-1",
		"/api/locations/top?n=ten",
	}
	for _, target := range tests {
		t.Run(target, func(t *testing.T) {
			rec := serve(newReportServer(&mockLister{}), target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestReportEndpoint_StoreError(t *testing.T) {
	rec := serve(newReportServer(&mockLister{err: errors.New("disk full")}), "/api/stats")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk full")
}

func TestStatsEndpoint(t *testing.T) {
	rec := serve(newReportServer(&mockLister{posts: storedPosts()}), "/api/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.RiskStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalPosts)
	assert.Equal(t, 1, stats.ByTier[domain.RiskHigh])
	assert.Equal(t, 2, stats.WithLocation)
	assert.Equal(t, 1, stats.WithGeo)
}

func TestCrossTabEndpoint(t *testing.T) {
	rec := serve(newReportServer(&mockLister{posts: storedPosts()}), "/api/crosstab")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Counts      domain.CrossTab        `json:"counts"`
		Percentages domain.CrossTabPercent `json:"percentages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Counts.Total)
	assert.Equal(t, 2, body.Counts.RowTotals[domain.SentimentNegative])
	assert.InDelta(t, 66.67, body.Percentages.RowTotals[domain.SentimentNegative], 0.001)
}

func TestTopLocationsEndpoint(t *testing.T) {
	rec := serve(newReportServer(&mockLister{posts: storedPosts()}), "/api/locations/top?n=1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"location":"austin, TX","count":2}]`, rec.Body.String())
}

func TestStatesEndpoint(t *testing.T) {
	rec := serve(newReportServer(&mockLister{posts: storedPosts()}), "/api/states")

	require.Equal(t, http.StatusOK, rec.Code)
	var rows []domain.StateRisk
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "TX", rows[0].Code)
	assert.Equal(t, "Texas", rows[0].Name)
	assert.Equal(t, 2, rows[0].Total)
}

func TestHeatmapEndpoint(t *testing.T) {
	rec := serve(newReportServer(&mockLister{posts: storedPosts()}), "/api/heatmap")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"lat":30.27,"lon":-97.74,"weight":3,"risk_level":"High"}]`, rec.Body.String())
}
