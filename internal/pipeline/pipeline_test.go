package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crisis-signal-etl/internal/adapter/nlp"
	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/observability"
	"github.com/couchcryptid/crisis-signal-etl/internal/pipeline"
)

// --- mocks ---

// mockExtractor hands out its events in batches, then blocks until the
// context is cancelled.
type mockExtractor struct {
	mu     sync.Mutex
	events []domain.RawEvent
	err    error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	m.mu.Lock()
	if m.err != nil {
		err := m.err
		m.err = nil
		m.mu.Unlock()
		return nil, err
	}
	if len(m.events) > 0 {
		n := min(batchSize, len(m.events))
		batch := m.events[:n]
		m.events = m.events[n:]
		m.mu.Unlock()
		return batch, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	failKeys map[string]bool
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.AnalyzedPost, error) {
	if m.failKeys[string(raw.Key)] {
		return domain.AnalyzedPost{}, errors.New("bad data")
	}
	return domain.AnalyzedPost{RawPost: domain.RawPost{PostID: string(raw.Key)}}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.AnalyzedPost
	failures int
}

func (m *mockLoader) LoadBatch(_ context.Context, posts []domain.AnalyzedPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("sink unavailable")
	}
	m.loaded = append(m.loaded, posts...)
	return nil
}

func (m *mockLoader) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.loaded))
	for i, p := range m.loaded {
		ids[i] = p.PostID
	}
	return ids
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawEvent(id string, commits *atomic.Int32) domain.RawEvent {
	return domain.RawEvent{
		Key:   []byte(id),
		Value: []byte(`{"post_id":"` + id + `"}`),
		Topic: "raw-social-posts",
		Commit: func(context.Context) error {
			if commits != nil {
				commits.Add(1)
			}
			return nil
		},
	}
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- pipeline loop ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{events: []domain.RawEvent{rawEvent("a", &commits), rawEvent("b", &commits), rawEvent("c", &commits)}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 2, pipeline.WithWorkers(4))
	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, []string{"a", "b", "c"}, ldr.ids(), "load order follows source order")
	assert.Equal(t, int32(3), commits.Load())
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.MessagesProduced), 0)
	assert.Zero(t, testutil.ToFloat64(metrics.PipelineRunning), "gauge resets on exit")
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.ids())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorSkipsAndCommits(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{events: []domain.RawEvent{rawEvent("good", &commits), rawEvent("poison", &commits)}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{failKeys: map[string]bool{"poison": true}}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, []string{"good"}, ldr.ids())
	assert.Equal(t, int32(2), commits.Load(), "poison pill offsets are committed too")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
}

func TestPipeline_Run_AllFailNotReady(t *testing.T) {
	ext := &mockExtractor{events: []domain.RawEvent{rawEvent("poison", nil)}}
	p := pipeline.New(ext, &mockTransformer{failKeys: map[string]bool{"poison": true}}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 200*time.Millisecond)

	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{events: []domain.RawEvent{rawEvent("a", &commits)}}
	ldr := &mockLoader{failures: 1}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 400*time.Millisecond)

	assert.Empty(t, ldr.ids())
	assert.Zero(t, commits.Load())
}

func TestPipeline_Run_RecoversFromExtractError(t *testing.T) {
	ext := &mockExtractor{events: []domain.RawEvent{rawEvent("a", nil)}, err: errors.New("broker down")}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, time.Second)

	assert.Equal(t, []string{"a"}, ldr.ids())
}

// --- transformer ---

func newTransformer(t *testing.T, metrics *observability.Metrics) *pipeline.PostTransformer {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	g := domain.NewUSGazetteer()
	analyzer := domain.NewAnalyzer(
		domain.NewRiskClassifier(nlp.NewVader(), nlp.NewLexicon()),
		domain.NewLocationExtractor(g, nil),
		g,
		nil,
		discardLogger(),
	)
	return pipeline.NewTransformer(analyzer, metrics, discardLogger())
}

func TestPostTransformer_Transform(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	tfm := newTransformer(t, metrics)

	payload, err := json.Marshal(domain.RawPost{
		Platform: "reddit",
		PostID:   "t1",
		Title:    "help",
		Body:     "I feel like I want to kill myself, I'm in Austin, TX and need help",
	})
	require.NoError(t, err)

	out, err := tfm.Transform(context.Background(), domain.RawEvent{Key: []byte("t1"), Value: payload})
	require.NoError(t, err)

	assert.Equal(t, "t1", out.PostID)
	assert.Equal(t, domain.RiskHigh, out.Risk.Tier)
	assert.Equal(t, 3, out.HeatWeight)
	require.NotNil(t, out.Location)
	assert.Equal(t, "austin, TX", out.Location.Text)
	assert.Equal(t, "TX", out.StateCode())
	assert.Nil(t, out.Geo)
	assert.Equal(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC), out.ProcessedAt)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LocationResolution.WithLabelValues("pattern")), 0)
}

func TestPostTransformer_Transform_InvalidJSON(t *testing.T) {
	tfm := newTransformer(t, observability.NewMetricsForTesting())

	_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestPostTransformer_Transform_MissingID(t *testing.T) {
	tfm := newTransformer(t, observability.NewMetricsForTesting())

	_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(`{"title":"x"}`)})
	require.ErrorIs(t, err, domain.ErrMissingPostID)
}

// --- batch analyzer ---

func TestBatchAnalyzer_AnalyzeAll_PreservesOrder(t *testing.T) {
	ba := pipeline.NewBatchAnalyzer(newTransformer(t, observability.NewMetricsForTesting()), 4, discardLogger())

	posts := []domain.RawPost{
		{PostID: "1", Body: "just had a great day at the park"},
		{PostID: "", Body: "no id, skipped"},
		{PostID: "2", Body: "feeling really overwhelmed lately, currently stuck in Denver CO"},
		{PostID: "3", Body: "goodbye world"},
	}

	out, err := ba.AnalyzeAll(context.Background(), posts)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "1", out[0].PostID)
	assert.Equal(t, domain.RiskLow, out[0].Risk.Tier)
	assert.Equal(t, "2", out[1].PostID)
	assert.Equal(t, domain.RiskModerate, out[1].Risk.Tier)
	assert.Equal(t, "denver, CO", out[1].LocationText())
	assert.Equal(t, "3", out[2].PostID)
	assert.Equal(t, domain.RiskHigh, out[2].Risk.Tier)
	assert.Equal(t, domain.DeletedAuthor, out[2].Author)
}

func TestBatchAnalyzer_AnalyzeAll_Empty(t *testing.T) {
	ba := pipeline.NewBatchAnalyzer(newTransformer(t, observability.NewMetricsForTesting()), 2, discardLogger())

	tests := []struct {
		name  string
		posts []domain.RawPost
	}{
		{"nil", nil},
		{"empty", []domain.RawPost{}},
		{"all invalid", []domain.RawPost{{Body: "no id"}, {PostID: "  ", Body: "blank id"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ba.AnalyzeAll(context.Background(), tt.posts)
			require.NoError(t, err)
			assert.NotNil(t, out)
			assert.Empty(t, out)
		})
	}
}

func TestBatchAnalyzer_AnalyzeAll_Cancelled(t *testing.T) {
	ba := pipeline.NewBatchAnalyzer(newTransformer(t, observability.NewMetricsForTesting()), 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ba.AnalyzeAll(ctx, []domain.RawPost{{PostID: "1", Body: "hi"}})
	require.ErrorIs(t, err, context.Canceled)
}

// --- multi loader ---

func TestMultiLoader_WritesAllAndJoinsErrors(t *testing.T) {
	ok := &mockLoader{}
	failing := &mockLoader{failures: 1}
	posts := []domain.AnalyzedPost{{RawPost: domain.RawPost{PostID: "a"}}}

	err := pipeline.MultiLoader{failing, ok}.LoadBatch(context.Background(), posts)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink unavailable")
	assert.Equal(t, []string{"a"}, ok.ids(), "later loaders still run")
}
