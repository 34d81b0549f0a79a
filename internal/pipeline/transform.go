package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/observability"
)

// PostTransformer implements Transformer by parsing a raw message and running
// it through the domain Analyzer.
type PostTransformer struct {
	analyzer *domain.Analyzer
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewTransformer creates a PostTransformer.
func NewTransformer(analyzer *domain.Analyzer, metrics *observability.Metrics, logger *slog.Logger) *PostTransformer {
	return &PostTransformer{
		analyzer: analyzer,
		metrics:  metrics,
		logger:   logger,
	}
}

func (t *PostTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.AnalyzedPost, error) {
	post, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.AnalyzedPost{}, err
	}
	return t.AnalyzePost(ctx, post), nil
}

// AnalyzePost analyzes an already-parsed post and records its outcome.
func (t *PostTransformer) AnalyzePost(ctx context.Context, post domain.RawPost) domain.AnalyzedPost {
	analyzed := t.analyzer.Analyze(ctx, post)
	t.record(analyzed)
	return analyzed
}

func (t *PostTransformer) record(p domain.AnalyzedPost) {
	t.metrics.PostsAnalyzed.WithLabelValues(string(p.Risk.Tier), string(p.Risk.Label)).Inc()
	source := "none"
	if p.Location != nil {
		source = string(p.Location.Source)
	}
	t.metrics.LocationResolution.WithLabelValues(source).Inc()
}
