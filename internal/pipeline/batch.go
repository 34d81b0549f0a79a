package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
)

// BatchAnalyzer analyzes in-memory posts, as read from a file or feed,
// across a bounded worker pool.
type BatchAnalyzer struct {
	transformer *PostTransformer
	workers     int
	logger      *slog.Logger
}

// NewBatchAnalyzer creates a BatchAnalyzer running at most workers posts at once.
func NewBatchAnalyzer(t *PostTransformer, workers int, logger *slog.Logger) *BatchAnalyzer {
	if workers < 1 {
		workers = 1
	}
	return &BatchAnalyzer{transformer: t, workers: workers, logger: logger}
}

// AnalyzeAll returns one AnalyzedPost per valid input post, in input order.
// Posts without an id are skipped, so empty or fully invalid input yields an
// empty result. It returns the context error if ctx is cancelled mid-run.
func (b *BatchAnalyzer) AnalyzeAll(ctx context.Context, posts []domain.RawPost) ([]domain.AnalyzedPost, error) {
	if len(posts) == 0 {
		b.logger.Info("analysis run skipped", "posts", 0)
		return []domain.AnalyzedPost{}, nil
	}
	runID := uuid.NewString()
	logger := b.logger.With("run_id", runID)
	start := time.Now()

	results := make([]domain.AnalyzedPost, len(posts))
	valid := make([]bool, len(posts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range posts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			post, err := domain.NormalizeRawPost(posts[i], "", time.Time{})
			if err != nil {
				logger.Warn("skipping post", "index", i, "error", err)
				return nil
			}
			results[i] = b.transformer.AnalyzePost(gctx, post)
			valid[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.AnalyzedPost, 0, len(posts))
	for i := range results {
		if valid[i] {
			out = append(out, results[i])
		}
	}
	logger.Info("analysis run complete",
		"posts", len(posts),
		"analyzed", len(out),
		"workers", b.workers,
		"duration", time.Since(start),
	)
	return out, nil
}

// MultiLoader writes each batch to every loader in order. All loaders are
// attempted; their errors are joined.
type MultiLoader []BatchLoader

func (m MultiLoader) LoadBatch(ctx context.Context, posts []domain.AnalyzedPost) error {
	var errs []error
	for _, l := range m {
		if err := l.LoadBatch(ctx, posts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
