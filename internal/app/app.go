// Package app assembles the analysis chain from configuration. It is shared
// by the service entrypoint and the CLI.
package app

import (
	"log/slog"

	"github.com/couchcryptid/crisis-signal-etl/internal/adapter/geocoding"
	"github.com/couchcryptid/crisis-signal-etl/internal/adapter/nlp"
	"github.com/couchcryptid/crisis-signal-etl/internal/adapter/reddit"
	"github.com/couchcryptid/crisis-signal-etl/internal/config"
	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/observability"
	"github.com/couchcryptid/crisis-signal-etl/internal/pipeline"
)

// Components are the long-lived pieces built from a Config.
type Components struct {
	Gazetteer   *domain.Gazetteer
	Analyzer    *domain.Analyzer
	Transformer *pipeline.PostTransformer
}

// Build wires the risk classifier, location extractor and geocoder chain.
func Build(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*Components, error) {
	geocoder, err := geocoding.New(cfg, metrics, logger)
	if err != nil {
		return nil, err
	}

	g := domain.NewUSGazetteer()
	classifier := domain.NewRiskClassifier(nlp.NewVader(), nlp.NewLexicon())
	extractor := domain.NewLocationExtractor(g, nlp.NewProseRecognizer(logger))
	analyzer := domain.NewAnalyzer(classifier, extractor, g, geocoder, logger)

	return &Components{
		Gazetteer:   g,
		Analyzer:    analyzer,
		Transformer: pipeline.NewTransformer(analyzer, metrics, logger),
	}, nil
}

// NewFeedSource builds the subreddit RSS source from cfg.
func NewFeedSource(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *reddit.FeedSource {
	return reddit.NewFeedSource(reddit.Options{
		BaseURL:    cfg.RedditBaseURL,
		UserAgent:  cfg.GeocoderUserAgent,
		Subreddits: cfg.Subreddits,
		Lookback:   cfg.FeedLookback,
		Attempts:   cfg.FeedRetryLimit,
	}, metrics, logger)
}
