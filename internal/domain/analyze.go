package domain

import (
	"context"
	"log/slog"
)

// Analyzer runs the full classification and location chain for one post.
// It holds no per-post state and is safe for concurrent use as long as its
// geocoder is.
type Analyzer struct {
	classifier *RiskClassifier
	extractor  *LocationExtractor
	gazetteer  *Gazetteer
	geocoder   Geocoder
	logger     *slog.Logger
}

// NewAnalyzer wires the stages. Pass a nil geocoder to skip coordinate resolution.
func NewAnalyzer(classifier *RiskClassifier, extractor *LocationExtractor, g *Gazetteer, geocoder Geocoder, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		classifier: classifier,
		extractor:  extractor,
		gazetteer:  g,
		geocoder:   geocoder,
		logger:     logger,
	}
}

// Analyze classifies and locates a post.
func (a *Analyzer) Analyze(ctx context.Context, post RawPost) AnalyzedPost {
	full := post.FullText()
	cleaned := NormalizeText(full)

	risk := a.classifier.Assess(cleaned)
	candidate := a.extractor.Extract(LocationText(full))
	geo := ResolveGeoPoint(ctx, candidate, a.geocoder, a.gazetteer, a.logger.With("post_id", post.PostID))

	var state *string
	if candidate != nil {
		state = a.gazetteer.ExtractState(candidate.Text)
	}

	return BuildAnalyzedPost(post, cleaned, risk, candidate, geo, state)
}

// BuildAnalyzedPost joins the stage outputs into the terminal record. A
// GeoPoint without a candidate is dropped to keep the record consistent.
func BuildAnalyzedPost(post RawPost, cleaned string, risk RiskAssessment, candidate *LocationCandidate, geo *GeoPoint, state *string) AnalyzedPost {
	if candidate == nil {
		geo = nil
	}
	return AnalyzedPost{
		RawPost:     post,
		Risk:        risk,
		Location:    candidate,
		Geo:         geo,
		State:       state,
		HeatWeight:  risk.Tier.HeatWeight(),
		CleanedText: cleaned,
		ProcessedAt: clock.Now().UTC(),
	}
}
