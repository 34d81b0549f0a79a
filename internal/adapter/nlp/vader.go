package nlp

import "github.com/jonreiter/govader"

// Vader scores text with the VADER compound score in [-1, 1].
type Vader struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVader loads the VADER lexicon.
func NewVader() *Vader {
	return &Vader{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Polarity returns the compound score for text.
func (v *Vader) Polarity(text string) float64 {
	if text == "" {
		return 0
	}
	return v.analyzer.PolarityScores(text).Compound
}
