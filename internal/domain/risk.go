package domain

import (
	"math"
	"regexp"
	"strings"
)

// Label thresholds on the primary polarity score. Downstream aggregation
// depends on these exact values; they are not configurable.
const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

// apos matches the forms an apostrophe takes after normalization: kept,
// curly, replaced by a space, or dropped.
const apos = `(?:'|’|\s)?`

var highRiskPatterns = []string{
	`suicid[ea]`,
	`kill\s+myself`,
	`end\s+it\s+all`,
	`don` + apos + `t\s+want\s+to\s+live`,
	`can` + apos + `t\s+take\s+it\s+anymore`,
	`goodbye\s+world`,
	`final\s+goodbye`,
	`last\s+post`,
	`planning\s+to\s+die`,
	`going\s+to\s+die`,
}

var moderateRiskPatterns = []string{
	`help\s+needed`,
	`can` + apos + `t\s+cope`,
	`feeling\s+lost`,
	`need\s+support`,
	`struggling`,
	`overwhelmed`,
	`can` + apos + `t\s+sleep`,
	`panic\s+attack`,
	`anxiety`,
	`depression`,
	`hopeless`,
}

var (
	highRiskRe     = compileTier(highRiskPatterns)
	moderateRiskRe = compileTier(moderateRiskPatterns)
)

func compileTier(patterns []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + strings.Join(patterns, "|"))
}

// PolarityScorer scores text polarity in [-1, 1].
type PolarityScorer interface {
	Polarity(text string) float64
}

// PolarityFunc adapts a plain function to PolarityScorer.
type PolarityFunc func(text string) float64

// Polarity calls f(text).
func (f PolarityFunc) Polarity(text string) float64 { return f(text) }

// RiskClassifier assigns a risk tier and sentiment to normalized post text.
type RiskClassifier struct {
	primary   PolarityScorer
	secondary PolarityScorer
}

// NewRiskClassifier builds a classifier. primary drives the sentiment label;
// secondary is recorded alongside it. Either may be nil, scoring 0.
func NewRiskClassifier(primary, secondary PolarityScorer) *RiskClassifier {
	return &RiskClassifier{primary: primary, secondary: secondary}
}

// Assess classifies text, which must be NormalizedText.
func (c *RiskClassifier) Assess(text string) RiskAssessment {
	primary := score(c.primary, text)
	return RiskAssessment{
		Tier:              ClassifyRisk(text),
		PrimaryPolarity:   primary,
		SecondaryPolarity: score(c.secondary, text),
		Label:             LabelFor(primary),
	}
}

// ClassifyRisk returns High if any high-risk phrase matches, else Moderate if
// any moderate phrase matches, else Low.
func ClassifyRisk(text string) RiskTier {
	switch {
	case highRiskRe.MatchString(text):
		return RiskHigh
	case moderateRiskRe.MatchString(text):
		return RiskModerate
	default:
		return RiskLow
	}
}

// LabelFor buckets a polarity score. Values exactly on a threshold are Neutral.
func LabelFor(score float64) SentimentLabel {
	switch {
	case score > PositiveThreshold:
		return SentimentPositive
	case score < NegativeThreshold:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func score(s PolarityScorer, text string) float64 {
	if s == nil || text == "" {
		return 0
	}
	v := s.Polarity(text)
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
