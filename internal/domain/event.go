package domain

import (
	"context"
	"strings"
	"time"
)

// DeletedAuthor is the sentinel author for deleted or anonymized accounts.
const DeletedAuthor = "[deleted]"

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// RawPost is a social post as delivered by an ingestion collaborator.
type RawPost struct {
	Platform    string    `json:"platform"`
	PostID      string    `json:"post_id"`
	Community   string    `json:"community,omitempty"` // subreddit for reddit posts
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
	Author      string    `json:"author"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	Permalink   string    `json:"permalink,omitempty"`
}

// FullText joins title and body the way every stage reads a post.
func (p RawPost) FullText() string {
	return p.Title + " " + p.Body
}

// RiskTier is the ordinal crisis severity signaled by a post.
type RiskTier string

const (
	RiskLow      RiskTier = "Low"
	RiskModerate RiskTier = "Moderate"
	RiskHigh     RiskTier = "High"
)

// RiskTiers lists the tiers from least to most severe.
var RiskTiers = []RiskTier{RiskLow, RiskModerate, RiskHigh}

// ParseRiskTier matches s against the tier names, ignoring case.
func ParseRiskTier(s string) (RiskTier, bool) {
	for _, t := range RiskTiers {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// HeatWeight is the weight a post of this tier carries on a density map.
func (t RiskTier) HeatWeight() int {
	switch t {
	case RiskHigh:
		return 3
	case RiskModerate:
		return 2
	default:
		return 1
	}
}

// SentimentLabel buckets a polarity score.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "Positive"
	SentimentNeutral  SentimentLabel = "Neutral"
	SentimentNegative SentimentLabel = "Negative"
)

// SentimentLabels lists the labels in display order.
var SentimentLabels = []SentimentLabel{SentimentNegative, SentimentNeutral, SentimentPositive}

// RiskAssessment is the classifier output for one post.
type RiskAssessment struct {
	Tier              RiskTier       `json:"risk_level"`
	PrimaryPolarity   float64        `json:"vader_sentiment"`
	SecondaryPolarity float64        `json:"lexicon_sentiment"`
	Label             SentimentLabel `json:"sentiment"`
}

// LocationSource identifies which extraction strategy produced a candidate.
type LocationSource string

const (
	SourcePattern   LocationSource = "pattern"
	SourceEntity    LocationSource = "entity"
	SourceGazetteer LocationSource = "gazetteer"
	SourceStateCode LocationSource = "state_code"
)

// LocationCandidate is a best-effort textual location guess prior to geocoding.
type LocationCandidate struct {
	Text   string         `json:"text"`
	Source LocationSource `json:"source"`
}

// GeoPoint is a geocoded location.
type GeoPoint struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address"`
}

// AnalyzedPost is the terminal record handed to persistence and reporting.
type AnalyzedPost struct {
	RawPost
	Risk        RiskAssessment     `json:"risk"`
	Location    *LocationCandidate `json:"location,omitempty"`
	Geo         *GeoPoint          `json:"geo,omitempty"`
	State       *string            `json:"state,omitempty"`
	HeatWeight  int                `json:"heat_weight"`
	CleanedText string             `json:"cleaned_content"`
	ProcessedAt time.Time          `json:"processed_at"`
}

// LocationText returns the candidate text or "" when absent.
func (a AnalyzedPost) LocationText() string {
	if a.Location == nil {
		return ""
	}
	return a.Location.Text
}

// StateCode returns the derived state abbreviation or "" when absent.
func (a AnalyzedPost) StateCode() string {
	if a.State == nil {
		return ""
	}
	return *a.State
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
