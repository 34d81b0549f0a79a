package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingPostID is returned for payloads that carry no post identifier.
var ErrMissingPostID = errors.New("post has no post_id")

// ErrNoPosts is returned by reports that have no posts to summarize.
var ErrNoPosts = errors.New("no posts")

// ParseRawEvent deserializes a RawEvent's value into a RawPost. The message
// key stands in for a missing post_id; blank authors map to DeletedAuthor.
func ParseRawEvent(raw RawEvent) (RawPost, error) {
	var post RawPost
	if err := json.Unmarshal(raw.Value, &post); err != nil {
		return RawPost{}, fmt.Errorf("parse raw event: %w", err)
	}
	return NormalizeRawPost(post, string(raw.Key), raw.Timestamp)
}

// NormalizeRawPost fills defaults on a post handed over by an ingestion
// collaborator. fallbackID and fallbackTime are used when the post has none.
func NormalizeRawPost(post RawPost, fallbackID string, fallbackTime time.Time) (RawPost, error) {
	post.PostID = strings.TrimSpace(post.PostID)
	if post.PostID == "" {
		post.PostID = strings.TrimSpace(fallbackID)
	}
	if post.PostID == "" {
		return RawPost{}, ErrMissingPostID
	}
	if strings.TrimSpace(post.Author) == "" {
		post.Author = DeletedAuthor
	}
	if post.Platform == "" {
		post.Platform = "unknown"
	}
	if post.CreatedAt.IsZero() && !fallbackTime.IsZero() {
		post.CreatedAt = fallbackTime.UTC()
	}
	return post, nil
}

// Output event header names.
const (
	HeaderRiskTier    = "risk_tier"
	HeaderProcessedAt = "processed_at"
)

// SerializeAnalyzedPost encodes an analyzed post for the sink topic, keyed by
// post id so partitions keep per-post ordering.
func SerializeAnalyzedPost(post AnalyzedPost) (OutputEvent, error) {
	value, err := json.Marshal(post)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize analyzed post: %w", err)
	}
	return OutputEvent{
		Key:   []byte(post.PostID),
		Value: value,
		Headers: map[string]string{
			HeaderRiskTier:    string(post.Risk.Tier),
			HeaderProcessedAt: post.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

// DecodeAnalyzedPost reverses SerializeAnalyzedPost for downstream readers.
func DecodeAnalyzedPost(value []byte) (AnalyzedPost, error) {
	var post AnalyzedPost
	if err := json.Unmarshal(value, &post); err != nil {
		return AnalyzedPost{}, fmt.Errorf("decode analyzed post: %w", err)
	}
	return post, nil
}
