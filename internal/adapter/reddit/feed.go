// Package reddit ingests recent posts from subreddit RSS feeds and keeps the
// ones that mention crisis-related terms.
package reddit

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/jonboulle/clockwork"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/observability"
)

const (
	platform       = "reddit"
	defaultBaseURL = "https://www.reddit.com"
	maxFeedBytes   = 5 << 20
)

// CrisisKeywords are matched case-insensitively against title and body.
var CrisisKeywords = []string{
	"depressed", "anxiety", "suicidal", "overwhelmed",
	"addiction", "help needed", "crisis", "mental health",
	"therapy", "counseling", "self harm", "hopeless",
	"can't cope", "breaking down", "need support",
}

// Options configures a FeedSource. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	UserAgent  string
	Subreddits []string
	Lookback   time.Duration
	Attempts   uint
	RetryDelay time.Duration
	Timeout    time.Duration
	Clock      clockwork.Clock
}

// FeedSource reads the "new" RSS listing of each configured subreddit.
type FeedSource struct {
	client     *http.Client
	baseURL    string
	userAgent  string
	subreddits []string
	lookback   time.Duration
	attempts   uint
	retryDelay time.Duration
	clock      clockwork.Clock
	policy     *bluemonday.Policy
	parser     *gofeed.Parser
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewFeedSource creates a FeedSource.
func NewFeedSource(opts Options, metrics *observability.Metrics, logger *slog.Logger) *FeedSource {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "crisis-signal-etl/1.0"
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 7 * 24 * time.Hour
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &FeedSource{
		client:     &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
		subreddits: opts.Subreddits,
		lookback:   opts.Lookback,
		attempts:   opts.Attempts,
		retryDelay: opts.RetryDelay,
		clock:      opts.Clock,
		policy:     bluemonday.StrictPolicy(),
		parser:     gofeed.NewParser(),
		metrics:    metrics,
		logger:     logger,
	}
}

// Fetch collects matching posts from every subreddit. A failing subreddit is
// logged and skipped. Posts crossposted to several subreddits are kept once.
// An empty crawl returns an empty slice.
func (s *FeedSource) Fetch(ctx context.Context) ([]domain.RawPost, error) {
	seen := make(map[string]struct{})
	posts := []domain.RawPost{}
	for _, sub := range s.subreddits {
		if err := ctx.Err(); err != nil {
			return posts, err
		}
		batch, err := s.FetchSubreddit(ctx, sub)
		if err != nil {
			s.metrics.FeedErrors.WithLabelValues(sub).Inc()
			s.logger.Error("fetch subreddit", "subreddit", sub, "error", err)
			continue
		}
		for _, p := range batch {
			if _, dup := seen[p.PostID]; dup {
				continue
			}
			seen[p.PostID] = struct{}{}
			posts = append(posts, p)
		}
	}
	if len(posts) == 0 {
		s.logger.Info("no matching posts", "subreddits", len(s.subreddits))
	}
	return posts, nil
}

// FetchSubreddit returns the posts of one subreddit that fall inside the
// lookback window and contain a crisis keyword.
func (s *FeedSource) FetchSubreddit(ctx context.Context, subreddit string) ([]domain.RawPost, error) {
	feed, err := s.fetchFeed(ctx, s.feedURL(subreddit))
	if err != nil {
		return nil, err
	}

	cutoff := s.clock.Now().Add(-s.lookback)
	var posts []domain.RawPost
	for _, item := range feed.Items {
		post, ok := s.convertItem(item, subreddit)
		if !ok || post.CreatedAt.Before(cutoff) || !MatchesCrisisKeyword(post.FullText()) {
			s.metrics.FeedPostsFetched.WithLabelValues(subreddit, "filtered").Inc()
			continue
		}
		s.metrics.FeedPostsFetched.WithLabelValues(subreddit, "kept").Inc()
		posts = append(posts, post)
	}
	s.logger.Info("subreddit fetched", "subreddit", subreddit, "items", len(feed.Items), "kept", len(posts))
	return posts, nil
}

func (s *FeedSource) feedURL(subreddit string) string {
	return fmt.Sprintf("%s/r/%s/new/.rss?limit=100", s.baseURL, url.PathEscape(subreddit))
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// retryable reports whether a failed fetch is worth another attempt.
// Client errors other than 429 are final.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

func (s *FeedSource) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	var feed *gofeed.Feed
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("User-Agent", s.userAgent)
			req.Header.Set("Accept", "application/atom+xml, application/rss+xml;q=0.9, */*;q=0.5")

			resp, err := s.client.Do(req)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusOK {
				return &statusError{code: resp.StatusCode}
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}

			parsed, err := s.parser.ParseString(string(body))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("parse feed: %w", err))
			}
			feed = parsed
			return nil
		},
		retry.Attempts(s.attempts),
		retry.Delay(s.retryDelay),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(s.retryDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("retrying feed fetch", "url", feedURL, "attempt", n+1, "error", err)
		}),
		retry.RetryIf(retryable),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feedURL, err)
	}
	return feed, nil
}

func (s *FeedSource) convertItem(item *gofeed.Item, subreddit string) (domain.RawPost, bool) {
	if item == nil {
		return domain.RawPost{}, false
	}
	id := postID(item)
	if id == "" {
		return domain.RawPost{}, false
	}

	var created time.Time
	switch {
	case item.PublishedParsed != nil:
		created = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		created = item.UpdatedParsed.UTC()
	default:
		return domain.RawPost{}, false
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}

	return domain.RawPost{
		Platform:  platform,
		PostID:    id,
		Community: subreddit,
		Title:     strings.TrimSpace(html.UnescapeString(item.Title)),
		Body:      s.plainText(body),
		CreatedAt: created,
		Author:    authorName(item),
		Permalink: item.Link,
	}, true
}

// plainText strips markup from a feed body and drops the trailing
// "submitted by" footer reddit appends to every entry.
func (s *FeedSource) plainText(raw string) string {
	text := html.UnescapeString(s.policy.Sanitize(raw))
	if i := strings.Index(text, "submitted by"); i >= 0 {
		text = text[:i]
	}
	return strings.Join(strings.Fields(text), " ")
}

// postID returns the bare reddit id, without the "t3_" kind prefix.
func postID(item *gofeed.Item) string {
	id := strings.TrimSpace(item.GUID)
	if id == "" {
		id = strings.TrimSpace(item.Link)
	}
	return strings.TrimPrefix(id, "t3_")
}

func authorName(item *gofeed.Item) string {
	var name string
	switch {
	case len(item.Authors) > 0 && item.Authors[0] != nil:
		name = item.Authors[0].Name
	case item.Author != nil:
		name = item.Author.Name
	}
	name = strings.TrimPrefix(strings.TrimSpace(name), "/u/")
	if name == "" {
		return domain.DeletedAuthor
	}
	return name
}

// MatchesCrisisKeyword reports whether text contains any CrisisKeywords entry.
func MatchesCrisisKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range CrisisKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
