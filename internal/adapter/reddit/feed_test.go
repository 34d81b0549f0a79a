package reddit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/observability"
)

const atomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>newest submissions : depression</title>
  <entry>
    <author><name>/u/quiet_walker</name></author>
    <category term="depression" label="r/depression"/>
    <content type="html">&lt;div&gt;&lt;p&gt;I feel so hopeless and I can&amp;#39;t cope anymore. Living in Austin, TX.&lt;/p&gt;&lt;/div&gt; submitted by &lt;a href="https://www.reddit.com/user/quiet_walker"&gt; /u/quiet_walker &lt;/a&gt;</content>
    <id>t3_abc123</id>
    <link href="https://www.reddit.com/r/depression/comments/abc123/rough_night/"/>
    <published>2024-05-09T22:15:00+00:00</published>
    <title>Rough night</title>
  </entry>
  <entry>
    <author><name>/u/sunny</name></author>
    <content type="html">&lt;p&gt;Went for a walk, it was lovely.&lt;/p&gt;</content>
    <id>t3_def456</id>
    <link href="https://www.reddit.com/r/depression/comments/def456/walk/"/>
    <published>2024-05-09T20:00:00+00:00</published>
    <title>Good day</title>
  </entry>
  <entry>
    <content type="html">&lt;p&gt;So depressed lately.&lt;/p&gt;</content>
    <id>t3_old789</id>
    <link href="https://www.reddit.com/r/depression/comments/old789/old/"/>
    <published>2024-04-01T08:00:00+00:00</published>
    <title>Old post</title>
  </entry>
  <entry>
    <content type="html">&lt;p&gt;Feeling overwhelmed, need support.&lt;/p&gt;</content>
    <id>t3_ghi012</id>
    <link href="https://www.reddit.com/r/depression/comments/ghi012/help/"/>
    <published>2024-05-08T12:00:00+00:00</published>
    <title>Anyone around?</title>
  </entry>
</feed>`

var feedNow = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSource(baseURL string, subreddits ...string) (*FeedSource, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	src := NewFeedSource(Options{
		BaseURL:    baseURL,
		Subreddits: subreddits,
		Lookback:   7 * 24 * time.Hour,
		Attempts:   3,
		RetryDelay: time.Millisecond,
		Timeout:    time.Second,
		Clock:      clockwork.NewFakeClockAt(feedNow),
	}, metrics, discardLogger())
	return src, metrics
}

func TestFetchSubreddit(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomFeed))
	}))
	defer srv.Close()

	src, metrics := newTestSource(srv.URL, "depression")

	posts, err := src.FetchSubreddit(context.Background(), "depression")
	require.NoError(t, err)

	assert.Equal(t, "/r/depression/new/.rss", gotPath)
	assert.Equal(t, "crisis-signal-etl/1.0", gotUA)
	require.Len(t, posts, 2, "off-topic and stale posts are dropped")

	first := posts[0]
	assert.Equal(t, "abc123", first.PostID)
	assert.Equal(t, "reddit", first.Platform)
	assert.Equal(t, "depression", first.Community)
	assert.Equal(t, "Rough night", first.Title)
	assert.Equal(t, "I feel so hopeless and I can't cope anymore. Living in Austin, TX.", first.Body)
	assert.Equal(t, "quiet_walker", first.Author)
	assert.Equal(t, time.Date(2024, 5, 9, 22, 15, 0, 0, time.UTC), first.CreatedAt)
	assert.Equal(t, "https://www.reddit.com/r/depression/comments/abc123/rough_night/", first.Permalink)

	assert.Equal(t, "ghi012", posts[1].PostID)
	assert.Equal(t, domain.DeletedAuthor, posts[1].Author)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.FeedPostsFetched.WithLabelValues("depression", "kept")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.FeedPostsFetched.WithLabelValues("depression", "filtered")), 0)
}

func TestFetch_DedupesAndSkipsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/r/private/") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(atomFeed))
	}))
	defer srv.Close()

	src, metrics := newTestSource(srv.URL, "depression", "private", "anxiety")

	posts, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Len(t, posts, 2, "crossposts appear once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FeedErrors.WithLabelValues("private")), 0)
}

func TestFetch_NothingMatched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src, _ := newTestSource(srv.URL, "gone")

	posts, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestFetchSubreddit_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(atomFeed))
	}))
	defer srv.Close()

	src, _ := newTestSource(srv.URL, "depression")

	posts, err := src.FetchSubreddit(context.Background(), "depression")
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchSubreddit_ClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src, _ := newTestSource(srv.URL, "private")

	_, err := src.FetchSubreddit(context.Background(), "private")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchSubreddit_MalformedFeed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("this is not a feed"))
	}))
	defer srv.Close()

	src, _ := newTestSource(srv.URL, "depression")

	_, err := src.FetchSubreddit(context.Background(), "depression")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "parse errors are not retried")
}

func TestMatchesCrisisKeyword(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"I NEED SUPPORT right now", true},
		{"my therapy session went ok", true},
		{"I can't cope with this", true},
		{"just had a great day at the park", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesCrisisKeyword(tt.text))
		})
	}
}
