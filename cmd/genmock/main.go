// Command genmock converts a CSV of social posts into the raw JSON fixture
// used by the pipeline and integration test suites. With -analyzed-out it
// also runs the domain analyzer over every post, so the analyzed fixture
// matches real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv data/mock/social_posts.csv \
//	  -raw-out data/mock/social_posts.json \
//	  -analyzed-out /tmp/social_posts_analyzed.json
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crisis-signal-etl/internal/adapter/nlp"
	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
)

const platform = "reddit"

var requiredColumns = []string{"post_id", "community", "created_at", "author", "title", "body"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "CSV file of posts")
	rawOut := flag.String("raw-out", "", "output path for the raw post JSON fixture")
	analyzedOut := flag.String("analyzed-out", "", "optional output path for analyzed posts")
	flag.Parse()

	if *csvPath == "" || *rawOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -raw-out")
	}

	posts, err := readCSV(*csvPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *csvPath, err)
	}
	log.Printf("read %d posts", len(posts))

	if err := writeJSON(*rawOut, posts); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s", *rawOut)

	if *analyzedOut == "" {
		return nil
	}

	// Fixed clock for reproducible processed_at timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	analyzed, err := analyze(posts)
	if err != nil {
		return err
	}
	if err := writeJSON(*analyzedOut, analyzed); err != nil {
		return fmt.Errorf("writing analyzed fixture: %w", err)
	}
	log.Printf("wrote analyzed fixture: %s", *analyzedOut)

	printStats(analyzed)
	return nil
}

func readCSV(path string) ([]domain.RawPost, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[strings.TrimSpace(h)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	posts := make([]domain.RawPost, 0, len(rows)-1)
	for n, row := range rows[1:] {
		post, err := toPost(row, colIdx)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func toPost(row []string, colIdx map[string]int) (domain.RawPost, error) {
	created, err := time.Parse(time.RFC3339, get(row, colIdx, "created_at"))
	if err != nil {
		return domain.RawPost{}, fmt.Errorf("created_at: %w", err)
	}
	id := get(row, colIdx, "post_id")
	community := get(row, colIdx, "community")
	return domain.RawPost{
		Platform:    platform,
		PostID:      id,
		Community:   community,
		Title:       get(row, colIdx, "title"),
		Body:        get(row, colIdx, "body"),
		CreatedAt:   created.UTC(),
		Author:      get(row, colIdx, "author"),
		Score:       atoi(get(row, colIdx, "score")),
		NumComments: atoi(get(row, colIdx, "num_comments")),
		Permalink:   fmt.Sprintf("https://www.reddit.com/r/%s/comments/%s/", community, id),
	}, nil
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// analyze normalizes each post and runs the offline chain used by the test
// suites: no entity recognizer and no geocoder.
func analyze(posts []domain.RawPost) ([]domain.AnalyzedPost, error) {
	g := domain.NewUSGazetteer()
	analyzer := domain.NewAnalyzer(
		domain.NewRiskClassifier(nlp.NewVader(), nlp.NewLexicon()),
		domain.NewLocationExtractor(g, nil),
		g, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	out := make([]domain.AnalyzedPost, 0, len(posts))
	for _, p := range posts {
		post, err := domain.NormalizeRawPost(p, "", time.Time{})
		if err != nil {
			return nil, fmt.Errorf("post %q: %w", p.PostID, err)
		}
		out = append(out, analyzer.Analyze(context.Background(), post))
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(posts []domain.AnalyzedPost) {
	stats := domain.BuildRiskStats(posts)
	sources := map[string]int{}
	for i := range posts {
		source := "none"
		if posts[i].Location != nil {
			source = string(posts[i].Location.Source)
		}
		sources[source]++
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", stats.TotalPosts)
	fmt.Printf("By tier: High=%d, Moderate=%d, Low=%d\n",
		stats.ByTier[domain.RiskHigh], stats.ByTier[domain.RiskModerate], stats.ByTier[domain.RiskLow])
	fmt.Printf("By sentiment: Negative=%d, Neutral=%d, Positive=%d\n",
		stats.ByLabel[domain.SentimentNegative], stats.ByLabel[domain.SentimentNeutral], stats.ByLabel[domain.SentimentPositive])
	fmt.Printf("With location: %d\n", stats.WithLocation)
	fmt.Printf("By source: pattern=%d, gazetteer=%d, state_code=%d, none=%d\n",
		sources[string(domain.SourcePattern)], sources[string(domain.SourceGazetteer)],
		sources[string(domain.SourceStateCode)], sources["none"])

	fmt.Println("\nPer post:")
	for i := range posts {
		p := &posts[i]
		fmt.Printf("  %s  %-8s %-8s %q state=%s\n", p.PostID, p.Risk.Tier, p.Risk.Label, p.LocationText(), p.StateCode())
	}

	fmt.Println("\nTop locations:")
	for _, l := range domain.TopLocations(posts, 5) {
		fmt.Printf("  %s=%d\n", l.Location, l.Count)
	}
}
