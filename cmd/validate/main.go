// Command validate performs data integrity checks across the mock data of
// the crisis signal pipeline: the source CSV, the raw post JSON fixture and,
// optionally, an analyzed JSON file produced by genmock or crisisctl. It
// verifies row counts, field presence, classification consistency and
// location record invariants.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv data/mock/social_posts.csv \
//	  -raw-json data/mock/social_posts.json \
//	  -analyzed-json /tmp/social_posts_analyzed.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "source CSV of posts")
	rawJSON := flag.String("raw-json", "", "raw post JSON fixture")
	analyzedJSON := flag.String("analyzed-json", "", "optional analyzed post JSON")
	flag.Parse()

	if *csvPath == "" || *rawJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvPath, *rawJSON, *analyzedJSON); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath, rawJSONPath, analyzedJSONPath string) int {
	fmt.Println("=== Crisis Signal Data Validation ===")
	fmt.Println()

	rows, err := loadCSV(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load CSV: %v\n", err)
		return 1
	}

	raw, err := loadJSON[domain.RawPost](rawJSONPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load raw JSON: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateFixtureParity(rows, raw),
		validateRawIntegrity(raw),
	}

	var analyzed []domain.AnalyzedPost
	if analyzedJSONPath != "" {
		analyzed, err = loadJSON[domain.AnalyzedPost](analyzedJSONPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load analyzed JSON: %v\n", err)
			return 1
		}
		g := domain.NewUSGazetteer()
		phases = append(phases,
			validateCoverage(analyzed, raw),
			validateClassification(analyzed),
			validateLocations(analyzed, g),
		)
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d CSV, %d raw JSON, %d analyzed JSON\n", len(rows), len(raw), len(analyzed))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

func loadCSV(path string) ([]csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) < 2 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	header := all[0]
	rows := make([]csvRow, 0, len(all)-1)
	for i, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[strings.TrimSpace(h)] = strings.TrimSpace(row[j])
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return rows, nil
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: Fixture Parity ──
// The raw JSON fixture must carry every CSV row unchanged and in order.

func validateFixtureParity(rows []csvRow, raw []domain.RawPost) *phase {
	p := &phase{name: "Phase 1: Fixture Parity (CSV -> JSON)"}

	if len(rows) != len(raw) {
		p.errorf("CSV has %d rows, raw JSON has %d posts", len(rows), len(raw))
		return p
	}

	for i, row := range rows {
		post := raw[i]
		f := row.fields
		check := func(field, want, got string) {
			if want != got {
				p.errorf("line %d (%s): %s CSV=%q JSON=%q", row.lineNum, f["post_id"], field, want, got)
			}
		}
		check("post_id", f["post_id"], post.PostID)
		check("community", f["community"], post.Community)
		check("author", f["author"], post.Author)
		check("title", f["title"], post.Title)
		check("body", f["body"], post.Body)

		created, err := time.Parse(time.RFC3339, f["created_at"])
		if err != nil {
			p.errorf("line %d: invalid created_at %q", row.lineNum, f["created_at"])
		} else if !created.Equal(post.CreatedAt) {
			p.errorf("line %d (%s): created_at CSV=%s JSON=%s", row.lineNum, post.PostID,
				created.Format(time.RFC3339), post.CreatedAt.Format(time.RFC3339))
		}

		if s := f["score"]; s != "" {
			if n, err := strconv.Atoi(s); err != nil || n != post.Score {
				p.errorf("line %d (%s): score CSV=%q JSON=%d", row.lineNum, post.PostID, s, post.Score)
			}
		}
	}
	return p
}

// ── Phase 2: Raw Integrity ──

func validateRawIntegrity(raw []domain.RawPost) *phase {
	p := &phase{name: "Phase 2: Raw Post Integrity"}

	seen := make(map[string]bool, len(raw))
	for i := range raw {
		post := &raw[i]
		if post.PostID == "" {
			p.errorf("post %d: empty post_id", i)
			continue
		}
		if seen[post.PostID] {
			p.errorf("%s: duplicate post_id", post.PostID)
		}
		seen[post.PostID] = true

		if post.Platform == "" {
			p.errorf("%s: empty platform", post.PostID)
		}
		if post.CreatedAt.IsZero() {
			p.errorf("%s: zero created_at", post.PostID)
		}
		if post.Permalink != "" && !strings.Contains(post.Permalink, post.PostID) {
			p.errorf("%s: permalink %q does not reference the post", post.PostID, post.Permalink)
		}
		if strings.TrimSpace(post.Title+post.Body) == "" {
			p.errorf("%s: empty title and body", post.PostID)
		}
	}
	return p
}

// ── Phase 3: Coverage ──
// Every raw post is analyzed exactly once and the source fields survive.

func validateCoverage(analyzed []domain.AnalyzedPost, raw []domain.RawPost) *phase {
	p := &phase{name: "Phase 3: Analysis Coverage"}

	byID := make(map[string]domain.RawPost, len(raw))
	for _, r := range raw {
		byID[r.PostID] = r
	}

	seen := make(map[string]bool, len(analyzed))
	for i := range analyzed {
		a := &analyzed[i]
		if seen[a.PostID] {
			p.errorf("%s: analyzed more than once", a.PostID)
		}
		seen[a.PostID] = true

		r, ok := byID[a.PostID]
		if !ok {
			p.errorf("%s: not in raw fixture", a.PostID)
			continue
		}
		if a.Title != r.Title || a.Body != r.Body || a.Community != r.Community {
			p.errorf("%s: source fields changed during analysis", a.PostID)
		}
		if a.Author == "" {
			p.errorf("%s: empty author (want %q for deleted accounts)", a.PostID, domain.DeletedAuthor)
		}
		if a.ProcessedAt.IsZero() {
			p.errorf("%s: zero processed_at", a.PostID)
		}
	}

	for id := range byID {
		if !seen[id] {
			p.errorf("%s: missing from analyzed output", id)
		}
	}
	return p
}

// ── Phase 4: Classification ──
// Tier, label and weight must be reproducible from the stored record.

func validateClassification(analyzed []domain.AnalyzedPost) *phase {
	p := &phase{name: "Phase 4: Risk Classification"}

	for i := range analyzed {
		a := &analyzed[i]
		risk := a.Risk

		if _, ok := domain.ParseRiskTier(string(risk.Tier)); !ok {
			p.errorf("%s: invalid risk tier %q", a.PostID, risk.Tier)
			continue
		}
		if want := domain.NormalizeText(a.FullText()); a.CleanedText != want {
			p.errorf("%s: cleaned_content %q, want %q", a.PostID, a.CleanedText, want)
		}
		if got := domain.ClassifyRisk(a.CleanedText); got != risk.Tier {
			p.errorf("%s: tier %s, reclassified as %s", a.PostID, risk.Tier, got)
		}
		if want := domain.LabelFor(risk.PrimaryPolarity); risk.Label != want {
			p.errorf("%s: label %s for polarity %.4f, want %s", a.PostID, risk.Label, risk.PrimaryPolarity, want)
		}
		if math.Abs(risk.PrimaryPolarity) > 1 || math.Abs(risk.SecondaryPolarity) > 1 {
			p.errorf("%s: polarity out of [-1, 1]: %.4f / %.4f", a.PostID, risk.PrimaryPolarity, risk.SecondaryPolarity)
		}
		if a.HeatWeight != risk.Tier.HeatWeight() {
			p.errorf("%s: heat_weight %d for tier %s, want %d", a.PostID, a.HeatWeight, risk.Tier, risk.Tier.HeatWeight())
		}
	}
	return p
}

// ── Phase 5: Locations ──

var validSources = map[domain.LocationSource]bool{
	domain.SourcePattern:   true,
	domain.SourceEntity:    true,
	domain.SourceGazetteer: true,
	domain.SourceStateCode: true,
}

func validateLocations(analyzed []domain.AnalyzedPost, g *domain.Gazetteer) *phase {
	p := &phase{name: "Phase 5: Location Resolution"}

	for i := range analyzed {
		a := &analyzed[i]

		if a.Location == nil {
			if a.Geo != nil {
				p.errorf("%s: geo point without a location candidate", a.PostID)
			}
			if a.State != nil {
				p.errorf("%s: state %q without a location candidate", a.PostID, *a.State)
			}
			continue
		}

		if strings.TrimSpace(a.Location.Text) == "" {
			p.errorf("%s: empty location text", a.PostID)
		}
		if !validSources[a.Location.Source] {
			p.errorf("%s: unknown location source %q", a.PostID, a.Location.Source)
		}

		want := g.ExtractState(a.Location.Text)
		switch {
		case a.State == nil && want != nil:
			p.errorf("%s: state missing for %q, want %s", a.PostID, a.Location.Text, *want)
		case a.State != nil && want == nil:
			p.errorf("%s: state %s not derivable from %q", a.PostID, *a.State, a.Location.Text)
		case a.State != nil && *a.State != *want:
			p.errorf("%s: state %s, want %s", a.PostID, *a.State, *want)
		}
		if a.State != nil && !g.IsStateCode(*a.State) {
			p.errorf("%s: invalid state code %q", a.PostID, *a.State)
		}

		if a.Geo != nil {
			if a.Geo.Lat < -90 || a.Geo.Lat > 90 || a.Geo.Lon < -180 || a.Geo.Lon > 180 {
				p.errorf("%s: coordinates out of range (%g, %g)", a.PostID, a.Geo.Lat, a.Geo.Lon)
			}
		}
	}
	return p
}
