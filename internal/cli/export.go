package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/store/sqlite"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
)

// filterFlags are the store filters shared by export and stats.
type filterFlags struct {
	risk  string
	state string
	since string
	limit int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.risk, "risk", "", "only posts of this tier: Low|Moderate|High")
	cmd.Flags().StringVar(&f.state, "state", "", "only posts in this state (two-letter code)")
	cmd.Flags().StringVar(&f.since, "since", "", "only posts created at or after this RFC3339 time")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of posts (0 for all)")
}

func (f *filterFlags) filter() (sqlite.Filter, error) {
	out := sqlite.Filter{State: f.state, Limit: f.limit}
	if f.risk != "" {
		tier, ok := domain.ParseRiskTier(f.risk)
		if !ok {
			return out, fmt.Errorf("invalid --risk %q", f.risk)
		}
		out.Tier = tier
	}
	if f.since != "" {
		t, err := time.Parse(time.RFC3339, f.since)
		if err != nil {
			return out, fmt.Errorf("invalid --since: %w", err)
		}
		out.Since = t
	}
	if f.limit < 0 {
		return out, errors.New("--limit must not be negative")
	}
	return out, nil
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		storePath string
		format    string
		output    string
		filters   filterFlags
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored analyzed posts as JSON or CSV",
		Example: `  crisisctl export --format csv --risk High --output high_risk.csv
  crisisctl export --state TX --since 2024-05-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatJSON && format != formatCSV {
				return fmt.Errorf("invalid --format %q: want json or csv", format)
			}
			f, err := filters.filter()
			if err != nil {
				return err
			}
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			st, err := s.openStore(cmd.Context(), storePath)
			if err != nil {
				return err
			}
			defer st.Close()

			posts, err := st.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if posts == nil {
				posts = []domain.AnalyzedPost{}
			}
			s.logger.Info("exporting posts", "count", len(posts), "format", format)

			return withOutput(cmd, output, func(w io.Writer) error {
				if format == formatCSV {
					return writeCSV(w, posts)
				}
				return writeJSON(w, posts)
			})
		},
	}
	cmd.Flags().StringVar(&storePath, "store", "", "SQLite database to read (default SQLITE_PATH)")
	cmd.Flags().StringVar(&format, "format", formatJSON, "output format: json|csv")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "destination file (- for stdout)")
	filters.register(cmd)
	return cmd
}

var csvHeader = []string{
	"post_id", "platform", "community", "created_at", "author", "title",
	"risk_level", "sentiment", "vader_sentiment", "lexicon_sentiment",
	"location", "location_source", "lat", "lon", "state", "heat_weight", "permalink",
}

// writeCSV writes one row per post. Absent location fields are empty cells.
func writeCSV(w io.Writer, posts []domain.AnalyzedPost) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range posts {
		if err := cw.Write(csvRow(&posts[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(p *domain.AnalyzedPost) []string {
	var source, lat, lon string
	if p.Location != nil {
		source = string(p.Location.Source)
	}
	if p.Geo != nil {
		lat = strconv.FormatFloat(p.Geo.Lat, 'f', -1, 64)
		lon = strconv.FormatFloat(p.Geo.Lon, 'f', -1, 64)
	}
	return []string{
		p.PostID,
		p.Platform,
		p.Community,
		p.CreatedAt.UTC().Format(time.RFC3339),
		p.Author,
		p.Title,
		string(p.Risk.Tier),
		string(p.Risk.Label),
		strconv.FormatFloat(p.Risk.PrimaryPolarity, 'f', 4, 64),
		strconv.FormatFloat(p.Risk.SecondaryPolarity, 'f', 4, 64),
		p.LocationText(),
		source,
		lat,
		lon,
		p.StateCode(),
		strconv.Itoa(p.HeatWeight),
		p.Permalink,
	}
}
