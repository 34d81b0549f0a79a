package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
)

// Report bundles every summary view of a set of analyzed posts.
type Report struct {
	Stats        domain.RiskStats       `json:"stats"`
	CrossTab     domain.CrossTab        `json:"crosstab"`
	Percentages  domain.CrossTabPercent `json:"percentages"`
	TopLocations []domain.LocationCount `json:"top_locations"`
	States       []domain.StateRisk     `json:"states"`
}

// BuildReport summarizes posts, keeping the top n locations.
func BuildReport(posts []domain.AnalyzedPost, g *domain.Gazetteer, n int) Report {
	ct := domain.BuildCrossTab(posts)
	return Report{
		Stats:        domain.BuildRiskStats(posts),
		CrossTab:     ct,
		Percentages:  ct.Percentages(),
		TopLocations: domain.TopLocations(posts, n),
		States:       domain.BuildStateBreakdown(posts, g),
	}
}

func newStatsCmd(opts *globalOptions) *cobra.Command {
	var (
		input     string
		storePath string
		top       int
		asJSON    bool
		filters   filterFlags
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize risk and location of analyzed posts",
		Long: `stats reads analyzed posts from a JSON file (--input) or the SQLite store
and prints the tier and sentiment distribution, a sentiment by risk cross tab,
the most frequent locations and a per-state breakdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input != "" && storePath != "" {
				return errors.New("use either --input or --store, not both")
			}
			f, err := filters.filter()
			if err != nil {
				return err
			}
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}

			var posts []domain.AnalyzedPost
			if input != "" {
				posts, err = readAnalyzed(input)
			} else {
				st, openErr := s.openStore(cmd.Context(), storePath)
				if openErr != nil {
					return openErr
				}
				defer st.Close()
				posts, err = st.List(cmd.Context(), f)
			}
			if err != nil {
				return err
			}
			if len(posts) == 0 {
				return domain.ErrNoPosts
			}

			report := BuildReport(posts, domain.NewUSGazetteer(), top)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "analyzed JSON file (default: read the store)")
	cmd.Flags().StringVar(&storePath, "store", "", "SQLite database to read (default SQLITE_PATH)")
	cmd.Flags().IntVar(&top, "top", 10, "number of locations to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	filters.register(cmd)
	return cmd
}

func printReport(out io.Writer, r Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Posts analyzed:\t%d\n", r.Stats.TotalPosts)
	fmt.Fprintf(w, "With location:\t%d\n", r.Stats.WithLocation)
	fmt.Fprintf(w, "Geocoded:\t%d\n", r.Stats.WithGeo)

	fmt.Fprintln(w, "\nRISK\tPOSTS\tHEAT WEIGHT")
	for i := len(domain.RiskTiers) - 1; i >= 0; i-- {
		tier := domain.RiskTiers[i]
		fmt.Fprintf(w, "%s\t%d\t%d\n", tier, r.Stats.ByTier[tier], tier.HeatWeight())
	}

	fmt.Fprint(w, "\nSENTIMENT")
	for _, tier := range domain.RiskTiers {
		fmt.Fprintf(w, "\t%s", tier)
	}
	fmt.Fprintln(w, "\tALL")
	for _, label := range domain.SentimentLabels {
		fmt.Fprint(w, label)
		for _, tier := range domain.RiskTiers {
			fmt.Fprintf(w, "\t%d (%.2f%%)", r.CrossTab.Counts[label][tier], r.Percentages.Cells[label][tier])
		}
		fmt.Fprintf(w, "\t%d (%.2f%%)\n", r.CrossTab.RowTotals[label], r.Percentages.RowTotals[label])
	}
	fmt.Fprint(w, "All")
	for _, tier := range domain.RiskTiers {
		fmt.Fprintf(w, "\t%d (%.2f%%)", r.CrossTab.ColTotals[tier], r.Percentages.ColTotals[tier])
	}
	fmt.Fprintf(w, "\t%d (%.2f%%)\n", r.CrossTab.Total, r.Percentages.Total)

	if len(r.TopLocations) > 0 {
		fmt.Fprintln(w, "\nLOCATION\tPOSTS")
		for _, l := range r.TopLocations {
			fmt.Fprintf(w, "%s\t%d\n", l.Location, l.Count)
		}
	}

	if len(r.States) > 0 {
		fmt.Fprintln(w, "\nSTATE\tNAME\tHIGH\tMODERATE\tLOW\tTOTAL")
		for _, s := range r.States {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n", s.Code, s.Name,
				s.ByTier[domain.RiskHigh], s.ByTier[domain.RiskModerate], s.ByTier[domain.RiskLow], s.Total)
		}
	}

	return w.Flush()
}
