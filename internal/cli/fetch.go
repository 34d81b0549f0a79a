package cli

import (
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/crisis-signal-etl/internal/app"
)

func newFetchCmd(opts *globalOptions) *cobra.Command {
	var (
		subreddits []string
		lookback   time.Duration
		analyze    bool
		output     string
		storePath  string
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Collect recent crisis-related posts from subreddit feeds",
		Long: `fetch reads the newest posts of each subreddit, keeps those inside the
lookback window that mention a crisis keyword, and writes them as JSON.
With --analyze the posts are classified and located first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if storePath != "" && !analyze {
				return errors.New("--store requires --analyze")
			}
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			if len(subreddits) > 0 {
				s.cfg.Subreddits = subreddits
			}
			if lookback > 0 {
				s.cfg.FeedLookback = lookback
			}

			posts, err := app.NewFeedSource(s.cfg, s.metrics, s.logger).Fetch(cmd.Context())
			if err != nil {
				return err
			}
			if !analyze {
				return withOutput(cmd, output, func(w io.Writer) error {
					return writeJSON(w, posts)
				})
			}

			analyzed, err := s.analyze(cmd.Context(), posts)
			if err != nil {
				return err
			}
			if storePath != "" {
				if err := s.store(cmd.Context(), storePath, analyzed); err != nil {
					return err
				}
			}
			return withOutput(cmd, output, func(w io.Writer) error {
				return writeJSON(w, analyzed)
			})
		},
	}
	cmd.Flags().StringSliceVar(&subreddits, "subreddit", nil, "subreddit to read, repeatable (default REDDIT_SUBREDDITS)")
	cmd.Flags().DurationVar(&lookback, "lookback", 0, "only keep posts newer than this (default FEED_LOOKBACK)")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "classify and locate fetched posts")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "destination for JSON (- for stdout)")
	cmd.Flags().StringVar(&storePath, "store", "", "upsert analyzed posts into this SQLite database")
	return cmd
}
