package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/pipeline"
	"github.com/couchcryptid/crisis-signal-etl/internal/store/sqlite"
)

func newAnalyzeCmd(opts *globalOptions) *cobra.Command {
	var input, output, storePath string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify and locate posts from a JSON file",
		Example: `  crisisctl analyze --input data/mock/social_posts.json --output analyzed.json
  crisisctl analyze --input posts.json --store crisis.db --geocoder none`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			raw, err := readPosts(input)
			if err != nil {
				return err
			}
			analyzed, err := s.analyze(cmd.Context(), raw)
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
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON file of raw posts")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "destination for analyzed JSON (- for stdout)")
	cmd.Flags().StringVar(&storePath, "store", "", "also upsert results into this SQLite database")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// analyze runs posts through the configured analyzer.
func (s *session) analyze(ctx context.Context, posts []domain.RawPost) ([]domain.AnalyzedPost, error) {
	components, err := s.components()
	if err != nil {
		return nil, err
	}
	analyzer := pipeline.NewBatchAnalyzer(components.Transformer, s.cfg.AnalyzeWorkers, s.logger)
	return analyzer.AnalyzeAll(ctx, posts)
}

// store upserts posts into the SQLite database at path.
func (s *session) store(ctx context.Context, path string, posts []domain.AnalyzedPost) error {
	st, err := sqlite.Open(ctx, path, s.metrics, s.logger)
	if err != nil {
		return err
	}
	return errors.Join(st.LoadBatch(ctx, posts), st.Close())
}

// openStore opens the database named by path, falling back to SQLITE_PATH.
func (s *session) openStore(ctx context.Context, path string) (*sqlite.Store, error) {
	if path == "" {
		path = s.cfg.SQLitePath
	}
	return sqlite.Open(ctx, path, s.metrics, s.logger)
}
