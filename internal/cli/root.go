// Package cli implements the crisisctl command tree.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/crisis-signal-etl/internal/app"
	"github.com/couchcryptid/crisis-signal-etl/internal/config"
	"github.com/couchcryptid/crisis-signal-etl/internal/observability"
)

type globalOptions struct {
	logLevel string
	geocoder string
	workers  int
}

// NewRootCmd returns the root command for crisisctl.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "crisisctl",
		Short:         "Classify crisis signals in social posts and report on them",
		Long:          "crisisctl runs the risk classifier and location resolver over post files or subreddit feeds, and reports on stored results.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&opts.geocoder, "geocoder", "", "geocoder provider override: nominatim|mapbox|none")
	rootCmd.PersistentFlags().IntVar(&opts.workers, "workers", 0, "analysis workers (default ANALYZE_WORKERS)")

	rootCmd.AddCommand(newAnalyzeCmd(opts))
	rootCmd.AddCommand(newFetchCmd(opts))
	rootCmd.AddCommand(newExportCmd(opts))
	rootCmd.AddCommand(newStatsCmd(opts))

	return rootCmd
}

// session holds the loaded config and shared services of one command run.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

func newSession(cmd *cobra.Command, opts *globalOptions) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.geocoder != "" {
		cfg.GeocoderProvider = opts.geocoder
	}
	if opts.workers > 0 {
		cfg.AnalyzeWorkers = opts.workers
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		level = slog.LevelInfo
	}
	// Logs go to stderr so stdout stays clean for JSON and CSV output.
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return &session{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewUnregisteredMetrics(),
	}, nil
}

func (s *session) components() (*app.Components, error) {
	return app.Build(s.cfg, s.metrics, s.logger)
}
