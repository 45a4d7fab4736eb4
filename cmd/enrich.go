package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdx-adsb/adsb-analytics/internal/enrich"
	"github.com/pdx-adsb/adsb-analytics/pkg/adsbdb"
)

var (
	enrichDebug    bool
	enrichBackfill bool
	enrichDays     int
	enrichToday    bool
	enrichLimit    int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Look up registry metadata for observed aircraft",
	Long:  "Selects observed aircraft that have no enrichment record yet, looks each one up against adsbdb, and stores the result. Safe to interrupt: every record commits individually and a re-run picks up where the last one stopped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		lookup := adsbdb.NewClient(adsbdb.Options{
			BaseURL:   cfg.ADSBDB.BaseURL,
			UserAgent: cfg.ADSBDB.UserAgent,
			Timeout:   time.Duration(cfg.ADSBDB.TimeoutSecs) * time.Second,
		})

		runner := enrich.NewRunner(st, lookup,
			enrich.Options{
				Debug:      enrichDebug,
				Backfill:   enrichBackfill,
				WindowDays: enrichDays,
				Today:      enrichToday,
				Limit:      enrichLimit,
			},
			enrich.Tuning{
				BatchSize:      cfg.Enrich.BatchSize,
				DebugBatchSize: cfg.Enrich.DebugBatchSize,
				RoutinePacing:  time.Duration(cfg.Enrich.PacingMillis) * time.Millisecond,
				BackfillPacing: time.Duration(cfg.Enrich.BackfillPacingMillis) * time.Millisecond,
			},
			cmd.OutOrStdout(),
		)

		_, err = runner.Run(ctx)
		return err
	},
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichDebug, "debug", false, "verbose output, tiny batch")
	enrichCmd.Flags().BoolVar(&enrichBackfill, "backfill", false, "process the entire backlog with slower pacing")
	enrichCmd.Flags().IntVar(&enrichDays, "days", 0, "only aircraft seen in the last N days")
	enrichCmd.Flags().BoolVar(&enrichToday, "today", false, "only aircraft seen since UTC midnight")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "override the batch size")
	enrichCmd.MarkFlagsMutuallyExclusive("backfill", "days", "today")
	rootCmd.AddCommand(enrichCmd)
}
