package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statusRuns int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database stats and recent enrichment runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		stats, err := st.Stats(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Aircraft observed: %d\n", stats.TotalAircraft)
		fmt.Fprintf(out, "Aircraft enriched: %d\n", stats.Enriched)
		if stats.TotalAircraft > 0 {
			fmt.Fprintf(out, "Coverage: %.1f%%\n", float64(stats.Enriched)*100/float64(stats.TotalAircraft))
		}

		runs, err := st.ListRuns(ctx, statusRuns)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "\nNo enrichment runs recorded")
			return nil
		}

		fmt.Fprintln(out, "\nRecent runs:")
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tMODE\tSTATUS\tCANDIDATES\tENRICHED\tNOT FOUND")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
				r.StartedAt.Local().Format(time.DateTime),
				r.Mode, r.Status, r.Candidates, r.Success, r.NotFound)
		}
		return w.Flush()
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusRuns, "runs", 10, "number of recent runs to show")
	rootCmd.AddCommand(statusCmd)
}
