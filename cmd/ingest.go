package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdx-adsb/adsb-analytics/internal/ingest"
	"github.com/pdx-adsb/adsb-analytics/pkg/dump1090"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Record one snapshot from the local receiver",
	Long:  "Fetches the current aircraft list from the dump1090 receiver and appends it to the observation log. Intended to run from cron.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		feed := dump1090.NewClient(cfg.Receiver.URL, time.Duration(cfg.Receiver.TimeoutSecs)*time.Second)

		n, err := ingest.New(st, feed).Once(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d aircraft\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
