package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pdx-adsb/adsb-analytics/internal/summary"
	"github.com/pdx-adsb/adsb-analytics/pkg/anthropic"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate today's traffic summary",
	Long:  "Builds a log of today's observations, asks the model for a short analyst-style summary, and writes it to the summary file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic API key is required (ADSB_ANTHROPIC_KEY)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client := anthropic.NewClient(cfg.Anthropic.Key)
		s := summary.New(st, client, summary.Options{
			Model:      cfg.Anthropic.Model,
			MaxTokens:  int64(cfg.Anthropic.MaxTokens),
			MaxRows:    cfg.Summary.MaxRows,
			OutputPath: cfg.Summary.Path,
		})

		text, err := s.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		fmt.Fprintf(cmd.OutOrStdout(), "\nSummary written to %s\n", cfg.Summary.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}
