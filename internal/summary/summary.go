// Package summary turns a day of observations into a short narrative
// written by a language model.
package summary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pdx-adsb/adsb-analytics/internal/store"
	"github.com/pdx-adsb/adsb-analytics/pkg/anthropic"
)

const defaultMaxRows = 200

// Options configures a Summarizer.
type Options struct {
	Model     string
	MaxTokens int64
	// MaxRows caps how many observation lines go into the prompt, keeping
	// token usage bounded on busy days.
	MaxRows int
	// OutputPath is where the summary text is written.
	OutputPath string
}

// Summarizer builds the daily traffic log, asks the model for a readable
// summary, and writes it to the artifact file other tooling displays.
type Summarizer struct {
	store  store.Store
	client anthropic.Client
	opts   Options
	now    func() time.Time
}

func New(st store.Store, client anthropic.Client, opts Options) *Summarizer {
	if opts.MaxRows <= 0 {
		opts.MaxRows = defaultMaxRows
	}
	return &Summarizer{store: st, client: client, opts: opts, now: time.Now}
}

// Run produces today's summary and returns its text.
func (s *Summarizer) Run(ctx context.Context) (string, error) {
	if err := s.store.Migrate(ctx); err != nil {
		return "", eris.Wrap(err, "summary: ensure schema")
	}

	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	obs, err := s.store.ObservationsSince(ctx, dayStart, s.opts.MaxRows)
	if err != nil {
		return "", eris.Wrap(err, "summary: load observations")
	}

	prompt := BuildPrompt(obs)
	temp := 0.5
	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       s.opts.Model,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: &temp,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrap(err, "summary: generate")
	}
	resp.Usage.LogCost(s.opts.Model, "daily_summary")

	text := resp.Text()
	if err := s.write(text); err != nil {
		return "", err
	}
	zap.L().Info("wrote daily summary",
		zap.String("path", s.opts.OutputPath),
		zap.Int("observations", len(obs)),
	)
	return text, nil
}

// BuildPrompt renders the observation log into the analyst prompt. An empty
// day still produces a prompt so the artifact file gets refreshed.
func BuildPrompt(obs []store.EnrichedObservation) string {
	if len(obs) == 0 {
		return "No aircraft data was recorded today."
	}

	var lines []string
	for _, o := range obs {
		lines = append(lines, formatLine(o))
	}

	return fmt.Sprintf(`You're an aviation analyst. Here's a log of today's detected aircraft over a Raspberry Pi ADS-B receiver near PDX airport.

Summarize notable traffic patterns, airlines, altitudes, police or military aviation activity, and anything interesting.

Please keep responses brief.

Log:
%s`, strings.Join(lines, "\n"))
}

func formatLine(o store.EnrichedObservation) string {
	line := fmt.Sprintf("%s (%s) at %s ft, %s kt, %s, %s",
		orNA(o.Flight), o.Hex,
		orQuestion(o.AltBaro), orQuestion(o.GroundSpeed),
		orFloat(o.Lat), orFloat(o.Lon))
	if o.Registration != nil && *o.Registration != "" {
		detail := *o.Registration
		if o.AircraftType != nil && *o.AircraftType != "" {
			detail += " " + *o.AircraftType
		}
		if o.Operator != nil && *o.Operator != "" {
			detail += ", " + *o.Operator
		}
		line += fmt.Sprintf(" [%s]", detail)
	}
	return line
}

func (s *Summarizer) write(text string) error {
	if err := os.MkdirAll(filepath.Dir(s.opts.OutputPath), 0o755); err != nil {
		return eris.Wrap(err, "summary: create output dir")
	}
	if err := os.WriteFile(s.opts.OutputPath, []byte(text+"\n"), 0o644); err != nil {
		return eris.Wrap(err, "summary: write output")
	}
	return nil
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

func orQuestion(n *int) string {
	if n == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *n)
}

func orFloat(f *float64) string {
	if f == nil {
		return "?"
	}
	return fmt.Sprintf("%.4f", *f)
}
