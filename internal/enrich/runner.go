package enrich

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pdx-adsb/adsb-analytics/internal/model"
	"github.com/pdx-adsb/adsb-analytics/internal/store"
	"github.com/pdx-adsb/adsb-analytics/pkg/adsbdb"
)

// Lookup is the metadata lookup dependency. adsbdb.Client satisfies it.
type Lookup interface {
	Lookup(ctx context.Context, hex string) adsbdb.Result
}

// Options selects the run's candidate policy and batch size.
type Options struct {
	Debug      bool // verbose per-candidate output, tiny sample
	Backfill   bool // exhaustive backlog, slower pacing
	WindowDays int  // >0: only aircraft seen in the last N days
	Today      bool // only aircraft seen since UTC midnight
	Limit      int  // >0: overrides the policy's batch size
}

// Tuning holds pacing and batch-size knobs, normally taken from config.
type Tuning struct {
	BatchSize      int
	DebugBatchSize int
	RoutinePacing  time.Duration
	BackfillPacing time.Duration
}

func (t Tuning) withDefaults() Tuning {
	if t.BatchSize <= 0 {
		t.BatchSize = 50
	}
	if t.DebugBatchSize <= 0 {
		t.DebugBatchSize = 5
	}
	if t.RoutinePacing <= 0 {
		t.RoutinePacing = 300 * time.Millisecond
	}
	if t.BackfillPacing <= 0 {
		t.BackfillPacing = 500 * time.Millisecond
	}
	return t
}

// Result summarizes one run.
type Result struct {
	Candidates int
	Success    int
	NotFound   int
	Elapsed    time.Duration
	Stopped    bool
}

// Runner drives one enrichment batch: select candidates, look each one up
// under pacing, persist every outcome. Strictly sequential: one candidate
// completes (lookup, delay, write) before the next begins, since pacing is
// the mechanism protecting the external service.
type Runner struct {
	store  store.Store
	lookup Lookup
	opts   Options
	tune   Tuning
	out    io.Writer
}

// NewRunner creates a Runner. out receives operator-facing progress lines;
// nil means stdout.
func NewRunner(st store.Store, lookup Lookup, opts Options, tune Tuning, out io.Writer) *Runner {
	if out == nil {
		out = os.Stdout
	}
	return &Runner{store: st, lookup: lookup, opts: opts, tune: tune.withDefaults(), out: out}
}

// Run executes one batch. Cancellation via ctx is cooperative and takes
// effect at candidate boundaries only: an in-flight lookup completes (or
// times out) first. Individual lookup failures degrade to not-found;
// only storage errors abort the run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("component", "enrich"))

	if err := r.store.Migrate(ctx); err != nil {
		return nil, eris.Wrap(err, "enrich: ensure schema")
	}

	stats, err := r.store.Stats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: stats")
	}
	fmt.Fprintf(r.out, "Database stats: %d/%d aircraft enriched\n", stats.Enriched, stats.TotalAircraft)

	mode, candidates, err := r.selectCandidates(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		fmt.Fprintln(r.out, "All aircraft are already enriched")
		return &Result{}, nil
	}
	fmt.Fprintf(r.out, "Found %d aircraft to enrich\n", len(candidates))
	log.Info("starting enrichment run",
		zap.String("mode", string(mode)),
		zap.Int("candidates", len(candidates)),
	)

	if r.opts.Backfill && len(candidates) > 100 {
		perCandidate := r.pacingInterval() + 200*time.Millisecond
		est := time.Duration(len(candidates)) * perCandidate
		fmt.Fprintf(r.out, "Estimated time: ~%d minutes (stop anytime, progress is saved)\n",
			int(est.Minutes()))
	}

	run, err := r.store.CreateRun(ctx, mode)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: create run")
	}

	pacer := NewPacer(r.pacingInterval())
	start := time.Now()
	res := &Result{Candidates: len(candidates)}

	// A lookup that completed is always persisted, even if cancellation
	// arrived while it was in flight.
	writeCtx := context.WithoutCancel(ctx)

	for i, hex := range candidates {
		// Cancellation is checked only here, between candidates.
		if ctx.Err() != nil {
			res.Stopped = true
			break
		}
		if err := pacer.Wait(ctx); err != nil {
			res.Stopped = true
			break
		}

		outcome := r.lookup.Lookup(ctx, hex)
		if outcome.Status == adsbdb.StatusTransientError {
			if ctx.Err() != nil {
				// The in-flight lookup was torn down by cancellation, not
				// by the provider; don't record a placeholder for it.
				res.Stopped = true
				break
			}
			log.Warn("lookup failed, recording as not found",
				zap.String("hex", hex),
				zap.String("classification", outcome.Status.String()),
				zap.Error(outcome.Err),
			)
		}

		record, enriched := r.buildRecord(hex, outcome)
		if err := r.store.UpsertAircraft(writeCtx, record); err != nil {
			// Storage loss is fatal: nothing further can be durably recorded.
			r.finishRun(ctx, run.ID, model.RunStatusStopped, res)
			return res, eris.Wrapf(err, "enrich: persist %s", hex)
		}
		if enriched {
			res.Success++
		} else {
			res.NotFound++
		}

		r.reportProgress(i, len(candidates), record, enriched, start)
	}

	res.Elapsed = time.Since(start)

	status := model.RunStatusDone
	if res.Stopped {
		status = model.RunStatusStopped
		fmt.Fprintf(r.out, "\nStopped. Progress saved: %d enriched, %d not found\n", res.Success, res.NotFound)
	}
	r.finishRun(ctx, run.ID, status, res)

	r.report(ctx, res)
	return res, nil
}

func (r *Runner) pacingInterval() time.Duration {
	if r.opts.Backfill {
		return r.tune.BackfillPacing
	}
	return r.tune.RoutinePacing
}

func (r *Runner) batchLimit() int {
	if r.opts.Limit > 0 {
		return r.opts.Limit
	}
	if r.opts.Backfill {
		return 0 // exhaustive
	}
	if r.opts.Debug {
		return r.tune.DebugBatchSize
	}
	return r.tune.BatchSize
}

func (r *Runner) selectCandidates(ctx context.Context) (model.RunMode, []string, error) {
	limit := r.batchLimit()
	now := time.Now().UTC()

	switch {
	case r.opts.WindowDays > 0:
		since := now.AddDate(0, 0, -r.opts.WindowDays)
		hexes, err := r.store.SelectRecent(ctx, since, limit)
		return model.RunModeRecent, hexes, eris.Wrap(err, "enrich: select recent")
	case r.opts.Today:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		hexes, err := r.store.SelectToday(ctx, dayStart, limit)
		return model.RunModeToday, hexes, eris.Wrap(err, "enrich: select today")
	case r.opts.Backfill:
		hexes, err := r.store.SelectBacklog(ctx, limit)
		return model.RunModeBackfill, hexes, eris.Wrap(err, "enrich: select backlog")
	case r.opts.Debug:
		hexes, err := r.store.SelectBacklog(ctx, limit)
		return model.RunModeDebug, hexes, eris.Wrap(err, "enrich: select backlog")
	default:
		hexes, err := r.store.SelectBacklog(ctx, limit)
		return model.RunModeRoutine, hexes, eris.Wrap(err, "enrich: select backlog")
	}
}

// buildRecord turns a lookup outcome into the row to persist. Anything
// without a usable registration becomes a not_found placeholder, matching
// the selection predicate that re-includes such rows on later runs.
func (r *Runner) buildRecord(hex string, outcome adsbdb.Result) (model.Aircraft, bool) {
	if outcome.Status == adsbdb.StatusFound && outcome.Metadata.Registration != nil {
		m := outcome.Metadata
		return model.Aircraft{
			Hex:           model.NormalizeHex(hex),
			Registration:  m.Registration,
			Type:          m.Type,
			Manufacturer:  m.Manufacturer,
			Operator:      m.Operator,
			OriginCountry: m.OriginCountry,
			Source:        adsbdb.Source,
		}, true
	}
	return model.NotFoundAircraft(hex, time.Now()), false
}

func (r *Runner) showProgress(i, total int) bool {
	switch {
	case r.opts.Debug:
		return true
	case r.opts.Backfill:
		return i%50 == 0 || i == total-1
	default:
		return i%10 == 0 || i == total-1
	}
}

func (r *Runner) reportProgress(i, total int, record model.Aircraft, enriched bool, start time.Time) {
	if !r.showProgress(i, total) {
		return
	}

	if r.opts.Backfill && i > 0 {
		elapsed := time.Since(start)
		remaining := time.Duration(float64(elapsed) / float64(i) * float64(total-i))
		fmt.Fprintf(r.out, "[%d/%d] %d%% - ~%d minutes remaining\n",
			i+1, total, (i+1)*100/total, int(remaining.Minutes()))
		return
	}

	if enriched {
		fmt.Fprintf(r.out, "[%d/%d] %s ✓ %s (%s) - %s\n",
			i+1, total, record.Hex,
			orUnknown(record.Registration), orUnknown(record.Type), orUnknown(record.Operator))
	} else {
		fmt.Fprintf(r.out, "[%d/%d] %s ✗ not found\n", i+1, total, record.Hex)
	}
}

// finishRun records the run outcome. It must succeed even when ctx was
// cancelled, so it runs on a detached context.
func (r *Runner) finishRun(ctx context.Context, runID string, status model.RunStatus, res *Result) {
	finCtx := context.WithoutCancel(ctx)
	if err := r.store.FinishRun(finCtx, runID, status, res.Candidates, res.Success, res.NotFound); err != nil {
		zap.L().Warn("failed to record run outcome", zap.String("run_id", runID), zap.Error(err))
	}
}

func (r *Runner) report(ctx context.Context, res *Result) {
	finCtx := context.WithoutCancel(ctx)

	fmt.Fprintf(r.out, "\nEnriched %d/%d aircraft (%d not found) in %s\n",
		res.Success, res.Candidates, res.NotFound, res.Elapsed.Round(time.Second))

	if stats, err := r.store.Stats(finCtx); err == nil {
		fmt.Fprintf(r.out, "New stats: %d/%d aircraft enriched\n", stats.Enriched, stats.TotalAircraft)
	}

	if res.Success > 0 && !r.opts.Debug {
		sample, err := r.store.SampleEnriched(finCtx, 5)
		if err != nil {
			return
		}
		fmt.Fprintln(r.out, "\nSample enriched aircraft:")
		for _, a := range sample {
			fmt.Fprintf(r.out, "  %s: %s (%s) - %s\n",
				a.Hex, orUnknown(a.Registration), orUnknown(a.Type), orUnknown(a.Operator))
		}
	}
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return "unknown"
	}
	return *s
}
