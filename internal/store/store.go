package store

import (
	"context"
	"time"

	"github.com/pdx-adsb/adsb-analytics/internal/model"
)

// EnrichedObservation is an observation joined with whatever enrichment
// exists for its aircraft. Produced for the summarizer, which only ever
// reads.
type EnrichedObservation struct {
	model.Observation
	Registration *string `json:"registration,omitempty"`
	AircraftType *string `json:"aircraft_type,omitempty"`
	Operator     *string `json:"operator,omitempty"`
}

// Store defines the persistence interface for the enrichment pipeline.
// Candidate selection methods are pure reads; a limit of 0 means no limit.
type Store interface {
	// Observations (append-only; written by the ingest collaborator)
	InsertObservations(ctx context.Context, obs []model.Observation) (int, error)
	ObservationsSince(ctx context.Context, since time.Time, max int) ([]EnrichedObservation, error)

	// Enrichment records
	UpsertAircraft(ctx context.Context, a model.Aircraft) error
	GetAircraft(ctx context.Context, hex string) (*model.Aircraft, error)
	SampleEnriched(ctx context.Context, n int) ([]model.Aircraft, error)
	Stats(ctx context.Context) (*model.Stats, error)

	// Candidate selection
	SelectBacklog(ctx context.Context, limit int) ([]string, error)
	SelectRecent(ctx context.Context, since time.Time, limit int) ([]string, error)
	SelectToday(ctx context.Context, dayStart time.Time, limit int) ([]string, error)

	// Run history
	CreateRun(ctx context.Context, mode model.RunMode) (*model.EnrichmentRun, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, candidates, success, notFound int) error
	ListRuns(ctx context.Context, limit int) ([]model.EnrichmentRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
