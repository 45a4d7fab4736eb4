package model

import "time"

// RunStatus represents the state of an enrichment run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	// RunStatusStopped marks a run cancelled by the operator mid-batch.
	// Counters cover the candidates processed before the stop.
	RunStatusStopped RunStatus = "stopped"
)

// RunMode identifies the selection policy an enrichment run used.
type RunMode string

const (
	RunModeRoutine  RunMode = "routine"
	RunModeBackfill RunMode = "backfill"
	RunModeDebug    RunMode = "debug"
	RunModeRecent   RunMode = "recent"
	RunModeToday    RunMode = "today"
)

// EnrichmentRun is the history row for one pipeline batch. It exists for
// operator visibility only: resuming after an interrupt never reads it,
// since every aircraft upsert commits independently.
type EnrichmentRun struct {
	ID         string     `json:"id"`
	Mode       RunMode    `json:"mode"`
	Status     RunStatus  `json:"status"`
	Candidates int        `json:"candidates"`
	Success    int        `json:"success"`
	NotFound   int        `json:"not_found"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
