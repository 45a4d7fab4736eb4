package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pdx-adsb/adsb-analytics/internal/db"
	"github.com/pdx-adsb/adsb-analytics/internal/model"
)

// PostgresStore implements Store using pgxpool, for installs where the
// receiver feeds a shared server instead of a local file.
type PostgresStore struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS aircraft (
	id        BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL,
	hex       TEXT,
	flight    TEXT,
	lat       DOUBLE PRECISION,
	lon       DOUBLE PRECISION,
	alt_baro  INTEGER,
	track     DOUBLE PRECISION,
	speed     INTEGER,
	squawk    TEXT,
	category  TEXT,
	rssi      DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS aircraft_enriched (
	hex            TEXT PRIMARY KEY,
	registration   TEXT,
	type           TEXT,
	manufacturer   TEXT,
	operator       TEXT,
	origin_country TEXT,
	last_updated   TIMESTAMPTZ,
	source         TEXT
);

CREATE TABLE IF NOT EXISTS enrichment_runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	candidates  INTEGER NOT NULL DEFAULT 0,
	success     INTEGER NOT NULL DEFAULT 0,
	not_found   INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_aircraft_hex ON aircraft(hex);
CREATE INDEX IF NOT EXISTS idx_aircraft_timestamp ON aircraft(timestamp);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON enrichment_runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var observationColumns = []string{
	"timestamp", "hex", "flight", "lat", "lon", "alt_baro",
	"track", "speed", "squawk", "category", "rssi",
}

func (s *PostgresStore) InsertObservations(ctx context.Context, obs []model.Observation) (int, error) {
	rows := make([][]any, 0, len(obs))
	for _, o := range obs {
		hex := model.NormalizeHex(o.Hex)
		if hex == "" {
			continue
		}
		rows = append(rows, []any{
			o.Timestamp.UTC(), hex, o.Flight, o.Lat, o.Lon, o.AltBaro,
			o.Track, o.GroundSpeed, o.Squawk, o.Category, o.RSSI,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "aircraft", observationColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert observations")
	}
	return int(n), nil
}

func (s *PostgresStore) ObservationsSince(ctx context.Context, since time.Time, max int) ([]EnrichedObservation, error) {
	query := `
		SELECT a.timestamp, a.hex, a.flight, a.lat, a.lon, a.alt_baro, a.track, a.speed,
		       e.registration, e.type, e.operator
		FROM aircraft a
		LEFT JOIN aircraft_enriched e ON a.hex = e.hex
		WHERE a.timestamp >= $1 AND a.hex IS NOT NULL AND a.hex != ''
		ORDER BY a.timestamp`
	args := []any{since.UTC()}
	if max > 0 {
		query += ` LIMIT $2`
		args = append(args, max)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: observations since")
	}
	defer rows.Close()

	var out []EnrichedObservation
	for rows.Next() {
		var eo EnrichedObservation
		if err := rows.Scan(&eo.Timestamp, &eo.Hex, &eo.Flight, &eo.Lat, &eo.Lon, &eo.AltBaro, &eo.Track, &eo.GroundSpeed,
			&eo.Registration, &eo.AircraftType, &eo.Operator); err != nil {
			return nil, eris.Wrap(err, "postgres: scan observation")
		}
		out = append(out, eo)
	}
	return out, eris.Wrap(rows.Err(), "postgres: observations iterate")
}

func (s *PostgresStore) UpsertAircraft(ctx context.Context, a model.Aircraft) error {
	hex := model.NormalizeHex(a.Hex)
	if hex == "" {
		return eris.New("postgres: upsert aircraft: empty hex")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO aircraft_enriched (hex, registration, type, manufacturer, operator, origin_country, last_updated, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (hex) DO UPDATE SET
			registration   = EXCLUDED.registration,
			type           = EXCLUDED.type,
			manufacturer   = EXCLUDED.manufacturer,
			operator       = EXCLUDED.operator,
			origin_country = EXCLUDED.origin_country,
			last_updated   = EXCLUDED.last_updated,
			source         = EXCLUDED.source`,
		hex, a.Registration, a.Type, a.Manufacturer, a.Operator, a.OriginCountry,
		s.now().UTC(), a.Source,
	)
	return eris.Wrapf(err, "postgres: upsert aircraft %s", hex)
}

func (s *PostgresStore) GetAircraft(ctx context.Context, hex string) (*model.Aircraft, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT hex, registration, type, manufacturer, operator, origin_country, last_updated, source
		FROM aircraft_enriched WHERE hex = $1`,
		model.NormalizeHex(hex),
	)

	var a model.Aircraft
	err := row.Scan(&a.Hex, &a.Registration, &a.Type, &a.Manufacturer, &a.Operator,
		&a.OriginCountry, &a.LastUpdated, &a.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get aircraft %s", hex)
	}
	return &a, nil
}

func (s *PostgresStore) SampleEnriched(ctx context.Context, n int) ([]model.Aircraft, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT hex, registration, type, manufacturer, operator, origin_country, last_updated, source
		FROM aircraft_enriched
		WHERE registration IS NOT NULL
		ORDER BY last_updated DESC
		LIMIT $1`, n)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: sample enriched")
	}
	defer rows.Close()

	var out []model.Aircraft
	for rows.Next() {
		var a model.Aircraft
		if err := rows.Scan(&a.Hex, &a.Registration, &a.Type, &a.Manufacturer, &a.Operator,
			&a.OriginCountry, &a.LastUpdated, &a.Source); err != nil {
			return nil, eris.Wrap(err, "postgres: scan enriched sample")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: sample iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.Stats, error) {
	var st model.Stats
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT hex) FROM aircraft WHERE hex IS NOT NULL AND hex != ''`,
	).Scan(&st.TotalAircraft); err != nil {
		return nil, eris.Wrap(err, "postgres: count aircraft")
	}
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM aircraft_enriched WHERE registration IS NOT NULL`,
	).Scan(&st.Enriched); err != nil {
		return nil, eris.Wrap(err, "postgres: count enriched")
	}
	return &st, nil
}

func (s *PostgresStore) SelectBacklog(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT DISTINCT a.hex
		FROM aircraft a
		LEFT JOIN aircraft_enriched e ON a.hex = e.hex
		WHERE (e.hex IS NULL OR e.registration IS NULL)
		  AND a.hex IS NOT NULL AND a.hex != ''
		ORDER BY a.hex`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	return s.selectHexes(ctx, "backlog", query, args...)
}

func (s *PostgresStore) SelectRecent(ctx context.Context, since time.Time, limit int) ([]string, error) {
	query := `
		SELECT a.hex
		FROM aircraft a
		LEFT JOIN aircraft_enriched e ON a.hex = e.hex
		WHERE (e.hex IS NULL OR e.registration IS NULL)
		  AND a.hex IS NOT NULL AND a.hex != ''
		  AND a.timestamp >= $1
		GROUP BY a.hex
		ORDER BY MAX(a.timestamp) DESC, COUNT(*) DESC, a.hex`
	args := []any{since.UTC()}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.selectHexes(ctx, "recent", query, args...)
}

func (s *PostgresStore) SelectToday(ctx context.Context, dayStart time.Time, limit int) ([]string, error) {
	query := `
		SELECT a.hex
		FROM aircraft a
		LEFT JOIN aircraft_enriched e ON a.hex = e.hex
		WHERE (e.hex IS NULL OR e.registration IS NULL)
		  AND a.hex IS NOT NULL AND a.hex != ''
		  AND a.timestamp >= $1
		GROUP BY a.hex
		ORDER BY COUNT(*) DESC, a.hex`
	args := []any{dayStart.UTC()}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.selectHexes(ctx, "today", query, args...)
}

func (s *PostgresStore) selectHexes(ctx context.Context, policy, query string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: select %s candidates", policy)
	}
	defer rows.Close()

	var hexes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s candidate", policy)
		}
		hexes = append(hexes, h)
	}
	return hexes, eris.Wrapf(rows.Err(), "postgres: %s candidates iterate", policy)
}

func (s *PostgresStore) CreateRun(ctx context.Context, mode model.RunMode) (*model.EnrichmentRun, error) {
	run := &model.EnrichmentRun{
		ID:        uuid.New().String(),
		Mode:      mode,
		Status:    model.RunStatusRunning,
		StartedAt: s.now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO enrichment_runs (id, mode, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, string(run.Mode), string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, candidates, success, notFound int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE enrichment_runs
		SET status = $1, candidates = $2, success = $3, not_found = $4, finished_at = $5
		WHERE id = $6`,
		string(status), candidates, success, notFound, s.now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.EnrichmentRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, mode, status, candidates, success, not_found, started_at, finished_at
		FROM enrichment_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.EnrichmentRun
	for rows.Next() {
		var r model.EnrichmentRun
		if err := rows.Scan(&r.ID, &r.Mode, &r.Status, &r.Candidates, &r.Success, &r.NotFound, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
