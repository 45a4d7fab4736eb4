package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pdx-adsb/adsb-analytics/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. This is the
// default backend: a single local database file next to the receiver.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode. The parent directory is created if missing.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "sqlite: create data dir")
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS aircraft (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	hex       TEXT,
	flight    TEXT,
	lat       REAL,
	lon       REAL,
	alt_baro  INTEGER,
	track     REAL,
	speed     INTEGER,
	squawk    TEXT,
	category  TEXT,
	rssi      REAL
);

CREATE TABLE IF NOT EXISTS aircraft_enriched (
	hex            TEXT PRIMARY KEY,
	registration   TEXT,
	type           TEXT,
	manufacturer   TEXT,
	operator       TEXT,
	origin_country TEXT,
	last_updated   TEXT,
	source         TEXT
);

CREATE TABLE IF NOT EXISTS enrichment_runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	candidates  INTEGER NOT NULL DEFAULT 0,
	success     INTEGER NOT NULL DEFAULT 0,
	not_found   INTEGER NOT NULL DEFAULT 0,
	started_at  TEXT NOT NULL,
	finished_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_aircraft_hex ON aircraft(hex);
CREATE INDEX IF NOT EXISTS idx_aircraft_timestamp ON aircraft(timestamp);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON enrichment_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Timestamps are stored as RFC 3339 UTC text so lexicographic comparison in
// SQL matches chronological order.
func fmtTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func (s *SQLiteStore) InsertObservations(ctx context.Context, obs []model.Observation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert observations")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO aircraft (timestamp, hex, flight, lat, lon, alt_baro, track, speed, squawk, category, rssi)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert observation")
	}
	defer stmt.Close() //nolint:errcheck

	inserted := 0
	for _, o := range obs {
		hex := model.NormalizeHex(o.Hex)
		if hex == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			fmtTime(o.Timestamp), hex, o.Flight, o.Lat, o.Lon,
			o.AltBaro, o.Track, o.GroundSpeed, o.Squawk, o.Category, o.RSSI,
		); err != nil {
			return inserted, eris.Wrapf(err, "sqlite: insert observation %s", hex)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return inserted, eris.Wrap(err, "sqlite: commit observations")
	}
	return inserted, nil
}

func (s *SQLiteStore) ObservationsSince(ctx context.Context, since time.Time, max int) ([]EnrichedObservation, error) {
	query := `
		SELECT a.timestamp, a.hex, a.flight, a.lat, a.lon, a.alt_baro, a.track, a.speed,
		       e.registration, e.type, e.operator
		FROM aircraft a
		LEFT JOIN aircraft_enriched e ON a.hex = e.hex
		WHERE a.timestamp >= ? AND a.hex IS NOT NULL AND a.hex != ''
		ORDER BY a.timestamp`
	args := []any{fmtTime(since)}
	if max > 0 {
		query += ` LIMIT ?`
		args = append(args, max)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: observations since")
	}
	defer rows.Close() //nolint:errcheck

	var out []EnrichedObservation
	for rows.Next() {
		var eo EnrichedObservation
		var ts string
		if err := rows.Scan(&ts, &eo.Hex, &eo.Flight, &eo.Lat, &eo.Lon, &eo.AltBaro, &eo.Track, &eo.GroundSpeed,
			&eo.Registration, &eo.AircraftType, &eo.Operator); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		eo.Timestamp = parseTime(ts)
		out = append(out, eo)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: observations iterate")
}

// UpsertAircraft writes the record, replacing any existing row for the hex
// in full. last_updated is stamped with the write time, never the caller's.
func (s *SQLiteStore) UpsertAircraft(ctx context.Context, a model.Aircraft) error {
	hex := model.NormalizeHex(a.Hex)
	if hex == "" {
		return eris.New("sqlite: upsert aircraft: empty hex")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO aircraft_enriched (hex, registration, type, manufacturer, operator, origin_country, last_updated, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hex) DO UPDATE SET
			registration   = excluded.registration,
			type           = excluded.type,
			manufacturer   = excluded.manufacturer,
			operator       = excluded.operator,
			origin_country = excluded.origin_country,
			last_updated   = excluded.last_updated,
			source         = excluded.source`,
		hex, a.Registration, a.Type, a.Manufacturer, a.Operator, a.OriginCountry,
		fmtTime(s.now()), a.Source,
	)
	return eris.Wrapf(err, "sqlite: upsert aircraft %s", hex)
}

func (s *SQLiteStore) GetAircraft(ctx context.Context, hex string) (*model.Aircraft, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hex, registration, type, manufacturer, operator, origin_country, last_updated, source
		FROM aircraft_enriched WHERE hex = ?`,
		model.NormalizeHex(hex),
	)

	a, err := scanAircraft(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get aircraft %s", hex)
	}
	return a, nil
}

func (s *SQLiteStore) SampleEnriched(ctx context.Context, n int) ([]model.Aircraft, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hex, registration, type, manufacturer, operator, origin_country, last_updated, source
		FROM aircraft_enriched
		WHERE registration IS NOT NULL
		ORDER BY last_updated DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: sample enriched")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Aircraft
	for rows.Next() {
		a, err := scanAircraft(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan enriched sample")
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: sample iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.Stats, error) {
	var st model.Stats
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT hex) FROM aircraft WHERE hex IS NOT NULL AND hex != ''`,
	).Scan(&st.TotalAircraft); err != nil {
		return nil, eris.Wrap(err, "sqlite: count aircraft")
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM aircraft_enriched WHERE registration IS NOT NULL`,
	).Scan(&st.Enriched); err != nil {
		return nil, eris.Wrap(err, "sqlite: count enriched")
	}
	return &st, nil
}

// SelectBacklog returns every observed hex with no enrichment record or a
// NULL registration, ascending. The ordering keeps an interrupted backfill
// resumable: a re-run walks the same sequence minus whatever it already wrote.
func (s *SQLiteStore) SelectBacklog(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT DISTINCT a.hex
		FROM aircraft a
		LEFT JOIN aircraft_enriched e ON a.hex = e.hex
		WHERE (e.hex IS NULL OR e.registration IS NULL)
		  AND a.hex IS NOT NULL AND a.hex != ''
		ORDER BY a.hex`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.selectHexes(ctx, "backlog", query, args...)
}

// SelectRecent returns unenriched hexes seen since the given cutoff, most
// recently observed first, ties broken by sighting count.
func (s *SQLiteStore) SelectRecent(ctx context.Context, since time.Time, limit int) ([]string, error) {
	query := `
		SELECT a.hex
		FROM aircraft a
		LEFT JOIN aircraft_enriched e ON a.hex = e.hex
		WHERE (e.hex IS NULL OR e.registration IS NULL)
		  AND a.hex IS NOT NULL AND a.hex != ''
		  AND a.timestamp >= ?
		GROUP BY a.hex
		ORDER BY MAX(a.timestamp) DESC, COUNT(*) DESC, a.hex`
	args := []any{fmtTime(since)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.selectHexes(ctx, "recent", query, args...)
}

// SelectToday returns unenriched hexes observed since the start of the
// current UTC day, busiest first.
func (s *SQLiteStore) SelectToday(ctx context.Context, dayStart time.Time, limit int) ([]string, error) {
	query := `
		SELECT a.hex
		FROM aircraft a
		LEFT JOIN aircraft_enriched e ON a.hex = e.hex
		WHERE (e.hex IS NULL OR e.registration IS NULL)
		  AND a.hex IS NOT NULL AND a.hex != ''
		  AND a.timestamp >= ?
		GROUP BY a.hex
		ORDER BY COUNT(*) DESC, a.hex`
	args := []any{fmtTime(dayStart)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.selectHexes(ctx, "today", query, args...)
}

func (s *SQLiteStore) selectHexes(ctx context.Context, policy, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: select %s candidates", policy)
	}
	defer rows.Close() //nolint:errcheck

	var hexes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s candidate", policy)
		}
		hexes = append(hexes, h)
	}
	return hexes, eris.Wrapf(rows.Err(), "sqlite: %s candidates iterate", policy)
}

func (s *SQLiteStore) CreateRun(ctx context.Context, mode model.RunMode) (*model.EnrichmentRun, error) {
	run := &model.EnrichmentRun{
		ID:        uuid.New().String(),
		Mode:      mode,
		Status:    model.RunStatusRunning,
		StartedAt: s.now().UTC().Truncate(time.Second),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrichment_runs (id, mode, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, string(run.Mode), string(run.Status), fmtTime(run.StartedAt),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, candidates, success, notFound int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE enrichment_runs
		SET status = ?, candidates = ?, success = ?, not_found = ?, finished_at = ?
		WHERE id = ?`,
		string(status), candidates, success, notFound, fmtTime(s.now()), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.EnrichmentRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, status, candidates, success, not_found, started_at, finished_at
		FROM enrichment_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.EnrichmentRun
	for rows.Next() {
		var r model.EnrichmentRun
		var started string
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &r.Mode, &r.Status, &r.Candidates, &r.Success, &r.NotFound, &started, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.StartedAt = parseTime(started)
		if finished.Valid {
			t := parseTime(finished.String)
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAircraft(row scannable) (*model.Aircraft, error) {
	var a model.Aircraft
	var updated sql.NullString
	if err := row.Scan(&a.Hex, &a.Registration, &a.Type, &a.Manufacturer, &a.Operator,
		&a.OriginCountry, &updated, &a.Source); err != nil {
		return nil, err
	}
	if updated.Valid {
		a.LastUpdated = parseTime(updated.String)
	}
	return &a, nil
}
