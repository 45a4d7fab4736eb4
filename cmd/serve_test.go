package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdx-adsb/adsb-analytics/internal/model"
	"github.com/pdx-adsb/adsb-analytics/internal/store"
)

func newTestMux(t *testing.T) (*http.ServeMux, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return newMux(st), st
}

func TestServeHealth(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeStats(t *testing.T) {
	mux, st := newTestMux(t)

	reg := "N301DQ"
	require.NoError(t, st.UpsertAircraft(context.Background(), model.Aircraft{
		Hex:          "A6F1B2",
		Registration: &reg,
		Source:       "adsbdb",
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var stats model.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Enriched)
}

func TestServeAircraft(t *testing.T) {
	mux, st := newTestMux(t)

	reg := "N301DQ"
	require.NoError(t, st.UpsertAircraft(context.Background(), model.Aircraft{
		Hex:          "A6F1B2",
		Registration: &reg,
		Source:       "adsbdb",
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/aircraft/a6f1b2", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var a model.Aircraft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "A6F1B2", a.Hex)
	require.NotNil(t, a.Registration)
	assert.Equal(t, "N301DQ", *a.Registration)
}

func TestServeAircraft_NotFound(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/aircraft/DEAD01", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeRuns(t *testing.T) {
	mux, st := newTestMux(t)

	_, err := st.CreateRun(context.Background(), model.RunModeRoutine)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var runs []model.EnrichmentRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunModeRoutine, runs[0].Mode)
}
