package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdx-adsb/adsb-analytics/internal/store"
	"github.com/pdx-adsb/adsb-analytics/pkg/dump1090"
)

type fakeFeed struct {
	aircraft []dump1090.Aircraft
	err      error
}

func (f *fakeFeed) Fetch(ctx context.Context) ([]dump1090.Aircraft, error) {
	return f.aircraft, f.err
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func floatPtr(f float64) *float64 { return &f }

func TestIngester_Once(t *testing.T) {
	st := newTestStore(t)
	feed := &fakeFeed{aircraft: []dump1090.Aircraft{
		{Hex: "a6f1b2", Flight: "DAL123  ", Lat: floatPtr(45.58), Lon: floatPtr(-122.59)},
		{Hex: "AB34CD"},
		{Hex: "   "}, // receiver entry with no decoded address yet
	}}

	in := New(st, feed)
	in.now = func() time.Time { return time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC) }

	n, err := in.Once(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	since := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	obs, err := st.ObservationsSince(context.Background(), since, 10)
	require.NoError(t, err)
	require.Len(t, obs, 2)

	byHex := map[string]bool{}
	for _, o := range obs {
		byHex[o.Hex] = true
		assert.Equal(t, time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC), o.Timestamp)
		if o.Hex == "A6F1B2" {
			require.NotNil(t, o.Flight)
			assert.Equal(t, "DAL123", *o.Flight)
		}
	}
	assert.True(t, byHex["A6F1B2"])
	assert.True(t, byHex["AB34CD"])
}

func TestIngester_EmptySnapshot(t *testing.T) {
	st := newTestStore(t)
	in := New(st, &fakeFeed{})

	n, err := in.Once(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngester_FeedError(t *testing.T) {
	st := newTestStore(t)
	in := New(st, &fakeFeed{err: errors.New("connection refused")})

	_, err := in.Once(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch snapshot")
}
