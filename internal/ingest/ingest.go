// Package ingest records receiver snapshots as observation rows.
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pdx-adsb/adsb-analytics/internal/model"
	"github.com/pdx-adsb/adsb-analytics/internal/store"
	"github.com/pdx-adsb/adsb-analytics/pkg/dump1090"
)

// Feed is the receiver dependency. dump1090.Client satisfies it.
type Feed interface {
	Fetch(ctx context.Context) ([]dump1090.Aircraft, error)
}

// Ingester polls the receiver once and appends what it saw.
type Ingester struct {
	store store.Store
	feed  Feed
	now   func() time.Time
}

func New(st store.Store, feed Feed) *Ingester {
	return &Ingester{store: st, feed: feed, now: time.Now}
}

// Once fetches the current receiver snapshot and persists it. All rows in
// one snapshot share a single timestamp so a snapshot can be reassembled
// later. Entries without a hex are dropped; they carry nothing joinable.
func (in *Ingester) Once(ctx context.Context) (int, error) {
	if err := in.store.Migrate(ctx); err != nil {
		return 0, eris.Wrap(err, "ingest: ensure schema")
	}

	aircraft, err := in.feed.Fetch(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "ingest: fetch snapshot")
	}

	seen := in.now().UTC()
	obs := make([]model.Observation, 0, len(aircraft))
	for _, a := range aircraft {
		if strings.TrimSpace(a.Hex) == "" {
			continue
		}
		obs = append(obs, toObservation(a, seen))
	}

	n, err := in.store.InsertObservations(ctx, obs)
	if err != nil {
		return 0, eris.Wrap(err, "ingest: insert observations")
	}
	zap.L().Info("ingested receiver snapshot",
		zap.Int("aircraft", len(aircraft)),
		zap.Int("stored", n),
	)
	return n, nil
}

func toObservation(a dump1090.Aircraft, seen time.Time) model.Observation {
	o := model.Observation{
		Timestamp:   seen,
		Hex:         model.NormalizeHex(a.Hex),
		Lat:         a.Lat,
		Lon:         a.Lon,
		AltBaro:     a.AltBaro,
		Track:       a.Track,
		GroundSpeed: a.GroundSpeed,
		Squawk:      a.Squawk,
		Category:    a.Category,
		RSSI:        a.RSSI,
	}
	// dump1090 pads callsigns with trailing spaces.
	if flight := strings.TrimSpace(a.Flight); flight != "" {
		o.Flight = &flight
	}
	return o
}
