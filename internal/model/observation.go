package model

import (
	"strings"
	"time"
)

// Observation is one received transponder ping, as decoded by the local
// receiver. Rows are append-only; nothing in this repository updates or
// deletes them.
type Observation struct {
	ID          int64     `json:"id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Hex         string    `json:"hex"`
	Flight      *string   `json:"flight,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	AltBaro     *int      `json:"alt_baro,omitempty"`
	Track       *float64  `json:"track,omitempty"`
	GroundSpeed *int      `json:"speed,omitempty"`
	Squawk      *string   `json:"squawk,omitempty"`
	Category    *string   `json:"category,omitempty"`
	RSSI        *float64  `json:"rssi,omitempty"`
}

// NormalizeHex canonicalizes a transponder address: trimmed, uppercased.
// Every table keys aircraft by this form.
func NormalizeHex(hex string) string {
	return strings.ToUpper(strings.TrimSpace(hex))
}
