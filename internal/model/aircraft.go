package model

import "time"

// Source values recorded on an enrichment row.
const (
	// SourceADSBDB tags rows populated from the adsbdb.com lookup API.
	SourceADSBDB = "adsbdb"
	// SourceNotFound is the sentinel for a lookup that determinately found
	// nothing. The row is a placeholder, not an error marker: all
	// descriptive fields are NULL.
	SourceNotFound = "not_found"
)

// Aircraft is the per-aircraft enrichment record, keyed by the uppercased
// hex transponder address. A new lookup replaces the prior row in full;
// there is no field-level merge.
type Aircraft struct {
	Hex           string    `json:"hex"`
	Registration  *string   `json:"registration,omitempty"`
	Type          *string   `json:"type,omitempty"`
	Manufacturer  *string   `json:"manufacturer,omitempty"`
	Operator      *string   `json:"operator,omitempty"`
	OriginCountry *string   `json:"origin_country,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
	Source        string    `json:"source"`
}

// NotFoundAircraft builds the placeholder row written when a lookup for hex
// came back empty, so the attempt itself is still recorded.
func NotFoundAircraft(hex string, now time.Time) Aircraft {
	return Aircraft{
		Hex:         NormalizeHex(hex),
		LastUpdated: now.UTC(),
		Source:      SourceNotFound,
	}
}

// Enriched reports whether the record carries a usable registration.
// Rows without one (including not_found placeholders) are selected again
// on future runs.
func (a Aircraft) Enriched() bool {
	return a.Registration != nil && *a.Registration != ""
}

// Stats summarizes enrichment coverage.
type Stats struct {
	TotalAircraft int `json:"total_aircraft"`
	Enriched      int `json:"enriched"`
}
