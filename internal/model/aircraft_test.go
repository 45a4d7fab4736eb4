package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHex(t *testing.T) {
	assert.Equal(t, "A1B2C3", NormalizeHex(" a1b2c3 "))
	assert.Equal(t, "ABC123", NormalizeHex("ABC123"))
	assert.Equal(t, "", NormalizeHex("  "))
}

func TestNotFoundAircraft(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("PDT", -7*3600))
	a := NotFoundAircraft("a6f1b2", now)

	assert.Equal(t, "A6F1B2", a.Hex)
	assert.Equal(t, SourceNotFound, a.Source)
	assert.Equal(t, time.UTC, a.LastUpdated.Location())
	assert.Nil(t, a.Registration)
	assert.Nil(t, a.Type)
	assert.Nil(t, a.Manufacturer)
	assert.Nil(t, a.Operator)
	assert.Nil(t, a.OriginCountry)
	assert.False(t, a.Enriched())
}

func TestAircraftEnriched(t *testing.T) {
	reg := "N123DL"
	assert.True(t, Aircraft{Registration: &reg}.Enriched())

	empty := ""
	assert.False(t, Aircraft{Registration: &empty}.Enriched())
	assert.False(t, Aircraft{}.Enriched())
}
