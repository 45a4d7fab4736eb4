package dump1090

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"now": 1717400000.0, "aircraft": [
			{"hex":"a6f1b2","flight":"DAL123  ","lat":45.58,"lon":-122.59,"alt_baro":3500,"gs":180,"squawk":"1200"},
			{"hex":"c0ffee"}
		]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, time.Second)
	list, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "a6f1b2", list[0].Hex)
	assert.Equal(t, "DAL123  ", list[0].Flight)
	require.NotNil(t, list[0].Lat)
	assert.InDelta(t, 45.58, *list[0].Lat, 0.001)
	require.NotNil(t, list[0].GroundSpeed)
	assert.Equal(t, 180, *list[0].GroundSpeed)

	assert.Equal(t, "c0ffee", list[1].Hex)
	assert.Nil(t, list[1].Lat)
}

func TestFetch_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, time.Second)
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"aircraft": [`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, time.Second)
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
}
