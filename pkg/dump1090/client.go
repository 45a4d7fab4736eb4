// Package dump1090 reads the aircraft.json feed exposed by a local
// dump1090/readsb receiver.
package dump1090

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Aircraft is one entry in the receiver's aircraft list. Field names follow
// the dump1090 JSON output; most are optional depending on what the
// receiver has decoded so far.
type Aircraft struct {
	Hex         string   `json:"hex"`
	Flight      string   `json:"flight"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	AltBaro     *int     `json:"alt_baro"`
	Track       *float64 `json:"track"`
	GroundSpeed *int     `json:"gs"`
	Squawk      *string  `json:"squawk"`
	Category    *string  `json:"category"`
	RSSI        *float64 `json:"rssi"`
}

// Client fetches the current aircraft snapshot from the receiver.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a Client for the given aircraft.json URL.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the receiver's current aircraft list.
func (c *Client) Fetch(ctx context.Context) ([]Aircraft, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "dump1090: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "dump1090: fetch aircraft")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("dump1090: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Aircraft []Aircraft `json:"aircraft"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "dump1090: decode aircraft")
	}
	return body.Aircraft, nil
}
