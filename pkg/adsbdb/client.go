// Package adsbdb is a client for the free ADS-B Database aircraft metadata
// API (api.adsbdb.com). No API key is required; callers are expected to pace
// their own request volume.
package adsbdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Source is the provider tag recorded on records populated from this API.
const Source = "adsbdb"

// Status classifies the outcome of a single lookup.
type Status int

const (
	// StatusFound means the provider knows the aircraft. The metadata may
	// still be sparse; a known aircraft with no registration is Found.
	StatusFound Status = iota
	// StatusNotFound means the provider determinately has no record:
	// either an explicit "unknown aircraft" body or an HTTP 404.
	StatusNotFound
	// StatusTransientError covers transport failures, timeouts, malformed
	// payloads, and unexpected statuses. The attempt failed; nothing is
	// known about the aircraft.
	StatusTransientError
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusTransientError:
		return "transient_error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Metadata holds the descriptive fields extracted from a successful lookup.
// Nil means the provider did not supply the field.
type Metadata struct {
	Registration  *string
	Type          *string
	Manufacturer  *string
	Operator      *string
	OriginCountry *string
}

// Result is the tagged outcome of one lookup. Metadata is meaningful only
// when Status is StatusFound; Err only when StatusTransientError.
type Result struct {
	Status   Status
	Metadata Metadata
	Err      error
}

// Options configures the Client.
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client // optional; mainly for tests
}

// Client performs aircraft metadata lookups. Each Lookup issues exactly one
// request; there is no internal retry.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a Client with the given options.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.adsbdb.com/v0"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "adsb-analytics/1.0"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		http:      httpClient,
	}
}

// API response body. The "response" key is either a JSON object carrying an
// "aircraft" object, or the bare string "unknown aircraft".
type apiEnvelope struct {
	Response json.RawMessage `json:"response"`
}

type apiAircraftWrapper struct {
	Aircraft *apiAircraft `json:"aircraft"`
}

type apiAircraft struct {
	Registration               *string `json:"registration"`
	ICAOType                   *string `json:"icao_type"`
	Manufacturer               *string `json:"manufacturer"`
	RegisteredOwner            *string `json:"registered_owner"`
	RegisteredOwnerCountryName *string `json:"registered_owner_country_name"`
}

// Lookup fetches metadata for one hex transponder address. The hex is
// trimmed and uppercased before building the request path.
func (c *Client) Lookup(ctx context.Context, hex string) Result {
	hexClean := strings.ToUpper(strings.TrimSpace(hex))
	url := fmt.Sprintf("%s/aircraft/%s", c.baseURL, hexClean)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return transient(eris.Wrapf(err, "adsbdb: create request for %s", hexClean))
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return transient(eris.Wrapf(err, "adsbdb: request %s", hexClean))
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Result{Status: StatusNotFound}
	case resp.StatusCode != http.StatusOK:
		return transient(eris.Errorf("adsbdb: unexpected status %d for %s", resp.StatusCode, hexClean))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transient(eris.Wrapf(err, "adsbdb: read body for %s", hexClean))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return transient(eris.Wrapf(err, "adsbdb: decode body for %s", hexClean))
	}

	// String form: {"response": "unknown aircraft"}
	var marker string
	if json.Unmarshal(envelope.Response, &marker) == nil {
		if marker == "unknown aircraft" {
			return Result{Status: StatusNotFound}
		}
		return transient(eris.Errorf("adsbdb: unexpected response marker %q for %s", marker, hexClean))
	}

	// Object form: {"response": {"aircraft": {...}}}
	var wrapper apiAircraftWrapper
	if err := json.Unmarshal(envelope.Response, &wrapper); err != nil {
		return transient(eris.Wrapf(err, "adsbdb: decode aircraft for %s", hexClean))
	}
	if wrapper.Aircraft == nil {
		return Result{Status: StatusNotFound}
	}

	ac := wrapper.Aircraft
	return Result{
		Status: StatusFound,
		Metadata: Metadata{
			Registration:  nonEmpty(ac.Registration),
			Type:          nonEmpty(ac.ICAOType),
			Manufacturer:  nonEmpty(ac.Manufacturer),
			Operator:      nonEmpty(ac.RegisteredOwner),
			OriginCountry: nonEmpty(ac.RegisteredOwnerCountryName),
		},
	}
}

func transient(err error) Result {
	return Result{Status: StatusTransientError, Err: err}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
