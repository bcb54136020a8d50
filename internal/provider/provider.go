// Package provider fetches departures and searches stops on the supported
// transit APIs and maps their responses into the departure model.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	_ "time/tzdata"

	"transitmon/internal/departure"
)

// Provider ids.
const (
	VRR       = "vrr"
	KVV       = "kvv"
	HVV       = "hvv"
	Trafiklab = "trafiklab_se"
	NTA       = "nta_ie"
)

var (
	ErrMissingAPIKey  = errors.New("api key required")
	ErrMissingStation = errors.New("station required")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("endpoint not found")
	ErrMalformed      = errors.New("malformed response")
)

// StatusError is returned for non-200 upstream responses.
type StatusError struct {
	Code int
	URL  string // without query, which may hold credentials
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// Query addresses a station. StationID takes precedence over Place and Name.
type Query struct {
	StationID string
	Place     string
	Name      string
	Limit     int
}

// SearchKind selects what a search looks for.
type SearchKind string

const (
	SearchStop     SearchKind = "stop"
	SearchLocation SearchKind = "location"
)

// Provider is implemented by every supported transit API.
type Provider interface {
	ID() string
	Name() string

	// FetchDepartures returns the raw stop events for a station. A response
	// without departures is an empty payload, not an error.
	FetchDepartures(ctx context.Context, q Query) (*departure.Payload, error)

	// ParseDeparture converts one stop event from FetchDepartures.
	ParseDeparture(raw any, loc *time.Location, now time.Time) (departure.Departure, bool)

	SearchStops(ctx context.Context, term string) ([]departure.Stop, error)

	// Timezone is the IANA zone departure times are shown in.
	Timezone() string
	RequiresAPIKey() bool

	// Cleanup releases held resources. It is called once when the
	// station is unloaded.
	Cleanup(ctx context.Context) error
}

// PlaceSearcher is implemented by providers that can also look up
// localities, not just stops.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, term string) ([]departure.Stop, error)
}

// Location loads the provider's time zone, falling back to UTC.
func Location(p Provider) *time.Location {
	loc, err := time.LoadLocation(p.Timezone())
	if err != nil {
		return time.UTC
	}
	return loc
}

// Config carries credentials and transport settings for a provider.
// Zero values select production defaults.
type Config struct {
	APIKey          string
	APIKeySecondary string

	// BaseURL overrides the departures endpoint, SearchURL the stop lookup
	// endpoint.
	BaseURL   string
	SearchURL string

	// FeedFormat is "json" or "protobuf" (NTA only).
	FeedFormat string

	UserAgent  string
	HTTPClient *http.Client
	Retry      RetryPolicy
	Logger     *slog.Logger
	Now        func() time.Time
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = "transitmon/1.0 (departure monitor)"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = DefaultRetry
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
