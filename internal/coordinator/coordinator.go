// Package coordinator polls one station on a fixed interval, enforces the
// daily API call limit and keeps the last good payload for readers.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"transitmon/internal/config"
	"transitmon/internal/departure"
	"transitmon/internal/provider"
)

// DefaultRateLimitPerDay caps successful fetches per station and day.
const DefaultRateLimitPerDay = 1000

// ErrRateLimited is the cause of an update that was skipped because the
// daily call limit is reached and no earlier payload exists.
var ErrRateLimited = errors.New("daily api call limit reached")

// UpdateError reports a failed update cycle. Earlier data stays available.
type UpdateError struct {
	Cause error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update failed: %v", e.Cause)
}

func (e *UpdateError) Unwrap() error { return e.Cause }

// Options configure a Coordinator.
type Options struct {
	Station         config.Station
	Provider        provider.Provider
	RateLimitPerDay int
	Logger          *slog.Logger
	Now             func() time.Time
}

// Coordinator owns the polling cycle of one station. Each station has its
// own coordinator and provider; nothing is shared between them.
type Coordinator struct {
	station   config.Station
	provider  provider.Provider
	loc       *time.Location
	interval  time.Duration
	rateLimit int
	logger    *slog.Logger
	now       func() time.Time

	refresh     chan struct{}
	fetchMu     sync.Mutex // serialises update cycles
	cleanupOnce sync.Once

	mu          sync.RWMutex
	callsToday  int
	resetDate   string // YYYY-MM-DD in the provider's zone
	data        *departure.Payload
	lastSuccess bool
	lastErr     error
	lastUpdated time.Time
	rateLimited bool
}

// New creates a coordinator. The station must already be validated.
func New(opts Options) *Coordinator {
	if opts.RateLimitPerDay <= 0 {
		opts.RateLimitPerDay = DefaultRateLimitPerDay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	interval := opts.Station.ScanInterval
	if interval <= 0 {
		interval = config.DefaultScanInterval
	}
	return &Coordinator{
		station:   opts.Station,
		provider:  opts.Provider,
		loc:       provider.Location(opts.Provider),
		interval:  time.Duration(interval) * time.Second,
		rateLimit: opts.RateLimitPerDay,
		logger:    opts.Logger.With("provider", opts.Provider.ID(), "station", opts.Station.UniqueID()),
		now:       opts.Now,
		refresh:   make(chan struct{}, 1),
	}
}

// Interval is the polling period.
func (c *Coordinator) Interval() time.Duration { return c.interval }

// Station returns the configured station.
func (c *Coordinator) Station() config.Station { return c.station }

// Refresh runs one update cycle. When the daily limit is reached the cycle
// is skipped: earlier data is kept and nil returned, or an *UpdateError
// wrapping ErrRateLimited if there is none. Fetch failures also keep
// earlier data and return an *UpdateError.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	now := c.now()
	today := now.In(c.loc).Format("2006-01-02")

	c.mu.Lock()
	if c.resetDate != today {
		if c.resetDate != "" {
			c.logger.Info("daily api call counter reset", "previous_calls", c.callsToday)
		}
		c.resetDate = today
		c.callsToday = 0
	}
	if c.callsToday >= c.rateLimit {
		c.rateLimited = true
		hasData := c.data != nil
		if !hasData {
			c.lastSuccess = false
			c.lastErr = ErrRateLimited
		}
		c.mu.Unlock()

		c.logger.Warn("daily api call limit reached, skipping update", "limit", c.rateLimit, "cached", hasData)
		if hasData {
			return nil
		}
		return &UpdateError{Cause: ErrRateLimited}
	}
	c.rateLimited = false
	c.mu.Unlock()

	payload, err := c.provider.FetchDepartures(ctx, c.station.Query())

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastSuccess = false
		c.lastErr = err
		c.logger.Warn("update failed", "error", err)
		return &UpdateError{Cause: err}
	}
	c.callsToday++
	c.data = payload
	c.lastSuccess = true
	c.lastErr = nil
	c.lastUpdated = now
	c.logger.Debug("update complete", "events", payload.Len(), "calls_today", c.callsToday)
	return nil
}

// Run refreshes immediately, then on every interval tick and whenever
// RequestRefresh is called. It blocks until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	c.logger.Info("coordinator started", "interval", c.interval)
	c.Refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Refresh(ctx)
		case <-c.refresh:
			c.Refresh(ctx)
			ticker.Reset(c.interval)
		case <-ctx.Done():
			c.logger.Info("coordinator stopped")
			return
		}
	}
}

// RequestRefresh asks Run for an update cycle without waiting for it.
// Requests made while one is already pending are merged.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// Data returns the last successfully fetched payload, or nil.
func (c *Coordinator) Data() *departure.Payload {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

// LastUpdateSuccess reports whether the last cycle produced data.
func (c *Coordinator) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}

// Board derives the station board from the cached payload.
func (c *Coordinator) Board(now time.Time) departure.Board {
	c.mu.RLock()
	data, updated := c.data, c.lastUpdated
	c.mu.RUnlock()

	parse := func(raw any, now time.Time) (departure.Departure, bool) {
		return c.provider.ParseDeparture(raw, c.loc, now)
	}
	b := departure.BuildBoard(data, parse, departure.BoardOptions{
		StationName: c.station.Title(),
		StationID:   c.station.StationID,
		Types:       c.station.Types(),
		Limit:       c.station.Departures,
	}, now.In(c.loc))
	if !updated.IsZero() {
		b.LastUpdated = updated.UTC()
	}
	return b
}

// Diagnostics is a snapshot of the coordinator's health. Place and name
// are redacted.
type Diagnostics struct {
	Provider          string    `json:"provider"`
	StationID         string    `json:"station_id,omitempty"`
	Place             string    `json:"place,omitempty"`
	Name              string    `json:"name,omitempty"`
	Departures        int       `json:"departures"`
	ScanInterval      int       `json:"scan_interval"`
	APICallsToday     int       `json:"api_calls_today"`
	APIResetDate      string    `json:"api_reset_date"`
	RateLimitPerDay   int       `json:"rate_limit_per_day"`
	RateLimited       bool      `json:"rate_limited"`
	LastUpdateSuccess bool      `json:"last_update_success"`
	LastUpdated       time.Time `json:"last_updated,omitzero"`
	LastError         string    `json:"last_error,omitempty"`
	CachedEvents      int       `json:"cached_events"`
}

const redacted = "**REDACTED**"

// Diagnostics returns a snapshot for troubleshooting.
func (c *Coordinator) Diagnostics() Diagnostics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d := Diagnostics{
		Provider:          c.provider.ID(),
		StationID:         c.station.StationID,
		Departures:        c.station.Departures,
		ScanInterval:      c.station.ScanInterval,
		APICallsToday:     c.callsToday,
		APIResetDate:      c.resetDate,
		RateLimitPerDay:   c.rateLimit,
		RateLimited:       c.rateLimited,
		LastUpdateSuccess: c.lastSuccess,
		LastUpdated:       c.lastUpdated,
		CachedEvents:      c.data.Len(),
	}
	if c.station.Place != "" {
		d.Place = redacted
	}
	if c.station.Name != "" {
		d.Name = redacted
	}
	if c.lastErr != nil {
		d.LastError = c.lastErr.Error()
	}
	return d
}

// Shutdown releases the provider's resources. Only the first call has any
// effect; cleanup errors are logged.
func (c *Coordinator) Shutdown(ctx context.Context) {
	c.cleanupOnce.Do(func() {
		if err := c.provider.Cleanup(ctx); err != nil {
			c.logger.Warn("provider cleanup failed", "error", err)
		}
	})
}
