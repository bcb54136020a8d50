package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"transitmon/internal/config"
	"transitmon/internal/provider"
)

var ErrUnknownProvider = errors.New("unknown provider")

// ProviderSettings are the process-wide provider options applied to every
// entry.
type ProviderSettings struct {
	FeedFormat string
	UserAgent  string

	// New constructs providers; nil means provider.New.
	New func(id string, cfg provider.Config) provider.Provider
}

// Manager runs one coordinator per configured entry.
type Manager struct {
	rateLimit int
	settings  ProviderSettings
	logger    *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	running map[string]*running
}

type running struct {
	coord  *Coordinator
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a Manager. Coordinators poll until ctx is cancelled
// or they are stopped.
func NewManager(ctx context.Context, rateLimitPerDay int, settings ProviderSettings, logger *slog.Logger) *Manager {
	return &Manager{
		rateLimit: rateLimitPerDay,
		settings:  settings,
		logger:    logger,
		ctx:       ctx,
		running:   make(map[string]*running),
	}
}

// NewProvider builds a provider with the manager's settings, or nil for an
// unknown id.
func (m *Manager) NewProvider(id, apiKey, apiKeySecondary string) provider.Provider {
	newProvider := m.settings.New
	if newProvider == nil {
		newProvider = provider.New
	}
	return newProvider(id, provider.Config{
		APIKey:          apiKey,
		APIKeySecondary: apiKeySecondary,
		FeedFormat:      m.settings.FeedFormat,
		UserAgent:       m.settings.UserAgent,
		Logger:          m.logger,
	})
}

// Start creates the provider and coordinator for an entry and begins
// polling. Starting an id that is already running restarts it.
func (m *Manager) Start(id string, st config.Station) (*Coordinator, error) {
	p := m.NewProvider(st.Provider, st.APIKey, st.APIKeySecondary)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, st.Provider)
	}

	coord := New(Options{
		Station:         st,
		Provider:        p,
		RateLimitPerDay: m.rateLimit,
		Logger:          m.logger.With("entry", id),
	})

	ctx, cancel := context.WithCancel(m.ctx)
	r := &running{coord: coord, cancel: cancel, done: make(chan struct{})}

	// The goroutine starts under the lock so a concurrent Start that
	// replaces r can always wait on r.done.
	m.mu.Lock()
	old := m.running[id]
	m.running[id] = r
	go func() {
		defer close(r.done)
		coord.Run(ctx)
	}()
	m.mu.Unlock()

	if old != nil {
		m.halt(id, old)
	}
	return coord, nil
}

// Get returns the coordinator for id.
func (m *Manager) Get(id string) (*Coordinator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.running[id]
	if !ok {
		return nil, false
	}
	return r.coord, true
}

// Stop halts polling for id and cleans up its provider. Unknown ids are
// ignored.
func (m *Manager) Stop(id string) {
	m.mu.Lock()
	r, ok := m.running[id]
	delete(m.running, id)
	m.mu.Unlock()
	if ok {
		m.halt(id, r)
	}
}

// halt cancels a coordinator, waits for its loop to exit and shuts down
// its provider.
func (m *Manager) halt(id string, r *running) {
	r.cancel()
	<-r.done

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.coord.Shutdown(ctx)
	m.logger.Info("coordinator unloaded", "entry", id)
}

// Len reports the number of running coordinators.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}

// Run blocks until the manager's context is cancelled, then stops every
// coordinator.
func (m *Manager) Run() error {
	<-m.ctx.Done()

	m.mu.Lock()
	ids := make([]string, 0, len(m.running))
	for id := range m.running {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Stop(id)
	}
	m.logger.Info("all coordinators stopped")
	return nil
}
