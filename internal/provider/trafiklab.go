package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"transitmon/internal/departure"
)

const trafiklabBaseURL = "https://realtime-api.trafiklab.se/v1"

// TrafiklabProvider uses the Trafiklab realtime API for Sweden.
type TrafiklabProvider struct {
	apiKey    string
	baseURL   string
	searchURL string
	client    *client
	logger    *slog.Logger
}

// NewTrafiklab creates a Trafiklab provider. The API key is checked when
// a request is made, not here.
func NewTrafiklab(cfg Config) *TrafiklabProvider {
	cfg = cfg.withDefaults()
	return &TrafiklabProvider{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimSuffix(orDefault(cfg.BaseURL, trafiklabBaseURL), "/"),
		searchURL: strings.TrimSuffix(orDefault(cfg.SearchURL, trafiklabBaseURL), "/"),
		client:    newClient(cfg),
		logger:    cfg.Logger.With("provider", Trafiklab),
	}
}

func (p *TrafiklabProvider) ID() string { return Trafiklab }
func (p *TrafiklabProvider) Name() string { return "Trafiklab (Sweden)" }
func (p *TrafiklabProvider) Timezone() string { return "Europe/Stockholm" }
func (p *TrafiklabProvider) RequiresAPIKey() bool { return true }
func (p *TrafiklabProvider) Cleanup(ctx context.Context) error { return nil }

// FetchDepartures loads departures for q.StationID and rewrites them into
// stop events.
func (p *TrafiklabProvider) FetchDepartures(ctx context.Context, q Query) (*departure.Payload, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if q.StationID == "" {
		return nil, ErrMissingStation
	}

	u := fmt.Sprintf("%s/departures/%s?%s", p.baseURL, url.PathEscape(q.StationID), url.Values{"key": {p.apiKey}}.Encode())
	body, err := p.client.get(ctx, u, efaTimeout, nil)
	if err != nil {
		p.logger.Warn("departure request failed", "error", err)
		return nil, fmt.Errorf("trafiklab departures: %w", err)
	}
	rec, ok := departure.DecodeRecord(body)
	if !ok {
		return nil, fmt.Errorf("trafiklab departures: %w", ErrMalformed)
	}

	loc := p.location()
	var events []any
	for _, raw := range rec.List("departures") {
		dep, ok := departure.AsRecord(raw)
		if !ok {
			continue
		}
		events = append(events, trafiklabEvent(dep, loc))
	}
	return &departure.Payload{StopEvents: events}, nil
}

// trafiklabEvent maps one Trafiklab departure to the stop event shape.
// Trafiklab times carry no offset; each one is resolved in loc on its own
// date so departures across a DST change keep the right offset.
func trafiklabEvent(dep departure.Record, loc *time.Location) map[string]any {
	route := dep.Record("route")
	platform := dep.Record("scheduled_platform")
	if len(platform) == 0 {
		platform = dep.Record("realtime_platform")
	}

	destination := "Unknown"
	if name, ok := route.Record("destination").String("name"); ok {
		destination = name
	}
	mode := route.Str("transport_mode")
	if mode == "" {
		mode = "BUS"
	}

	scheduled := inZone(dep.Str("scheduled"), loc)
	realtime := inZone(dep.Str("realtime"), loc)
	if realtime == "" {
		realtime = scheduled
	}

	status := []any{}
	if dep.Bool("is_realtime") {
		status = append(status, "MONITORED")
	}

	return map[string]any{
		"departureTimePlanned":   scheduled,
		"departureTimeEstimated": realtime,
		"transportation": map[string]any{
			"number":      route.Text("designation"),
			"description": firstNonEmpty(route.Text("name"), route.Text("direction")),
			"destination": map[string]any{"name": destination},
		},
		"platform":       map[string]any{"name": platform.Text("designation")},
		"realtimeStatus": status,
		"transportMode":  mode,
	}
}

// inZone rewrites a timestamp as RFC 3339, reading naive values in loc.
// Values that do not parse are returned unchanged.
func inZone(ts string, loc *time.Location) string {
	t, ok := departure.ParseTimestamp(ts, loc)
	if !ok {
		return ts
	}
	return t.Format(time.RFC3339Nano)
}

func (p *TrafiklabProvider) ParseDeparture(raw any, loc *time.Location, now time.Time) (departure.Departure, bool) {
	ev, ok := departure.AsRecord(raw)
	if !ok {
		return departure.Departure{}, false
	}
	mode := classify(trafiklabModes, ev.Str("transportMode"), departure.Bus)
	return departure.Parse(ev, loc, now, departure.Extractors{
		TransportType: func(departure.Record) departure.TransportType { return mode },
		Platform:      platformName,
		Realtime: func(ev departure.Record, estimated, planned string) bool {
			return slices.Contains(ev.Strings("realtimeStatus"), "MONITORED") || estimateDiffers(ev, estimated, planned)
		},
	})
}

// SearchStops looks up stop groups by name.
func (p *TrafiklabProvider) SearchStops(ctx context.Context, term string) ([]departure.Stop, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	u := fmt.Sprintf("%s/stops/name/%s?%s", p.searchURL, url.PathEscape(term), url.Values{"key": {p.apiKey}}.Encode())
	body, err := p.client.get(ctx, u, efaTimeout, nil)
	if err != nil {
		return nil, fmt.Errorf("trafiklab stop lookup: %w", err)
	}
	rec, ok := departure.DecodeRecord(body)
	if !ok {
		return nil, nil
	}

	var stops []departure.Stop
	for _, raw := range rec.List("stop_groups") {
		g, ok := departure.AsRecord(raw)
		if !ok {
			continue
		}
		id, name := g.Text("id"), g.Str("name")
		if id == "" || name == "" {
			continue
		}
		// The group name carries the municipality after its last comma.
		place := ""
		if len(g.List("stops")) > 0 {
			if i := strings.LastIndex(name, ","); i >= 0 {
				place = strings.TrimSpace(name[i+1:])
			}
		}
		stops = append(stops, departure.Stop{
			ID:             id,
			Name:           name,
			Place:          place,
			AreaType:       g.Str("area_type"),
			TransportModes: g.Strings("transport_modes"),
		})
	}
	return stops, nil
}

func (p *TrafiklabProvider) location() *time.Location {
	return Location(p)
}

// platformName reads "platform" either as an object with a name or as a
// plain value.
func platformName(ev departure.Record) string {
	if pl, ok := departure.AsRecord(ev["platform"]); ok {
		return pl.Text("name")
	}
	return ev.Text("platform")
}
