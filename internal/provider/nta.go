package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"transitmon/internal/departure"
)

const ntaBaseURL = "https://api.nationaltransport.ie/gtfsr"

var entityJSON = protojson.UnmarshalOptions{DiscardUnknown: true, AllowPartial: true}

// NTAProvider reads the National Transport Authority GTFS-Realtime
// TripUpdates feed for Ireland. The feed covers the whole network, so every
// fetch filters it down to one stop.
type NTAProvider struct {
	apiKey          string
	apiKeySecondary string
	baseURL         string
	protobuf        bool
	now             func() time.Time
	client          *client
	logger          *slog.Logger
}

// NewNTA creates an NTA provider.
func NewNTA(cfg Config) *NTAProvider {
	cfg = cfg.withDefaults()
	return &NTAProvider{
		apiKey:          cfg.APIKey,
		apiKeySecondary: cfg.APIKeySecondary,
		baseURL:         strings.TrimSuffix(orDefault(cfg.BaseURL, ntaBaseURL), "/"),
		protobuf:        cfg.FeedFormat == "protobuf",
		now:             cfg.Now,
		client:          newClient(cfg),
		logger:          cfg.Logger.With("provider", NTA),
	}
}

func (p *NTAProvider) ID() string { return NTA }
func (p *NTAProvider) Name() string { return "NTA (Ireland)" }
func (p *NTAProvider) Timezone() string { return "Europe/Dublin" }
func (p *NTAProvider) RequiresAPIKey() bool { return true }
func (p *NTAProvider) Cleanup(ctx context.Context) error { return nil }

// FetchDepartures downloads the TripUpdates feed and keeps the updates for
// q.StationID. At most 3*q.Limit events are collected.
func (p *NTAProvider) FetchDepartures(ctx context.Context, q Query) (*departure.Payload, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if q.StationID == "" {
		return nil, ErrMissingStation
	}

	u := p.baseURL + "/v2/TripUpdates"
	if !p.protobuf {
		u += "?format=json"
	}

	key := p.apiKey
	var body []byte
	err := p.client.retry.Do(ctx, p.logger, func() error {
		var err error
		body, err = p.client.getOnce(ctx, u, ntaTimeout, http.Header{"X-Api-Key": {key}})
		if errors.Is(err, ErrUnauthorized) && p.apiKeySecondary != "" && key == p.apiKey {
			p.logger.Info("primary api key rejected, trying secondary key")
			key = p.apiKeySecondary
			body, err = p.client.getOnce(ctx, u, ntaTimeout, http.Header{"X-Api-Key": {key}})
		}
		return err
	})
	if err != nil {
		p.logger.Warn("trip updates request failed", "error", err)
		return nil, fmt.Errorf("nta trip updates: %w", err)
	}

	entities, err := p.decodeEntities(body)
	if err != nil {
		return nil, fmt.Errorf("nta trip updates: %w", err)
	}

	limit := max(q.Limit, 1) * 3
	now := p.now().In(Location(p))
	var events []any
	for _, e := range entities {
		ev, ok := ntaEvent(e, q.StationID, now)
		if !ok {
			continue
		}
		events = append(events, ev)
		if len(events) >= limit {
			break
		}
	}
	p.logger.Debug("trip updates filtered", "entities", len(entities), "events", len(events), "stop", q.StationID)
	return &departure.Payload{StopEvents: events}, nil
}

// decodeEntities decodes the feed. In JSON mode each entity is decoded on
// its own so one malformed entity only drops itself.
func (p *NTAProvider) decodeEntities(body []byte) ([]*gtfs.FeedEntity, error) {
	if p.protobuf {
		feed := &gtfs.FeedMessage{}
		if err := (proto.UnmarshalOptions{AllowPartial: true}).Unmarshal(body, feed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return feed.GetEntity(), nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(top["entity"], &raws); err != nil {
		return nil, nil
	}

	entities := make([]*gtfs.FeedEntity, 0, len(raws))
	for _, raw := range raws {
		e := &gtfs.FeedEntity{}
		if err := entityJSON.Unmarshal(raw, e); err != nil {
			p.logger.Debug("skipping malformed entity", "error", err)
			continue
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// ntaEvent builds a stop event from the first stop time update of e that
// matches stopID. Without static GTFS data the route id stands in for the
// line and destination.
func ntaEvent(e *gtfs.FeedEntity, stopID string, now time.Time) (map[string]any, bool) {
	tu := e.GetTripUpdate()
	if tu == nil || len(tu.GetStopTimeUpdate()) == 0 {
		return nil, false
	}
	i := slices.IndexFunc(tu.GetStopTimeUpdate(), func(u *gtfs.TripUpdate_StopTimeUpdate) bool {
		return u.GetStopId() == stopID
	})
	if i < 0 {
		return nil, false
	}
	stu := tu.GetStopTimeUpdate()[i]
	if stu.GetScheduleRelationship() == gtfs.TripUpdate_StopTimeUpdate_SKIPPED ||
		tu.GetTrip().GetScheduleRelationship() == gtfs.TripDescriptor_CANCELED {
		return nil, false
	}

	routeID := tu.GetTrip().GetRouteId()
	line, _, _ := strings.Cut(routeID, "_")
	routeType := 3
	switch strings.ToLower(line) {
	case "red", "green", "luas":
		routeType = 0
	}

	delay := stu.GetDeparture().GetDelay()
	if delay == 0 {
		delay = stu.GetArrival().GetDelay()
	}

	planned := now
	if ts := stu.GetDeparture().GetTime(); ts != 0 {
		planned = time.Unix(ts, 0).In(now.Location())
	} else if ts := stu.GetArrival().GetTime(); ts != 0 {
		planned = time.Unix(ts, 0).In(now.Location())
	}
	estimated := planned.Add(time.Duration(delay) * time.Second)

	status := []any{}
	if delay != 0 {
		status = append(status, "MONITORED")
	}

	return map[string]any{
		"departureTimePlanned":   planned.Format(time.RFC3339),
		"departureTimeEstimated": estimated.Format(time.RFC3339),
		"transportation": map[string]any{
			"number":      line,
			"destination": map[string]any{"name": orDefault(line, "Unknown")},
			"product":     map[string]any{"class": float64(routeType)},
		},
		"platform":       map[string]any{"name": ""},
		"realtimeStatus": status,
		"route_id":       routeID,
		"trip_id":        tu.GetTrip().GetTripId(),
		"stop_id":        stu.GetStopId(),
		"delay_seconds":  float64(delay),
	}, true
}

func (p *NTAProvider) ParseDeparture(raw any, loc *time.Location, now time.Time) (departure.Departure, bool) {
	ev, ok := departure.AsRecord(raw)
	if !ok {
		return departure.Departure{}, false
	}
	routeType, ok := ev.Record("transportation").Record("product").Int("class")
	if !ok {
		routeType = 3
	}
	typ := classify(ntaRouteTypes, routeType, departure.Bus)
	return departure.Parse(ev, loc, now, departure.Extractors{
		TransportType: func(departure.Record) departure.TransportType { return typ },
		Platform:      platformName,
		Realtime: func(ev departure.Record, _, _ string) bool {
			return slices.Contains(ev.Strings("realtimeStatus"), "MONITORED")
		},
	})
}

// SearchStops echoes term as a stop id. The feed has no lookup endpoint, so
// users enter NTA stop ids directly.
func (p *NTAProvider) SearchStops(ctx context.Context, term string) ([]departure.Stop, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []departure.Stop{}, nil
	}
	return []departure.Stop{{ID: term, Name: "Stop " + term, Place: "Ireland"}}, nil
}
