package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"transitmon/internal/departure"
)

const ntaStop = "8220DB000002"

// 1736935200 is 2025-01-15T10:00:00Z.
const ntaFeed = `{
	"header": {"gtfs_realtime_version": "2.0", "incrementality": "FULL_DATASET", "timestamp": "1736935000"},
	"entity": [
		{"id": "T1", "trip_update": {
			"trip": {"trip_id": "T1", "route_id": "4525_67890", "schedule_relationship": "SCHEDULED"},
			"stop_time_update": [
				{"stop_sequence": 1, "stop_id": "8220DB000001", "departure": {"delay": 0, "time": "1736934900"}},
				{"stop_sequence": 2, "stop_id": "8220DB000002", "departure": {"delay": 120, "time": "1736935200"}}
			]}},
		{"id": "T2", "trip_update": {
			"trip": {"trip_id": "T2", "route_id": "Red_1234"},
			"stop_time_update": [{"stop_id": "8220DB000002", "arrival": {"delay": 60, "time": 1736935800}}]}},
		{"id": "T3", "trip_update": {
			"trip": {"trip_id": "T3", "route_id": "15_1"},
			"stop_time_update": [{"stop_id": "8220DB000002", "schedule_relationship": "SKIPPED"}]}},
		{"id": "T4", "trip_update": {
			"trip": {"trip_id": "T4", "route_id": "16_1", "schedule_relationship": "CANCELED"},
			"stop_time_update": [{"stop_id": "8220DB000002", "departure": {"time": "1736935300"}}]}},
		{"id": "T5", "trip_update": {
			"trip": {"trip_id": "T5", "route_id": "39_1"},
			"stop_time_update": [{"stop_id": "8220DB009999", "departure": {"time": "1736935300"}}]}},
		{"id": "T6", "trip_update": {"trip": {"trip_id": "T6"}, "stop_time_update": []}},
		{"id": "T7", "trip_update": {"trip": {"trip_id": "T7"}, "stop_time_update": [{"stop_id": "8220DB000002", "departure": {"delay": "soon"}}]}},
		{"id": "V1", "vehicle": {"trip": {"trip_id": "T1"}}},
		"junk"
	]
}`

func ntaConfig(url string) Config {
	cfg := testConfig(url)
	cfg.APIKey = "primary"
	cfg.Now = func() time.Time { return time.Date(2025, 1, 15, 9, 50, 0, 0, time.UTC) }
	return cfg
}

func TestNTA_Fetch(t *testing.T) {
	up := newUpstream(t, respond(http.StatusOK, ntaFeed))
	p := NewNTA(ntaConfig(up.srv.URL))

	payload, err := p.FetchDepartures(context.Background(), Query{StationID: ntaStop, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2, payload.Len())

	req := up.last()
	assert.Equal(t, "/v2/TripUpdates", req.URL.Path)
	assert.Equal(t, "json", req.URL.Query().Get("format"))
	assert.Equal(t, "primary", req.Header.Get("x-api-key"))

	dublin, err := time.LoadLocation("Europe/Dublin")
	require.NoError(t, err)
	now := time.Date(2025, 1, 15, 9, 50, 0, 0, time.UTC)

	d, ok := p.ParseDeparture(payload.StopEvents[0], dublin, now)
	require.True(t, ok)
	assert.Equal(t, "4525", d.Line)
	assert.Equal(t, "4525", d.Destination)
	assert.Equal(t, departure.Bus, d.TransportType)
	assert.Equal(t, "10:00", d.PlannedTime)
	assert.Equal(t, "10:02", d.DepartureTime)
	assert.Equal(t, 2, d.Delay)
	assert.Equal(t, 12, d.MinutesUntil)
	assert.True(t, d.Realtime)
	assert.Empty(t, d.Platform)

	d, ok = p.ParseDeparture(payload.StopEvents[1], dublin, now)
	require.True(t, ok)
	assert.Equal(t, "Red", d.Line)
	assert.Equal(t, departure.Tram, d.TransportType)
	assert.Equal(t, "10:10", d.PlannedTime)
	assert.Equal(t, 1, d.Delay)
}

func TestNTA_RequiresKeyAndStation(t *testing.T) {
	up := newUpstream(t, respond(http.StatusOK, ntaFeed))

	_, err := NewNTA(testConfig(up.srv.URL)).FetchDepartures(context.Background(), Query{StationID: ntaStop})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewNTA(ntaConfig(up.srv.URL)).FetchDepartures(context.Background(), Query{Place: "Dublin", Name: "O'Connell"})
	assert.ErrorIs(t, err, ErrMissingStation)

	assert.Equal(t, 0, up.count())
}

func TestNTA_SecondaryKey(t *testing.T) {
	up := newUpstream(t, func(n int, w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "backup" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		respond(http.StatusOK, ntaFeed)(n, w, r)
	})
	cfg := ntaConfig(up.srv.URL)
	cfg.APIKeySecondary = "backup"

	payload, err := NewNTA(cfg).FetchDepartures(context.Background(), Query{StationID: ntaStop, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, payload.Len())
	assert.Equal(t, 2, up.count())
}

func TestNTA_UnauthorizedWithoutSecondary(t *testing.T) {
	up := newUpstream(t, respond(http.StatusUnauthorized, ""))
	_, err := NewNTA(ntaConfig(up.srv.URL)).FetchDepartures(context.Background(), Query{StationID: ntaStop})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, up.count())
}

func TestNTA_ServerErrorRetries(t *testing.T) {
	up := newUpstream(t, respond(http.StatusInternalServerError, ""))
	_, err := NewNTA(ntaConfig(up.srv.URL)).FetchDepartures(context.Background(), Query{StationID: ntaStop})
	require.Error(t, err)
	assert.Equal(t, 3, up.count())
}

func TestNTA_CapsAtThreeTimesLimit(t *testing.T) {
	var entities []string
	for i := 0; i < 20; i++ {
		entities = append(entities, fmt.Sprintf(
			`{"id": "E%d", "trip_update": {"trip": {"trip_id": "E%d", "route_id": "46A_%d"}, "stop_time_update": [{"stop_id": %q, "departure": {"time": "%d"}}]}}`,
			i, i, i, ntaStop, 1736935200+i*60))
	}
	body := `{"entity": [` + strings.Join(entities, ",") + `]}`
	up := newUpstream(t, respond(http.StatusOK, body))

	payload, err := NewNTA(ntaConfig(up.srv.URL)).FetchDepartures(context.Background(), Query{StationID: ntaStop, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, payload.Len())
}

func TestNTA_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"no entity", `{"header": {}}`, false},
		{"entity not a list", `{"entity": {"id": "x"}}`, false},
		{"empty", `{"entity": []}`, false},
		{"array body", `[]`, true},
		{"not json", `<html>`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newUpstream(t, respond(http.StatusOK, tt.body))
			payload, err := NewNTA(ntaConfig(up.srv.URL)).FetchDepartures(context.Background(), Query{StationID: ntaStop, Limit: 5})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0, payload.Len())
		})
	}
}

func TestNTA_Protobuf(t *testing.T) {
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfs.FeedEntity{{
			Id: proto.String("P1"),
			TripUpdate: &gtfs.TripUpdate{
				Trip: &gtfs.TripDescriptor{TripId: proto.String("P1"), RouteId: proto.String("Green_9")},
				StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{{
					StopId:    proto.String(ntaStop),
					Departure: &gtfs.TripUpdate_StopTimeEvent{Time: proto.Int64(1736935200), Delay: proto.Int32(-60)},
				}},
			},
		}},
	}
	body, err := proto.Marshal(feed)
	require.NoError(t, err)

	up := newUpstream(t, respond(http.StatusOK, string(body)))
	cfg := ntaConfig(up.srv.URL)
	cfg.FeedFormat = "protobuf"
	p := NewNTA(cfg)

	payload, err := p.FetchDepartures(context.Background(), Query{StationID: ntaStop, Limit: 5})
	require.NoError(t, err)
	require.Equal(t, 1, payload.Len())
	assert.Empty(t, up.last().URL.Query().Get("format"))

	d, ok := p.ParseDeparture(payload.StopEvents[0], time.UTC, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, departure.Tram, d.TransportType)
	assert.Equal(t, -1, d.Delay)
}

func TestNTA_SearchEchoesTerm(t *testing.T) {
	p := NewNTA(Config{})
	stops, err := p.SearchStops(context.Background(), " 8220DB000002 ")
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, departure.Stop{ID: ntaStop, Name: "Stop " + ntaStop, Place: "Ireland"}, stops[0])

	stops, err = p.SearchStops(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, stops)
}
