package departure

import (
	"encoding/json"
	"testing"
	"time"
)

func classExtractors() Extractors {
	return Extractors{
		TransportType: func(tr Record) TransportType {
			switch c, _ := tr.Record("product").Int("class"); c {
			case 4:
				return Tram
			case 5:
				return Bus
			}
			return Unknown
		},
		Platform: func(ev Record) string { return ev.Record("platform").Str("name") },
		Realtime: func(ev Record, est, plan string) bool { return est != "" && est != plan },
	}
}

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return v
}

func TestParse_DelayAndMinutes(t *testing.T) {
	now := time.Date(2025, 1, 15, 9, 55, 0, 0, time.UTC)
	raw := decode(t, `{
		"departureTimePlanned": "2025-01-15T10:00:00Z",
		"departureTimeEstimated": "2025-01-15T10:10:00Z",
		"transportation": {"number": 721, "description": "Hbf - Flughafen", "destination": {"name": "Flughafen"}, "product": {"class": 5}},
		"platform": {"name": "3"}
	}`)

	d, ok := Parse(raw, time.UTC, now, classExtractors())
	if !ok {
		t.Fatal("Parse returned false")
	}
	if d.Delay != 10 {
		t.Errorf("Delay = %d, want 10", d.Delay)
	}
	if d.MinutesUntil != 15 {
		t.Errorf("MinutesUntil = %d, want 15", d.MinutesUntil)
	}
	if d.DepartureTime != "10:10" || d.PlannedTime != "10:00" {
		t.Errorf("times = %s/%s, want 10:10/10:00", d.DepartureTime, d.PlannedTime)
	}
	if d.Line != "721" {
		t.Errorf("Line = %q, want 721", d.Line)
	}
	if d.Destination != "Flughafen" {
		t.Errorf("Destination = %q", d.Destination)
	}
	if d.TransportType != Bus {
		t.Errorf("TransportType = %s, want bus", d.TransportType)
	}
	if d.Platform != "3" {
		t.Errorf("Platform = %q, want 3", d.Platform)
	}
	if !d.Realtime {
		t.Error("Realtime should be true when estimated differs")
	}
	if d.Description != "Hbf - Flughafen" {
		t.Errorf("Description = %q", d.Description)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"nil", nil},
		{"string", "not an event"},
		{"list", []any{1, 2}},
		{"missing planned", map[string]any{"departureTimeEstimated": "2025-01-15T10:00:00Z"}},
		{"planned not string", map[string]any{"departureTimePlanned": 12345.0}},
		{"planned empty", map[string]any{"departureTimePlanned": ""}},
		{"planned garbage", map[string]any{"departureTimePlanned": "half past ten"}},
	}
	now := time.Now()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Parse(tt.raw, time.UTC, now, classExtractors()); ok {
				t.Errorf("Parse(%v) = ok, want rejected", tt.raw)
			}
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	now := time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC)
	raw := map[string]any{"departureTimePlanned": "2025-01-15T10:00:00Z"}

	d, ok := Parse(raw, time.UTC, now, Extractors{})
	if !ok {
		t.Fatal("Parse returned false")
	}
	if d.Destination != "Unknown" {
		t.Errorf("Destination = %q, want Unknown", d.Destination)
	}
	if d.Delay != 0 {
		t.Errorf("Delay = %d, want 0 without estimate", d.Delay)
	}
	if d.MinutesUntil != 0 {
		t.Errorf("MinutesUntil = %d, want clamp to 0", d.MinutesUntil)
	}
	if d.TransportType != Unknown {
		t.Errorf("TransportType = %s, want unknown", d.TransportType)
	}
	if d.Line != "" || d.Platform != "" || d.Agency != "" {
		t.Errorf("unexpected fields: %+v", d)
	}
}

func TestParse_UnparsableEstimateFallsBack(t *testing.T) {
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	raw := map[string]any{
		"departureTimePlanned":   "2025-01-15T10:00:00Z",
		"departureTimeEstimated": "soon",
	}
	d, ok := Parse(raw, time.UTC, now, Extractors{})
	if !ok {
		t.Fatal("Parse returned false")
	}
	if d.Delay != 0 || d.DepartureTime != "10:00" {
		t.Errorf("got delay %d at %s, want 0 at 10:00", d.Delay, d.DepartureTime)
	}
}

func TestParse_TimezoneConversion(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	now := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		planned string
		want    string
	}{
		{"2025-01-15T10:00:00Z", "11:00"},
		{"2025-01-15T10:00:00+01:00", "10:00"},
		{"2025-01-15T10:00:00+0100", "10:00"},
		{"2025-01-15T10:00:00", "10:00"}, // naive, read in provider zone
		{"2025-01-15T10:00:00.000Z", "11:00"},
	}
	for _, tt := range tests {
		d, ok := Parse(map[string]any{"departureTimePlanned": tt.planned}, cet, now, Extractors{})
		if !ok {
			t.Errorf("Parse(%q) rejected", tt.planned)
			continue
		}
		if d.PlannedTime != tt.want {
			t.Errorf("Parse(%q).PlannedTime = %s, want %s", tt.planned, d.PlannedTime, tt.want)
		}
	}
}

func TestParse_DelayRounding(t *testing.T) {
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		estimated string
		want      int
	}{
		{"2025-01-15T10:00:29Z", 0},
		{"2025-01-15T10:00:30Z", 1},
		{"2025-01-15T10:01:29Z", 1},
		{"2025-01-15T09:58:00Z", -2},
	}
	for _, tt := range tests {
		raw := map[string]any{
			"departureTimePlanned":   "2025-01-15T10:00:00Z",
			"departureTimeEstimated": tt.estimated,
		}
		d, _ := Parse(raw, time.UTC, now, Extractors{})
		if d.Delay != tt.want {
			t.Errorf("estimated %s: Delay = %d, want %d", tt.estimated, d.Delay, tt.want)
		}
	}
}

func TestRecord_Accessors(t *testing.T) {
	r, ok := DecodeRecord([]byte(`{"a": {"b": "x"}, "n": 4, "s": "7", "f": true, "l": ["p", 1, "q"], "z": null}`))
	if !ok {
		t.Fatal("DecodeRecord rejected an object")
	}
	if got := r.Record("a").Str("b"); got != "x" {
		t.Errorf("nested = %q", got)
	}
	if got := r.Record("missing").Str("b"); got != "" {
		t.Errorf("missing nested = %q", got)
	}
	if n, ok := r.Int("n"); !ok || n != 4 {
		t.Errorf("Int(n) = %d, %v", n, ok)
	}
	if n, ok := r.Int("s"); !ok || n != 7 {
		t.Errorf("Int(s) = %d, %v", n, ok)
	}
	if r.Text("n") != "4" || r.Text("f") != "true" || r.Text("z") != "" {
		t.Errorf("Text mismatch: %q %q %q", r.Text("n"), r.Text("f"), r.Text("z"))
	}
	if got := r.Strings("l"); len(got) != 2 {
		t.Errorf("Strings(l) = %v", got)
	}
	if _, ok := DecodeRecord([]byte(`[1,2]`)); ok {
		t.Error("DecodeRecord accepted an array")
	}
}
