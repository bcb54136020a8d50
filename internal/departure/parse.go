package departure

import (
	"math"
	"time"
)

// Extractors hold the provider-specific parts of stop event parsing.
type Extractors struct {
	// TransportType classifies the "transportation" object of an event.
	TransportType func(transportation Record) TransportType
	// Platform extracts the platform or track from the event.
	Platform func(event Record) string
	// Realtime reports whether the source confirms live tracking. The raw
	// estimated string is empty when the event carries none.
	Realtime func(event Record, estimated, planned string) bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without a UTC offset
// are read as wall-clock time in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Parse converts one raw stop event into a Departure. It reports false when
// the event is not an object or its planned time is missing or unparsable.
func Parse(raw any, loc *time.Location, now time.Time, ex Extractors) (Departure, bool) {
	event, ok := AsRecord(raw)
	if !ok || loc == nil {
		return Departure{}, false
	}

	plannedStr, ok := event.String("departureTimePlanned")
	if !ok || plannedStr == "" {
		return Departure{}, false
	}
	planned, ok := ParseTimestamp(plannedStr, loc)
	if !ok {
		return Departure{}, false
	}
	planned = planned.In(loc)

	estimatedStr := event.Str("departureTimeEstimated")
	estimated := planned
	if estimatedStr != "" {
		if t, ok := ParseTimestamp(estimatedStr, loc); ok {
			estimated = t.In(loc)
		}
	}

	transportation := event.Record("transportation")
	destination := "Unknown"
	if name, ok := transportation.Record("destination").String("name"); ok {
		destination = name
	}

	d := Departure{
		Line:          transportation.Text("number"),
		Destination:   destination,
		DepartureTime: estimated.Format("15:04"),
		PlannedTime:   planned.Format("15:04"),
		Delay:         wholeMinutes(estimated.Sub(planned)),
		MinutesUntil:  max(0, wholeMinutes(estimated.Sub(now))),
		Description:   transportation.Text("description"),
		Agency:        event.Text("agency"),
		At:            estimated,
		TransportType: Unknown,
	}
	if ex.TransportType != nil {
		d.TransportType = ex.TransportType(transportation)
	}
	if ex.Platform != nil {
		d.Platform = ex.Platform(event)
	}
	if ex.Realtime != nil {
		d.Realtime = ex.Realtime(event, estimatedStr, plannedStr)
	}
	return d, true
}

func wholeMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}
