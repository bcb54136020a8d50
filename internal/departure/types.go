package departure

import "time"

// TransportType is the normalised vehicle category of a departure.
type TransportType string

const (
	Bus      TransportType = "bus"
	Tram     TransportType = "tram"
	Subway   TransportType = "subway"
	Train    TransportType = "train"
	Ferry    TransportType = "ferry"
	Taxi     TransportType = "taxi"
	OnDemand TransportType = "on_demand"
	Unknown  TransportType = "unknown"
)

// TransportTypes lists every category in display order.
var TransportTypes = []TransportType{Bus, Tram, Subway, Train, Ferry, Taxi, OnDemand, Unknown}

// ParseTransportType maps a stored filter value back to a TransportType.
// Unrecognised values map to Unknown.
func ParseTransportType(s string) TransportType {
	for _, t := range TransportTypes {
		if string(t) == s {
			return t
		}
	}
	return Unknown
}

// Departure is a single normalised departure. Values are built fresh on
// every poll and never modified afterwards.
type Departure struct {
	Line          string        `json:"line"`
	Destination   string        `json:"destination"`
	DepartureTime string        `json:"departure_time"` // HH:MM, estimated
	PlannedTime   string        `json:"planned_time"`   // HH:MM
	Delay         int           `json:"delay"`          // minutes, positive = late
	Platform      string        `json:"platform"`
	TransportType TransportType `json:"transportation_type"`
	Realtime      bool          `json:"is_realtime"`
	MinutesUntil  int           `json:"minutes_until_departure"`
	Description   string        `json:"description,omitempty"`
	Agency        string        `json:"agency,omitempty"`

	// At is the estimated departure instant, used for sorting only.
	At time.Time `json:"-"`
}

// Stop is a candidate returned by stop search.
type Stop struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Place          string   `json:"place,omitempty"`
	Type           string   `json:"type,omitempty"`
	AreaType       string   `json:"area_type,omitempty"`
	TransportModes []string `json:"transport_modes,omitempty"`
}

// Payload is the raw result of one departures fetch: a list of stop events
// in the shape Parse understands. Elements are decoded JSON values and may
// be malformed.
type Payload struct {
	StopEvents []any `json:"stopEvents"`
}

// Len returns the number of raw stop events.
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.StopEvents)
}
