package departure

import (
	"math"
	"sort"
	"time"
)

// NoDepartures is the board state when nothing matches.
const NoDepartures = "No departures"

// DelayThreshold is the delay in minutes above which a station is flagged.
const DelayThreshold = 5

// ParseFunc converts one raw stop event. Providers supply it.
type ParseFunc func(raw any, now time.Time) (Departure, bool)

// Board is the presentation state of one station after a poll.
type Board struct {
	State                string      `json:"state"`
	StationName          string      `json:"station_name"`
	StationID            string      `json:"station_id,omitempty"`
	Departures           []Departure `json:"departures"`
	Next3                []Departure `json:"next_3_departures"`
	NextDepartureMinutes *int        `json:"next_departure_minutes"`
	TotalDepartures      int         `json:"total_departures"`
	DelayedCount         int         `json:"delayed_count"`
	OnTimeCount          int         `json:"on_time_count"`
	AverageDelay         float64     `json:"average_delay"`
	MaxDelay             int         `json:"max_delay"`
	Earliest             string      `json:"earliest_departure,omitempty"`
	Latest               string      `json:"latest_departure,omitempty"`
	LastUpdated          time.Time   `json:"last_updated"`

	DelayProblem   bool  `json:"delay_problem"`
	Delays         []int `json:"delays_list"`
	DelayThreshold int   `json:"delay_threshold"`
}

// BoardOptions select and bound the departures shown on a board.
type BoardOptions struct {
	StationName string
	StationID   string
	Types       []TransportType // empty means all
	Limit       int             // <= 0 means unlimited
}

// BuildBoard parses every stop event in p, keeps those matching the type
// filter, sorts them by estimated time and derives delay statistics.
// Malformed events are skipped.
func BuildBoard(p *Payload, parse ParseFunc, opts BoardOptions, now time.Time) Board {
	b := Board{
		State:          NoDepartures,
		StationName:    opts.StationName,
		StationID:      opts.StationID,
		Departures:     []Departure{},
		Next3:          []Departure{},
		Delays:         []int{},
		DelayThreshold: DelayThreshold,
		LastUpdated:    now.UTC(),
	}
	if p == nil || parse == nil {
		return b
	}

	allowed := make(map[TransportType]bool, len(opts.Types))
	for _, t := range opts.Types {
		allowed[t] = true
	}

	var deps []Departure
	for _, raw := range p.StopEvents {
		d, ok := parse(raw, now)
		if !ok {
			continue
		}
		if len(allowed) > 0 && !allowed[d.TransportType] {
			continue
		}
		deps = append(deps, d)
	}
	sort.SliceStable(deps, func(i, j int) bool { return deps[i].At.Before(deps[j].At) })
	if opts.Limit > 0 && len(deps) > opts.Limit {
		deps = deps[:opts.Limit]
	}
	if len(deps) == 0 {
		return b
	}

	b.Departures = deps
	b.Next3 = deps[:min(3, len(deps))]
	b.State = deps[0].DepartureTime
	next := deps[0].MinutesUntil
	b.NextDepartureMinutes = &next
	b.TotalDepartures = len(deps)

	earliest, latest := deps[0].At, deps[0].At
	total := 0
	for _, d := range deps {
		if d.At.Before(earliest) {
			earliest = d.At
		}
		if d.At.After(latest) {
			latest = d.At
		}
		if d.Delay > 0 {
			b.DelayedCount++
			total += d.Delay
			b.MaxDelay = max(b.MaxDelay, d.Delay)
			if len(b.Delays) < 10 {
				b.Delays = append(b.Delays, d.Delay)
			}
		} else {
			b.OnTimeCount++
		}
	}
	if b.DelayedCount > 0 {
		b.AverageDelay = math.Round(float64(total)/float64(b.DelayedCount)*10) / 10
	}
	b.Earliest = earliest.Format("15:04")
	b.Latest = latest.Format("15:04")
	b.DelayProblem = b.MaxDelay > DelayThreshold
	return b
}
