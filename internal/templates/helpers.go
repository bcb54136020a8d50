// Package templates renders the departure board pages. The *_templ.go files
// are generated from the .templ sources with `templ generate`.
package templates

import (
	"fmt"
	"strconv"

	"github.com/a-h/templ"

	"transitmon/internal/departure"
)

// Page carries the values shared by every page layout.
type Page struct {
	Title        string
	AssetVersion string
}

// BoardLink is one entry on the index page.
type BoardLink struct {
	ID    string
	Title string
}

func stylesheetURL(p Page) templ.SafeURL {
	return templ.SafeURL("/static/board.css?v=" + p.AssetVersion)
}

func boardURL(id string) templ.SafeURL {
	return templ.URL("/boards/" + id)
}

func sseURL(entryID string) string {
	return "/sse/boards/" + entryID
}

func rowClass(d departure.Departure) string {
	if d.Delay > 0 {
		return "late " + string(d.TransportType)
	}
	return "on-time " + string(d.TransportType)
}

func delayLabel(d departure.Departure) string {
	switch {
	case d.Delay > 0:
		return "+" + strconv.Itoa(d.Delay)
	case d.Delay < 0:
		return strconv.Itoa(d.Delay)
	case d.Realtime:
		return "on time"
	}
	return ""
}

func summary(b departure.Board) string {
	return fmt.Sprintf("%d departures, %d delayed, updated %s",
		b.TotalDepartures, b.DelayedCount, b.LastUpdated.Format("15:04:05 MST"))
}
