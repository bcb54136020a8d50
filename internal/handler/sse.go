package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"transitmon/internal/coordinator"
	"transitmon/internal/templates"
)

// minSSEInterval bounds how often a board stream is re-rendered.
const minSSEInterval = 5 * time.Second

// BoardPage serves the HTML departure board of an entry.
func (h *Handler) BoardPage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, ok := h.manager.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	b := c.Board(h.now())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.BoardPage(h.page(b.StationName), id, b).Render(r.Context(), w); err != nil {
		h.logger.Error("rendering board page", "error", err)
	}
}

// SSEBoard streams the departure table of an entry via Server-Sent Events.
// The HTMX SSE extension on the client listens for "board" events and swaps the HTML.
func (h *Handler) SSEBoard(w http.ResponseWriter, r *http.Request) {
	c, ok := h.manager.Get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	h.sendBoardEvent(ctx, w, flusher, c)

	// The board only changes when the coordinator polls.
	ticker := time.NewTicker(max(c.Interval(), minSSEInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sendBoardEvent(ctx, w, flusher, c)
		case <-ctx.Done():
			return
		}
	}
}

// sendBoardEvent renders the departure table as HTML and sends it as an SSE event.
func (h *Handler) sendBoardEvent(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, c *coordinator.Coordinator) {
	var buf bytes.Buffer
	if err := templates.DepartureTable(c.Board(h.now())).Render(ctx, &buf); err != nil {
		h.logger.Error("rendering SSE board", "error", err)
		return
	}

	// SSE format: event name, then data lines (each line prefixed with "data: ")
	fmt.Fprintf(w, "event: board\n")
	for _, line := range bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n")) {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprintf(w, "\n")
	flusher.Flush()
}
