package handler

import (
	"net/http"

	"transitmon/internal/storage"
	"transitmon/internal/templates"
)

// Home lists the configured departure boards.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	entries, err := h.db.ListEntries(r.Context())
	if err != nil {
		h.logger.Error("listing entries", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.IndexPage(h.page("Departure boards"), links(entries)).Render(r.Context(), w); err != nil {
		h.logger.Error("rendering index page", "error", err)
	}
}

func links(entries []storage.Entry) []templates.BoardLink {
	out := make([]templates.BoardLink, 0, len(entries))
	for _, e := range entries {
		out = append(out, templates.BoardLink{ID: e.ID, Title: e.Title})
	}
	return out
}
