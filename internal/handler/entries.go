package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"transitmon/internal/config"
	"transitmon/internal/coordinator"
	"transitmon/internal/storage"
)

// entryView is an entry as returned by the API, with credentials removed.
type entryView struct {
	ID        string         `json:"id"`
	UniqueID  string         `json:"unique_id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	Running   bool           `json:"running"`
	Station   config.Station `json:"station"`
}

func (h *Handler) view(e storage.Entry) entryView {
	st := e.Station
	st.APIKey, st.APIKeySecondary = "", ""
	_, running := h.manager.Get(e.ID)
	return entryView{
		ID:        e.ID,
		UniqueID:  e.UniqueID,
		Title:     e.Title,
		CreatedAt: e.CreatedAt,
		Running:   running,
		Station:   st,
	}
}

// ListEntries returns all configured stations.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.db.ListEntries(r.Context())
	if err != nil {
		h.logger.Error("listing entries", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, h.view(e))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entries": views})
}

// CreateEntry validates a station, stores it and starts polling it.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var st config.Station
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st.ApplyDefaults()
	if err := st.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	e, err := h.db.InsertEntry(r.Context(), st)
	if errors.Is(err, storage.ErrDuplicate) {
		h.writeError(w, http.StatusConflict, "station already configured")
		return
	}
	if err != nil {
		h.logger.Error("storing entry", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if _, err := h.manager.Start(e.ID, e.Station); err != nil {
		h.logger.Error("starting coordinator", "entry", e.ID, "error", err)
	}
	h.writeJSON(w, http.StatusCreated, h.view(e))
}

// GetEntry returns one configured station.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.db.GetEntry(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	if err != nil {
		h.logger.Error("loading entry", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.writeJSON(w, http.StatusOK, h.view(e))
}

// DeleteEntry stops polling a station and removes it.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.manager.Stop(id)

	err := h.db.DeleteEntry(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	if err != nil {
		h.logger.Error("deleting entry", "entry", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// coordinator returns the running coordinator for the request's entry, or
// writes a 404.
func (h *Handler) coordinator(w http.ResponseWriter, r *http.Request) (*coordinator.Coordinator, bool) {
	c, ok := h.manager.Get(r.PathValue("id"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "entry not found")
	}
	return c, ok
}

// Board returns the current departure board of an entry.
func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	c, ok := h.coordinator(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, c.Board(h.now()))
}

// Refresh schedules an immediate update of an entry.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	c, ok := h.coordinator(w, r)
	if !ok {
		return
	}
	c.RequestRefresh()
	w.WriteHeader(http.StatusAccepted)
}

// Diagnostics returns the polling health of an entry.
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	c, ok := h.coordinator(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, c.Diagnostics())
}
