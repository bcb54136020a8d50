package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"transitmon/internal/provider"
	"transitmon/internal/search"
)

type sessionRequest struct {
	Provider        string `json:"provider"`
	APIKey          string `json:"api_key"`
	APIKeySecondary string `json:"api_key_secondary"`
}

// CreateSearchSession starts a stop search session for one provider. Each
// session has its own result cache and expires after a period of disuse.
func (h *Handler) CreateSearchSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := h.manager.NewProvider(req.Provider, req.APIKey, req.APIKeySecondary)
	if p == nil {
		h.writeError(w, http.StatusBadRequest, "unknown provider")
		return
	}

	id := uuid.NewString()
	if err := h.sessions.Set(id, search.NewEngine(p, h.logger)); err != nil {
		h.logger.Error("storing search session", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.logger.Debug("search session created", "session", id, "provider", p.ID())

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"id":            id,
		"provider":      p.ID(),
		"provider_name": p.Name(),
		"expires_in":    int(searchSessionTTL.Seconds()),
	})
}

// SearchStops answers an autocomplete query within a session. The type
// parameter selects "stop" (default) or "location" search.
func (h *Handler) SearchStops(w http.ResponseWriter, r *http.Request) {
	v, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "search session not found")
		return
	}
	engine := v.(*search.Engine)

	kind := provider.SearchKind(r.URL.Query().Get("type"))
	switch kind {
	case "":
		kind = provider.SearchStop
	case provider.SearchStop, provider.SearchLocation:
	default:
		h.writeError(w, http.StatusBadRequest, "type must be stop or location")
		return
	}

	term := strings.TrimSpace(r.URL.Query().Get("q"))
	results := engine.Search(r.Context(), kind, term)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"query":   term,
		"type":    kind,
		"results": results,
	})
}
