package handler

import (
	"net/http"

	"transitmon/internal/provider"
)

// Providers lists the supported transit APIs.
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"providers": provider.Describe()})
}
