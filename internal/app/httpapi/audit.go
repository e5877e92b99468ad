package httpapi

import (
	"errors"
	"net/http"
	"strconv"
)

var errInvalidLimit = errors.New("limit must be a positive integer")

func (h *handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = n
	}
	entries, err := h.audit.ListAudit(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
