package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vendnet/vendops/internal/app/domain/collection"
	"github.com/vendnet/vendops/internal/app/storage"
)

func (h *handler) handleListCollections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.CollectionFilter{
		MachineID:  q.Get("machine_id"),
		OperatorID: q.Get("operator_id"),
		Status:     collection.Status(q.Get("status")),
	}
	if raw := q.Get("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		filter.From = t
	}
	collections, err := h.app.Collections.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collections)
}

func (h *handler) handlePendingCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.app.Collections.PendingVerification(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collections)
}

func (h *handler) handleStartCollection(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MachineID string `json:"machine_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	operatorID := ""
	if u, ok := currentUser(r.Context()); ok {
		operatorID = u.ID
	}
	created, err := h.app.Collections.Start(r.Context(), payload.MachineID, operatorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Collections.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) handleSetDenominations(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Denominations []collection.Denomination `json:"denominations"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	operatorID := ""
	if u, ok := currentUser(r.Context()); ok {
		operatorID = u.ID
	}
	updated, err := h.app.Collections.SetDenominations(r.Context(), mux.Vars(r)["id"], operatorID, payload.Denominations)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleCompleteCollection(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	operatorID := ""
	if u, ok := currentUser(r.Context()); ok {
		operatorID = u.ID
	}
	updated, err := h.app.Collections.Complete(r.Context(), mux.Vars(r)["id"], operatorID, payload.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleVerifyCollection(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Approved bool   `json:"approved"`
		Notes    string `json:"notes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	verifierID := ""
	if u, ok := currentUser(r.Context()); ok {
		verifierID = u.ID
	}
	updated, err := h.app.Collections.Verify(r.Context(), mux.Vars(r)["id"], verifierID, payload.Approved, payload.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
