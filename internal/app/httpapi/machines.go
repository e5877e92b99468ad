package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	domaininv "github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/domain/machine"
	"github.com/vendnet/vendops/internal/app/storage"
)

func (h *handler) handleListMachines(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	machines, err := h.app.Machines.List(r.Context(), storage.MachineFilter{
		Status:            machine.Status(q.Get("status")),
		Type:              machine.Type(q.Get("type")),
		ResponsibleUserID: q.Get("responsible_user_id"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, machines)
}

func (h *handler) handleCreateMachine(w http.ResponseWriter, r *http.Request) {
	var payload machine.Machine
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Machines.Register(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.hub.Publish("machine.created", created)
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleGetMachine(w http.ResponseWriter, r *http.Request) {
	m, err := h.app.Machines.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) handleUpdateMachine(w http.ResponseWriter, r *http.Request) {
	var payload machine.Machine
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payload.ID = mux.Vars(r)["id"]
	updated, err := h.app.Machines.Update(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleDeleteMachine(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Machines.Decommission(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleMachineStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status machine.Status `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Machines.SetStatus(r.Context(), mux.Vars(r)["id"], payload.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.hub.Publish("machine.status", updated)
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleMachineStatistics(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stats, err := h.app.Machines.Statistics(r.Context(), mux.Vars(r)["id"], from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) handleMachineInventory(w http.ResponseWriter, r *http.Request) {
	loc := domaininv.Location{Type: domaininv.LocationMachine, ID: mux.Vars(r)["id"]}
	levels, err := h.app.Inventory.Levels(r.Context(), loc)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, levels)
}
