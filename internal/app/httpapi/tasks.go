package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vendnet/vendops/internal/app/domain/task"
	taskssvc "github.com/vendnet/vendops/internal/app/services/tasks"
	"github.com/vendnet/vendops/internal/app/storage"
)

func (h *handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.TaskFilter{
		MachineID:    q.Get("machine_id"),
		AssignedToID: q.Get("assigned_to_id"),
		Status:       task.Status(q.Get("status")),
	}
	if q.Get("mine") == "true" {
		if u, ok := currentUser(r.Context()); ok {
			filter.AssignedToID = u.ID
		}
	}
	tasks, err := h.app.Tasks.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var payload task.Task
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Tasks.Create(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.hub.Publish("task.created", created)
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.app.Tasks.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Tasks.Assign(r.Context(), mux.Vars(r)["id"], payload.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.hub.Publish("task.assigned", updated)
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleStartTask(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("not authenticated"))
		return
	}
	updated, err := h.app.Tasks.Start(r.Context(), mux.Vars(r)["id"], u.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("not authenticated"))
		return
	}
	var payload struct {
		ActualQuantities map[string]float64 `json:"actual_quantities"`
		ResultData       map[string]string  `json:"result_data"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Tasks.Complete(r.Context(), mux.Vars(r)["id"], u.ID, taskssvc.CompleteInput{
		ActualQuantities: payload.ActualQuantities,
		ResultData:       payload.ResultData,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.hub.Publish("task.completed", updated)
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Tasks.Cancel(r.Context(), mux.Vars(r)["id"], payload.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
