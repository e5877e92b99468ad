package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	userssvc "github.com/vendnet/vendops/internal/app/services/users"
)

func (h *handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.app.Users.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TelegramID int64    `json:"telegram_id"`
		Phone      string   `json:"phone"`
		Email      string   `json:"email"`
		Username   string   `json:"username"`
		FullName   string   `json:"full_name"`
		Password   string   `json:"password"`
		Roles      []string `json:"roles"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Users.Create(r.Context(), userssvc.CreateInput{
		TelegramID: payload.TelegramID,
		Phone:      payload.Phone,
		Email:      payload.Email,
		Username:   payload.Username,
		FullName:   payload.FullName,
		Password:   payload.Password,
		Roles:      payload.Roles,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.app.Users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Phone    *string           `json:"phone"`
		Email    *string           `json:"email"`
		FullName *string           `json:"full_name"`
		Active   *bool             `json:"active"`
		Verified *bool             `json:"verified"`
		Settings map[string]string `json:"settings"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Users.Update(r.Context(), mux.Vars(r)["id"], userssvc.UpdateInput{
		Phone:    payload.Phone,
		Email:    payload.Email,
		FullName: payload.FullName,
		Active:   payload.Active,
		Verified: payload.Verified,
		Settings: payload.Settings,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Users.Deactivate(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleAssignRoles(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Roles []string `json:"roles"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Users.AssignRoles(r.Context(), mux.Vars(r)["id"], payload.Roles)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.app.Users.ListRoles(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}
