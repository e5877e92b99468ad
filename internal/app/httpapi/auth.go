package httpapi

import (
	"fmt"
	"net/http"

	"github.com/vendnet/vendops/internal/app/domain/user"
	"github.com/vendnet/vendops/internal/app/services/auth"
)

type loginResponse struct {
	User   user.User      `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, pair, err := h.app.Auth.LoginPassword(r.Context(), payload.Login, payload.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{User: u, Tokens: pair})
}

func (h *handler) handleTelegramLogin(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := decodeJSON(r.Body, &fields); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, pair, err := h.app.Auth.LoginTelegram(r.Context(), fields)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{User: u, Tokens: pair})
}

func (h *handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pair, err := h.app.Auth.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Auth.Logout(r.Context(), payload.RefreshToken); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("not authenticated"))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) handleOwnPassword(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("not authenticated"))
		return
	}
	var payload struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Users.SetPassword(r.Context(), u.ID, payload.Password); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
