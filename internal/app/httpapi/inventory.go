package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	domaininv "github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/services/inventory"
)

func (h *handler) handleListIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.app.Inventory.ListIngredients(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredients)
}

func (h *handler) handleCreateIngredient(w http.ResponseWriter, r *http.Request) {
	var payload domaininv.Ingredient
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Inventory.CreateIngredient(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleUpdateIngredient(w http.ResponseWriter, r *http.Request) {
	var payload domaininv.Ingredient
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payload.ID = mux.Vars(r)["id"]
	updated, err := h.app.Inventory.UpdateIngredient(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	movements, err := h.app.Inventory.Movements(r.Context(), mux.Vars(r)["id"], from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movements)
}

func (h *handler) handleLevels(w http.ResponseWriter, r *http.Request) {
	loc, err := locationFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	levels, err := h.app.Inventory.Levels(r.Context(), loc)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, levels)
}

// movementPayload is the shared request body for stock operations.
type movementPayload struct {
	LocationType string  `json:"location_type"`
	LocationID   string  `json:"location_id"`
	IngredientID string  `json:"ingredient_id"`
	Quantity     float64 `json:"quantity"`
	BatchNumber  string  `json:"batch_number"`
	ExpiryDate   string  `json:"expiry_date"`
	Notes        string  `json:"notes"`
}

func (p movementPayload) location() domaininv.Location {
	return domaininv.Location{Type: domaininv.LocationType(p.LocationType), ID: p.LocationID}
}

func (p movementPayload) movement() (inventory.Movement, error) {
	mv := inventory.Movement{
		IngredientID: p.IngredientID,
		Quantity:     p.Quantity,
		BatchNumber:  p.BatchNumber,
		Notes:        p.Notes,
	}
	if p.ExpiryDate != "" {
		t, err := parseTime(p.ExpiryDate)
		if err != nil {
			return inventory.Movement{}, fmt.Errorf("expiry_date: %w", err)
		}
		mv.ExpiryDate = t
	}
	return mv, nil
}

func (h *handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	h.handleMovementOp(w, r, h.app.Inventory.Receive)
}

func (h *handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	h.handleMovementOp(w, r, h.app.Inventory.Issue)
}

func (h *handler) handleMovementOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, loc domaininv.Location, mv inventory.Movement, actorID string) (domaininv.Level, error)) {
	var payload movementPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	mv, err := payload.movement()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	actorID := ""
	if u, ok := currentUser(r.Context()); ok {
		actorID = u.ID
	}
	level, err := op(r.Context(), payload.location(), mv, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, level)
}

func (h *handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FromType     string  `json:"from_type"`
		FromID       string  `json:"from_id"`
		ToType       string  `json:"to_type"`
		ToID         string  `json:"to_id"`
		IngredientID string  `json:"ingredient_id"`
		Quantity     float64 `json:"quantity"`
		Notes        string  `json:"notes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	actorID := ""
	if u, ok := currentUser(r.Context()); ok {
		actorID = u.ID
	}
	from := domaininv.Location{Type: domaininv.LocationType(payload.FromType), ID: payload.FromID}
	to := domaininv.Location{Type: domaininv.LocationType(payload.ToType), ID: payload.ToID}
	mv := inventory.Movement{IngredientID: payload.IngredientID, Quantity: payload.Quantity, Notes: payload.Notes}
	if err := h.app.Inventory.Transfer(r.Context(), from, to, mv, actorID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var payload movementPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	actorID := ""
	if u, ok := currentUser(r.Context()); ok {
		actorID = u.ID
	}
	level, err := h.app.Inventory.Adjust(r.Context(), payload.location(), payload.IngredientID, payload.Quantity, payload.Notes, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, level)
}

func (h *handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	warehouseID := r.URL.Query().Get("warehouse_id")
	if warehouseID == "" {
		warehouseID = "main"
	}
	report, err := h.app.Inventory.LowStockReport(r.Context(), warehouseID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func locationFromQuery(r *http.Request) (domaininv.Location, error) {
	q := r.URL.Query()
	loc := domaininv.Location{
		Type: domaininv.LocationType(q.Get("location_type")),
		ID:   q.Get("location_id"),
	}
	if !domaininv.ValidLocationType(loc.Type) {
		return domaininv.Location{}, fmt.Errorf("unsupported location type %q", loc.Type)
	}
	if loc.ID == "" {
		return domaininv.Location{}, fmt.Errorf("location_id is required")
	}
	return loc, nil
}
