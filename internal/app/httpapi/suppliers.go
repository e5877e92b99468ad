package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vendnet/vendops/internal/app/domain/supplier"
	"github.com/vendnet/vendops/internal/app/services/suppliers"
	"github.com/vendnet/vendops/internal/app/storage"
)

func (h *handler) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	list, err := h.app.Suppliers.ListSuppliers(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var sp supplier.Supplier
	if err := decodeJSON(r.Body, &sp); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Suppliers.CreateSupplier(r.Context(), sp)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	sp, err := h.app.Suppliers.GetSupplier(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (h *handler) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var sp supplier.Supplier
	if err := decodeJSON(r.Body, &sp); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sp.ID = mux.Vars(r)["id"]
	updated, err := h.app.Suppliers.UpdateSupplier(r.Context(), sp)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.app.Suppliers.ListPurchases(r.Context(), storage.PurchaseFilter{
		SupplierID: q.Get("supplier_id"),
		Status:     supplier.PurchaseStatus(q.Get("status")),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SupplierID   string `json:"supplier_id"`
		DeliveryDate string `json:"delivery_date"`
		Notes        string `json:"notes"`
		Items        []struct {
			IngredientID string  `json:"ingredient_id"`
			Quantity     float64 `json:"quantity"`
			PricePerUnit float64 `json:"price_per_unit"`
		} `json:"items"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var deliveryDate time.Time
	if payload.DeliveryDate != "" {
		t, err := parseTime(payload.DeliveryDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		deliveryDate = t
	}
	items := make([]suppliers.PurchaseItemInput, 0, len(payload.Items))
	for _, it := range payload.Items {
		items = append(items, suppliers.PurchaseItemInput{
			IngredientID: it.IngredientID,
			Quantity:     it.Quantity,
			PricePerUnit: it.PricePerUnit,
		})
	}
	actorID := ""
	if u, ok := currentUser(r.Context()); ok {
		actorID = u.ID
	}
	created, err := h.app.Suppliers.CreatePurchase(r.Context(), payload.SupplierID, items, deliveryDate, payload.Notes, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Suppliers.GetPurchase(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) handleConfirmPurchase(w http.ResponseWriter, r *http.Request) {
	actorID := ""
	if u, ok := currentUser(r.Context()); ok {
		actorID = u.ID
	}
	updated, err := h.app.Suppliers.ConfirmPurchase(r.Context(), mux.Vars(r)["id"], actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleCancelPurchase(w http.ResponseWriter, r *http.Request) {
	updated, err := h.app.Suppliers.CancelPurchase(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleReceivePurchase(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		WarehouseID string             `json:"warehouse_id"`
		Received    map[string]float64 `json:"received"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	actorID := ""
	if u, ok := currentUser(r.Context()); ok {
		actorID = u.ID
	}
	updated, err := h.app.Suppliers.ReceivePurchase(r.Context(), mux.Vars(r)["id"], payload.WarehouseID, payload.Received, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
