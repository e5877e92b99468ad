package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vendnet/vendops/internal/app/domain/catalog"
)

func (h *handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	products, err := h.app.Catalog.ListProducts(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var payload catalog.Product
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Catalog.CreateProduct(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Catalog.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var payload catalog.Product
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payload.ID = mux.Vars(r)["id"]
	updated, err := h.app.Catalog.UpdateProduct(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.app.Catalog.ListRecipes(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (h *handler) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	var payload catalog.Recipe
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payload.ProductID = mux.Vars(r)["id"]
	created, err := h.app.Catalog.CreateRecipe(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleActivateRecipe(w http.ResponseWriter, r *http.Request) {
	activated, err := h.app.Catalog.ActivateRecipe(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activated)
}

func (h *handler) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	recipe, err := h.app.Catalog.GetRecipe(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	cost, err := h.app.Catalog.RecipeCost(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		catalog.Recipe
		Cost float64 `json:"cost"`
	}{Recipe: recipe, Cost: cost})
}
