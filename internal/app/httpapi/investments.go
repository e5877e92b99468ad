package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vendnet/vendops/internal/app/domain/investment"
	"github.com/vendnet/vendops/internal/app/storage"
)

func (h *handler) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.InvestmentFilter{
		MachineID:  q.Get("machine_id"),
		InvestorID: q.Get("investor_id"),
		Status:     investment.Status(q.Get("status")),
	}
	// Investors only see their own stakes.
	if u, ok := currentUser(r.Context()); ok && !u.HasPermission("investments", "create") {
		filter.InvestorID = u.ID
	}
	list, err := h.app.Investments.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) handleCreateInvestment(w http.ResponseWriter, r *http.Request) {
	var inv investment.Investment
	if err := decodeJSON(r.Body, &inv); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Investments.Create(r.Context(), inv)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleGetInvestment(w http.ResponseWriter, r *http.Request) {
	inv, err := h.app.Investments.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if u, ok := currentUser(r.Context()); ok && !u.HasPermission("investments", "create") && inv.InvestorID != u.ID {
		writeError(w, http.StatusForbidden, fmt.Errorf("not your investment"))
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *handler) handleUpdateInvestment(w http.ResponseWriter, r *http.Request) {
	var inv investment.Investment
	if err := decodeJSON(r.Body, &inv); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	inv.ID = mux.Vars(r)["id"]
	updated, err := h.app.Investments.Update(r.Context(), inv)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleListPayouts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payouts, err := h.app.Investments.ListPayouts(r.Context(), storage.PayoutFilter{
		InvestmentID: q.Get("investment_id"),
		Status:       investment.PayoutStatus(q.Get("status")),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payouts)
}

func (h *handler) handleComputePayouts(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MachineID   string `json:"machine_id"`
		PeriodStart string `json:"period_start"`
		PeriodEnd   string `json:"period_end"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	start, err := parseTime(payload.PeriodStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("period_start: %w", err))
		return
	}
	end, err := parseTime(payload.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("period_end: %w", err))
		return
	}
	payouts, err := h.app.Investments.ComputePayouts(r.Context(), payload.MachineID, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.hub.Publish("payouts.computed", payouts)
	writeJSON(w, http.StatusCreated, payouts)
}

func (h *handler) handlePayPayout(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AccountCode string `json:"account_code"`
		Reference   string `json:"reference"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.AccountCode == "" {
		payload.AccountCode = "bank_main"
	}
	paid, err := h.app.Investments.MarkPaid(r.Context(), mux.Vars(r)["id"], payload.AccountCode, payload.Reference)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.hub.Publish("payout.paid", paid)
	writeJSON(w, http.StatusOK, paid)
}
