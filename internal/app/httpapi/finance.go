package httpapi

import (
	"fmt"
	"net/http"

	"github.com/vendnet/vendops/internal/app/domain/finance"
	"github.com/vendnet/vendops/internal/app/storage"
)

func (h *handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.app.Finance.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var a finance.Account
	if err := decodeJSON(r.Body, &a); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Finance.CreateAccount(r.Context(), a)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	q := r.URL.Query()
	txs, err := h.app.Finance.ListTransactions(r.Context(), storage.TransactionFilter{
		Type:          finance.TransactionType(q.Get("type")),
		Category:      finance.Category(q.Get("category")),
		AccountID:     q.Get("account_id"),
		ReferenceType: q.Get("reference_type"),
		ReferenceID:   q.Get("reference_id"),
		From:          from,
		To:            to,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *handler) handlePostTransaction(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Type          string  `json:"type"`
		Category      string  `json:"category"`
		FromAccountID string  `json:"from_account_id"`
		ToAccountID   string  `json:"to_account_id"`
		Amount        float64 `json:"amount"`
		Description   string  `json:"description"`
		ReferenceType string  `json:"reference_type"`
		ReferenceID   string  `json:"reference_id"`
		OccurredAt    string  `json:"occurred_at"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	t := finance.Transaction{
		Type:          finance.TransactionType(payload.Type),
		Category:      finance.Category(payload.Category),
		FromAccountID: payload.FromAccountID,
		ToAccountID:   payload.ToAccountID,
		Amount:        payload.Amount,
		Description:   payload.Description,
		ReferenceType: payload.ReferenceType,
		ReferenceID:   payload.ReferenceID,
	}
	if payload.OccurredAt != "" {
		at, err := parseTime(payload.OccurredAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		t.OccurredAt = at
	}
	if u, ok := currentUser(r.Context()); ok {
		t.CreatedByID = u.ID
	}
	created, err := h.app.Finance.Post(r.Context(), t)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleFinanceSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	summary, err := h.app.Finance.Summary(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) handleFinanceExport(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	name := fmt.Sprintf("transactions_%s_%s.csv", from.Format("2006-01-02"), to.Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := h.app.Finance.ExportCSV(r.Context(), w, from, to); err != nil {
		h.log.WithField("error", err.Error()).Error("Finance export failed")
	}
}
