package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/vendnet/vendops/internal/app/domain/sale"
	"github.com/vendnet/vendops/internal/app/metrics"
	salesvc "github.com/vendnet/vendops/internal/app/services/sales"
	"github.com/vendnet/vendops/internal/app/storage"
)

func (h *handler) handleListSales(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	q := r.URL.Query()
	sales, err := h.app.Sales.List(r.Context(), storage.SaleFilter{
		MachineID:  q.Get("machine_id"),
		From:       from,
		To:         to,
		SyncStatus: sale.SyncStatus(q.Get("sync_status")),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (h *handler) handleRecordSale(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MachineID     string          `json:"machine_id"`
		ProductID     string          `json:"product_id"`
		Quantity      int             `json:"quantity"`
		UnitPrice     float64         `json:"unit_price"`
		PaymentMethod string          `json:"payment_method"`
		TransactionID string          `json:"transaction_id"`
		SoldAt        string          `json:"sold_at"`
		RawData       json.RawMessage `json:"raw_data"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in := salesvc.RecordInput{
		MachineID:     payload.MachineID,
		ProductID:     payload.ProductID,
		Quantity:      payload.Quantity,
		UnitPrice:     payload.UnitPrice,
		PaymentMethod: sale.PaymentMethod(payload.PaymentMethod),
		TransactionID: payload.TransactionID,
		RawData:       payload.RawData,
	}
	if payload.SoldAt != "" {
		t, err := parseTime(payload.SoldAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		in.SoldAt = t
	}
	created, err := h.app.Sales.Record(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.RecordSale(string(created.PaymentMethod), created.TotalAmount)
	h.hub.Publish("sale.recorded", created)
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	q := r.URL.Query()
	filter := storage.PaymentFilter{Source: q.Get("source"), From: from, To: to}
	if raw := q.Get("verified"); raw != "" {
		verified := raw == "true"
		filter.Verified = &verified
	}
	payments, err := h.app.Sales.ListPayments(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *handler) handleIngestPayment(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Source     string          `json:"source"`
		ExternalID string          `json:"external_id"`
		Amount     float64         `json:"amount"`
		Method     string          `json:"method"`
		PaidAt     string          `json:"paid_at"`
		RawData    json.RawMessage `json:"raw_data"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p := sale.Payment{
		Source:     payload.Source,
		ExternalID: payload.ExternalID,
		Amount:     payload.Amount,
		Method:     sale.PaymentMethod(payload.Method),
		RawData:    payload.RawData,
	}
	if payload.PaidAt != "" {
		t, err := parseTime(payload.PaidAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		p.PaidAt = t
	}
	created, err := h.app.Sales.IngestPayment(r.Context(), p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	report, err := h.app.Sales.Reconcile(r.Context(), from, to)
	metrics.RecordReconciliation(len(report.Discrepancies), err == nil)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.hub.Publish("reconciliation.finished", report)
	writeJSON(w, http.StatusOK, report)
}

func (h *handler) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	report, err := h.app.Sales.Report(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
