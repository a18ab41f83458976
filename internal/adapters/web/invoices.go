package web

import (
	"encoding/json"
	"net/http"

	"commission-engine/internal/app"
	"commission-engine/internal/core"
)

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	inv, err := h.svc.CreateInvoice(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, inv)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	company, ok := companyParam(w, r)
	if !ok {
		return
	}
	var status *core.InvoiceStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := core.InvoiceStatus(raw)
		if s != core.InvoiceStatusDraft && s != core.InvoiceStatusPosted {
			writeError(w, r, "invalid status filter", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		status = &s
	}
	result, err := h.svc.ListInvoices(r.Context(), company, status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, "invalid invoice id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	inv, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, inv)
}

// postInvoice finalizes a draft document. Commission generation failures do
// not roll back the posting; they surface in the commission_error field.
func (h *Handler) postInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, "invalid invoice id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.PostInvoice(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) setInvoicePaymentState(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, "invalid invoice id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req struct {
		PaymentState core.PaymentState `json:"payment_state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	inv, err := h.svc.SetInvoicePaymentState(r.Context(), id, req.PaymentState)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, inv)
}

func (h *Handler) invoiceCommissions(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, "invalid invoice id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.GetInvoiceCommissions(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
