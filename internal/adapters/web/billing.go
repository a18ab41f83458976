package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"commission-engine/internal/app"
	"commission-engine/internal/core"
)

func (h *Handler) listCommissions(w http.ResponseWriter, r *http.Request) {
	company, ok := companyParam(w, r)
	if !ok {
		return
	}
	filter, ok := commissionFilterFromQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListCommissions(r.Context(), company, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func commissionFilterFromQuery(w http.ResponseWriter, r *http.Request) (core.CommissionFilter, bool) {
	var filter core.CommissionFilter
	q := r.URL.Query()

	for _, p := range []struct {
		key  string
		dest **int
	}{
		{"salesperson_id", &filter.SalespersonID},
		{"invoice_id", &filter.InvoiceID},
	} {
		if raw := q.Get(p.key); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, r, "invalid "+p.key, "BAD_REQUEST", http.StatusBadRequest)
				return filter, false
			}
			*p.dest = &id
		}
	}

	if raw := q.Get("invoicing_status"); raw != "" {
		s := core.AccrualStatus(raw)
		if s != core.AccrualPending && s != core.AccrualAccrued {
			writeError(w, r, "invalid invoicing_status", "BAD_REQUEST", http.StatusBadRequest)
			return filter, false
		}
		filter.InvoicingStatus = &s
	}
	if raw := q.Get("collection_status"); raw != "" {
		s := core.AccrualStatus(raw)
		if s != core.AccrualPending && s != core.AccrualAccrued {
			writeError(w, r, "invalid collection_status", "BAD_REQUEST", http.StatusBadRequest)
			return filter, false
		}
		filter.CollectionStatus = &s
	}
	if raw := q.Get("billing_status"); raw != "" {
		s := core.BillingStatus(raw)
		if s != core.BillingPending && s != core.BillingPartial && s != core.BillingBilled {
			writeError(w, r, "invalid billing_status", "BAD_REQUEST", http.StatusBadRequest)
			return filter, false
		}
		filter.BillingStatus = &s
	}
	if raw := q.Get("payment_status"); raw != "" {
		s := core.PaymentStatus(raw)
		if s != core.PaymentPending && s != core.PaymentPartial && s != core.PaymentPaid {
			writeError(w, r, "invalid payment_status", "BAD_REQUEST", http.StatusBadRequest)
			return filter, false
		}
		filter.PaymentStatus = &s
	}
	return filter, true
}

func (h *Handler) createBillRequests(w http.ResponseWriter, r *http.Request) {
	var req app.CreateBillRequestsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.CreateBillRequests(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) listBills(w http.ResponseWriter, r *http.Request) {
	company, ok := companyParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListBills(r.Context(), company)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) getBill(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, "invalid bill id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	bill, err := h.svc.GetBill(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, bill)
}

func (h *Handler) setBillPaymentState(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, "invalid bill id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req struct {
		PaymentState core.PaymentState `json:"payment_state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	bill, err := h.svc.SetBillPaymentState(r.Context(), id, req.PaymentState)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, bill)
}

// deleteBill removes a bill request; linked commission halves revert to
// unbilled and their projections are recomputed.
func (h *Handler) deleteBill(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, "invalid bill id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if err := h.svc.DeleteBill(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}
