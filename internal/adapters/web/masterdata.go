package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"commission-engine/internal/app"
)

func (h *Handler) createSalesperson(w http.ResponseWriter, r *http.Request) {
	var req app.CreateSalespersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	sp, err := h.svc.CreateSalesperson(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, sp)
}

func (h *Handler) listSalespersons(w http.ResponseWriter, r *http.Request) {
	company, ok := companyParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListSalespersons(r.Context(), company)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req app.CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	c, err := h.svc.CreateCustomer(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	company, ok := companyParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListCustomers(r.Context(), company)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// resolveCustomerZone handles GET /api/customers/{id}/zone. A customer with
// no effective zone returns {"zone": null}.
func (h *Handler) resolveCustomerZone(w http.ResponseWriter, r *http.Request) {
	company, ok := companyParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, "invalid customer id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	zone, err := h.svc.ResolveCustomerZone(r.Context(), company, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"zone": zone})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyCode string `json:"company_code"`
		Name        string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), req.CompanyCode, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	company, ok := companyParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListCategories(r.Context(), company)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req app.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	company, ok := companyParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListProducts(r.Context(), company)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) createZone(w http.ResponseWriter, r *http.Request) {
	var req app.CreateZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	z, err := h.svc.CreateZone(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, z)
}

func (h *Handler) listZones(w http.ResponseWriter, r *http.Request) {
	company, ok := companyParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListZones(r.Context(), company)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) createRule(w http.ResponseWriter, r *http.Request) {
	var req app.CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	rule, err := h.svc.CreateRule(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rule)
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	company, ok := companyParam(w, r)
	if !ok {
		return
	}
	var salespersonID *int
	if sp := r.URL.Query().Get("salesperson_id"); sp != "" {
		id, err := strconv.Atoi(sp)
		if err != nil {
			writeError(w, r, "invalid salesperson_id", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		salespersonID = &id
	}
	result, err := h.svc.ListRules(r.Context(), company, salespersonID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) deactivateRule(w http.ResponseWriter, r *http.Request) {
	company, ok := companyParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, "invalid rule id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if err := h.svc.DeactivateRule(r.Context(), company, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "deactivated"})
}
