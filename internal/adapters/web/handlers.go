package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"commission-engine/internal/app"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(maxBodyBytes))

	r.Get("/api/health", h.health)

	// ── Master data ───────────────────────────────────────────────────────────
	r.Post("/api/salespersons", h.createSalesperson)
	r.Get("/api/salespersons", h.listSalespersons)
	r.Post("/api/customers", h.createCustomer)
	r.Get("/api/customers", h.listCustomers)
	r.Get("/api/customers/{id}/zone", h.resolveCustomerZone)
	r.Post("/api/categories", h.createCategory)
	r.Get("/api/categories", h.listCategories)
	r.Post("/api/products", h.createProduct)
	r.Get("/api/products", h.listProducts)

	// ── Zones and rules ───────────────────────────────────────────────────────
	r.Post("/api/zones", h.createZone)
	r.Get("/api/zones", h.listZones)
	r.Post("/api/rules", h.createRule)
	r.Get("/api/rules", h.listRules)
	r.Post("/api/rules/{id}/deactivate", h.deactivateRule)

	// ── Invoice lifecycle (event ingestion) ───────────────────────────────────
	r.Post("/api/invoices", h.createInvoice)
	r.Get("/api/invoices", h.listInvoices)
	r.Get("/api/invoices/{id}", h.getInvoice)
	r.Post("/api/invoices/{id}/post", h.postInvoice)
	r.Post("/api/invoices/{id}/payment-state", h.setInvoicePaymentState)
	r.Get("/api/invoices/{id}/commissions", h.invoiceCommissions)

	// ── Commission queries and billing ────────────────────────────────────────
	r.Get("/api/commissions", h.listCommissions)
	r.Post("/api/bill-requests", h.createBillRequests)
	r.Get("/api/bills", h.listBills)
	r.Get("/api/bills/{id}", h.getBill)
	r.Post("/api/bills/{id}/payment-state", h.setBillPaymentState)
	r.Delete("/api/bills/{id}", h.deleteBill)

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// idParam parses the {id} URL parameter.
func idParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

// companyParam reads the required ?company query parameter.
func companyParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	company := r.URL.Query().Get("company")
	if company == "" {
		writeError(w, r, "company query parameter is required", "MISSING_COMPANY", http.StatusBadRequest)
		return "", false
	}
	return company, true
}
