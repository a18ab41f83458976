package app

import (
	"context"

	"commission-engine/internal/core"
)

// ApplicationService is the single interface the HTTP adapter calls. It keeps
// presentation concerns out of the engine: company codes are resolved here,
// core services do the rest.
type ApplicationService interface {
	// LoadCompany resolves a company by its code.
	LoadCompany(ctx context.Context, companyCode string) (*core.Company, error)

	// Master data
	CreateSalesperson(ctx context.Context, req CreateSalespersonRequest) (*core.Salesperson, error)
	ListSalespersons(ctx context.Context, companyCode string) ([]core.Salesperson, error)
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*core.Customer, error)
	ListCustomers(ctx context.Context, companyCode string) ([]core.Customer, error)
	CreateCategory(ctx context.Context, companyCode, name string) (*core.ProductCategory, error)
	ListCategories(ctx context.Context, companyCode string) ([]core.ProductCategory, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (*core.Product, error)
	ListProducts(ctx context.Context, companyCode string) ([]core.Product, error)

	// Zones and rules
	CreateZone(ctx context.Context, req CreateZoneRequest) (*core.CommercialZone, error)
	ListZones(ctx context.Context, companyCode string) ([]core.CommercialZone, error)
	// ResolveCustomerZone returns the customer's effective zone, or nil.
	ResolveCustomerZone(ctx context.Context, companyCode string, customerID int) (*core.CommercialZone, error)
	CreateRule(ctx context.Context, req CreateRuleRequest) (*core.CommissionRule, error)
	ListRules(ctx context.Context, companyCode string, salespersonID *int) ([]core.CommissionRule, error)
	DeactivateRule(ctx context.Context, companyCode string, ruleID int) error

	// Invoice lifecycle (event ingestion)
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*core.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID int) (*core.Invoice, error)
	ListInvoices(ctx context.Context, companyCode string, status *core.InvoiceStatus) ([]core.Invoice, error)
	// PostInvoice finalizes the document and triggers commission generation.
	PostInvoice(ctx context.Context, invoiceID int) (*PostInvoiceResult, error)
	// SetInvoicePaymentState feeds a settlement-state change into the engine.
	SetInvoicePaymentState(ctx context.Context, invoiceID int, state core.PaymentState) (*core.Invoice, error)

	// Commission queries
	ListCommissions(ctx context.Context, companyCode string, filter core.CommissionFilter) ([]core.Commission, error)
	GetInvoiceCommissions(ctx context.Context, invoiceID int) ([]core.Commission, error)

	// Billing
	CreateBillRequests(ctx context.Context, req CreateBillRequestsRequest) (*BillRequestsResult, error)
	ListBills(ctx context.Context, companyCode string) ([]core.VendorBill, error)
	GetBill(ctx context.Context, billID int) (*core.VendorBill, error)
	SetBillPaymentState(ctx context.Context, billID int, state core.PaymentState) (*core.VendorBill, error)
	DeleteBill(ctx context.Context, billID int) error
}
