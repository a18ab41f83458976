package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"commission-engine/internal/core"
)

type appService struct {
	pool        *pgxpool.Pool
	partners    core.PartnerService
	zones       core.ZoneService
	rules       core.RuleService
	invoices    core.InvoiceService
	commissions core.CommissionService
	billing     core.BillingService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	partners core.PartnerService,
	zones core.ZoneService,
	rules core.RuleService,
	invoices core.InvoiceService,
	commissions core.CommissionService,
	billing core.BillingService,
) ApplicationService {
	return &appService{
		pool:        pool,
		partners:    partners,
		zones:       zones,
		rules:       rules,
		invoices:    invoices,
		commissions: commissions,
		billing:     billing,
	}
}

func (s *appService) LoadCompany(ctx context.Context, companyCode string) (*core.Company, error) {
	var c core.Company
	err := s.pool.QueryRow(ctx,
		"SELECT id, company_code, name, base_currency FROM companies WHERE company_code = $1",
		companyCode,
	).Scan(&c.ID, &c.CompanyCode, &c.Name, &c.BaseCurrency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("company %s not found", companyCode)
		}
		return nil, fmt.Errorf("resolve company %s: %w", companyCode, err)
	}
	return &c, nil
}

func (s *appService) companyID(ctx context.Context, companyCode string) (int, error) {
	c, err := s.LoadCompany(ctx, companyCode)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

// ── Master data ──────────────────────────────────────────────────────────────

func (s *appService) CreateSalesperson(ctx context.Context, req CreateSalespersonRequest) (*core.Salesperson, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.partners.CreateSalesperson(ctx, companyID, req.Code, req.Name, req.Email)
}

func (s *appService) ListSalespersons(ctx context.Context, companyCode string) ([]core.Salesperson, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.partners.GetSalespersons(ctx, companyID)
}

func (s *appService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*core.Customer, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.partners.CreateCustomer(ctx, companyID, core.CustomerInput{
		Code:             req.Code,
		Name:             req.Name,
		ParentID:         req.ParentID,
		CountryCode:      req.CountryCode,
		StateCode:        req.StateCode,
		CommissionZoneID: req.CommissionZoneID,
	})
}

func (s *appService) ListCustomers(ctx context.Context, companyCode string) ([]core.Customer, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.partners.GetCustomers(ctx, companyID)
}

func (s *appService) CreateCategory(ctx context.Context, companyCode, name string) (*core.ProductCategory, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.partners.CreateCategory(ctx, companyID, name)
}

func (s *appService) ListCategories(ctx context.Context, companyCode string) ([]core.ProductCategory, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.partners.GetCategories(ctx, companyID)
}

func (s *appService) CreateProduct(ctx context.Context, req CreateProductRequest) (*core.Product, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.partners.CreateProduct(ctx, companyID, req.Code, req.Name, req.CategoryID)
}

func (s *appService) ListProducts(ctx context.Context, companyCode string) ([]core.Product, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.partners.GetProducts(ctx, companyID)
}

// ── Zones and rules ──────────────────────────────────────────────────────────

func (s *appService) CreateZone(ctx context.Context, req CreateZoneRequest) (*core.CommercialZone, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.zones.CreateZone(ctx, companyID, core.ZoneInput{
		Name:        req.Name,
		CountryCode: req.CountryCode,
		StateCode:   req.StateCode,
	})
}

func (s *appService) ListZones(ctx context.Context, companyCode string) ([]core.CommercialZone, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.zones.GetZones(ctx, companyID)
}

func (s *appService) ResolveCustomerZone(ctx context.Context, companyCode string, customerID int) (*core.CommercialZone, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	// Validates customer ownership before resolving.
	if _, err := s.partners.GetCustomer(ctx, companyID, customerID); err != nil {
		return nil, err
	}
	return s.zones.ResolveZone(ctx, customerID)
}

func (s *appService) CreateRule(ctx context.Context, req CreateRuleRequest) (*core.CommissionRule, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.rules.CreateRule(ctx, companyID, core.RuleInput{
		SalespersonID: req.SalespersonID,
		CustomerID:    req.CustomerID,
		ZoneID:        req.ZoneID,
		CategoryID:    req.CategoryID,
		Percentage:    req.Percentage,
	})
}

func (s *appService) ListRules(ctx context.Context, companyCode string, salespersonID *int) ([]core.CommissionRule, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.rules.GetRules(ctx, companyID, salespersonID)
}

func (s *appService) DeactivateRule(ctx context.Context, companyCode string, ruleID int) error {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return err
	}
	return s.rules.DeactivateRule(ctx, companyID, ruleID)
}

// ── Invoice lifecycle ────────────────────────────────────────────────────────

func (s *appService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*core.Invoice, error) {
	company, err := s.LoadCompany(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = company.BaseCurrency
	}

	lines := make([]core.InvoiceLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, core.InvoiceLineInput{
			DisplayType: l.DisplayType,
			ProductID:   l.ProductID,
			Description: l.Description,
			NetAmount:   l.NetAmount,
		})
	}

	return s.invoices.CreateInvoice(ctx, company.ID, core.InvoiceInput{
		DocType:       req.DocType,
		CustomerID:    req.CustomerID,
		SalespersonID: req.SalespersonID,
		InvoiceDate:   req.InvoiceDate,
		Currency:      currency,
		Lines:         lines,
	})
}

func (s *appService) GetInvoice(ctx context.Context, invoiceID int) (*core.Invoice, error) {
	return s.invoices.GetInvoice(ctx, invoiceID)
}

func (s *appService) ListInvoices(ctx context.Context, companyCode string, status *core.InvoiceStatus) ([]core.Invoice, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.invoices.GetInvoices(ctx, companyID, status)
}

func (s *appService) PostInvoice(ctx context.Context, invoiceID int) (*PostInvoiceResult, error) {
	posted, err := s.invoices.PostInvoice(ctx, invoiceID, s.commissions)
	if err != nil {
		return nil, err
	}

	result := &PostInvoiceResult{Invoice: posted.Invoice}
	if posted.GenerationErr != nil {
		result.CommissionError = posted.GenerationErr.Error()
		return result, nil
	}

	commissions, err := s.commissions.GetCommissionsForInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	result.Commissions = commissions
	return result, nil
}

func (s *appService) SetInvoicePaymentState(ctx context.Context, invoiceID int, state core.PaymentState) (*core.Invoice, error) {
	return s.invoices.SetPaymentState(ctx, invoiceID, state, s.commissions)
}

// ── Commission queries ───────────────────────────────────────────────────────

func (s *appService) ListCommissions(ctx context.Context, companyCode string, filter core.CommissionFilter) ([]core.Commission, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.commissions.ListCommissions(ctx, companyID, filter)
}

func (s *appService) GetInvoiceCommissions(ctx context.Context, invoiceID int) ([]core.Commission, error) {
	return s.commissions.GetCommissionsForInvoice(ctx, invoiceID)
}

// ── Billing ──────────────────────────────────────────────────────────────────

func (s *appService) CreateBillRequests(ctx context.Context, req CreateBillRequestsRequest) (*BillRequestsResult, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}

	selection := req.Halves
	if len(req.CommissionIDs) > 0 {
		selection = append(selection, core.BothHalves(req.CommissionIDs)...)
	}

	bills, err := s.billing.CreateBillRequests(ctx, companyID, selection)
	if err != nil {
		return nil, err
	}
	return &BillRequestsResult{Bills: bills}, nil
}

func (s *appService) ListBills(ctx context.Context, companyCode string) ([]core.VendorBill, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.billing.GetBills(ctx, companyID)
}

func (s *appService) GetBill(ctx context.Context, billID int) (*core.VendorBill, error) {
	return s.billing.GetBill(ctx, billID)
}

func (s *appService) SetBillPaymentState(ctx context.Context, billID int, state core.PaymentState) (*core.VendorBill, error) {
	return s.billing.SetBillPaymentState(ctx, billID, state)
}

func (s *appService) DeleteBill(ctx context.Context, billID int) error {
	return s.billing.DeleteBill(ctx, billID)
}
