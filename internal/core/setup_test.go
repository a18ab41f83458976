package core_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"commission-engine/internal/core"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE vendor_bill_lines, commissions, vendor_bills, invoice_lines, invoices,
			commission_rules, products, product_categories, customers, commission_zones,
			salespersons, document_sequences, companies CASCADE;

		INSERT INTO companies (id, company_code, name, base_currency) VALUES (1, '1000', 'Test Company', 'ARS');

		INSERT INTO document_sequences (company_id, doc_type, last_number) VALUES
		(1, 'INVOICE', 0),
		(1, 'CREDIT_NOTE', 0),
		(1, 'VENDOR_BILL', 0);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

const testCompanyID = 1

// fixture is the minimal master data most engine tests need: one salesperson,
// one categorized product and one customer in Buenos Aires.
type fixture struct {
	Salesperson *core.Salesperson
	Category    *core.ProductCategory
	Product     *core.Product
	Customer    *core.Customer
}

func seedFixture(t *testing.T, ctx context.Context, pool *pgxpool.Pool) fixture {
	t.Helper()
	partners := core.NewPartnerService(pool)

	sp, err := partners.CreateSalesperson(ctx, testCompanyID, "SP-001", "Laura Gómez", "laura@example.com")
	if err != nil {
		t.Fatalf("seed salesperson: %v", err)
	}
	cat, err := partners.CreateCategory(ctx, testCompanyID, "Instrumental")
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	prod, err := partners.CreateProduct(ctx, testCompanyID, "PRD-001", "Autoclave 21L", &cat.ID)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	cust, err := partners.CreateCustomer(ctx, testCompanyID, core.CustomerInput{
		Code:        "CUST-001",
		Name:        "Clínica del Sol",
		CountryCode: "AR",
		StateCode:   "B",
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	return fixture{Salesperson: sp, Category: cat, Product: prod, Customer: cust}
}

// seedWildcardRule gives the fixture salesperson a catch-all rule.
func seedWildcardRule(t *testing.T, ctx context.Context, pool *pgxpool.Pool, salespersonID int, pct string) *core.CommissionRule {
	t.Helper()
	rules := core.NewRuleService(pool)
	r, err := rules.CreateRule(ctx, testCompanyID, core.RuleInput{
		SalespersonID: salespersonID,
		Percentage:    decimal.RequireFromString(pct),
	})
	if err != nil {
		t.Fatalf("seed rule: %v", err)
	}
	return r
}

// createPostedInvoice creates a draft document with one product line and posts
// it, running commission generation.
func createPostedInvoice(t *testing.T, ctx context.Context, pool *pgxpool.Pool, fx fixture, docType core.DocType, netAmount string) *core.Invoice {
	t.Helper()
	invoices := core.NewInvoiceService(pool)
	commissions := core.NewCommissionService(pool)

	inv, err := invoices.CreateInvoice(ctx, testCompanyID, core.InvoiceInput{
		DocType:       docType,
		CustomerID:    fx.Customer.ID,
		SalespersonID: &fx.Salesperson.ID,
		InvoiceDate:   "2024-03-15",
		Currency:      "ARS",
		Lines: []core.InvoiceLineInput{
			{ProductID: &fx.Product.ID, Description: "Autoclave 21L", NetAmount: decimal.RequireFromString(netAmount)},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	result, err := invoices.PostInvoice(ctx, inv.ID, commissions)
	if err != nil {
		t.Fatalf("post invoice: %v", err)
	}
	if result.GenerationErr != nil {
		t.Fatalf("commission generation: %v", result.GenerationErr)
	}
	return result.Invoice
}
