package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"commission-engine/internal/core"
)

func TestCommissionGeneration_HalfSplit(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	fx := seedFixture(t, ctx, pool)
	seedWildcardRule(t, ctx, pool, fx.Salesperson.ID, "10")

	inv := createPostedInvoice(t, ctx, pool, fx, core.DocTypeInvoice, "1000.00")
	if inv.InvoiceNumber != "INV-000001" {
		t.Errorf("invoice number = %s, want INV-000001", inv.InvoiceNumber)
	}

	commissions := core.NewCommissionService(pool)
	rows, err := commissions.GetCommissionsForInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("fetch commissions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 commission row, got %d", len(rows))
	}

	cm := rows[0]
	if !cm.TotalAmount.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("total = %s, want 100.00", cm.TotalAmount)
	}
	if !cm.InvoicingAmount.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("invoicing half = %s, want 50.00", cm.InvoicingAmount)
	}
	if !cm.CollectionAmount.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("collection half = %s, want 50.00", cm.CollectionAmount)
	}
	if !cm.InvoicingAmount.Add(cm.CollectionAmount).Equal(cm.TotalAmount) {
		t.Errorf("halves %s + %s do not sum to total %s", cm.InvoicingAmount, cm.CollectionAmount, cm.TotalAmount)
	}
	if cm.InvoicingStatus != core.AccrualAccrued {
		t.Errorf("invoicing status = %s, want accrued", cm.InvoicingStatus)
	}
	if cm.CollectionStatus != core.AccrualPending {
		t.Errorf("collection status = %s, want pending", cm.CollectionStatus)
	}
	if cm.BillingStatus != core.BillingPending || cm.PaymentStatus != core.PaymentPending {
		t.Errorf("fresh commission projections: billing=%s payment=%s, want pending/pending", cm.BillingStatus, cm.PaymentStatus)
	}
}

func TestCommissionGeneration_OddTotalStaysExact(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	fx := seedFixture(t, ctx, pool)
	seedWildcardRule(t, ctx, pool, fx.Salesperson.ID, "10")

	// 10% of 1000.31 is 100.03 after rounding, which does not split evenly.
	inv := createPostedInvoice(t, ctx, pool, fx, core.DocTypeInvoice, "1000.31")

	commissions := core.NewCommissionService(pool)
	rows, err := commissions.GetCommissionsForInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("fetch commissions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 commission row, got %d", len(rows))
	}

	cm := rows[0]
	if !cm.TotalAmount.Equal(decimal.RequireFromString("100.03")) {
		t.Errorf("total = %s, want 100.03", cm.TotalAmount)
	}
	if !cm.InvoicingAmount.Add(cm.CollectionAmount).Equal(cm.TotalAmount) {
		t.Errorf("halves %s + %s do not sum to total %s", cm.InvoicingAmount, cm.CollectionAmount, cm.TotalAmount)
	}
}

func TestCommissionGeneration_Idempotent(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	fx := seedFixture(t, ctx, pool)
	seedWildcardRule(t, ctx, pool, fx.Salesperson.ID, "10")

	inv := createPostedInvoice(t, ctx, pool, fx, core.DocTypeInvoice, "1000.00")

	commissions := core.NewCommissionService(pool)
	if err := commissions.GenerateForInvoice(ctx, inv.ID); err != nil {
		t.Fatalf("second generation should be a silent no-op, got: %v", err)
	}

	rows, err := commissions.GetCommissionsForInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("fetch commissions: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 commission row after re-generation, got %d", len(rows))
	}
}

func TestCommissionGeneration_DraftRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	fx := seedFixture(t, ctx, pool)
	seedWildcardRule(t, ctx, pool, fx.Salesperson.ID, "10")

	invoices := core.NewInvoiceService(pool)
	inv, err := invoices.CreateInvoice(ctx, testCompanyID, core.InvoiceInput{
		DocType:       core.DocTypeInvoice,
		CustomerID:    fx.Customer.ID,
		SalespersonID: &fx.Salesperson.ID,
		InvoiceDate:   "2024-03-15",
		Currency:      "ARS",
		Lines: []core.InvoiceLineInput{
			{ProductID: &fx.Product.ID, Description: "Autoclave 21L", NetAmount: decimal.RequireFromString("100.00")},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	commissions := core.NewCommissionService(pool)
	err = commissions.GenerateForInvoice(ctx, inv.ID)
	if !errors.Is(err, core.ErrInvalidDocumentState) {
		t.Errorf("expected ErrInvalidDocumentState for draft document, got: %v", err)
	}
}

func TestCommissionGeneration_NoSalesperson(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	fx := seedFixture(t, ctx, pool)
	seedWildcardRule(t, ctx, pool, fx.Salesperson.ID, "10")

	invoices := core.NewInvoiceService(pool)
	commissions := core.NewCommissionService(pool)

	inv, err := invoices.CreateInvoice(ctx, testCompanyID, core.InvoiceInput{
		DocType:     core.DocTypeInvoice,
		CustomerID:  fx.Customer.ID,
		InvoiceDate: "2024-03-15",
		Currency:    "ARS",
		Lines: []core.InvoiceLineInput{
			{ProductID: &fx.Product.ID, Description: "Autoclave 21L", NetAmount: decimal.RequireFromString("500.00")},
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
		t.Fatalf("posting without salesperson must not error: %v", result.GenerationErr)
	}

	rows, err := commissions.GetCommissionsForInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("fetch commissions: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no commissions without a salesperson, got %d", len(rows))
	}
}

func TestCommissionGeneration_NoMatchingRule(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	fx := seedFixture(t, ctx, pool)
	// No rule seeded at all.

	inv := createPostedInvoice(t, ctx, pool, fx, core.DocTypeInvoice, "1000.00")

	commissions := core.NewCommissionService(pool)
	rows, err := commissions.GetCommissionsForInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("fetch commissions: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no commissions without a matching rule, got %d", len(rows))
	}
}

func TestCommissionGeneration_CreditNote(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	fx := seedFixture(t, ctx, pool)
	seedWildcardRule(t, ctx, pool, fx.Salesperson.ID, "10")

	nc := createPostedInvoice(t, ctx, pool, fx, core.DocTypeCreditNote, "400.00")
	if nc.InvoiceNumber != "NC-000001" {
		t.Errorf("credit note number = %s, want NC-000001", nc.InvoiceNumber)
	}

	commissions := core.NewCommissionService(pool)
	rows, err := commissions.GetCommissionsForInvoice(ctx, nc.ID)
	if err != nil {
		t.Fatalf("fetch commissions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 commission row, got %d", len(rows))
	}

	cm := rows[0]
	if !cm.TotalAmount.Equal(decimal.RequireFromString("-40.00")) {
		t.Errorf("credit note total = %s, want -40.00", cm.TotalAmount)
	}
	// A refund claws back immediately: both halves accrue at posting.
	if cm.InvoicingStatus != core.AccrualAccrued || cm.CollectionStatus != core.AccrualAccrued {
		t.Errorf("credit note halves = %s/%s, want accrued/accrued", cm.InvoicingStatus, cm.CollectionStatus)
	}
}

func TestCommissionGeneration_GroupsByRuleAndPercentage(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	fx := seedFixture(t, ctx, pool)
	partners := core.NewPartnerService(pool)
	rules := core.NewRuleService(pool)

	// Second category and product with their own rule at a different rate.
	cat2, err := partners.CreateCategory(ctx, testCompanyID, "Descartables")
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	prod2, err := partners.CreateProduct(ctx, testCompanyID, "PRD-002", "Guantes x100", &cat2.ID)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if _, err := rules.CreateRule(ctx, testCompanyID, core.RuleInput{
		SalespersonID: fx.Salesperson.ID,
		CategoryID:    &fx.Category.ID,
		Percentage:    decimal.RequireFromString("10"),
	}); err != nil {
		t.Fatalf("seed category rule: %v", err)
	}
	if _, err := rules.CreateRule(ctx, testCompanyID, core.RuleInput{
		SalespersonID: fx.Salesperson.ID,
		CategoryID:    &cat2.ID,
		Percentage:    decimal.RequireFromString("5"),
	}); err != nil {
		t.Fatalf("seed second category rule: %v", err)
	}

	invoices := core.NewInvoiceService(pool)
	commissions := core.NewCommissionService(pool)
	inv, err := invoices.CreateInvoice(ctx, testCompanyID, core.InvoiceInput{
		DocType:       core.DocTypeInvoice,
		CustomerID:    fx.Customer.ID,
		SalespersonID: &fx.Salesperson.ID,
		InvoiceDate:   "2024-03-15",
		Currency:      "ARS",
		Lines: []core.InvoiceLineInput{
			{DisplayType: core.DisplayTypeSection, Description: "Equipamiento"},
			{ProductID: &fx.Product.ID, Description: "Autoclave 21L", NetAmount: decimal.RequireFromString("1000.00")},
			{ProductID: &fx.Product.ID, Description: "Autoclave 21L", NetAmount: decimal.RequireFromString("500.00")},
			{DisplayType: core.DisplayTypeNote, Description: "Entrega en 10 días"},
			{ProductID: &prod2.ID, Description: "Guantes x100", NetAmount: decimal.RequireFromString("200.00")},
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

	rows, err := commissions.GetCommissionsForInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("fetch commissions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 commission groups, got %d", len(rows))
	}

	// Groups come back ordered by percentage.
	if !rows[0].Percentage.Equal(decimal.RequireFromString("5")) ||
		!rows[0].TotalAmount.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("group 0 = %s%% / %s, want 5%% / 10.00", rows[0].Percentage, rows[0].TotalAmount)
	}
	if !rows[1].Percentage.Equal(decimal.RequireFromString("10")) ||
		!rows[1].TotalAmount.Equal(decimal.RequireFromString("150.00")) {
		t.Errorf("group 1 = %s%% / %s, want 10%% / 150.00", rows[1].Percentage, rows[1].TotalAmount)
	}
	if !rows[1].BaseAmount.Equal(decimal.RequireFromString("1500.00")) {
		t.Errorf("group 1 base = %s, want 1500.00", rows[1].BaseAmount)
	}
}
