package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CommissionService generates commission rows when a customer document is
// posted and flips collection halves when the document is collected.
type CommissionService interface {
	// GenerateForInvoice creates the commission rows for a posted customer
	// invoice or credit note: one row per distinct (rule, percentage) group
	// of product lines, each split 50/50 into an invoicing half and a
	// collection half. Re-running on a document that already owns commission
	// rows is a silent no-op. Runs in a single transaction.
	GenerateForInvoice(ctx context.Context, invoiceID int) error

	// AccrueCollectionTx flips every pending collection half of the invoice
	// to accrued, inside the caller's transaction. Idempotent: re-delivery of
	// the same settlement event affects zero rows.
	AccrueCollectionTx(ctx context.Context, tx pgx.Tx, invoiceID int) error

	GetCommission(ctx context.Context, commissionID int) (*Commission, error)
	GetCommissionsForInvoice(ctx context.Context, invoiceID int) ([]Commission, error)
	ListCommissions(ctx context.Context, companyID int, filter CommissionFilter) ([]Commission, error)
}

// CommissionFilter narrows ListCommissions. Nil fields are ignored.
type CommissionFilter struct {
	SalespersonID    *int
	InvoiceID        *int
	InvoicingStatus  *AccrualStatus
	CollectionStatus *AccrualStatus
	BillingStatus    *BillingStatus
	PaymentStatus    *PaymentStatus
}

type commissionService struct {
	pool *pgxpool.Pool
}

// NewCommissionService constructs a CommissionService backed by PostgreSQL.
func NewCommissionService(pool *pgxpool.Pool) CommissionService {
	return &commissionService{pool: pool}
}

// bucketKey groups qualifying lines by resolved rule and percentage.
// Percentage is keyed by its canonical string form so equal decimals collide.
type bucketKey struct {
	ruleID  int
	hasRule bool
	pct     string
}

func (s *commissionService) GenerateForInvoice(ctx context.Context, invoiceID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin commission generation: %w", err)
	}
	defer tx.Rollback(ctx)

	// The row lock serializes concurrent generation attempts on the same
	// document; the duplicate guard below is race-free because of it.
	var companyID, customerID int
	var salespersonID *int
	var docType DocType
	var status InvoiceStatus
	err = tx.QueryRow(ctx, `
		SELECT company_id, customer_id, salesperson_id, doc_type, status
		FROM invoices WHERE id = $1 FOR UPDATE`,
		invoiceID,
	).Scan(&companyID, &customerID, &salespersonID, &docType, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("invoice %d not found", invoiceID)
		}
		return fmt.Errorf("fetch invoice %d: %w", invoiceID, err)
	}

	if (docType != DocTypeInvoice && docType != DocTypeCreditNote) || status != InvoiceStatusPosted {
		return fmt.Errorf("invoice %d (%s, %s): %w", invoiceID, docType, status, ErrInvalidDocumentState)
	}

	// Idempotency guard: a document that already owns commission rows is
	// never regenerated.
	var alreadyGenerated bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM commissions WHERE invoice_id = $1)",
		invoiceID,
	).Scan(&alreadyGenerated); err != nil {
		return fmt.Errorf("check existing commissions for invoice %d: %w", invoiceID, err)
	}
	if alreadyGenerated {
		return nil
	}

	// Unassigned documents legitimately generate no commission.
	if salespersonID == nil {
		return nil
	}

	zone, err := resolveZoneQ(ctx, tx, customerID)
	if err != nil {
		return err
	}
	var zoneID *int
	if zone != nil {
		zoneID = &zone.ID
	}

	// Normalize the customer once and fetch the salesperson's candidate
	// rules once; each line is then scored in memory.
	commercialID, err := commercialEntityQ(ctx, tx, customerID)
	if err != nil {
		return err
	}
	candidates, err := candidateRulesQ(ctx, tx, companyID, *salespersonID)
	if err != nil {
		return err
	}

	lines, err := fetchInvoiceLinesQ(ctx, tx, invoiceID)
	if err != nil {
		return err
	}

	buckets := make(map[bucketKey]decimal.Decimal)
	ruleForKey := make(map[bucketKey]*CommissionRule)
	for _, line := range lines {
		if line.DisplayType != DisplayTypeProduct || line.ProductID == nil {
			continue
		}

		rule := BestRule(candidates, RuleContext{
			CustomerID: commercialID,
			ZoneID:     zoneID,
			CategoryID: line.CategoryID,
		})
		if rule == nil || rule.Percentage.LessThanOrEqual(decimal.Zero) {
			continue
		}

		key := bucketKey{ruleID: rule.ID, hasRule: true, pct: rule.Percentage.String()}
		buckets[key] = buckets[key].Add(line.NetAmount)
		ruleForKey[key] = rule
	}

	// Deterministic insertion order: by percentage, then rule ID.
	keys := make([]bucketKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi := ruleForKey[keys[i]].Percentage
		pj := ruleForKey[keys[j]].Percentage
		if !pi.Equal(pj) {
			return pi.LessThan(pj)
		}
		return keys[i].ruleID < keys[j].ruleID
	})

	isRefund := docType == DocTypeCreditNote

	for _, key := range keys {
		base := buckets[key]
		if base.IsZero() {
			continue
		}
		// A credit note reverses commission: the base goes negative in full.
		if isRefund {
			base = base.Abs().Neg()
		}

		rule := ruleForKey[key]
		total := base.Mul(rule.Percentage).Div(decimal.NewFromInt(100)).Round(2)
		invoicingHalf := total.Div(decimal.NewFromInt(2)).Round(2)
		// The two halves must sum to the total exactly, odd cents included.
		collectionHalf := total.Sub(invoicingHalf)

		collectionStatus := AccrualPending
		if isRefund {
			// Reversals take effect in full at once.
			collectionStatus = AccrualAccrued
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO commissions (
				invoice_id, company_id, salesperson_id, rule_id, customer_id,
				base_amount, percentage, total_amount,
				invoicing_amount, collection_amount,
				invoicing_status, collection_status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'accrued', $11)`,
			invoiceID, companyID, *salespersonID, rule.ID, customerID,
			base, rule.Percentage, total,
			invoicingHalf, collectionHalf,
			collectionStatus,
		)
		if err != nil {
			return fmt.Errorf("insert commission for invoice %d at %s%%: %w", invoiceID, rule.Percentage, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit commission generation: %w", err)
	}
	return nil
}

func (s *commissionService) AccrueCollectionTx(ctx context.Context, tx pgx.Tx, invoiceID int) error {
	_, err := tx.Exec(ctx, `
		UPDATE commissions
		SET collection_status = 'accrued'
		WHERE invoice_id = $1 AND collection_status = 'pending'`,
		invoiceID,
	)
	if err != nil {
		return fmt.Errorf("accrue collection halves for invoice %d: %w", invoiceID, err)
	}
	return nil
}

const commissionSelect = `
	SELECT cm.id, cm.invoice_id, cm.company_id, cm.salesperson_id, cm.rule_id, cm.customer_id,
	       cm.base_amount, cm.percentage, cm.total_amount,
	       cm.invoicing_amount, cm.collection_amount,
	       cm.invoicing_status, cm.collection_status,
	       cm.invoicing_bill_id, cm.collection_bill_id,
	       cm.billing_status, cm.billed_amount, cm.payment_status, cm.paid_amount,
	       cm.created_at,
	       COALESCE(i.invoice_number, ''), c.name, i.doc_type, i.currency, i.invoice_date::text
	FROM commissions cm
	JOIN invoices i ON i.id = cm.invoice_id
	JOIN customers c ON c.id = cm.customer_id`

func scanCommission(row pgx.Row) (*Commission, error) {
	var cm Commission
	err := row.Scan(
		&cm.ID, &cm.InvoiceID, &cm.CompanyID, &cm.SalespersonID, &cm.RuleID, &cm.CustomerID,
		&cm.BaseAmount, &cm.Percentage, &cm.TotalAmount,
		&cm.InvoicingAmount, &cm.CollectionAmount,
		&cm.InvoicingStatus, &cm.CollectionStatus,
		&cm.InvoicingBillID, &cm.CollectionBillID,
		&cm.BillingStatus, &cm.BilledAmount, &cm.PaymentStatus, &cm.PaidAmount,
		&cm.CreatedAt,
		&cm.InvoiceNumber, &cm.CustomerName, &cm.DocType, &cm.Currency, &cm.InvoiceDate,
	)
	if err != nil {
		return nil, err
	}
	return &cm, nil
}

func (s *commissionService) GetCommission(ctx context.Context, commissionID int) (*Commission, error) {
	cm, err := scanCommission(s.pool.QueryRow(ctx, commissionSelect+" WHERE cm.id = $1", commissionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("commission %d not found", commissionID)
		}
		return nil, fmt.Errorf("fetch commission %d: %w", commissionID, err)
	}
	return cm, nil
}

func (s *commissionService) GetCommissionsForInvoice(ctx context.Context, invoiceID int) ([]Commission, error) {
	rows, err := s.pool.Query(ctx, commissionSelect+" WHERE cm.invoice_id = $1 ORDER BY cm.id", invoiceID)
	if err != nil {
		return nil, fmt.Errorf("query commissions for invoice %d: %w", invoiceID, err)
	}
	defer rows.Close()
	return collectCommissions(rows)
}

func (s *commissionService) ListCommissions(ctx context.Context, companyID int, filter CommissionFilter) ([]Commission, error) {
	query := commissionSelect + " WHERE cm.company_id = $1"
	args := []any{companyID}

	addFilter := func(column string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}
	if filter.SalespersonID != nil {
		addFilter("cm.salesperson_id", *filter.SalespersonID)
	}
	if filter.InvoiceID != nil {
		addFilter("cm.invoice_id", *filter.InvoiceID)
	}
	if filter.InvoicingStatus != nil {
		addFilter("cm.invoicing_status", *filter.InvoicingStatus)
	}
	if filter.CollectionStatus != nil {
		addFilter("cm.collection_status", *filter.CollectionStatus)
	}
	if filter.BillingStatus != nil {
		addFilter("cm.billing_status", *filter.BillingStatus)
	}
	if filter.PaymentStatus != nil {
		addFilter("cm.payment_status", *filter.PaymentStatus)
	}
	query += " ORDER BY i.invoice_date DESC, cm.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query commissions: %w", err)
	}
	defer rows.Close()
	return collectCommissions(rows)
}

func collectCommissions(rows pgx.Rows) ([]Commission, error) {
	var result []Commission
	for rows.Next() {
		cm, err := scanCommission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commission: %w", err)
		}
		result = append(result, *cm)
	}
	return result, nil
}
