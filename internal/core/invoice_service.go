package core

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InvoiceService manages the customer invoice lifecycle the commission engine
// reacts to. Posting and payment-state changes are the two events that drive
// commission accrual.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, companyID int, input InvoiceInput) (*Invoice, error)

	// PostInvoice transitions DRAFT → POSTED, assigning a gapless document
	// number, then triggers commission generation in a separate transaction.
	// A generation failure never rolls back the posting; it is logged and
	// returned in PostResult.GenerationErr.
	PostInvoice(ctx context.Context, invoiceID int, commissions CommissionService) (*PostResult, error)

	// SetPaymentState records a payment-state change. When the new state is a
	// full settlement on a posted customer invoice, every pending
	// collection-half on that invoice accrues in the same transaction.
	SetPaymentState(ctx context.Context, invoiceID int, state PaymentState, commissions CommissionService) (*Invoice, error)

	GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error)
	GetInvoices(ctx context.Context, companyID int, status *InvoiceStatus) ([]Invoice, error)
}

// InvoiceInput holds the fields required to create a draft invoice or credit
// note.
type InvoiceInput struct {
	DocType       DocType
	CustomerID    int
	SalespersonID *int
	InvoiceDate   string
	Currency      string
	Lines         []InvoiceLineInput
}

// InvoiceLineInput is one draft line. Section and note lines carry no product
// and no amount; they exist for presentation only and never generate
// commission.
type InvoiceLineInput struct {
	DisplayType DisplayType
	ProductID   *int
	Description string
	NetAmount   decimal.Decimal
}

// PostResult carries the posted invoice plus any isolated commission
// generation failure.
type PostResult struct {
	Invoice       *Invoice
	GenerationErr error
}

type invoiceService struct {
	pool *pgxpool.Pool
}

// NewInvoiceService constructs an InvoiceService backed by PostgreSQL.
func NewInvoiceService(pool *pgxpool.Pool) InvoiceService {
	return &invoiceService{pool: pool}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, companyID int, input InvoiceInput) (*Invoice, error) {
	if input.DocType != DocTypeInvoice && input.DocType != DocTypeCreditNote {
		return nil, fmt.Errorf("doc type must be INVOICE or CREDIT_NOTE, got %q", input.DocType)
	}
	if len(input.Lines) == 0 {
		return nil, fmt.Errorf("invoice must have at least one line")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin invoice creation: %w", err)
	}
	defer tx.Rollback(ctx)

	// Validate the customer belongs to the company.
	var customerCompany int
	err = tx.QueryRow(ctx, "SELECT company_id FROM customers WHERE id = $1", input.CustomerID).Scan(&customerCompany)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %d not found", input.CustomerID)
		}
		return nil, fmt.Errorf("resolve customer %d: %w", input.CustomerID, err)
	}
	if customerCompany != companyID {
		return nil, fmt.Errorf("customer %d does not belong to company %d", input.CustomerID, companyID)
	}

	var totalNet decimal.Decimal
	for _, line := range input.Lines {
		if line.DisplayType == DisplayTypeProduct {
			totalNet = totalNet.Add(line.NetAmount)
		}
	}

	var invoiceID int
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (company_id, doc_type, customer_id, salesperson_id, invoice_date, currency, total_net)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		companyID, input.DocType, input.CustomerID, input.SalespersonID,
		input.InvoiceDate, input.Currency, totalNet,
	).Scan(&invoiceID)
	if err != nil {
		return nil, fmt.Errorf("insert invoice: %w", err)
	}

	for i, line := range input.Lines {
		displayType := line.DisplayType
		if displayType == "" {
			displayType = DisplayTypeProduct
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO invoice_lines (invoice_id, line_number, display_type, product_id, description, net_amount)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			invoiceID, i+1, displayType, line.ProductID, line.Description, line.NetAmount,
		)
		if err != nil {
			return nil, fmt.Errorf("insert invoice line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit invoice creation: %w", err)
	}

	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) PostInvoice(ctx context.Context, invoiceID int, commissions CommissionService) (*PostResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin posting: %w", err)
	}
	defer tx.Rollback(ctx)

	var companyID int
	var docType DocType
	var status InvoiceStatus
	err = tx.QueryRow(ctx,
		"SELECT company_id, doc_type, status FROM invoices WHERE id = $1 FOR UPDATE",
		invoiceID,
	).Scan(&companyID, &docType, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d not found", invoiceID)
		}
		return nil, fmt.Errorf("fetch invoice %d: %w", invoiceID, err)
	}
	if status != InvoiceStatusDraft {
		return nil, fmt.Errorf("invoice %d cannot be posted: status is %s (must be DRAFT)", invoiceID, status)
	}

	number, err := nextDocumentNumberTx(ctx, tx, companyID, string(docType))
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE invoices
		SET status = 'POSTED', invoice_number = $1, posted_at = NOW()
		WHERE id = $2`,
		number, invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("post invoice %d: %w", invoiceID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit posting: %w", err)
	}

	// Commission generation runs after the posting commit, in its own
	// transaction. A failure here must never un-post the invoice.
	var genErr error
	if commissions != nil {
		if genErr = commissions.GenerateForInvoice(ctx, invoiceID); genErr != nil {
			log.Printf("commission generation failed for invoice %d: %v", invoiceID, genErr)
		}
	}

	inv, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return &PostResult{Invoice: inv, GenerationErr: genErr}, nil
}

func (s *invoiceService) SetPaymentState(ctx context.Context, invoiceID int, state PaymentState, commissions CommissionService) (*Invoice, error) {
	switch state {
	case PaymentStateNotPaid, PaymentStatePartial, PaymentStatePaid, PaymentStateInPayment:
	default:
		return nil, fmt.Errorf("unknown payment state %q", state)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin payment state change: %w", err)
	}
	defer tx.Rollback(ctx)

	var docType DocType
	var status InvoiceStatus
	err = tx.QueryRow(ctx,
		"SELECT doc_type, status FROM invoices WHERE id = $1 FOR UPDATE",
		invoiceID,
	).Scan(&docType, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d not found", invoiceID)
		}
		return nil, fmt.Errorf("fetch invoice %d: %w", invoiceID, err)
	}
	if status != InvoiceStatusPosted {
		return nil, fmt.Errorf("invoice %d has no payment lifecycle: status is %s", invoiceID, status)
	}

	if _, err = tx.Exec(ctx,
		"UPDATE invoices SET payment_state = $1 WHERE id = $2",
		state, invoiceID,
	); err != nil {
		return nil, fmt.Errorf("update payment state of invoice %d: %w", invoiceID, err)
	}

	// Full settlement of a customer invoice accrues pending collection
	// halves, atomically with the state change. Partial payments never do.
	// Re-delivery of the same settled state is a no-op inside AccrueCollectionTx.
	if commissions != nil && docType == DocTypeInvoice && state.IsSettled() {
		if err := commissions.AccrueCollectionTx(ctx, tx, invoiceID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit payment state change: %w", err)
	}

	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error) {
	var inv Invoice
	err := s.pool.QueryRow(ctx, `
		SELECT i.id, i.company_id, i.doc_type, i.status, COALESCE(i.invoice_number, ''),
		       i.customer_id, c.name, i.salesperson_id, i.invoice_date::text, i.currency,
		       i.payment_state, i.total_net, i.created_at, i.posted_at
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.id = $1`,
		invoiceID,
	).Scan(
		&inv.ID, &inv.CompanyID, &inv.DocType, &inv.Status, &inv.InvoiceNumber,
		&inv.CustomerID, &inv.CustomerName, &inv.SalespersonID, &inv.InvoiceDate, &inv.Currency,
		&inv.PaymentState, &inv.TotalNet, &inv.CreatedAt, &inv.PostedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d not found", invoiceID)
		}
		return nil, fmt.Errorf("fetch invoice %d: %w", invoiceID, err)
	}

	lines, err := fetchInvoiceLinesQ(ctx, s.pool, invoiceID)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return &inv, nil
}

func (s *invoiceService) GetInvoices(ctx context.Context, companyID int, status *InvoiceStatus) ([]Invoice, error) {
	query := `
		SELECT i.id, i.company_id, i.doc_type, i.status, COALESCE(i.invoice_number, ''),
		       i.customer_id, c.name, i.salesperson_id, i.invoice_date::text, i.currency,
		       i.payment_state, i.total_net, i.created_at, i.posted_at
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.company_id = $1`
	args := []any{companyID}
	if status != nil {
		query += " AND i.status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY i.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(
			&inv.ID, &inv.CompanyID, &inv.DocType, &inv.Status, &inv.InvoiceNumber,
			&inv.CustomerID, &inv.CustomerName, &inv.SalespersonID, &inv.InvoiceDate, &inv.Currency,
			&inv.PaymentState, &inv.TotalNet, &inv.CreatedAt, &inv.PostedAt,
		); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// fetchInvoiceLinesQ returns lines with the product's category joined in, so
// commission generation resolves rules without extra lookups.
func fetchInvoiceLinesQ(ctx context.Context, q pgxQuerier, invoiceID int) ([]InvoiceLine, error) {
	rows, err := q.Query(ctx, `
		SELECT il.id, il.invoice_id, il.line_number, il.display_type,
		       il.product_id, p.category_id, il.description, il.net_amount
		FROM invoice_lines il
		LEFT JOIN products p ON p.id = il.product_id
		WHERE il.invoice_id = $1
		ORDER BY il.line_number`,
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("query invoice lines: %w", err)
	}
	defer rows.Close()

	var lines []InvoiceLine
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.LineNumber, &l.DisplayType,
			&l.ProductID, &l.CategoryID, &l.Description, &l.NetAmount); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}
