package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// BillingService groups accrued, unbilled commission halves into payable
// vendor bills, one per salesperson, and keeps each commission's derived
// billing/payment projection consistent with its bill links.
type BillingService interface {
	// CreateBillRequests builds one vendor bill per salesperson from the
	// eligible halves in the selection. Eligibility (half accrued, no bill
	// link yet) is re-validated under row locks at transaction time;
	// ineligible halves are silently skipped. When nothing in the selection
	// is eligible the whole operation fails with ErrNothingToBill and no
	// bill is created.
	CreateBillRequests(ctx context.Context, companyID int, selection []HalfSelection) ([]VendorBill, error)

	// SetBillPaymentState records the bill's payment state and recomputes
	// the projection of every commission linked to it, atomically.
	SetBillPaymentState(ctx context.Context, billID int, state PaymentState) (*VendorBill, error)

	// DeleteBill removes a bill. The half links pointing at it are cleared
	// (the commissions stay) and their projections recomputed.
	DeleteBill(ctx context.Context, billID int) error

	GetBill(ctx context.Context, billID int) (*VendorBill, error)
	GetBills(ctx context.Context, companyID int) ([]VendorBill, error)
}

// HalfSelection identifies one commission half picked by the operator.
type HalfSelection struct {
	CommissionID int  `json:"commission_id"`
	Half         Half `json:"half"`
}

// BothHalves expands whole-commission selections into per-half ones.
func BothHalves(commissionIDs []int) []HalfSelection {
	out := make([]HalfSelection, 0, 2*len(commissionIDs))
	for _, id := range commissionIDs {
		out = append(out, HalfSelection{CommissionID: id, Half: HalfInvoicing})
		out = append(out, HalfSelection{CommissionID: id, Half: HalfCollection})
	}
	return out
}

type billingService struct {
	pool *pgxpool.Pool
}

// NewBillingService constructs a BillingService backed by PostgreSQL.
func NewBillingService(pool *pgxpool.Pool) BillingService {
	return &billingService{pool: pool}
}

// billableHalf is one eligible half with everything needed for its bill line.
type billableHalf struct {
	commissionID  int
	salespersonID int
	half          Half
	amount        decimal.Decimal
	percentage    decimal.Decimal
	invoiceNumber string
	customerName  string
}

func (s *billingService) CreateBillRequests(ctx context.Context, companyID int, selection []HalfSelection) ([]VendorBill, error) {
	if len(selection) == 0 {
		return nil, ErrNothingToBill
	}

	wantHalf := make(map[int]map[Half]bool)
	ids := make([]int, 0, len(selection))
	for _, sel := range selection {
		if sel.Half != HalfInvoicing && sel.Half != HalfCollection {
			return nil, fmt.Errorf("unknown commission half %q", sel.Half)
		}
		if wantHalf[sel.CommissionID] == nil {
			wantHalf[sel.CommissionID] = make(map[Half]bool)
			ids = append(ids, sel.CommissionID)
		}
		wantHalf[sel.CommissionID][sel.Half] = true
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin bill creation: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the selected commissions so eligibility cannot change between
	// validation and link writeback (selection may be stale).
	rows, err := tx.Query(ctx, `
		SELECT cm.id, cm.salesperson_id,
		       cm.invoicing_amount, cm.collection_amount,
		       cm.invoicing_status, cm.collection_status,
		       cm.invoicing_bill_id, cm.collection_bill_id,
		       cm.percentage
		FROM commissions cm
		WHERE cm.id = ANY($1) AND cm.company_id = $2
		ORDER BY cm.id
		FOR UPDATE`,
		ids, companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("lock selected commissions: %w", err)
	}

	type lockedCommission struct {
		id               int
		salespersonID    int
		invoicingAmount  decimal.Decimal
		collectionAmount decimal.Decimal
		invoicingStatus  AccrualStatus
		collectionStatus AccrualStatus
		invoicingBillID  *int
		collectionBillID *int
		percentage       decimal.Decimal
	}
	var locked []lockedCommission
	for rows.Next() {
		var lc lockedCommission
		if err := rows.Scan(&lc.id, &lc.salespersonID,
			&lc.invoicingAmount, &lc.collectionAmount,
			&lc.invoicingStatus, &lc.collectionStatus,
			&lc.invoicingBillID, &lc.collectionBillID,
			&lc.percentage); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan locked commission: %w", err)
		}
		locked = append(locked, lc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read locked commissions: %w", err)
	}

	// Bill-line labels need the source document identity and customer.
	labels := make(map[int]struct{ invoiceNumber, customerName string })
	if len(locked) > 0 {
		lr, err := tx.Query(ctx, `
			SELECT cm.id, COALESCE(i.invoice_number, ''), c.name
			FROM commissions cm
			JOIN invoices i ON i.id = cm.invoice_id
			JOIN customers c ON c.id = cm.customer_id
			WHERE cm.id = ANY($1)`,
			ids,
		)
		if err != nil {
			return nil, fmt.Errorf("fetch commission labels: %w", err)
		}
		for lr.Next() {
			var id int
			var num, name string
			if err := lr.Scan(&id, &num, &name); err != nil {
				lr.Close()
				return nil, fmt.Errorf("scan commission label: %w", err)
			}
			labels[id] = struct{ invoiceNumber, customerName string }{num, name}
		}
		lr.Close()
		if err := lr.Err(); err != nil {
			return nil, fmt.Errorf("read commission labels: %w", err)
		}
	}

	// Re-validate each requested half: accrued and not yet linked.
	bySalesperson := make(map[int][]billableHalf)
	touched := make(map[int]bool)
	for _, lc := range locked {
		want := wantHalf[lc.id]
		label := labels[lc.id]

		if want[HalfInvoicing] && lc.invoicingStatus == AccrualAccrued && lc.invoicingBillID == nil {
			bySalesperson[lc.salespersonID] = append(bySalesperson[lc.salespersonID], billableHalf{
				commissionID: lc.id, salespersonID: lc.salespersonID, half: HalfInvoicing,
				amount: lc.invoicingAmount, percentage: lc.percentage,
				invoiceNumber: label.invoiceNumber, customerName: label.customerName,
			})
		}
		if want[HalfCollection] && lc.collectionStatus == AccrualAccrued && lc.collectionBillID == nil {
			bySalesperson[lc.salespersonID] = append(bySalesperson[lc.salespersonID], billableHalf{
				commissionID: lc.id, salespersonID: lc.salespersonID, half: HalfCollection,
				amount: lc.collectionAmount, percentage: lc.percentage,
				invoiceNumber: label.invoiceNumber, customerName: label.customerName,
			})
		}
	}

	if len(bySalesperson) == 0 {
		return nil, ErrNothingToBill
	}

	salespersonIDs := make([]int, 0, len(bySalesperson))
	for id := range bySalesperson {
		salespersonIDs = append(salespersonIDs, id)
	}
	sort.Ints(salespersonIDs)

	billDate := time.Now().Format("2006-01-02")
	var billIDs []int

	for _, spID := range salespersonIDs {
		halves := bySalesperson[spID]

		total := decimal.Zero
		for _, h := range halves {
			total = total.Add(h.amount)
		}

		billNumber, err := nextDocumentNumberTx(ctx, tx, companyID, seqVendorBill)
		if err != nil {
			return nil, err
		}

		var billID int
		err = tx.QueryRow(ctx, `
			INSERT INTO vendor_bills (company_id, salesperson_id, bill_number, bill_date, total_amount)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			companyID, spID, billNumber, billDate, total,
		).Scan(&billID)
		if err != nil {
			return nil, fmt.Errorf("insert vendor bill for salesperson %d: %w", spID, err)
		}

		for i, h := range halves {
			description := fmt.Sprintf("Commission %s%% - %s - %s (%s half)",
				h.percentage, h.invoiceNumber, h.customerName, h.half)
			_, err = tx.Exec(ctx, `
				INSERT INTO vendor_bill_lines (bill_id, line_number, commission_id, half, description, amount)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				billID, i+1, h.commissionID, h.half, description, h.amount,
			)
			if err != nil {
				return nil, fmt.Errorf("insert bill line for commission %d: %w", h.commissionID, err)
			}

			column := "invoicing_bill_id"
			if h.half == HalfCollection {
				column = "collection_bill_id"
			}
			_, err = tx.Exec(ctx,
				fmt.Sprintf("UPDATE commissions SET %s = $1 WHERE id = $2", column),
				billID, h.commissionID,
			)
			if err != nil {
				return nil, fmt.Errorf("link commission %d %s half to bill %d: %w", h.commissionID, h.half, billID, err)
			}
			touched[h.commissionID] = true
		}

		billIDs = append(billIDs, billID)
	}

	if err := recomputeProjectionsTx(ctx, tx, touched); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit bill creation: %w", err)
	}

	bills := make([]VendorBill, 0, len(billIDs))
	for _, id := range billIDs {
		b, err := s.GetBill(ctx, id)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *b)
	}
	return bills, nil
}

func (s *billingService) SetBillPaymentState(ctx context.Context, billID int, state PaymentState) (*VendorBill, error) {
	switch state {
	case PaymentStateNotPaid, PaymentStatePaid, PaymentStateInPayment:
	default:
		return nil, fmt.Errorf("unknown bill payment state %q", state)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin bill payment state change: %w", err)
	}
	defer tx.Rollback(ctx)

	var lockedID int
	if err := tx.QueryRow(ctx,
		"SELECT id FROM vendor_bills WHERE id = $1 FOR UPDATE",
		billID,
	).Scan(&lockedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("bill %d not found", billID)
		}
		return nil, fmt.Errorf("lock bill %d: %w", billID, err)
	}

	if _, err = tx.Exec(ctx,
		"UPDATE vendor_bills SET payment_state = $1 WHERE id = $2",
		state, billID,
	); err != nil {
		return nil, fmt.Errorf("update bill %d payment state: %w", billID, err)
	}

	touched, err := commissionsLinkedToBillTx(ctx, tx, billID)
	if err != nil {
		return nil, err
	}
	if err := recomputeProjectionsTx(ctx, tx, touched); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit bill payment state change: %w", err)
	}

	return s.GetBill(ctx, billID)
}

func (s *billingService) DeleteBill(ctx context.Context, billID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bill deletion: %w", err)
	}
	defer tx.Rollback(ctx)

	touched, err := commissionsLinkedToBillTx(ctx, tx, billID)
	if err != nil {
		return err
	}

	// The FK is ON DELETE SET NULL, so the half links clear with the delete;
	// the commissions themselves survive.
	tag, err := tx.Exec(ctx, "DELETE FROM vendor_bills WHERE id = $1", billID)
	if err != nil {
		return fmt.Errorf("delete bill %d: %w", billID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bill %d not found", billID)
	}

	if err := recomputeProjectionsTx(ctx, tx, touched); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bill deletion: %w", err)
	}
	return nil
}

func (s *billingService) GetBill(ctx context.Context, billID int) (*VendorBill, error) {
	b := &VendorBill{}
	err := s.pool.QueryRow(ctx, `
		SELECT vb.id, vb.company_id, vb.salesperson_id, sp.name, vb.bill_number,
		       vb.bill_date::text, vb.total_amount, vb.payment_state, vb.created_at
		FROM vendor_bills vb
		JOIN salespersons sp ON sp.id = vb.salesperson_id
		WHERE vb.id = $1`,
		billID,
	).Scan(&b.ID, &b.CompanyID, &b.SalespersonID, &b.SalespersonName, &b.BillNumber,
		&b.BillDate, &b.TotalAmount, &b.PaymentState, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("bill %d not found", billID)
		}
		return nil, fmt.Errorf("fetch bill %d: %w", billID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, bill_id, line_number, commission_id, half, description, amount
		FROM vendor_bill_lines
		WHERE bill_id = $1
		ORDER BY line_number`,
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("query bill lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l VendorBillLine
		if err := rows.Scan(&l.ID, &l.BillID, &l.LineNumber, &l.CommissionID, &l.Half, &l.Description, &l.Amount); err != nil {
			return nil, fmt.Errorf("scan bill line: %w", err)
		}
		b.Lines = append(b.Lines, l)
	}
	return b, nil
}

func (s *billingService) GetBills(ctx context.Context, companyID int) ([]VendorBill, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT vb.id, vb.company_id, vb.salesperson_id, sp.name, vb.bill_number,
		       vb.bill_date::text, vb.total_amount, vb.payment_state, vb.created_at
		FROM vendor_bills vb
		JOIN salespersons sp ON sp.id = vb.salesperson_id
		WHERE vb.company_id = $1
		ORDER BY vb.id DESC`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	var bills []VendorBill
	for rows.Next() {
		var b VendorBill
		if err := rows.Scan(&b.ID, &b.CompanyID, &b.SalespersonID, &b.SalespersonName, &b.BillNumber,
			&b.BillDate, &b.TotalAmount, &b.PaymentState, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, nil
}

func commissionsLinkedToBillTx(ctx context.Context, q pgxQuerier, billID int) (map[int]bool, error) {
	rows, err := q.Query(ctx,
		"SELECT id FROM commissions WHERE invoicing_bill_id = $1 OR collection_bill_id = $1 FOR UPDATE",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("find commissions linked to bill %d: %w", billID, err)
	}
	defer rows.Close()

	touched := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan linked commission id: %w", err)
		}
		touched[id] = true
	}
	return touched, rows.Err()
}

// recomputeProjectionsTx refreshes the derived billing/payment fields of each
// commission from its half links and their bills' payment states. Runs inside
// the mutating transaction so the projections are never observably stale.
func recomputeProjectionsTx(ctx context.Context, q pgxQuerier, commissionIDs map[int]bool) error {
	for id := range commissionIDs {
		var invoicingAmount, collectionAmount decimal.Decimal
		var invoicingBillID, collectionBillID *int
		var invoicingBillState, collectionBillState *PaymentState
		err := q.QueryRow(ctx, `
			SELECT cm.invoicing_amount, cm.collection_amount,
			       cm.invoicing_bill_id, cm.collection_bill_id,
			       ib.payment_state, cb.payment_state
			FROM commissions cm
			LEFT JOIN vendor_bills ib ON ib.id = cm.invoicing_bill_id
			LEFT JOIN vendor_bills cb ON cb.id = cm.collection_bill_id
			WHERE cm.id = $1`,
			id,
		).Scan(&invoicingAmount, &collectionAmount,
			&invoicingBillID, &collectionBillID,
			&invoicingBillState, &collectionBillState)
		if err != nil {
			return fmt.Errorf("read projection inputs for commission %d: %w", id, err)
		}

		link := func(billID *int, state *PaymentState) HalfLink {
			return HalfLink{
				Linked:  billID != nil,
				Settled: state != nil && state.IsSettled(),
			}
		}
		p := ProjectBilling(invoicingAmount, collectionAmount,
			link(invoicingBillID, invoicingBillState),
			link(collectionBillID, collectionBillState))

		_, err = q.Exec(ctx, `
			UPDATE commissions
			SET billing_status = $1, billed_amount = $2, payment_status = $3, paid_amount = $4
			WHERE id = $5`,
			p.BillingStatus, p.BilledAmount, p.PaymentStatus, p.PaidAmount, id,
		)
		if err != nil {
			return fmt.Errorf("write projection for commission %d: %w", id, err)
		}
	}
	return nil
}
