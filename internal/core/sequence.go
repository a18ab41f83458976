package core

import (
	"context"
	"fmt"
)

// Sequence document types.
const (
	seqInvoice    = "INVOICE"
	seqCreditNote = "CREDIT_NOTE"
	seqVendorBill = "VENDOR_BILL"
)

var seqPrefix = map[string]string{
	seqInvoice:    "INV",
	seqCreditNote: "NC",
	seqVendorBill: "BILL",
}

// nextDocumentNumberTx assigns the next gapless document number for
// (company, docType). The upsert increments the sequence row atomically, so
// concurrent posters serialize on the row lock and numbers never repeat.
// Must run inside the same transaction that persists the numbered document so
// the increment rolls back with a failed posting.
func nextDocumentNumberTx(ctx context.Context, q pgxQuerier, companyID int, docType string) (string, error) {
	var n int64
	err := q.QueryRow(ctx, `
		INSERT INTO document_sequences (company_id, doc_type, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (company_id, doc_type)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number`,
		companyID, docType,
	).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("advance %s sequence for company %d: %w", docType, companyID, err)
	}

	prefix, ok := seqPrefix[docType]
	if !ok {
		return "", fmt.Errorf("unknown document type %q", docType)
	}
	return fmt.Sprintf("%s-%06d", prefix, n), nil
}
