package app

import "commission-engine/internal/core"

// PostInvoiceResult is returned by PostInvoice. CommissionError carries an
// isolated generation failure: the invoice posted fine, but no commission
// rows were created.
type PostInvoiceResult struct {
	Invoice         *core.Invoice     `json:"invoice"`
	Commissions     []core.Commission `json:"commissions"`
	CommissionError string            `json:"commission_error,omitempty"`
}

// BillRequestsResult is returned by CreateBillRequests.
type BillRequestsResult struct {
	Bills []core.VendorBill `json:"bills"`
}
