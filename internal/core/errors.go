package core

import "errors"

// ErrNothingToBill is returned by CreateBillRequests when, after eligibility
// filtering, no salesperson has any accrued, unbilled half in the selection.
// The operation aborts with no side effects and the caller should surface it
// to the operator.
var ErrNothingToBill = errors.New("no accrued, unbilled commission halves in selection")

// ErrInvalidDocumentState is returned when commission generation is requested
// for a document of the wrong type or one that is not posted. It is rejected
// before any mutation.
var ErrInvalidDocumentState = errors.New("document is not a posted customer invoice or credit note")
