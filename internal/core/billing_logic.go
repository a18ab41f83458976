package core

import "github.com/shopspring/decimal"

// HalfLink is the projection input for one commission half: whether a bill
// link is set and whether that bill is fully settled. An unlinked half is
// never settled.
type HalfLink struct {
	Linked  bool
	Settled bool
}

// BillingProjection holds the four derived fields of a commission. They are a
// pure function of the two half links and their bills' payment states.
type BillingProjection struct {
	BillingStatus BillingStatus
	BilledAmount  decimal.Decimal
	PaymentStatus PaymentStatus
	PaidAmount    decimal.Decimal
}

// ProjectBilling recomputes the derived billing/payment fields.
// billing-status is 'billed' iff both links are set; billed-amount counts
// link presence alone, independent of the linked bill's payment state; a half
// counts as paid only when its bill is settled.
func ProjectBilling(invoicingAmount, collectionAmount decimal.Decimal, invoicing, collection HalfLink) BillingProjection {
	p := BillingProjection{
		BilledAmount: decimal.Zero,
		PaidAmount:   decimal.Zero,
	}

	linked := 0
	if invoicing.Linked {
		linked++
		p.BilledAmount = p.BilledAmount.Add(invoicingAmount)
	}
	if collection.Linked {
		linked++
		p.BilledAmount = p.BilledAmount.Add(collectionAmount)
	}
	switch linked {
	case 2:
		p.BillingStatus = BillingBilled
	case 1:
		p.BillingStatus = BillingPartial
	default:
		p.BillingStatus = BillingPending
	}

	paid := 0
	if invoicing.Linked && invoicing.Settled {
		paid++
		p.PaidAmount = p.PaidAmount.Add(invoicingAmount)
	}
	if collection.Linked && collection.Settled {
		paid++
		p.PaidAmount = p.PaidAmount.Add(collectionAmount)
	}
	switch paid {
	case 2:
		p.PaymentStatus = PaymentPaid
	case 1:
		p.PaymentStatus = PaymentPartial
	default:
		p.PaymentStatus = PaymentPending
	}

	return p
}
