package core_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"commission-engine/internal/core"
)

func TestProjectBilling(t *testing.T) {
	inv := decimal.RequireFromString("60.00")
	col := decimal.RequireFromString("60.01")

	tests := []struct {
		name              string
		invoicing         core.HalfLink
		collection        core.HalfLink
		wantBillingStatus core.BillingStatus
		wantBilledAmount  string
		wantPaymentStatus core.PaymentStatus
		wantPaidAmount    string
	}{
		{
			name:              "nothing linked",
			invoicing:         core.HalfLink{},
			collection:        core.HalfLink{},
			wantBillingStatus: core.BillingPending,
			wantBilledAmount:  "0",
			wantPaymentStatus: core.PaymentPending,
			wantPaidAmount:    "0",
		},
		{
			name:              "invoicing half linked, unpaid",
			invoicing:         core.HalfLink{Linked: true},
			collection:        core.HalfLink{},
			wantBillingStatus: core.BillingPartial,
			wantBilledAmount:  "60.00",
			wantPaymentStatus: core.PaymentPending,
			wantPaidAmount:    "0",
		},
		{
			name:              "collection half linked, unpaid",
			invoicing:         core.HalfLink{},
			collection:        core.HalfLink{Linked: true},
			wantBillingStatus: core.BillingPartial,
			wantBilledAmount:  "60.01",
			wantPaymentStatus: core.PaymentPending,
			wantPaidAmount:    "0",
		},
		{
			name:              "both linked, neither settled",
			invoicing:         core.HalfLink{Linked: true},
			collection:        core.HalfLink{Linked: true},
			wantBillingStatus: core.BillingBilled,
			wantBilledAmount:  "120.01",
			wantPaymentStatus: core.PaymentPending,
			wantPaidAmount:    "0",
		},
		{
			name:              "both linked, one settled",
			invoicing:         core.HalfLink{Linked: true, Settled: true},
			collection:        core.HalfLink{Linked: true},
			wantBillingStatus: core.BillingBilled,
			wantBilledAmount:  "120.01",
			wantPaymentStatus: core.PaymentPartial,
			wantPaidAmount:    "60.00",
		},
		{
			name:              "both linked, both settled",
			invoicing:         core.HalfLink{Linked: true, Settled: true},
			collection:        core.HalfLink{Linked: true, Settled: true},
			wantBillingStatus: core.BillingBilled,
			wantBilledAmount:  "120.01",
			wantPaymentStatus: core.PaymentPaid,
			wantPaidAmount:    "120.01",
		},
		{
			name:              "settled flag without link is ignored",
			invoicing:         core.HalfLink{Settled: true},
			collection:        core.HalfLink{},
			wantBillingStatus: core.BillingPending,
			wantBilledAmount:  "0",
			wantPaymentStatus: core.PaymentPending,
			wantPaidAmount:    "0",
		},
		{
			name:              "single linked and settled half stays partial",
			invoicing:         core.HalfLink{},
			collection:        core.HalfLink{Linked: true, Settled: true},
			wantBillingStatus: core.BillingPartial,
			wantBilledAmount:  "60.01",
			wantPaymentStatus: core.PaymentPartial,
			wantPaidAmount:    "60.01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.ProjectBilling(inv, col, tt.invoicing, tt.collection)

			if got.BillingStatus != tt.wantBillingStatus {
				t.Errorf("BillingStatus = %s, want %s", got.BillingStatus, tt.wantBillingStatus)
			}
			if !got.BilledAmount.Equal(decimal.RequireFromString(tt.wantBilledAmount)) {
				t.Errorf("BilledAmount = %s, want %s", got.BilledAmount, tt.wantBilledAmount)
			}
			if got.PaymentStatus != tt.wantPaymentStatus {
				t.Errorf("PaymentStatus = %s, want %s", got.PaymentStatus, tt.wantPaymentStatus)
			}
			if !got.PaidAmount.Equal(decimal.RequireFromString(tt.wantPaidAmount)) {
				t.Errorf("PaidAmount = %s, want %s", got.PaidAmount, tt.wantPaidAmount)
			}
		})
	}
}

func TestProjectBilling_NegativeAmounts(t *testing.T) {
	// Credit-note commissions carry negative halves; the projection sums them
	// as-is so billed and paid amounts come out negative too.
	inv := decimal.RequireFromString("-25.00")
	col := decimal.RequireFromString("-25.00")

	got := core.ProjectBilling(inv, col,
		core.HalfLink{Linked: true, Settled: true},
		core.HalfLink{Linked: true, Settled: true})

	if got.BillingStatus != core.BillingBilled {
		t.Errorf("BillingStatus = %s, want %s", got.BillingStatus, core.BillingBilled)
	}
	want := decimal.RequireFromString("-50.00")
	if !got.BilledAmount.Equal(want) {
		t.Errorf("BilledAmount = %s, want %s", got.BilledAmount, want)
	}
	if !got.PaidAmount.Equal(want) {
		t.Errorf("PaidAmount = %s, want %s", got.PaidAmount, want)
	}
}
