package core_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"commission-engine/internal/core"
)

func intPtr(v int) *int { return &v }

func rule(id int, customerID, zoneID, categoryID *int, pct string) core.CommissionRule {
	return core.CommissionRule{
		ID:            id,
		CompanyID:     1,
		SalespersonID: 10,
		CustomerID:    customerID,
		ZoneID:        zoneID,
		CategoryID:    categoryID,
		Percentage:    decimal.RequireFromString(pct),
		IsActive:      true,
	}
}

func TestCommissionRule_Matches(t *testing.T) {
	tests := []struct {
		name string
		rule core.CommissionRule
		rctx core.RuleContext
		want bool
	}{
		{
			name: "full wildcard matches anything",
			rule: rule(1, nil, nil, nil, "5"),
			rctx: core.RuleContext{CustomerID: 7},
			want: true,
		},
		{
			name: "customer rule matches same customer",
			rule: rule(1, intPtr(7), nil, nil, "5"),
			rctx: core.RuleContext{CustomerID: 7},
			want: true,
		},
		{
			name: "customer rule rejects other customer",
			rule: rule(1, intPtr(7), nil, nil, "5"),
			rctx: core.RuleContext{CustomerID: 8},
			want: false,
		},
		{
			name: "zone rule rejects context without zone",
			rule: rule(1, nil, intPtr(3), nil, "5"),
			rctx: core.RuleContext{CustomerID: 7},
			want: false,
		},
		{
			name: "zone rule matches same zone",
			rule: rule(1, nil, intPtr(3), nil, "5"),
			rctx: core.RuleContext{CustomerID: 7, ZoneID: intPtr(3)},
			want: true,
		},
		{
			name: "category rule rejects context without category",
			rule: rule(1, nil, nil, intPtr(9), "5"),
			rctx: core.RuleContext{CustomerID: 7},
			want: false,
		},
		{
			name: "all dimensions must line up",
			rule: rule(1, intPtr(7), intPtr(3), intPtr(9), "5"),
			rctx: core.RuleContext{CustomerID: 7, ZoneID: intPtr(3), CategoryID: intPtr(2)},
			want: false,
		},
		{
			name: "fully pinned rule matches exact context",
			rule: rule(1, intPtr(7), intPtr(3), intPtr(9), "5"),
			rctx: core.RuleContext{CustomerID: 7, ZoneID: intPtr(3), CategoryID: intPtr(9)},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Matches(tt.rctx); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommissionRule_Specificity(t *testing.T) {
	tests := []struct {
		name string
		rule core.CommissionRule
		want int
	}{
		{"wildcard", rule(1, nil, nil, nil, "5"), 0},
		{"category only", rule(1, nil, nil, intPtr(9), "5"), 1},
		{"zone only", rule(1, nil, intPtr(3), nil, "5"), 2},
		{"zone and category", rule(1, nil, intPtr(3), intPtr(9), "5"), 3},
		{"customer only", rule(1, intPtr(7), nil, nil, "5"), 4},
		{"customer beats zone plus category", rule(1, intPtr(7), nil, nil, "5"), 4},
		{"everything pinned", rule(1, intPtr(7), intPtr(3), intPtr(9), "5"), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Specificity(); got != tt.want {
				t.Errorf("Specificity() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBestRule(t *testing.T) {
	fullCtx := core.RuleContext{CustomerID: 7, ZoneID: intPtr(3), CategoryID: intPtr(9)}

	tests := []struct {
		name       string
		candidates []core.CommissionRule
		rctx       core.RuleContext
		wantID     int // 0 means nil result
	}{
		{
			name:       "no candidates",
			candidates: nil,
			rctx:       fullCtx,
			wantID:     0,
		},
		{
			name: "no candidate matches",
			candidates: []core.CommissionRule{
				rule(1, intPtr(99), nil, nil, "5"),
			},
			rctx:   fullCtx,
			wantID: 0,
		},
		{
			name: "customer rule outranks zone and category combined",
			candidates: []core.CommissionRule{
				rule(1, nil, intPtr(3), intPtr(9), "2"),
				rule(2, intPtr(7), nil, nil, "5"),
			},
			rctx:   fullCtx,
			wantID: 2,
		},
		{
			name: "zone rule outranks category rule",
			candidates: []core.CommissionRule{
				rule(1, nil, nil, intPtr(9), "2"),
				rule(2, nil, intPtr(3), nil, "3"),
			},
			rctx:   fullCtx,
			wantID: 2,
		},
		{
			name: "wildcard used only as last resort",
			candidates: []core.CommissionRule{
				rule(1, nil, nil, nil, "1"),
				rule(2, nil, nil, intPtr(9), "2"),
			},
			rctx:   fullCtx,
			wantID: 2,
		},
		{
			name: "non-matching specific rule falls through to wildcard",
			candidates: []core.CommissionRule{
				rule(1, intPtr(99), intPtr(3), intPtr(9), "8"),
				rule(2, nil, nil, nil, "1"),
			},
			rctx:   fullCtx,
			wantID: 2,
		},
		{
			name: "score tie goes to lowest rule id",
			candidates: []core.CommissionRule{
				rule(5, intPtr(7), nil, nil, "5"),
				rule(3, intPtr(7), nil, nil, "4"),
				rule(8, intPtr(7), nil, nil, "6"),
			},
			rctx:   fullCtx,
			wantID: 3,
		},
		{
			name: "tie break is order independent",
			candidates: []core.CommissionRule{
				rule(3, intPtr(7), nil, nil, "4"),
				rule(5, intPtr(7), nil, nil, "5"),
			},
			rctx:   fullCtx,
			wantID: 3,
		},
		{
			name: "context without zone ignores zone rules",
			candidates: []core.CommissionRule{
				rule(1, nil, intPtr(3), nil, "3"),
				rule(2, nil, nil, intPtr(9), "2"),
			},
			rctx:   core.RuleContext{CustomerID: 7, CategoryID: intPtr(9)},
			wantID: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.BestRule(tt.candidates, tt.rctx)
			if tt.wantID == 0 {
				if got != nil {
					t.Errorf("BestRule() = rule %d, want nil", got.ID)
				}
				return
			}
			if got == nil {
				t.Fatalf("BestRule() = nil, want rule %d", tt.wantID)
			}
			if got.ID != tt.wantID {
				t.Errorf("BestRule() = rule %d, want rule %d", got.ID, tt.wantID)
			}
		})
	}
}
