package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RuleService manages the commission rule table and resolves the percentage
// that applies to a sale.
type RuleService interface {
	CreateRule(ctx context.Context, companyID int, input RuleInput) (*CommissionRule, error)
	GetRules(ctx context.Context, companyID int, salespersonID *int) ([]CommissionRule, error)

	// DeactivateRule retires a rule. Rules are never deleted so historical
	// commission rows keep resolving their rule reference.
	DeactivateRule(ctx context.Context, companyID, ruleID int) error

	// ResolvePercentage returns the best-matching rule and its percentage for
	// a sale by (salesperson, customer, category, zone). The customer is
	// normalized to its commercial entity before matching. A (nil, 0, nil)
	// result means no rule applies, a valid outcome rather than an error.
	ResolvePercentage(ctx context.Context, companyID, salespersonID, customerID int, categoryID, zoneID *int) (*CommissionRule, decimal.Decimal, error)
}

// RuleInput holds the fields required to create a commission rule.
// Nil dimension IDs create wildcard dimensions.
type RuleInput struct {
	SalespersonID int
	CustomerID    *int
	ZoneID        *int
	CategoryID    *int
	Percentage    decimal.Decimal
}

type ruleService struct {
	pool *pgxpool.Pool
}

// NewRuleService constructs a RuleService backed by the commission_rules table.
func NewRuleService(pool *pgxpool.Pool) RuleService {
	return &ruleService{pool: pool}
}

func (s *ruleService) CreateRule(ctx context.Context, companyID int, input RuleInput) (*CommissionRule, error) {
	if input.Percentage.LessThanOrEqual(decimal.Zero) || input.Percentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("percentage must be in (0, 100], got %s", input.Percentage)
	}

	r := &CommissionRule{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO commission_rules (company_id, salesperson_id, customer_id, zone_id, category_id, percentage)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, company_id, salesperson_id, customer_id, zone_id, category_id, percentage, is_active, created_at`,
		companyID, input.SalespersonID, input.CustomerID, input.ZoneID, input.CategoryID, input.Percentage,
	).Scan(&r.ID, &r.CompanyID, &r.SalespersonID, &r.CustomerID, &r.ZoneID, &r.CategoryID,
		&r.Percentage, &r.IsActive, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create commission rule: %w", err)
	}
	return r, nil
}

func (s *ruleService) GetRules(ctx context.Context, companyID int, salespersonID *int) ([]CommissionRule, error) {
	query := `
		SELECT id, company_id, salesperson_id, customer_id, zone_id, category_id, percentage, is_active, created_at
		FROM commission_rules
		WHERE company_id = $1 AND is_active = true`
	args := []any{companyID}
	if salespersonID != nil {
		query += " AND salesperson_id = $2"
		args = append(args, *salespersonID)
	}
	query += " ORDER BY salesperson_id, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query commission rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

func (s *ruleService) DeactivateRule(ctx context.Context, companyID, ruleID int) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE commission_rules SET is_active = false WHERE id = $1 AND company_id = $2",
		ruleID, companyID,
	)
	if err != nil {
		return fmt.Errorf("deactivate rule %d: %w", ruleID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rule %d not found", ruleID)
	}
	return nil
}

func (s *ruleService) ResolvePercentage(ctx context.Context, companyID, salespersonID, customerID int, categoryID, zoneID *int) (*CommissionRule, decimal.Decimal, error) {
	return resolvePercentageQ(ctx, s.pool, companyID, salespersonID, customerID, categoryID, zoneID)
}

func resolvePercentageQ(ctx context.Context, q pgxQuerier, companyID, salespersonID, customerID int, categoryID, zoneID *int) (*CommissionRule, decimal.Decimal, error) {
	commercialID, err := commercialEntityQ(ctx, q, customerID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	candidates, err := candidateRulesQ(ctx, q, companyID, salespersonID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	best := BestRule(candidates, RuleContext{
		CustomerID: commercialID,
		ZoneID:     zoneID,
		CategoryID: categoryID,
	})
	if best == nil {
		return nil, decimal.Zero, nil
	}
	return best, best.Percentage, nil
}

// candidateRulesQ fetches every active rule for the salesperson; wildcard
// matching and specificity scoring happen in one pass in Go (BestRule).
func candidateRulesQ(ctx context.Context, q pgxQuerier, companyID, salespersonID int) ([]CommissionRule, error) {
	rows, err := q.Query(ctx, `
		SELECT id, company_id, salesperson_id, customer_id, zone_id, category_id, percentage, is_active, created_at
		FROM commission_rules
		WHERE company_id = $1 AND salesperson_id = $2 AND is_active = true
		ORDER BY id`,
		companyID, salespersonID,
	)
	if err != nil {
		return nil, fmt.Errorf("query candidate rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

func scanRules(rows pgx.Rows) ([]CommissionRule, error) {
	var rules []CommissionRule
	for rows.Next() {
		var r CommissionRule
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.SalespersonID, &r.CustomerID, &r.ZoneID,
			&r.CategoryID, &r.Percentage, &r.IsActive, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan commission rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// commercialEntityQ walks parent_id links to the top-level customer. Child
// contacts inherit the parent's commission rules, so all rule matching uses
// the commercial entity. The walk is bounded to survive accidental cycles.
func commercialEntityQ(ctx context.Context, q pgxQuerier, customerID int) (int, error) {
	current := customerID
	for depth := 0; depth < 32; depth++ {
		var parent *int
		err := q.QueryRow(ctx, "SELECT parent_id FROM customers WHERE id = $1", current).Scan(&parent)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, fmt.Errorf("customer %d not found", current)
			}
			return 0, fmt.Errorf("resolve commercial entity of customer %d: %w", customerID, err)
		}
		if parent == nil || *parent == current {
			return current, nil
		}
		current = *parent
	}
	return 0, fmt.Errorf("customer %d: parent chain too deep", customerID)
}
