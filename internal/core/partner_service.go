package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PartnerService manages the master data the engine matches against:
// salespersons, customers, product categories and products.
type PartnerService interface {
	CreateSalesperson(ctx context.Context, companyID int, code, name, email string) (*Salesperson, error)
	GetSalespersons(ctx context.Context, companyID int) ([]Salesperson, error)

	CreateCustomer(ctx context.Context, companyID int, input CustomerInput) (*Customer, error)
	GetCustomers(ctx context.Context, companyID int) ([]Customer, error)
	GetCustomer(ctx context.Context, companyID, customerID int) (*Customer, error)

	// CommercialEntity returns the top-level customer of a contact chain.
	CommercialEntity(ctx context.Context, customerID int) (int, error)

	CreateCategory(ctx context.Context, companyID int, name string) (*ProductCategory, error)
	GetCategories(ctx context.Context, companyID int) ([]ProductCategory, error)

	CreateProduct(ctx context.Context, companyID int, code, name string, categoryID *int) (*Product, error)
	GetProducts(ctx context.Context, companyID int) ([]Product, error)
}

// CustomerInput holds the fields required to create a customer.
type CustomerInput struct {
	Code             string
	Name             string
	ParentID         *int
	CountryCode      string
	StateCode        string
	CommissionZoneID *int
}

type partnerService struct {
	pool *pgxpool.Pool
}

// NewPartnerService constructs a PartnerService backed by PostgreSQL.
func NewPartnerService(pool *pgxpool.Pool) PartnerService {
	return &partnerService{pool: pool}
}

func (s *partnerService) CreateSalesperson(ctx context.Context, companyID int, code, name, email string) (*Salesperson, error) {
	var emailPtr *string
	if email != "" {
		emailPtr = &email
	}

	sp := &Salesperson{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO salespersons (company_id, code, name, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, company_id, code, name, email, is_active, created_at`,
		companyID, code, name, emailPtr,
	).Scan(&sp.ID, &sp.CompanyID, &sp.Code, &sp.Name, &sp.Email, &sp.IsActive, &sp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create salesperson %q: %w", code, err)
	}
	return sp, nil
}

func (s *partnerService) GetSalespersons(ctx context.Context, companyID int) ([]Salesperson, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, email, is_active, created_at
		FROM salespersons
		WHERE company_id = $1 AND is_active = true
		ORDER BY code`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("get salespersons: %w", err)
	}
	defer rows.Close()

	var result []Salesperson
	for rows.Next() {
		var sp Salesperson
		if err := rows.Scan(&sp.ID, &sp.CompanyID, &sp.Code, &sp.Name, &sp.Email, &sp.IsActive, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan salesperson: %w", err)
		}
		result = append(result, sp)
	}
	return result, nil
}

func (s *partnerService) CreateCustomer(ctx context.Context, companyID int, input CustomerInput) (*Customer, error) {
	toPtr := func(v string) *string {
		if v == "" {
			return nil
		}
		return &v
	}

	c := &Customer{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (company_id, code, name, parent_id, country_code, state_code, commission_zone_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, company_id, code, name, parent_id, country_code, state_code, commission_zone_id, is_active, created_at`,
		companyID, input.Code, input.Name, input.ParentID,
		toPtr(input.CountryCode), toPtr(input.StateCode), input.CommissionZoneID,
	).Scan(&c.ID, &c.CompanyID, &c.Code, &c.Name, &c.ParentID,
		&c.CountryCode, &c.StateCode, &c.CommissionZoneID, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create customer %q: %w", input.Code, err)
	}
	return c, nil
}

func (s *partnerService) GetCustomers(ctx context.Context, companyID int) ([]Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, parent_id, country_code, state_code, commission_zone_id, is_active, created_at
		FROM customers
		WHERE company_id = $1 AND is_active = true
		ORDER BY code`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("get customers: %w", err)
	}
	defer rows.Close()

	var result []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Code, &c.Name, &c.ParentID,
			&c.CountryCode, &c.StateCode, &c.CommissionZoneID, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		result = append(result, c)
	}
	return result, nil
}

func (s *partnerService) GetCustomer(ctx context.Context, companyID, customerID int) (*Customer, error) {
	c := &Customer{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_id, code, name, parent_id, country_code, state_code, commission_zone_id, is_active, created_at
		FROM customers
		WHERE id = $1 AND company_id = $2`,
		customerID, companyID,
	).Scan(&c.ID, &c.CompanyID, &c.Code, &c.Name, &c.ParentID,
		&c.CountryCode, &c.StateCode, &c.CommissionZoneID, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %d not found", customerID)
		}
		return nil, fmt.Errorf("fetch customer %d: %w", customerID, err)
	}
	return c, nil
}

func (s *partnerService) CommercialEntity(ctx context.Context, customerID int) (int, error) {
	return commercialEntityQ(ctx, s.pool, customerID)
}

func (s *partnerService) CreateCategory(ctx context.Context, companyID int, name string) (*ProductCategory, error) {
	if name == "" {
		return nil, fmt.Errorf("category requires a name")
	}

	c := &ProductCategory{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO product_categories (company_id, name)
		VALUES ($1, $2)
		RETURNING id, company_id, name`,
		companyID, name,
	).Scan(&c.ID, &c.CompanyID, &c.Name)
	if err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}
	return c, nil
}

func (s *partnerService) GetCategories(ctx context.Context, companyID int) ([]ProductCategory, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, company_id, name FROM product_categories WHERE company_id = $1 ORDER BY name",
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	defer rows.Close()

	var result []ProductCategory
	for rows.Next() {
		var c ProductCategory
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		result = append(result, c)
	}
	return result, nil
}

func (s *partnerService) CreateProduct(ctx context.Context, companyID int, code, name string, categoryID *int) (*Product, error) {
	p := &Product{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (company_id, code, name, category_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, company_id, code, name, category_id, is_active`,
		companyID, code, name, categoryID,
	).Scan(&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.CategoryID, &p.IsActive)
	if err != nil {
		return nil, fmt.Errorf("create product %q: %w", code, err)
	}
	return p, nil
}

func (s *partnerService) GetProducts(ctx context.Context, companyID int) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, category_id, is_active
		FROM products
		WHERE company_id = $1 AND is_active = true
		ORDER BY code`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	var result []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.CategoryID, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		result = append(result, p)
	}
	return result, nil
}
