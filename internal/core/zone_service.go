package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ZoneService manages commercial zones and resolves which zone applies to a
// customer.
type ZoneService interface {
	CreateZone(ctx context.Context, companyID int, input ZoneInput) (*CommercialZone, error)
	GetZones(ctx context.Context, companyID int) ([]CommercialZone, error)

	// ResolveZone determines the customer's effective zone: the manual
	// override on the customer if set, otherwise the active zone matching the
	// customer's country and province (lowest zone ID wins when several
	// match), otherwise nil. A nil zone is a valid outcome, not an error.
	ResolveZone(ctx context.Context, customerID int) (*CommercialZone, error)
}

// ZoneInput holds the fields required to create a commercial zone.
type ZoneInput struct {
	Name        string
	CountryCode string
	StateCode   string // empty for a country-wide zone
}

type zoneService struct {
	pool *pgxpool.Pool
}

// NewZoneService constructs a ZoneService backed by PostgreSQL.
func NewZoneService(pool *pgxpool.Pool) ZoneService {
	return &zoneService{pool: pool}
}

func (s *zoneService) CreateZone(ctx context.Context, companyID int, input ZoneInput) (*CommercialZone, error) {
	if input.Name == "" || input.CountryCode == "" {
		return nil, fmt.Errorf("zone requires a name and a country code")
	}

	var stateCode *string
	if input.StateCode != "" {
		stateCode = &input.StateCode
	}

	z := &CommercialZone{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO commission_zones (company_id, name, country_code, state_code)
		VALUES ($1, $2, $3, $4)
		RETURNING id, company_id, name, country_code, state_code, is_active, created_at`,
		companyID, input.Name, input.CountryCode, stateCode,
	).Scan(&z.ID, &z.CompanyID, &z.Name, &z.CountryCode, &z.StateCode, &z.IsActive, &z.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create zone %q: %w", input.Name, err)
	}
	return z, nil
}

func (s *zoneService) GetZones(ctx context.Context, companyID int) ([]CommercialZone, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, name, country_code, state_code, is_active, created_at
		FROM commission_zones
		WHERE company_id = $1 AND is_active = true
		ORDER BY country_code, state_code NULLS FIRST, name`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("get zones: %w", err)
	}
	defer rows.Close()

	var zones []CommercialZone
	for rows.Next() {
		var z CommercialZone
		if err := rows.Scan(&z.ID, &z.CompanyID, &z.Name, &z.CountryCode, &z.StateCode, &z.IsActive, &z.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	return zones, nil
}

func (s *zoneService) ResolveZone(ctx context.Context, customerID int) (*CommercialZone, error) {
	return resolveZoneQ(ctx, s.pool, customerID)
}

// resolveZoneQ implements zone resolution over any querier so commission
// generation can run it inside its own transaction.
func resolveZoneQ(ctx context.Context, q pgxQuerier, customerID int) (*CommercialZone, error) {
	var companyID int
	var overrideID *int
	var countryCode, stateCode *string
	err := q.QueryRow(ctx,
		"SELECT company_id, commission_zone_id, country_code, state_code FROM customers WHERE id = $1",
		customerID,
	).Scan(&companyID, &overrideID, &countryCode, &stateCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %d not found", customerID)
		}
		return nil, fmt.Errorf("fetch customer %d for zone resolution: %w", customerID, err)
	}

	// Manual override always wins; it is how sub-provincial zones exist.
	if overrideID != nil {
		return fetchZoneQ(ctx, q, *overrideID)
	}

	if countryCode == nil || stateCode == nil {
		return nil, nil
	}

	z := &CommercialZone{}
	err = q.QueryRow(ctx, `
		SELECT id, company_id, name, country_code, state_code, is_active, created_at
		FROM commission_zones
		WHERE company_id = $1 AND country_code = $2 AND state_code = $3 AND is_active = true
		ORDER BY id
		LIMIT 1`,
		companyID, *countryCode, *stateCode,
	).Scan(&z.ID, &z.CompanyID, &z.Name, &z.CountryCode, &z.StateCode, &z.IsActive, &z.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("match zone for customer %d: %w", customerID, err)
	}
	return z, nil
}

func fetchZoneQ(ctx context.Context, q pgxQuerier, zoneID int) (*CommercialZone, error) {
	z := &CommercialZone{}
	err := q.QueryRow(ctx, `
		SELECT id, company_id, name, country_code, state_code, is_active, created_at
		FROM commission_zones
		WHERE id = $1`,
		zoneID,
	).Scan(&z.ID, &z.CompanyID, &z.Name, &z.CountryCode, &z.StateCode, &z.IsActive, &z.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("zone %d not found: %w", zoneID, err)
	}
	return z, nil
}
