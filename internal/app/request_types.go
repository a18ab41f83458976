package app

import (
	"github.com/shopspring/decimal"

	"commission-engine/internal/core"
)

type CreateSalespersonRequest struct {
	CompanyCode string `json:"company_code"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
}

type CreateCustomerRequest struct {
	CompanyCode      string `json:"company_code"`
	Code             string `json:"code"`
	Name             string `json:"name"`
	ParentID         *int   `json:"parent_id,omitempty"`
	CountryCode      string `json:"country_code,omitempty"`
	StateCode        string `json:"state_code,omitempty"`
	CommissionZoneID *int   `json:"commission_zone_id,omitempty"`
}

type CreateProductRequest struct {
	CompanyCode string `json:"company_code"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	CategoryID  *int   `json:"category_id,omitempty"`
}

type CreateZoneRequest struct {
	CompanyCode string `json:"company_code"`
	Name        string `json:"name"`
	CountryCode string `json:"country_code"`
	StateCode   string `json:"state_code,omitempty"`
}

type CreateRuleRequest struct {
	CompanyCode   string          `json:"company_code"`
	SalespersonID int             `json:"salesperson_id"`
	CustomerID    *int            `json:"customer_id,omitempty"`
	ZoneID        *int            `json:"zone_id,omitempty"`
	CategoryID    *int            `json:"category_id,omitempty"`
	Percentage    decimal.Decimal `json:"percentage"`
}

type InvoiceLineRequest struct {
	DisplayType core.DisplayType `json:"display_type,omitempty"`
	ProductID   *int             `json:"product_id,omitempty"`
	Description string           `json:"description,omitempty"`
	NetAmount   decimal.Decimal  `json:"net_amount"`
}

type CreateInvoiceRequest struct {
	CompanyCode   string               `json:"company_code"`
	DocType       core.DocType         `json:"doc_type"`
	CustomerID    int                  `json:"customer_id"`
	SalespersonID *int                 `json:"salesperson_id,omitempty"`
	InvoiceDate   string               `json:"invoice_date"`
	Currency      string               `json:"currency,omitempty"`
	Lines         []InvoiceLineRequest `json:"lines"`
}

// CreateBillRequestsRequest is the operator's batch selection. Halves lists
// individual (commission, half) picks; CommissionIDs is a convenience that
// selects both halves of each listed commission.
type CreateBillRequestsRequest struct {
	CompanyCode   string               `json:"company_code"`
	Halves        []core.HalfSelection `json:"halves,omitempty"`
	CommissionIDs []int                `json:"commission_ids,omitempty"`
}
