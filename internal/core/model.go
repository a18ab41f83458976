package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Company struct {
	ID           int    `json:"id"`
	CompanyCode  string `json:"company_code"`
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency"`
}

// Salesperson is the commission beneficiary and the payee of commission bills.
type Salesperson struct {
	ID        int       `json:"id"`
	CompanyID int       `json:"company_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type ProductCategory struct {
	ID        int    `json:"id"`
	CompanyID int    `json:"company_id"`
	Name      string `json:"name"`
}

type Product struct {
	ID         int    `json:"id"`
	CompanyID  int    `json:"company_id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	CategoryID *int   `json:"category_id,omitempty"`
	IsActive   bool   `json:"is_active"`
}

// Customer is a billing partner. ParentID links a child contact to its
// commercial entity; commission rules always match against the top-level
// customer. CommissionZoneID is a manual zone override that beats the
// geographic match.
type Customer struct {
	ID               int       `json:"id"`
	CompanyID        int       `json:"company_id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	ParentID         *int      `json:"parent_id,omitempty"`
	CountryCode      *string   `json:"country_code,omitempty"`
	StateCode        *string   `json:"state_code,omitempty"`
	CommissionZoneID *int      `json:"commission_zone_id,omitempty"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

// CommercialZone groups customers geographically for rule matching.
// A nil StateCode makes the zone country-wide. Sub-provincial zones exist
// only through manual assignment on the customer.
type CommercialZone struct {
	ID          int       `json:"id"`
	CompanyID   int       `json:"company_id"`
	Name        string    `json:"name"`
	CountryCode string    `json:"country_code"`
	StateCode   *string   `json:"state_code,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CommissionRule maps a salesperson (and optionally a customer, zone and
// product category) to a commission percentage. A nil dimension matches any
// value of that dimension. Rules are deactivated, never deleted, so historical
// commission rows keep a valid rule reference.
type CommissionRule struct {
	ID            int             `json:"id"`
	CompanyID     int             `json:"company_id"`
	SalespersonID int             `json:"salesperson_id"`
	CustomerID    *int            `json:"customer_id,omitempty"`
	ZoneID        *int            `json:"zone_id,omitempty"`
	CategoryID    *int            `json:"category_id,omitempty"`
	Percentage    decimal.Decimal `json:"percentage"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

type DocType string

const (
	DocTypeInvoice    DocType = "INVOICE"
	DocTypeCreditNote DocType = "CREDIT_NOTE"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "DRAFT"
	InvoiceStatusPosted InvoiceStatus = "POSTED"
)

type PaymentState string

const (
	PaymentStateNotPaid   PaymentState = "NOT_PAID"
	PaymentStatePartial   PaymentState = "PARTIAL"
	PaymentStatePaid      PaymentState = "PAID"
	PaymentStateInPayment PaymentState = "IN_PAYMENT"
)

// IsSettled reports whether the state counts as full settlement.
// IN_PAYMENT is treated the same as PAID throughout the engine.
func (p PaymentState) IsSettled() bool {
	return p == PaymentStatePaid || p == PaymentStateInPayment
}

type DisplayType string

const (
	DisplayTypeProduct DisplayType = "product"
	DisplayTypeSection DisplayType = "section"
	DisplayTypeNote    DisplayType = "note"
)

type Invoice struct {
	ID            int             `json:"id"`
	CompanyID     int             `json:"company_id"`
	DocType       DocType         `json:"doc_type"`
	Status        InvoiceStatus   `json:"status"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	CustomerID    int             `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	SalespersonID *int            `json:"salesperson_id,omitempty"`
	InvoiceDate   string          `json:"invoice_date"`
	Currency      string          `json:"currency"`
	PaymentState  PaymentState    `json:"payment_state"`
	TotalNet      decimal.Decimal `json:"total_net"`
	CreatedAt     time.Time       `json:"created_at"`
	PostedAt      *time.Time      `json:"posted_at,omitempty"`
	Lines         []InvoiceLine   `json:"lines,omitempty"`
}

type InvoiceLine struct {
	ID          int             `json:"id"`
	InvoiceID   int             `json:"invoice_id"`
	LineNumber  int             `json:"line_number"`
	DisplayType DisplayType     `json:"display_type"`
	ProductID   *int            `json:"product_id,omitempty"`
	CategoryID  *int            `json:"category_id,omitempty"`
	Description string          `json:"description"`
	NetAmount   decimal.Decimal `json:"net_amount"`
}

type AccrualStatus string

const (
	AccrualPending AccrualStatus = "pending"
	AccrualAccrued AccrualStatus = "accrued"
)

type BillingStatus string

const (
	BillingPending BillingStatus = "pending"
	BillingPartial BillingStatus = "partial"
	BillingBilled  BillingStatus = "billed"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Half identifies one of the two 50% portions of a commission.
type Half string

const (
	HalfInvoicing  Half = "invoicing"
	HalfCollection Half = "collection"
)

// Commission is one accrued-commission group: one row per
// (invoice, rule, percentage) combination. The invoicing half is earned when
// the invoice is posted; the collection half when it is fully collected.
type Commission struct {
	ID            int             `json:"id"`
	InvoiceID     int             `json:"invoice_id"`
	CompanyID     int             `json:"company_id"`
	SalespersonID int             `json:"salesperson_id"`
	RuleID        *int            `json:"rule_id,omitempty"`
	CustomerID    int             `json:"customer_id"`
	BaseAmount    decimal.Decimal `json:"base_amount"`
	Percentage    decimal.Decimal `json:"percentage"`
	TotalAmount   decimal.Decimal `json:"total_amount"`

	InvoicingAmount  decimal.Decimal `json:"invoicing_amount"`
	CollectionAmount decimal.Decimal `json:"collection_amount"`
	InvoicingStatus  AccrualStatus   `json:"invoicing_status"`
	CollectionStatus AccrualStatus   `json:"collection_status"`

	InvoicingBillID  *int `json:"invoicing_bill_id,omitempty"`
	CollectionBillID *int `json:"collection_bill_id,omitempty"`

	BillingStatus BillingStatus   `json:"billing_status"`
	BilledAmount  decimal.Decimal `json:"billed_amount"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`

	CreatedAt time.Time `json:"created_at"`

	// Denormalized from the source invoice for operator listings.
	InvoiceNumber string  `json:"invoice_number,omitempty"`
	CustomerName  string  `json:"customer_name,omitempty"`
	DocType       DocType `json:"doc_type,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	InvoiceDate   string  `json:"invoice_date,omitempty"`
}

// VendorBill is a payable-bill request grouping accrued, unbilled commission
// halves for one salesperson. The engine tracks its payment state but never
// generates its accounting postings.
type VendorBill struct {
	ID              int              `json:"id"`
	CompanyID       int              `json:"company_id"`
	SalespersonID   int              `json:"salesperson_id"`
	SalespersonName string           `json:"salesperson_name,omitempty"`
	BillNumber      string           `json:"bill_number"`
	BillDate        string           `json:"bill_date"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	PaymentState    PaymentState     `json:"payment_state"`
	CreatedAt       time.Time        `json:"created_at"`
	Lines           []VendorBillLine `json:"lines,omitempty"`
}

type VendorBillLine struct {
	ID           int             `json:"id"`
	BillID       int             `json:"bill_id"`
	LineNumber   int             `json:"line_number"`
	CommissionID int             `json:"commission_id"`
	Half         Half            `json:"half"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
}
