package document

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/app/domain/client"
	"github.com/bgfactura/invoicing/internal/app/domain/product"
)

// Type identifies the kind of billing document.
type Type string

const (
	TypeInvoice  Type = "invoice"
	TypeQuote    Type = "quote"
	TypeDelivery Type = "delivery"
	TypeProforma Type = "proforma"
)

// Types lists every document type.
var Types = []Type{TypeInvoice, TypeQuote, TypeDelivery, TypeProforma}

// Valid reports whether t is a known document type.
func (t Type) Valid() bool {
	switch t {
	case TypeInvoice, TypeQuote, TypeDelivery, TypeProforma:
		return true
	}
	return false
}

// Status is the lifecycle state of a document.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Editable reports whether a document in this status may change content.
func (s Status) Editable() bool {
	return s != StatusPaid && s != StatusCancelled
}

// Supported currencies and languages.
const (
	CurrencyBGN = "BGN"
	CurrencyEUR = "EUR"
	CurrencyUSD = "USD"

	LanguageBG = "bg"
	LanguageES = "es"
	LanguageEN = "en"
)

// ValidCurrency reports whether c is accepted on documents.
func ValidCurrency(c string) bool {
	return c == CurrencyBGN || c == CurrencyEUR || c == CurrencyUSD
}

// ValidLanguage reports whether l is a supported document language.
func ValidLanguage(l string) bool {
	return l == LanguageBG || l == LanguageES || l == LanguageEN
}

// Document is an invoice, quote, delivery note or proforma.
type Document struct {
	ID               int64           `json:"id"`
	CompanyID        int64           `json:"companyId"`
	ClientID         int64           `json:"clientId"`
	DocumentType     Type            `json:"documentType"`
	DocumentNumber   string          `json:"documentNumber"`
	DocumentDate     time.Time       `json:"documentDate"`
	DueDate          *time.Time      `json:"dueDate,omitempty"`
	Currency         string          `json:"currency"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	VATAmount        decimal.Decimal `json:"vatAmount"`
	Total            decimal.Decimal `json:"total"`
	Status           Status          `json:"status"`
	Language         string          `json:"language"`
	Notes            string          `json:"notes,omitempty"`
	SourceDocumentID *int64          `json:"sourceDocumentId,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`

	Client *client.Summary `json:"client,omitempty"`
	Items  []Item          `json:"items,omitempty"`
}

// Item is a document line.
type Item struct {
	ID          int64           `json:"id"`
	DocumentID  int64           `json:"documentId"`
	ProductID   *int64          `json:"productId,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	VATRate     decimal.Decimal `json:"vatRate"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Product *product.Summary `json:"product,omitempty"`
}

// Filter narrows document listings.
type Filter struct {
	Type     Type
	Statuses []Status
	// DueBefore selects documents whose due date is strictly before it.
	DueBefore *time.Time
	// DateFrom and DateTo bound documentDate inclusively.
	DateFrom *time.Time
	DateTo   *time.Time
}

// Aggregate is a count and a summed total over a set of documents.
type Aggregate struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// MarshalJSON writes money amounts with two decimals.
func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	return json.Marshal(struct {
		plain
		Subtotal  string `json:"subtotal"`
		VATAmount string `json:"vatAmount"`
		Total     string `json:"total"`
	}{plain(d), d.Subtotal.StringFixed(2), d.VATAmount.StringFixed(2), d.Total.StringFixed(2)})
}

// MarshalJSON writes the line total with two decimals.
func (i Item) MarshalJSON() ([]byte, error) {
	type plain Item
	return json.Marshal(struct {
		plain
		Total string `json:"total"`
	}{plain(i), i.Total.StringFixed(2)})
}
