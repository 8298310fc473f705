package expense

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/app/domain/client"
)

// Status of an expense.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Expense is a cost booked against a company, optionally linked to a supplier.
type Expense struct {
	ID          int64           `json:"id"`
	CompanyID   int64           `json:"companyId"`
	SupplierID  *int64          `json:"supplierId,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	VATAmount   decimal.Decimal `json:"vatAmount"`
	Total       decimal.Decimal `json:"total"`
	ExpenseDate time.Time       `json:"expenseDate"`
	Category    string          `json:"category,omitempty"`
	Status      Status          `json:"status"`
	Attachments string          `json:"attachments,omitempty"`
	OCRData     string          `json:"ocrData,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Supplier *client.Summary `json:"supplier,omitempty"`
}

// MarshalJSON writes money amounts with two decimals.
func (e Expense) MarshalJSON() ([]byte, error) {
	type plain Expense
	return json.Marshal(struct {
		plain
		Amount    string `json:"amount"`
		VATAmount string `json:"vatAmount"`
		Total     string `json:"total"`
	}{plain(e), e.Amount.StringFixed(2), e.VATAmount.StringFixed(2), e.Total.StringFixed(2)})
}
