package product

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultUnit is the Bulgarian abbreviation for "piece".
const DefaultUnit = "бр."

// DefaultVATRate is the standard Bulgarian VAT rate.
var DefaultVATRate = decimal.NewFromInt(20)

// Product is a catalogue entry.
type Product struct {
	ID          int64           `json:"id"`
	CompanyID   int64           `json:"companyId"`
	Code        string          `json:"code,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	VATRate     decimal.Decimal `json:"vatRate"`
	Unit        string          `json:"unit"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Summary is the projection used by active lists and document items.
type Summary struct {
	ID      int64            `json:"id"`
	Name    string           `json:"name"`
	Code    string           `json:"code,omitempty"`
	Price   *decimal.Decimal `json:"price,omitempty"`
	VATRate *decimal.Decimal `json:"vatRate,omitempty"`
	Unit    string           `json:"unit,omitempty"`
}

// Summary projects the product for active lists.
func (p Product) Summary() Summary {
	price, rate := p.Price, p.VATRate
	return Summary{ID: p.ID, Name: p.Name, Code: p.Code, Price: &price, VATRate: &rate, Unit: p.Unit}
}

// MarshalJSON writes the price with two decimals.
func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	return json.Marshal(struct {
		plain
		Price string `json:"price"`
	}{plain(p), p.Price.StringFixed(2)})
}
