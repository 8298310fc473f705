package company

import "time"

// Company is the issuing business. Each user owns at most one.
type Company struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	EIK       string    `json:"eik"`
	VATNumber string    `json:"vatNumber,omitempty"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	BankName  string    `json:"bankName,omitempty"`
	IBAN      string    `json:"iban,omitempty"`
	BIC       string    `json:"bic,omitempty"`
	Logo      string    `json:"logo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasBankDetails reports whether payment instructions can be printed from the
// company record alone.
func (c Company) HasBankDetails() bool {
	return c.BankName != "" && c.IBAN != ""
}
