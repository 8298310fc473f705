package banking

import "time"

// PaymentType classifies a payment method.
type PaymentType string

const (
	PaymentCash         PaymentType = "cash"
	PaymentBankTransfer PaymentType = "bank_transfer"
	PaymentCard         PaymentType = "card"
	PaymentOther        PaymentType = "other"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentCash, PaymentBankTransfer, PaymentCard, PaymentOther:
		return true
	}
	return false
}

// PaymentMethod is a way a company accepts payment.
type PaymentMethod struct {
	ID        int64       `json:"id"`
	CompanyID int64       `json:"companyId"`
	Name      string      `json:"name"`
	Type      PaymentType `json:"type"`
	IsDefault bool        `json:"isDefault"`
	IsActive  bool        `json:"isActive"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// BankAccount is a company bank account printed on documents.
type BankAccount struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"companyId"`
	AccountName string    `json:"accountName"`
	BankName    string    `json:"bankName"`
	IBAN        string    `json:"iban"`
	BIC         string    `json:"bic,omitempty"`
	Currency    string    `json:"currency"`
	IsDefault   bool      `json:"isDefault"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
