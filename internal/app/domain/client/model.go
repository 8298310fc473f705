package client

import "time"

// Client is a customer of a company. Suppliers on expenses are clients too.
type Client struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"companyId"`
	Name      string    `json:"name"`
	EIK       string    `json:"eik"`
	VATNumber string    `json:"vatNumber,omitempty"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the projection embedded in documents and active lists.
type Summary struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	EIK     string `json:"eik,omitempty"`
	City    string `json:"city,omitempty"`
	Address string `json:"address,omitempty"`
}

// Summary projects the client.
func (c Client) Summary() Summary {
	return Summary{ID: c.ID, Name: c.Name, EIK: c.EIK, City: c.City}
}
