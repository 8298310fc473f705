package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgfactura/invoicing/internal/errors"
)

func TestValidEIK(t *testing.T) {
	tests := []struct {
		eik  string
		want bool
	}{
		{"831641791", true},
		{"121887994", true},
		{"175074752", true},
		{"899579030", true},
		{"899579031", false},
		{"831641792", false},
		{"83164179", false},
		{"83164179A", false},
		{"8316417910001", true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.eik, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEIK(tt.eik))
		})
	}
}

func TestValidBulgarianIBAN(t *testing.T) {
	assert.True(t, ValidBulgarianIBAN("BG80BNBG96611020345678"))
	assert.True(t, ValidBulgarianIBAN("bg80 bnbg 9661 1020 3456 78"))
	assert.False(t, ValidBulgarianIBAN("BG81BNBG96611020345678"))
	assert.False(t, ValidBulgarianIBAN("DE89370400440532013000"))
	assert.False(t, ValidBulgarianIBAN("BG80BNBG9661102034567"))
}

func TestVATRatesAndCurrency(t *testing.T) {
	assert.Equal(t, []string{"0", "9", "20"}, strs(VATRates("bg")))
	assert.Equal(t, []string{"0", "10", "21"}, strs(VATRates("es")))
	assert.Equal(t, []string{"0", "5", "20"}, strs(VATRates("en")))
	assert.Equal(t, "BGN", CurrencyForLanguage("bg"))
	assert.Equal(t, "EUR", CurrencyForLanguage("es"))
}

func strs(ds []decimal.Decimal) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}

type sampleItem struct {
	Quantity decimal.Decimal `json:"quantity" validate:"dgte=0.01"`
	VATRate  decimal.Decimal `json:"vatRate" validate:"dgte=0,dlte=100"`
}

type samplePayload struct {
	Name  string       `json:"name" validate:"required"`
	Email string       `json:"email" validate:"omitempty,email"`
	EIK   string       `json:"eik" validate:"required,min=9,max=13"`
	Items []sampleItem `json:"items" validate:"required,min=1,dive"`
}

func TestStructReportsFieldDetails(t *testing.T) {
	err := Struct(samplePayload{
		Email: "not-an-email",
		EIK:   "123",
		Items: []sampleItem{{Quantity: decimal.Zero, VATRate: decimal.NewFromInt(120)}},
	})
	require.Error(t, err)

	se := errors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, errors.CodeValidation, se.Code)
	assert.Equal(t, "is required", se.Details["name"])
	assert.Equal(t, "must be a valid email", se.Details["email"])
	assert.Equal(t, "must be at least 9 characters", se.Details["eik"])
	assert.Contains(t, se.Details, "items[0].quantity")
	assert.Contains(t, se.Details, "items[0].vatRate")
}

func TestStructAcceptsValidPayload(t *testing.T) {
	err := Struct(samplePayload{
		Name:  "Acme",
		EIK:   "831641791",
		Items: []sampleItem{{Quantity: decimal.NewFromInt(1), VATRate: decimal.NewFromInt(20)}},
	})
	assert.NoError(t, err)
}

func TestStructComparesDecimalsExactly(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		vatRate  string
		invalid  string
	}{
		{"at bounds", "0.01", "100", ""},
		{"rate just above 100", "1", "100.0000000000000001", "items[0].vatRate"},
		{"quantity just below 0.01", "0.00999999999999999999", "20", "items[0].quantity"},
		{"negative rate", "1", "-0.0000000000000001", "items[0].vatRate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(samplePayload{
				Name: "Acme",
				EIK:  "831641791",
				Items: []sampleItem{{
					Quantity: decimal.RequireFromString(tt.quantity),
					VATRate:  decimal.RequireFromString(tt.vatRate),
				}},
			})
			if tt.invalid == "" {
				assert.NoError(t, err)
				return
			}
			se := errors.GetServiceError(err)
			require.NotNil(t, se)
			assert.Len(t, se.Details, 1)
			assert.Contains(t, se.Details, tt.invalid)
		})
	}
}

func TestStructDecimalMessages(t *testing.T) {
	err := Struct(sampleItem{Quantity: decimal.Zero, VATRate: decimal.NewFromInt(101)})
	se := errors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, "must be greater than or equal to 0.01", se.Details["quantity"])
	assert.Equal(t, "must be less than or equal to 100", se.Details["vatRate"])
}

type bankPayload struct {
	EIK  string `json:"eik" validate:"omitempty,eik"`
	IBAN string `json:"iban" validate:"omitempty,bgiban"`
}

func TestStructIdentifierTags(t *testing.T) {
	assert.NoError(t, Struct(bankPayload{EIK: "831641791", IBAN: "BG80BNBG96611020345678"}))

	se := errors.GetServiceError(Struct(bankPayload{EIK: "000000001", IBAN: "BG81BNBG96611020345678"}))
	require.NotNil(t, se)
	assert.Equal(t, "is not a valid EIK", se.Details["eik"])
	assert.Equal(t, "is not a valid Bulgarian IBAN", se.Details["iban"])
}
