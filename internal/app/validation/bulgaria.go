package validation

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	eikWeights    = []int{1, 2, 3, 4, 5, 6, 7, 8}
	eikAltWeights = []int{3, 4, 5, 6, 7, 8, 9, 10}
)

// ValidEIK checks a nine-digit Bulgarian EIK (BULSTAT) check digit. Thirteen
// digit branch codes are accepted when their first nine digits are valid.
func ValidEIK(eik string) bool {
	eik = strings.TrimSpace(eik)
	if len(eik) != 9 && len(eik) != 13 {
		return false
	}
	digits := make([]int, len(eik))
	for i, r := range eik {
		if r < '0' || r > '9' {
			return false
		}
		digits[i] = int(r - '0')
	}

	sum := 0
	for i, w := range eikWeights {
		sum += digits[i] * w
	}
	check := sum % 11
	if check == 10 {
		sum = 0
		for i, w := range eikAltWeights {
			sum += digits[i] * w
		}
		check = sum % 11
		if check == 10 {
			check = 0
		}
	}
	return check == digits[8]
}

// ValidBulgarianIBAN checks the BG prefix, the length and the ISO 13616
// mod-97 checksum. Spaces are ignored.
func ValidBulgarianIBAN(iban string) bool {
	iban = NormalizeIBAN(iban)
	if len(iban) != 22 || !strings.HasPrefix(iban, "BG") {
		return false
	}
	return ibanChecksum(iban)
}

// NormalizeIBAN removes spaces and upper-cases.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
}

func ibanChecksum(iban string) bool {
	rearranged := iban[4:] + iban[:4]
	var b strings.Builder
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteString(big.NewInt(int64(r-'A'+10)).String())
		default:
			return false
		}
	}
	n, ok := new(big.Int).SetString(b.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

// VATRates returns the VAT rates offered for a document language.
func VATRates(language string) []decimal.Decimal {
	var rates []int64
	switch language {
	case "es":
		rates = []int64{0, 10, 21}
	case "en":
		rates = []int64{0, 5, 20}
	default:
		rates = []int64{0, 9, 20}
	}
	out := make([]decimal.Decimal, len(rates))
	for i, r := range rates {
		out[i] = decimal.NewFromInt(r)
	}
	return out
}

// CurrencyForLanguage returns the default currency for a document language.
func CurrencyForLanguage(language string) string {
	if language == "bg" || language == "" {
		return "BGN"
	}
	return "EUR"
}
