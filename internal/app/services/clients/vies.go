package clients

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	apperrors "github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/httputil"
	"github.com/bgfactura/invoicing/internal/logging"
)

// VATCheck is the registry's answer for one VAT number.
type VATCheck struct {
	CountryCode string `json:"countryCode"`
	VATNumber   string `json:"vatNumber"`
	Valid       bool   `json:"valid"`
	Name        string `json:"name,omitempty"`
	Address     string `json:"address,omitempty"`
}

// VATChecker validates VAT numbers against an external registry.
type VATChecker interface {
	Check(ctx context.Context, countryCode, number string) (VATCheck, error)
}

var (
	countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)
	numberPattern  = regexp.MustCompile(`^[0-9A-Z+*]{2,12}$`)
)

// SplitVATNumber separates the country prefix. Numbers without a prefix are
// treated as Bulgarian.
func SplitVATNumber(vatNumber string) (string, string, error) {
	v := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(vatNumber), " ", ""))
	if v == "" {
		return "", "", apperrors.Validation("vatNumber is required")
	}
	country, number := "BG", v
	if len(v) > 2 && v[0] >= 'A' && v[0] <= 'Z' && v[1] >= 'A' && v[1] <= 'Z' {
		country, number = v[:2], v[2:]
	}
	if !countryPattern.MatchString(country) || !numberPattern.MatchString(number) {
		return "", "", apperrors.Validation("invalid VAT number format")
	}
	return country, number, nil
}

// VIESClient queries the EU VIES REST service.
type VIESClient struct {
	client *httputil.Client
	log    *logging.Logger
}

var _ VATChecker = (*VIESClient)(nil)

// NewVIESClient builds a client against baseURL.
func NewVIESClient(client *httputil.Client, log *logging.Logger) *VIESClient {
	if log == nil {
		log = logging.NewDefault("vies")
	}
	return &VIESClient{client: client, log: log}
}

func (c *VIESClient) Check(ctx context.Context, countryCode, number string) (VATCheck, error) {
	path := fmt.Sprintf("/ms/%s/vat/%s", url.PathEscape(countryCode), url.PathEscape(number))
	resp, err := c.client.Get(ctx, path)
	if err != nil {
		c.log.WithError(err).WithField("country", countryCode).Warn("VIES request failed")
		return VATCheck{}, apperrors.Upstream("VAT registry unavailable", err)
	}
	body, err := httputil.ReadBody(resp, 1<<20)
	if err != nil {
		c.log.WithError(err).WithField("country", countryCode).Warn("VIES request failed")
		return VATCheck{}, apperrors.Upstream("VAT registry unavailable", err)
	}

	if !gjson.ValidBytes(body) {
		return VATCheck{}, apperrors.Upstream("VAT registry returned an invalid response", nil)
	}
	// VIES reports member state outages with a userError instead of a status.
	switch gjson.GetBytes(body, "userError").String() {
	case "MS_UNAVAILABLE", "MS_MAX_CONCURRENT_REQ", "SERVICE_UNAVAILABLE", "TIMEOUT", "GLOBAL_MAX_CONCURRENT_REQ":
		return VATCheck{}, apperrors.Upstream("VAT registry unavailable", nil)
	}

	check := VATCheck{
		CountryCode: countryCode,
		VATNumber:   number,
		Valid:       gjson.GetBytes(body, "isValid").Bool(),
		Name:        cleanRegistryField(gjson.GetBytes(body, "name").String()),
		Address:     cleanRegistryField(gjson.GetBytes(body, "address").String()),
	}
	return check, nil
}

// The registry uses "---" for withheld fields.
func cleanRegistryField(v string) string {
	v = strings.TrimSpace(v)
	if v == "---" {
		return ""
	}
	return v
}
