package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgfactura/invoicing/internal/app/domain/banking"
	"github.com/bgfactura/invoicing/internal/app/domain/client"
	"github.com/bgfactura/invoicing/internal/app/domain/company"
	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/logging"
)

func sampleData(language string, items int) Data {
	due := time.Date(2024, 4, 14, 0, 0, 0, 0, time.UTC)
	doc := document.Document{
		ID:             1,
		DocumentType:   document.TypeInvoice,
		DocumentNumber: "INV-2024-007",
		DocumentDate:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		DueDate:        &due,
		Currency:       document.CurrencyBGN,
		Language:       language,
		Notes:          "Payment within 30 days.",
	}
	for i := 0; i < items; i++ {
		doc.Items = append(doc.Items, document.Item{
			Description: strings.Repeat("Consulting services ", 1+i%4),
			Quantity:    decimal.NewFromInt(int64(i + 1)),
			UnitPrice:   decimal.RequireFromString("12.50"),
			VATRate:     decimal.NewFromInt(20),
		})
	}
	document.ComputeTotals(doc.Items).Apply(&doc)
	return Data{
		Document: doc,
		Company:  company.Company{Name: "Alfa OOD", EIK: "831641791", Address: "ul. Vitosha 1", City: "Sofia"},
		Client:   client.Client{Name: "Beta EOOD", EIK: "121887994", Address: "bul. Bulgaria 2", City: "Varna"},
		Bank:     &banking.BankAccount{BankName: "BNB", IBAN: "BG80BNBG96611020345678"},
	}
}

func TestRenderWithCoreFonts(t *testing.T) {
	r := NewRenderer("", logging.NewDiscard())
	assert.False(t, r.UnicodeFonts())

	for _, lang := range []string{document.LanguageBG, document.LanguageES, document.LanguageEN} {
		t.Run(lang, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, r.Render(&buf, sampleData(lang, 3)))
			out := buf.String()
			assert.True(t, strings.HasPrefix(out, "%PDF-"))
			assert.Contains(t, out, "%%EOF")
		})
	}
}

func TestRenderPaginatesLongTables(t *testing.T) {
	r := NewRenderer("", logging.NewDiscard())
	var short, long bytes.Buffer
	require.NoError(t, r.Render(&short, sampleData(document.LanguageEN, 2)))
	require.NoError(t, r.Render(&long, sampleData(document.LanguageEN, 80)))
	assert.Greater(t, strings.Count(long.String(), "/Type /Page\n"), strings.Count(short.String(), "/Type /Page\n"))
}

func TestRenderWithDejaVu(t *testing.T) {
	dir := "/usr/share/fonts/truetype/dejavu"
	if _, err := os.Stat(filepath.Join(dir, regularFontFile)); err != nil {
		t.Skip("DejaVu fonts not installed")
	}
	r := NewRenderer(dir, logging.NewDiscard())
	require.True(t, r.UnicodeFonts())
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, sampleData(document.LanguageBG, 5)))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF-"))
}

func TestVATLinesPerRate(t *testing.T) {
	items := []document.Item{
		{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100), VATRate: decimal.NewFromInt(20)},
		{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50), VATRate: decimal.NewFromInt(9)},
		{Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50), VATRate: decimal.RequireFromString("20.00")},
	}
	lines := vatLines(items)
	require.Len(t, lines, 2)
	assert.Equal(t, "9%", lines[0].label)
	assert.Equal(t, "4.50", lines[0].amount.StringFixed(2))
	assert.Equal(t, "20%", lines[1].label)
	assert.Equal(t, "40.00", lines[1].amount.StringFixed(2))

	data := sampleData(document.LanguageEN, 0)
	data.Document.Items = items
	document.ComputeTotals(data.Document.Items).Apply(&data.Document)
	var buf bytes.Buffer
	require.NoError(t, NewRenderer("", logging.NewDiscard()).Render(&buf, data))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF-"))
}

func TestAmountInWords(t *testing.T) {
	total := decimal.RequireFromString("123.45")
	assert.Equal(t, "one hundred twenty-three euros and 45 cents", AmountInWords(total, document.LanguageEN))
	assert.Equal(t, "123 лева 45 стотинки", AmountInWords(total, document.LanguageBG))
	assert.Equal(t, "123 euros 45 céntimos", AmountInWords(total, document.LanguageES))
	assert.Equal(t, "10 лева 0 стотинки", AmountInWords(decimal.NewFromInt(10), "xx"))
	assert.Equal(t, "0 лева 5 стотинки", AmountInWords(decimal.RequireFromString("0.049"), document.LanguageBG))
}

func TestFilename(t *testing.T) {
	doc := document.Document{DocumentType: document.TypeQuote, DocumentNumber: "QUO-2024-001"}
	assert.Equal(t, "quote-QUO-2024-001.pdf", Filename(doc))
}
