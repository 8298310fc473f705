// Package pdf lays out documents as A4 PDF files.
package pdf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/app/domain/banking"
	"github.com/bgfactura/invoicing/internal/app/domain/calendar"
	"github.com/bgfactura/invoicing/internal/app/domain/client"
	"github.com/bgfactura/invoicing/internal/app/domain/company"
	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/logging"
)

const (
	regularFontFile = "DejaVuSans.ttf"
	boldFontFile    = "DejaVuSans-Bold.ttf"

	pageWidth    = 210.0
	pageHeight   = 297.0
	margin       = 18.0
	contentWidth = pageWidth - 2*margin
	rowHeight    = 7.0
	// Rows start on a new page once the cursor passes this line.
	bottomLimit = pageHeight - 45
)

// Data is everything printed on one document.
type Data struct {
	Document document.Document
	Company  company.Company
	Client   client.Client
	// Bank is printed when the company record carries no bank details.
	Bank *banking.BankAccount
}

// Renderer turns documents into PDF bytes.
type Renderer struct {
	fontDir string
	log     *logging.Logger
}

// NewRenderer creates a renderer. When fontDir holds DejaVuSans.ttf the
// output embeds it so Cyrillic text prints; otherwise the core Helvetica font
// is used.
func NewRenderer(fontDir string, log *logging.Logger) *Renderer {
	if log == nil {
		log = logging.NewDefault("pdf")
	}
	return &Renderer{fontDir: fontDir, log: log}
}

// UnicodeFonts reports whether the DejaVu fonts are available.
func (r *Renderer) UnicodeFonts() bool {
	if r.fontDir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(r.fontDir, regularFontFile))
	return err == nil
}

// Filename is the attachment name of a rendered document.
func Filename(doc document.Document) string {
	return fmt.Sprintf("%s-%s.pdf", doc.DocumentType, doc.DocumentNumber)
}

// Render writes the PDF for data to w.
func (r *Renderer) Render(w io.Writer, data Data) error {
	p := r.newPage(data)
	p.header()
	p.documentInfo()
	p.clientInfo()
	p.itemsTable()
	p.totals()
	p.paymentInfo()
	p.notes()
	if err := p.pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

type page struct {
	pdf    *fpdf.Fpdf
	data   Data
	l      labels
	family string
	tr     func(string) string
}

func (r *Renderer) newPage(data Data) *page {
	doc := fpdf.New("P", "mm", "A4", r.fontDir)
	p := &page{pdf: doc, data: data, l: labelsFor(data.Document.Language), family: "Helvetica"}

	if r.UnicodeFonts() {
		doc.AddUTF8Font("DejaVu", "", regularFontFile)
		bold := boldFontFile
		if _, err := os.Stat(filepath.Join(r.fontDir, boldFontFile)); err != nil {
			bold = regularFontFile
		}
		doc.AddUTF8Font("DejaVu", "B", bold)
		p.family = "DejaVu"
		p.tr = func(s string) string { return s }
	} else {
		if data.Document.Language == document.LanguageBG {
			r.log.WithField("document_id", data.Document.ID).Warn("no unicode font configured; Cyrillic text will not print")
		}
		p.tr = doc.UnicodeTranslatorFromDescriptor("")
	}

	title := fmt.Sprintf("%s %s", strings.ToUpper(string(data.Document.DocumentType)), data.Document.DocumentNumber)
	doc.SetTitle(title, true)
	doc.SetAuthor(data.Company.Name, true)
	doc.SetCreator("invoicer", true)
	doc.SetCreationDate(time.Now())
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, 28)
	doc.AliasNbPages("")
	doc.SetFooterFunc(p.footer)
	doc.AddPage()
	return p
}

func (p *page) font(style string, size float64) {
	p.pdf.SetFont(p.family, style, size)
}

func (p *page) text(x, y, w float64, s, align string) {
	p.pdf.SetXY(x, y)
	p.pdf.CellFormat(w, 5, p.tr(s), "", 0, align, false, 0, "")
}

func (p *page) header() {
	comp := p.data.Company
	p.font("B", 20)
	p.pdf.SetTextColor(37, 99, 235)
	p.text(margin, margin, contentWidth, p.l.title(p.data.Document.DocumentType), "R")

	p.pdf.SetTextColor(0, 0, 0)
	p.font("B", 14)
	p.text(margin, 40, contentWidth/2, comp.Name, "L")

	p.font("", 10)
	lines := []string{
		fmt.Sprintf("%s: %s", p.l.eik, comp.EIK),
		fmt.Sprintf("%s: %s", p.l.vatNumber, comp.VATNumber),
		comp.Address,
		fmt.Sprintf("%s, %s", comp.City, p.l.country),
		fmt.Sprintf("%s: %s", p.l.phone, comp.Phone),
		fmt.Sprintf("Email: %s", comp.Email),
	}
	y := 47.0
	for _, line := range lines {
		p.text(margin, y, contentWidth/2, line, "L")
		y += 5
	}

	p.pdf.SetDrawColor(204, 204, 204)
	p.pdf.Line(margin, 80, pageWidth-margin, 80)
}

func (p *page) documentInfo() {
	doc := p.data.Document
	x := 125.0
	y := 86.0
	rows := [][2]string{
		{p.l.number, doc.DocumentNumber},
		{p.l.date, calendar.Format(doc.DocumentDate)},
	}
	if doc.DueDate != nil {
		rows = append(rows, [2]string{p.l.dueDate, calendar.Format(*doc.DueDate)})
	}
	for _, row := range rows {
		p.font("B", 11)
		p.text(x, y, 30, row[0]+":", "L")
		p.font("", 11)
		p.text(x+30, y, pageWidth-margin-x-30, row[1], "R")
		y += 7
	}
}

func (p *page) clientInfo() {
	c := p.data.Client
	y := 86.0
	p.font("B", 12)
	p.text(margin, y, 90, p.l.client+":", "L")
	p.font("B", 11)
	p.text(margin, y+7, 90, c.Name, "L")
	p.font("", 10)
	for i, line := range []string{
		fmt.Sprintf("%s: %s", p.l.eik, c.EIK),
		fmt.Sprintf("%s: %s", p.l.vatNumber, c.VATNumber),
		c.Address,
		c.City,
	} {
		p.text(margin, y+14+float64(i)*5, 90, line, "L")
	}
}

var columns = []struct {
	width float64
	align string
}{
	{10, "C"}, {70, "L"}, {21, "R"}, {21, "R"}, {18, "R"}, {36, "R"},
}

func (p *page) tableHeader(y float64) float64 {
	p.pdf.SetFillColor(243, 244, 246)
	p.pdf.Rect(margin, y, contentWidth, 8, "F")
	p.font("B", 9)
	p.pdf.SetXY(margin, y)
	headers := []string{"№", p.l.description, p.l.quantity, p.l.unitPrice, p.l.vatRate, p.l.amount}
	for i, h := range headers {
		label := p.tr(h)
		if i == 0 && p.family != "DejaVu" {
			label = "No"
		}
		p.pdf.CellFormat(columns[i].width, 8, label, "", 0, columns[i].align, false, 0, "")
	}
	return y + 8
}

func (p *page) itemsTable() {
	y := p.tableHeader(122)
	p.font("", 9)
	for i, item := range p.data.Document.Items {
		if y > bottomLimit {
			p.pdf.AddPage()
			y = p.tableHeader(margin)
			p.font("", 9)
		}
		if i%2 == 1 {
			p.pdf.SetFillColor(249, 250, 251)
			p.pdf.Rect(margin, y, contentWidth, rowHeight, "F")
		}
		net, vat := document.LineAmounts(item.Quantity, item.UnitPrice, item.VATRate)
		cells := []string{
			fmt.Sprintf("%d", i+1),
			p.fit(item.Description, columns[1].width-2),
			item.Quantity.StringFixed(2),
			item.UnitPrice.StringFixed(2),
			item.VATRate.StringFixed(0) + "%",
			net.Add(vat).StringFixed(2),
		}
		p.pdf.SetXY(margin, y)
		for c, cell := range cells {
			p.pdf.CellFormat(columns[c].width, rowHeight, p.tr(cell), "", 0, columns[c].align, false, 0, "")
		}
		y += rowHeight
	}
	p.pdf.SetDrawColor(204, 204, 204)
	p.pdf.Line(margin, y, pageWidth-margin, y)
	p.pdf.SetY(y + 4)
}

// fit shortens s until it fits into width millimetres.
func (p *page) fit(s string, width float64) string {
	if p.pdf.GetStringWidth(p.tr(s)) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && p.pdf.GetStringWidth(p.tr(string(runes)+"...")) > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func (p *page) ensureSpace(height float64) float64 {
	y := p.pdf.GetY()
	if y+height > pageHeight-margin-20 {
		p.pdf.AddPage()
		return margin
	}
	return y
}

func (p *page) totals() {
	doc := p.data.Document
	x := 115.0
	valueWidth := pageWidth - margin - x - 35

	lines := vatLines(doc.Items)
	if len(lines) < 2 {
		lines = []vatLine{{label: p.l.vat, amount: doc.VATAmount}}
	} else {
		for i := range lines {
			lines[i].label = p.l.vat + " " + lines[i].label
		}
	}
	y := p.ensureSpace(33 + 7*float64(len(lines)))

	p.font("", 11)
	p.text(x, y, 35, p.l.subtotal+":", "L")
	p.text(x+35, y, valueWidth, doc.Subtotal.StringFixed(2)+" "+p.l.currency, "R")
	for _, line := range lines {
		y += 7
		p.text(x, y, 35, line.label+":", "L")
		p.text(x+35, y, valueWidth, line.amount.StringFixed(2)+" "+p.l.currency, "R")
	}

	p.font("B", 14)
	p.pdf.SetTextColor(37, 99, 235)
	p.text(x, y+8, 35, p.l.total+":", "L")
	p.text(x+35, y+8, valueWidth, doc.Total.StringFixed(2)+" "+p.l.currency, "R")

	p.font("", 10)
	p.pdf.SetTextColor(102, 102, 102)
	p.pdf.SetXY(margin, y+18)
	p.pdf.MultiCell(contentWidth, 5, p.tr(fmt.Sprintf("%s: %s", p.l.inWords, AmountInWords(doc.Total, doc.Language))), "", "L", false)
	p.pdf.SetTextColor(0, 0, 0)
}

type vatLine struct {
	label  string
	amount decimal.Decimal
}

// vatLines lists the VAT per rate, lowest rate first.
func vatLines(items []document.Item) []vatLine {
	breakdown := document.VATBreakdown(items)
	rates := make([]decimal.Decimal, 0, len(breakdown))
	for key := range breakdown {
		rates = append(rates, decimal.RequireFromString(key))
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].LessThan(rates[j]) })
	out := make([]vatLine, 0, len(rates))
	for _, rate := range rates {
		out = append(out, vatLine{label: rate.String() + "%", amount: breakdown[rate.String()].VATAmount})
	}
	return out
}

func (p *page) paymentInfo() {
	comp := p.data.Company
	bankName, iban, bic := comp.BankName, comp.IBAN, comp.BIC
	if !comp.HasBankDetails() {
		if p.data.Bank == nil {
			return
		}
		bankName, iban, bic = p.data.Bank.BankName, p.data.Bank.IBAN, p.data.Bank.BIC
	}

	y := p.ensureSpace(30) + 6
	p.font("B", 11)
	p.text(margin, y, contentWidth, p.l.paymentInfo+":", "L")
	p.font("", 10)
	p.text(margin, y+7, contentWidth, fmt.Sprintf("%s: %s", p.l.bankAccount, bankName), "L")
	p.text(margin, y+12, contentWidth, "IBAN: "+iban, "L")
	p.text(margin, y+17, contentWidth, "BIC: "+bic, "L")
	p.pdf.SetY(y + 22)
}

func (p *page) notes() {
	notes := strings.TrimSpace(p.data.Document.Notes)
	if notes == "" {
		return
	}
	y := p.ensureSpace(20) + 6
	p.font("B", 11)
	p.text(margin, y, contentWidth, p.l.notes+":", "L")
	p.font("", 10)
	p.pdf.SetXY(margin, y+7)
	p.pdf.MultiCell(contentWidth, 5, p.tr(notes), "", "L", false)
}

func (p *page) footer() {
	p.pdf.SetY(-22)
	p.font("", 10)
	p.pdf.SetTextColor(102, 102, 102)
	p.pdf.CellFormat(0, 6, p.tr(p.l.thankYou), "", 1, "C", false, 0, "")
	p.pdf.CellFormat(0, 6, p.tr(fmt.Sprintf("%s %d %s {nb}", p.l.page, p.pdf.PageNo(), p.l.of)), "", 0, "C", false, 0, "")
	p.pdf.SetTextColor(0, 0, 0)
}
