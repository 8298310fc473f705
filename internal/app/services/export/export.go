// Package export writes document and expense listings as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/app/domain/expense"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	DocumentsSheet = "Documents"
	ExpensesSheet  = "Expenses"
)

// Filename returns a dated attachment name such as documents_2024-03-15.xlsx.
func Filename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, now.Format("2006-01-02"))
}

type column struct {
	title string
	width float64
	kind  cellKind
}

type cellKind int

const (
	textCell cellKind = iota
	dateCell
	moneyCell
)

// Documents writes one row per document.
func Documents(w io.Writer, docs []document.Document) error {
	cols := []column{
		{"Number", 16, textCell},
		{"Type", 12, textCell},
		{"Client", 30, textCell},
		{"Date", 12, dateCell},
		{"Due", 12, dateCell},
		{"Status", 12, textCell},
		{"Currency", 10, textCell},
		{"Subtotal", 14, moneyCell},
		{"VAT", 14, moneyCell},
		{"Total", 14, moneyCell},
	}
	rows := make([][]interface{}, len(docs))
	for i, d := range docs {
		clientName := ""
		if d.Client != nil {
			clientName = d.Client.Name
		}
		var due interface{}
		if d.DueDate != nil {
			due = *d.DueDate
		}
		rows[i] = []interface{}{
			d.DocumentNumber, string(d.DocumentType), clientName, d.DocumentDate, due,
			string(d.Status), d.Currency, d.Subtotal, d.VATAmount, d.Total,
		}
	}
	return write(w, DocumentsSheet, cols, rows)
}

// Expenses writes one row per expense.
func Expenses(w io.Writer, list []expense.Expense) error {
	cols := []column{
		{"Date", 12, dateCell},
		{"Description", 36, textCell},
		{"Category", 16, textCell},
		{"Supplier", 28, textCell},
		{"Status", 12, textCell},
		{"Amount", 14, moneyCell},
		{"VAT", 14, moneyCell},
		{"Total", 14, moneyCell},
	}
	rows := make([][]interface{}, len(list))
	for i, e := range list {
		supplier := ""
		if e.Supplier != nil {
			supplier = e.Supplier.Name
		}
		rows[i] = []interface{}{
			e.ExpenseDate, e.Description, e.Category, supplier, string(e.Status), e.Amount, e.VATAmount, e.Total,
		}
	}
	return write(w, ExpensesSheet, cols, rows)
}

func write(w io.Writer, sheet string, cols []column, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	for i, col := range cols {
		if err := sw.SetColWidth(i+1, i+1, col.width); err != nil {
			return err
		}
	}

	header := make([]interface{}, len(cols))
	for i, col := range cols {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: col.title}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for r, values := range rows {
		row := make([]interface{}, len(values))
		for c, v := range values {
			switch {
			case v == nil:
				row[c] = nil
			case cols[c].kind == dateCell && v.(time.Time).IsZero():
				row[c] = nil
			case cols[c].kind == dateCell:
				row[c] = excelize.Cell{StyleID: dateStyle, Value: v}
			case cols[c].kind == moneyCell:
				// Numeric cells, rounded the way they are printed.
				row[c] = excelize.Cell{StyleID: moneyStyle, Value: v.(decimal.Decimal).Round(2).InexactFloat64()}
			default:
				row[c] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
