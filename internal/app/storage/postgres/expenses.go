package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/app/domain/client"
	"github.com/bgfactura/invoicing/internal/app/domain/expense"
)

type expenseRow struct {
	ID          int64           `db:"id"`
	CompanyID   int64           `db:"company_id"`
	SupplierID  *int64          `db:"supplier_id"`
	Description string          `db:"description"`
	Amount      decimal.Decimal `db:"amount"`
	VATAmount   decimal.Decimal `db:"vat_amount"`
	Total       decimal.Decimal `db:"total"`
	ExpenseDate time.Time       `db:"expense_date"`
	Category    string          `db:"category"`
	Status      string          `db:"status"`
	Attachments string          `db:"attachments"`
	OCRData     string          `db:"ocr_data"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`

	SupplierName    sql.NullString `db:"supplier_name"`
	SupplierEIK     sql.NullString `db:"supplier_eik"`
	SupplierAddress sql.NullString `db:"supplier_address"`
}

func (r expenseRow) model() expense.Expense {
	e := expense.Expense{
		ID: r.ID, CompanyID: r.CompanyID, SupplierID: r.SupplierID, Description: r.Description,
		Amount: r.Amount, VATAmount: r.VATAmount, Total: r.Total, ExpenseDate: r.ExpenseDate,
		Category: r.Category, Status: expense.Status(r.Status), Attachments: r.Attachments, OCRData: r.OCRData,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	if r.SupplierID != nil && r.SupplierName.Valid {
		e.Supplier = &client.Summary{ID: *r.SupplierID, Name: r.SupplierName.String, EIK: r.SupplierEIK.String, Address: r.SupplierAddress.String}
	}
	return e
}

const expenseSelect = `
	SELECT e.id, e.company_id, e.supplier_id, e.description, e.amount, e.vat_amount, e.total, e.expense_date,
	       e.category, e.status, e.attachments, e.ocr_data, e.created_at, e.updated_at,
	       c.name AS supplier_name, c.eik AS supplier_eik, c.address AS supplier_address
	FROM expenses e
	LEFT JOIN clients c ON c.id = e.supplier_id`

func (s *Store) CreateExpense(ctx context.Context, e expense.Expense) (expense.Expense, error) {
	now := time.Now().UTC()
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO expenses (company_id, supplier_id, description, amount, vat_amount, total, expense_date,
		                      category, status, attachments, ocr_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, e.CompanyID, e.SupplierID, e.Description, e.Amount, e.VATAmount, e.Total, e.ExpenseDate,
		e.Category, string(e.Status), e.Attachments, e.OCRData, now, now).Scan(&e.ID)
	if err != nil {
		return expense.Expense{}, translate(err)
	}
	return s.GetExpense(ctx, e.CompanyID, e.ID)
}

func (s *Store) UpdateExpense(ctx context.Context, e expense.Expense) (expense.Expense, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses
		SET supplier_id = $3, description = $4, amount = $5, vat_amount = $6, total = $7, expense_date = $8,
		    category = $9, status = $10, attachments = $11, ocr_data = $12, updated_at = $13
		WHERE id = $1 AND company_id = $2
	`, e.ID, e.CompanyID, e.SupplierID, e.Description, e.Amount, e.VATAmount, e.Total, e.ExpenseDate,
		e.Category, string(e.Status), e.Attachments, e.OCRData, time.Now().UTC())
	if err != nil {
		return expense.Expense{}, translate(err)
	}
	if err := requireAffected(res); err != nil {
		return expense.Expense{}, err
	}
	return s.GetExpense(ctx, e.CompanyID, e.ID)
}

func (s *Store) GetExpense(ctx context.Context, companyID, id int64) (expense.Expense, error) {
	var row expenseRow
	if err := s.db.GetContext(ctx, &row, expenseSelect+` WHERE e.id = $1 AND e.company_id = $2`, id, companyID); err != nil {
		return expense.Expense{}, translate(err)
	}
	return row.model(), nil
}

func (s *Store) ListExpenses(ctx context.Context, companyID int64) ([]expense.Expense, error) {
	var rows []expenseRow
	if err := s.db.SelectContext(ctx, &rows, expenseSelect+` WHERE e.company_id = $1 ORDER BY e.expense_date DESC, e.id DESC`, companyID); err != nil {
		return nil, translate(err)
	}
	out := make([]expense.Expense, len(rows))
	for i, r := range rows {
		e := r.model()
		if e.Supplier != nil {
			e.Supplier.EIK = ""
			e.Supplier.Address = ""
		}
		out[i] = e
	}
	return out, nil
}

func (s *Store) DeleteExpense(ctx context.Context, companyID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}
