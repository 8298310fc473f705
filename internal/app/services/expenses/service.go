package expenses

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/app/domain/calendar"
	"github.com/bgfactura/invoicing/internal/app/domain/expense"
	"github.com/bgfactura/invoicing/internal/app/services/export"
	"github.com/bgfactura/invoicing/internal/app/storage"
	"github.com/bgfactura/invoicing/internal/app/validation"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/logging"
)

// Input is the create payload. Total defaults to amount plus VAT.
type Input struct {
	Description string           `json:"description" validate:"required"`
	Amount      decimal.Decimal  `json:"amount" validate:"dgte=0"`
	VATAmount   *decimal.Decimal `json:"vatAmount" validate:"omitnil,dgte=0"`
	Total       *decimal.Decimal `json:"total" validate:"omitnil,dgte=0"`
	ExpenseDate calendar.Date    `json:"expenseDate"`
	Category    string           `json:"category"`
	SupplierID  *int64           `json:"supplierId"`
	Status      expense.Status   `json:"status" validate:"omitempty,oneof=pending paid cancelled"`
	Attachments string           `json:"attachments"`
	OCRData     string           `json:"ocrData"`
}

// Patch is the partial update payload. Nil fields are left unchanged.
type Patch struct {
	Description *string          `json:"description" validate:"omitnil,min=1"`
	Amount      *decimal.Decimal `json:"amount" validate:"omitnil,dgte=0"`
	VATAmount   *decimal.Decimal `json:"vatAmount" validate:"omitnil,dgte=0"`
	Total       *decimal.Decimal `json:"total" validate:"omitnil,dgte=0"`
	ExpenseDate *calendar.Date   `json:"expenseDate"`
	Category    *string          `json:"category"`
	SupplierID  *int64           `json:"supplierId"`
	Status      *expense.Status  `json:"status" validate:"omitnil,oneof=pending paid cancelled"`
	Attachments *string          `json:"attachments"`
	OCRData     *string          `json:"ocrData"`
}

// Service manages company expenses.
type Service struct {
	store     storage.ExpenseStore
	suppliers storage.ClientStore
	log       *logging.Logger
	now       func() time.Time
}

// New constructs the expenses service. Suppliers are the company's clients.
func New(store storage.ExpenseStore, suppliers storage.ClientStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("expenses")
	}
	return &Service{store: store, suppliers: suppliers, log: log, now: time.Now}
}

// List returns all expenses of a company, newest first.
func (s *Service) List(ctx context.Context, companyID int64) ([]expense.Expense, error) {
	list, err := s.store.ListExpenses(ctx, companyID)
	if err != nil {
		return nil, storage.Translate(err, "Expense", "")
	}
	if list == nil {
		list = []expense.Expense{}
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (expense.Expense, error) {
	e, err := s.store.GetExpense(ctx, companyID, id)
	if err != nil {
		return expense.Expense{}, storage.Translate(err, "Expense", "")
	}
	return e, nil
}

func (s *Service) Create(ctx context.Context, companyID int64, in Input) (expense.Expense, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return expense.Expense{}, err
	}
	if err := s.checkSupplier(ctx, companyID, in.SupplierID); err != nil {
		return expense.Expense{}, err
	}

	e := expense.Expense{
		CompanyID:   companyID,
		SupplierID:  in.SupplierID,
		Description: in.Description,
		Amount:      in.Amount.Round(2),
		VATAmount:   decimal.Zero,
		ExpenseDate: in.ExpenseDate.Time,
		Category:    strings.TrimSpace(in.Category),
		Status:      in.Status,
		Attachments: in.Attachments,
		OCRData:     in.OCRData,
	}
	if in.VATAmount != nil {
		e.VATAmount = in.VATAmount.Round(2)
	}
	if e.ExpenseDate.IsZero() {
		e.ExpenseDate = calendar.StartOfDay(s.now().UTC())
	}
	if e.Status == "" {
		e.Status = expense.StatusPending
	}
	e.Total = e.Amount.Add(e.VATAmount)
	if in.Total != nil {
		e.Total = in.Total.Round(2)
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return expense.Expense{}, storage.Translate(err, "Expense", "")
	}
	s.log.WithField("company_id", companyID).
		WithField("expense_id", created.ID).
		WithField("total", created.Total.String()).
		Info("expense created")
	return created, nil
}

// Update applies a partial update. When amount or VAT changes and no total is
// given, the total is recomputed.
func (s *Service) Update(ctx context.Context, companyID, id int64, p Patch) (expense.Expense, error) {
	if err := validation.Struct(p); err != nil {
		return expense.Expense{}, err
	}
	e, err := s.store.GetExpense(ctx, companyID, id)
	if err != nil {
		return expense.Expense{}, storage.Translate(err, "Expense", "")
	}
	if p.SupplierID != nil {
		if *p.SupplierID == 0 {
			e.SupplierID = nil
		} else {
			if err := s.checkSupplier(ctx, companyID, p.SupplierID); err != nil {
				return expense.Expense{}, err
			}
			e.SupplierID = p.SupplierID
		}
	}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		if desc == "" {
			return expense.Expense{}, apperrors.Validation("Validation failed").WithDetails("description", "is required")
		}
		e.Description = desc
	}
	recompute := false
	if p.Amount != nil {
		e.Amount = p.Amount.Round(2)
		recompute = true
	}
	if p.VATAmount != nil {
		e.VATAmount = p.VATAmount.Round(2)
		recompute = true
	}
	switch {
	case p.Total != nil:
		e.Total = p.Total.Round(2)
	case recompute:
		e.Total = e.Amount.Add(e.VATAmount)
	}
	if p.ExpenseDate != nil && !p.ExpenseDate.IsZero() {
		e.ExpenseDate = p.ExpenseDate.Time
	}
	if p.Category != nil {
		e.Category = strings.TrimSpace(*p.Category)
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Attachments != nil {
		e.Attachments = *p.Attachments
	}
	if p.OCRData != nil {
		e.OCRData = *p.OCRData
	}
	e.Supplier = nil

	updated, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return expense.Expense{}, storage.Translate(err, "Expense", "")
	}
	s.log.WithField("expense_id", id).Info("expense updated")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	if err := s.store.DeleteExpense(ctx, companyID, id); err != nil {
		return storage.Translate(err, "Expense", "")
	}
	s.log.WithField("company_id", companyID).
		WithField("expense_id", id).
		Info("expense deleted")
	return nil
}

// Export writes every expense of the company as an XLSX workbook.
func (s *Service) Export(ctx context.Context, companyID int64, w io.Writer) error {
	list, err := s.List(ctx, companyID)
	if err != nil {
		return err
	}
	if err := export.Expenses(w, list); err != nil {
		return apperrors.Internal("Failed to export expenses", err)
	}
	return nil
}

func (s *Service) checkSupplier(ctx context.Context, companyID int64, supplierID *int64) error {
	if supplierID == nil {
		return nil
	}
	if _, err := s.suppliers.GetClient(ctx, companyID, *supplierID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.Validation("Supplier not found")
		}
		return storage.Translate(err, "Client", "")
	}
	return nil
}
