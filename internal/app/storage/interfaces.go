package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bgfactura/invoicing/internal/app/domain/banking"
	"github.com/bgfactura/invoicing/internal/app/domain/client"
	"github.com/bgfactura/invoicing/internal/app/domain/company"
	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/app/domain/expense"
	"github.com/bgfactura/invoicing/internal/app/domain/product"
	"github.com/bgfactura/invoicing/internal/app/domain/user"
)

var (
	// ErrNotFound is returned when a record does not exist in the caller's
	// company scope.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a uniqueness constraint is violated.
	ErrConflict = errors.New("record conflicts with an existing one")
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListOptions carries pagination and free-text search.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
	Active *bool
}

// Normalize clamps page and limit to sane values.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultPageSize
	}
	if o.Limit > MaxPageSize {
		o.Limit = MaxPageSize
	}
	return o
}

// Offset returns the number of rows to skip.
func (o ListOptions) Offset() int {
	n := o.Normalize()
	return (n.Page - 1) * n.Limit
}

// TotalPages returns the page count for total rows.
func (o ListOptions) TotalPages(total int) int {
	n := o.Normalize()
	return (total + n.Limit - 1) / n.Limit
}

// UserStore persists users and their company.
type UserStore interface {
	// CreateUserWithCompany inserts the user and, when comp is non-nil, the
	// company, atomically. Returns ErrConflict when the email is taken.
	CreateUserWithCompany(ctx context.Context, usr user.User, comp *company.Company) (user.User, *company.Company, error)
	UpdateUser(ctx context.Context, usr user.User) (user.User, error)
	GetUser(ctx context.Context, id int64) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

// CompanyStore persists companies.
type CompanyStore interface {
	UpdateCompany(ctx context.Context, comp company.Company) (company.Company, error)
	GetCompany(ctx context.Context, id int64) (company.Company, error)
	GetCompanyByUser(ctx context.Context, userID int64) (company.Company, error)
}

// ClientStore persists clients.
type ClientStore interface {
	CreateClient(ctx context.Context, c client.Client) (client.Client, error)
	UpdateClient(ctx context.Context, c client.Client) (client.Client, error)
	GetClient(ctx context.Context, companyID, id int64) (client.Client, error)
	ListClients(ctx context.Context, companyID int64, opts ListOptions) ([]client.Client, int, error)
	ListActiveClients(ctx context.Context, companyID int64) ([]client.Client, error)
	DeleteClient(ctx context.Context, companyID, id int64) error
	ClientEIKExists(ctx context.Context, companyID int64, eik string, excludeID int64) (bool, error)
	CountClientDocuments(ctx context.Context, companyID, clientID int64) (int, error)
}

// ProductStore persists products.
type ProductStore interface {
	CreateProduct(ctx context.Context, p product.Product) (product.Product, error)
	UpdateProduct(ctx context.Context, p product.Product) (product.Product, error)
	GetProduct(ctx context.Context, companyID, id int64) (product.Product, error)
	ListProducts(ctx context.Context, companyID int64, opts ListOptions) ([]product.Product, int, error)
	ListActiveProducts(ctx context.Context, companyID int64) ([]product.Product, error)
	DeleteProduct(ctx context.Context, companyID, id int64) error
	ProductCodeExists(ctx context.Context, companyID int64, code string, excludeID int64) (bool, error)
	CountProductUsage(ctx context.Context, companyID, productID int64) (int, error)
}

// DocumentStore persists documents together with their items.
type DocumentStore interface {
	// CreateDocument inserts the document and its items atomically. Returns
	// ErrConflict when the document number is already used by the company.
	CreateDocument(ctx context.Context, doc document.Document) (document.Document, error)
	// UpdateDocument rewrites the header and replaces all items atomically.
	UpdateDocument(ctx context.Context, doc document.Document) (document.Document, error)
	// GetDocument loads the document with its client and items.
	GetDocument(ctx context.Context, companyID, id int64) (document.Document, error)
	// ListDocuments returns a page ordered by document date, newest first,
	// with the client summary attached and no items.
	ListDocuments(ctx context.Context, companyID int64, filter document.Filter, opts ListOptions) ([]document.Document, int, error)
	DeleteDocument(ctx context.Context, companyID, id int64) error
	UpdateDocumentStatus(ctx context.Context, companyID, id int64, status document.Status) (document.Document, error)
	// LastDocumentNumber returns the number of the most recently created
	// document of the given type, or "" when there is none.
	LastDocumentNumber(ctx context.Context, companyID int64, typ document.Type) (string, error)
	AggregateDocuments(ctx context.Context, companyID int64, filter document.Filter) (document.Aggregate, error)
	// MarkOverdue flips sent invoices due before asOf to overdue across all
	// companies and returns how many changed.
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// ExpenseStore persists expenses.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e expense.Expense) (expense.Expense, error)
	UpdateExpense(ctx context.Context, e expense.Expense) (expense.Expense, error)
	GetExpense(ctx context.Context, companyID, id int64) (expense.Expense, error)
	ListExpenses(ctx context.Context, companyID int64) ([]expense.Expense, error)
	DeleteExpense(ctx context.Context, companyID, id int64) error
}

// BankingStore persists bank accounts and payment methods. Marking a record
// as default clears the flag on the company's other records of that kind.
type BankingStore interface {
	CreateBankAccount(ctx context.Context, acct banking.BankAccount) (banking.BankAccount, error)
	UpdateBankAccount(ctx context.Context, acct banking.BankAccount) (banking.BankAccount, error)
	GetBankAccount(ctx context.Context, companyID, id int64) (banking.BankAccount, error)
	ListBankAccounts(ctx context.Context, companyID int64) ([]banking.BankAccount, error)
	DeleteBankAccount(ctx context.Context, companyID, id int64) error

	CreatePaymentMethod(ctx context.Context, pm banking.PaymentMethod) (banking.PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, pm banking.PaymentMethod) (banking.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, companyID, id int64) (banking.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, companyID int64) ([]banking.PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, companyID, id int64) error
}
