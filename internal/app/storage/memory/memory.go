package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/app/domain/banking"
	"github.com/bgfactura/invoicing/internal/app/domain/client"
	"github.com/bgfactura/invoicing/internal/app/domain/company"
	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/app/domain/expense"
	"github.com/bgfactura/invoicing/internal/app/domain/product"
	"github.com/bgfactura/invoicing/internal/app/domain/user"
	"github.com/bgfactura/invoicing/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu             sync.RWMutex
	nextID         int64
	users          map[int64]user.User
	companies      map[int64]company.Company
	clients        map[int64]client.Client
	products       map[int64]product.Product
	documents      map[int64]document.Document
	items          map[int64][]document.Item
	expenses       map[int64]expense.Expense
	bankAccounts   map[int64]banking.BankAccount
	paymentMethods map[int64]banking.PaymentMethod
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.CompanyStore = (*Store)(nil)
var _ storage.ClientStore = (*Store)(nil)
var _ storage.ProductStore = (*Store)(nil)
var _ storage.DocumentStore = (*Store)(nil)
var _ storage.ExpenseStore = (*Store)(nil)
var _ storage.BankingStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:         1,
		users:          make(map[int64]user.User),
		companies:      make(map[int64]company.Company),
		clients:        make(map[int64]client.Client),
		products:       make(map[int64]product.Product),
		documents:      make(map[int64]document.Document),
		items:          make(map[int64][]document.Item),
		expenses:       make(map[int64]expense.Expense),
		bankAccounts:   make(map[int64]banking.BankAccount),
		paymentMethods: make(map[int64]banking.PaymentMethod),
	}
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// UserStore implementation -----------------------------------------------------

func (s *Store) CreateUserWithCompany(_ context.Context, usr user.User, comp *company.Company) (user.User, *company.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, usr.Email) {
			return user.User{}, nil, storage.ErrConflict
		}
	}
	if comp != nil && comp.EIK != "" {
		for _, existing := range s.companies {
			if existing.EIK == comp.EIK {
				return user.User{}, nil, storage.ErrConflict
			}
		}
	}

	now := time.Now().UTC()
	usr.ID = s.nextIDLocked()
	usr.CreatedAt = now
	usr.UpdatedAt = now
	s.users[usr.ID] = usr

	if comp == nil {
		return usr, nil, nil
	}
	created := *comp
	created.ID = s.nextIDLocked()
	created.UserID = usr.ID
	created.CreatedAt = now
	created.UpdatedAt = now
	s.companies[created.ID] = created
	return usr, &created, nil
}

func (s *Store) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[usr.ID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	usr.CreatedAt = original.CreatedAt
	usr.UpdatedAt = time.Now().UTC()
	if usr.PasswordHash == "" {
		usr.PasswordHash = original.PasswordHash
	}
	s.users[usr.ID] = usr
	return usr, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return usr, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, usr := range s.users {
		if strings.EqualFold(usr.Email, email) {
			return usr, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

// CompanyStore implementation --------------------------------------------------

func (s *Store) UpdateCompany(_ context.Context, comp company.Company) (company.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.companies[comp.ID]
	if !ok {
		return company.Company{}, storage.ErrNotFound
	}
	for id, existing := range s.companies {
		if id != comp.ID && comp.EIK != "" && existing.EIK == comp.EIK {
			return company.Company{}, storage.ErrConflict
		}
	}
	comp.UserID = original.UserID
	comp.CreatedAt = original.CreatedAt
	comp.UpdatedAt = time.Now().UTC()
	s.companies[comp.ID] = comp
	return comp, nil
}

func (s *Store) GetCompany(_ context.Context, id int64) (company.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comp, ok := s.companies[id]
	if !ok {
		return company.Company{}, storage.ErrNotFound
	}
	return comp, nil
}

func (s *Store) GetCompanyByUser(_ context.Context, userID int64) (company.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, comp := range s.companies {
		if comp.UserID == userID {
			return comp, nil
		}
	}
	return company.Company{}, storage.ErrNotFound
}

// ClientStore implementation ---------------------------------------------------

func (s *Store) CreateClient(_ context.Context, c client.Client) (client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clientEIKTakenLocked(c.CompanyID, c.EIK, 0) {
		return client.Client{}, storage.ErrConflict
	}
	now := time.Now().UTC()
	c.ID = s.nextIDLocked()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.clients[c.ID] = c
	return c, nil
}

func (s *Store) UpdateClient(_ context.Context, c client.Client) (client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.clients[c.ID]
	if !ok || original.CompanyID != c.CompanyID {
		return client.Client{}, storage.ErrNotFound
	}
	if s.clientEIKTakenLocked(c.CompanyID, c.EIK, c.ID) {
		return client.Client{}, storage.ErrConflict
	}
	c.CreatedAt = original.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	s.clients[c.ID] = c
	return c, nil
}

func (s *Store) GetClient(_ context.Context, companyID, id int64) (client.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok || c.CompanyID != companyID {
		return client.Client{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListClients(_ context.Context, companyID int64, opts storage.ListOptions) ([]client.Client, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []client.Client
	for _, c := range s.clients {
		if c.CompanyID != companyID {
			continue
		}
		if opts.Active != nil && c.IsActive != *opts.Active {
			continue
		}
		if !matchesSearch(opts.Search, c.Name, c.EIK, c.Email) {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	page, total := paginate(len(matched), opts)
	return matched[page.from:page.to], total, nil
}

func (s *Store) ListActiveClients(_ context.Context, companyID int64) ([]client.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []client.Client
	for _, c := range s.clients {
		if c.CompanyID == companyID && c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteClient(_ context.Context, companyID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok || c.CompanyID != companyID {
		return storage.ErrNotFound
	}
	delete(s.clients, id)
	return nil
}

func (s *Store) ClientEIKExists(_ context.Context, companyID int64, eik string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientEIKTakenLocked(companyID, eik, excludeID), nil
}

func (s *Store) clientEIKTakenLocked(companyID int64, eik string, excludeID int64) bool {
	for id, c := range s.clients {
		if id != excludeID && c.CompanyID == companyID && c.EIK == eik {
			return true
		}
	}
	return false
}

func (s *Store) CountClientDocuments(_ context.Context, companyID, clientID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, doc := range s.documents {
		if doc.CompanyID == companyID && doc.ClientID == clientID {
			count++
		}
	}
	for _, e := range s.expenses {
		if e.CompanyID == companyID && e.SupplierID != nil && *e.SupplierID == clientID {
			count++
		}
	}
	return count, nil
}

// ProductStore implementation --------------------------------------------------

func (s *Store) CreateProduct(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Code != "" && s.productCodeTakenLocked(p.CompanyID, p.Code, 0) {
		return product.Product{}, storage.ErrConflict
	}
	now := time.Now().UTC()
	p.ID = s.nextIDLocked()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) UpdateProduct(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.products[p.ID]
	if !ok || original.CompanyID != p.CompanyID {
		return product.Product{}, storage.ErrNotFound
	}
	if p.Code != "" && s.productCodeTakenLocked(p.CompanyID, p.Code, p.ID) {
		return product.Product{}, storage.ErrConflict
	}
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, companyID, id int64) (product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok || p.CompanyID != companyID {
		return product.Product{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListProducts(_ context.Context, companyID int64, opts storage.ListOptions) ([]product.Product, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []product.Product
	for _, p := range s.products {
		if p.CompanyID != companyID {
			continue
		}
		if opts.Active != nil && p.IsActive != *opts.Active {
			continue
		}
		if !matchesSearch(opts.Search, p.Name, p.Code, p.Description) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	page, total := paginate(len(matched), opts)
	return matched[page.from:page.to], total, nil
}

func (s *Store) ListActiveProducts(_ context.Context, companyID int64) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []product.Product
	for _, p := range s.products {
		if p.CompanyID == companyID && p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteProduct(_ context.Context, companyID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.CompanyID != companyID {
		return storage.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) ProductCodeExists(_ context.Context, companyID int64, code string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.productCodeTakenLocked(companyID, code, excludeID), nil
}

func (s *Store) productCodeTakenLocked(companyID int64, code string, excludeID int64) bool {
	for id, p := range s.products {
		if id != excludeID && p.CompanyID == companyID && p.Code == code {
			return true
		}
	}
	return false
}

func (s *Store) CountProductUsage(_ context.Context, companyID, productID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for docID, items := range s.items {
		if s.documents[docID].CompanyID != companyID {
			continue
		}
		for _, item := range items {
			if item.ProductID != nil && *item.ProductID == productID {
				count++
			}
		}
	}
	return count, nil
}

// DocumentStore implementation -------------------------------------------------

func (s *Store) CreateDocument(_ context.Context, doc document.Document) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.documents {
		if existing.CompanyID == doc.CompanyID && existing.DocumentNumber == doc.DocumentNumber {
			return document.Document{}, storage.ErrConflict
		}
	}

	now := time.Now().UTC()
	doc.ID = s.nextIDLocked()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	s.items[doc.ID] = s.assignItemsLocked(doc.ID, doc.Items, now)
	doc.Items = nil
	doc.Client = nil
	s.documents[doc.ID] = doc
	return s.hydrateLocked(doc), nil
}

func (s *Store) UpdateDocument(_ context.Context, doc document.Document) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.documents[doc.ID]
	if !ok || original.CompanyID != doc.CompanyID {
		return document.Document{}, storage.ErrNotFound
	}
	now := time.Now().UTC()
	doc.DocumentNumber = original.DocumentNumber
	doc.DocumentType = original.DocumentType
	doc.SourceDocumentID = original.SourceDocumentID
	doc.CreatedAt = original.CreatedAt
	doc.UpdatedAt = now
	s.items[doc.ID] = s.assignItemsLocked(doc.ID, doc.Items, now)
	doc.Items = nil
	doc.Client = nil
	s.documents[doc.ID] = doc
	return s.hydrateLocked(doc), nil
}

func (s *Store) assignItemsLocked(docID int64, items []document.Item, now time.Time) []document.Item {
	out := make([]document.Item, len(items))
	for i, item := range items {
		item.ID = s.nextIDLocked()
		item.DocumentID = docID
		item.CreatedAt = now
		item.UpdatedAt = now
		item.Product = nil
		out[i] = item
	}
	return out
}

// hydrateLocked attaches the client summary, items and product summaries.
func (s *Store) hydrateLocked(doc document.Document) document.Document {
	if c, ok := s.clients[doc.ClientID]; ok {
		summary := c.Summary()
		doc.Client = &summary
	}
	stored := s.items[doc.ID]
	doc.Items = make([]document.Item, len(stored))
	for i, item := range stored {
		if item.ProductID != nil {
			if p, ok := s.products[*item.ProductID]; ok {
				item.Product = &product.Summary{ID: p.ID, Name: p.Name, Code: p.Code}
			}
		}
		doc.Items[i] = item
	}
	return doc
}

func (s *Store) GetDocument(_ context.Context, companyID, id int64) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok || doc.CompanyID != companyID {
		return document.Document{}, storage.ErrNotFound
	}
	return s.hydrateLocked(doc), nil
}

func (s *Store) ListDocuments(_ context.Context, companyID int64, filter document.Filter, opts storage.ListOptions) ([]document.Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filterDocumentsLocked(companyID, filter)
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].DocumentDate.Equal(matched[j].DocumentDate) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].DocumentDate.After(matched[j].DocumentDate)
	})
	page, total := paginate(len(matched), opts)
	out := make([]document.Document, 0, page.to-page.from)
	for _, doc := range matched[page.from:page.to] {
		if c, ok := s.clients[doc.ClientID]; ok {
			summary := c.Summary()
			doc.Client = &summary
		}
		out = append(out, doc)
	}
	return out, total, nil
}

func (s *Store) filterDocumentsLocked(companyID int64, filter document.Filter) []document.Document {
	var matched []document.Document
	for _, doc := range s.documents {
		if doc.CompanyID != companyID {
			continue
		}
		if filter.Type != "" && doc.DocumentType != filter.Type {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, doc.Status) {
			continue
		}
		if filter.DateFrom != nil && doc.DocumentDate.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && doc.DocumentDate.After(*filter.DateTo) {
			continue
		}
		if filter.DueBefore != nil && (doc.DueDate == nil || !doc.DueDate.Before(*filter.DueBefore)) {
			continue
		}
		matched = append(matched, doc)
	}
	return matched
}

func (s *Store) DeleteDocument(_ context.Context, companyID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok || doc.CompanyID != companyID {
		return storage.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.items, id)
	return nil
}

func (s *Store) UpdateDocumentStatus(_ context.Context, companyID, id int64, status document.Status) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok || doc.CompanyID != companyID {
		return document.Document{}, storage.ErrNotFound
	}
	doc.Status = status
	doc.UpdatedAt = time.Now().UTC()
	s.documents[id] = doc
	return s.hydrateLocked(doc), nil
}

func (s *Store) LastDocumentNumber(_ context.Context, companyID int64, typ document.Type) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *document.Document
	for _, doc := range s.documents {
		if doc.CompanyID != companyID || doc.DocumentType != typ {
			continue
		}
		if last == nil || doc.CreatedAt.After(last.CreatedAt) || (doc.CreatedAt.Equal(last.CreatedAt) && doc.ID > last.ID) {
			d := doc
			last = &d
		}
	}
	if last == nil {
		return "", nil
	}
	return last.DocumentNumber, nil
}

func (s *Store) AggregateDocuments(_ context.Context, companyID int64, filter document.Filter) (document.Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := document.Aggregate{Total: decimal.Zero}
	for _, doc := range s.filterDocumentsLocked(companyID, filter) {
		agg.Count++
		agg.Total = agg.Total.Add(doc.Total)
	}
	return agg, nil
}

func (s *Store) MarkOverdue(_ context.Context, asOf time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	now := time.Now().UTC()
	for id, doc := range s.documents {
		if doc.DocumentType != document.TypeInvoice || doc.Status != document.StatusSent {
			continue
		}
		if doc.DueDate == nil || !doc.DueDate.Before(asOf) {
			continue
		}
		doc.Status = document.StatusOverdue
		doc.UpdatedAt = now
		s.documents[id] = doc
		changed++
	}
	return changed, nil
}

// ExpenseStore implementation --------------------------------------------------

func (s *Store) CreateExpense(_ context.Context, e expense.Expense) (expense.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	e.ID = s.nextIDLocked()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.Supplier = nil
	s.expenses[e.ID] = e
	return s.withSupplierLocked(e), nil
}

func (s *Store) UpdateExpense(_ context.Context, e expense.Expense) (expense.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.expenses[e.ID]
	if !ok || original.CompanyID != e.CompanyID {
		return expense.Expense{}, storage.ErrNotFound
	}
	e.CreatedAt = original.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	e.Supplier = nil
	s.expenses[e.ID] = e
	return s.withSupplierLocked(e), nil
}

func (s *Store) GetExpense(_ context.Context, companyID, id int64) (expense.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expenses[id]
	if !ok || e.CompanyID != companyID {
		return expense.Expense{}, storage.ErrNotFound
	}
	e = s.withSupplierLocked(e)
	if e.Supplier != nil {
		e.Supplier.Address = s.clients[*e.SupplierID].Address
	}
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, companyID int64) ([]expense.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []expense.Expense
	for _, e := range s.expenses {
		if e.CompanyID == companyID {
			out = append(out, s.withSupplierLocked(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpenseDate.Equal(out[j].ExpenseDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].ExpenseDate.After(out[j].ExpenseDate)
	})
	return out, nil
}

func (s *Store) DeleteExpense(_ context.Context, companyID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[id]
	if !ok || e.CompanyID != companyID {
		return storage.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) withSupplierLocked(e expense.Expense) expense.Expense {
	if e.SupplierID == nil {
		return e
	}
	if c, ok := s.clients[*e.SupplierID]; ok {
		e.Supplier = &client.Summary{ID: c.ID, Name: c.Name, EIK: c.EIK}
	}
	return e
}

// BankingStore implementation --------------------------------------------------

func (s *Store) CreateBankAccount(_ context.Context, acct banking.BankAccount) (banking.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	acct.ID = s.nextIDLocked()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	if acct.IsDefault {
		s.clearDefaultBankAccountLocked(acct.CompanyID)
	}
	s.bankAccounts[acct.ID] = acct
	return acct, nil
}

func (s *Store) UpdateBankAccount(_ context.Context, acct banking.BankAccount) (banking.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.bankAccounts[acct.ID]
	if !ok || original.CompanyID != acct.CompanyID {
		return banking.BankAccount{}, storage.ErrNotFound
	}
	acct.CreatedAt = original.CreatedAt
	acct.UpdatedAt = time.Now().UTC()
	if acct.IsDefault {
		s.clearDefaultBankAccountLocked(acct.CompanyID)
	}
	s.bankAccounts[acct.ID] = acct
	return acct, nil
}

func (s *Store) clearDefaultBankAccountLocked(companyID int64) {
	for id, existing := range s.bankAccounts {
		if existing.CompanyID == companyID && existing.IsDefault {
			existing.IsDefault = false
			s.bankAccounts[id] = existing
		}
	}
}

func (s *Store) GetBankAccount(_ context.Context, companyID, id int64) (banking.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.bankAccounts[id]
	if !ok || acct.CompanyID != companyID {
		return banking.BankAccount{}, storage.ErrNotFound
	}
	return acct, nil
}

func (s *Store) ListBankAccounts(_ context.Context, companyID int64) ([]banking.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []banking.BankAccount
	for _, acct := range s.bankAccounts {
		if acct.CompanyID == companyID {
			out = append(out, acct)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteBankAccount(_ context.Context, companyID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.bankAccounts[id]
	if !ok || acct.CompanyID != companyID {
		return storage.ErrNotFound
	}
	delete(s.bankAccounts, id)
	return nil
}

func (s *Store) CreatePaymentMethod(_ context.Context, pm banking.PaymentMethod) (banking.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	pm.ID = s.nextIDLocked()
	pm.CreatedAt = now
	pm.UpdatedAt = now
	if pm.IsDefault {
		s.clearDefaultPaymentMethodLocked(pm.CompanyID)
	}
	s.paymentMethods[pm.ID] = pm
	return pm, nil
}

func (s *Store) UpdatePaymentMethod(_ context.Context, pm banking.PaymentMethod) (banking.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.paymentMethods[pm.ID]
	if !ok || original.CompanyID != pm.CompanyID {
		return banking.PaymentMethod{}, storage.ErrNotFound
	}
	pm.CreatedAt = original.CreatedAt
	pm.UpdatedAt = time.Now().UTC()
	if pm.IsDefault {
		s.clearDefaultPaymentMethodLocked(pm.CompanyID)
	}
	s.paymentMethods[pm.ID] = pm
	return pm, nil
}

func (s *Store) clearDefaultPaymentMethodLocked(companyID int64) {
	for id, existing := range s.paymentMethods {
		if existing.CompanyID == companyID && existing.IsDefault {
			existing.IsDefault = false
			s.paymentMethods[id] = existing
		}
	}
}

func (s *Store) GetPaymentMethod(_ context.Context, companyID, id int64) (banking.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pm, ok := s.paymentMethods[id]
	if !ok || pm.CompanyID != companyID {
		return banking.PaymentMethod{}, storage.ErrNotFound
	}
	return pm, nil
}

func (s *Store) ListPaymentMethods(_ context.Context, companyID int64) ([]banking.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []banking.PaymentMethod
	for _, pm := range s.paymentMethods {
		if pm.CompanyID == companyID {
			out = append(out, pm)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeletePaymentMethod(_ context.Context, companyID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pm, ok := s.paymentMethods[id]
	if !ok || pm.CompanyID != companyID {
		return storage.ErrNotFound
	}
	delete(s.paymentMethods, id)
	return nil
}

// helpers ------------------------------------------------------------------------

type window struct{ from, to int }

func paginate(total int, opts storage.ListOptions) (window, int) {
	n := opts.Normalize()
	from := (n.Page - 1) * n.Limit
	if from > total {
		from = total
	}
	to := from + n.Limit
	if to > total {
		to = total
	}
	return window{from, to}, total
}

func matchesSearch(search string, fields ...string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func containsStatus(list []document.Status, status document.Status) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}
