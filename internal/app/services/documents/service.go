package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/app/domain/banking"
	"github.com/bgfactura/invoicing/internal/app/domain/calendar"
	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/app/metrics"
	"github.com/bgfactura/invoicing/internal/app/services/export"
	"github.com/bgfactura/invoicing/internal/app/services/pdf"
	"github.com/bgfactura/invoicing/internal/app/storage"
	"github.com/bgfactura/invoicing/internal/app/validation"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/logging"
)

// numberAttempts bounds how often a colliding document number is re-derived.
const numberAttempts = 3

// ItemInput is one line of a document payload.
type ItemInput struct {
	ProductID   *int64          `json:"productId"`
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity" validate:"dgte=0.01"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"dgte=0"`
	VATRate     decimal.Decimal `json:"vatRate" validate:"dgte=0,dlte=100"`
}

// Input is the create/update payload.
type Input struct {
	ClientID     int64         `json:"clientId" validate:"required,gt=0"`
	DocumentType document.Type `json:"documentType" validate:"omitempty,oneof=invoice quote delivery proforma"`
	DocumentDate calendar.Date `json:"documentDate"`
	DueDate      calendar.Date `json:"dueDate"`
	Currency     string        `json:"currency" validate:"omitempty,oneof=BGN EUR USD"`
	Language     string        `json:"language" validate:"omitempty,oneof=bg es en"`
	Notes        string        `json:"notes"`
	Items        []ItemInput   `json:"items" validate:"required,min=1,dive"`
}

// Page is one page of documents.
type Page struct {
	Documents   []document.Document
	TotalCount  int
	TotalPages  int
	CurrentPage int
}

// Rendered is a generated PDF.
type Rendered struct {
	Filename string
	Content  []byte
}

// Renderer lays a document out as PDF.
type Renderer interface {
	Render(w io.Writer, data pdf.Data) error
}

// Service manages documents and their items.
type Service struct {
	docs      storage.DocumentStore
	clients   storage.ClientStore
	products  storage.ProductStore
	companies storage.CompanyStore
	banking   storage.BankingStore
	renderer  Renderer
	log       *logging.Logger
	now       func() time.Time
}

// New constructs the documents service.
func New(docs storage.DocumentStore, clients storage.ClientStore, products storage.ProductStore,
	companies storage.CompanyStore, bankingStore storage.BankingStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("documents")
	}
	return &Service{
		docs:      docs,
		clients:   clients,
		products:  products,
		companies: companies,
		banking:   bankingStore,
		log:       log,
		now:       time.Now,
	}
}

// WithRenderer attaches the PDF renderer.
func (s *Service) WithRenderer(r Renderer) *Service {
	s.renderer = r
	return s
}

// List returns a page of documents, newest first.
func (s *Service) List(ctx context.Context, companyID int64, filter document.Filter, opts storage.ListOptions) (Page, error) {
	opts = opts.Normalize()
	list, total, err := s.docs.ListDocuments(ctx, companyID, filter, opts)
	if err != nil {
		return Page{}, storage.Translate(err, "Document", "")
	}
	return Page{Documents: list, TotalCount: total, TotalPages: opts.TotalPages(total), CurrentPage: opts.Page}, nil
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (document.Document, error) {
	doc, err := s.docs.GetDocument(ctx, companyID, id)
	if err != nil {
		return document.Document{}, storage.Translate(err, "Document", "")
	}
	return doc, nil
}

// Create numbers, totals and stores a new document.
func (s *Service) Create(ctx context.Context, companyID int64, in Input) (document.Document, error) {
	if err := validation.Struct(in); err != nil {
		return document.Document{}, err
	}
	if in.DocumentType == "" {
		return document.Document{}, apperrors.Validation("Validation failed").WithDetails("documentType", "is required")
	}
	if err := s.checkReferences(ctx, companyID, in); err != nil {
		return document.Document{}, err
	}

	doc := document.Document{
		CompanyID:    companyID,
		DocumentType: in.DocumentType,
		Status:       document.StatusDraft,
	}
	s.applyInput(&doc, in)
	return s.insert(ctx, doc, "create")
}

// Update rewrites a document and replaces its items. The type and number
// never change.
func (s *Service) Update(ctx context.Context, companyID, id int64, in Input) (document.Document, error) {
	existing, err := s.docs.GetDocument(ctx, companyID, id)
	if err != nil {
		return document.Document{}, storage.Translate(err, "Document", "")
	}
	if !existing.Status.Editable() {
		return document.Document{}, apperrors.Validationf("Cannot edit a %s document", existing.Status)
	}
	if err := validation.Struct(in); err != nil {
		return document.Document{}, err
	}
	if in.DocumentType != "" && in.DocumentType != existing.DocumentType {
		return document.Document{}, apperrors.Validation("Document type cannot be changed")
	}
	if err := s.checkReferences(ctx, companyID, in); err != nil {
		return document.Document{}, err
	}

	doc := existing
	doc.Items = nil
	s.applyInput(&doc, in)
	updated, err := s.docs.UpdateDocument(ctx, doc)
	if err != nil {
		return document.Document{}, storage.Translate(err, "Document", "")
	}
	s.log.WithField("company_id", companyID).
		WithField("document_id", id).
		WithField("total", updated.Total.String()).
		Info("document updated")
	return updated, nil
}

// Delete removes a document with its items. Paid documents are kept.
func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	doc, err := s.docs.GetDocument(ctx, companyID, id)
	if err != nil {
		return storage.Translate(err, "Document", "")
	}
	if doc.Status == document.StatusPaid {
		return apperrors.Validation("Cannot delete a paid document")
	}
	if err := s.docs.DeleteDocument(ctx, companyID, id); err != nil {
		return storage.Translate(err, "Document", "")
	}
	s.log.WithField("company_id", companyID).
		WithField("document_id", id).
		WithField("document_number", doc.DocumentNumber).
		Info("document deleted")
	return nil
}

// UpdateStatus sets any known status.
func (s *Service) UpdateStatus(ctx context.Context, companyID, id int64, status document.Status) (document.Document, error) {
	if !status.Valid() {
		return document.Document{}, apperrors.Validation("Validation failed").WithDetails("status", "must be one of draft, sent, paid, overdue, cancelled")
	}
	doc, err := s.docs.UpdateDocumentStatus(ctx, companyID, id, status)
	if err != nil {
		return document.Document{}, storage.Translate(err, "Document", "")
	}
	s.log.WithField("document_id", id).
		WithField("status", status).
		Info("document status changed")
	return doc, nil
}

// Duplicate copies a document under a fresh number as a draft dated today.
func (s *Service) Duplicate(ctx context.Context, companyID, id int64) (document.Document, error) {
	source, err := s.docs.GetDocument(ctx, companyID, id)
	if err != nil {
		return document.Document{}, storage.Translate(err, "Document", "")
	}
	return s.insert(ctx, s.derive(source, source.DocumentType), "duplicate")
}

// ConvertToInvoice issues an invoice from a quote or proforma.
func (s *Service) ConvertToInvoice(ctx context.Context, companyID, id int64) (document.Document, error) {
	source, err := s.docs.GetDocument(ctx, companyID, id)
	if err != nil {
		return document.Document{}, storage.Translate(err, "Document", "")
	}
	if source.DocumentType != document.TypeQuote && source.DocumentType != document.TypeProforma {
		return document.Document{}, apperrors.Validation("Only quotes and proformas can be converted to invoices")
	}
	if source.Status == document.StatusCancelled {
		return document.Document{}, apperrors.Validation("Cannot convert a cancelled document")
	}
	return s.insert(ctx, s.derive(source, document.TypeInvoice), "convert")
}

// PDF renders a document.
func (s *Service) PDF(ctx context.Context, companyID, id int64) (Rendered, error) {
	if s.renderer == nil {
		return Rendered{}, apperrors.Internal("PDF rendering is not configured", nil)
	}
	doc, err := s.docs.GetDocument(ctx, companyID, id)
	if err != nil {
		return Rendered{}, storage.Translate(err, "Document", "")
	}
	comp, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return Rendered{}, storage.Translate(err, "Company", "")
	}
	data := pdf.Data{Document: doc, Company: comp}

	c, err := s.clients.GetClient(ctx, companyID, doc.ClientID)
	switch {
	case err == nil:
		data.Client = c
	case errors.Is(err, storage.ErrNotFound) && doc.Client != nil:
		data.Client.Name, data.Client.EIK, data.Client.City = doc.Client.Name, doc.Client.EIK, doc.Client.City
	case !errors.Is(err, storage.ErrNotFound):
		return Rendered{}, storage.Translate(err, "Client", "")
	}

	if !comp.HasBankDetails() && s.banking != nil {
		accounts, err := s.banking.ListBankAccounts(ctx, companyID)
		if err != nil {
			return Rendered{}, storage.Translate(err, "Bank account", "")
		}
		data.Bank = preferredAccount(accounts)
	}

	start := time.Now()
	var buf bytes.Buffer
	err = s.renderer.Render(&buf, data)
	metrics.ObservePDFRender(doc.Language, time.Since(start), err == nil)
	if err != nil {
		s.log.WithError(err).WithField("document_id", id).Error("pdf rendering failed")
		return Rendered{}, apperrors.Internal("Failed to generate PDF", err)
	}
	return Rendered{Filename: pdf.Filename(doc), Content: buf.Bytes()}, nil
}

// Export writes every document matching filter as an XLSX workbook.
func (s *Service) Export(ctx context.Context, companyID int64, filter document.Filter, w io.Writer) error {
	var all []document.Document
	for page := 1; ; page++ {
		list, total, err := s.docs.ListDocuments(ctx, companyID, filter, storage.ListOptions{Page: page, Limit: storage.MaxPageSize})
		if err != nil {
			return storage.Translate(err, "Document", "")
		}
		all = append(all, list...)
		if len(list) == 0 || len(all) >= total {
			break
		}
	}
	if err := export.Documents(w, all); err != nil {
		return apperrors.Internal("Failed to export documents", err)
	}
	return nil
}

// NextNumbers previews the next number of every document type.
func (s *Service) NextNumbers(ctx context.Context, companyID int64) map[document.Type]string {
	out := make(map[document.Type]string, len(document.Types))
	for _, t := range document.Types {
		out[t] = s.nextNumber(ctx, companyID, t)
	}
	return out
}

func (s *Service) insert(ctx context.Context, doc document.Document, origin string) (document.Document, error) {
	number := s.nextNumber(ctx, doc.CompanyID, doc.DocumentType)
	for attempt := 1; ; attempt++ {
		doc.DocumentNumber = number
		created, err := s.docs.CreateDocument(ctx, doc)
		if err == nil {
			metrics.RecordDocumentCreated(string(created.DocumentType), origin)
			s.log.WithField("company_id", created.CompanyID).
				WithField("document_id", created.ID).
				WithField("document_number", created.DocumentNumber).
				WithField("origin", origin).
				Info("document created")
			return created, nil
		}
		if !errors.Is(err, storage.ErrConflict) || attempt >= numberAttempts {
			return document.Document{}, storage.Translate(err, "Document", "Could not allocate a unique document number")
		}
		s.log.WithField("document_number", number).Warn("document number taken; retrying")
		number = document.NextNumber(doc.DocumentType, number, s.now())
	}
}

func (s *Service) nextNumber(ctx context.Context, companyID int64, t document.Type) string {
	now := s.now()
	last, err := s.docs.LastDocumentNumber(ctx, companyID, t)
	if err != nil {
		s.log.WithError(err).WithField("company_id", companyID).Warn("document number lookup failed; using fallback")
		metrics.RecordNumberingFallback()
		return document.FallbackNumber(now)
	}
	return document.NextNumber(t, last, now)
}

// derive builds a new draft from source, dated today. A due date keeps its
// distance from the document date.
func (s *Service) derive(source document.Document, t document.Type) document.Document {
	today := calendar.StartOfDay(s.now().UTC())
	doc := document.Document{
		CompanyID:        source.CompanyID,
		ClientID:         source.ClientID,
		DocumentType:     t,
		DocumentDate:     today,
		Currency:         source.Currency,
		Status:           document.StatusDraft,
		Language:         source.Language,
		Notes:            source.Notes,
		SourceDocumentID: &source.ID,
	}
	if source.DueDate != nil {
		due := today.Add(source.DueDate.Sub(source.DocumentDate))
		if due.Before(today) {
			due = today
		}
		doc.DueDate = &due
	}
	doc.Items = make([]document.Item, len(source.Items))
	for i, item := range source.Items {
		doc.Items[i] = document.Item{
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			VATRate:     item.VATRate,
		}
		doc.Items[i].RoundInputs()
	}
	document.ComputeTotals(doc.Items).Apply(&doc)
	return doc
}

func (s *Service) applyInput(doc *document.Document, in Input) {
	doc.ClientID = in.ClientID
	// An omitted date keeps the stored one; new documents default to today.
	if !in.DocumentDate.IsZero() {
		doc.DocumentDate = in.DocumentDate.Time
	}
	if doc.DocumentDate.IsZero() {
		doc.DocumentDate = calendar.StartOfDay(s.now().UTC())
	}
	doc.DueDate = in.DueDate.Ptr()
	doc.Currency = in.Currency
	if doc.Currency == "" {
		doc.Currency = document.CurrencyBGN
	}
	doc.Language = in.Language
	if doc.Language == "" {
		doc.Language = document.LanguageBG
	}
	doc.Notes = strings.TrimSpace(in.Notes)

	doc.Items = make([]document.Item, len(in.Items))
	for i, item := range in.Items {
		doc.Items[i] = document.Item{
			ProductID:   item.ProductID,
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			VATRate:     item.VATRate,
		}
		doc.Items[i].RoundInputs()
	}
	document.ComputeTotals(doc.Items).Apply(doc)
}

// checkReferences makes sure the client and linked products belong to the
// company.
func (s *Service) checkReferences(ctx context.Context, companyID int64, in Input) error {
	if _, err := s.clients.GetClient(ctx, companyID, in.ClientID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.Validation("Client not found")
		}
		return storage.Translate(err, "Client", "")
	}
	for i, item := range in.Items {
		if item.ProductID == nil {
			continue
		}
		if _, err := s.products.GetProduct(ctx, companyID, *item.ProductID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperrors.Validation("Product not found").WithDetails("item", i)
			}
			return storage.Translate(err, "Product", "")
		}
	}
	return nil
}

func preferredAccount(accounts []banking.BankAccount) *banking.BankAccount {
	var fallback *banking.BankAccount
	for i := range accounts {
		if !accounts[i].IsActive {
			continue
		}
		if accounts[i].IsDefault {
			return &accounts[i]
		}
		if fallback == nil {
			fallback = &accounts[i]
		}
	}
	return fallback
}
