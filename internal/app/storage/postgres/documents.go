package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/app/domain/client"
	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/app/domain/product"
	"github.com/bgfactura/invoicing/internal/app/storage"
)

type documentRow struct {
	ID               int64           `db:"id"`
	CompanyID        int64           `db:"company_id"`
	ClientID         int64           `db:"client_id"`
	DocumentType     string          `db:"document_type"`
	DocumentNumber   string          `db:"document_number"`
	DocumentDate     time.Time       `db:"document_date"`
	DueDate          *time.Time      `db:"due_date"`
	Currency         string          `db:"currency"`
	Subtotal         decimal.Decimal `db:"subtotal"`
	VATAmount        decimal.Decimal `db:"vat_amount"`
	Total            decimal.Decimal `db:"total"`
	Status           string          `db:"status"`
	Language         string          `db:"language"`
	Notes            string          `db:"notes"`
	SourceDocumentID *int64          `db:"source_document_id"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`

	ClientName sql.NullString `db:"client_name"`
	ClientEIK  sql.NullString `db:"client_eik"`
	ClientCity sql.NullString `db:"client_city"`
}

func (r documentRow) model() document.Document {
	doc := document.Document{
		ID: r.ID, CompanyID: r.CompanyID, ClientID: r.ClientID,
		DocumentType: document.Type(r.DocumentType), DocumentNumber: r.DocumentNumber,
		DocumentDate: r.DocumentDate, DueDate: r.DueDate, Currency: r.Currency,
		Subtotal: r.Subtotal, VATAmount: r.VATAmount, Total: r.Total,
		Status: document.Status(r.Status), Language: r.Language, Notes: r.Notes,
		SourceDocumentID: r.SourceDocumentID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	if r.ClientName.Valid {
		doc.Client = &client.Summary{ID: r.ClientID, Name: r.ClientName.String, EIK: r.ClientEIK.String, City: r.ClientCity.String}
	}
	return doc
}

type itemRow struct {
	ID          int64           `db:"id"`
	DocumentID  int64           `db:"document_id"`
	ProductID   *int64          `db:"product_id"`
	Description string          `db:"description"`
	Quantity    decimal.Decimal `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	VATRate     decimal.Decimal `db:"vat_rate"`
	Total       decimal.Decimal `db:"total"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`

	ProductName sql.NullString `db:"product_name"`
	ProductCode sql.NullString `db:"product_code"`
}

func (r itemRow) model() document.Item {
	item := document.Item{
		ID: r.ID, DocumentID: r.DocumentID, ProductID: r.ProductID, Description: r.Description,
		Quantity: r.Quantity, UnitPrice: r.UnitPrice, VATRate: r.VATRate, Total: r.Total,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	if r.ProductID != nil && r.ProductName.Valid {
		item.Product = &product.Summary{ID: *r.ProductID, Name: r.ProductName.String, Code: r.ProductCode.String}
	}
	return item
}

const documentSelect = `
	SELECT d.id, d.company_id, d.client_id, d.document_type, d.document_number, d.document_date, d.due_date,
	       d.currency, d.subtotal, d.vat_amount, d.total, d.status, d.language, d.notes, d.source_document_id,
	       d.created_at, d.updated_at,
	       c.name AS client_name, c.eik AS client_eik, c.city AS client_city
	FROM documents d
	LEFT JOIN clients c ON c.id = d.client_id`

func (s *Store) CreateDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	now := time.Now().UTC()
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO documents (company_id, client_id, document_type, document_number, document_date, due_date,
			                       currency, subtotal, vat_amount, total, status, language, notes, source_document_id,
			                       created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING id
		`, doc.CompanyID, doc.ClientID, string(doc.DocumentType), doc.DocumentNumber, doc.DocumentDate, doc.DueDate,
			doc.Currency, doc.Subtotal, doc.VATAmount, doc.Total, string(doc.Status), doc.Language, doc.Notes,
			doc.SourceDocumentID, now, now).Scan(&doc.ID); err != nil {
			return translate(err)
		}
		return insertItems(ctx, tx, doc.ID, doc.Items, now)
	})
	if err != nil {
		return document.Document{}, err
	}
	return s.GetDocument(ctx, doc.CompanyID, doc.ID)
}

func (s *Store) UpdateDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	now := time.Now().UTC()
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE documents
			SET client_id = $3, document_date = $4, due_date = $5, currency = $6, subtotal = $7,
			    vat_amount = $8, total = $9, status = $10, language = $11, notes = $12, updated_at = $13
			WHERE id = $1 AND company_id = $2
		`, doc.ID, doc.CompanyID, doc.ClientID, doc.DocumentDate, doc.DueDate, doc.Currency, doc.Subtotal,
			doc.VATAmount, doc.Total, string(doc.Status), doc.Language, doc.Notes, now)
		if err != nil {
			return translate(err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_items WHERE document_id = $1`, doc.ID); err != nil {
			return translate(err)
		}
		return insertItems(ctx, tx, doc.ID, doc.Items, now)
	})
	if err != nil {
		return document.Document{}, err
	}
	return s.GetDocument(ctx, doc.CompanyID, doc.ID)
}

func insertItems(ctx context.Context, tx *sqlx.Tx, documentID int64, items []document.Item, now time.Time) error {
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_items (document_id, product_id, description, quantity, unit_price, vat_rate, total, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, documentID, item.ProductID, item.Description, item.Quantity, item.UnitPrice, item.VATRate, item.Total, now, now); err != nil {
			return translate(err)
		}
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, companyID, id int64) (document.Document, error) {
	var row documentRow
	if err := s.db.GetContext(ctx, &row, documentSelect+` WHERE d.id = $1 AND d.company_id = $2`, id, companyID); err != nil {
		return document.Document{}, translate(err)
	}
	doc := row.model()

	var items []itemRow
	if err := s.db.SelectContext(ctx, &items, `
		SELECT di.id, di.document_id, di.product_id, di.description, di.quantity, di.unit_price, di.vat_rate,
		       di.total, di.created_at, di.updated_at,
		       p.name AS product_name, p.code AS product_code
		FROM document_items di
		LEFT JOIN products p ON p.id = di.product_id
		WHERE di.document_id = $1
		ORDER BY di.id
	`, id); err != nil {
		return document.Document{}, translate(err)
	}
	doc.Items = make([]document.Item, len(items))
	for i, r := range items {
		doc.Items[i] = r.model()
	}
	return doc, nil
}

// documentWhere builds the shared filter clause. Placeholders start at $1
// with the company id.
func documentWhere(companyID int64, filter document.Filter) (string, []interface{}) {
	statuses := make([]string, len(filter.Statuses))
	for i, st := range filter.Statuses {
		statuses[i] = string(st)
	}
	where := ` WHERE d.company_id = $1
		AND ($2 = '' OR d.document_type = $2)
		AND (cardinality($3::text[]) = 0 OR d.status = ANY($3::text[]))
		AND ($4::timestamptz IS NULL OR d.document_date >= $4)
		AND ($5::timestamptz IS NULL OR d.document_date <= $5)
		AND ($6::timestamptz IS NULL OR d.due_date < $6)`
	args := []interface{}{companyID, string(filter.Type), pq.Array(statuses), filter.DateFrom, filter.DateTo, filter.DueBefore}
	return where, args
}

func (s *Store) ListDocuments(ctx context.Context, companyID int64, filter document.Filter, opts storage.ListOptions) ([]document.Document, int, error) {
	opts = opts.Normalize()
	where, args := documentWhere(companyID, filter)

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM documents d`+where, args...); err != nil {
		return nil, 0, translate(err)
	}

	var rows []documentRow
	query := documentSelect + where + ` ORDER BY d.document_date DESC, d.id DESC LIMIT $7 OFFSET $8`
	if err := s.db.SelectContext(ctx, &rows, query, append(args, opts.Limit, opts.Offset())...); err != nil {
		return nil, 0, translate(err)
	}
	out := make([]document.Document, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, total, nil
}

func (s *Store) DeleteDocument(ctx context.Context, companyID, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM document_items
			WHERE document_id = (SELECT id FROM documents WHERE id = $1 AND company_id = $2)
		`, id, companyID); err != nil {
			return translate(err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND company_id = $2`, id, companyID)
		if err != nil {
			return translate(err)
		}
		return requireAffected(res)
	})
}

func (s *Store) UpdateDocumentStatus(ctx context.Context, companyID, id int64, status document.Status) (document.Document, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = $3, updated_at = $4 WHERE id = $1 AND company_id = $2
	`, id, companyID, string(status), time.Now().UTC())
	if err != nil {
		return document.Document{}, translate(err)
	}
	if err := requireAffected(res); err != nil {
		return document.Document{}, err
	}
	return s.GetDocument(ctx, companyID, id)
}

func (s *Store) LastDocumentNumber(ctx context.Context, companyID int64, typ document.Type) (string, error) {
	var number string
	err := s.db.GetContext(ctx, &number, `
		SELECT document_number FROM documents
		WHERE company_id = $1 AND document_type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, companyID, string(typ))
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return number, translate(err)
}

func (s *Store) AggregateDocuments(ctx context.Context, companyID int64, filter document.Filter) (document.Aggregate, error) {
	where, args := documentWhere(companyID, filter)
	var row struct {
		Count int             `db:"count"`
		Total decimal.Decimal `db:"total"`
	}
	if err := s.db.GetContext(ctx, &row, `SELECT COUNT(*) AS count, COALESCE(SUM(d.total), 0) AS total FROM documents d`+where, args...); err != nil {
		return document.Aggregate{}, translate(err)
	}
	return document.Aggregate{Count: row.Count, Total: row.Total}, nil
}

func (s *Store) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = 'overdue', updated_at = NOW()
		WHERE status = 'sent' AND document_type = 'invoice' AND due_date IS NOT NULL AND due_date < $1
	`, asOf)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}
