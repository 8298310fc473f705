package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgfactura/invoicing/internal/app/domain/client"
	"github.com/bgfactura/invoicing/internal/app/domain/company"
	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/app/domain/user"
	"github.com/bgfactura/invoicing/internal/app/storage"
	"github.com/bgfactura/invoicing/internal/platform/migrations"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestGetClientNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`SELECT .* FROM clients WHERE id = \$1 AND company_id = \$2`).
		WithArgs(int64(5), int64(1)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetClient(context.Background(), 1, 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateClientUniqueViolation(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO clients`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "clients_company_id_eik_key"})

	_, err := store.CreateClient(context.Background(), client.Client{CompanyID: 1, Name: "Beta", EIK: "121887994"})
	assert.ErrorIs(t, err, storage.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLastDocumentNumber(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`SELECT document_number FROM documents`).
		WithArgs(int64(1), "invoice").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT document_number FROM documents`).
		WithArgs(int64(1), "quote").
		WillReturnRows(sqlmock.NewRows([]string{"document_number"}).AddRow("QUO-2024-007"))

	last, err := store.LastDocumentNumber(context.Background(), 1, document.TypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, "", last)

	last, err = store.LastDocumentNumber(context.Background(), 1, document.TypeQuote)
	require.NoError(t, err)
	assert.Equal(t, "QUO-2024-007", last)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDocumentWritesItemsInTransaction(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()
	productID := int64(4)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO documents`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(`INSERT INTO document_items`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	docCols := []string{"id", "company_id", "client_id", "document_type", "document_number", "document_date", "due_date",
		"currency", "subtotal", "vat_amount", "total", "status", "language", "notes", "source_document_id",
		"created_at", "updated_at", "client_name", "client_eik", "client_city"}
	mock.ExpectQuery(`SELECT d.id, .* FROM documents d\s+LEFT JOIN clients c`).
		WithArgs(int64(11), int64(1)).
		WillReturnRows(sqlmock.NewRows(docCols).AddRow(
			int64(11), int64(1), int64(3), "invoice", "INV-2024-001", now, nil,
			"BGN", "100.00", "20.00", "120.00", "draft", "bg", "", nil,
			now, now, "Beta", "121887994", "Sofia"))

	itemCols := []string{"id", "document_id", "product_id", "description", "quantity", "unit_price", "vat_rate",
		"total", "created_at", "updated_at", "product_name", "product_code"}
	mock.ExpectQuery(`FROM document_items di`).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(
			int64(21), int64(11), productID, "Consulting", "1", "100", "20", "120.00", now, now, "Consulting", "C-1"))

	doc, err := store.CreateDocument(context.Background(), document.Document{
		CompanyID:      1,
		ClientID:       3,
		DocumentType:   document.TypeInvoice,
		DocumentNumber: "INV-2024-001",
		DocumentDate:   now,
		Currency:       "BGN",
		Status:         document.StatusDraft,
		Language:       "bg",
		Items: []document.Item{{
			ProductID: &productID, Description: "Consulting",
			Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100), VATRate: decimal.NewFromInt(20),
			Total: decimal.NewFromInt(120),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), doc.ID)
	assert.Equal(t, "Beta", doc.Client.Name)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "C-1", doc.Items[0].Product.Code)
	assert.True(t, doc.Total.Equal(decimal.NewFromInt(120)))
	assert.Nil(t, doc.DueDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDocumentRollsBackOnItemFailure(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO documents`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectExec(`INSERT INTO document_items`).
		WillReturnError(&pq.Error{Code: "23514", Message: "check constraint"})
	mock.ExpectRollback()

	_, err := store.CreateDocument(context.Background(), document.Document{
		CompanyID: 1, ClientID: 3, DocumentType: document.TypeInvoice, DocumentNumber: "INV-2024-002",
		Items: []document.Item{{Description: "bad", Quantity: decimal.Zero}},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkOverdue(t *testing.T) {
	store, mock := newMock(t)
	asOf := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE documents\s+SET status = 'overdue'`).
		WithArgs(asOf).
		WillReturnResult(sqlmock.NewResult(0, 3))

	changed, err := store.MarkOverdue(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDocumentNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM document_items`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM documents`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.DeleteDocument(context.Background(), 1, 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migrations.Apply(db))

	store := New(db)
	ctx := context.Background()
	suffix := time.Now().Format("150405.000")

	usr, comp, err := store.CreateUserWithCompany(ctx,
		user.User{Email: "owner-" + suffix + "@example.bg", PasswordHash: "hash", FirstName: "Ivan", LastName: "Petrov", IsActive: true},
		&company.Company{Name: "Test OOD", EIK: "831641791", Address: "ul. Test 1", City: "Sofia"})
	require.NoError(t, err)
	require.NotNil(t, comp)
	assert.Equal(t, usr.ID, comp.UserID)

	c, err := store.CreateClient(ctx, client.Client{CompanyID: comp.ID, Name: "Beta", EIK: "121887994", Address: "x", City: "Varna", IsActive: true})
	require.NoError(t, err)

	doc, err := store.CreateDocument(ctx, document.Document{
		CompanyID: comp.ID, ClientID: c.ID, DocumentType: document.TypeInvoice, DocumentNumber: "INV-TEST-001",
		DocumentDate: time.Now().UTC(), Currency: "BGN", Status: document.StatusDraft, Language: "bg",
		Items: []document.Item{{Description: "Item", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(10), VATRate: decimal.NewFromInt(20), Total: decimal.NewFromInt(24)}},
	})
	require.NoError(t, err)
	assert.Len(t, doc.Items, 1)

	_, err = store.CreateDocument(ctx, document.Document{
		CompanyID: comp.ID, ClientID: c.ID, DocumentType: document.TypeInvoice, DocumentNumber: "INV-TEST-001",
		DocumentDate: time.Now().UTC(), Currency: "BGN", Status: document.StatusDraft, Language: "bg",
	})
	assert.ErrorIs(t, err, storage.ErrConflict)
}
