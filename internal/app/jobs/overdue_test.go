package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/app/storage/memory"
	"github.com/bgfactura/invoicing/internal/logging"
)

type failingStore struct{}

func (failingStore) MarkOverdue(context.Context, time.Time) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestRunMarksSentInvoicesPastDue(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	today := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	create := func(typ document.Type, number string, status document.Status, due time.Time) int64 {
		doc, err := store.CreateDocument(ctx, document.Document{
			CompanyID: 1, ClientID: 1, DocumentType: typ, DocumentNumber: number,
			DocumentDate: yesterday.AddDate(0, -1, 0), DueDate: &due, Status: status,
		})
		require.NoError(t, err)
		return doc.ID
	}
	late := create(document.TypeInvoice, "INV-2024-001", document.StatusSent, yesterday)
	dueToday := create(document.TypeInvoice, "INV-2024-002", document.StatusSent, today)
	draft := create(document.TypeInvoice, "INV-2024-003", document.StatusDraft, yesterday)
	quote := create(document.TypeQuote, "QUO-2024-001", document.StatusSent, yesterday)

	m := NewOverdueMarker(store, "", logging.NewDiscard())
	m.now = func() time.Time { return today.Add(15 * time.Hour) }

	assert.EqualValues(t, 1, m.Run(ctx))
	assert.EqualValues(t, 0, m.Run(ctx))

	status := func(id int64) document.Status {
		doc, err := store.GetDocument(ctx, 1, id)
		require.NoError(t, err)
		return doc.Status
	}
	assert.Equal(t, document.StatusOverdue, status(late))
	assert.Equal(t, document.StatusSent, status(dueToday))
	assert.Equal(t, document.StatusDraft, status(draft))
	assert.Equal(t, document.StatusSent, status(quote))
}

func TestRunSurvivesStoreErrors(t *testing.T) {
	m := NewOverdueMarker(failingStore{}, "", logging.NewDiscard())
	assert.Zero(t, m.Run(context.Background()))
}

func TestLifecycle(t *testing.T) {
	m := NewOverdueMarker(memory.New(), "@every 1h", logging.NewDiscard())
	assert.Equal(t, "overdue-marker", m.Name())

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Start(ctx))

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, m.Stop(stopCtx))
	require.NoError(t, m.Stop(stopCtx))
}

func TestInvalidSchedule(t *testing.T) {
	m := NewOverdueMarker(memory.New(), "every tuesday", logging.NewDiscard())
	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every tuesday")
}
