package products

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/app/domain/product"
	"github.com/bgfactura/invoicing/internal/app/storage"
	"github.com/bgfactura/invoicing/internal/app/storage/memory"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/logging"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := New(memory.New(), logging.NewDiscard())
	p, err := svc.Create(context.Background(), 1, Input{Name: " Consulting hour "})
	require.NoError(t, err)
	assert.Equal(t, "Consulting hour", p.Name)
	assert.True(t, p.Price.IsZero())
	assert.True(t, p.VATRate.Equal(product.DefaultVATRate))
	assert.Equal(t, product.DefaultUnit, p.Unit)
	assert.True(t, p.IsActive)
}

func TestCreateValidation(t *testing.T) {
	svc := New(memory.New(), logging.NewDiscard())
	_, err := svc.Create(context.Background(), 1, Input{Price: dec("-1"), VATRate: dec("120")})
	se := apperrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Contains(t, se.Details, "name")
	assert.Contains(t, se.Details, "price")
	assert.Contains(t, se.Details, "vatRate")
}

func TestCodeUniquePerCompany(t *testing.T) {
	svc := New(memory.New(), logging.NewDiscard())
	ctx := context.Background()

	first, err := svc.Create(ctx, 1, Input{Code: "C-1", Name: "One"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, Input{Code: "C-1", Name: "Two"})
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
	_, err = svc.Create(ctx, 1, Input{Name: "No code"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, Input{Name: "No code either"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, 1, first.ID, Input{Code: "C-1", Name: "One renamed", Price: dec("12.50")})
	require.NoError(t, err)
	assert.Equal(t, "12.5", updated.Price.String())

	page, err := svc.List(ctx, 1, storage.ListOptions{Search: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
}

func TestDeleteDeactivatesUsedProduct(t *testing.T) {
	store := memory.New()
	svc := New(store, logging.NewDiscard())
	ctx := context.Background()

	used, err := svc.Create(ctx, 1, Input{Name: "Used", Price: dec("10")})
	require.NoError(t, err)
	_, err = store.CreateDocument(ctx, document.Document{
		CompanyID: 1, ClientID: 1, DocumentType: document.TypeInvoice, DocumentNumber: "INV-2024-001",
		DocumentDate: time.Now(), Status: document.StatusDraft,
		Items: []document.Item{{ProductID: &used.ID, Description: "x", Quantity: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)

	res, err := svc.Delete(ctx, 1, used.ID)
	require.NoError(t, err)
	assert.True(t, res.Deactivated)

	active, err := svc.Active(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = svc.Delete(ctx, 2, used.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
