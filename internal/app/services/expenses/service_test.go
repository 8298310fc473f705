package expenses

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bgfactura/invoicing/internal/app/domain/calendar"
	"github.com/bgfactura/invoicing/internal/app/domain/client"
	"github.com/bgfactura/invoicing/internal/app/domain/expense"
	"github.com/bgfactura/invoicing/internal/app/storage/memory"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/logging"
)

const companyID = int64(1)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func setup(t *testing.T) (*Service, *memory.Store, client.Client) {
	t.Helper()
	store := memory.New()
	supplier, err := store.CreateClient(context.Background(), client.Client{
		CompanyID: companyID, Name: "Toplofikacia", EIK: "831609046", Address: "ul. Yastrebets 23", City: "Sofia", IsActive: true,
	})
	require.NoError(t, err)
	svc := New(store, store, logging.NewDiscard())
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC) }
	return svc, store, supplier
}

func TestCreateDefaults(t *testing.T) {
	svc, _, supplier := setup(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, companyID, Input{
		Description: " Heating ",
		Amount:      *dec("100"),
		VATAmount:   dec("20"),
		SupplierID:  &supplier.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Heating", e.Description)
	assert.Equal(t, "120", e.Total.String())
	assert.Equal(t, expense.StatusPending, e.Status)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), e.ExpenseDate)
	require.NotNil(t, e.Supplier)
	assert.Equal(t, "Toplofikacia", e.Supplier.Name)

	explicit, err := svc.Create(ctx, companyID, Input{Description: "Rent", Amount: *dec("500"), Total: dec("480"), Status: expense.StatusPaid})
	require.NoError(t, err)
	assert.Equal(t, "480", explicit.Total.String())
	assert.True(t, explicit.VATAmount.IsZero())
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, companyID, Input{Amount: *dec("-1"), Status: "lost"})
	se := apperrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Contains(t, se.Details, "description")
	assert.Contains(t, se.Details, "amount")
	assert.Contains(t, se.Details, "status")

	foreign := int64(4242)
	_, err = svc.Create(ctx, companyID, Input{Description: "x", Amount: *dec("1"), SupplierID: &foreign})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
	assert.Equal(t, "Supplier not found", err.Error())
}

func TestCreateRoundsToCents(t *testing.T) {
	svc, _, _ := setup(t)
	e, err := svc.Create(context.Background(), companyID, Input{Description: "Fuel", Amount: *dec("10.005"), VATAmount: dec("2.0049")})
	require.NoError(t, err)
	assert.Equal(t, "10.01", e.Amount.String())
	assert.Equal(t, "2", e.VATAmount.String())
	assert.Equal(t, "12.01", e.Total.String())

	_, err = svc.Create(context.Background(), companyID, Input{Description: "Fuel", Amount: *dec("-0.0000000000000001")})
	se := apperrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Contains(t, se.Details, "amount")
}

func TestSupplierMustBelongToCompany(t *testing.T) {
	svc, _, supplier := setup(t)
	_, err := svc.Create(context.Background(), companyID+1, Input{Description: "x", Amount: *dec("1"), SupplierID: &supplier.ID})
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
}

func TestListOrderedByDate(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	empty, err := svc.List(ctx, companyID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, day := range []int{3, 20, 11} {
		_, err := svc.Create(ctx, companyID, Input{
			Description: "Fuel",
			Amount:      *dec("10"),
			ExpenseDate: calendar.NewDate(time.Date(2024, 4, day, 0, 0, 0, 0, time.UTC)),
		})
		require.NoError(t, err)
	}
	list, err := svc.List(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 20, list[0].ExpenseDate.Day())
	assert.Equal(t, 11, list[1].ExpenseDate.Day())
	assert.Equal(t, 3, list[2].ExpenseDate.Day())
}

func TestPartialUpdate(t *testing.T) {
	svc, _, supplier := setup(t)
	ctx := context.Background()
	e, err := svc.Create(ctx, companyID, Input{Description: "Office", Amount: *dec("50"), VATAmount: dec("10"), Category: "rent"})
	require.NoError(t, err)

	status := expense.StatusPaid
	updated, err := svc.Update(ctx, companyID, e.ID, Patch{Status: &status, SupplierID: &supplier.ID})
	require.NoError(t, err)
	assert.Equal(t, expense.StatusPaid, updated.Status)
	assert.Equal(t, "Office", updated.Description)
	assert.Equal(t, "rent", updated.Category)
	assert.Equal(t, "60", updated.Total.String())
	require.NotNil(t, updated.SupplierID)

	updated, err = svc.Update(ctx, companyID, e.ID, Patch{Amount: dec("70")})
	require.NoError(t, err)
	assert.Equal(t, "80", updated.Total.String())

	updated, err = svc.Update(ctx, companyID, e.ID, Patch{Total: dec("75")})
	require.NoError(t, err)
	assert.Equal(t, "75", updated.Total.String())

	none := int64(0)
	updated, err = svc.Update(ctx, companyID, e.ID, Patch{SupplierID: &none})
	require.NoError(t, err)
	assert.Nil(t, updated.SupplierID)

	blank := "  "
	_, err = svc.Update(ctx, companyID, e.ID, Patch{Description: &blank})
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))

	_, err = svc.Update(ctx, companyID+1, e.ID, Patch{})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetAndDelete(t *testing.T) {
	svc, _, supplier := setup(t)
	ctx := context.Background()
	e, err := svc.Create(ctx, companyID, Input{Description: "Power", Amount: *dec("30"), SupplierID: &supplier.ID})
	require.NoError(t, err)

	got, err := svc.Get(ctx, companyID, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Supplier)
	assert.Equal(t, "ul. Yastrebets 23", got.Supplier.Address)

	_, err = svc.Get(ctx, companyID+1, e.ID)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, companyID, e.ID))
	assert.True(t, apperrors.IsNotFound(svc.Delete(ctx, companyID, e.ID)))
}

func TestExport(t *testing.T) {
	svc, _, supplier := setup(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, companyID, Input{Description: "Power", Amount: *dec("30"), VATAmount: dec("6"), SupplierID: &supplier.ID})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, companyID, &buf))
	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Expenses")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1], "Power")
	assert.Contains(t, rows[1], "Toplofikacia")
}
