package settings

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgfactura/invoicing/internal/app/domain/banking"
	"github.com/bgfactura/invoicing/internal/app/domain/company"
	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/app/domain/user"
	"github.com/bgfactura/invoicing/internal/app/services/auth"
	"github.com/bgfactura/invoicing/internal/app/storage/memory"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/logging"
)

const validIBAN = "BG80BNBG96611020345678"

type staticNumbers map[document.Type]string

func (n staticNumbers) NextNumbers(context.Context, int64) map[document.Type]string { return n }

func setup(t *testing.T, locale Locale) (*Service, *memory.Store, int64) {
	t.Helper()
	store := memory.New()
	_, comp, err := store.CreateUserWithCompany(context.Background(), user.User{Email: "a@b.bg", IsActive: true},
		&company.Company{Name: "Alfa OOD", EIK: "831641791", City: "Plovdiv"})
	require.NoError(t, err)
	numbers := staticNumbers{document.TypeInvoice: "INV-2024-007"}
	return New(store, store, numbers, locale, logging.NewDiscard()), store, comp.ID
}

func strPtr(s string) *string { return &s }

func TestGetDefaults(t *testing.T) {
	svc, _, companyID := setup(t, Locale{})

	got, err := svc.Get(context.Background(), companyID)
	require.NoError(t, err)
	assert.Equal(t, "Alfa OOD", got.Company.Name)
	assert.Equal(t, "INV-2024-007", got.Invoice.NextNumbers[document.TypeInvoice])
	require.Len(t, got.Invoice.VATRates, 3)
	assert.Equal(t, "9", got.Invoice.VATRates[1].String())
	assert.Equal(t, "20", got.Invoice.DefaultVATRate.String())
	assert.Equal(t, "BGN", got.Invoice.Currency)
	assert.Equal(t, SystemSettings{Language: "bg", Timezone: "Europe/Sofia", DateFormat: "DD.MM.YYYY"}, got.System)

	_, err = svc.Get(context.Background(), companyID+50)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetFollowsLanguage(t *testing.T) {
	svc, _, companyID := setup(t, Locale{Language: "es", Timezone: "Europe/Madrid", DateFormat: "DD/MM/YYYY"})

	got, err := svc.Get(context.Background(), companyID)
	require.NoError(t, err)
	assert.Equal(t, "EUR", got.Invoice.Currency)
	assert.Equal(t, "21", got.Invoice.DefaultVATRate.String())
	assert.Equal(t, "Europe/Madrid", got.System.Timezone)
}

func TestUpdateCompany(t *testing.T) {
	svc, _, companyID := setup(t, Locale{})
	ctx := context.Background()

	got, err := svc.Update(ctx, companyID, UpdateInput{Company: &auth.CompanyPatch{
		Address:  strPtr("bul. Bulgaria 1"),
		IBAN:     strPtr("bg80 bnbg 9661 1020 3456 78"),
		BankName: strPtr("BNB"),
	}})
	require.NoError(t, err)
	assert.Equal(t, "bul. Bulgaria 1", got.Company.Address)
	assert.Equal(t, validIBAN, got.Company.IBAN)
	assert.Equal(t, "Alfa OOD", got.Company.Name)

	_, err = svc.Update(ctx, companyID, UpdateInput{Company: &auth.CompanyPatch{IBAN: strPtr("BG00XXXX")}})
	se := apperrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Contains(t, se.Details, "company.iban")

	_, err = svc.Update(ctx, companyID, UpdateInput{Company: &auth.CompanyPatch{EIK: strPtr("123")}})
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))

	unchanged, err := svc.Update(ctx, companyID, UpdateInput{})
	require.NoError(t, err)
	assert.Equal(t, "bul. Bulgaria 1", unchanged.Company.Address)
}

func TestBankAccounts(t *testing.T) {
	svc, _, companyID := setup(t, Locale{})
	ctx := context.Background()

	empty, err := svc.BankAccounts(ctx, companyID)
	require.NoError(t, err)
	assert.NotNil(t, empty)

	first, err := svc.CreateBankAccount(ctx, companyID, BankAccountInput{
		AccountName: "Main", BankName: "BNB", IBAN: "bg80bnbg96611020345678", IsDefault: true,
	})
	require.NoError(t, err)
	assert.Equal(t, validIBAN, first.IBAN)
	assert.Equal(t, "BGN", first.Currency)
	assert.True(t, first.IsActive)

	second, err := svc.CreateBankAccount(ctx, companyID, BankAccountInput{
		AccountName: "EUR", BankName: "UBB", IBAN: validIBAN, BIC: "ubbsbgsf", Currency: "EUR", IsDefault: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "UBBSBGSF", second.BIC)

	list, err := svc.BankAccounts(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.False(t, list[1].IsDefault)

	_, err = svc.CreateBankAccount(ctx, companyID, BankAccountInput{AccountName: "x", BankName: "y", IBAN: "DE89370400440532013000"})
	se := apperrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Contains(t, se.Details, "iban")

	inactive := false
	updated, err := svc.UpdateBankAccount(ctx, companyID, first.ID, BankAccountInput{
		AccountName: "Main", BankName: "BNB", IBAN: validIBAN, IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = svc.UpdateBankAccount(ctx, companyID+1, first.ID, BankAccountInput{AccountName: "a", BankName: "b", IBAN: validIBAN})
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, svc.DeleteBankAccount(ctx, companyID, first.ID))
	assert.True(t, apperrors.IsNotFound(svc.DeleteBankAccount(ctx, companyID, first.ID)))
}

func TestPaymentMethods(t *testing.T) {
	svc, _, companyID := setup(t, Locale{})
	ctx := context.Background()

	cash, err := svc.CreatePaymentMethod(ctx, companyID, PaymentMethodInput{Name: " Cash ", Type: banking.PaymentCash, IsDefault: true})
	require.NoError(t, err)
	assert.Equal(t, "Cash", cash.Name)
	assert.True(t, cash.IsActive)

	_, err = svc.CreatePaymentMethod(ctx, companyID, PaymentMethodInput{Name: "Crypto", Type: "bitcoin"})
	se := apperrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Contains(t, se.Details, "type")

	transfer, err := svc.CreatePaymentMethod(ctx, companyID, PaymentMethodInput{Name: "Transfer", Type: banking.PaymentBankTransfer, IsDefault: true})
	require.NoError(t, err)

	list, err := svc.PaymentMethods(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, transfer.ID, list[0].ID)

	updated, err := svc.UpdatePaymentMethod(ctx, companyID, cash.ID, PaymentMethodInput{Name: "Cash desk", Type: banking.PaymentCash})
	require.NoError(t, err)
	assert.Equal(t, "Cash desk", updated.Name)

	require.NoError(t, svc.DeletePaymentMethod(ctx, companyID, cash.ID))
	_, err = svc.UpdatePaymentMethod(ctx, companyID, cash.ID, PaymentMethodInput{Name: "x", Type: banking.PaymentCard})
	assert.True(t, apperrors.IsNotFound(err))
}
