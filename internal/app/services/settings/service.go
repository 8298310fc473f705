package settings

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/app/domain/banking"
	"github.com/bgfactura/invoicing/internal/app/domain/company"
	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/app/services/auth"
	"github.com/bgfactura/invoicing/internal/app/storage"
	"github.com/bgfactura/invoicing/internal/app/validation"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/logging"
)

// NumberPreviewer previews the next number of every document type.
type NumberPreviewer interface {
	NextNumbers(ctx context.Context, companyID int64) map[document.Type]string
}

// Locale holds the system defaults reported with the settings.
type Locale struct {
	Language   string
	Timezone   string
	DateFormat string
}

// Settings is the composite settings envelope.
type Settings struct {
	Company company.Company `json:"company"`
	Invoice InvoiceSettings `json:"invoice"`
	System  SystemSettings  `json:"system"`
}

// InvoiceSettings are the document defaults of a company.
type InvoiceSettings struct {
	NextNumbers    map[document.Type]string `json:"nextNumbers"`
	VATRates       []decimal.Decimal        `json:"vatRates"`
	DefaultVATRate decimal.Decimal          `json:"defaultVatRate"`
	Currency       string                   `json:"currency"`
}

type SystemSettings struct {
	Language   string `json:"language"`
	Timezone   string `json:"timezone"`
	DateFormat string `json:"dateFormat"`
}

// UpdateInput is the settings update payload.
type UpdateInput struct {
	Company *auth.CompanyPatch `json:"company"`
}

// BankAccountInput is the bank account payload.
type BankAccountInput struct {
	AccountName string `json:"accountName" validate:"required"`
	BankName    string `json:"bankName" validate:"required"`
	IBAN        string `json:"iban" validate:"required"`
	BIC         string `json:"bic" validate:"omitempty,min=8,max=11"`
	Currency    string `json:"currency" validate:"omitempty,oneof=BGN EUR USD"`
	IsDefault   bool   `json:"isDefault"`
	IsActive    *bool  `json:"isActive"`
}

// PaymentMethodInput is the payment method payload.
type PaymentMethodInput struct {
	Name      string              `json:"name" validate:"required"`
	Type      banking.PaymentType `json:"type" validate:"required,oneof=cash bank_transfer card other"`
	IsDefault bool                `json:"isDefault"`
	IsActive  *bool               `json:"isActive"`
}

// Service serves company settings, bank accounts and payment methods.
type Service struct {
	companies storage.CompanyStore
	banking   storage.BankingStore
	numbers   NumberPreviewer
	locale    Locale
	log       *logging.Logger
}

// New constructs the settings service. Empty locale fields fall back to the
// Bulgarian defaults.
func New(companies storage.CompanyStore, bankingStore storage.BankingStore, numbers NumberPreviewer, locale Locale, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("settings")
	}
	if locale.Language == "" {
		locale.Language = document.LanguageBG
	}
	if locale.Timezone == "" {
		locale.Timezone = "Europe/Sofia"
	}
	if locale.DateFormat == "" {
		locale.DateFormat = "DD.MM.YYYY"
	}
	return &Service{companies: companies, banking: bankingStore, numbers: numbers, locale: locale, log: log}
}

// Get assembles the settings envelope of a company.
func (s *Service) Get(ctx context.Context, companyID int64) (Settings, error) {
	comp, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return Settings{}, storage.Translate(err, "Company", "")
	}
	rates := validation.VATRates(s.locale.Language)
	return Settings{
		Company: comp,
		Invoice: InvoiceSettings{
			NextNumbers:    s.numbers.NextNumbers(ctx, companyID),
			VATRates:       rates,
			DefaultVATRate: rates[len(rates)-1],
			Currency:       validation.CurrencyForLanguage(s.locale.Language),
		},
		System: SystemSettings{
			Language:   s.locale.Language,
			Timezone:   s.locale.Timezone,
			DateFormat: s.locale.DateFormat,
		},
	}, nil
}

// Update changes the company record and returns the refreshed settings.
func (s *Service) Update(ctx context.Context, companyID int64, in UpdateInput) (Settings, error) {
	if in.Company != nil {
		if err := validation.Struct(in.Company); err != nil {
			return Settings{}, err
		}
		if in.Company.IBAN != nil && strings.TrimSpace(*in.Company.IBAN) != "" {
			iban := validation.NormalizeIBAN(*in.Company.IBAN)
			if !validation.ValidBulgarianIBAN(iban) {
				return Settings{}, apperrors.Validation("Validation failed").WithDetails("company.iban", "must be a valid Bulgarian IBAN")
			}
			in.Company.IBAN = &iban
		}
		comp, err := s.companies.GetCompany(ctx, companyID)
		if err != nil {
			return Settings{}, storage.Translate(err, "Company", "")
		}
		in.Company.Apply(&comp)
		if _, err := s.companies.UpdateCompany(ctx, comp); err != nil {
			return Settings{}, storage.Translate(err, "Company", "Company with this EIK already exists")
		}
		s.log.WithField("company_id", companyID).Info("company settings updated")
	}
	return s.Get(ctx, companyID)
}

func (s *Service) BankAccounts(ctx context.Context, companyID int64) ([]banking.BankAccount, error) {
	list, err := s.banking.ListBankAccounts(ctx, companyID)
	if err != nil {
		return nil, storage.Translate(err, "Bank account", "")
	}
	if list == nil {
		list = []banking.BankAccount{}
	}
	return list, nil
}

func (s *Service) CreateBankAccount(ctx context.Context, companyID int64, in BankAccountInput) (banking.BankAccount, error) {
	in, err := in.validated()
	if err != nil {
		return banking.BankAccount{}, err
	}
	acct := banking.BankAccount{CompanyID: companyID, IsActive: true}
	in.apply(&acct)
	acct, err = s.banking.CreateBankAccount(ctx, acct)
	if err != nil {
		return banking.BankAccount{}, storage.Translate(err, "Bank account", "")
	}
	s.log.WithField("company_id", companyID).
		WithField("bank_account_id", acct.ID).
		Info("bank account created")
	return acct, nil
}

func (s *Service) UpdateBankAccount(ctx context.Context, companyID, id int64, in BankAccountInput) (banking.BankAccount, error) {
	in, err := in.validated()
	if err != nil {
		return banking.BankAccount{}, err
	}
	acct, err := s.banking.GetBankAccount(ctx, companyID, id)
	if err != nil {
		return banking.BankAccount{}, storage.Translate(err, "Bank account", "")
	}
	in.apply(&acct)
	acct, err = s.banking.UpdateBankAccount(ctx, acct)
	if err != nil {
		return banking.BankAccount{}, storage.Translate(err, "Bank account", "")
	}
	s.log.WithField("bank_account_id", id).Info("bank account updated")
	return acct, nil
}

func (s *Service) DeleteBankAccount(ctx context.Context, companyID, id int64) error {
	if err := s.banking.DeleteBankAccount(ctx, companyID, id); err != nil {
		return storage.Translate(err, "Bank account", "")
	}
	s.log.WithField("bank_account_id", id).Info("bank account deleted")
	return nil
}

func (s *Service) PaymentMethods(ctx context.Context, companyID int64) ([]banking.PaymentMethod, error) {
	list, err := s.banking.ListPaymentMethods(ctx, companyID)
	if err != nil {
		return nil, storage.Translate(err, "Payment method", "")
	}
	if list == nil {
		list = []banking.PaymentMethod{}
	}
	return list, nil
}

func (s *Service) CreatePaymentMethod(ctx context.Context, companyID int64, in PaymentMethodInput) (banking.PaymentMethod, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return banking.PaymentMethod{}, err
	}
	pm := banking.PaymentMethod{CompanyID: companyID, IsActive: true}
	in.apply(&pm)
	pm, err := s.banking.CreatePaymentMethod(ctx, pm)
	if err != nil {
		return banking.PaymentMethod{}, storage.Translate(err, "Payment method", "")
	}
	s.log.WithField("company_id", companyID).
		WithField("payment_method_id", pm.ID).
		Info("payment method created")
	return pm, nil
}

func (s *Service) UpdatePaymentMethod(ctx context.Context, companyID, id int64, in PaymentMethodInput) (banking.PaymentMethod, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return banking.PaymentMethod{}, err
	}
	pm, err := s.banking.GetPaymentMethod(ctx, companyID, id)
	if err != nil {
		return banking.PaymentMethod{}, storage.Translate(err, "Payment method", "")
	}
	in.apply(&pm)
	pm, err = s.banking.UpdatePaymentMethod(ctx, pm)
	if err != nil {
		return banking.PaymentMethod{}, storage.Translate(err, "Payment method", "")
	}
	s.log.WithField("payment_method_id", id).Info("payment method updated")
	return pm, nil
}

func (s *Service) DeletePaymentMethod(ctx context.Context, companyID, id int64) error {
	if err := s.banking.DeletePaymentMethod(ctx, companyID, id); err != nil {
		return storage.Translate(err, "Payment method", "")
	}
	s.log.WithField("payment_method_id", id).Info("payment method deleted")
	return nil
}

func (in BankAccountInput) validated() (BankAccountInput, error) {
	in.AccountName = strings.TrimSpace(in.AccountName)
	in.BankName = strings.TrimSpace(in.BankName)
	in.IBAN = validation.NormalizeIBAN(in.IBAN)
	in.BIC = strings.ToUpper(strings.TrimSpace(in.BIC))
	if err := validation.Struct(in); err != nil {
		return in, err
	}
	if !validation.ValidBulgarianIBAN(in.IBAN) {
		return in, apperrors.Validation("Validation failed").WithDetails("iban", "must be a valid Bulgarian IBAN")
	}
	return in, nil
}

func (in BankAccountInput) apply(acct *banking.BankAccount) {
	acct.AccountName = in.AccountName
	acct.BankName = in.BankName
	acct.IBAN = in.IBAN
	acct.BIC = in.BIC
	acct.Currency = in.Currency
	if acct.Currency == "" {
		acct.Currency = document.CurrencyBGN
	}
	acct.IsDefault = in.IsDefault
	if in.IsActive != nil {
		acct.IsActive = *in.IsActive
	}
}

func (in PaymentMethodInput) apply(pm *banking.PaymentMethod) {
	pm.Name = in.Name
	pm.Type = in.Type
	pm.IsDefault = in.IsDefault
	if in.IsActive != nil {
		pm.IsActive = *in.IsActive
	}
}
