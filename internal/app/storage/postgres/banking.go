package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bgfactura/invoicing/internal/app/domain/banking"
)

type bankAccountRow struct {
	ID          int64     `db:"id"`
	CompanyID   int64     `db:"company_id"`
	AccountName string    `db:"account_name"`
	BankName    string    `db:"bank_name"`
	IBAN        string    `db:"iban"`
	BIC         string    `db:"bic"`
	Currency    string    `db:"currency"`
	IsDefault   bool      `db:"is_default"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r bankAccountRow) model() banking.BankAccount {
	return banking.BankAccount{
		ID: r.ID, CompanyID: r.CompanyID, AccountName: r.AccountName, BankName: r.BankName,
		IBAN: r.IBAN, BIC: r.BIC, Currency: r.Currency, IsDefault: r.IsDefault, IsActive: r.IsActive,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type paymentMethodRow struct {
	ID        int64     `db:"id"`
	CompanyID int64     `db:"company_id"`
	Name      string    `db:"name"`
	Type      string    `db:"type"`
	IsDefault bool      `db:"is_default"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r paymentMethodRow) model() banking.PaymentMethod {
	return banking.PaymentMethod{
		ID: r.ID, CompanyID: r.CompanyID, Name: r.Name, Type: banking.PaymentType(r.Type),
		IsDefault: r.IsDefault, IsActive: r.IsActive, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const bankAccountColumns = `id, company_id, account_name, bank_name, iban, bic, currency, is_default, is_active, created_at, updated_at`

const paymentMethodColumns = `id, company_id, name, type, is_default, is_active, created_at, updated_at`

// --- bank accounts -------------------------------------------------------------

func (s *Store) CreateBankAccount(ctx context.Context, acct banking.BankAccount) (banking.BankAccount, error) {
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if acct.IsDefault {
			if _, err := tx.ExecContext(ctx, `UPDATE bank_accounts SET is_default = FALSE WHERE company_id = $1 AND is_default`, acct.CompanyID); err != nil {
				return translate(err)
			}
		}
		return translate(tx.QueryRowxContext(ctx, `
			INSERT INTO bank_accounts (company_id, account_name, bank_name, iban, bic, currency, is_default, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`, acct.CompanyID, acct.AccountName, acct.BankName, acct.IBAN, acct.BIC, acct.Currency,
			acct.IsDefault, acct.IsActive, now, now).Scan(&acct.ID))
	})
	if err != nil {
		return banking.BankAccount{}, err
	}
	return acct, nil
}

func (s *Store) UpdateBankAccount(ctx context.Context, acct banking.BankAccount) (banking.BankAccount, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if acct.IsDefault {
			if _, err := tx.ExecContext(ctx, `UPDATE bank_accounts SET is_default = FALSE WHERE company_id = $1 AND id <> $2 AND is_default`, acct.CompanyID, acct.ID); err != nil {
				return translate(err)
			}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE bank_accounts
			SET account_name = $3, bank_name = $4, iban = $5, bic = $6, currency = $7, is_default = $8,
			    is_active = $9, updated_at = $10
			WHERE id = $1 AND company_id = $2
		`, acct.ID, acct.CompanyID, acct.AccountName, acct.BankName, acct.IBAN, acct.BIC, acct.Currency,
			acct.IsDefault, acct.IsActive, time.Now().UTC())
		if err != nil {
			return translate(err)
		}
		return requireAffected(res)
	})
	if err != nil {
		return banking.BankAccount{}, err
	}
	return s.GetBankAccount(ctx, acct.CompanyID, acct.ID)
}

func (s *Store) GetBankAccount(ctx context.Context, companyID, id int64) (banking.BankAccount, error) {
	var row bankAccountRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+bankAccountColumns+` FROM bank_accounts WHERE id = $1 AND company_id = $2`, id, companyID); err != nil {
		return banking.BankAccount{}, translate(err)
	}
	return row.model(), nil
}

func (s *Store) ListBankAccounts(ctx context.Context, companyID int64) ([]banking.BankAccount, error) {
	var rows []bankAccountRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+bankAccountColumns+` FROM bank_accounts WHERE company_id = $1 ORDER BY is_default DESC, id`, companyID); err != nil {
		return nil, translate(err)
	}
	out := make([]banking.BankAccount, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

func (s *Store) DeleteBankAccount(ctx context.Context, companyID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bank_accounts WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

// --- payment methods -----------------------------------------------------------

func (s *Store) CreatePaymentMethod(ctx context.Context, pm banking.PaymentMethod) (banking.PaymentMethod, error) {
	now := time.Now().UTC()
	pm.CreatedAt = now
	pm.UpdatedAt = now
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if pm.IsDefault {
			if _, err := tx.ExecContext(ctx, `UPDATE payment_methods SET is_default = FALSE WHERE company_id = $1 AND is_default`, pm.CompanyID); err != nil {
				return translate(err)
			}
		}
		return translate(tx.QueryRowxContext(ctx, `
			INSERT INTO payment_methods (company_id, name, type, is_default, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, pm.CompanyID, pm.Name, string(pm.Type), pm.IsDefault, pm.IsActive, now, now).Scan(&pm.ID))
	})
	if err != nil {
		return banking.PaymentMethod{}, err
	}
	return pm, nil
}

func (s *Store) UpdatePaymentMethod(ctx context.Context, pm banking.PaymentMethod) (banking.PaymentMethod, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if pm.IsDefault {
			if _, err := tx.ExecContext(ctx, `UPDATE payment_methods SET is_default = FALSE WHERE company_id = $1 AND id <> $2 AND is_default`, pm.CompanyID, pm.ID); err != nil {
				return translate(err)
			}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE payment_methods
			SET name = $3, type = $4, is_default = $5, is_active = $6, updated_at = $7
			WHERE id = $1 AND company_id = $2
		`, pm.ID, pm.CompanyID, pm.Name, string(pm.Type), pm.IsDefault, pm.IsActive, time.Now().UTC())
		if err != nil {
			return translate(err)
		}
		return requireAffected(res)
	})
	if err != nil {
		return banking.PaymentMethod{}, err
	}
	return s.GetPaymentMethod(ctx, pm.CompanyID, pm.ID)
}

func (s *Store) GetPaymentMethod(ctx context.Context, companyID, id int64) (banking.PaymentMethod, error) {
	var row paymentMethodRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+paymentMethodColumns+` FROM payment_methods WHERE id = $1 AND company_id = $2`, id, companyID); err != nil {
		return banking.PaymentMethod{}, translate(err)
	}
	return row.model(), nil
}

func (s *Store) ListPaymentMethods(ctx context.Context, companyID int64) ([]banking.PaymentMethod, error) {
	var rows []paymentMethodRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+paymentMethodColumns+` FROM payment_methods WHERE company_id = $1 ORDER BY is_default DESC, id`, companyID); err != nil {
		return nil, translate(err)
	}
	out := make([]banking.PaymentMethod, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

func (s *Store) DeletePaymentMethod(ctx context.Context, companyID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM payment_methods WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}
