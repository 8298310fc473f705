package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bgfactura/invoicing/internal/app/domain/company"
	"github.com/bgfactura/invoicing/internal/app/domain/user"
)

type userRow struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) model() user.User {
	return user.User{
		ID: r.ID, Email: r.Email, PasswordHash: r.PasswordHash,
		FirstName: r.FirstName, LastName: r.LastName, IsActive: r.IsActive,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type companyRow struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Name      string    `db:"name"`
	EIK       string    `db:"eik"`
	VATNumber string    `db:"vat_number"`
	Address   string    `db:"address"`
	City      string    `db:"city"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	BankName  string    `db:"bank_name"`
	IBAN      string    `db:"iban"`
	BIC       string    `db:"bic"`
	Logo      string    `db:"logo"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r companyRow) model() company.Company {
	return company.Company{
		ID: r.ID, UserID: r.UserID, Name: r.Name, EIK: r.EIK, VATNumber: r.VATNumber,
		Address: r.Address, City: r.City, Email: r.Email, Phone: r.Phone,
		BankName: r.BankName, IBAN: r.IBAN, BIC: r.BIC, Logo: r.Logo,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const userColumns = `id, email, password_hash, first_name, last_name, is_active, created_at, updated_at`

const companyColumns = `id, user_id, name, eik, vat_number, address, city, email, phone, bank_name, iban, bic, logo, created_at, updated_at`

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUserWithCompany(ctx context.Context, usr user.User, comp *company.Company) (user.User, *company.Company, error) {
	now := time.Now().UTC()
	usr.Email = strings.ToLower(strings.TrimSpace(usr.Email))
	usr.CreatedAt = now
	usr.UpdatedAt = now

	var created *company.Company
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO users (email, password_hash, first_name, last_name, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, usr.Email, usr.PasswordHash, usr.FirstName, usr.LastName, usr.IsActive, now, now).Scan(&usr.ID); err != nil {
			return translate(err)
		}
		if comp == nil {
			return nil
		}
		c := *comp
		c.UserID = usr.ID
		c.CreatedAt = now
		c.UpdatedAt = now
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO companies (user_id, name, eik, vat_number, address, city, email, phone, bank_name, iban, bic, logo, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id
		`, c.UserID, c.Name, c.EIK, c.VATNumber, c.Address, c.City, c.Email, c.Phone,
			c.BankName, c.IBAN, c.BIC, c.Logo, now, now).Scan(&c.ID); err != nil {
			return translate(err)
		}
		created = &c
		return nil
	})
	if err != nil {
		return user.User{}, nil, err
	}
	return usr, created, nil
}

func (s *Store) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, is_active = $4,
		    password_hash = COALESCE(NULLIF($5, ''), password_hash), updated_at = $6
		WHERE id = $1
	`, usr.ID, usr.FirstName, usr.LastName, usr.IsActive, usr.PasswordHash, usr.UpdatedAt)
	if err != nil {
		return user.User{}, translate(err)
	}
	if err := requireAffected(res); err != nil {
		return user.User{}, err
	}
	return s.GetUser(ctx, usr.ID)
}

func (s *Store) GetUser(ctx context.Context, id int64) (user.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return user.User{}, translate(err)
	}
	return row.model(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email)); err != nil {
		return user.User{}, translate(err)
	}
	return row.model(), nil
}

// --- CompanyStore ------------------------------------------------------------

func (s *Store) UpdateCompany(ctx context.Context, comp company.Company) (company.Company, error) {
	comp.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE companies
		SET name = $2, eik = $3, vat_number = $4, address = $5, city = $6, email = $7, phone = $8,
		    bank_name = $9, iban = $10, bic = $11, logo = $12, updated_at = $13
		WHERE id = $1
	`, comp.ID, comp.Name, comp.EIK, comp.VATNumber, comp.Address, comp.City, comp.Email, comp.Phone,
		comp.BankName, comp.IBAN, comp.BIC, comp.Logo, comp.UpdatedAt)
	if err != nil {
		return company.Company{}, translate(err)
	}
	if err := requireAffected(res); err != nil {
		return company.Company{}, err
	}
	return s.GetCompany(ctx, comp.ID)
}

func (s *Store) GetCompany(ctx context.Context, id int64) (company.Company, error) {
	var row companyRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id); err != nil {
		return company.Company{}, translate(err)
	}
	return row.model(), nil
}

func (s *Store) GetCompanyByUser(ctx context.Context, userID int64) (company.Company, error) {
	var row companyRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+companyColumns+` FROM companies WHERE user_id = $1`, userID); err != nil {
		return company.Company{}, translate(err)
	}
	return row.model(), nil
}
