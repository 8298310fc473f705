package postgres

import (
	"context"
	"time"

	"github.com/bgfactura/invoicing/internal/app/domain/client"
	"github.com/bgfactura/invoicing/internal/app/storage"
)

type clientRow struct {
	ID        int64     `db:"id"`
	CompanyID int64     `db:"company_id"`
	Name      string    `db:"name"`
	EIK       string    `db:"eik"`
	VATNumber string    `db:"vat_number"`
	Address   string    `db:"address"`
	City      string    `db:"city"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r clientRow) model() client.Client {
	return client.Client{
		ID: r.ID, CompanyID: r.CompanyID, Name: r.Name, EIK: r.EIK, VATNumber: r.VATNumber,
		Address: r.Address, City: r.City, Email: r.Email, Phone: r.Phone, IsActive: r.IsActive,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const clientColumns = `id, company_id, name, eik, vat_number, address, city, email, phone, is_active, created_at, updated_at`

func (s *Store) CreateClient(ctx context.Context, c client.Client) (client.Client, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO clients (company_id, name, eik, vat_number, address, city, email, phone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, c.CompanyID, c.Name, c.EIK, c.VATNumber, c.Address, c.City, c.Email, c.Phone, c.IsActive, now, now).Scan(&c.ID)
	if err != nil {
		return client.Client{}, translate(err)
	}
	return c, nil
}

func (s *Store) UpdateClient(ctx context.Context, c client.Client) (client.Client, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE clients
		SET name = $3, eik = $4, vat_number = $5, address = $6, city = $7, email = $8, phone = $9,
		    is_active = $10, updated_at = $11
		WHERE id = $1 AND company_id = $2
	`, c.ID, c.CompanyID, c.Name, c.EIK, c.VATNumber, c.Address, c.City, c.Email, c.Phone, c.IsActive, time.Now().UTC())
	if err != nil {
		return client.Client{}, translate(err)
	}
	if err := requireAffected(res); err != nil {
		return client.Client{}, err
	}
	return s.GetClient(ctx, c.CompanyID, c.ID)
}

func (s *Store) GetClient(ctx context.Context, companyID, id int64) (client.Client, error) {
	var row clientRow
	err := s.db.GetContext(ctx, &row, `SELECT `+clientColumns+` FROM clients WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return client.Client{}, translate(err)
	}
	return row.model(), nil
}

func (s *Store) ListClients(ctx context.Context, companyID int64, opts storage.ListOptions) ([]client.Client, int, error) {
	opts = opts.Normalize()
	where := `WHERE company_id = $1
		AND ($2 = '' OR name ILIKE $3 OR eik ILIKE $3 OR email ILIKE $3)
		AND ($4::boolean IS NULL OR is_active = $4)`
	args := []interface{}{companyID, opts.Search, likePattern(opts.Search), opts.Active}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM clients `+where, args...); err != nil {
		return nil, 0, translate(err)
	}

	var rows []clientRow
	query := `SELECT ` + clientColumns + ` FROM clients ` + where + ` ORDER BY name ASC LIMIT $5 OFFSET $6`
	if err := s.db.SelectContext(ctx, &rows, query, append(args, opts.Limit, opts.Offset())...); err != nil {
		return nil, 0, translate(err)
	}
	out := make([]client.Client, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, total, nil
}

func (s *Store) ListActiveClients(ctx context.Context, companyID int64) ([]client.Client, error) {
	var rows []clientRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+clientColumns+` FROM clients
		WHERE company_id = $1 AND is_active
		ORDER BY name ASC
	`, companyID)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]client.Client, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

func (s *Store) DeleteClient(ctx context.Context, companyID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

func (s *Store) ClientEIKExists(ctx context.Context, companyID int64, eik string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM clients WHERE company_id = $1 AND eik = $2 AND id <> $3)
	`, companyID, eik, excludeID)
	return exists, translate(err)
}

func (s *Store) CountClientDocuments(ctx context.Context, companyID, clientID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT
		  (SELECT COUNT(*) FROM documents WHERE company_id = $1 AND client_id = $2) +
		  (SELECT COUNT(*) FROM expenses WHERE company_id = $1 AND supplier_id = $2)
	`, companyID, clientID)
	return count, translate(err)
}
