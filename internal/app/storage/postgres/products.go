package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/app/domain/product"
	"github.com/bgfactura/invoicing/internal/app/storage"
)

type productRow struct {
	ID          int64           `db:"id"`
	CompanyID   int64           `db:"company_id"`
	Code        sql.NullString  `db:"code"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	VATRate     decimal.Decimal `db:"vat_rate"`
	Unit        string          `db:"unit"`
	IsActive    bool            `db:"is_active"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r productRow) model() product.Product {
	return product.Product{
		ID: r.ID, CompanyID: r.CompanyID, Code: r.Code.String, Name: r.Name, Description: r.Description,
		Price: r.Price, VATRate: r.VATRate, Unit: r.Unit, IsActive: r.IsActive,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const productColumns = `id, company_id, code, name, description, price, vat_rate, unit, is_active, created_at, updated_at`

func (s *Store) CreateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO products (company_id, code, name, description, price, vat_rate, unit, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, p.CompanyID, nullString(p.Code), p.Name, p.Description, p.Price, p.VATRate, p.Unit, p.IsActive, now, now).Scan(&p.ID)
	if err != nil {
		return product.Product{}, translate(err)
	}
	return p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET code = $3, name = $4, description = $5, price = $6, vat_rate = $7, unit = $8,
		    is_active = $9, updated_at = $10
		WHERE id = $1 AND company_id = $2
	`, p.ID, p.CompanyID, nullString(p.Code), p.Name, p.Description, p.Price, p.VATRate, p.Unit, p.IsActive, time.Now().UTC())
	if err != nil {
		return product.Product{}, translate(err)
	}
	if err := requireAffected(res); err != nil {
		return product.Product{}, err
	}
	return s.GetProduct(ctx, p.CompanyID, p.ID)
}

func (s *Store) GetProduct(ctx context.Context, companyID, id int64) (product.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return product.Product{}, translate(err)
	}
	return row.model(), nil
}

func (s *Store) ListProducts(ctx context.Context, companyID int64, opts storage.ListOptions) ([]product.Product, int, error) {
	opts = opts.Normalize()
	where := `WHERE company_id = $1
		AND ($2 = '' OR name ILIKE $3 OR code ILIKE $3 OR description ILIKE $3)
		AND ($4::boolean IS NULL OR is_active = $4)`
	args := []interface{}{companyID, opts.Search, likePattern(opts.Search), opts.Active}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM products `+where, args...); err != nil {
		return nil, 0, translate(err)
	}

	var rows []productRow
	query := `SELECT ` + productColumns + ` FROM products ` + where + ` ORDER BY name ASC LIMIT $5 OFFSET $6`
	if err := s.db.SelectContext(ctx, &rows, query, append(args, opts.Limit, opts.Offset())...); err != nil {
		return nil, 0, translate(err)
	}
	out := make([]product.Product, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, total, nil
}

func (s *Store) ListActiveProducts(ctx context.Context, companyID int64) ([]product.Product, error) {
	var rows []productRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+productColumns+` FROM products
		WHERE company_id = $1 AND is_active
		ORDER BY name ASC
	`, companyID)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]product.Product, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

func (s *Store) DeleteProduct(ctx context.Context, companyID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

func (s *Store) ProductCodeExists(ctx context.Context, companyID int64, code string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM products WHERE company_id = $1 AND code = $2 AND id <> $3)
	`, companyID, code, excludeID)
	return exists, translate(err)
}

func (s *Store) CountProductUsage(ctx context.Context, companyID, productID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM document_items di
		JOIN documents d ON d.id = di.document_id
		WHERE d.company_id = $1 AND di.product_id = $2
	`, companyID, productID)
	return count, translate(err)
}
