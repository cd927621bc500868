package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkworks/inkworks/internal/platform/db"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, name, pricing_mode, price, cost, stock, min_stock, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.PricingMode, &p.Price, &p.Cost, &p.Stock, &p.MinStock, &p.CreatedAt)
	return p, err
}

// ListProducts returns products matching the filter ordered by name.
func (r *Repository) ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')`, filter.Search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
ORDER BY name, id LIMIT $2 OFFSET $3`, filter.Search, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// GetProduct fetches a product by id.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return Product{}, db.NotFound(err, ErrProductNotFound)
	}
	return p, nil
}

// CreateProduct inserts a product.
func (r *Repository) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `INSERT INTO products (name, pricing_mode, price, cost, stock, min_stock)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+productColumns,
		in.Name, in.PricingMode, in.Price, in.Cost, in.Stock, in.MinStock))
}

// UpdateProduct updates everything but stock.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `UPDATE products SET name = $2, pricing_mode = $3, price = $4, cost = $5, min_stock = $6
WHERE id = $1 RETURNING `+productColumns,
		id, in.Name, in.PricingMode, in.Price, in.Cost, in.MinStock))
	if err != nil {
		return Product{}, db.NotFound(err, ErrProductNotFound)
	}
	return p, nil
}

// DeleteProduct removes a product unless lines reference it.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrProductInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

const supplierColumns = `id, name, cnpj, contact_name, phone, email, services, created_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.CNPJ, &s.ContactName, &s.Phone, &s.Email, &s.Services, &s.CreatedAt)
	return s, err
}

const supplierSearch = `($1 = '' OR name ILIKE '%' || $1 || '%' OR contact_name ILIKE '%' || $1 || '%'
OR services ILIKE '%' || $1 || '%' OR COALESCE(cnpj, '') ILIKE '%' || $1 || '%')`

// ListSuppliers returns suppliers ordered by name.
func (r *Repository) ListSuppliers(ctx context.Context, filter ListFilter) ([]Supplier, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers WHERE `+supplierSearch, filter.Search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE `+supplierSearch+`
ORDER BY name, id LIMIT $2 OFFSET $3`, filter.Search, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// GetSupplier fetches a supplier by id.
func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
	if err != nil {
		return Supplier{}, db.NotFound(err, ErrSupplierNotFound)
	}
	return s, nil
}

// CreateSupplier inserts a supplier.
func (r *Repository) CreateSupplier(ctx context.Context, in SupplierInput) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `INSERT INTO suppliers (name, cnpj, contact_name, phone, email, services)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+supplierColumns,
		in.Name, in.CNPJ, in.ContactName, in.Phone, in.Email, in.Services))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Supplier{}, ErrDuplicateCNPJ
		}
		return Supplier{}, err
	}
	return s, nil
}

// UpdateSupplier updates a supplier.
func (r *Repository) UpdateSupplier(ctx context.Context, id int64, in SupplierInput) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `UPDATE suppliers SET name = $2, cnpj = $3, contact_name = $4, phone = $5, email = $6, services = $7
WHERE id = $1 RETURNING `+supplierColumns,
		id, in.Name, in.CNPJ, in.ContactName, in.Phone, in.Email, in.Services))
	switch {
	case err == nil:
		return s, nil
	case db.IsUniqueViolation(err):
		return Supplier{}, ErrDuplicateCNPJ
	case errors.Is(err, pgx.ErrNoRows):
		return Supplier{}, ErrSupplierNotFound
	default:
		return Supplier{}, err
	}
}

// DeleteSupplier removes a supplier without recorded costs.
func (r *Repository) DeleteSupplier(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrSupplierInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSupplierNotFound
	}
	return nil
}
