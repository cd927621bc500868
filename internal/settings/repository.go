package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository stores the profile in company_settings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `trade_name, legal_name, cnpj, email, whatsapp, instagram, website, postal_code, street,
number, district, complement, city, state, logo_large_url, logo_small_url, logo_document_url, updated_at`

func scan(row pgx.Row) (Company, error) {
	var c Company
	err := row.Scan(&c.TradeName, &c.LegalName, &c.CNPJ, &c.Email, &c.WhatsApp, &c.Instagram, &c.Website,
		&c.PostalCode, &c.Street, &c.Number, &c.District, &c.Complement, &c.City, &c.State,
		&c.LogoLargeURL, &c.LogoSmallURL, &c.LogoDocumentURL, &c.UpdatedAt)
	return c, err
}

// Load reads the singleton row.
func (r *Repository) Load(ctx context.Context) (Company, error) {
	c, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM company_settings WHERE id = 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrNotConfigured
	}
	return c, err
}

// Save upserts the singleton row.
func (r *Repository) Save(ctx context.Context, c Company) (Company, error) {
	return scan(r.pool.QueryRow(ctx, `INSERT INTO company_settings (id, trade_name, legal_name, cnpj, email, whatsapp,
instagram, website, postal_code, street, number, district, complement, city, state, logo_large_url, logo_small_url,
logo_document_url, updated_at)
VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
ON CONFLICT (id) DO UPDATE SET
    trade_name = EXCLUDED.trade_name, legal_name = EXCLUDED.legal_name, cnpj = EXCLUDED.cnpj,
    email = EXCLUDED.email, whatsapp = EXCLUDED.whatsapp, instagram = EXCLUDED.instagram,
    website = EXCLUDED.website, postal_code = EXCLUDED.postal_code, street = EXCLUDED.street,
    number = EXCLUDED.number, district = EXCLUDED.district, complement = EXCLUDED.complement,
    city = EXCLUDED.city, state = EXCLUDED.state, logo_large_url = EXCLUDED.logo_large_url,
    logo_small_url = EXCLUDED.logo_small_url, logo_document_url = EXCLUDED.logo_document_url,
    updated_at = NOW()
RETURNING `+columns,
		c.TradeName, c.LegalName, c.CNPJ, c.Email, c.WhatsApp, c.Instagram, c.Website, c.PostalCode, c.Street,
		c.Number, c.District, c.Complement, c.City, c.State, c.LogoLargeURL, c.LogoSmallURL, c.LogoDocumentURL))
}
