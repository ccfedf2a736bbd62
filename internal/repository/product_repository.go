package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/delivergaz-api/internal/domain"
)

// ProductRepository provides catalog lookups.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetPriceAndAvailability(ctx context.Context, id string) (domain.PriceQuote, error)
	List(ctx context.Context, category string, limit, offset int) ([]domain.Product, error)
}

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a Postgres-backed implementation.
func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

const productColumns = `id, name, description, price, currency, category, in_stock, created_at, updated_at`

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const query = `SELECT ` + productColumns + ` FROM products WHERE id=$1`
	return scanProduct(r.pool.QueryRow(ctx, query, id))
}

func (r *productRepository) GetPriceAndAvailability(ctx context.Context, id string) (domain.PriceQuote, error) {
	const query = `SELECT price, in_stock FROM products WHERE id=$1`

	var quote domain.PriceQuote
	if err := r.pool.QueryRow(ctx, query, id).Scan(&quote.Price, &quote.Available); err != nil {
		return domain.PriceQuote{}, err
	}
	return quote, nil
}

func (r *productRepository) List(ctx context.Context, category string, limit, offset int) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	if category != "" {
		query += ` WHERE category=$1 ORDER BY name LIMIT $2 OFFSET $3`
		args = append(args, category, limit, offset)
	} else {
		query += ` ORDER BY name LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Currency,
		&p.Category,
		&p.InStock,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
