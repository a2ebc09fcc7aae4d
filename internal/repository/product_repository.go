package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/jmoiron/sqlx"
)

const productColumns = `id, name, sku, price, discount_price, stock, is_active, images, gender, category, created_at, updated_at`

func (s *SQLStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := s.db.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ?`)

	var p domain.Product
	err := s.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return &p, nil
}

func (s *SQLStore) GetProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	out := make(map[int64]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build products query: %w", err)
	}

	var products []domain.Product
	if err := s.db.SelectContext(ctx, &products, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

func (s *SQLStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	ts := now()
	p.CreatedAt, p.UpdatedAt = ts, ts

	query := s.db.Rebind(`INSERT INTO products (name, sku, price, discount_price, stock, is_active, images, gender, category, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err := s.db.QueryRowxContext(ctx, query,
		p.Name,
		p.SKU,
		p.Price,
		p.DiscountPrice,
		p.Stock,
		p.IsActive,
		p.Images,
		p.Gender,
		p.Category,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSKUTaken
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *SQLStore) SKUExists(ctx context.Context, sku string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM products WHERE sku = ?`), sku)
	if err != nil {
		return false, fmt.Errorf("query sku: %w", err)
	}
	return n > 0, nil
}

// AdjustStock is a single conditional statement, so concurrent buyers of the
// last unit cannot both succeed.
func (s *SQLStore) AdjustStock(ctx context.Context, id int64, delta int) (*domain.Product, error) {
	query := s.db.Rebind(`UPDATE products SET stock = stock + ?, updated_at = ?
	          WHERE id = ? AND stock + ? >= 0
	          RETURNING ` + productColumns)

	var p domain.Product
	err := s.db.GetContext(ctx, &p, query, delta, now(), id, delta)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetProduct(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInsufficientStock
	}
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}
	return &p, nil
}
