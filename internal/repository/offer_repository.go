package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
)

const offerColumns = `id, name, description, rule_type, rule, applicable_products, start_date, end_date,
	is_active, usage_limit, usage_count, priority, created_at, updated_at`

func (s *SQLStore) ListOffers(ctx context.Context) ([]domain.Offer, error) {
	offers := make([]domain.Offer, 0)
	query := `SELECT ` + offerColumns + ` FROM offers ORDER BY priority DESC, id`
	if err := s.db.SelectContext(ctx, &offers, query); err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}
	return offers, nil
}

// ListActiveOffers returns offers flagged active. The validity window and
// usage limit are checked by the caller against its own clock.
func (s *SQLStore) ListActiveOffers(ctx context.Context) ([]domain.Offer, error) {
	offers := make([]domain.Offer, 0)
	query := s.db.Rebind(`SELECT ` + offerColumns + ` FROM offers WHERE is_active = ? ORDER BY priority DESC, id`)
	if err := s.db.SelectContext(ctx, &offers, query, true); err != nil {
		return nil, fmt.Errorf("query active offers: %w", err)
	}
	return offers, nil
}

func (s *SQLStore) GetOffer(ctx context.Context, id int64) (*domain.Offer, error) {
	var o domain.Offer
	err := s.db.GetContext(ctx, &o, s.db.Rebind(`SELECT `+offerColumns+` FROM offers WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query offer by id: %w", err)
	}
	return &o, nil
}

func (s *SQLStore) CreateOffer(ctx context.Context, o *domain.Offer) error {
	ts := now()
	o.CreatedAt, o.UpdatedAt = ts, ts
	o.StartDate, o.EndDate = o.StartDate.UTC(), o.EndDate.UTC()

	query := s.db.Rebind(`INSERT INTO offers (name, description, rule_type, rule, applicable_products, start_date, end_date,
	          is_active, usage_limit, usage_count, priority, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err := s.db.QueryRowxContext(ctx, query,
		o.Name,
		o.Description,
		o.RuleType,
		o.Rule,
		o.ApplicableProducts,
		o.StartDate,
		o.EndDate,
		o.IsActive,
		o.UsageLimit,
		o.UsageCount,
		o.Priority,
		o.CreatedAt,
		o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

// UpdateOffer rewrites the configuration of an offer. UsageCount and
// CreatedAt are left untouched.
func (s *SQLStore) UpdateOffer(ctx context.Context, o *domain.Offer) error {
	o.UpdatedAt = now()
	o.StartDate, o.EndDate = o.StartDate.UTC(), o.EndDate.UTC()

	query := s.db.Rebind(`UPDATE offers SET name = ?, description = ?, rule_type = ?, rule = ?, applicable_products = ?,
	          start_date = ?, end_date = ?, is_active = ?, usage_limit = ?, priority = ?, updated_at = ?
	          WHERE id = ?`)

	res, err := s.db.ExecContext(ctx, query,
		o.Name,
		o.Description,
		o.RuleType,
		o.Rule,
		o.ApplicableProducts,
		o.StartDate,
		o.EndDate,
		o.IsActive,
		o.UsageLimit,
		o.Priority,
		o.UpdatedAt,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update offer: %w", err)
	}
	return expectOneRow(res, ErrOfferNotFound)
}

func (s *SQLStore) DeleteOffer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM offers WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	return expectOneRow(res, ErrOfferNotFound)
}

// IncrementUsage consumes one use of the offer. It fails with
// ErrOfferExhausted once the usage limit is reached.
func (s *SQLStore) IncrementUsage(ctx context.Context, id int64) error {
	query := s.db.Rebind(`UPDATE offers SET usage_count = usage_count + 1, updated_at = ?
	          WHERE id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)`)

	res, err := s.db.ExecContext(ctx, query, now(), id)
	if err != nil {
		return fmt.Errorf("increment offer usage: %w", err)
	}
	if err := expectOneRow(res, ErrOfferExhausted); err != nil {
		if errors.Is(err, ErrOfferExhausted) {
			if _, getErr := s.GetOffer(ctx, id); getErr != nil {
				return getErr
			}
		}
		return err
	}
	return nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
