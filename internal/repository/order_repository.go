package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, order_id, user_id, items, subtotal, discount, total_amount, total_items, status,
	shipping_address, contact_email, notes, created_at, updated_at`

// CreateOrder stores the order together with its first history entry.
func (s *SQLStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	ts := now()
	order.CreatedAt, order.UpdatedAt = ts, ts

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`INSERT INTO orders (id, order_id, user_id, items, subtotal, discount, total_amount, total_items,
		          status, shipping_address, contact_email, notes, created_at, updated_at)
		          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

		_, err := tx.ExecContext(ctx, query,
			order.ID,
			order.OrderID,
			order.UserID,
			order.Items,
			order.Subtotal,
			order.Discount,
			order.TotalAmount,
			order.TotalItems,
			order.Status,
			order.ShippingAddress,
			order.ContactEmail,
			order.Notes,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateOrderID
			}
			return fmt.Errorf("insert order: %w", err)
		}

		return insertHistory(ctx, tx, order.ID, order.Status, ts)
	})
}

// DeleteOrder removes an order and its history. It only backs out an order
// whose placement failed halfway.
func (s *SQLStore) DeleteOrder(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM order_status_history WHERE order_id = ?`), id); err != nil {
			return fmt.Errorf("delete order history: %w", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM orders WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return expectOneRow(res, ErrOrderNotFound)
	})
}

func (s *SQLStore) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return s.getOrder(ctx, `id`, id)
}

func (s *SQLStore) GetOrderByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.getOrder(ctx, `order_id`, orderID)
}

func (s *SQLStore) getOrder(ctx context.Context, column, value string) (*domain.Order, error) {
	query := s.db.Rebind(`SELECT ` + orderColumns + ` FROM orders WHERE ` + column + ` = ?`)

	var order domain.Order
	err := s.db.GetContext(ctx, &order, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by %s: %w", column, err)
	}
	return &order, nil
}

func (s *SQLStore) ListOrders(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0)
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &orders,
			`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, order_id DESC`)
	} else {
		err = s.db.SelectContext(ctx, &orders,
			s.db.Rebind(`SELECT `+orderColumns+` FROM orders WHERE status = ? ORDER BY created_at DESC, order_id DESC`),
			status)
	}
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	return orders, nil
}

func (s *SQLStore) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0)
	query := s.db.Rebind(`SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY created_at DESC, order_id DESC`)
	if err := s.db.SelectContext(ctx, &orders, query, userID); err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	return orders, nil
}

func (s *SQLStore) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	ts := now()
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`),
			to, ts, id, from)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if err := expectOneRow(res, ErrStatusConflict); err != nil {
			var exists int
			if getErr := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM orders WHERE id = ?`), id); getErr != nil {
				return fmt.Errorf("query order: %w", getErr)
			}
			if exists == 0 {
				return ErrOrderNotFound
			}
			return err
		}
		return insertHistory(ctx, tx, id, to, ts)
	})
}

func (s *SQLStore) StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error) {
	history := make([]domain.StatusChange, 0)
	query := s.db.Rebind(`SELECT order_id, status, changed_at FROM order_status_history WHERE order_id = ? ORDER BY id`)
	if err := s.db.SelectContext(ctx, &history, query, id); err != nil {
		return nil, fmt.Errorf("query order history: %w", err)
	}
	return history, nil
}

// Stats counts orders per status. Revenue excludes cancelled orders.
func (s *SQLStore) Stats(ctx context.Context) (*domain.OrderStats, error) {
	var rows []struct {
		Status domain.OrderStatus  `db:"status"`
		Count  int                 `db:"cnt"`
		Total  decimal.NullDecimal `db:"total"`
	}
	query := `SELECT status, COUNT(*) AS cnt, SUM(total_amount) AS total FROM orders GROUP BY status`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("query order stats: %w", err)
	}

	stats := &domain.OrderStats{
		ByStatus: make(map[domain.OrderStatus]int, len(rows)),
		Revenue:  decimal.Zero,
	}
	for _, r := range rows {
		stats.TotalOrders += r.Count
		stats.ByStatus[r.Status] = r.Count
		if r.Status != domain.OrderStatusCancelled && r.Total.Valid {
			stats.Revenue = stats.Revenue.Add(r.Total.Decimal)
		}
	}
	stats.Revenue = stats.Revenue.Round(2)
	return stats, nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, orderID string, status domain.OrderStatus, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO order_status_history (order_id, status, changed_at) VALUES (?, ?, ?)`),
		orderID, status, at)
	if err != nil {
		return fmt.Errorf("insert order history: %w", err)
	}
	return nil
}
