package trade

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/tradeflow/internal/domain"
)

// Saga step names recorded in saga_steps. A step row is a claim: whoever
// inserts it owns the matching remote call.
const (
	stepStockDeducted = "stock_deducted"
	stepPayClosed     = "pay_closed"
	stepStockRestored = "stock_restored"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists the order and its snapshot lines in one transaction.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, status, total_fee, payment_type, create_time, update_time)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, order.ID, order.UserID, order.Status, order.TotalFee, order.PaymentType, order.CreateTime)
	if err != nil {
		return err
	}

	for _, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_details (id, order_id, item_id, name, spec, price, image, num)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.New().String(), order.ID, line.ItemID, line.Name, line.Spec, line.Price, line.Image, line.Quantity)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}
	var payTime sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, total_fee, payment_type, create_time, pay_time
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.UserID, &order.Status, &order.TotalFee, &order.PaymentType, &order.CreateTime, &payTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if payTime.Valid {
		order.PayTime = &payTime.Time
	}

	order.Lines, err = r.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) ListLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, name, spec, price, image, num
		FROM order_details
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ItemID, &line.Name, &line.Spec, &line.Price, &line.Image, &line.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

// MarkPaid transitions PENDING -> PAID. The condition on the current status
// makes the database pick a single winner when the paid path and the
// cancellation path race; a duplicate call keeps the first pay_time.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, payTime time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, pay_time = $2, update_time = NOW()
		WHERE id = $3 AND status = $4
	`, domain.OrderStatusPaid, payTime, id, domain.OrderStatusPending)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Cancel transitions PENDING -> CANCELLED under the same guard as MarkPaid.
func (r *OrderRepository) Cancel(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, update_time = NOW()
		WHERE id = $2 AND status = $3
	`, domain.OrderStatusCancelled, id, domain.OrderStatusPending)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *OrderRepository) Status(ctx context.Context, id string) (domain.OrderStatus, error) {
	var status domain.OrderStatus
	err := r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, domain.ErrOrderNotFound
		}
		return 0, err
	}
	return status, nil
}

// DeleteCreated removes an order whose creation saga never completed. This
// is the local half of the creation rollback; committed orders are never
// deleted.
func (r *OrderRepository) DeleteCreated(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM saga_steps WHERE order_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_details WHERE order_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit()
}

// ClaimStep inserts the step claim, reporting whether this caller won it.
func (r *OrderRepository) ClaimStep(ctx context.Context, orderID, step string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO saga_steps (order_id, step) VALUES ($1, $2)
		ON CONFLICT (order_id, step) DO NOTHING
	`, orderID, step)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// HasStep reports whether the step was recorded for the order.
func (r *OrderRepository) HasStep(ctx context.Context, orderID, step string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM saga_steps WHERE order_id = $1 AND step = $2)
	`, orderID, step).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ReleaseStep gives a claim back after the remote call it covered failed.
func (r *OrderRepository) ReleaseStep(ctx context.Context, orderID, step string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM saga_steps WHERE order_id = $1 AND step = $2
	`, orderID, step)
	return err
}
