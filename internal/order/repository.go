package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
	"github.com/vasiliy-maslov/store-market/internal/cart"
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", apperr.ErrNotFound)
	ErrEmptyCart     = apperr.NewValidationError(map[string]string{"cart": "is empty"})
)

// BuildFunc строит заказ из заблокированных строк корзины внутри транзакции оформления.
type BuildFunc func(lines []cart.Line) (*Order, error)

type Repository interface {
	PlaceOrder(ctx context.Context, userID int64, build BuildFunc) (*Order, error)
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// PlaceOrder в одной транзакции блокирует строки корзины, создаёт заказ и удаляет ровно эти строки.
// При любой ошибке транзакция откатывается и корзина остаётся нетронутой.
func (r *postgresRepository) PlaceOrder(ctx context.Context, userID int64, build BuildFunc) (placed *Order, err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Int64("user_id", userID).Msg("Panic recovered during PlaceOrder, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Int64("user_id", userID).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("Transaction for PlaceOrder failed, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Int64("user_id", userID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				log.Error().Err(commitErr).Int64("user_id", userID).Msg("Failed to commit transaction")
				placed = nil
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	lines, err := cart.SelectLines(ctx, tx, userID, true)
	if err != nil {
		return nil, err
	}

	o, err := build(lines)
	if err != nil {
		return nil, err
	}

	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to marshal order items: %w", err)
	}

	queryOrder := `
		INSERT INTO orders (first_name, last_name, email, address, user_id, status, items, to_pay, to_pay_minor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err = tx.QueryRow(ctx, queryOrder,
		o.Recipient.FirstName,
		o.Recipient.LastName,
		o.Recipient.Email,
		o.Recipient.Address,
		o.UserID,
		int16(o.Status),
		items,
		o.ToPay,
		o.ToPayMinor,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to insert order: %w", err)
	}

	lineIDs := make([]int64, 0, len(lines))
	for _, line := range lines {
		lineIDs = append(lineIDs, line.ID)
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE user_id = $1 AND id = ANY($2)`, userID, lineIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to clear cart for user %d: %w", userID, err)
	}
	if cmdTag.RowsAffected() != int64(len(lineIDs)) {
		return nil, fmt.Errorf("repository: cart of user %d changed during checkout: deleted %d of %d lines",
			userID, cmdTag.RowsAffected(), len(lineIDs))
	}

	return o, nil
}

const orderColumns = `id, first_name, last_name, email, address, created_at, user_id, status, items, to_pay, to_pay_minor`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o      Order
		status int16
		items  []byte
	)
	err := row.Scan(
		&o.ID,
		&o.Recipient.FirstName,
		&o.Recipient.LastName,
		&o.Recipient.Email,
		&o.Recipient.Address,
		&o.CreatedAt,
		&o.UserID,
		&status,
		&items,
		&o.ToPay,
		&o.ToPayMinor,
	)
	if err != nil {
		return nil, err
	}

	o.Status = Status(status)
	o.Items = make([]cart.SnapshotItem, 0)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items of order %d: %w", o.ID, err)
	}
	return &o, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %d: %w", id, err)
	}
	return o, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user %d: %w", userID, err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order for user %d: %w", userID, err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating orders for user %d: %w", userID, err)
	}

	return orders, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, int16(status), id)
	if err != nil {
		log.Error().Err(err).Int64("order_id", id).Stringer("new_status", status).Msg("repository: failed to update order status")
		return fmt.Errorf("repository: failed to update status of order %d: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		log.Warn().Int64("order_id", id).Stringer("new_status", status).Msg("repository: order not found for status update")
		return ErrOrderNotFound
	}

	return nil
}
