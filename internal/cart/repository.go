package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
)

var ErrProductNotFound = fmt.Errorf("product %w", apperr.ErrNotFound)

type Repository interface {
	AddProduct(ctx context.Context, userID, productID int64) (*Line, error)
	DeleteLine(ctx context.Context, userID, lineID int64) error
	ListLines(ctx context.Context, userID int64) ([]Line, error)
}

// Querier реализуют и *pgxpool.Pool, и pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// AddProduct создаёт строку с количеством 1 или увеличивает количество существующей.
// Одна команда INSERT ... ON CONFLICT, поэтому параллельные добавления не создают дублей.
func (r *postgresRepository) AddProduct(ctx context.Context, userID, productID int64) (*Line, error) {
	query := `
		WITH product AS (
			SELECT id, name, price FROM products WHERE id = $2
		), upserted AS (
			INSERT INTO cart_lines (user_id, product_id, quantity, price)
			SELECT $1, product.id, 1, product.price FROM product
			ON CONFLICT (user_id, product_id) DO UPDATE
			SET quantity = cart_lines.quantity + 1,
			    price = (cart_lines.quantity + 1) * EXCLUDED.price
			RETURNING id, user_id, product_id, quantity, price, created_at
		)
		SELECT u.id, u.user_id, u.product_id, p.name, p.price, u.quantity, u.price, u.created_at
		FROM upserted u
		JOIN product p ON p.id = u.product_id
	`

	var line Line
	err := r.db.QueryRow(ctx, query, userID, productID).Scan(
		&line.ID,
		&line.UserID,
		&line.ProductID,
		&line.ProductName,
		&line.UnitPrice,
		&line.Quantity,
		&line.Price,
		&line.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Int64("user_id", userID).Int64("product_id", productID).Msg("repository: failed to upsert cart line")
		return nil, fmt.Errorf("repository: failed to add product %d to cart: %w", productID, err)
	}

	return &line, nil
}

// DeleteLine удаляет строку пользователя. Отсутствие строки ошибкой не является.
func (r *postgresRepository) DeleteLine(ctx context.Context, userID, lineID int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM cart_lines WHERE id = $1 AND user_id = $2`, lineID, userID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart line %d: %w", lineID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		log.Debug().Int64("user_id", userID).Int64("line_id", lineID).Msg("repository: cart line already absent")
	}
	return nil
}

func (r *postgresRepository) ListLines(ctx context.Context, userID int64) ([]Line, error) {
	return SelectLines(ctx, r.db, userID, false)
}

// SelectLines читает строки корзины с текущими ценами товаров.
// forUpdate блокирует строки cart_lines до конца транзакции.
func SelectLines(ctx context.Context, q Querier, userID int64, forUpdate bool) ([]Line, error) {
	query := `
		SELECT cl.id, cl.user_id, cl.product_id, p.name, p.price, cl.quantity, cl.price, cl.created_at
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		WHERE cl.user_id = $1
		ORDER BY cl.created_at, cl.id
	`
	if forUpdate {
		query += ` FOR UPDATE OF cl`
	}

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart lines for user %d: %w", userID, err)
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		var line Line
		err := rows.Scan(
			&line.ID,
			&line.UserID,
			&line.ProductID,
			&line.ProductName,
			&line.UnitPrice,
			&line.Quantity,
			&line.Price,
			&line.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart line for user %d: %w", userID, err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating cart lines for user %d: %w", userID, err)
	}

	return lines, nil
}
