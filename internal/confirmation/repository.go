package confirmation

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
)

var (
	ErrTokenNotFound = fmt.Errorf("confirmation code %w", apperr.ErrNotFound)
	ErrTokenExpired  = fmt.Errorf("confirmation code %w", apperr.ErrExpired)
)

type Repository interface {
	Create(ctx context.Context, token *Token) error
	GetByCode(ctx context.Context, code uuid.UUID) (*Token, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, token *Token) error {
	query := `
		INSERT INTO user_confirmations (code, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, token.Code, token.UserID, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert confirmation for user %d: %w", token.UserID, err)
	}
	return nil
}

func (r *postgresRepository) GetByCode(ctx context.Context, code uuid.UUID) (*Token, error) {
	query := `
		SELECT code, user_id, created_at, expires_at
		FROM user_confirmations
		WHERE code = $1
	`

	var token Token
	err := r.db.QueryRow(ctx, query, code).Scan(&token.Code, &token.UserID, &token.CreatedAt, &token.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("repository: failed to select confirmation %s: %w", code, err)
	}
	return &token, nil
}
