package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
)

var (
	ErrNotFound   = fmt.Errorf("user %w", apperr.ErrNotFound)
	ErrUserExists = fmt.Errorf("user with this username or email already exists: %w", apperr.ErrConflict)
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) (*User, error)
	MarkVerified(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const userColumns = `id, username, first_name, last_name, email, password_hash, image, is_verified, is_staff, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.PasswordHash,
		&u.Image,
		&u.IsVerified,
		&u.IsStaff,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *postgresRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (username, first_name, last_name, email, password_hash, image, is_staff)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_verified, created_at
	`
	err := r.db.QueryRow(ctx, query,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Image,
		user.IsStaff,
	).Scan(&user.ID, &user.IsVerified, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			log.Warn().Str("username", user.Username).Str("constraint", pgErr.ConstraintName).Msg("repository: user already exists")
			return ErrUserExists
		}
		return fmt.Errorf("repository: failed to insert user: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user by id %d: %w", id, err)
	}
	return u, nil
}

func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user by username: %w", err)
	}
	return u, nil
}

func (r *postgresRepository) UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) (*User, error) {
	query := `
		UPDATE users SET first_name = $1, last_name = $2, image = $3
		WHERE id = $4
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, update.FirstName, update.LastName, update.Image, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to update profile of user %d: %w", id, err)
	}
	return u, nil
}

func (r *postgresRepository) MarkVerified(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE users SET is_verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to verify user %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete user %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
