package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/manavault/internal/apisvc/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password, reset_password_token, reset_password_expires, created_at, updated_at`

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (r *UserStore) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	query := `
        INSERT INTO users (email, password)
        VALUES ($1, $2)
        RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, email, passwordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	return u, nil
}

func (r *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE email = $1
    `, email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// GetByResetToken only matches tokens that have not expired at now.
func (r *UserStore) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE reset_password_token = $1 AND reset_password_expires > $2
    `, token, now)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}
	return u, nil
}

func (r *UserStore) SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE users
        SET reset_password_token = $2, reset_password_expires = $3, updated_at = now()
        WHERE id = $1
    `, userID, token, expires)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword stores a new hash and clears any pending reset token.
func (r *UserStore) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE users
        SET password = $2, reset_password_token = NULL, reset_password_expires = NULL, updated_at = now()
        WHERE id = $1
    `, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.ResetPasswordToken,
		&u.ResetPasswordExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}
