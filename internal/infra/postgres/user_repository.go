package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"propsheet-service/internal/domain"
)

// UserRepository persists users keyed by their normalized phone number.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, phone, display_name, created_at FROM users WHERE phone=$1`, phone,
	).Scan(&u.ID, &u.Phone, &u.DisplayName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// FindOrCreateByPhone is idempotent: concurrent callers for the same phone get the same row.
func (r *UserRepository) FindOrCreateByPhone(ctx context.Context, phone, displayName string) (domain.User, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, phone, display_name) VALUES ($1, $2, $3) ON CONFLICT (phone) DO NOTHING`,
		uuid.NewString(), phone, displayName,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return r.FindByPhone(ctx, phone)
}
