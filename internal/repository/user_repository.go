package repository

import (
	"context"
	"fmt"

	"souq/server/internal/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, phone, email, user_type, is_active, created_at`

// UserRepository reads the user directory owned by the main application.
type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByPhone looks a user up by canonical identity.
func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
}

// ListActiveByType returns every active user of the cohort.
func (r *UserRepository) ListActiveByType(ctx context.Context, t models.UserType) ([]models.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE is_active AND user_type = $1 ORDER BY id`, t)
}

// ListActive returns every active user.
func (r *UserRepository) ListActive(ctx context.Context) ([]models.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE is_active ORDER BY id`)
}

func (r *UserRepository) findOne(ctx context.Context, sql string, args ...any) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, sql, args...).Scan(&u.ID, &u.Name, &u.Phone, &u.Email, &u.UserType, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) list(ctx context.Context, sql string, args ...any) ([]models.User, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.User, error) {
		var u models.User
		err := row.Scan(&u.ID, &u.Name, &u.Phone, &u.Email, &u.UserType, &u.IsActive, &u.CreatedAt)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}
