package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nota/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query, args, err := psql.Insert("users").
		Columns("id", "username", "password", "created_at", "updated_at").
		Values(user.ID, user.Username, user.Password, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, sq.Eq{"username": username})
}

func (r *userRepository) findOne(ctx context.Context, pred sq.Eq) (*domain.User, error) {
	query, args, err := psql.Select("id", "username", "password", "created_at", "updated_at").
		From("users").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("users").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return false, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}
