package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"nota/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	query := regexp.QuoteMeta(
		"INSERT INTO users (id,username,password,created_at,updated_at) VALUES ($1,$2,$3,$4,$5)")

	mock.ExpectExec(query).
		WithArgs("user-1", "alice", "hashed", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.User{
		ID:        "user-1",
		Username:  "alice",
		Password:  "hashed",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByUsername(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	query := regexp.QuoteMeta(
		"SELECT id, username, password, created_at, updated_at FROM users WHERE username = $1")

	mock.ExpectQuery(query).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password", "created_at", "updated_at"}).
			AddRow("user-1", "alice", "hashed", now, now))

	user, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByUsername_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UsernameExists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	query := regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE username = $1")

	mock.ExpectQuery(query).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(query).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err := repo.UsernameExists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.UsernameExists(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
