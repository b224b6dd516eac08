package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"nota/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteVersionRepository_Snapshot(t *testing.T) {
	now := time.Now().UTC()
	version := &domain.NoteVersion{
		ID:        "ver-1",
		NoteID:    "note-1",
		UserID:    "user-1",
		Content:   "old content",
		CreatedAt: now,
	}

	insertQuery := regexp.QuoteMeta(
		"INSERT INTO note_versions (id,note_id,user_id,content,created_at) VALUES ($1,$2,$3,$4,$5)")

	t.Run("inserts and trims in one transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewNoteVersionRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(insertQuery).
			WithArgs("ver-1", "note-1", "user-1", "old content", now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(trimQuery)).
			WithArgs("note-1", "user-1", 20).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.Snapshot(context.Background(), version, 20)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("trim failure rolls back the insert", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewNoteVersionRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(insertQuery).
			WithArgs("ver-1", "note-1", "user-1", "old content", now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM note_versions").
			WithArgs("note-1", "user-1", 20).
			WillReturnError(errors.New("deadlock"))
		mock.ExpectRollback()

		err := repo.Snapshot(context.Background(), version, 20)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNoteVersionRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNoteVersionRepository(db)
	now := time.Now().UTC()

	query := regexp.QuoteMeta(
		"SELECT id, LEFT(content, 200) AS preview, created_at FROM note_versions " +
			"WHERE note_id = $1 AND user_id = $2 " +
			"ORDER BY created_at DESC, id DESC LIMIT 20")

	mock.ExpectQuery(query).
		WithArgs("note-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "preview", "created_at"}).
			AddRow("ver-2", "newer", now).
			AddRow("ver-1", "older", now.Add(-time.Minute)))

	versions, err := repo.List(context.Background(), "user-1", "note-1", 20, 200)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "ver-2", versions[0].ID)
	assert.Equal(t, "newer", versions[0].Preview)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteVersionRepository_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNoteVersionRepository(db)
	now := time.Now().UTC()

	query := regexp.QuoteMeta(
		"SELECT id, note_id, user_id, content, created_at FROM note_versions " +
			"WHERE id = $1 AND note_id = $2 AND user_id = $3")

	mock.ExpectQuery(query).
		WithArgs("ver-1", "note-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "note_id", "user_id", "content", "created_at"}).
			AddRow("ver-1", "note-1", "user-1", "stored", now))

	version, err := repo.FindByID(context.Background(), "user-1", "note-1", "ver-1")
	require.NoError(t, err)
	assert.Equal(t, "stored", version.Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteVersionRepository_FindByID_WrongOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNoteVersionRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM note_versions").
		WithArgs("ver-1", "note-1", "intruder").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), "intruder", "note-1", "ver-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
