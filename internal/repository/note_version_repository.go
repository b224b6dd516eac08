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

type NoteVersionRepository interface {
	// Snapshot inserts a version and trims the note's history to the retention cap in
	// one transaction, so the retention invariant holds after every write.
	Snapshot(ctx context.Context, version *domain.NoteVersion, keep int) error
	List(ctx context.Context, userID, noteID string, limit, previewLen int) ([]*domain.VersionSummary, error)
	FindByID(ctx context.Context, userID, noteID, versionID string) (*domain.NoteVersion, error)
	CountByNote(ctx context.Context, userID, noteID string) (int, error)
}

type noteVersionRepository struct {
	db *sqlx.DB
}

func NewNoteVersionRepository(db *sqlx.DB) NoteVersionRepository {
	return &noteVersionRepository{db: db}
}

const trimQuery = `
DELETE FROM note_versions WHERE id IN (
    SELECT id FROM note_versions
    WHERE note_id = $1 AND user_id = $2
    ORDER BY created_at DESC, id DESC
    OFFSET $3
)`

func (r *noteVersionRepository) Snapshot(ctx context.Context, version *domain.NoteVersion, keep int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query, args, err := psql.Insert("note_versions").
		Columns("id", "note_id", "user_id", "content", "created_at").
		Values(version.ID, version.NoteID, version.UserID, version.Content, version.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, trimQuery, version.NoteID, version.UserID, keep); err != nil {
		return fmt.Errorf("failed to trim versions: %w", err)
	}

	return tx.Commit()
}

func (r *noteVersionRepository) List(ctx context.Context, userID, noteID string, limit, previewLen int) ([]*domain.VersionSummary, error) {
	query, args, err := psql.Select("id", fmt.Sprintf("LEFT(content, %d) AS preview", previewLen), "created_at").
		From("note_versions").
		Where(sq.Eq{"note_id": noteID, "user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	var versions []*domain.VersionSummary
	if err := r.db.SelectContext(ctx, &versions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return versions, nil
}

func (r *noteVersionRepository) FindByID(ctx context.Context, userID, noteID, versionID string) (*domain.NoteVersion, error) {
	query, args, err := psql.Select("id", "note_id", "user_id", "content", "created_at").
		From("note_versions").
		Where(sq.Eq{"id": versionID, "note_id": noteID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var version domain.NoteVersion
	if err := r.db.GetContext(ctx, &version, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find version: %w", err)
	}
	return &version, nil
}

func (r *noteVersionRepository) CountByNote(ctx context.Context, userID, noteID string) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("note_versions").
		Where(sq.Eq{"note_id": noteID, "user_id": userID}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count versions: %w", err)
	}
	return count, nil
}
