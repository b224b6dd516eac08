package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nota/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// NoteMetaPatch is a structured sparse update. Nil fields are left untouched.
// ClearTags distinguishes "tags omitted" from "tags present but empty".
type NoteMetaPatch struct {
	Title     *string
	Tags      *string
	ClearTags bool
	IsPinned  *bool
}

func (p NoteMetaPatch) Empty() bool {
	return p.Title == nil && p.Tags == nil && !p.ClearTags && p.IsPinned == nil
}

type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	CreateAll(ctx context.Context, notes []*domain.Note) error
	FindByID(ctx context.Context, userID, noteID string) (*domain.Note, error)
	List(ctx context.Context, userID string) ([]*domain.Note, error)
	UpdateContent(ctx context.Context, userID, noteID, content string, title *string, now time.Time) error
	UpdateMeta(ctx context.Context, userID, noteID string, patch NoteMetaPatch, now time.Time) error
	Delete(ctx context.Context, userID, noteID string) (int64, error)
	SetPublic(ctx context.Context, userID, noteID string, token *string, now time.Time) error
	FindByPublicToken(ctx context.Context, token string) (*domain.PublicNote, error)
}

type noteRepository struct {
	db *sqlx.DB
}

func NewNoteRepository(db *sqlx.DB) NoteRepository {
	return &noteRepository{db: db}
}

var noteColumns = []string{
	"id", "user_id", "title", "content", "tags",
	"is_pinned", "is_public", "public_token", "created_at", "updated_at",
}

func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	query, args, err := psql.Insert("notes").
		Columns(noteColumns...).
		Values(note.ID, note.UserID, note.Title, note.Content, note.Tags,
			note.IsPinned, note.IsPublic, note.PublicToken, note.CreatedAt, note.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

func (r *noteRepository) CreateAll(ctx context.Context, notes []*domain.Note) error {
	if len(notes) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, note := range notes {
		query, args, err := psql.Insert("notes").
			Columns(noteColumns...).
			Values(note.ID, note.UserID, note.Title, note.Content, note.Tags,
				note.IsPinned, note.IsPublic, note.PublicToken, note.CreatedAt, note.UpdatedAt).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to import note: %w", err)
		}
	}

	return tx.Commit()
}

func (r *noteRepository) FindByID(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	query, args, err := psql.Select(noteColumns...).
		From("notes").
		Where(sq.Eq{"id": noteID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var note domain.Note
	if err := r.db.GetContext(ctx, &note, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find note: %w", err)
	}
	return &note, nil
}

func (r *noteRepository) List(ctx context.Context, userID string) ([]*domain.Note, error) {
	query, args, err := psql.Select(noteColumns...).
		From("notes").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("is_pinned DESC", "updated_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var notes []*domain.Note
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

func (r *noteRepository) UpdateContent(ctx context.Context, userID, noteID, content string, title *string, now time.Time) error {
	q := psql.Update("notes").
		Set("content", content).
		Set("updated_at", now).
		Where(sq.Eq{"id": noteID, "user_id": userID})
	if title != nil {
		q = q.Set("title", *title)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	return requireRow(res)
}

func (r *noteRepository) UpdateMeta(ctx context.Context, userID, noteID string, patch NoteMetaPatch, now time.Time) error {
	q := psql.Update("notes").
		Set("updated_at", now).
		Where(sq.Eq{"id": noteID, "user_id": userID})
	if patch.Title != nil {
		q = q.Set("title", *patch.Title)
	}
	if patch.Tags != nil {
		q = q.Set("tags", *patch.Tags)
	} else if patch.ClearTags {
		q = q.Set("tags", nil)
	}
	if patch.IsPinned != nil {
		q = q.Set("is_pinned", *patch.IsPinned)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update note metadata: %w", err)
	}
	return requireRow(res)
}

func (r *noteRepository) Delete(ctx context.Context, userID, noteID string) (int64, error) {
	query, args, err := psql.Delete("notes").
		Where(sq.Eq{"id": noteID, "user_id": userID}).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete note: %w", err)
	}
	return res.RowsAffected()
}

func (r *noteRepository) SetPublic(ctx context.Context, userID, noteID string, token *string, now time.Time) error {
	query, args, err := psql.Update("notes").
		Set("is_public", token != nil).
		Set("public_token", token).
		Set("updated_at", now).
		Where(sq.Eq{"id": noteID, "user_id": userID}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to toggle note sharing: %w", err)
	}
	return requireRow(res)
}

func (r *noteRepository) FindByPublicToken(ctx context.Context, token string) (*domain.PublicNote, error) {
	query, args, err := psql.Select("n.content", "u.username", "n.updated_at").
		From("notes n").
		Join("users u ON u.id = n.user_id").
		Where(sq.Eq{"n.public_token": token, "n.is_public": true}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var pub domain.PublicNote
	if err := r.db.GetContext(ctx, &pub, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find public note: %w", err)
	}
	return &pub, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
