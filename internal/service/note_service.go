package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"nota/internal/config"
	"nota/internal/domain"
	"nota/internal/repository"

	"github.com/google/uuid"
)

const (
	maxDerivedTitleLen = 80
	maxImportFieldLen  = 255
	publicTokenBytes   = 10
	tokenRetries       = 3
)

type NoteService struct {
	repo        repository.NoteRepository
	versionRepo repository.NoteVersionRepository
	cfg         config.NotesConfig
}

func NewNoteService(repo repository.NoteRepository, versionRepo repository.NoteVersionRepository, cfg config.NotesConfig) *NoteService {
	return &NoteService{
		repo:        repo,
		versionRepo: versionRepo,
		cfg:         cfg,
	}
}

func (s *NoteService) Fetch(ctx context.Context, userID string) ([]*domain.Note, error) {
	notes, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, storageErr("failed to fetch notes", err)
	}
	if notes == nil {
		notes = []*domain.Note{}
	}
	return notes, nil
}

func (s *NoteService) Create(ctx context.Context, userID string, req *domain.CreateNoteRequest) (*domain.Note, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = deriveTitle(req.Content)
	}

	now := time.Now().UTC()
	note := &domain.Note{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Content:   req.Content,
		Tags:      normalizeTags(req.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, note); err != nil {
		return nil, storageErr("failed to create note", err)
	}
	return note, nil
}

// Update replaces a note's content. The old content is snapshotted as a
// version first, but only when the content actually changes; the snapshot and
// the retention trim run before the note row is touched, matching the
// invariant that history never exceeds the cap after a completed write.
func (s *NoteService) Update(ctx context.Context, userID, noteID string, req *domain.UpdateNoteRequest) error {
	note, err := s.findNote(ctx, userID, noteID)
	if err != nil {
		return err
	}

	if note.Content != req.Content {
		if err := s.snapshot(ctx, note); err != nil {
			return err
		}
	}

	// Title-sync: an explicit title wins; a blank stored title tracks the
	// first line of the new content; otherwise the stored title is kept.
	title := strings.TrimSpace(req.Title)
	var newTitle *string
	if title != "" {
		newTitle = &title
	} else if strings.TrimSpace(note.Title) == "" {
		derived := deriveTitle(req.Content)
		newTitle = &derived
	}

	if note.Content == req.Content && newTitle == nil {
		// No-op edit: no version, no updated_at bump.
		return nil
	}

	if err := s.repo.UpdateContent(ctx, userID, noteID, req.Content, newTitle, time.Now().UTC()); err != nil {
		return mapRepoErr(err, "Note not found.", "failed to update note")
	}
	return nil
}

func (s *NoteService) UpdateMeta(ctx context.Context, userID, noteID string, req *domain.UpdateNoteMetaRequest) error {
	var patch repository.NoteMetaPatch

	if req.Title != nil {
		if title := strings.TrimSpace(*req.Title); title != "" {
			patch.Title = &title
		}
	}
	if req.Tags != nil {
		if tags := strings.TrimSpace(*req.Tags); tags != "" {
			patch.Tags = &tags
		} else {
			patch.ClearTags = true
		}
	}
	patch.IsPinned = req.IsPinned

	if patch.Empty() {
		return validationErr("No changes provided.")
	}

	if err := s.repo.UpdateMeta(ctx, userID, noteID, patch, time.Now().UTC()); err != nil {
		return mapRepoErr(err, "Note not found.", "failed to update note metadata")
	}
	return nil
}

// Delete is idempotent: deleting an absent note still succeeds. Versions go
// with the note via the cascade.
func (s *NoteService) Delete(ctx context.Context, userID, noteID string) error {
	if _, err := s.repo.Delete(ctx, userID, noteID); err != nil {
		return storageErr("failed to delete note", err)
	}
	return nil
}

func (s *NoteService) TogglePublic(ctx context.Context, userID, noteID string, public bool) (*domain.Note, error) {
	now := time.Now().UTC()

	if !public {
		if err := s.repo.SetPublic(ctx, userID, noteID, nil, now); err != nil {
			return nil, mapRepoErr(err, "Note not found.", "failed to disable sharing")
		}
		return s.findNote(ctx, userID, noteID)
	}

	// Token collisions are vanishingly rare but the column is unique, so
	// regenerate a few times before giving up.
	var lastErr error
	for i := 0; i < tokenRetries; i++ {
		token, err := newPublicToken()
		if err != nil {
			return nil, storageErr("failed to generate share token", err)
		}
		err = s.repo.SetPublic(ctx, userID, noteID, &token, now)
		if err == nil {
			return s.findNote(ctx, userID, noteID)
		}
		if !repository.IsUniqueViolation(err) {
			return nil, mapRepoErr(err, "Note not found.", "failed to enable sharing")
		}
		lastErr = err
	}
	return nil, conflictErr("could not allocate a share token: " + lastErr.Error())
}

func (s *NoteService) History(ctx context.Context, userID, noteID string) ([]*domain.VersionSummary, error) {
	versions, err := s.versionRepo.List(ctx, userID, noteID, s.cfg.HistoryLimit, s.cfg.HistoryPreview)
	if err != nil {
		return nil, storageErr("failed to list versions", err)
	}
	if versions == nil {
		versions = []*domain.VersionSummary{}
	}
	return versions, nil
}

// Restore overwrites the note's content with a stored version, snapshotting
// the current content first so the overwritten text stays reachable. The
// title is left alone.
func (s *NoteService) Restore(ctx context.Context, userID, noteID, versionID string) error {
	note, err := s.findNote(ctx, userID, noteID)
	if err != nil {
		return err
	}

	version, err := s.versionRepo.FindByID(ctx, userID, noteID, versionID)
	if err != nil {
		return mapRepoErr(err, "Version not found.", "failed to load version")
	}

	if note.Content == version.Content {
		return nil
	}

	if err := s.snapshot(ctx, note); err != nil {
		return err
	}

	if err := s.repo.UpdateContent(ctx, userID, noteID, version.Content, nil, time.Now().UTC()); err != nil {
		return mapRepoErr(err, "Note not found.", "failed to restore note")
	}
	return nil
}

func (s *NoteService) Export(ctx context.Context, userID string) (*domain.ExportPayload, error) {
	notes, err := s.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.ExportPayload{
		ExportedAt: time.Now().UTC(),
		Notes:      notes,
	}, nil
}

func (s *NoteService) Import(ctx context.Context, userID string, payload *domain.ImportPayload) (*domain.ImportResult, error) {
	if payload == nil || len(payload.Notes) == 0 {
		return nil, validationErr("Invalid import file.")
	}

	records := payload.Notes
	if len(records) > s.cfg.ImportCap {
		records = records[:s.cfg.ImportCap]
	}

	now := time.Now().UTC()
	notes := make([]*domain.Note, 0, len(records))
	for _, rec := range records {
		title := truncateRunes(strings.TrimSpace(rec.Title), maxImportFieldLen)
		if title == "" {
			title = "Untitled"
		}
		tags := truncateRunes(strings.TrimSpace(rec.Tags), maxImportFieldLen)

		notes = append(notes, &domain.Note{
			ID:        uuid.New().String(),
			UserID:    userID,
			Title:     title,
			Content:   rec.Content,
			Tags:      normalizeTags(tags),
			IsPinned:  rec.IsPinned,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.repo.CreateAll(ctx, notes); err != nil {
		return nil, storageErr("failed to import notes", err)
	}
	return &domain.ImportResult{Imported: len(notes)}, nil
}

// PublicNote resolves a share token without authentication. Unknown tokens
// and notes whose public flag was cleared look identical.
func (s *NoteService) PublicNote(ctx context.Context, token string) (*domain.PublicNote, error) {
	if token == "" {
		return nil, validationErr("Invalid public note link.")
	}
	pub, err := s.repo.FindByPublicToken(ctx, token)
	if err != nil {
		return nil, mapRepoErr(err, "Note not found or not public.", "failed to load public note")
	}
	return pub, nil
}

func (s *NoteService) findNote(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	note, err := s.repo.FindByID(ctx, userID, noteID)
	if err != nil {
		return nil, mapRepoErr(err, "Note not found.", "failed to load note")
	}
	return note, nil
}

func (s *NoteService) snapshot(ctx context.Context, note *domain.Note) error {
	version := &domain.NoteVersion{
		ID:        uuid.New().String(),
		NoteID:    note.ID,
		UserID:    note.UserID,
		Content:   note.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.versionRepo.Snapshot(ctx, version, s.cfg.VersionCap); err != nil {
		return storageErr("failed to save version", err)
	}
	return nil
}

// deriveTitle takes the first line of content, stripped of carriage returns
// and surrounding whitespace, capped at 80 characters.
func deriveTitle(content string) string {
	content = strings.ReplaceAll(content, "\r", "")
	firstLine, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	firstLine = strings.TrimSpace(firstLine)
	if firstLine == "" {
		return "Untitled"
	}
	return truncateRunes(firstLine, maxDerivedTitleLen)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func normalizeTags(tags string) *string {
	tags = strings.TrimSpace(tags)
	if tags == "" {
		return nil
	}
	return &tags
}

func newPublicToken() (string, error) {
	buf := make([]byte, publicTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func mapRepoErr(err error, notFoundMsg, storageMsg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundErr(notFoundMsg)
	}
	return storageErr(storageMsg, err)
}
