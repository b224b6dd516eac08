package domain

import "time"

type Note struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Content     string    `json:"content" db:"content"`
	Tags        *string   `json:"tags" db:"tags"`
	IsPinned    bool      `json:"is_pinned" db:"is_pinned"`
	IsPublic    bool      `json:"is_public" db:"is_public"`
	PublicToken *string   `json:"public_token" db:"public_token"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
}

type UpdateNoteRequest struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

// UpdateNoteMetaRequest is a sparse patch: a nil field is left untouched, a
// present field is applied. Tags present-but-empty clears tags to null.
type UpdateNoteMetaRequest struct {
	Title    *string `json:"title"`
	Tags     *string `json:"tags"`
	IsPinned *bool   `json:"is_pinned"`
}

type TogglePublicRequest struct {
	Public bool `json:"public"`
}

type RestoreRequest struct {
	VersionID string `json:"version_id" validate:"required"`
}

// PublicNote is the unauthenticated read view for a shared note.
type PublicNote struct {
	Content   string    `json:"content" db:"content"`
	Username  string    `json:"username" db:"username"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ExportPayload struct {
	ExportedAt time.Time `json:"exported_at"`
	Notes      []*Note   `json:"notes"`
}

type ImportNote struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Tags     string `json:"tags"`
	IsPinned bool   `json:"is_pinned"`
}

type ImportPayload struct {
	Notes []ImportNote `json:"notes" validate:"required,min=1"`
}

type ImportResult struct {
	Imported int `json:"imported"`
}
