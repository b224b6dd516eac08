package domain

import "time"

// NoteVersion is an immutable snapshot of a note's content, taken just before
// the content changes. UserID is denormalized for owner-scoped queries.
type NoteVersion struct {
	ID        string    `json:"id" db:"id"`
	NoteID    string    `json:"note_id" db:"note_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// VersionSummary is what history listings return: never the full content,
// only a bounded preview.
type VersionSummary struct {
	ID        string    `json:"id" db:"id"`
	Preview   string    `json:"preview" db:"preview"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
