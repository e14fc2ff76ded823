package models

import (
	"time"
)

// VideoEntry represents one curated video in an owner's collection
type VideoEntry struct {
	ID           string    `json:"id" db:"id"`
	OwnerID      string    `json:"owner_id" db:"owner_id"`
	SourceURL    string    `json:"source_url" db:"source_url"`
	Title        string    `json:"title" db:"title"`
	Description  *string   `json:"description,omitempty" db:"description"`
	Slug         string    `json:"slug" db:"slug"`
	ThumbnailRef *string   `json:"thumbnail_ref,omitempty" db:"thumbnail_ref"`
	Transcript   *string   `json:"transcript,omitempty" db:"transcript"`
	Position     int       `json:"position" db:"position"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Clone returns a shallow copy of the entry. Pointer fields are shared.
func (e *VideoEntry) Clone() *VideoEntry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// EntryUpdate is a partial field set for update-by-id. Nil fields are left untouched.
type EntryUpdate struct {
	SourceURL    *string
	Title        *string
	Description  *string
	Slug         *string
	ThumbnailRef *string
	Transcript   *string
	IsActive     *bool
}

// IsEmpty reports whether the update carries no fields
func (u EntryUpdate) IsEmpty() bool {
	return u.SourceURL == nil && u.Title == nil && u.Description == nil && u.Slug == nil &&
		u.ThumbnailRef == nil && u.Transcript == nil && u.IsActive == nil
}

// Field limits
const (
	MaxTitleLength       = 50
	MaxDescriptionLength = 100
	MaxSlugLength        = 50
)
