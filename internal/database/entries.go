package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/binyominzeev/vidfaq/internal/collection"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

const entryColumns = `id, owner_id, source_url, title, description, slug, thumbnail_ref,
       transcript, position, is_active, created_at, updated_at`

func scanEntry(row pgx.Row) (*models.VideoEntry, error) {
	var entry models.VideoEntry
	var id uuid.UUID
	err := row.Scan(
		&id, &entry.OwnerID, &entry.SourceURL, &entry.Title, &entry.Description,
		&entry.Slug, &entry.ThumbnailRef, &entry.Transcript, &entry.Position,
		&entry.IsActive, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.ID = id.String()
	return &entry, nil
}

func (r *Repository) queryEntries(ctx context.Context, query string, args ...any) ([]*models.VideoEntry, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.VideoEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListEntries returns every entry of an owner in display order
func (r *Repository) ListEntries(ctx context.Context, ownerID string) (entries []*models.VideoEntry, err error) {
	defer r.observe("list_entries", time.Now(), &err)

	entries, err = r.queryEntries(ctx, `
		SELECT `+entryColumns+`
		FROM video_entries
		WHERE owner_id = $1
		ORDER BY position, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// ListActiveEntries returns the visible entries of an owner in display order
func (r *Repository) ListActiveEntries(ctx context.Context, ownerID string) (entries []*models.VideoEntry, err error) {
	defer r.observe("list_active_entries", time.Now(), &err)

	entries, err = r.queryEntries(ctx, `
		SELECT `+entryColumns+`
		FROM video_entries
		WHERE owner_id = $1 AND is_active
		ORDER BY position, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active entries: %w", err)
	}
	return entries, nil
}

// GetEntry retrieves an owner's entry by ID
func (r *Repository) GetEntry(ctx context.Context, ownerID, id string) (entry *models.VideoEntry, err error) {
	defer r.observe("get_entry", time.Now(), &err)

	entryID, parseErr := uuid.Parse(id)
	if parseErr != nil {
		return nil, collection.ErrNotFound
	}

	entry, err = scanEntry(r.db.Pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM video_entries
		WHERE owner_id = $1 AND id = $2
	`, ownerID, entryID))
	if err == pgx.ErrNoRows {
		return nil, collection.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return entry, nil
}

// GetEntryBySlug retrieves an owner's entry by slug
func (r *Repository) GetEntryBySlug(ctx context.Context, ownerID, slug string) (entry *models.VideoEntry, err error) {
	defer r.observe("get_entry_by_slug", time.Now(), &err)

	entry, err = scanEntry(r.db.Pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM video_entries
		WHERE owner_id = $1 AND slug = $2
	`, ownerID, slug))
	if err == pgx.ErrNoRows {
		return nil, collection.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry by slug: %w", err)
	}
	return entry, nil
}

// InsertEntry creates an entry unless the owner already holds limit entries
func (r *Repository) InsertEntry(ctx context.Context, entry *models.VideoEntry, limit int) (err error) {
	defer r.observe("insert_entry", time.Now(), &err)

	entryID, err := uuid.Parse(entry.ID)
	if err != nil {
		return fmt.Errorf("invalid entry id: %w", err)
	}

	query := `
		INSERT INTO video_entries (id, owner_id, source_url, title, description, slug,
		                           thumbnail_ref, transcript, position, is_active)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		WHERE (SELECT COUNT(*) FROM video_entries WHERE owner_id = $2) < $11
		RETURNING created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		entryID, entry.OwnerID, entry.SourceURL, entry.Title, entry.Description, entry.Slug,
		entry.ThumbnailRef, entry.Transcript, entry.Position, entry.IsActive, limit,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err == pgx.ErrNoRows {
		return collection.ErrLimitExceeded
	}
	if err != nil {
		return wrapError("insert entry", err)
	}
	return nil
}

// UpdateEntry applies the non-nil fields of upd and returns the stored entry
func (r *Repository) UpdateEntry(ctx context.Context, ownerID, id string, upd models.EntryUpdate) (entry *models.VideoEntry, err error) {
	defer r.observe("update_entry", time.Now(), &err)

	if upd.IsEmpty() {
		return r.GetEntry(ctx, ownerID, id)
	}

	entryID, parseErr := uuid.Parse(id)
	if parseErr != nil {
		return nil, collection.ErrNotFound
	}

	sets, args := updateAssignments(upd)
	args = append(args, ownerID, entryID)
	query := fmt.Sprintf(`
		UPDATE video_entries
		SET %s, updated_at = NOW()
		WHERE owner_id = $%d AND id = $%d
		RETURNING `+entryColumns,
		strings.Join(sets, ", "), len(args)-1, len(args),
	)

	entry, err = scanEntry(r.db.Pool.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return nil, collection.ErrNotFound
	}
	if err != nil {
		return nil, wrapError("update entry", err)
	}
	return entry, nil
}

func updateAssignments(upd models.EntryUpdate) ([]string, []any) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	nullable := func(column string, value *string) {
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = NULLIF($%d, '')", column, len(args)))
	}

	if upd.SourceURL != nil {
		add("source_url", *upd.SourceURL)
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		nullable("description", upd.Description)
	}
	if upd.Slug != nil {
		add("slug", *upd.Slug)
	}
	if upd.ThumbnailRef != nil {
		nullable("thumbnail_ref", upd.ThumbnailRef)
	}
	if upd.Transcript != nil {
		nullable("transcript", upd.Transcript)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	return sets, args
}

// UpdatePositions rewrites positions atomically. The position uniqueness check is deferred to commit.
func (r *Repository) UpdatePositions(ctx context.Context, ownerID string, positions map[string]int) (err error) {
	defer r.observe("update_positions", time.Now(), &err)

	if len(positions) == 0 {
		return nil
	}

	err = r.db.ExecuteInTransaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for id, position := range positions {
			entryID, err := uuid.Parse(id)
			if err != nil {
				return collection.ErrReorderConflict
			}
			batch.Queue(`
				UPDATE video_entries
				SET position = $1, updated_at = NOW()
				WHERE owner_id = $2 AND id = $3
			`, position, ownerID, entryID)
		}

		results := tx.SendBatch(ctx, batch)
		for range positions {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return err
			}
			if tag.RowsAffected() != 1 {
				results.Close()
				return collection.ErrReorderConflict
			}
		}
		return results.Close()
	})
	if err == collection.ErrReorderConflict {
		return err
	}
	if err != nil {
		return wrapError("update positions", err)
	}
	return nil
}

// DeleteEntry removes an entry. Remaining positions keep their gaps.
func (r *Repository) DeleteEntry(ctx context.Context, ownerID, id string) (err error) {
	defer r.observe("delete_entry", time.Now(), &err)

	entryID, parseErr := uuid.Parse(id)
	if parseErr != nil {
		return collection.ErrNotFound
	}

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM video_entries WHERE owner_id = $1 AND id = $2`, ownerID, entryID)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return collection.ErrNotFound
	}
	return nil
}
