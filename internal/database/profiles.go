package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/binyominzeev/vidfaq/pkg/models"
)

const profileColumns = `owner_id, display_name, description, subdomain, video_limit, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.OwnerProfile, error) {
	var p models.OwnerProfile
	err := row.Scan(
		&p.OwnerID, &p.DisplayName, &p.Description, &p.Subdomain,
		&p.VideoLimit, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile retrieves an owner's profile, or nil when none exists
func (r *Repository) GetProfile(ctx context.Context, ownerID string) (p *models.OwnerProfile, err error) {
	defer r.observe("get_profile", time.Now(), &err)

	p, err = scanProfile(r.db.Pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE owner_id = $1
	`, ownerID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetProfileBySubdomain retrieves the profile holding a subdomain, or nil when unclaimed
func (r *Repository) GetProfileBySubdomain(ctx context.Context, subdomain string) (p *models.OwnerProfile, err error) {
	defer r.observe("get_profile_by_subdomain", time.Now(), &err)

	p, err = scanProfile(r.db.Pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE subdomain = $1
	`, subdomain))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by subdomain: %w", err)
	}
	return p, nil
}

// upsertProfileQuery leaves video_limit of an existing row untouched
const upsertProfileQuery = `
	INSERT INTO profiles (owner_id, display_name, description, subdomain, video_limit)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (owner_id) DO UPDATE
	SET display_name = EXCLUDED.display_name,
	    description = EXCLUDED.description,
	    subdomain = EXCLUDED.subdomain,
	    updated_at = NOW()
	RETURNING video_limit, created_at, updated_at
`

// UpsertProfile creates or updates an owner's profile. p.VideoLimit is only
// written on insert and is refreshed from the stored row.
func (r *Repository) UpsertProfile(ctx context.Context, p *models.OwnerProfile) (err error) {
	defer r.observe("upsert_profile", time.Now(), &err)

	err = r.db.Pool.QueryRow(ctx, upsertProfileQuery,
		p.OwnerID, p.DisplayName, p.Description, p.Subdomain, p.VideoLimit,
	).Scan(&p.VideoLimit, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return wrapError("upsert profile", err)
	}
	return nil
}
