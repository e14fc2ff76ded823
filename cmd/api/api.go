package main

import (
	"context"

	"github.com/binyominzeev/vidfaq/internal/collection"
	"github.com/binyominzeev/vidfaq/internal/logging"
	"github.com/binyominzeev/vidfaq/internal/middleware"
	"github.com/binyominzeev/vidfaq/internal/profile"
	"github.com/binyominzeev/vidfaq/internal/tenant"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

// CollectionService runs owner-scoped collection operations
type CollectionService interface {
	List(ctx context.Context, ownerID string) ([]*models.VideoEntry, error)
	Create(ctx context.Context, ownerID string, in collection.CreateEntryInput) (*models.VideoEntry, error)
	Update(ctx context.Context, ownerID, id string, in collection.UpdateEntryInput) (*models.VideoEntry, error)
	SetActive(ctx context.Context, ownerID, id string, active bool) (*models.VideoEntry, error)
	Toggle(ctx context.Context, ownerID, id string) (*models.VideoEntry, error)
	Delete(ctx context.Context, ownerID, id string) error
	Reorder(ctx context.Context, ownerID string, in collection.ReorderInput) ([]*models.VideoEntry, error)
	Reindex(ctx context.Context, ownerID string) ([]*models.VideoEntry, error)
	RefreshThumbnail(ctx context.Context, ownerID, id string) (*models.VideoEntry, error)
	PreviewThumbnail(ctx context.Context, ownerID, sourceURL string) (string, error)
}

// ProfileService reads and edits owner profiles
type ProfileService interface {
	Get(ctx context.Context, ownerID string) (*models.OwnerProfile, error)
	Update(ctx context.Context, ownerID string, in profile.UpdateProfileInput) (*models.OwnerProfile, error)
}

// PublicService builds tenant views
type PublicService interface {
	Gallery(ctx context.Context, p *models.OwnerProfile) (*models.Gallery, error)
	Video(ctx context.Context, p *models.OwnerProfile, slug string) (*models.VideoEntry, error)
}

// TenantResolver maps a host and path to a tenant
type TenantResolver interface {
	Resolve(ctx context.Context, host, path string) (*tenant.Resolution, error)
}

// ThumbnailLinker checks and signs thumbnail object URLs
type ThumbnailLinker interface {
	Exists(ctx context.Context, objectName string) (bool, error)
	GetURL(ctx context.Context, objectName string) (string, error)
}

// HealthChecker reports backing store health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// API holds the HTTP handlers and their collaborators
type API struct {
	collection CollectionService
	profiles   ProfileService
	public     PublicService
	tenants    TenantResolver
	thumbnails ThumbnailLinker
	health     HealthChecker
	auth       *middleware.Authenticator
	limiter    *middleware.RateLimiter
	quota      middleware.QuotaChecker
	baseDomain string
	logger     *logging.Logger
}
