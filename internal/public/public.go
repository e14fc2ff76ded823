// Package public serves the published side of a tenant: its gallery and video detail pages.
package public

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/binyominzeev/vidfaq/internal/collection"
	"github.com/binyominzeev/vidfaq/internal/logging"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

// EntryStore reads the published entries of an owner
type EntryStore interface {
	ListActiveEntries(ctx context.Context, ownerID string) ([]*models.VideoEntry, error)
	GetEntryBySlug(ctx context.Context, ownerID, slug string) (*models.VideoEntry, error)
}

// GalleryCache keeps computed galleries. A miss returns nil, nil.
type GalleryCache interface {
	GetGallery(ctx context.Context, ownerID string) ([]*models.VideoEntry, error)
	SetGallery(ctx context.Context, ownerID string, entries []*models.VideoEntry) error
}

// Service builds public views
type Service struct {
	store  EntryStore
	cache  GalleryCache
	logger *logging.Logger
}

// NewService creates a public service. cache may be nil.
func NewService(store EntryStore, cache GalleryCache, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// Gallery returns the profile header and the visible entries in display order
func (s *Service) Gallery(ctx context.Context, profile *models.OwnerProfile) (*models.Gallery, error) {
	if profile == nil {
		return nil, collection.ErrNotFound
	}
	log := s.logger.WithOwnerID(profile.OwnerID)

	if s.cache != nil {
		cached, err := s.cache.GetGallery(ctx, profile.OwnerID)
		if err != nil {
			log.WithError(err).Warn("Gallery cache read failed")
		}
		if cached != nil {
			return &models.Gallery{Profile: profile, Videos: cached}, nil
		}
	}

	entries, err := s.store.ListActiveEntries(ctx, profile.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: gallery: %w", collection.ErrStore, err)
	}
	videos := collection.PublicView(entries)

	if s.cache != nil {
		if err := s.cache.SetGallery(ctx, profile.OwnerID, videos); err != nil {
			log.WithError(err).Warn("Gallery cache write failed")
		}
	}

	return &models.Gallery{Profile: profile, Videos: videos}, nil
}

// Video returns the active entry with slug in the owner's collection
func (s *Service) Video(ctx context.Context, profile *models.OwnerProfile, slug string) (*models.VideoEntry, error) {
	if profile == nil || slug == "" {
		return nil, collection.ErrNotFound
	}

	entry, err := s.store.GetEntryBySlug(ctx, profile.OwnerID, slug)
	if err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: video: %w", collection.ErrStore, err)
	}
	if !entry.IsActive || entry.OwnerID != profile.OwnerID {
		return nil, collection.ErrNotFound
	}
	return entry, nil
}

var tiktokVideoID = regexp.MustCompile(`video/(\d+)`)

// VideoID extracts the numeric TikTok video id from a source URL
func VideoID(sourceURL string) string {
	m := tiktokVideoID.FindStringSubmatch(sourceURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// EmbedURL returns the embeddable player URL, or an empty string for non-TikTok sources
func EmbedURL(sourceURL string) string {
	id := VideoID(sourceURL)
	if id == "" {
		return ""
	}
	return "https://www.tiktok.com/embed/v2/" + id
}
