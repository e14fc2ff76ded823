package public

import (
	"context"

	"github.com/binyominzeev/vidfaq/internal/logging"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

// ProfileStore finds the profile holding a subdomain, or nil when unclaimed
type ProfileStore interface {
	GetProfileBySubdomain(ctx context.Context, subdomain string) (*models.OwnerProfile, error)
}

// ProfileCache keeps subdomain lookups. A miss returns nil, nil.
type ProfileCache interface {
	GetProfileBySubdomain(ctx context.Context, subdomain string) (*models.OwnerProfile, error)
	SetProfileBySubdomain(ctx context.Context, subdomain string, p *models.OwnerProfile) error
}

// Directory resolves subdomains to profiles through the cache
type Directory struct {
	store  ProfileStore
	cache  ProfileCache
	logger *logging.Logger
}

// NewDirectory creates a directory. cache may be nil.
func NewDirectory(store ProfileStore, cache ProfileCache, logger *logging.Logger) *Directory {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Directory{store: store, cache: cache, logger: logger}
}

// GetProfileBySubdomain returns the claiming profile, or nil when none exists
func (d *Directory) GetProfileBySubdomain(ctx context.Context, subdomain string) (*models.OwnerProfile, error) {
	if d.cache != nil {
		p, err := d.cache.GetProfileBySubdomain(ctx, subdomain)
		if err != nil {
			d.logger.WithError(err).WithField("subdomain", subdomain).Warn("Profile cache read failed")
		}
		if p != nil {
			return p, nil
		}
	}

	p, err := d.store.GetProfileBySubdomain(ctx, subdomain)
	if err != nil || p == nil {
		return p, err
	}

	if d.cache != nil {
		if err := d.cache.SetProfileBySubdomain(ctx, subdomain, p); err != nil {
			d.logger.WithError(err).WithField("subdomain", subdomain).Warn("Profile cache write failed")
		}
	}
	return p, nil
}
