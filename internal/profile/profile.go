package profile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/binyominzeev/vidfaq/internal/collection"
	"github.com/binyominzeev/vidfaq/internal/logging"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

var (
	ErrInvalidSubdomain = fmt.Errorf("%w: invalid subdomain", collection.ErrValidation)
	ErrSubdomainTaken   = errors.New("subdomain is already taken")
)

const (
	maxDisplayNameLength = 50
	maxDescriptionLength = 200
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Store persists owner profiles. Lookups return nil when no profile matches.
// UpsertProfile returns ErrSubdomainTaken when another owner holds the subdomain.
type Store interface {
	GetProfile(ctx context.Context, ownerID string) (*models.OwnerProfile, error)
	GetProfileBySubdomain(ctx context.Context, subdomain string) (*models.OwnerProfile, error)
	UpsertProfile(ctx context.Context, p *models.OwnerProfile) error
}

// Reserver reports subdomain labels that cannot be claimed
type Reserver interface {
	IsReserved(label string) bool
}

// Invalidator drops cached views after a profile change
type Invalidator interface {
	InvalidateOwner(ctx context.Context, ownerID string) error
	InvalidateSubdomain(ctx context.Context, subdomain string) error
}

// UpdateProfileInput is a partial profile edit. An empty subdomain releases the claim.
type UpdateProfileInput struct {
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
	Subdomain   *string `json:"subdomain,omitempty"`
}

// Validate checks display name and description constraints
func (in UpdateProfileInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.DisplayName,
			validation.When(in.DisplayName != nil, validation.Required.Error("display name cannot be empty")),
			validation.RuneLength(0, maxDisplayNameLength),
		),
		validation.Field(&in.Description, validation.RuneLength(0, maxDescriptionLength)),
	)
}

// Service reads and edits owner profiles
type Service struct {
	store        Store
	reserved     Reserver
	views        Invalidator
	logger       *logging.Logger
	defaultLimit int
}

// NewService creates a new profile service. reserved and views may be nil.
func NewService(store Store, defaultLimit int, reserved Reserver, views Invalidator, logger *logging.Logger) *Service {
	if defaultLimit <= 0 {
		defaultLimit = models.DefaultVideoLimit
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		store:        store,
		reserved:     reserved,
		views:        views,
		logger:       logger,
		defaultLimit: defaultLimit,
	}
}

// Get returns the owner's profile, creating a default one on first access
func (s *Service) Get(ctx context.Context, ownerID string) (*models.OwnerProfile, error) {
	p, err := s.store.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, storeError("get profile", err)
	}
	if p != nil {
		return p, nil
	}

	p = &models.OwnerProfile{
		OwnerID:    ownerID,
		VideoLimit: s.defaultLimit,
	}
	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return nil, storeError("create profile", err)
	}

	s.logger.WithOwnerID(ownerID).Info("Created default profile")
	return p, nil
}

// Update edits display fields and claims or releases a subdomain
func (s *Service) Update(ctx context.Context, ownerID string, in UpdateProfileInput) (*models.OwnerProfile, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", collection.ErrValidation, err)
	}
	if in.Subdomain != nil && *in.Subdomain != "" {
		if err := s.ValidateSubdomain(*in.Subdomain); err != nil {
			return nil, err
		}
	}

	current, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	previous := current.SubdomainValue()

	if in.Subdomain != nil && *in.Subdomain != "" && *in.Subdomain != previous {
		holder, err := s.store.GetProfileBySubdomain(ctx, *in.Subdomain)
		if err != nil {
			return nil, storeError("get profile by subdomain", err)
		}
		if holder != nil && holder.OwnerID != ownerID {
			return nil, ErrSubdomainTaken
		}
	}

	updated := *current
	if in.DisplayName != nil {
		updated.DisplayName = *in.DisplayName
	}
	if in.Description != nil {
		updated.Description = nil
		if *in.Description != "" {
			updated.Description = in.Description
		}
	}
	if in.Subdomain != nil {
		updated.Subdomain = nil
		if *in.Subdomain != "" {
			updated.Subdomain = in.Subdomain
		}
	}

	if err := s.store.UpsertProfile(ctx, &updated); err != nil {
		return nil, storeError("update profile", err)
	}

	s.invalidate(ctx, ownerID, previous, updated.SubdomainValue())
	return &updated, nil
}

// ValidateSubdomain checks that label is a claimable DNS label
func (s *Service) ValidateSubdomain(label string) error {
	if !subdomainPattern.MatchString(label) {
		return fmt.Errorf("%w: %q must be 1-63 lowercase letters, digits or hyphens", ErrInvalidSubdomain, label)
	}
	if s.reserved != nil && s.reserved.IsReserved(label) {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidSubdomain, label)
	}
	return nil
}

func (in *UpdateProfileInput) normalize() {
	if in.DisplayName != nil {
		v := strings.TrimSpace(*in.DisplayName)
		in.DisplayName = &v
	}
	if in.Description != nil {
		v := strings.TrimSpace(*in.Description)
		in.Description = &v
	}
	if in.Subdomain != nil {
		v := strings.ToLower(strings.TrimSpace(*in.Subdomain))
		in.Subdomain = &v
	}
}

func (s *Service) invalidate(ctx context.Context, ownerID string, subdomains ...string) {
	if s.views == nil {
		return
	}
	if err := s.views.InvalidateOwner(ctx, ownerID); err != nil {
		s.logger.WithOwnerID(ownerID).WithError(err).Warn("Failed to invalidate gallery cache")
	}
	for _, sub := range subdomains {
		if sub == "" {
			continue
		}
		if err := s.views.InvalidateSubdomain(ctx, sub); err != nil {
			s.logger.WithField("subdomain", sub).WithError(err).Warn("Failed to invalidate profile cache")
		}
	}
}

func storeError(op string, err error) error {
	if errors.Is(err, ErrSubdomainTaken) || errors.Is(err, collection.ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", collection.ErrStore, op, err)
}
