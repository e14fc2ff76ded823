package collection

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/binyominzeev/vidfaq/internal/logging"
	"github.com/binyominzeev/vidfaq/internal/metrics"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

// Store persists the entries of one owner's collection.
// GetEntry and UpdateEntry return ErrNotFound for unknown ids. InsertEntry returns
// ErrLimitExceeded when the owner already holds limit entries and ErrDuplicateTitle
// when the slug is taken.
type Store interface {
	ListEntries(ctx context.Context, ownerID string) ([]*models.VideoEntry, error)
	GetEntry(ctx context.Context, ownerID, id string) (*models.VideoEntry, error)
	InsertEntry(ctx context.Context, entry *models.VideoEntry, limit int) error
	UpdateEntry(ctx context.Context, ownerID, id string, upd models.EntryUpdate) (*models.VideoEntry, error)
	UpdatePositions(ctx context.Context, ownerID string, positions map[string]int) error
	DeleteEntry(ctx context.Context, ownerID, id string) error
}

// ProfileReader returns an owner's profile, or nil when none exists yet
type ProfileReader interface {
	GetProfile(ctx context.Context, ownerID string) (*models.OwnerProfile, error)
}

// ThumbnailFetcher fetches a thumbnail for a source URL and stores it under keyPrefix
type ThumbnailFetcher interface {
	StoreThumbnail(ctx context.Context, sourceURL, keyPrefix string) (string, error)
	RemoveThumbnail(ctx context.Context, key string) error
}

// CaptionScheduler enqueues asynchronous caption fetches
type CaptionScheduler interface {
	PublishCaptionJob(ctx context.Context, job *models.CaptionJob) error
}

// ViewInvalidator drops cached public views of an owner
type ViewInvalidator interface {
	InvalidateOwner(ctx context.Context, ownerID string) error
}

// Config holds collection service settings
type Config struct {
	DefaultVideoLimit int
	FetchTimeout      time.Duration
}

// Dependencies are the collaborators of the service. Only Store and Profiles are required.
type Dependencies struct {
	Store      Store
	Profiles   ProfileReader
	Thumbnails ThumbnailFetcher
	Captions   CaptionScheduler
	Views      ViewInvalidator
	Logger     *logging.Logger
}

// Service runs owner-scoped collection operations: compute the next state, then persist it
type Service struct {
	store      Store
	profiles   ProfileReader
	thumbnails ThumbnailFetcher
	captions   CaptionScheduler
	views      ViewInvalidator
	logger     *logging.Logger
	cfg        Config
}

// NewService creates a new collection service
func NewService(cfg Config, deps Dependencies) *Service {
	if cfg.DefaultVideoLimit <= 0 {
		cfg.DefaultVideoLimit = models.DefaultVideoLimit
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Service{
		store:      deps.Store,
		profiles:   deps.Profiles,
		thumbnails: deps.Thumbnails,
		captions:   deps.Captions,
		views:      deps.Views,
		logger:     logger,
		cfg:        cfg,
	}
}

// List returns every entry of the owner in display order, hidden ones included
func (s *Service) List(ctx context.Context, ownerID string) ([]*models.VideoEntry, error) {
	entries, err := s.store.ListEntries(ctx, ownerID)
	if err != nil {
		return nil, storeError("list entries", err)
	}
	SortByPosition(entries)
	return entries, nil
}

// Create adds a video to the end of the owner's collection
func (s *Service) Create(ctx context.Context, ownerID string, in CreateEntryInput) (entry *models.VideoEntry, err error) {
	defer func() { metrics.RecordCollectionOperation("create", err) }()

	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if NormalizeSlug(in.Title) == "" {
		return nil, ErrEmptySlug
	}

	limit, err := s.videoLimit(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.ListEntries(ctx, ownerID)
	if err != nil {
		return nil, storeError("list entries", err)
	}
	if len(entries) >= limit {
		return nil, fmt.Errorf("%w: %d of %d videos used", ErrLimitExceeded, len(entries), limit)
	}

	slug, err := AllocateSlug(in.Title, SlugSet(entries, ""))
	if err != nil {
		return nil, err
	}

	entry = &models.VideoEntry{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		SourceURL:   in.SourceURL,
		Title:       in.Title,
		Description: emptyToNil(in.Description),
		Slug:        slug,
		Position:    NextPosition(entries),
		IsActive:    true,
	}
	adopted := in.ThumbnailKey != nil
	if adopted {
		if !isPreviewKey(ownerID, *in.ThumbnailKey) {
			return nil, fmt.Errorf("%w: thumbnail key is not a preview of this owner", ErrValidation)
		}
		entry.ThumbnailRef = in.ThumbnailKey
	} else {
		entry.ThumbnailRef = s.fetchThumbnail(ctx, entry)
	}

	if err := s.store.InsertEntry(ctx, entry, limit); err != nil {
		// an adopted preview stays available for a retried create
		if entry.ThumbnailRef != nil && !adopted {
			s.removeThumbnail(ctx, *entry.ThumbnailRef)
		}
		return nil, storeError("insert entry", err)
	}

	s.logger.WithOwnerID(ownerID).WithEntryID(entry.ID).Infof("Video %q added at position %d", entry.Slug, entry.Position)
	s.scheduleCaption(ctx, entry)
	s.invalidate(ctx, ownerID)

	return entry, nil
}

// Update applies a partial edit. A slug edit is normalized and must stay unique.
func (s *Service) Update(ctx context.Context, ownerID, id string, in UpdateEntryInput) (entry *models.VideoEntry, err error) {
	defer func() { metrics.RecordCollectionOperation("update", err) }()

	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	upd := models.EntryUpdate{
		SourceURL:   in.SourceURL,
		Title:       in.Title,
		Description: in.Description,
	}

	if in.Slug != nil {
		entries, err := s.store.ListEntries(ctx, ownerID)
		if err != nil {
			return nil, storeError("list entries", err)
		}
		if findEntry(entries, id) == nil {
			return nil, ErrNotFound
		}
		slug, err := AllocateSlug(*in.Slug, SlugSet(entries, id))
		if err != nil {
			return nil, err
		}
		upd.Slug = &slug
	}

	entry, err = s.store.UpdateEntry(ctx, ownerID, id, upd)
	if err != nil {
		return nil, storeError("update entry", err)
	}

	s.invalidate(ctx, ownerID)
	return entry, nil
}

// SetActive shows or hides an entry on the public page
func (s *Service) SetActive(ctx context.Context, ownerID, id string, active bool) (entry *models.VideoEntry, err error) {
	defer func() { metrics.RecordCollectionOperation("set_active", err) }()

	entry, err = s.store.UpdateEntry(ctx, ownerID, id, models.EntryUpdate{IsActive: &active})
	if err != nil {
		return nil, storeError("update entry", err)
	}

	s.invalidate(ctx, ownerID)
	return entry, nil
}

// Toggle flips the visibility of an entry
func (s *Service) Toggle(ctx context.Context, ownerID, id string) (*models.VideoEntry, error) {
	current, err := s.store.GetEntry(ctx, ownerID, id)
	if err != nil {
		return nil, storeError("get entry", err)
	}
	return s.SetActive(ctx, ownerID, id, !current.IsActive)
}

// Delete removes an entry. Remaining positions are not renumbered.
func (s *Service) Delete(ctx context.Context, ownerID, id string) (err error) {
	defer func() { metrics.RecordCollectionOperation("delete", err) }()

	entry, err := s.store.GetEntry(ctx, ownerID, id)
	if err != nil {
		return storeError("get entry", err)
	}

	if err := s.store.DeleteEntry(ctx, ownerID, id); err != nil {
		return storeError("delete entry", err)
	}

	if entry.ThumbnailRef != nil {
		s.removeThumbnail(ctx, *entry.ThumbnailRef)
	}
	s.invalidate(ctx, ownerID)
	return nil
}

// Reorder moves one entry and persists the changed positions. When persistence fails
// the store is re-read and its order is returned alongside an ErrStore error.
func (s *Service) Reorder(ctx context.Context, ownerID string, in ReorderInput) (order []*models.VideoEntry, err error) {
	defer func() { metrics.RecordCollectionOperation("reorder", err) }()

	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	entries, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	result, err := Reorder(entries, in.EntryID, in.FromIndex, in.ToIndex)
	if err != nil {
		return nil, err
	}

	return s.persistPositions(ctx, ownerID, result)
}

// Reindex rewrites positions to 0..N-1 in current order
func (s *Service) Reindex(ctx context.Context, ownerID string) (order []*models.VideoEntry, err error) {
	defer func() { metrics.RecordCollectionOperation("reindex", err) }()

	entries, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return s.persistPositions(ctx, ownerID, Reindex(entries))
}

// RefreshThumbnail fetches the thumbnail of an existing entry again
func (s *Service) RefreshThumbnail(ctx context.Context, ownerID, id string) (entry *models.VideoEntry, err error) {
	defer func() { metrics.RecordCollectionOperation("refresh_thumbnail", err) }()

	current, err := s.store.GetEntry(ctx, ownerID, id)
	if err != nil {
		return nil, storeError("get entry", err)
	}

	ref := s.fetchThumbnail(ctx, current)
	if ref == nil {
		return nil, ErrThumbnailUnavailable
	}

	entry, err = s.store.UpdateEntry(ctx, ownerID, id, models.EntryUpdate{ThumbnailRef: ref})
	if err != nil {
		s.removeThumbnail(ctx, *ref)
		return nil, storeError("update entry", err)
	}

	if current.ThumbnailRef != nil && *current.ThumbnailRef != *ref {
		s.removeThumbnail(ctx, *current.ThumbnailRef)
	}
	s.invalidate(ctx, ownerID)
	return entry, nil
}

// PreviewThumbnail fetches a thumbnail for a URL that is not yet part of the collection
func (s *Service) PreviewThumbnail(ctx context.Context, ownerID, sourceURL string) (string, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if err := validateSourceURL(sourceURL); err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if s.thumbnails == nil {
		return "", ErrThumbnailUnavailable
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	key, err := s.thumbnails.StoreThumbnail(fetchCtx, sourceURL, previewPrefix(ownerID)+uuid.New().String())
	if err != nil {
		s.logger.WithOwnerID(ownerID).WithError(err).Warn("Thumbnail preview failed")
		return "", fmt.Errorf("%w: %w", ErrThumbnailUnavailable, err)
	}
	return key, nil
}

func (s *Service) persistPositions(ctx context.Context, ownerID string, result *ReorderResult) ([]*models.VideoEntry, error) {
	if len(result.Positions) == 0 {
		return result.Entries, nil
	}

	if err := s.store.UpdatePositions(ctx, ownerID, result.Positions); err != nil {
		s.logger.WithOwnerID(ownerID).WithError(err).Error("Failed to persist positions")

		current, readErr := s.store.ListEntries(ctx, ownerID)
		if readErr != nil {
			return nil, storeError("update positions", errors.Join(err, readErr))
		}
		SortByPosition(current)
		return current, storeError("update positions", err)
	}

	s.invalidate(ctx, ownerID)
	return result.Entries, nil
}

func (s *Service) videoLimit(ctx context.Context, ownerID string) (int, error) {
	profile, err := s.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		return 0, storeError("get profile", err)
	}
	if profile == nil {
		return s.cfg.DefaultVideoLimit, nil
	}
	return profile.VideoLimit, nil
}

func previewPrefix(ownerID string) string {
	return fmt.Sprintf("thumbnails/%s/preview-", ownerID)
}

// isPreviewKey reports whether key names a preview object uploaded for ownerID
func isPreviewKey(ownerID, key string) bool {
	prefix := previewPrefix(ownerID)
	return strings.HasPrefix(key, prefix) &&
		len(key) > len(prefix) &&
		path.Clean(key) == key &&
		!strings.Contains(key[len(prefix):], "/")
}

func (s *Service) fetchThumbnail(ctx context.Context, entry *models.VideoEntry) *string {
	if s.thumbnails == nil {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	key, err := s.thumbnails.StoreThumbnail(fetchCtx, entry.SourceURL, fmt.Sprintf("thumbnails/%s/%s", entry.OwnerID, entry.ID))
	if err != nil {
		s.logger.WithOwnerID(entry.OwnerID).WithEntryID(entry.ID).WithError(err).Warn("Thumbnail fetch failed, continuing without thumbnail")
		return nil
	}
	return &key
}

func (s *Service) removeThumbnail(ctx context.Context, key string) {
	if s.thumbnails == nil {
		return
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.thumbnails.RemoveThumbnail(cleanupCtx, key); err != nil {
		s.logger.WithField("key", key).WithError(err).Warn("Failed to remove thumbnail")
	}
}

func (s *Service) scheduleCaption(ctx context.Context, entry *models.VideoEntry) {
	if s.captions == nil {
		return
	}

	job := &models.CaptionJob{
		EntryID:     entry.ID,
		OwnerID:     entry.OwnerID,
		SourceURL:   entry.SourceURL,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.captions.PublishCaptionJob(ctx, job); err != nil {
		s.logger.WithEntryID(entry.ID).WithError(err).Warn("Failed to schedule caption fetch")
		metrics.RecordCaptionJob("publish_failed")
		return
	}
	metrics.RecordCaptionJob("published")
}

func (s *Service) invalidate(ctx context.Context, ownerID string) {
	if s.views == nil {
		return
	}
	if err := s.views.InvalidateOwner(ctx, ownerID); err != nil {
		s.logger.WithOwnerID(ownerID).WithError(err).Warn("Failed to invalidate public view cache")
	}
}

// storeError passes domain errors through and classifies everything else as ErrStore
func storeError(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStore) || IsConflict(err) || IsValidation(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

func findEntry(entries []*models.VideoEntry, id string) *models.VideoEntry {
	for _, e := range entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
