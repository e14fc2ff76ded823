package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/binyominzeev/vidfaq/internal/metrics"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

const (
	defaultGalleryTTL = 5 * time.Minute
	defaultProfileTTL = time.Minute
)

// Cache provides caching of public views using Redis
type Cache struct {
	client     *redis.Client
	galleryTTL time.Duration
	profileTTL time.Duration
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client:     client,
		galleryTTL: defaultGalleryTTL,
		profileTTL: defaultProfileTTL,
	}, nil
}

// WithTTL overrides the expiry of cached galleries and profiles. Zero keeps the current value.
func (c *Cache) WithTTL(gallery, profile time.Duration) *Cache {
	if gallery > 0 {
		c.galleryTTL = gallery
	}
	if profile > 0 {
		c.profileTTL = profile
	}
	return c
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

func galleryKey(ownerID string) string {
	return fmt.Sprintf("gallery:%s", ownerID)
}

func profileKey(subdomain string) string {
	return fmt.Sprintf("profile:subdomain:%s", subdomain)
}

// Gallery Cache Operations

// SetGallery caches the visible entries of an owner
func (c *Cache) SetGallery(ctx context.Context, ownerID string, entries []*models.VideoEntry) error {
	return c.setJSON(ctx, galleryKey(ownerID), entries, c.galleryTTL)
}

// GetGallery retrieves cached visible entries. A miss returns nil, nil.
func (c *Cache) GetGallery(ctx context.Context, ownerID string) ([]*models.VideoEntry, error) {
	var entries []*models.VideoEntry
	hit, err := c.getJSON(ctx, galleryKey(ownerID), &entries)
	metrics.RecordCacheAccess("gallery", hit)
	if err != nil || !hit {
		return nil, err
	}
	if entries == nil {
		entries = []*models.VideoEntry{}
	}
	return entries, nil
}

// InvalidateOwner drops the cached gallery of an owner
func (c *Cache) InvalidateOwner(ctx context.Context, ownerID string) error {
	return c.client.Del(ctx, galleryKey(ownerID)).Err()
}

// Profile Cache Operations

// SetProfileBySubdomain caches the profile that holds a subdomain
func (c *Cache) SetProfileBySubdomain(ctx context.Context, subdomain string, p *models.OwnerProfile) error {
	return c.setJSON(ctx, profileKey(subdomain), p, c.profileTTL)
}

// GetProfileBySubdomain retrieves a cached profile. A miss returns nil, nil.
func (c *Cache) GetProfileBySubdomain(ctx context.Context, subdomain string) (*models.OwnerProfile, error) {
	var p models.OwnerProfile
	hit, err := c.getJSON(ctx, profileKey(subdomain), &p)
	metrics.RecordCacheAccess("profile", hit)
	if err != nil || !hit {
		return nil, err
	}
	return &p, nil
}

// InvalidateSubdomain drops the cached profile of a subdomain
func (c *Cache) InvalidateSubdomain(ctx context.Context, subdomain string) error {
	return c.client.Del(ctx, profileKey(subdomain)).Err()
}

// Rate Limiting Operations

// CheckRateLimit reports whether key is still within limit for the current window
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	rateLimitKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := c.client.Incr(ctx, rateLimitKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := c.client.Expire(ctx, rateLimitKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set expiry: %w", err)
		}
	}

	return count <= limit, nil
}

// Locking Operations

// AcquireLock attempts to acquire a lock on resource
func (c *Cache) AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.SetNX(ctx, key, "locked", ttl).Result()
}

// ReleaseLock releases a lock on resource
func (c *Cache) ReleaseLock(ctx context.Context, resource string) error {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.Del(ctx, key).Err()
}

func (c *Cache) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *Cache) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil // Cache miss
		}
		return false, fmt.Errorf("failed to get value from cache: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return true, nil
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
