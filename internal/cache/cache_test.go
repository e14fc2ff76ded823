package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/binyominzeev/vidfaq/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	if err := cache.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewCacheUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	host, port := mr.Host(), mr.Server().Addr().Port
	mr.Close()

	if _, err := NewCache(host, port, "", 0); err == nil {
		t.Fatal("Expected connection error")
	}
}

func TestCache_GalleryOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	got, err := cache.GetGallery(ctx, "owner-1")
	if err != nil {
		t.Fatalf("GetGallery failed: %v", err)
	}
	if got != nil {
		t.Fatal("Expected cache miss")
	}

	entries := []*models.VideoEntry{
		{ID: "a", OwnerID: "owner-1", Title: "First", Slug: "first", Position: 0, IsActive: true},
		{ID: "b", OwnerID: "owner-1", Title: "Second", Slug: "second", Position: 2, IsActive: true},
	}
	if err := cache.SetGallery(ctx, "owner-1", entries); err != nil {
		t.Fatalf("SetGallery failed: %v", err)
	}

	got, err = cache.GetGallery(ctx, "owner-1")
	if err != nil {
		t.Fatalf("GetGallery failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].Slug != "second" {
		t.Errorf("Unexpected gallery: %+v", got)
	}

	if ttl := mr.TTL(galleryKey("owner-1")); ttl != defaultGalleryTTL {
		t.Errorf("Expected TTL %v, got %v", defaultGalleryTTL, ttl)
	}

	if err := cache.InvalidateOwner(ctx, "owner-1"); err != nil {
		t.Fatalf("InvalidateOwner failed: %v", err)
	}
	got, _ = cache.GetGallery(ctx, "owner-1")
	if got != nil {
		t.Error("Gallery should be invalidated")
	}
}

func TestCache_EmptyGalleryIsHit(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	if err := cache.SetGallery(ctx, "owner-1", []*models.VideoEntry{}); err != nil {
		t.Fatalf("SetGallery failed: %v", err)
	}

	got, err := cache.GetGallery(ctx, "owner-1")
	if err != nil {
		t.Fatalf("GetGallery failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil gallery, got %v", got)
	}
}

func TestCache_ProfileOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	cache.WithTTL(0, 30*time.Second)
	ctx := context.Background()

	sub := "alice"
	p := &models.OwnerProfile{OwnerID: "owner-1", DisplayName: "Alice", Subdomain: &sub, VideoLimit: 10}
	if err := cache.SetProfileBySubdomain(ctx, sub, p); err != nil {
		t.Fatalf("SetProfileBySubdomain failed: %v", err)
	}

	got, err := cache.GetProfileBySubdomain(ctx, sub)
	if err != nil {
		t.Fatalf("GetProfileBySubdomain failed: %v", err)
	}
	if got == nil || got.OwnerID != "owner-1" || got.SubdomainValue() != "alice" {
		t.Errorf("Unexpected profile: %+v", got)
	}
	if ttl := mr.TTL(profileKey(sub)); ttl != 30*time.Second {
		t.Errorf("Expected TTL 30s, got %v", ttl)
	}

	mr.FastForward(31 * time.Second)
	got, _ = cache.GetProfileBySubdomain(ctx, sub)
	if got != nil {
		t.Error("Profile should have expired")
	}

	_ = cache.SetProfileBySubdomain(ctx, sub, p)
	if err := cache.InvalidateSubdomain(ctx, sub); err != nil {
		t.Fatalf("InvalidateSubdomain failed: %v", err)
	}
	got, _ = cache.GetProfileBySubdomain(ctx, sub)
	if got != nil {
		t.Error("Profile should be invalidated")
	}
}

func TestCache_CorruptEntry(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	if err := mr.Set(galleryKey("owner-1"), "not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.GetGallery(context.Background(), "owner-1"); err == nil {
		t.Error("Expected unmarshal error")
	}
}

func TestCache_RateLimit(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := cache.CheckRateLimit(ctx, "owner-1", 3, time.Minute)
		if err != nil {
			t.Fatalf("CheckRateLimit failed: %v", err)
		}
		if !ok {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}

	ok, _ := cache.CheckRateLimit(ctx, "owner-1", 3, time.Minute)
	if ok {
		t.Error("Fourth request should be limited")
	}

	mr.FastForward(time.Minute + time.Second)
	ok, _ = cache.CheckRateLimit(ctx, "owner-1", 3, time.Minute)
	if !ok {
		t.Error("Limit should reset after the window")
	}
}

func TestCache_Lock(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	ok, err := cache.AcquireLock(ctx, "caption:a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("AcquireLock failed: %v %v", ok, err)
	}

	ok, _ = cache.AcquireLock(ctx, "caption:a", time.Minute)
	if ok {
		t.Error("Lock should already be held")
	}

	if err := cache.ReleaseLock(ctx, "caption:a"); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	ok, _ = cache.AcquireLock(ctx, "caption:a", time.Minute)
	if !ok {
		t.Error("Lock should be free after release")
	}
}
