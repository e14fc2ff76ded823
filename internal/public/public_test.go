package public

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binyominzeev/vidfaq/internal/cache"
	"github.com/binyominzeev/vidfaq/internal/collection"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

type memoryEntries struct {
	entries  []*models.VideoEntry
	listErr  error
	listHits int
}

func (m *memoryEntries) ListActiveEntries(_ context.Context, ownerID string) ([]*models.VideoEntry, error) {
	m.listHits++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.VideoEntry
	for _, e := range m.entries {
		if e.OwnerID == ownerID && e.IsActive {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (m *memoryEntries) GetEntryBySlug(_ context.Context, ownerID, slug string) (*models.VideoEntry, error) {
	for _, e := range m.entries {
		if e.OwnerID == ownerID && e.Slug == slug {
			return e.Clone(), nil
		}
	}
	return nil, collection.ErrNotFound
}

func newCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleEntries() []*models.VideoEntry {
	return []*models.VideoEntry{
		{ID: "a", OwnerID: "alice", Slug: "first", Position: 2, IsActive: true},
		{ID: "b", OwnerID: "alice", Slug: "hidden", Position: 0, IsActive: false},
		{ID: "c", OwnerID: "alice", Slug: "second", Position: 0, IsActive: true},
		{ID: "d", OwnerID: "bob", Slug: "first", Position: 1, IsActive: true},
	}
}

var alice = &models.OwnerProfile{OwnerID: "alice", DisplayName: "Alice"}

func TestGallery(t *testing.T) {
	store := &memoryEntries{entries: sampleEntries()}
	svc := NewService(store, nil, nil)

	gallery, err := svc.Gallery(context.Background(), alice)
	require.NoError(t, err)
	assert.Same(t, alice, gallery.Profile)
	require.Len(t, gallery.Videos, 2)
	assert.Equal(t, "c", gallery.Videos[0].ID)
	assert.Equal(t, "a", gallery.Videos[1].ID)
}

func TestGalleryEmpty(t *testing.T) {
	svc := NewService(&memoryEntries{}, nil, nil)

	gallery, err := svc.Gallery(context.Background(), alice)
	require.NoError(t, err)
	assert.NotNil(t, gallery.Videos)
	assert.Empty(t, gallery.Videos)
}

func TestGalleryCached(t *testing.T) {
	store := &memoryEntries{entries: sampleEntries()}
	c := newCache(t)
	svc := NewService(store, c, nil)
	ctx := context.Background()

	first, err := svc.Gallery(ctx, alice)
	require.NoError(t, err)
	second, err := svc.Gallery(ctx, alice)
	require.NoError(t, err)

	assert.Equal(t, 1, store.listHits)
	assert.Equal(t, ids(first.Videos), ids(second.Videos))

	require.NoError(t, c.InvalidateOwner(ctx, "alice"))
	_, err = svc.Gallery(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, store.listHits)
}

func TestGalleryStoreFailure(t *testing.T) {
	svc := NewService(&memoryEntries{listErr: errors.New("db down")}, nil, nil)

	_, err := svc.Gallery(context.Background(), alice)
	assert.ErrorIs(t, err, collection.ErrStore)

	_, err = svc.Gallery(context.Background(), nil)
	assert.ErrorIs(t, err, collection.ErrNotFound)
}

func TestVideo(t *testing.T) {
	svc := NewService(&memoryEntries{entries: sampleEntries()}, nil, nil)
	ctx := context.Background()

	entry, err := svc.Video(ctx, alice, "first")
	require.NoError(t, err)
	assert.Equal(t, "a", entry.ID)

	_, err = svc.Video(ctx, alice, "hidden")
	assert.ErrorIs(t, err, collection.ErrNotFound)

	_, err = svc.Video(ctx, alice, "missing")
	assert.ErrorIs(t, err, collection.ErrNotFound)

	_, err = svc.Video(ctx, alice, "")
	assert.ErrorIs(t, err, collection.ErrNotFound)
}

func TestEmbedURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.tiktok.com/@chef/video/7234567890123456789", "https://www.tiktok.com/embed/v2/7234567890123456789"},
		{"https://www.tiktok.com/@chef/video/7234?is_from_webapp=1", "https://www.tiktok.com/embed/v2/7234"},
		{"https://youtu.be/abc", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, EmbedURL(tt.url))
		})
	}
}

func ids(entries []*models.VideoEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
