package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/binyominzeev/vidfaq/internal/collection"
	"github.com/binyominzeev/vidfaq/internal/logging"
	"github.com/binyominzeev/vidfaq/internal/middleware"
	"github.com/binyominzeev/vidfaq/internal/profile"
	"github.com/binyominzeev/vidfaq/internal/tenant"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

const testSecret = "handler-test-secret-value"

// MockCollection is a mock implementation of CollectionService
type MockCollection struct {
	mock.Mock
}

func entriesOrNil(v interface{}) []*models.VideoEntry {
	if v == nil {
		return nil
	}
	return v.([]*models.VideoEntry)
}

func entryOrNil(v interface{}) *models.VideoEntry {
	if v == nil {
		return nil
	}
	return v.(*models.VideoEntry)
}

func (m *MockCollection) List(ctx context.Context, ownerID string) ([]*models.VideoEntry, error) {
	args := m.Called(ctx, ownerID)
	return entriesOrNil(args.Get(0)), args.Error(1)
}

func (m *MockCollection) Create(ctx context.Context, ownerID string, in collection.CreateEntryInput) (*models.VideoEntry, error) {
	args := m.Called(ctx, ownerID, in)
	return entryOrNil(args.Get(0)), args.Error(1)
}

func (m *MockCollection) Update(ctx context.Context, ownerID, id string, in collection.UpdateEntryInput) (*models.VideoEntry, error) {
	args := m.Called(ctx, ownerID, id, in)
	return entryOrNil(args.Get(0)), args.Error(1)
}

func (m *MockCollection) SetActive(ctx context.Context, ownerID, id string, active bool) (*models.VideoEntry, error) {
	args := m.Called(ctx, ownerID, id, active)
	return entryOrNil(args.Get(0)), args.Error(1)
}

func (m *MockCollection) Toggle(ctx context.Context, ownerID, id string) (*models.VideoEntry, error) {
	args := m.Called(ctx, ownerID, id)
	return entryOrNil(args.Get(0)), args.Error(1)
}

func (m *MockCollection) Delete(ctx context.Context, ownerID, id string) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

func (m *MockCollection) Reorder(ctx context.Context, ownerID string, in collection.ReorderInput) ([]*models.VideoEntry, error) {
	args := m.Called(ctx, ownerID, in)
	return entriesOrNil(args.Get(0)), args.Error(1)
}

func (m *MockCollection) Reindex(ctx context.Context, ownerID string) ([]*models.VideoEntry, error) {
	args := m.Called(ctx, ownerID)
	return entriesOrNil(args.Get(0)), args.Error(1)
}

func (m *MockCollection) RefreshThumbnail(ctx context.Context, ownerID, id string) (*models.VideoEntry, error) {
	args := m.Called(ctx, ownerID, id)
	return entryOrNil(args.Get(0)), args.Error(1)
}

func (m *MockCollection) PreviewThumbnail(ctx context.Context, ownerID, sourceURL string) (string, error) {
	args := m.Called(ctx, ownerID, sourceURL)
	return args.String(0), args.Error(1)
}

// MockProfiles is a mock implementation of ProfileService
type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) Get(ctx context.Context, ownerID string) (*models.OwnerProfile, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OwnerProfile), args.Error(1)
}

func (m *MockProfiles) Update(ctx context.Context, ownerID string, in profile.UpdateProfileInput) (*models.OwnerProfile, error) {
	args := m.Called(ctx, ownerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OwnerProfile), args.Error(1)
}

// MockPublic is a mock implementation of PublicService
type MockPublic struct {
	mock.Mock
}

func (m *MockPublic) Gallery(ctx context.Context, p *models.OwnerProfile) (*models.Gallery, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Gallery), args.Error(1)
}

func (m *MockPublic) Video(ctx context.Context, p *models.OwnerProfile, slug string) (*models.VideoEntry, error) {
	args := m.Called(ctx, p, slug)
	return entryOrNil(args.Get(0)), args.Error(1)
}

type stubLookup map[string]*models.OwnerProfile

func (s stubLookup) GetProfileBySubdomain(_ context.Context, sub string) (*models.OwnerProfile, error) {
	if sub == "broken" {
		return nil, errors.New("db down")
	}
	return s[sub], nil
}

type stubLinker struct {
	missing map[string]bool
	err     error
}

func (s stubLinker) Exists(_ context.Context, key string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return !s.missing[key], nil
}

func (stubLinker) GetURL(_ context.Context, key string) (string, error) {
	return "https://objects.test/vidfaq/" + key + "?sig=1", nil
}

type stubHealth struct{ err error }

func (s stubHealth) Health(context.Context) error { return s.err }

type fixture struct {
	api        *API
	router     *gin.Engine
	collection *MockCollection
	profiles   *MockProfiles
	public     *MockPublic
	token      string
}

var aliceProfile = &models.OwnerProfile{OwnerID: "owner-1", DisplayName: "Alice", Subdomain: strPtr("alice")}

func strPtr(s string) *string { return &s }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		collection: new(MockCollection),
		profiles:   new(MockProfiles),
		public:     new(MockPublic),
	}
	f.api = &API{
		collection: f.collection,
		profiles:   f.profiles,
		public:     f.public,
		tenants:    tenant.NewResolver(stubLookup{"alice": aliceProfile}, nil),
		thumbnails: stubLinker{},
		health:     stubHealth{},
		auth:       middleware.NewAuthenticator(testSecret),
		baseDomain: "vidfaq.app",
		logger:     logging.NewNopLogger(),
	}
	f.router = setupRouter(f.api)

	token, err := f.api.auth.GenerateToken("owner-1", "alice@example.com", time.Hour)
	require.NoError(t, err)
	f.token = token
	return f
}

func (f *fixture) do(method, host, target string, body interface{}, authed bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Host = host
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

const operatorHost = "app.vidfaq.app"

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	w := f.do("GET", operatorHost, "/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	f.api.health = stubHealth{err: errors.New("down")}
	w = f.do("GET", operatorHost, "/health", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	f := newFixture(t)
	w := f.do("GET", operatorHost, "/api/v1/videos", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	f.collection.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestListVideos(t *testing.T) {
	f := newFixture(t)
	videos := []*models.VideoEntry{{ID: "a", OwnerID: "owner-1", Slug: "first"}}
	f.collection.On("List", mock.Anything, "owner-1").Return(videos, nil)

	w := f.do("GET", operatorHost, "/api/v1/videos", nil, true)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["count"])
	f.collection.AssertExpectations(t)
}

func TestCreateVideo(t *testing.T) {
	f := newFixture(t)
	in := collection.CreateEntryInput{SourceURL: "https://www.tiktok.com/@a/video/1", Title: "Amazing Recipe"}
	created := &models.VideoEntry{ID: "new", OwnerID: "owner-1", Slug: "amazing-recipe", IsActive: true}
	f.collection.On("Create", mock.Anything, "owner-1", in).Return(created, nil)

	w := f.do("POST", operatorHost, "/api/v1/videos", in, true)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "amazing-recipe", decode(t, w)["slug"])
	f.collection.AssertExpectations(t)
}

func TestCreateVideoMalformedBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest("POST", "/api/v1/videos", bytes.NewBufferString("{not json"))
	req.Host = operatorHost
	req.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.collection.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", fmt.Errorf("%w: title: cannot be blank", collection.ErrValidation), http.StatusBadRequest, "validation_failed"},
		{"empty slug", collection.ErrEmptySlug, http.StatusBadRequest, "empty_slug"},
		{"invalid subdomain", profile.ErrInvalidSubdomain, http.StatusBadRequest, "invalid_subdomain"},
		{"duplicate", collection.ErrDuplicateTitle, http.StatusConflict, "duplicate_title"},
		{"limit", fmt.Errorf("%w: 10 of 10 videos used", collection.ErrLimitExceeded), http.StatusConflict, "limit_exceeded"},
		{"reorder", collection.ErrReorderConflict, http.StatusConflict, "reorder_conflict"},
		{"subdomain taken", profile.ErrSubdomainTaken, http.StatusConflict, "subdomain_taken"},
		{"not found", collection.ErrNotFound, http.StatusNotFound, "video_not_found"},
		{"thumbnail", collection.ErrThumbnailUnavailable, http.StatusBadGateway, "thumbnail_unavailable"},
		{"store", fmt.Errorf("%w: list entries: timeout", collection.ErrStore), http.StatusServiceUnavailable, "store_unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestCreateVideoLimitExceeded(t *testing.T) {
	f := newFixture(t)
	f.collection.On("Create", mock.Anything, "owner-1", mock.Anything).
		Return(nil, fmt.Errorf("%w: 10 of 10 videos used", collection.ErrLimitExceeded))

	w := f.do("POST", operatorHost, "/api/v1/videos", collection.CreateEntryInput{SourceURL: "https://x.test/v", Title: "T"}, true)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "limit_exceeded", decode(t, w)["code"])
}

func TestReorderStoreFailureReturnsCurrentOrder(t *testing.T) {
	f := newFixture(t)
	in := collection.ReorderInput{EntryID: "00000000-0000-4000-8000-000000000001", FromIndex: 0, ToIndex: 2}
	current := []*models.VideoEntry{{ID: "x", Position: 0}, {ID: "y", Position: 1}}
	f.collection.On("Reorder", mock.Anything, "owner-1", in).
		Return(current, fmt.Errorf("%w: update positions: timeout", collection.ErrStore))

	w := f.do("POST", operatorHost, "/api/v1/videos/reorder", in, true)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["retryable"])
	assert.Len(t, body["videos"], 2)
}

func TestReorderSuccess(t *testing.T) {
	f := newFixture(t)
	in := collection.ReorderInput{EntryID: "00000000-0000-4000-8000-000000000001", FromIndex: 1, ToIndex: 0}
	f.collection.On("Reorder", mock.Anything, "owner-1", in).Return([]*models.VideoEntry{{ID: "a"}}, nil)

	w := f.do("POST", operatorHost, "/api/v1/videos/reorder", in, true)
	assert.Equal(t, http.StatusOK, w.Code)
	f.collection.AssertExpectations(t)
}

func TestVisibilityAndToggle(t *testing.T) {
	f := newFixture(t)
	f.collection.On("SetActive", mock.Anything, "owner-1", "abc", false).Return(&models.VideoEntry{ID: "abc"}, nil)
	f.collection.On("Toggle", mock.Anything, "owner-1", "abc").Return(&models.VideoEntry{ID: "abc", IsActive: true}, nil)

	w := f.do("PUT", operatorHost, "/api/v1/videos/abc/visibility", gin.H{"is_active": false}, true)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do("PUT", operatorHost, "/api/v1/videos/abc/visibility", gin.H{}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do("POST", operatorHost, "/api/v1/videos/abc/toggle", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
	f.collection.AssertExpectations(t)
}

func TestDeleteVideo(t *testing.T) {
	f := newFixture(t)
	f.collection.On("Delete", mock.Anything, "owner-1", "abc").Return(nil)
	f.collection.On("Delete", mock.Anything, "owner-1", "gone").Return(collection.ErrNotFound)

	assert.Equal(t, http.StatusNoContent, f.do("DELETE", operatorHost, "/api/v1/videos/abc", nil, true).Code)
	assert.Equal(t, http.StatusNotFound, f.do("DELETE", operatorHost, "/api/v1/videos/gone", nil, true).Code)
}

func TestGetProfile(t *testing.T) {
	f := newFixture(t)
	f.profiles.On("Get", mock.Anything, "owner-1").Return(aliceProfile, nil)

	w := f.do("GET", operatorHost, "/api/v1/profile", nil, true)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "alice", body["subdomain"])
	assert.Equal(t, "https://alice.vidfaq.app", body["site_url"])
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	f.profiles.On("Update", mock.Anything, "owner-1", mock.AnythingOfType("profile.UpdateProfileInput")).
		Return(nil, profile.ErrSubdomainTaken)

	w := f.do("PUT", operatorHost, "/api/v1/profile", gin.H{"subdomain": "bob"}, true)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "subdomain_taken", decode(t, w)["code"])
}

func TestFetchThumbnail(t *testing.T) {
	f := newFixture(t)
	f.collection.On("PreviewThumbnail", mock.Anything, "owner-1", "https://www.tiktok.com/@a/video/7").
		Return("thumbnails/owner-1/preview-1.jpg", nil)

	w := f.do("POST", operatorHost, "/api/fetch-thumbnail", gin.H{"url": "https://www.tiktok.com/@a/video/7"}, true)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "/thumbnails/owner-1/preview-1.jpg", body["thumbnailUrl"])
	assert.Equal(t, "preview-1.jpg", body["filename"])

	w = f.do("POST", operatorHost, "/api/fetch-thumbnail", gin.H{}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRedirectThumbnail(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", operatorHost, "/thumbnails/owner-1/abc.jpg", nil, false)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://objects.test/vidfaq/thumbnails/owner-1/abc.jpg?sig=1", w.Header().Get("Location"))
}

func TestRedirectThumbnailMissingObject(t *testing.T) {
	f := newFixture(t)
	f.api.thumbnails = stubLinker{missing: map[string]bool{"thumbnails/owner-1/gone.jpg": true}}

	w := f.do("GET", operatorHost, "/thumbnails/owner-1/gone.jpg", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "video_not_found", decode(t, w)["code"])
	assert.Empty(t, w.Header().Get("Location"))

	f.api.thumbnails = stubLinker{err: errors.New("minio down")}
	w = f.do("GET", operatorHost, "/thumbnails/owner-1/abc.jpg", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "store_unavailable", decode(t, w)["code"])
}

func TestTenantGallery(t *testing.T) {
	f := newFixture(t)
	gallery := &models.Gallery{
		Profile: aliceProfile,
		Videos: []*models.VideoEntry{
			{ID: "a", Slug: "first", SourceURL: "https://www.tiktok.com/@a/video/123", ThumbnailRef: strPtr("thumbnails/owner-1/a.jpg"), IsActive: true},
		},
	}
	f.public.On("Gallery", mock.Anything, aliceProfile).Return(gallery, nil)

	for _, path := range []string{"/", "/deep/path"} {
		w := f.do("GET", "alice.vidfaq.app", path, nil, false)
		require.Equal(t, http.StatusOK, w.Code, path)

		body := decode(t, w)
		videos := body["videos"].([]interface{})
		require.Len(t, videos, 1)
		first := videos[0].(map[string]interface{})
		assert.Equal(t, "first", first["slug"])
		assert.Equal(t, "https://www.tiktok.com/embed/v2/123", first["embed_url"])
		assert.Equal(t, "/thumbnails/owner-1/a.jpg", first["thumbnail_url"])
	}
	f.public.AssertExpectations(t)
}

func TestTenantVideo(t *testing.T) {
	f := newFixture(t)
	f.public.On("Video", mock.Anything, aliceProfile, "first").Return(&models.VideoEntry{ID: "a", Slug: "first"}, nil)
	f.public.On("Video", mock.Anything, aliceProfile, "missing").Return(nil, collection.ErrNotFound)

	w := f.do("GET", "alice.vidfaq.app:8080", "/first", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do("GET", "alice.vidfaq.app", "/missing", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "video_not_found", decode(t, w)["code"])
}

func TestTenantHostNeverReachesOperatorRoutes(t *testing.T) {
	f := newFixture(t)
	f.public.On("Video", mock.Anything, aliceProfile, "health").Return(nil, collection.ErrNotFound)

	w := f.do("GET", "alice.vidfaq.app", "/health", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do("POST", "alice.vidfaq.app", "/api/v1/videos", gin.H{}, true)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	f.collection.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnknownTenant(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "nobody.vidfaq.app", "/", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "tenant_not_found", decode(t, w)["code"])
	f.public.AssertNotCalled(t, "Gallery", mock.Anything, mock.Anything)
}

func TestTenantLookupFailure(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "broken.vidfaq.app", "/", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, true, decode(t, w)["retryable"])
}

func TestTenantRateLimited(t *testing.T) {
	f := newFixture(t)
	f.api.limiter = middleware.NewRateLimiter(1, 1)
	f.public.On("Gallery", mock.Anything, aliceProfile).Return(&models.Gallery{Profile: aliceProfile, Videos: []*models.VideoEntry{}}, nil)

	assert.Equal(t, http.StatusOK, f.do("GET", "alice.vidfaq.app", "/", nil, false).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do("GET", "alice.vidfaq.app", "/", nil, false).Code)
}
