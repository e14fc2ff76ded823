package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/binyominzeev/vidfaq/internal/collection"
	"github.com/binyominzeev/vidfaq/internal/metrics"
	"github.com/binyominzeev/vidfaq/internal/middleware"
	"github.com/binyominzeev/vidfaq/internal/public"
	"github.com/binyominzeev/vidfaq/internal/tenant"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

// videoView is a published entry with its player and thumbnail links
type videoView struct {
	*models.VideoEntry
	EmbedURL     string `json:"embed_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

func newVideoView(e *models.VideoEntry) videoView {
	v := videoView{VideoEntry: e, EmbedURL: public.EmbedURL(e.SourceURL)}
	if e.ThumbnailRef != nil {
		v.ThumbnailURL = thumbnailURL(*e.ThumbnailRef)
	}
	return v
}

// dispatchTenant serves tenant hosts and passes operator hosts on to the router
func (api *API) dispatchTenant(c *gin.Context) {
	res, err := api.tenants.Resolve(c.Request.Context(), c.Request.Host, c.Request.URL.Path)
	if err != nil {
		c.Set(middleware.RouteContextKey, "tenant")
		api.respondError(c, errors.Join(collection.ErrStore, err), nil)
		return
	}
	metrics.RecordTenantResolution(res.Kind.String())

	switch res.Kind {
	case tenant.KindOperator:
		c.Next()
		return
	case tenant.KindNotFound:
		c.Set(middleware.RouteContextKey, "tenant_not_found")
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "site not found", Code: "tenant_not_found"})
		return
	}

	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Set(middleware.RouteContextKey, "tenant")
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", Code: "method_not_allowed"})
		return
	}

	if api.limiter != nil && !api.limiter.Allow(c) {
		return
	}

	switch res.Route.Kind {
	case tenant.RouteVideo:
		c.Set(middleware.RouteContextKey, "tenant_video")
		api.tenantVideo(c, res)
	default:
		c.Set(middleware.RouteContextKey, "tenant_gallery")
		api.tenantGallery(c, res)
	}
	c.Abort()
}

func (api *API) tenantGallery(c *gin.Context, res *tenant.Resolution) {
	gallery, err := api.public.Gallery(c.Request.Context(), res.Profile)
	if err != nil {
		api.respondError(c, err, nil)
		return
	}

	videos := make([]videoView, 0, len(gallery.Videos))
	for _, v := range gallery.Videos {
		videos = append(videos, newVideoView(v))
	}
	c.JSON(http.StatusOK, gin.H{"profile": gallery.Profile, "videos": videos})
}

func (api *API) tenantVideo(c *gin.Context, res *tenant.Resolution) {
	entry, err := api.public.Video(c.Request.Context(), res.Profile, res.Route.Slug)
	if err != nil {
		api.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": res.Profile, "video": newVideoView(entry)})
}
