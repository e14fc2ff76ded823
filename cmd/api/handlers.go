package main

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/binyominzeev/vidfaq/internal/collection"
	"github.com/binyominzeev/vidfaq/internal/middleware"
	"github.com/binyominzeev/vidfaq/internal/profile"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

func requestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

// ownerID returns the authenticated owner. JWTAuth guarantees its presence on /api routes.
func ownerID(c *gin.Context) string {
	id, _ := middleware.GetOwnerID(c)
	return id
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.health.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// Profile endpoints

type profileResponse struct {
	*models.OwnerProfile
	SiteURL string `json:"site_url,omitempty"`
}

// profileView adds the public address of a claimed subdomain
func (api *API) profileView(p *models.OwnerProfile) profileResponse {
	resp := profileResponse{OwnerProfile: p}
	if sub := p.SubdomainValue(); sub != "" && api.baseDomain != "" {
		resp.SiteURL = "https://" + sub + "." + api.baseDomain
	}
	return resp
}

func (api *API) getProfile(c *gin.Context) {
	p, err := api.profiles.Get(c.Request.Context(), ownerID(c))
	if err != nil {
		api.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, api.profileView(p))
}

func (api *API) updateProfile(c *gin.Context) {
	var in profile.UpdateProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	p, err := api.profiles.Update(c.Request.Context(), ownerID(c), in)
	if err != nil {
		api.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, api.profileView(p))
}

// Video endpoints

func (api *API) listVideos(c *gin.Context) {
	videos, err := api.collection.List(c.Request.Context(), ownerID(c))
	if err != nil {
		api.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos, "count": len(videos)})
}

func (api *API) createVideo(c *gin.Context) {
	var in collection.CreateEntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	entry, err := api.collection.Create(c.Request.Context(), ownerID(c), in)
	if err != nil {
		api.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (api *API) updateVideo(c *gin.Context) {
	var in collection.UpdateEntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	entry, err := api.collection.Update(c.Request.Context(), ownerID(c), c.Param("id"), in)
	if err != nil {
		api.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (api *API) deleteVideo(c *gin.Context) {
	if err := api.collection.Delete(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		api.respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

type visibilityRequest struct {
	IsActive *bool `json:"is_active"`
}

func (api *API) setVisibility(c *gin.Context) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		badRequest(c, "is_active is required")
		return
	}

	entry, err := api.collection.SetActive(c.Request.Context(), ownerID(c), c.Param("id"), *req.IsActive)
	if err != nil {
		api.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (api *API) toggleVideo(c *gin.Context) {
	entry, err := api.collection.Toggle(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		api.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (api *API) refreshThumbnail(c *gin.Context) {
	entry, err := api.collection.RefreshThumbnail(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		api.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (api *API) reorderVideos(c *gin.Context) {
	var in collection.ReorderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	videos, err := api.collection.Reorder(c.Request.Context(), ownerID(c), in)
	if err != nil {
		// A failed write still reports the order the store actually holds
		var extra gin.H
		if videos != nil {
			extra = gin.H{"videos": videos}
		}
		api.respondError(c, err, extra)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

func (api *API) reindexVideos(c *gin.Context) {
	videos, err := api.collection.Reindex(c.Request.Context(), ownerID(c))
	if err != nil {
		var extra gin.H
		if videos != nil {
			extra = gin.H{"videos": videos}
		}
		api.respondError(c, err, extra)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// Thumbnail endpoints

type fetchThumbnailRequest struct {
	URL string `json:"url"`
}

func (api *API) fetchThumbnail(c *gin.Context) {
	var req fetchThumbnailRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		badRequest(c, "Missing url")
		return
	}

	key, err := api.collection.PreviewThumbnail(c.Request.Context(), ownerID(c), req.URL)
	if err != nil {
		api.respondError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"thumbnailUrl": thumbnailURL(key),
		"filename":     path.Base(key),
	})
}

func (api *API) redirectThumbnail(c *gin.Context) {
	rel := path.Clean("/" + strings.TrimPrefix(c.Param("key"), "/"))
	if rel == "/" || strings.Contains(rel, "..") {
		api.respondError(c, collection.ErrNotFound, nil)
		return
	}

	key := "thumbnails" + rel
	found, err := api.thumbnails.Exists(c.Request.Context(), key)
	if err != nil {
		api.respondError(c, errors.Join(collection.ErrStore, err), nil)
		return
	}
	if !found {
		api.respondError(c, collection.ErrNotFound, nil)
		return
	}

	url, err := api.thumbnails.GetURL(c.Request.Context(), key)
	if err != nil {
		api.respondError(c, errors.Join(collection.ErrStore, err), nil)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// thumbnailURL maps an object key to its public path on the operator host
func thumbnailURL(key string) string {
	if key == "" {
		return ""
	}
	return "/" + strings.TrimPrefix(key, "/")
}
