package main

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/binyominzeev/vidfaq/internal/middleware"
)

const (
	fetchQuotaLimit  = 30
	fetchQuotaWindow = time.Hour
)

func setupRouter(api *API) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(api.logger), middleware.Tracing())

	// Tenant hosts are answered here and never reach the operator routes
	router.Use(api.dispatchTenant)

	// Health check
	router.GET("/health", api.healthCheck)

	// Thumbnail assets
	router.GET("/thumbnails/*key", api.redirectThumbnail)

	authed := []gin.HandlerFunc{api.auth.JWTAuth()}
	if api.limiter != nil {
		authed = append(authed, middleware.RateLimit(api.limiter))
	}

	fetch := append([]gin.HandlerFunc{}, authed...)
	if api.quota != nil {
		fetch = append(fetch, middleware.Quota(api.quota, "fetch", fetchQuotaLimit, fetchQuotaWindow))
	}
	router.POST("/api/fetch-thumbnail", append(fetch, api.fetchThumbnail)...)

	v1 := router.Group("/api/v1", authed...)
	{
		// Profile
		v1.GET("/profile", api.getProfile)
		v1.PUT("/profile", api.updateProfile)

		// Videos
		v1.GET("/videos", api.listVideos)
		v1.POST("/videos", api.createVideo)
		v1.POST("/videos/reorder", api.reorderVideos)
		v1.POST("/videos/reindex", api.reindexVideos)
		v1.PATCH("/videos/:id", api.updateVideo)
		v1.DELETE("/videos/:id", api.deleteVideo)
		v1.PUT("/videos/:id/visibility", api.setVisibility)
		v1.POST("/videos/:id/toggle", api.toggleVideo)
		v1.POST("/videos/:id/thumbnail", api.refreshThumbnail)
	}

	return router
}
