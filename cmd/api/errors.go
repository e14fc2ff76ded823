package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/binyominzeev/vidfaq/internal/collection"
	"github.com/binyominzeev/vidfaq/internal/metrics"
	"github.com/binyominzeev/vidfaq/internal/profile"
)

// errorResponse is the JSON body of every failed request
type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

// classify maps a domain error to its HTTP status and error code
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, collection.ErrEmptySlug):
		return http.StatusBadRequest, "empty_slug"
	case errors.Is(err, profile.ErrInvalidSubdomain):
		return http.StatusBadRequest, "invalid_subdomain"
	case collection.IsValidation(err):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, collection.ErrDuplicateTitle):
		return http.StatusConflict, "duplicate_title"
	case errors.Is(err, collection.ErrReorderConflict):
		return http.StatusConflict, "reorder_conflict"
	case errors.Is(err, collection.ErrLimitExceeded):
		return http.StatusConflict, "limit_exceeded"
	case errors.Is(err, profile.ErrSubdomainTaken):
		return http.StatusConflict, "subdomain_taken"
	case errors.Is(err, collection.ErrNotFound):
		return http.StatusNotFound, "video_not_found"
	case errors.Is(err, collection.ErrThumbnailUnavailable):
		return http.StatusBadGateway, "thumbnail_unavailable"
	case errors.Is(err, collection.ErrStore):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondError writes err as JSON. extra fields are merged into the body.
func (api *API) respondError(c *gin.Context, err error, extra gin.H) {
	status, code := classify(err)
	_ = c.Error(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	if status >= http.StatusInternalServerError {
		metrics.RecordError("api", code)
		api.logger.WithRequestID(requestID(c)).WithError(err).Error("Request failed")
	}

	body := gin.H{"error": message, "code": code}
	if status == http.StatusServiceUnavailable {
		body["retryable"] = true
	}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: message, Code: "invalid_request"})
}
