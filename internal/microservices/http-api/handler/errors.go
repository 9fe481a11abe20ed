package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"reviewhub/internal/microservices/http-api/middleware"
	"reviewhub/internal/microservices/http-api/service"
	"reviewhub/internal/shared"

	"github.com/gin-gonic/gin"
)

const requestTimeout = 5 * time.Second

// requestContext bounds the work a handler hands to the service layer.
func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// writeError maps service error kinds onto status codes. Anything unclassified
// is logged and answered with a generic 500.
func writeError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		body := gin.H{"error": svcErr.Message}
		if svcErr.Field != "" {
			body["field"] = svcErr.Field
		}
		c.JSON(statusFor(svcErr.Kind), body)
		return
	}

	_ = c.Error(err)
	slog.Error("request failed",
		"request_id", middleware.RequestID(c),
		"method", c.Request.Method,
		"path", c.FullPath(),
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, service.ErrValidation), errors.Is(kind, service.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(kind, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(kind, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, service.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// bindError answers a malformed request body.
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// parseID reads a positive integer path parameter. It writes a 404 and
// returns false when the segment is not an id, matching an unknown resource.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

// parsePage reads ?limit= and ?offset=.
func parsePage(c *gin.Context) (shared.Page, bool) {
	limit, offset := 0, 0
	var err error
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer", "field": "limit"})
			return shared.Page{}, false
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer", "field": "offset"})
			return shared.Page{}, false
		}
	}
	return shared.NewPage(limit, offset), true
}
