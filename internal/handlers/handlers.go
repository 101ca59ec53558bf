package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cinetix/internal/apperrors"
	"cinetix/internal/cache"
	"cinetix/internal/service"
)

type Handlers struct {
	services *service.Services
	cache    *cache.Client
}

// NewHandlers wires the HTTP layer. cacheClient may be nil; caching is
// then skipped entirely.
func NewHandlers(services *service.Services, cacheClient *cache.Client) *Handlers {
	return &Handlers{
		services: services,
		cache:    cacheClient,
	}
}

// respondError translates a service error: taxonomy errors map to their
// HTTP status with a stable code, anything else is a 500.
func respondError(c *gin.Context, err error) {
	if code, ok := apperrors.CodeOf(err); ok {
		c.JSON(code.HTTPStatus(), gin.H{
			"error": err.Error(),
			"code":  string(code),
		})
		return
	}
	slog.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// userID returns the authenticated caller set by the identity
// middleware. Routes outside the authed group must not call it.
func userID(c *gin.Context) int64 {
	return c.GetInt64("user_id")
}
