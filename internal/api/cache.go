package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CacheHandler drops cached speech clips and fast replies
type CacheHandler struct {
	clear func()
}

// NewCacheHandler creates a handler that calls clear on DELETE /cache
func NewCacheHandler(clear func()) *CacheHandler {
	return &CacheHandler{clear: clear}
}

// ClearCaches empties the process-wide caches
func (h *CacheHandler) ClearCaches(c *gin.Context) {
	h.clear()
	c.Status(http.StatusNoContent)
}

// RegisterRoutes mounts the cache routes on rg
func (h *CacheHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/cache", h.ClearCaches)
}
