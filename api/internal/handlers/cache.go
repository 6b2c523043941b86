package handlers

import (
	"net/http"

	"vidx/shared/cache"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CacheHandler exposes maintenance operations on the name audio cache.
type CacheHandler struct {
	nameCache *cache.NameAudio
	logger    *zap.Logger
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(nameCache *cache.NameAudio, logger *zap.Logger) *CacheHandler {
	return &CacheHandler{
		nameCache: nameCache,
		logger:    logger,
	}
}

// ClearNameAudio handles POST /api/v1/cache/name-audio/clear.
func (h *CacheHandler) ClearNameAudio(c *gin.Context) {
	removed, err := h.nameCache.Clear()
	if err != nil {
		h.logger.Error("Failed to clear name audio cache", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    1004,
			"message": "internal server error",
			"data":    err.Error(),
		})
		return
	}

	h.logger.Info("Name audio cache cleared", zap.Int("removed_files", removed))
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    gin.H{"removed_files": removed},
	})
}
