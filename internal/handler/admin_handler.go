package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/storage"
)

// AdminHandler serves the audit log. repo is nil when the audit log is disabled.
type AdminHandler struct {
	repo   storage.SearchRepository
	logger *zap.Logger
}

func NewAdminHandler(repo storage.SearchRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		repo:   repo,
		logger: logger,
	}
}

// Stats returns the total number of checks and per-source aggregates.
// Route: GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	ctx := c.Request.Context()

	total, err := h.repo.Count(ctx)
	if err != nil {
		h.logger.Error("counting searches", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	bySource, err := h.repo.StatsBySource(ctx)
	if err != nil {
		h.logger.Error("aggregating searches", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"by_source": bySource,
	})
}

// Searches lists the newest audit rows for one URL.
// Route: GET /api/v1/admin/searches?url=...&limit=50
func (h *AdminHandler) Searches(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(storage.DefaultListLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	records, err := h.repo.ListByURL(c.Request.Context(), rawURL, limit)
	if err != nil {
		h.logger.Error("listing searches", zap.String("url", rawURL), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"searches": records})
}

func (h *AdminHandler) enabled(c *gin.Context) bool {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit log disabled"})
		return false
	}
	return true
}
