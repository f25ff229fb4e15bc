package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/service"
	"github.com/fleveque/sauce-service/internal/source"
)

// SearchHandler serves reverse image searches.
type SearchHandler struct {
	searchService *service.SearchService
	logger        *zap.Logger
}

func NewSearchHandler(searchService *service.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// Sources lists the configured source names in search order.
// Route: GET /api/v1/sources
func (h *SearchHandler) Sources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.searchService.Sources()})
}

// Search fans the image out to the requested sources.
// Route: GET /api/v1/search?url=...&source=saucenao&source=iqdb
//
// source may repeat or hold a comma-separated list; without it every
// configured source runs. Per-source failures are part of the 200 report.
func (h *SearchHandler) Search(c *gin.Context) {
	rawURL := c.Query("url")
	names := splitNames(c.QueryArray("source"))

	report, err := h.searchService.Search(c.Request.Context(), rawURL, names)
	if err != nil {
		h.requestError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Check runs a single source and maps its error to an HTTP status.
// Route: GET /api/v1/sources/:name/check?url=...
func (h *SearchHandler) Check(c *gin.Context) {
	name := c.Param("name")
	rawURL := c.Query("url")

	out, err := h.searchService.Check(c.Request.Context(), name, rawURL)
	if err == nil {
		c.JSON(http.StatusOK, out)
		return
	}

	if isRequestError(err) {
		h.requestError(c, err)
		return
	}

	kind := source.KindOf(err)
	h.logger.Warn("source check failed",
		zap.String("source", name),
		zap.String("kind", kind),
		zap.Error(err),
	)
	c.JSON(statusForKind(kind), gin.H{
		"source":     name,
		"error":      err.Error(),
		"error_kind": kind,
	})
}

func (h *SearchHandler) requestError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, service.ErrNoSources) {
		status = http.StatusServiceUnavailable
	} else if !isRequestError(err) {
		h.logger.Error("search failed", zap.Error(err))
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func isRequestError(err error) bool {
	return errors.Is(err, service.ErrEmptyURL) ||
		errors.Is(err, service.ErrUnknownSource) ||
		errors.Is(err, service.ErrNoSources)
}

// statusForKind maps a source error kind to the status of the single-source
// endpoint. Upstream trouble is a bad gateway, not a server fault.
func statusForKind(kind string) int {
	switch kind {
	case source.KindLinkIsNotImage:
		return http.StatusUnprocessableEntity
	case source.KindMissingConfiguration:
		return http.StatusServiceUnavailable
	case source.KindTransport, source.KindDecode:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func splitNames(values []string) []string {
	return lo.FlatMap(values, func(v string, _ int) []string {
		return strings.Split(v, ",")
	})
}
