package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"NewsCollector/internal/domain"
)

const (
	defaultAfterLimit = 100
	maxAfterLimit     = 1000
	maxPageCount      = 1000

	msgBadConfigFormat     = "Bad config format"
	msgBadConfigSourceType = "Bad config source type"
)

func (r *Router) getArticlesAfter(c *gin.Context) {
	boundID, err := queryInt64(c, "boundId")
	if err != nil {
		badRequest(c, err)
		return
	}
	limit := defaultAfterLimit
	if c.Query("limit") != "" {
		limit, err = queryInt(c, "limit")
		if err != nil {
			badRequest(c, err)
			return
		}
	}
	if limit <= 0 || limit > maxAfterLimit {
		badRequest(c, fmt.Errorf("limit must be in [1, %d]", maxAfterLimit))
		return
	}

	page, err := r.articles.GetAfter(c.Request.Context(), boundID, limit)
	if err != nil {
		r.internalError(c, "get articles after", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *Router) getArticlesPage(c *gin.Context) {
	boundID, err := queryInt64(c, "boundId")
	if err != nil {
		badRequest(c, err)
		return
	}
	pageNo, err := queryInt(c, "page")
	if err != nil {
		badRequest(c, err)
		return
	}
	count, err := queryInt(c, "count")
	if err != nil {
		badRequest(c, err)
		return
	}
	if pageNo < 0 || count <= 0 || count > maxPageCount {
		badRequest(c, fmt.Errorf("page must be >= 0 and count in [1, %d]", maxPageCount))
		return
	}

	page, err := r.articles.GetPage(c.Request.Context(), boundID, pageNo, count)
	if err != nil {
		r.internalError(c, "get articles page", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *Router) getCollectorConfig(c *gin.Context) {
	raw, ok, err := r.configs.GetCollectorConfig(c.Request.Context())
	if err != nil {
		r.internalError(c, "get collector config", err)
		return
	}
	writeDocument(c, raw, ok)
}

func (r *Router) setCollectorConfig(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		r.configError(c, fmt.Errorf("%w: %v", domain.ErrConfigFormat, err))
		return
	}
	if err := r.configs.SetCollectorConfig(c.Request.Context(), raw); err != nil {
		r.configError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (r *Router) getSourceConfigs(c *gin.Context) {
	cfgs, err := r.configs.GetSourceConfigs(c.Request.Context())
	if err != nil {
		r.internalError(c, "get source configs", err)
		return
	}
	c.JSON(http.StatusOK, cfgs)
}

func (r *Router) setSourceConfigs(c *gin.Context) {
	r.storeSourceConfigs(c, false)
}

func (r *Router) resetSourceConfigs(c *gin.Context) {
	r.storeSourceConfigs(c, true)
}

func (r *Router) storeSourceConfigs(c *gin.Context, replaceAll bool) {
	raw, err := c.GetRawData()
	if err != nil {
		r.configError(c, fmt.Errorf("%w: %v", domain.ErrConfigFormat, err))
		return
	}
	cfgs, err := domain.ParseSourceConfigs(raw)
	if err != nil {
		r.configError(c, err)
		return
	}
	if err := r.configs.SetSourceConfigs(c.Request.Context(), cfgs, replaceAll); err != nil {
		r.configError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (r *Router) deleteSourceConfigs(c *gin.Context) {
	var names []string
	if err := c.ShouldBindJSON(&names); err != nil {
		r.configError(c, fmt.Errorf("%w: %v", domain.ErrConfigFormat, err))
		return
	}
	if err := r.configs.RemoveSourceConfigs(c.Request.Context(), names); err != nil {
		r.internalError(c, "remove source configs", err)
		return
	}
	c.Status(http.StatusOK)
}

func (r *Router) getPublisherConfig(c *gin.Context) {
	raw, ok, err := r.configs.GetPublisherConfig(c.Request.Context())
	if err != nil {
		r.internalError(c, "get publisher config", err)
		return
	}
	writeDocument(c, raw, ok)
}

func (r *Router) setPublisherConfig(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		r.configError(c, fmt.Errorf("%w: %v", domain.ErrConfigFormat, err))
		return
	}
	if err := r.configs.SetPublisherConfig(c.Request.Context(), raw); err != nil {
		r.configError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// configError maps config validation failures to 400 and everything else to 500.
func (r *Router) configError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrConfigSourceType):
		r.logger.Debug("rejected source config", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadConfigSourceType})
	case errors.Is(err, domain.ErrConfigFormat):
		r.logger.Debug("rejected config", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadConfigFormat})
	default:
		r.internalError(c, "store config", err)
	}
}

func (r *Router) internalError(c *gin.Context, op string, err error) {
	r.logger.Error("request failed", "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// writeDocument returns a stored JSON document as is, or JSON null when none exists.
func writeDocument(c *gin.Context, raw json.RawMessage, ok bool) {
	if !ok || len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func queryInt64(c *gin.Context, name string) (int64, error) {
	value, ok := c.GetQuery(name)
	if !ok {
		return 0, fmt.Errorf("query parameter %s is required", name)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s: %w", name, err)
	}
	return n, nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	n, err := queryInt64(c, name)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
