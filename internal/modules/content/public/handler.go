package public

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pagemill/core/internal/middleware"
	"github.com/pagemill/core/internal/models"
	"github.com/pagemill/core/internal/modules/content/landing"
	"github.com/pagemill/core/internal/modules/content/slugs"
	"github.com/pagemill/core/internal/modules/stats/metrics"
	"github.com/pagemill/core/internal/pkg/response"
	"go.uber.org/zap"
)

// Handler is the public read path: it serves published pages by slug and
// records visits as a side effect.
type Handler struct {
	pages    *landing.Service
	resolver *slugs.Resolver
	metrics  *metrics.Service
	logger   *zap.Logger
}

func NewHandler(pages *landing.Service, resolver *slugs.Resolver, metricsSvc *metrics.Service, logger *zap.Logger) *Handler {
	return &Handler{pages: pages, resolver: resolver, metrics: metricsSvc, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:slug", h.getBySlug)
}

func (h *Handler) getBySlug(c *gin.Context) {
	slug := c.Param("slug")

	page, err := h.pages.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, landing.ErrPageNotFound) {
			h.redirectOrNotFound(c, slug)
			return
		}
		response.InternalError(c, err)
		return
	}

	// Editors previewing drafts get the page in any status, never cached.
	if isTruthy(c.Query("preview")) && middleware.IsAuthenticated(c) {
		setNoStoreHeaders(c)
		response.OK(c, page)
		return
	}

	if page.Status != models.PageStatusPublished {
		response.NotFound(c)
		return
	}

	h.recordVisit(c, page.ID)
	response.OK(c, page)
}

// redirectOrNotFound consults the rename redirect table before giving up.
func (h *Handler) redirectOrNotFound(c *gin.Context, slug string) {
	pageID, err := h.resolver.FindRedirect(slug)
	if err != nil || pageID == "" {
		response.NotFound(c)
		return
	}
	page, err := h.pages.GetByID(pageID)
	if err != nil || page.Status != models.PageStatusPublished {
		response.NotFound(c)
		return
	}
	c.Redirect(http.StatusMovedPermanently, strings.Replace(c.Request.URL.Path, slug, page.Slug, 1))
}

// recordVisit counts the serve in the background. Counting is best-effort:
// a broken counter must never break page delivery, so failures are logged
// and the response is already on its way.
func (h *Handler) recordVisit(c *gin.Context, pageID string) {
	if h.metrics == nil || isBotUA(c.GetHeader("User-Agent")) {
		return
	}
	go func() {
		if err := h.metrics.Record(pageID, metrics.EventVisit, time.Now()); err != nil && h.logger != nil {
			h.logger.Warn("visit recording failed", zap.String("page_id", pageID), zap.Error(err))
		}
	}()
}

// isBotUA returns true if the User-Agent string indicates a bot/crawler.
func isBotUA(ua string) bool {
	lower := strings.ToLower(ua)
	botKeywords := []string{"bot", "crawler", "spider", "headless", "wget", "curl", "python-requests", "go-http", "java/", "scrapy"}
	for _, kw := range botKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func setNoStoreHeaders(c *gin.Context) {
	value := "private, max-age=0, no-cache, no-store, must-revalidate"
	c.Header("Cache-Control", value)
	c.Header("CDN-Cache-Control", value)
}
