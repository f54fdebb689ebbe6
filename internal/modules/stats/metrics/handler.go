package metrics

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pagemill/core/internal/models"
	"github.com/pagemill/core/internal/pkg/response"
	"go.uber.org/zap"
)

// Handler exposes event ingestion to visitors and aggregation to admins.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterPublicRoutes mounts the visitor-facing ingestion endpoint.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/metrics/event", h.recordEvent)
}

// RegisterAdminRoutes mounts the aggregation query on the authoring surface.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/pages/:id/analytics", authMW, h.analytics)
}

// recordEvent ingests one visit/conversion beacon. Bad input and unknown
// pages are the visitor's problem (4xx); storage failures are not — counters
// are best-effort, so those are logged and acknowledged anyway.
func (h *Handler) recordEvent(c *gin.Context) {
	var dto recordEventDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	kind, err := ParseEventKind(dto.EventType)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.svc.Record(dto.PageID, kind, time.Now()); err != nil {
		if errors.Is(err, ErrPageNotFound) {
			response.NotFound(c)
			return
		}
		if h.logger != nil {
			h.logger.Warn("event recording failed",
				zap.String("page_id", dto.PageID),
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
	}
	response.NoContent(c)
}

func (h *Handler) analytics(c *gin.Context) {
	start, ok := parseDayParam(c, "start")
	if !ok {
		return
	}
	end, ok := parseDayParam(c, "end")
	if !ok {
		return
	}

	summary, err := h.svc.Query(c.Param("id"), start, end)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, summary)
}

func parseDayParam(c *gin.Context, name string) (string, bool) {
	raw := c.Query(name)
	if raw == "" {
		return "", true
	}
	if _, err := time.Parse(models.AnalyticsDayFormat, raw); err != nil {
		response.BadRequest(c, name+" must be formatted as YYYY-MM-DD")
		return "", false
	}
	return raw, true
}
