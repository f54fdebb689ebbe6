package landing

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pagemill/core/internal/models"
	"github.com/pagemill/core/internal/modules/content/registry"
	"github.com/pagemill/core/internal/modules/content/slugs"
	"github.com/pagemill/core/internal/pkg/pagination"
	"github.com/pagemill/core/internal/pkg/response"
)

// Handler exposes the authoring surface consumed by the page builder UI.
type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/pages", authMW)
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PUT("/:id/components", h.replaceComponents)
	g.PATCH("/:id", h.updateMeta)
	g.PATCH("/:id/slug", h.renameSlug)
	g.POST("/:id/publish", h.publish)
	g.POST("/:id/unpublish", h.unpublish)
	g.POST("/:id/archive", h.archive)
	g.DELETE("/:id", h.remove)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreatePageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page, err := h.svc.Create(&dto)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, page)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	pages, pag, err := h.svc.List(q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, pages, pag)
}

func (h *Handler) get(c *gin.Context) {
	page, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, page)
}

func (h *Handler) replaceComponents(c *gin.Context) {
	var dto ReplaceComponentsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page, err := h.svc.ReplaceComponents(c.Param("id"), *dto.Version, dto.Components)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, page)
}

func (h *Handler) updateMeta(c *gin.Context) {
	var dto UpdateMetaDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page, err := h.svc.UpdateMeta(c.Param("id"), *dto.Version, &dto)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, page)
}

func (h *Handler) renameSlug(c *gin.Context) {
	var dto RenameSlugDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page, err := h.svc.RenameSlug(c.Param("id"), *dto.Version, dto.Slug)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, page)
}

func (h *Handler) publish(c *gin.Context) {
	h.transition(c, h.svc.Publish)
}

func (h *Handler) unpublish(c *gin.Context) {
	h.transition(c, h.svc.Unpublish)
}

func (h *Handler) archive(c *gin.Context) {
	h.transition(c, h.svc.Archive)
}

func (h *Handler) transition(c *gin.Context, op func(string, int) (*models.LandingPageModel, error)) {
	var dto transitionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page, err := op(c.Param("id"), *dto.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, page)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	response.NoContent(c)
}

// respondError maps domain errors onto HTTP statuses. Version and slug
// conflicts are 409 so editors know to re-read; validation problems are 422
// with enough detail to correct the input.
func respondError(c *gin.Context, err error) {
	var configErr *registry.InvalidConfigError
	switch {
	case errors.Is(err, ErrPageNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrVersionConflict), errors.Is(err, slugs.ErrSlugTaken):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, registry.ErrUnknownComponentType):
		response.UnprocessableEntity(c, err.Error())
	case errors.As(err, &configErr):
		response.UnprocessableEntity(c, configErr.Error())
	case errors.Is(err, slugs.ErrInvalidSlug):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
