package handler

import (
	"context"
	"net/http"

	"reviewhub/internal/microservices/http-api/dto"
	"reviewhub/internal/microservices/http-api/middleware"
	"reviewhub/internal/microservices/http-api/permission"
	"reviewhub/internal/shared"

	"github.com/gin-gonic/gin"
)

// catalogService is the shape shared by categories and genres: list,
// create, delete by slug, no update.
type catalogService[Req any, Resp any] interface {
	List(ctx context.Context, search string, page shared.Page) (*shared.List[Resp], error)
	Create(ctx context.Context, req Req) (*Resp, error)
	Delete(ctx context.Context, slug string) error
}

// CatalogHandler serves one slug-keyed catalog collection.
type CatalogHandler[Req any, Resp any] struct {
	path    string
	service catalogService[Req, Resp]
}

func NewCategoryHandler(svc catalogService[dto.CreateCategoryDTO, dto.CategoryResponse]) *CatalogHandler[dto.CreateCategoryDTO, dto.CategoryResponse] {
	return &CatalogHandler[dto.CreateCategoryDTO, dto.CategoryResponse]{path: "/categories", service: svc}
}

func NewGenreHandler(svc catalogService[dto.CreateGenreDTO, dto.GenreResponse]) *CatalogHandler[dto.CreateGenreDTO, dto.GenreResponse] {
	return &CatalogHandler[dto.CreateGenreDTO, dto.GenreResponse]{path: "/genres", service: svc}
}

// RegisterRoutes registers the collection: reads are open, writes admin only.
func (h *CatalogHandler[Req, Resp]) RegisterRoutes(router *gin.RouterGroup) {
	rg := router.Group(h.path, middleware.Require(permission.IsAdminOrReadOnly))
	{
		rg.GET("", h.List)
		rg.POST("", h.Create)
		rg.DELETE("/:slug", h.Delete)
	}
}

// GET ?search=&limit=&offset=
func (h *CatalogHandler[Req, Resp]) List(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.service.List(ctx, c.Query("search"), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CatalogHandler[Req, Resp]) Create(c *gin.Context) {
	var req Req
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	created, err := h.service.Create(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *CatalogHandler[Req, Resp]) Delete(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.service.Delete(ctx, c.Param("slug")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
