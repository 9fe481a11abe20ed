package handler

import (
	"net/http"
	"strconv"

	"reviewhub/internal/microservices/http-api/dto"
	"reviewhub/internal/microservices/http-api/middleware"
	"reviewhub/internal/microservices/http-api/permission"
	"reviewhub/internal/microservices/http-api/repository"
	"reviewhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type TitleHandler struct {
	titleService service.TitleService
}

func NewTitleHandler(titleService service.TitleService) *TitleHandler {
	return &TitleHandler{titleService: titleService}
}

// RegisterRoutes registers /titles; reads are open, writes admin only
func (h *TitleHandler) RegisterRoutes(router *gin.RouterGroup) {
	titles := router.Group("/titles", middleware.Require(permission.IsAdminOrReadOnly))
	{
		titles.GET("", h.List)
		titles.POST("", h.Create)
		titles.GET("/:title_id", h.Get)
		titles.PATCH("/:title_id", h.Update)
		titles.DELETE("/:title_id", h.Delete)
	}
}

// List supports ?category=&genre=&name=&year= plus pagination
// GET /api/v1/titles
func (h *TitleHandler) List(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	filter := repository.TitleFilter{
		Category: c.Query("category"),
		Genre:    c.Query("genre"),
		Name:     c.Query("name"),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year must be an integer", "field": "year"})
			return
		}
		filter.Year = &year
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.titleService.List(ctx, filter, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /api/v1/titles/:title_id
func (h *TitleHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	title, err := h.titleService.Get(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, title)
}

// POST /api/v1/titles
func (h *TitleHandler) Create(c *gin.Context) {
	var req dto.CreateTitleDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	title, err := h.titleService.Create(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, title)
}

// PATCH /api/v1/titles/:title_id
func (h *TitleHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	var req dto.UpdateTitleDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	title, err := h.titleService.Update(ctx, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, title)
}

// DELETE /api/v1/titles/:title_id
func (h *TitleHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.titleService.Delete(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
