package handler

import (
	"net/http"

	"reviewhub/internal/microservices/http-api/dto"
	"reviewhub/internal/microservices/http-api/middleware"
	"reviewhub/internal/microservices/http-api/permission"
	"reviewhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviewService service.ReviewService
}

func NewReviewHandler(reviewService service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// RegisterRoutes registers reviews nested under a title. Authorship checks
// for edits happen in the service.
func (h *ReviewHandler) RegisterRoutes(router *gin.RouterGroup) {
	reviews := router.Group("/titles/:title_id/reviews", middleware.Require(permission.IsAuthenticatedOrReadOnly))
	{
		reviews.GET("", h.List)
		reviews.POST("", h.Create)
		reviews.GET("/:review_id", h.Get)
		reviews.PATCH("/:review_id", h.Update)
		reviews.DELETE("/:review_id", h.Delete)
	}
}

// GET /api/v1/titles/:title_id/reviews
func (h *ReviewHandler) List(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	page, ok := parsePage(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.reviewService.List(ctx, titleID, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /api/v1/titles/:title_id/reviews/:review_id
func (h *ReviewHandler) Get(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := h.reviewService.Get(ctx, titleID, reviewID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// POST /api/v1/titles/:title_id/reviews
func (h *ReviewHandler) Create(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	var req dto.CreateReviewDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := h.reviewService.Create(ctx, middleware.CallerFrom(c), titleID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// PATCH /api/v1/titles/:title_id/reviews/:review_id
func (h *ReviewHandler) Update(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		return
	}
	var req dto.UpdateReviewDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := h.reviewService.Update(ctx, middleware.CallerFrom(c), titleID, reviewID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// DELETE /api/v1/titles/:title_id/reviews/:review_id
func (h *ReviewHandler) Delete(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.reviewService.Delete(ctx, middleware.CallerFrom(c), titleID, reviewID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
