package handler

import (
	"net/http"

	"reviewhub/internal/microservices/http-api/dto"
	"reviewhub/internal/microservices/http-api/middleware"
	"reviewhub/internal/microservices/http-api/permission"
	"reviewhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	commentService service.CommentService
}

func NewCommentHandler(commentService service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// commentPath holds the three ids every comment route carries.
type commentPath struct {
	titleID, reviewID, commentID int64
}

func parseCommentPath(c *gin.Context, withComment bool) (commentPath, bool) {
	var p commentPath
	var ok bool
	if p.titleID, ok = parseID(c, "title_id"); !ok {
		return p, false
	}
	if p.reviewID, ok = parseID(c, "review_id"); !ok {
		return p, false
	}
	if withComment {
		if p.commentID, ok = parseID(c, "comment_id"); !ok {
			return p, false
		}
	}
	return p, true
}

// RegisterRoutes registers comment-related routes
func (h *CommentHandler) RegisterRoutes(router *gin.RouterGroup) {
	comments := router.Group("/titles/:title_id/reviews/:review_id/comments",
		middleware.Require(permission.IsAuthenticatedOrReadOnly))
	{
		comments.GET("", h.List)
		comments.POST("", h.Create)
		comments.GET("/:comment_id", h.Get)
		comments.PATCH("/:comment_id", h.Update)
		comments.DELETE("/:comment_id", h.Delete)
	}
}

// List returns the comments on a review, newest first
// GET /api/v1/titles/:title_id/reviews/:review_id/comments
func (h *CommentHandler) List(c *gin.Context) {
	p, ok := parseCommentPath(c, false)
	if !ok {
		return
	}
	page, ok := parsePage(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.commentService.List(ctx, p.titleID, p.reviewID, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Create comments on a review
// POST /api/v1/titles/:title_id/reviews/:review_id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	p, ok := parseCommentPath(c, false)
	if !ok {
		return
	}
	var req dto.CreateCommentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.commentService.Create(ctx, middleware.CallerFrom(c), p.titleID, p.reviewID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// GET /api/v1/titles/:title_id/reviews/:review_id/comments/:comment_id
func (h *CommentHandler) Get(c *gin.Context) {
	p, ok := parseCommentPath(c, true)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.commentService.Get(ctx, p.titleID, p.reviewID, p.commentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// Update edits a comment (author, moderator or admin)
// PATCH /api/v1/titles/:title_id/reviews/:review_id/comments/:comment_id
func (h *CommentHandler) Update(c *gin.Context) {
	p, ok := parseCommentPath(c, true)
	if !ok {
		return
	}
	var req dto.UpdateCommentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.commentService.Update(ctx, middleware.CallerFrom(c), p.titleID, p.reviewID, p.commentID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// DELETE /api/v1/titles/:title_id/reviews/:review_id/comments/:comment_id
func (h *CommentHandler) Delete(c *gin.Context) {
	p, ok := parseCommentPath(c, true)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.commentService.Delete(ctx, middleware.CallerFrom(c), p.titleID, p.reviewID, p.commentID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
