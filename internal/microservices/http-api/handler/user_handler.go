package handler

import (
	"net/http"

	"reviewhub/internal/microservices/http-api/dto"
	"reviewhub/internal/microservices/http-api/middleware"
	"reviewhub/internal/microservices/http-api/permission"
	"reviewhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes registers /users. The me routes take any authenticated
// caller; everything else is admin only.
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		me := users.Group("/me", middleware.Require(permission.Authenticated))
		me.GET("", h.GetMe)
		me.PATCH("", h.UpdateMe)

		admin := users.Group("", middleware.Require(permission.IsAdmin))
		admin.GET("", h.List)
		admin.POST("", h.Create)
		admin.GET("/:username", h.Get)
		admin.PATCH("/:username", h.Update)
		admin.DELETE("/:username", h.Delete)
	}
}

// GET /api/v1/users?search=&limit=&offset=
func (h *UserHandler) List(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.userService.List(ctx, c.Query("search"), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.userService.Create(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GET /api/v1/users/:username
func (h *UserHandler) Get(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.userService.Get(ctx, c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// PATCH /api/v1/users/:username
func (h *UserHandler) Update(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.userService.Update(ctx, c.Param("username"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DELETE /api/v1/users/:username
func (h *UserHandler) Delete(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.userService.Delete(ctx, c.Param("username")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.userService.GetMe(ctx, middleware.CallerFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// PATCH /api/v1/users/me; role is read-only here
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.userService.UpdateMe(ctx, middleware.CallerFrom(c).UserID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
