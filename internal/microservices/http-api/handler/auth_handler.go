package handler

import (
	"net/http"

	"reviewhub/internal/microservices/http-api/dto"
	"reviewhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes registers the signup / token handshake
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/signup", h.Signup)
	router.POST("/token", h.Token)
}

// Signup creates or reuses an identity and emails a confirmation code
// POST /api/v1/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.authService.Signup(ctx, req.Username, req.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	// the code itself only travels by email
	c.JSON(http.StatusOK, dto.SignupResponse{
		Username: user.Username,
		Email:    user.Email,
	})
}

// Token exchanges username + confirmation code for an access token
// POST /api/v1/auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	token, err := h.authService.IssueToken(ctx, req.Username, req.ConfirmationCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TokenResponse{Token: token})
}
