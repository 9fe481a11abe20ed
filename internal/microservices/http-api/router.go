// Package httpapi assembles the gin engine serving /api/v1.
package httpapi

import (
	"log/slog"

	"reviewhub/internal/microservices/http-api/handler"
	"reviewhub/internal/microservices/http-api/middleware"
	"reviewhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// Services is everything the routes delegate to.
type Services struct {
	Auth       service.AuthService
	Users      service.UserService
	Categories service.CategoryService
	Genres     service.GenreService
	Titles     service.TitleService
	Reviews    service.ReviewService
	Comments   service.CommentService
}

// Options tune the router's cross-cutting middleware.
type Options struct {
	Logger        *slog.Logger
	CORSOrigins   []string
	AuthRateLimit float64
	AuthRateBurst int
	Health        handler.Pinger
}

// NewRouter wires middleware and every handler under /api/v1.
func NewRouter(svc Services, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(middleware.CORS(opts.CORSOrigins))

	if opts.Health != nil {
		r.GET("/healthz", handler.NewHealthHandler(opts.Health).Check)
	}

	api := r.Group("/api/v1", middleware.Authenticate(svc.Auth))

	auth := api.Group("/auth", middleware.RateLimitByIP(opts.AuthRateLimit, opts.AuthRateBurst))
	handler.NewAuthHandler(svc.Auth).RegisterRoutes(auth)

	handler.NewUserHandler(svc.Users).RegisterRoutes(api)
	handler.NewCategoryHandler(svc.Categories).RegisterRoutes(api)
	handler.NewGenreHandler(svc.Genres).RegisterRoutes(api)
	handler.NewTitleHandler(svc.Titles).RegisterRoutes(api)
	handler.NewReviewHandler(svc.Reviews).RegisterRoutes(api)
	handler.NewCommentHandler(svc.Comments).RegisterRoutes(api)

	return r
}
