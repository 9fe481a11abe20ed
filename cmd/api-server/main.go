package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reviewhub/database"
	"reviewhub/internal/config"
	"reviewhub/internal/logger"
	httpapi "reviewhub/internal/microservices/http-api"
	"reviewhub/internal/microservices/http-api/repository"
	"reviewhub/internal/microservices/http-api/service"
	"reviewhub/internal/notify"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	// 1. Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load config:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	// 2. Connect to the database and bring the schema up to date
	db, err := database.OpenGorm(cfg, log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db, log); err != nil {
		return err
	}

	// 3. Optional Redis guard for /auth/token
	attempts, err := newAttemptStore(cfg, log)
	if err != nil {
		return err
	}
	defer attempts.Close()

	// 4. Mail dispatcher
	var sender notify.Sender = notify.NewLogSender(log)
	if cfg.SMTPHost != "" {
		sender = notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		log.Warn("SMTP_HOST not set, confirmation codes will be written to the log")
	}
	mailer := notify.NewDispatcher(sender, cfg.MailWorkers, log)
	mailer.Start()

	// 5. Services and router
	services := buildServices(db, cfg, attempts, mailer, log)
	router := httpapi.NewRouter(services, httpapi.Options{
		Logger:        log,
		CORSOrigins:   cfg.CORSOrigins,
		AuthRateLimit: cfg.AuthRateLimit,
		AuthRateBurst: cfg.AuthRateBurst,
		Health: func(ctx context.Context) error {
			if err := database.Ping(ctx, db); err != nil {
				return err
			}
			return attempts.Ping(ctx)
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", srv.Addr, "tls", cfg.TLSEnabled)
		var err error
		if cfg.TLSEnabled {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	if err := mailer.Shutdown(shutdownCtx); err != nil {
		log.Warn("mail dispatcher did not drain", "error", err)
	}
	log.Info("server stopped")
	return nil
}

// newAttemptStore returns nil when REDIS_URL is unset; the nil store never blocks.
func newAttemptStore(cfg *config.Config, log *slog.Logger) (*repository.TokenAttemptRedisRepo, error) {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, token attempt limiting disabled")
		return nil, nil
	}
	store, err := repository.NewTokenAttemptRedisRepo(cfg.RedisURL, cfg.TokenMaxAttempts, cfg.TokenAttemptWindow)
	if err != nil {
		return nil, err
	}
	log.Info("token attempt limiting enabled", "max_attempts", cfg.TokenMaxAttempts, "window", cfg.TokenAttemptWindow)
	return store, nil
}

func buildServices(
	db *gorm.DB,
	cfg *config.Config,
	attempts *repository.TokenAttemptRedisRepo,
	mailer *notify.Dispatcher,
	log *slog.Logger,
) httpapi.Services {
	users := repository.NewUserRepository(db)
	categories := repository.NewCategoryRepo(db)
	genres := repository.NewGenreRepo(db)
	titles := repository.NewTitleRepo(db)
	reviews := repository.NewReviewRepository(db)
	comments := repository.NewCommentRepository(db)

	minter := service.NewTokenMinter(cfg.JWTSecret, cfg.AccessTokenTTL)

	return httpapi.Services{
		Auth:       service.NewAuthService(users, minter, service.RandomCodeGenerator{}, attempts, mailer, log),
		Users:      service.NewUserService(users),
		Categories: service.NewCategoryService(categories),
		Genres:     service.NewGenreService(genres),
		Titles:     service.NewTitleService(titles, categories, genres),
		Reviews:    service.NewReviewService(reviews, titles),
		Comments:   service.NewCommentService(comments, reviews),
	}
}
