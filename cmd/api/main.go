package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"acrevista-api/bootstrap"
	"acrevista-api/controllers"
	"acrevista-api/middleware"
	"acrevista-api/models"
	"acrevista-api/monitor"
	"acrevista-api/routes"
	"acrevista-api/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := bootstrap.NewApp(ctx)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer cleanup()
	logger := app.Logger
	settings := app.Settings

	if err := models.AutoMigrate(app.DB); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	if settings.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	auth := middleware.NewAuth(app.DB, settings.JWTSecret, settings.JWTExpiration(), settings.CookieSecure)
	pages, err := web.New(app.Services, auth, settings.SiteName)
	if err != nil {
		logger.Fatal("failed to load templates", zap.Error(err))
	}

	router := gin.New()
	router.MaxMultipartMemory = 8 << 20
	router.Use(
		middleware.Recovery(logger),
		middleware.RequestLogger(logger),
		app.Recorder.Middleware(),
		middleware.SecurityHeaders(),
		middleware.CORSMiddleware(settings.AllowedOrigins),
	)

	monitor.RegisterRoutes(router, app.Recorder, app.DB)
	router.GET("/api/health", monitor.Health(app.DB))
	routes.SetupRoutes(router, routes.Options{
		Auth:   auth,
		Tokens: app.Services.Tokens,
		Limits: routes.NewLimiters(settings.RegisterRatePerMinute, settings.PasswordResetRatePerMinute),
		API:    controllers.New(app.Services, auth),
		Web:    pages,
	})

	srv := &http.Server{
		Addr:              ":" + settings.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("port", settings.ServerPort),
			zap.String("environment", settings.Environment),
			zap.String("storage", settings.StorageBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
