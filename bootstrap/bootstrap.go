package bootstrap

import (
	"context"
	"fmt"

	"acrevista-api/config"
	"acrevista-api/monitor"
	"acrevista-api/services"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the collaborators shared by the server and the admin CLI.
type App struct {
	Settings *config.Settings
	Logger   *zap.Logger
	DB       *gorm.DB
	Recorder *monitor.Recorder
	Services *services.Services
}

// NewApp loads settings, opens the database and wires the services. The
// returned cleanup closes the database and flushes the logger.
func NewApp(ctx context.Context) (*App, func(), error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	logger, err := config.InitLogging(settings)
	if err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}

	db, err := config.InitDB(settings)
	if err != nil {
		return nil, nil, err
	}

	storage, err := services.NewStorage(ctx, settings)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	recorder := monitor.NewRecorder()
	svc := services.New(services.Deps{
		DB:             db,
		Storage:        storage,
		Notifier:       services.NewMailNotifier(config.NewMailer(settings), settings.SiteName),
		Metrics:        recorder,
		SiteName:       settings.SiteName,
		BaseURL:        settings.BaseURL,
		MaxUploadBytes: settings.MaxUploadBytes(),
		LoginTokenDays: settings.LoginTokenDays,
	})

	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Error("failed to close database", zap.Error(err))
			}
		}
		_ = logger.Sync()
	}

	return &App{
		Settings: settings,
		Logger:   logger,
		DB:       db,
		Recorder: recorder,
		Services: svc,
	}, cleanup, nil
}
