package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/skyreport/skyreport/internal/config"
	"github.com/skyreport/skyreport/internal/db"
	"github.com/skyreport/skyreport/internal/repository"
	"github.com/skyreport/skyreport/internal/service"
	"github.com/skyreport/skyreport/internal/storage"
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	AuthService    *service.AuthService
	UpdateService  *service.UpdateService
	WeatherService *service.WeatherService
	EmailService   *service.EmailService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	updateRepository := repository.NewUpdateRepository(database)

	// Storage
	imageStorage, err := storage.NewS3Storage(storage.S3Config{
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Endpoint:  cfg.S3Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(
		userRepository,
		tokenRepository,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
		cfg.TokenEmailVerifyExpiry,
		cfg.TokenPasswordResetExpiry,
		cfg.ResendCooldown,
	)
	updateService := service.NewUpdateService(updateRepository, imageStorage)
	weatherService := service.NewWeatherService(cfg.WeatherAPIKey, cfg.WeatherAPIBaseURL)

	return &App{
		Cfg:            cfg,
		DB:             database,
		AuthService:    authService,
		UpdateService:  updateService,
		WeatherService: weatherService,
		EmailService:   emailService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
