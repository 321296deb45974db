package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wayfarer-app/backend/internal/api"
	"github.com/wayfarer-app/backend/internal/app"
	"github.com/wayfarer-app/backend/internal/database"
	"github.com/wayfarer-app/backend/internal/dispatch"
	"github.com/wayfarer-app/backend/internal/handlers"
	"github.com/wayfarer-app/backend/internal/notifications"
	"github.com/wayfarer-app/backend/internal/planner"
	"github.com/wayfarer-app/backend/internal/providers"
	"github.com/wayfarer-app/backend/internal/services"
	"github.com/wayfarer-app/backend/pkg/logger"
	"github.com/wayfarer-app/backend/pkg/sms"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("wayfarer-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	retry := providers.RetryPolicy{
		Attempts:       cfg.Providers.Retry.Attempts,
		AttemptTimeout: cfg.Providers.Retry.AttemptTimeout,
		InitialBackoff: cfg.Providers.Retry.InitialBackoff,
		MaxBackoff:     cfg.Providers.Retry.MaxBackoff,
	}

	candidateSource, err := providers.NewGeoapifyClient(cfg.Providers.Geoapify.BaseURL, cfg.Providers.Geoapify.APIKey, cfg.Providers.Geoapify.Limit, retry)
	if err != nil {
		return fmt.Errorf("initialise attraction provider: %w", err)
	}
	forecastSource := providers.NewOpenMeteoClient(cfg.Providers.OpenMeteo.BaseURL, retry)

	preferenceSvc, err := services.NewPreferenceService(db)
	if err != nil {
		return fmt.Errorf("initialise preference service: %w", err)
	}

	reminderSvc, err := services.NewReminderService(db, preferenceSvc)
	if err != nil {
		return fmt.Errorf("initialise reminder service: %w", err)
	}

	var randSource planner.Source
	if cfg.Planner.RandomSeed != 0 {
		randSource = planner.NewSeededSource(cfg.Planner.RandomSeed)
	}

	itinerarySvc, err := services.NewItineraryService(db, candidateSource, forecastSource, reminderSvc, services.ItineraryServiceConfig{
		SearchRadiusMeters: cfg.Planner.SearchRadiusMeters,
		Rand:               randSource,
	})
	if err != nil {
		return fmt.Errorf("initialise itinerary service: %w", err)
	}

	sender, err := sms.NewSender(sms.Settings{
		Enabled:   cfg.Notifications.SMS.Enabled,
		BaseURL:   cfg.Notifications.SMS.BaseURL,
		AccountID: cfg.Notifications.SMS.AccountID,
		AuthToken: cfg.Notifications.SMS.AuthToken,
		From:      cfg.Notifications.SMS.From,
		Timeout:   cfg.Notifications.SMS.Timeout,
	}, logger.WithModule("sms"))
	if err != nil {
		return fmt.Errorf("initialise sms sender: %w", err)
	}

	hub := notifications.NewHub()

	dispatcher, err := dispatch.New(db, sender, preferenceSvc,
		dispatch.WithSchedule(cfg.Notifications.DispatchSchedule),
		dispatch.WithBatchSize(cfg.Notifications.BatchSize),
		dispatch.WithHub(hub),
	)
	if err != nil {
		return fmt.Errorf("initialise dispatcher: %w", err)
	}
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	defer func() {
		<-dispatcher.Stop().Done()
	}()

	itineraryHandler, err := handlers.NewItineraryHandler(itinerarySvc)
	if err != nil {
		return fmt.Errorf("build itinerary handler: %w", err)
	}
	notificationHandler, err := handlers.NewNotificationHandler(reminderSvc, hub)
	if err != nil {
		return fmt.Errorf("build notification handler: %w", err)
	}
	preferenceHandler, err := handlers.NewPreferenceHandler(preferenceSvc)
	if err != nil {
		return fmt.Errorf("build preference handler: %w", err)
	}

	router := api.NewRouter(db, api.Handlers{
		Itineraries:   itineraryHandler,
		Notifications: notificationHandler,
		Preferences:   preferenceHandler,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = cfg.Database.Postgres.Password
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = cfg.Database.MySQL.Password
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("database handle unavailable on shutdown", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
