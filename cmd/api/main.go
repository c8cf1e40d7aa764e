package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"belleza/internal/api"
	"belleza/internal/config"
	"belleza/internal/database"
	"belleza/internal/domain"
	"belleza/internal/events"
	"belleza/internal/export"
	"belleza/internal/google"
	"belleza/internal/logging"
	"belleza/internal/metrics"
	"belleza/internal/models"
	"belleza/internal/repository"
	"belleza/internal/service"
	"belleza/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	schedules, err := loadSchedules(&logger)
	if err != nil {
		return err
	}

	db, err := initDatabase(cfg, schedules, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	slotCache := buildSlotCache(redisClient, &logger)

	eventBus := events.NewEventBus()
	subscribeEventLogging(eventBus, &logger)

	sheetsService := initGoogleSheets(cfg, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var syncWorker domain.SyncWorker
	if sheetsService != nil {
		w := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.RetryPolicy{}, nil)
		go w.Start(ctx)
		syncWorker = w
		go resyncReservationsSheet(ctx, db, sheetsService, &logger)
	}

	go database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger).Start(ctx)

	exporter := export.NewExporter(cfg.Exports, &logger)
	svc := service.NewReservationService(db, slotCache, eventBus, syncWorker, cfg.Booking, &logger)
	httpServer := api.NewHTTPServer(cfg.API, cfg.Booking, svc, slotCache, exporter)

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// scheduleSeed is one configured working-hours row; employees listed
// under it get the window assigned at startup.
type scheduleSeed struct {
	Name      string   `yaml:"name"`
	Days      string   `yaml:"days"`
	Start     string   `yaml:"start"`
	End       string   `yaml:"end"`
	Employees []string `yaml:"employees"`
}

func loadSchedules(logger *zerolog.Logger) ([]scheduleSeed, error) {
	schedulesPath := os.Getenv("SCHEDULES_PATH")
	if schedulesPath == "" {
		schedulesPath = "configs/schedules.yaml"
	}

	data, err := os.ReadFile(schedulesPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("schedules_path", schedulesPath).Msg("no schedules file, skipping schedule seeding")
			return nil, nil
		}
		logger.Error().Err(err).Str("schedules_path", schedulesPath).Msg("read schedules")
		return nil, err
	}

	var schedulesConfig struct {
		Schedules []scheduleSeed `yaml:"schedules"`
	}
	if err := yaml.Unmarshal(data, &schedulesConfig); err != nil {
		logger.Error().Err(err).Str("schedules_path", schedulesPath).Msg("parse schedules")
		return nil, err
	}

	return schedulesConfig.Schedules, nil
}

func initDatabase(cfg *config.Config, schedules []scheduleSeed, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	ctx := context.Background()
	if err := db.SeedServices(ctx, cfg.Services); err != nil {
		logger.Error().Err(err).Msg("seed services")
		db.Close()
		return nil, err
	}

	if err := seedSchedules(ctx, db, schedules, logger); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func seedSchedules(ctx context.Context, db *database.DB, schedules []scheduleSeed, logger *zerolog.Logger) error {
	for _, s := range schedules {
		start, err := models.ParseClock(s.Start)
		if err != nil {
			logger.Warn().Err(err).Str("schedule", s.Name).Msg("skipping schedule with bad start time")
			continue
		}
		end, err := models.ParseClock(s.End)
		if err != nil {
			logger.Warn().Err(err).Str("schedule", s.Name).Msg("skipping schedule with bad end time")
			continue
		}

		window := &models.WorkingWindow{
			Name:        s.Name,
			DayLabel:    s.Days,
			StartMinute: start,
			EndMinute:   end,
		}
		if err := db.CreateSchedule(ctx, window); err != nil {
			return fmt.Errorf("create schedule %q: %w", s.Name, err)
		}
		for _, employeeID := range s.Employees {
			if err := db.AssignSchedule(ctx, employeeID, window.ID); err != nil {
				return fmt.Errorf("assign schedule %q to %s: %w", s.Name, employeeID, err)
			}
		}
	}
	return nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// buildSlotCache wires the slot cache: redis with in-memory failover
// when redis is configured, plain in-memory otherwise.
func buildSlotCache(redisClient *redis.Client, logger *zerolog.Logger) domain.SlotCache {
	memory := repository.NewMemorySlotCache()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverSlotCache(repository.NewRedisSlotCache(redisClient), memory, logger)
}

func subscribeEventLogging(bus *events.EventBus, logger *zerolog.Logger) {
	eventLogger := logging.Component(logger, "events")
	handler := func(e *events.Event) error {
		eventLogger.Info().Str("event", e.Type).RawJSON("payload", e.Payload).Msg("domain event")
		return nil
	}

	for _, eventType := range []string{
		events.EventReservationCreated,
		events.EventReservationConfirmed,
		events.EventReservationCanceled,
		events.EventReservationCompleted,
		events.EventSlotConflict,
	} {
		bus.Subscribe(eventType, handler)
	}
}

func initGoogleSheets(cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.AgendaSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(
		cfg.Google.GoogleCredentialsFile,
		cfg.Google.AgendaSpreadSheetID,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

// resyncReservationsSheet rewrites the flat reservations sheet on
// startup so the spreadsheet catches up with changes made while the
// service was down.
func resyncReservationsSheet(ctx context.Context, db *database.DB, sheets *google.SheetsService, logger *zerolog.Logger) {
	start := time.Now().AddDate(0, 0, -7)
	end := time.Now().AddDate(0, 0, 60)

	reservations, err := db.GetReservationsByDateRange(ctx, start, end)
	if err != nil {
		logger.Error().Err(err).Msg("load reservations for sheet resync")
		return
	}

	if err := sheets.ReplaceReservationsSheet(ctx, reservations); err != nil {
		logger.Error().Err(err).Msg("reservations sheet resync failed")
		return
	}
	logger.Info().Int("count", len(reservations)).Msg("reservations sheet resynced")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
