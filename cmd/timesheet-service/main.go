package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/medflow/medflow-timesheet/internal/timesheet/consumers"
	"github.com/medflow/medflow-timesheet/internal/timesheet/events"
	"github.com/medflow/medflow-timesheet/internal/timesheet/handler"
	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
	"github.com/medflow/medflow-timesheet/internal/timesheet/service"
	"github.com/medflow/medflow-timesheet/pkg/cache"
	"github.com/medflow/medflow-timesheet/pkg/config"
	"github.com/medflow/medflow-timesheet/pkg/database"
	"github.com/medflow/medflow-timesheet/pkg/httputil"
	"github.com/medflow/medflow-timesheet/pkg/logger"
	"github.com/medflow/medflow-timesheet/pkg/messaging"
)

const serviceName = "timesheet-service"

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.Environment).SetLevel(cfg.Server.LogLevel)
	log.Info().Msg("starting Timesheet Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Initialize repositories
	employeeRepo := repository.NewEmployeeRepository(db)
	timesheetRepo := repository.NewTimesheetRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)

	// Report cache
	var reportCache cache.Cache
	switch cfg.Cache.Backend {
	case config.CacheBackendDatabase:
		reportCache = repository.NewReportCacheRepository(db)
	default:
		reportCache = cache.NewMemory()
	}
	log.Info().Str("backend", cfg.Cache.Backend).Msg("report cache ready")

	invalidator := service.NewInvalidator(reportCache, cfg.Report.WeekStartDay(), log)

	// RabbitMQ is optional. Without it timesheet changes are not announced and
	// every replica only sees its own invalidations.
	var rmq *messaging.RabbitMQ
	var publisher *events.TimesheetEventPublisher
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
			log.Fatal().Err(err).Msg("failed to declare dead letter queue")
		}

		publisher, err = events.NewTimesheetEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}

		start := startConsumers(ctx, cfg, rmq, invalidator, employeeRepo, log)
		go rmq.Watch(ctx, func() {
			if err := start(); err != nil {
				log.Error().Err(err).Msg("failed to restart consumers after reconnect")
			}
		})
	} else {
		log.Warn().Msg("RabbitMQ disabled, timesheet events are not published")
	}

	// Initialize services
	aggregator := service.NewAggregator(timesheetRepo, taskRepo, log)
	builder := service.NewReportBuilder(employeeRepo, aggregator, reportCache, cfg.Report, log)
	reportService := service.NewReportService(employeeRepo, leaveRepo, holidayRepo, builder, cfg.Report, cfg.Auth, log)
	timesheetService := service.NewTimesheetService(timesheetRepo, employeeRepo, invalidator, publisher, log)

	// Initialize handlers
	reportHandler := handler.NewReportHandler(reportService, log)
	timesheetHandler := handler.NewTimesheetHandler(timesheetService, reportService, log)
	cacheHandler := handler.NewCacheHandler(invalidator, cfg.Auth, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.Identity(&cfg.JWT, log)) // skips /health

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
			"cache":    map[string]string{"backend": cfg.Cache.Backend},
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		} else {
			health["rabbitmq"] = map[string]string{"status": "disabled"}
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	// API routes
	handler.RegisterRoutes(r, reportHandler, timesheetHandler, cacheHandler)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// startConsumers subscribes to timesheet and staff events and starts consuming. The
// memory cache lives in one process, so each replica then consumes timesheet events on
// its own queue, which the broker drops together with the replica's connection. The
// returned function starts both consumers again on a new channel.
func startConsumers(
	ctx context.Context,
	cfg *config.Config,
	rmq *messaging.RabbitMQ,
	invalidator *service.Invalidator,
	employeeRepo *repository.EmployeeRepository,
	log *logger.Logger,
) func() error {
	queue := serviceName + ".timesheet-events"
	perInstance := cfg.Cache.Backend == config.CacheBackendMemory
	if perInstance {
		hostname, err := os.Hostname()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to resolve hostname for the instance queue")
		}
		queue += "." + hostname
	}

	timesheetConsumer, err := consumers.NewTimesheetEventConsumer(rmq, queue, perInstance, invalidator, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create timesheet event consumer")
	}

	employeeConsumer, err := consumers.NewEmployeeEventConsumer(rmq, employeeRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create employee event consumer")
	}

	start := func() error {
		if err := timesheetConsumer.Start(ctx); err != nil {
			return fmt.Errorf("start timesheet event consumer: %w", err)
		}
		if err := employeeConsumer.Start(ctx); err != nil {
			return fmt.Errorf("start employee event consumer: %w", err)
		}
		return nil
	}

	if err := start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start consumers")
	}
	return start
}
