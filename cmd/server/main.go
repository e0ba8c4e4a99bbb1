package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"github.com/nutripanel/nutripanel-api/internal/config"
	"github.com/nutripanel/nutripanel-api/internal/handlers"
	"github.com/nutripanel/nutripanel-api/internal/middleware"
	"github.com/nutripanel/nutripanel-api/internal/migration"
	"github.com/nutripanel/nutripanel-api/internal/notification"
	"github.com/nutripanel/nutripanel-api/internal/repository"
	"github.com/nutripanel/nutripanel-api/internal/routes"
	"github.com/nutripanel/nutripanel-api/internal/scheduler"
	"github.com/nutripanel/nutripanel-api/internal/scheduling"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config        *config.Config
	db            *sql.DB
	logger        zerolog.Logger
	appointments  scheduling.Service
	notifications notification.Service
	scheduler     *scheduler.Scheduler
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(db, logger)

	// Repositories.
	appointmentRepo := repository.NewAppointmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	userRepo := repository.NewUserRepository(db)
	settingsRepo := repository.NewSettingsRepository(db, cfg.Reminders.LeadDays)

	// Core services.
	appointmentService := scheduling.NewService(appointmentRepo, logger)
	notificationService := notification.NewService(notificationRepo, appointmentRepo, patientRepo, settingsRepo, logger)

	// Email gateway and the periodic pipelines.
	gateway, err := notification.NewSMTPGateway(cfg.Email)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure email gateway")
	}
	dispatcher := notification.NewDispatcher(notificationRepo, gateway, settingsRepo, cfg.Delivery, logger)
	reminders := notification.NewReminderGenerator(notificationService, appointmentRepo, patientRepo, logger)
	followups := notification.NewStaleFollowupScanner(notificationService, patientRepo, userRepo, cfg.Followup, logger)

	// Create the application instance.
	app := &application{
		config:        cfg,
		db:            db,
		logger:        logger,
		appointments:  appointmentService,
		notifications: notificationService,
		scheduler:     scheduler.New(dispatcher, reminders, followups, cfg, logger),
	}

	// Start the periodic scheduler.
	if err := app.scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	appointmentHandler := handlers.NewAppointmentHandler(app.appointments, logger)
	notificationHandler := handlers.NewNotificationHandler(app.notifications, logger)

	return routes.NewRouter(appointmentHandler, notificationHandler)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the periodic scheduler.
	logger.Info().Msg("Stopping scheduler...")
	app.scheduler.Stop()
	logger.Info().Msg("Scheduler stopped.")
}
