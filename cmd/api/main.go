package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadbot_backend/internal/adapters"
	"leadbot_backend/internal/conversation"
	"leadbot_backend/internal/events"
	apphttp "leadbot_backend/internal/http"
	"leadbot_backend/internal/http/router"
	"leadbot_backend/internal/leads"
	"leadbot_backend/internal/notification"
	"leadbot_backend/internal/scheduler"
	"leadbot_backend/internal/sessions"
	sessionservice "leadbot_backend/internal/sessions/service"
	"leadbot_backend/internal/whatsapp"
	"leadbot_backend/migrations"
	"leadbot_backend/platform/config"
	"leadbot_backend/platform/db"
	"leadbot_backend/platform/logger"
	"leadbot_backend/platform/phone"
	"leadbot_backend/platform/retry"
	"leadbot_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := retry.Value(ctx, log, "database connection", retry.Startup, func(ctx context.Context) (*pgxpool.Pool, error) {
		return db.NewPool(ctx, cfg)
	})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := retry.Do(ctx, log, "database migrations", retry.Startup, func(ctx context.Context) error {
		return db.RunMigrations(ctx, pool, migrations.FS, ".", log)
	}); err != nil {
		log.Error("failed to run migrations", "error", err)
		panic("failed to run migrations: " + err.Error())
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(pool, val)
	leadStore := adapters.NewConversationLeadStore(leadsModule.Repository())
	deviceStore := adapters.NewWhatsAppDeviceStore(leadsModule.Repository())

	catalog, err := loadCatalog(cfg)
	if err != nil {
		log.Error("failed to load conversation catalog", "error", err)
		panic("failed to load conversation catalog: " + err.Error())
	}
	machine := conversation.NewMachine(catalog, val.IsEmail)

	partials, closeScheduler := initPartialSaver(cfg, leadStore, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	waClient, err := whatsapp.NewClient(ctx, cfg, deviceStore, phone.NewNormalizer(cfg.GetPhoneDefaultRegion()), log)
	if err != nil {
		log.Error("failed to initialize whatsapp transport", "error", err)
		panic("failed to initialize whatsapp transport: " + err.Error())
	}

	sessionsModule := sessions.NewModule(sessionservice.ManagerOptions{
		Transport: waClient,
		NewEngine: func(tenantID uuid.UUID, sender conversation.Sender) *conversation.Engine {
			return conversation.NewEngine(conversation.Options{
				TenantID:     tenantID,
				Machine:      machine,
				Sender:       sender,
				Store:        leadStore,
				Partials:     partials,
				Bus:          eventBus,
				Log:          log,
				IdleTimeout:  cfg.GetIdleTimeout(),
				ResumeWindow: cfg.GetResumeWindow(),
			})
		},
		Bus:     eventBus,
		Tenants: deviceStore,
		QRWait:  cfg.GetWhatsAppQRWait(),
	}, log)
	waClient.SetSink(sessionsModule.Manager())

	notificationModule := notification.NewModule(pool, val, eventBus, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			leadsModule,
			sessionsModule,
			notificationModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	if cfg.GetWhatsAppRestoreSessions() {
		go func() {
			if err := sessionsModule.Manager().RestoreSessions(ctx); err != nil {
				log.Error("failed to restore whatsapp sessions", "error", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sessionsModule.Manager().Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop whatsapp sessions", "error", err)
	}
	// open SSE streams only end when the hub closes
	notificationModule.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", "error", err)
	}
	if err := waClient.Close(); err != nil {
		log.Error("failed to close whatsapp transport", "error", err)
	}
	eventBus.Wait()
	log.Info("server stopped")
}

func loadCatalog(cfg config.ConversationConfig) (*conversation.Catalog, error) {
	if path := cfg.GetCatalogPath(); path != "" {
		return conversation.LoadCatalog(path)
	}
	return conversation.DefaultCatalog()
}

// initPartialSaver queues idle snapshots through asynq when redis is configured
// and writes them directly otherwise.
func initPartialSaver(cfg config.SchedulerConfig, store conversation.LeadStore, log *logger.Logger) (conversation.PartialSaver, func()) {
	direct := conversation.DirectPartialSaver(store)
	if !cfg.IsSchedulerEnabled() {
		log.Warn("REDIS_URL not configured; partial leads are written inline")
		return direct, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return direct, nil
	}

	return scheduler.NewQueuedPartialSaver(client, direct, log), func() {
		_ = client.Close()
	}
}
