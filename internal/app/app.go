package app

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

	"github.com/robfig/cron/v3"

	"adoptify-web/internal/apiclient"
	"adoptify-web/internal/authclient"
	"adoptify-web/internal/config"
	"adoptify-web/internal/database"
	"adoptify-web/internal/event"
	"adoptify-web/internal/handler"
	"adoptify-web/internal/logger"
	"adoptify-web/internal/middleware"
	"adoptify-web/internal/repository"
	"adoptify-web/internal/router"
	"adoptify-web/internal/service"
	"adoptify-web/internal/session"
	"adoptify-web/internal/upstream"
	"adoptify-web/internal/websocket"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.LogLevel))

	return NewWithConfig(context.Background(), cfg)
}

// NewWithConfig wires the frontend. Without DATABASE_URL sessions live in
// memory and are lost on restart.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	var (
		registry session.Registry
		sweeper  session.Sweeper
		pinger   handler.Pinger
	)

	if cfg.DatabaseURL != "" {
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}

		repo := repository.NewSessionRepository(db.Pool)
		registry, sweeper, pinger = repo, repo, db
		a.db = db
		a.cleanupFuncs = append(a.cleanupFuncs, db.Close)
		slog.Info("session store ready", "backend", "postgres")
	} else {
		memory := session.NewMemoryRegistry()
		registry, sweeper = memory, memory
		slog.Info("session store ready", "backend", "memory")
	}

	bus := event.NewBus()
	eventsCtx, eventsCancel := context.WithCancel(context.Background())
	go event.RunAuditLog(eventsCtx, bus, slog.Default())
	a.cleanupFuncs = append(a.cleanupFuncs, eventsCancel)

	hub := websocket.NewHub(bus, cfg.CORSOrigins, slog.Default())
	go hub.Run(eventsCtx)

	sweepCron, err := startSweeper(cfg.SessionSweepSchedule, sweeper, cfg.SessionIdleTTL, slog.Default())
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to schedule session sweeper: %w", err)
	}
	a.cleanupFuncs = append(a.cleanupFuncs, func() {
		<-sweepCron.Stop().Done()
	})

	api := upstream.New(cfg.APIBaseURL, cfg.APITimeout, slog.Default())
	authClient := authclient.New(api)
	requests := apiclient.New(api, authClient, apiclient.WithEvents(bus), apiclient.WithLogger(slog.Default()))

	sessionService := service.NewSessionService(authClient, requests, bus, slog.Default())
	petService := service.NewPetService(requests)
	shelterService := service.NewShelterService(requests)
	adoptionService := service.NewAdoptionService(requests, petService)
	donationService := service.NewDonationService(requests)

	sessionMiddleware := middleware.NewSessionMiddleware(registry, cfg.SessionCookieName, cfg.SessionCookieSecure, cfg.SessionIdleTTL)

	appRouter := router.New(cfg, sessionMiddleware, hub, router.Handlers{
		Session:  handler.NewSessionHandler(sessionService, adoptionService),
		Pets:     handler.NewPetHandler(petService),
		Shelters: handler.NewShelterHandler(shelterService),
		Adoption: handler.NewAdoptionHandler(adoptionService, donationService),
		Admin:    handler.NewAdminHandler(sessionService),
		Health:   handler.NewHealthHandler(pinger),
	})

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

// Handler exposes the routed handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	return a.Shutdown()
}

// Shutdown drains in-flight requests before releasing the session store.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.server.Shutdown(ctx)
	a.cleanup()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}

func startSweeper(schedule string, sweeper session.Sweeper, idleFor time.Duration, log *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		sweepOnce(context.Background(), sweeper, idleFor, log)
	}); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
