package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/db"
	"github.com/anef-maroc/pdfcp-backend/internal/data/seed"
	httpx "github.com/anef-maroc/pdfcp-backend/internal/http"
	"github.com/anef-maroc/pdfcp-backend/internal/observability"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/realtime"
	"github.com/anef-maroc/pdfcp-backend/internal/realtime/bus"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Hub      *realtime.SSEHub
	Bus      bus.Bus
	Metrics  *observability.Metrics
	Server   *httpx.Server

	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
	metrics := observability.Init(log)

	theDB, err := db.Open(cfg.DBDriver, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(theDB, log); err != nil {
		log.Sync()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	sseBus, err := openBus(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	a, err := build(log, cfg, theDB, sseBus, metrics)
	if err != nil {
		_ = sseBus.Close()
		log.Sync()
		return nil, err
	}
	a.otelShutdown = otelShutdown

	if cfg.SeedTerritory {
		if _, err := a.SeedTerritory(context.Background()); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// build wires everything above the database and the bus.
func build(log *logger.Logger, cfg Config, theDB *gorm.DB, sseBus bus.Bus, metrics *observability.Metrics) (*App, error) {
	hub := realtime.NewSSEHub(log)
	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, &services.BusEmitter{Bus: sseBus}, metrics)
	if err != nil {
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, serviceset, hub)
	middleware := wireMiddleware(log, serviceset)
	tracing := observability.TracingEnabled()
	server := httpx.NewServer(":"+cfg.Port, routerConfig(log, cfg, handlerset, middleware, metrics, tracing))

	return &App{
		Log:      log,
		DB:       theDB,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Hub:      hub,
		Bus:      sseBus,
		Metrics:  metrics,
		Server:   server,
	}, nil
}

func openBus(log *logger.Logger, cfg Config) (bus.Bus, error) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set; realtime delivery stays in-process")
		return bus.NewLocalBus(), nil
	}
	b, err := bus.NewRedisBus(log, cfg.RedisAddr, cfg.RedisChannel)
	if err != nil {
		return nil, fmt.Errorf("init redis bus: %w", err)
	}
	return b, nil
}

func (a *App) Seeder() *seed.Seeder {
	return seed.NewSeeder(a.Log, a.Repos.Territory, a.Repos.User, a.Repos.Tx)
}

// SeedTerritory loads TERRITORY_SEED_FILE, or the embedded referential, and upserts it.
func (a *App) SeedTerritory(ctx context.Context) (seed.Counts, error) {
	ref, err := seed.Load(a.Cfg.TerritorySeedFile)
	if err != nil {
		return seed.Counts{}, err
	}
	counts, err := a.Seeder().SeedTerritory(ctx, ref)
	if err != nil {
		return seed.Counts{}, fmt.Errorf("seed territory: %w", err)
	}
	a.Services.Territory.Invalidate()
	return counts, nil
}

// Run serves HTTP and runs the background loops until ctx is cancelled, then
// shuts everything down.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, ctx := errgroup.WithContext(ctx)

	if err := a.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
		return fmt.Errorf("start bus forwarder: %w", err)
	}
	if a.Services.SyncWorker != nil {
		g.Go(func() error { return a.Services.SyncWorker.Run(ctx) })
	}
	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
		a.Metrics.StartSyncQueueCollector(ctx, a.Log, a.DB)
		if p, ok := a.Bus.(bus.Pinger); ok {
			a.Metrics.StartRedisCollector(ctx, a.Log, p)
		}
	}

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", ":"+a.Cfg.Port)
		return a.Server.Run()
	})
	g.Go(func() error {
		<-ctx.Done()
		a.Log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
