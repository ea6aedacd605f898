package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/btcmood-backend/internal/clients/redis"
	"github.com/yungbote/btcmood-backend/internal/data/db"
	"github.com/yungbote/btcmood-backend/internal/data/uow"
	"github.com/yungbote/btcmood-backend/internal/modules/imagegen"
	"github.com/yungbote/btcmood-backend/internal/modules/imagegen/prompts"
	"github.com/yungbote/btcmood-backend/internal/observability"
	"github.com/yungbote/btcmood-backend/internal/pkg/logger"
	"github.com/yungbote/btcmood-backend/internal/temporalx/dailyrun"
)

// App owns the process-wide handles. Everything below it is constructed here
// and passed down; nothing reaches for a global.
type App struct {
	Log     *logger.Logger
	Cfg     Config
	DB      *gorm.DB
	Gateway uow.Gateway
	Repos   Repos

	pg           *db.PostgresService
	clients      *Clients
	cache        redis.ActiveCache
	shutdownOtel func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdown := observability.InitOTel(ctx, log, cfg.Otel)

	pg, err := db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}

	if !cfg.WriteEnabled {
		log.Warn("WRITE_ENABLED=false; ledger writes are discarded")
	}
	return &App{
		Log:          log,
		Cfg:          cfg,
		DB:           pg.DB(),
		Gateway:      uow.New(pg.DB(), log, cfg.WriteEnabled),
		Repos:        wireRepos(log),
		pg:           pg,
		shutdownOtel: shutdown,
	}, nil
}

func (a *App) Clients() (Clients, error) {
	if a.clients != nil {
		return *a.clients, nil
	}
	c, err := wireClients(a.Log, a.Cfg, a.activeCache())
	if err != nil {
		return Clients{}, err
	}
	a.clients = &c
	return c, nil
}

func (a *App) Orchestrator() (*imagegen.Orchestrator, error) {
	c, err := a.Clients()
	if err != nil {
		return nil, err
	}
	tmpl, err := prompts.Load(a.Cfg.TemplatesPath)
	if err != nil {
		return nil, err
	}
	deps := imagegen.Deps{
		Log:        a.Log,
		Gateway:    a.Gateway,
		Prompts:    a.Repos.Prompt,
		ImageLinks: a.Repos.ImageLink,
		Versions:   a.Repos.DailyImageVersion,
		Text:       c.OpenAI,
		Images:     c.OpenAI,
		Store:      c.Store,
		Templates:  tmpl,
	}
	if c.Cache != nil {
		deps.Cache = c.Cache
	}
	return imagegen.NewOrchestrator(deps, imagegen.Options{
		Image:       a.Cfg.OpenAI.DefaultImageOptions(),
		PresignTTL:  a.Cfg.PresignTTL,
		Concurrency: a.Cfg.CategoryConcurrency,
	})
}

// DailyRun wraps the orchestrator in the calendar-day logic shared by every
// trigger.
func (a *App) DailyRun() (*dailyrun.Activities, error) {
	orch, err := a.Orchestrator()
	if err != nil {
		return nil, err
	}
	return &dailyrun.Activities{Log: a.Log, Generator: orch}, nil
}

// Reader serves the active version per category; the redis cache is used
// only when configured and reachable.
func (a *App) Reader() *imagegen.ActiveImageReader {
	var cache imagegen.ActiveCache
	if c := a.activeCache(); c != nil {
		cache = c
	}
	return imagegen.NewActiveImageReader(a.Log, a.Gateway, a.Repos.DailyImageVersion, cache)
}

// ActiveCache returns the redis cache, or nil when it is not configured or
// not reachable.
func (a *App) ActiveCache() redis.ActiveCache { return a.activeCache() }

func (a *App) activeCache() redis.ActiveCache {
	if a.cache != nil || a.Cfg.Redis.Addr == "" {
		return a.cache
	}
	c, err := redis.NewActiveCache(a.Log, a.Cfg.Redis)
	if err != nil {
		a.Log.Warn("Active cache unavailable; reading ledger directly", "error", err)
		return nil
	}
	a.cache = c
	return c
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.shutdownOtel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.shutdownOtel(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
