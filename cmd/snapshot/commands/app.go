package commands

import (
	"context"
	"fmt"

	"github.com/wonny/snapshot-engine/internal/boundary"
	"github.com/wonny/snapshot-engine/internal/market"
	"github.com/wonny/snapshot-engine/internal/orchestrator"
	"github.com/wonny/snapshot-engine/internal/reserveratio"
	"github.com/wonny/snapshot-engine/internal/storage"
	"github.com/wonny/snapshot-engine/pkg/config"
	"github.com/wonny/snapshot-engine/pkg/database"
	"github.com/wonny/snapshot-engine/pkg/httputil"
	"github.com/wonny/snapshot-engine/pkg/logger"
	snapredis "github.com/wonny/snapshot-engine/pkg/redis"
)

// app bundles every wired collaborator a CLI command needs, plus a
// cleanup func that closes the database pool.
// ⭐ SSOT: 프로세스 전체 의존성 조립은 이 함수에서만
type app struct {
	cfg     *config.Config
	logger  *logger.Logger
	store   *storage.Store
	orch    *orchestrator.Orchestrator
	scraper *reserveratio.Scraper
	cleanup func()
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	store, err := storage.New(ctx, db.Pool, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	httpClient := httputil.New(cfg, log)
	marketClient := market.NewClient(httpClient, log, &cfg.Market)

	var limiter *snapredis.RateLimiter
	if redisClient, err := snapredis.New(cfg); err == nil {
		limiter = snapredis.NewRateLimiter(redisClient, "snapshot-engine")
	} else {
		log.WithError(err).Warn("redis unavailable, reserve-ratio scraper running without rate limiting")
	}

	scraperCfg := reserveratio.Config{
		MaxWorkers:    cfg.Scraper.MaxWorkers,
		SamplePath:    cfg.Scraper.SamplePath,
		ProgressEvery: cfg.Scraper.ProgressEvery,
		RateLimit:     snapredis.NaverRateLimit,
	}
	scraper := reserveratio.New(httpClient, log, limiter, scraperCfg)

	orch := orchestrator.New(store, marketClient, scraper, log)

	return &app{
		cfg:     cfg,
		logger:  log,
		store:   store,
		orch:    orch,
		scraper: scraper,
		cleanup: func() { db.Close() },
	}, nil
}

func (a *app) boundaryServer() *boundary.Server {
	handler := boundary.NewSnapshotHandler(a.store, a.logger)
	router := boundary.NewRouter(handler, a.logger)
	return boundary.New(a.cfg, a.logger, router)
}
