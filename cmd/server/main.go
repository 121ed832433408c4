package main

import (
	"context"

	"github.com/heelo-app/heelo-server/internal/app"
	"github.com/heelo-app/heelo-server/internal/cache"
	"github.com/heelo-app/heelo-server/internal/config"
	"github.com/heelo-app/heelo-server/internal/db"
	"github.com/heelo-app/heelo-server/internal/logger"
	"github.com/heelo-app/heelo-server/internal/server"
	"github.com/heelo-app/heelo-server/internal/service/chat"
	"github.com/heelo-app/heelo-server/internal/service/discovery"
	"github.com/heelo-app/heelo-server/internal/service/interest"
	"github.com/heelo-app/heelo-server/internal/service/match"
	"github.com/heelo-app/heelo-server/internal/service/notify"
	"github.com/heelo-app/heelo-server/internal/service/profile"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log)

	// Wire services: the ledger and engine write notifications through the
	// notify service, the engine seeds conversations through chat.
	notifySvc := notify.NewService(appCtx)
	chatSvc := chat.NewService(appCtx)
	matchSvc := match.NewService(appCtx, notifySvc, chatSvc)
	interestSvc := interest.NewService(appCtx, notifySvc)

	registrars := []server.Registrar{
		profile.NewService(appCtx),
		discovery.NewService(appCtx),
		interest.NewHandler(interestSvc, matchSvc),
		matchSvc,
		chatSvc,
		notifySvc,
	}

	if cfg.App.Env == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(cfg, registrars...); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
