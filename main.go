package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/quitmate/config"
	"github.com/cppla/quitmate/events"
	"github.com/cppla/quitmate/models"
	"github.com/cppla/quitmate/routes"
	"github.com/cppla/quitmate/services"
	"github.com/cppla/quitmate/store"
	"github.com/cppla/quitmate/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	var (
		st      store.Store
		cleanup []func()
	)
	switch cfg.DBDriver {
	case "mongo":
		client, db := config.InitMongo(context.Background())
		ms := store.NewMongoStore(db)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := ms.EnsureIndexes(ctx); err != nil {
			cancel()
			utils.Logger.Fatal("mongo index creation failed", zap.Error(err))
		}
		cancel()
		st = ms
		cleanup = append(cleanup, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		})
	default:
		db := config.InitDatabase(models.All()...)
		st = store.NewGormStore(db)
		cleanup = append(cleanup, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
	}

	var cache services.Cache
	if rc := utils.NewRedisCache(utils.GetRedis()); rc != nil {
		cache = rc
	}

	hub := events.NewHub()
	cal := services.NewCalendar(services.SystemClock(), cfg.Location)
	svc := services.NewSet(st, cal, hub, cache, cfg.MakeUpMonthlyQuota, cfg.StatsCacheTTL)

	r := routes.SetupRouter(svc, hub)

	srv := utils.GraceServer(":"+cfg.AppPort, r)
	srv.OnShutdown(hub.Close)
	for _, fn := range cleanup {
		srv.OnShutdown(fn)
	}

	utils.Logger.Info("starting server",
		zap.String("port", cfg.AppPort),
		zap.String("driver", cfg.DBDriver),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("redis", cache != nil),
	)
	if err := srv.ListenAndServe(); err != nil {
		utils.Logger.Fatal("server stopped with error", zap.Error(err))
	}
}
