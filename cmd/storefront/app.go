package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/shop"
	"go.uber.org/zap"
)

// app holds everything a command needs once config is loaded.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *sql.DB
	metrics *metrics.Metrics
	svc     *shop.Service
	closers []func() error
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Env, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("connected to database")

	a := &app{cfg: cfg, log: log, db: db, metrics: metrics.New()}
	a.closers = append(a.closers, db.Close)

	backend, err := a.cacheBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.svc = shop.New(shop.Options{
		DB:          db,
		Reference:   cache.NewLoader(backend, cfg.Catalog.CacheTTL, cache.WithObserver(a.metrics.ObserveCache)),
		Revocations: cache.NewRevocations(backend, time.Now),
		Tokens:      auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, time.Now),
		Policy: shop.Policy{
			StrictTransitions: cfg.Orders.StrictTransitions,
			RequirePurchase:   cfg.Reviews.RequirePurchase,
		},
		Checkouts: a.metrics,
		Logger:    log,
		Now:       time.Now,
	})

	return a, nil
}

// cacheBackend uses Redis when REDIS_ADDR is set so that several replicas
// share the catalog cache and the token revocation list.
func (a *app) cacheBackend(ctx context.Context) (cache.Backend, error) {
	if a.cfg.Redis.Addr == "" {
		a.log.Info("using in-memory cache")
		return cache.NewMemory(time.Now), nil
	}

	redis, err := cache.NewRedis(ctx, cache.RedisOptions{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		Prefix:   "storefront:",
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.closers = append(a.closers, redis.Close)
	a.log.Info("using redis cache", zap.String("addr", a.cfg.Redis.Addr))
	return redis, nil
}

func (a *app) seedAdmin() shop.SeedAdmin {
	return shop.SeedAdmin{
		Username: a.cfg.Seed.AdminUsername,
		Password: a.cfg.Seed.AdminPassword,
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	a.log.Sync()
}
