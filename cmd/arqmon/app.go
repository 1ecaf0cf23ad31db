package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/mohans/arqmon/arqmon"
	"github.com/mohans/arqmon/internal/cache"
	"github.com/mohans/arqmon/internal/config"
	"github.com/mohans/arqmon/internal/jobs"
	"github.com/mohans/arqmon/internal/service"
)

// app holds the components shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	rdb     *redis.Client
	store   arqmon.Store
	service *service.JobService
}

func redisOptions(c config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:     c.Addr(),
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
	}
	if c.SSL {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

func asynqOptions(c config.RedisConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{
		Addr:     c.Addr(),
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
	}
	if c.SSL {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opt
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	switch cfg.Store.Type {
	case "asynq":
		a.store = arqmon.NewAsynqStore(asynqOptions(cfg.Redis))
	default:
		a.rdb = redis.NewClient(redisOptions(cfg.Redis))
		a.store = arqmon.NewRedisStore(a.rdb, arqmon.RedisStoreOptions{
			QueueName:         cfg.Store.QueueName,
			AbortTimeout:      cfg.Store.AbortTimeout,
			AbortPollInterval: cfg.Store.AbortPollInterval,
		})
	}

	loc, err := cfg.Jobs.Location()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("jobs timezone: %w", err)
	}
	c, err := cache.New(cfg.Jobs.MaxJobs)
	if err != nil {
		a.close()
		return nil, err
	}
	resolver := jobs.NewResolver(a.store, c, loc, logger)
	aggregator := jobs.NewAggregator(a.store, resolver, jobs.AggregatorConfig{
		Concurrency:    cfg.Jobs.Concurrency,
		TolerateErrors: cfg.Jobs.TolerateResolveErrors,
	}, logger)
	a.service = service.NewJobService(a.store, resolver, aggregator, service.Config{
		MaxJobs:      cfg.Jobs.MaxJobs,
		RecentWindow: cfg.Jobs.RecentWindow,
	}, logger)
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close store", "error", err)
		}
	}
}
