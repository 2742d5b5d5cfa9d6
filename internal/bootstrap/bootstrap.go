// Package bootstrap opens the infrastructure shared by the server and worker binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-webinar/feedbackhub/config"
	"github.com/aura-webinar/feedbackhub/pkg/database"
	"github.com/aura-webinar/feedbackhub/pkg/kv"
	"github.com/aura-webinar/feedbackhub/pkg/kv/sqlitekv"
	"github.com/aura-webinar/feedbackhub/pkg/redis"
)

// NewLogger builds the production zap logger.
func NewLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

// Infra holds the connections opened for a process. Nil fields were not configured.
type Infra struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client

	// Store is the review slot backend; Watcher is set when that backend can
	// report writes made by other instances.
	Store   kv.Store
	Watcher kv.Watcher

	closers []func()
}

// Close releases every connection in reverse open order.
func (i *Infra) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		i.closers[n]()
	}
}

// Open connects to the databases cfg asks for and opens the configured store backend.
// origin tags this process's writes so its own change signals can be told apart.
func Open(ctx context.Context, cfg *config.Config, origin string, logger *zap.Logger) (*Infra, error) {
	infra := &Infra{}
	fail := func(err error) (*Infra, error) {
		infra.Close()
		return nil, err
	}

	if cfg.NeedsPostgres() {
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), logger)
		if err != nil {
			return fail(fmt.Errorf("database: %w", err))
		}
		infra.Pool = pool
		infra.closers = append(infra.closers, pool.Close)
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fail(fmt.Errorf("migrate: %w", err))
		}
	}

	if cfg.NeedsRedis() {
		rdb, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			return fail(fmt.Errorf("redis: %w", err))
		}
		infra.Redis = rdb
		infra.closers = append(infra.closers, func() { _ = rdb.Close() })
	}

	switch cfg.Store.Backend {
	case config.BackendMemory:
		m := kv.NewMemory(origin)
		infra.Store, infra.Watcher = m, m
	case config.BackendRedis:
		r := kv.NewRedis(infra.Redis.Client, origin, logger)
		infra.Store, infra.Watcher = r, r
	case config.BackendPostgres:
		p := kv.NewPostgres(infra.Pool, origin, logger)
		infra.Store, infra.Watcher = p, p
	case config.BackendSQLite:
		s, err := sqlitekv.Open(cfg.SQLite.Path)
		if err != nil {
			return fail(err)
		}
		infra.Store = s
		infra.closers = append(infra.closers, func() { _ = s.Close() })
	case config.BackendMongo:
		client, err := kv.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return fail(err)
		}
		infra.Store = kv.NewMongo(client.Database(cfg.Mongo.Database))
		infra.closers = append(infra.closers, func() { _ = client.Disconnect(context.Background()) })
	default:
		return fail(fmt.Errorf("unknown store backend %q", cfg.Store.Backend))
	}
	logger.Info("review store opened", zap.String("backend", cfg.Store.Backend), zap.Bool("cross_instance_signal", infra.Watcher != nil))
	return infra, nil
}
