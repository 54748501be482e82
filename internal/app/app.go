// Package app wires configuration into the shared runtime pieces used by
// both binaries: the store, token revocation, locking and the sweeper.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"projecthub/internal/authz"
	"projecthub/internal/config"
	"projecthub/internal/events"
	"projecthub/internal/model"
	"projecthub/internal/repository"
	"projecthub/internal/repository/memory"
	"projecthub/internal/service"
	"projecthub/internal/sweep"
	"projecthub/pkg/db"
	"projecthub/pkg/outbox"
	"projecthub/pkg/redis"
	"projecthub/pkg/util"
)

// Infra holds the process-wide connections. Pool and Redis are nil when
// the corresponding backend is disabled.
type Infra struct {
	Store    repository.Store
	Outbox   outbox.ReplayStore
	Postgres *repository.PostgresStore
	Pool     *pgxpool.Pool
	Redis    *goredis.Client
	Revoker  util.TokenRevoker
	Locker   util.Locker
}

func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Infra, error) {
	infra := &Infra{}

	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		store := memory.NewStore()
		infra.Store = store
		infra.Outbox = store.OutboxEvents()
	default:
		pool, err := db.NewConnection(cfg.DB, logger)
		if err != nil {
			return nil, err
		}
		if err := db.ApplySchema(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
		infra.Pool = pool
		infra.Postgres = repository.NewPostgresStore(pool, logger)
		infra.Store = infra.Postgres
		infra.Outbox = infra.Postgres.OutboxEvents()
	}

	if cfg.Redis.Enabled {
		rdb, err := redis.NewRedisClient(cfg.Redis)
		if err != nil {
			infra.Close()
			return nil, err
		}
		logger.Info("Redis connection established", zap.String("addr", cfg.Redis.Addr))
		infra.Redis = rdb
		infra.Revoker = util.NewRedisRevoker(rdb)
		infra.Locker = util.NewRedisLocker(rdb, logger)
	} else {
		logger.Info("Redis disabled, token revocation and sweep lock are process-local")
		infra.Revoker = util.NewMemoryRevoker()
		infra.Locker = util.NewMemoryLocker()
	}

	return infra, nil
}

func (i *Infra) Close() {
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
	if i.Pool != nil {
		i.Pool.Close()
	}
}

func (i *Infra) Deps(cfg *config.Config, logger *zap.Logger) service.Deps {
	return service.Deps{
		Store:    i.Store,
		Authz:    authz.NewEngine(authz.Policy{TaskUpdateRequiresAssignee: cfg.Authz.TaskUpdateRequiresAssignee}, logger),
		Pipeline: events.NewPipeline(cfg.Events.Atomic, logger),
		Logger:   logger,
	}
}

func (i *Infra) AuthService(cfg *config.Config, logger *zap.Logger) *service.AuthService {
	return service.NewAuthService(i.Store, i.Revoker, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	}, logger)
}

// Scheduler builds the overdue sweep and its ticker from cfg.Sweep.
func (i *Infra) Scheduler(cfg *config.Config, pipeline *events.Pipeline, logger *zap.Logger) (*sweep.Scheduler, error) {
	sweeper, err := sweep.NewSweeper(i.Store, pipeline, sweep.Options{
		Timezone:      cfg.Sweep.Timezone,
		OverdueAction: model.TimelineAction(cfg.Sweep.OverdueAction),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep configuration: %w", err)
	}
	return sweep.NewScheduler(sweeper, i.Locker, sweep.SchedulerOptions{
		Interval:   cfg.Sweep.Interval,
		RunOnStart: cfg.Sweep.RunOnStart,
		LockTTL:    cfg.Sweep.LockTTL,
	}, logger), nil
}

// Bootstrap creates the configured superuser, if any.
func Bootstrap(ctx context.Context, cfg *config.Config, auth *service.AuthService, logger *zap.Logger) error {
	if cfg.Bootstrap.SuperuserEmail == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := auth.EnsureSuperuser(ctx, cfg.Bootstrap.SuperuserEmail, cfg.Bootstrap.SuperuserPassword); err != nil {
		return fmt.Errorf("bootstrap superuser: %w", err)
	}
	logger.Info("Superuser ensured", zap.String("email", cfg.Bootstrap.SuperuserEmail))
	return nil
}
