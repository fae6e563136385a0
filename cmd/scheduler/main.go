package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach_backend/internal/events"
	"outreach_backend/internal/outreach/agent"
	"outreach_backend/internal/outreach/engine"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/internal/scheduler"
	"outreach_backend/internal/whatsapp"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	"outreach_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const cooldownPruneInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "tick", cfg.GetTickInterval(), "timezone", cfg.GetLocation().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	repo := repository.New(pool, cfg)

	gateway := whatsapp.NewClient(cfg, log)
	if gateway == nil {
		log.Warn("WAHA_URL not configured; every send will fail")
	}

	prompts, err := engine.LoadPromptTemplates(cfg.GetPromptTemplatesPath())
	if err != nil {
		log.Error("failed to load prompt templates", "error", err)
		panic("failed to load prompt templates: " + err.Error())
	}

	turns := engine.NewTurnController(repo, repo, gateway, agent.NewGenerator(cfg, log), prompts, cfg, log)
	intervals := engine.NewIntervalScheduler(repo, repo, turns, cfg, log)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		intervals.Run(gctx)
		return nil
	})

	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; presence-triggered campaigns disabled")
	} else {
		bus := events.NewInMemoryBus(log)
		cooldown, closeCooldown := initCooldown(cfg, log)
		defer closeCooldown()
		if memory, ok := cooldown.(*engine.MemoryCooldown); ok {
			group.Go(func() error {
				memory.Run(gctx, cooldownPruneInterval)
				return nil
			})
		}
		engine.NewPresenceDispatcher(repo, repo, turns, cooldown, cfg, log).Subscribe(bus)

		worker, err := scheduler.NewWorker(cfg, bus, log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
		group.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		log.Error("scheduler stopped", "error", err)
	}
	log.Info("scheduler stopped")
}

// initCooldown keeps presence cooldowns in process memory unless several
// scheduler replicas share one Redis.
func initCooldown(cfg *config.Config, log *logger.Logger) (engine.CooldownStore, func()) {
	if !cfg.GetSharedPresenceCooldown() {
		return engine.NewMemoryCooldown(), func() {}
	}

	opts, err := scheduler.RedisOptions(cfg)
	if err != nil {
		log.Error("invalid redis configuration", "error", err)
		panic("invalid redis configuration: " + err.Error())
	}
	rdb := redis.NewClient(opts)
	log.Info("presence cooldown shared through redis")
	return engine.NewRedisCooldown(rdb), func() { _ = rdb.Close() }
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
