package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/and161185/authgate/internal/config"
	"github.com/and161185/authgate/internal/crypto"
	"github.com/and161185/authgate/internal/limiter"
	"github.com/and161185/authgate/internal/metrics"
	"github.com/and161185/authgate/internal/migrate"
	"github.com/and161185/authgate/internal/repository/memory"
	"github.com/and161185/authgate/internal/service"
)

// app owns everything built from the configuration.
type app struct {
	gate     *service.Gate
	registry *prometheus.Registry
	closers  []func()
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tokens, err := service.NewTokenService([]byte(cfg.JWTSecret), cfg.AccessTTL)
	if err != nil {
		return nil, err
	}

	hasher, err := crypto.NewHasher(cfg.PasswordHash)
	if err != nil {
		return nil, err
	}
	users, err := newUserStore(cfg.UsersFile, hasher)
	if err != nil {
		return nil, err
	}
	logger.Info("user store ready", zap.Int("users", users.Len()), zap.String("hasher", cfg.PasswordHash))

	authn, err := service.NewAuthenticator(users, hasher)
	if err != nil {
		return nil, err
	}

	lim, err := a.newLimiter(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.gate = service.NewGate(users, authn, tokens, lim, metrics.NewAuth(a.registry), logger)
	return a, nil
}

func newUserStore(path string, hasher crypto.Hasher) (*memory.Store, error) {
	seeds := memory.DefaultSeeds
	if path != "" {
		var err error
		if seeds, err = memory.LoadSeeds(path); err != nil {
			return nil, fmt.Errorf("load users: %w", err)
		}
	}
	return memory.FromSeeds(hasher, seeds)
}

func (a *app) newLimiter(ctx context.Context, cfg config.Config, logger *zap.Logger) (limiter.Limiter, error) {
	policy := limiter.Policy{Window: cfg.FailWindow, MaxFails: cfg.MaxFails, BlockFor: cfg.BlockFor}
	if cfg.DSN == "" {
		m := limiter.NewMemory(policy)
		a.closers = append(a.closers, m.Close)
		logger.Info("login limiter: in-memory")
		return m, nil
	}

	mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := migrate.Up(mctx, cfg.DSN); err != nil {
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	logger.Info("login limiter: postgres")
	return limiter.NewPG(pool, policy), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
