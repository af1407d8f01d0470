package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledger-query/pkg/api"
	"ledger-query/pkg/balance"
	"ledger-query/pkg/cache"
	"ledger-query/pkg/cache/bloom"
	"ledger-query/pkg/cache/memory"
	"ledger-query/pkg/cache/redis"
	"ledger-query/pkg/chain"
	"ledger-query/pkg/config"
	"ledger-query/pkg/logging"
	promMetrics "ledger-query/pkg/metrics/prometheus"
	"ledger-query/pkg/payment"
	"ledger-query/pkg/resilience"
	"ledger-query/pkg/store"
	"ledger-query/pkg/store/cached"
	"ledger-query/pkg/store/postgres"
	"ledger-query/pkg/transactions"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Logging())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	logger.Info("Starting ledger API")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metricsCollector := promMetrics.NewPrometheusCollector("ledger")
	if err := metricsCollector.Register(registry); err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Postgres().PingTimeout)
	db, err := postgres.Open(ctx, cfg.Postgres())
	cancel()
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	logger.Info("✓ PostgreSQL connected")

	var st store.Store = store.Instrument(postgres.New(db), metricsCollector, logger)
	if cfg.CacheEnabled {
		st, err = withDetailCache(st, cfg, metricsCollector, logger)
		if err != nil {
			logger.Fatal("Failed to build detail cache", zap.Error(err))
		}
	}
	defer st.Close()

	serverConfig := api.DefaultServerConfig()
	serverConfig.Address = ":" + cfg.Port
	serverConfig.OwnerHeader = cfg.OwnerHeader

	server, err := api.NewServer(api.Services{
		Transactions: transactions.NewService(st, logger),
		Payments:     payment.NewService(st, logger),
		Balance:      balance.NewCalculator(st, logger),
		Health:       st,
		Registry:     registry,
		Logger:       logger,
	}, serverConfig)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	go func() {
		if err := server.Serve(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("✓ Server stopped gracefully")
}

// withDetailCache puts a memory layer, and a bloom-guarded Redis layer when
// REDIS_ADDR is set, in front of transaction detail reads.
func withDetailCache(next store.Store, cfg *config.Config, collector *promMetrics.PrometheusCollector, logger *logging.Logger) (store.Store, error) {
	layers := []cache.CacheLayer{
		memory.NewMemoryCache(memory.MemoryCacheConfig{
			Name:            "L1-memory",
			MaxSize:         cfg.CacheMemorySize,
			TTL:             cache.TTLPolicy{Default: cfg.CacheTTL, Max: cfg.CacheTTL},
			CleanupInterval: time.Minute,
		}),
	}
	resilientConfigs := []resilience.ResilientConfig{resilience.LocalResilientConfig()}

	if cfg.RedisAddr != "" {
		redisConfig := redis.DefaultRedisCacheConfig()
		redisConfig.Name = "L2-redis"
		redisConfig.Addr = cfg.RedisAddr
		redisConfig.Password = cfg.RedisPassword
		redisConfig.KeyPrefix = cfg.RedisKeyPrefix
		redisConfig.TTL = cache.TTLPolicy{Default: cfg.CacheTTL, Max: cfg.CacheTTL}

		redisCache, err := redis.NewRedisCache(redisConfig)
		if err != nil {
			return nil, err
		}
		layers = append(layers, bloom.NewBloomLayer(redisCache, uint(cfg.CacheMemorySize)*10, 0.01))
		resilientConfigs = append(resilientConfigs, resilience.DefaultResilientConfig())
		logger.Info("✓ Redis cache layer connected", zap.String("addr", cfg.RedisAddr))
	}

	s, err := cached.New(next, chain.Config{
		ResilientConfigs: resilientConfigs,
		TTL:              cfg.CacheTTL,
		TTLStrategy:      chain.DecayingTTLStrategy{DecayFactor: 0.5},
		Metrics:          collector,
		Logger:           logger,
	}, layers...)
	if err != nil {
		return nil, err
	}

	logger.Info("✓ Detail cache enabled", zap.Stringer("chain", s))
	return s, nil
}
