// Command pokerranged runs the poker range assistant backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TerryZYH/PokerRangeCalculator/agent"
	"github.com/TerryZYH/PokerRangeCalculator/config"
	"github.com/TerryZYH/PokerRangeCalculator/llm"
	"github.com/TerryZYH/PokerRangeCalculator/logger"
	"github.com/TerryZYH/PokerRangeCalculator/server"
	"github.com/TerryZYH/PokerRangeCalculator/statestore"
)

// shutdownTimeout bounds graceful drain on SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Error("🔴 fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Configure(logger.ParseLevel(cfg.LogLevel), cfg.LogFormat == "json")
	logger.Info("starting poker range assistant",
		"version", server.Version,
		"environment", cfg.Environment,
		"port", cfg.Port,
	)

	store, closeStore, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	gateway := llm.NewGateway(cfg)
	defer func() { _ = gateway.Close() }()

	a := agent.New(gateway, agent.WithHistoryWindow(cfg.AIHistoryWindow))

	srv := server.NewServer(a, store,
		server.WithPort(cfg.Port),
		server.WithAllowedOrigin(cfg.FrontendURL),
		server.WithMetrics(cfg.MetricsEnabled),
	)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🔵 HTTP server listening", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		logger.Info("🟡 shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("🟢 shutdown complete")
	return nil
}

// newStore selects the conversation store backend: Redis when an address is
// configured, else the in-process memory store. The returned func releases
// the backend's resources.
func newStore(cfg *config.Settings) (statestore.Store, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory conversation store", "limit", cfg.ConversationSize)
		store := statestore.NewMemoryStore(statestore.WithLimit(cfg.ConversationSize))
		return store, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	logger.Info("using Redis conversation store",
		"addr", cfg.RedisAddr,
		"limit", cfg.ConversationSize,
		"ttl", cfg.ConversationTTL,
	)
	store := statestore.NewRedisStore(client,
		statestore.WithRedisLimit(cfg.ConversationSize),
		statestore.WithTTL(cfg.ConversationTTL),
	)
	return store, func() { _ = client.Close() }, nil
}
