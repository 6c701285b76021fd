package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jaimehuang168/VoxParaguay2026/internal/assignment"
	"github.com/jaimehuang168/VoxParaguay2026/internal/broadcast"
	"github.com/jaimehuang168/VoxParaguay2026/internal/domain"
	"github.com/jaimehuang168/VoxParaguay2026/internal/httpserver"
	"github.com/jaimehuang168/VoxParaguay2026/internal/platform/config"
	"github.com/jaimehuang168/VoxParaguay2026/internal/platform/logging"
	"github.com/jaimehuang168/VoxParaguay2026/internal/presence"
	"github.com/jaimehuang168/VoxParaguay2026/internal/redis"
	"github.com/jaimehuang168/VoxParaguay2026/internal/sentiment"
	"github.com/jaimehuang168/VoxParaguay2026/internal/state"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupStore picks the shared store: Redis when configured, otherwise the
// in-memory store for single-instance development.
func setupStore(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (state.Store, *goredis.Client) {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL not set, using in-memory store (single instance only)")
		return state.NewMemoryStore(clock), nil
	}

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return redis.NewStore(client), client
}

func streamSpecs(registry *presence.Registry, aggregator *sentiment.Aggregator) map[broadcast.Stream]broadcast.StreamSpec {
	return map[broadcast.Stream]broadcast.StreamSpec{
		broadcast.StreamAgents: {
			Channel: domain.ChannelAgentEvents,
			Snapshot: func(ctx context.Context) ([]byte, error) {
				agents, err := registry.ListOnline(ctx)
				if err != nil {
					return nil, err
				}
				return json.Marshal(domain.AgentsInitialState{
					Type:   domain.EventInitialState,
					Agents: agents,
				})
			},
		},
		broadcast.StreamSentiment: {
			Channel: domain.ChannelSentimentUpdates,
			Snapshot: func(ctx context.Context) ([]byte, error) {
				averages, err := aggregator.GetAll(ctx)
				if err != nil {
					return nil, err
				}
				return json.Marshal(domain.SentimentInitialState{
					Type:     domain.EventInitialState,
					Averages: averages,
				})
			},
		},
	}
}

func runGracefulShutdown(srv *httpserver.Server, hub *broadcast.Hub, cancelBackground context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		hub.Stop()
		cancelBackground()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	store, redisClient := setupStore(context.Background(), cfg, clock)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	registry := presence.NewRegistry(store, clock)
	engine := assignment.NewEngine(store, clock)
	aggregator := sentiment.NewAggregator(store, clock)

	hub := broadcast.NewHub(store, streamSpecs(registry, aggregator), cfg.MaxClientsPerStream)

	backgroundCtx, cancelBackground := context.WithCancel(context.Background())
	reaper := presence.NewReaper(registry, clock, cfg.ReaperInterval, cfg.AgentStaleTimeout)
	go reaper.Run(backgroundCtx)

	srv := httpserver.NewServer(cfg, registry, engine, aggregator, hub)

	done := runGracefulShutdown(srv, hub, cancelBackground)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
