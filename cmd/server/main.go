// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/gridclash/internal/auth"
	"github.com/jason-s-yu/gridclash/internal/broker"
	"github.com/jason-s-yu/gridclash/internal/cache"
	"github.com/jason-s-yu/gridclash/internal/config"
	"github.com/jason-s-yu/gridclash/internal/database"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/game"
	"github.com/jason-s-yu/gridclash/internal/handlers"
	"github.com/jason-s-yu/gridclash/internal/lobby"
	"github.com/jason-s-yu/gridclash/internal/minigame"
	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/jason-s-yu/gridclash/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SessionKeySeed != "" {
		if err := auth.InitFromSeed(cfg.SessionKeySeed, cfg.TokenTTL); err != nil {
			logger.Fatalf("session keys: %v", err)
		}
	} else {
		if err := auth.Init(cfg.TokenTTL); err != nil {
			logger.Fatalf("session keys: %v", err)
		}
		logger.Warn("SESSION_KEY_SEED not set; tokens will not survive a restart")
	}

	st, actions := openStore(ctx, cfg, logger)

	if cfg.RedisAddr != "" {
		if err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB); err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer cache.Rdb.Close()
		actions = cache.NewActionQueue(cache.Rdb, cfg.QueueName)
		logger.Infof("recording actions to redis queue %s", cfg.QueueName)
	}

	hub := feed.NewHub()
	pub := openFeed(ctx, cfg, hub, logger)

	reg := lobby.NewRegistry(st, pub, logger)
	engine := game.NewEngine(st, pub, logger)
	arbiter := minigame.NewArbiter(st, engine, pub, logger)
	if actions != nil {
		engine.Actions = actions
		arbiter.Actions = actions
	}
	engine.OnMatchCreated = arbiter.Schedule
	defer arbiter.Stop()

	srv := handlers.NewServer(st, reg, engine, arbiter, hub, logger)
	srv.AllowClientResolve = cfg.AllowClientResolve

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: srv.Router(handlers.RouterOptions{
			CORSOrigins:        cfg.CORSOrigins,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	logger.Infof("Running on %s (store=%s, feed=%s)", server.Addr, cfg.StoreBackend, cfg.FeedBackend)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown failed: %v", err)
	}
	logger.Info("server gracefully stopped")
}

// openStore returns the configured store, plus a synchronous action recorder when the store
// can keep history itself.
func openStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (store.Store, models.ActionRecorder) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		logger.Warn("using in-memory store; state is lost on restart and not shared between instances")
		return store.NewMemory(), nil
	case config.StorePostgres:
		connStr := cfg.DatabaseURL
		if connStr == "" {
			connStr = database.ConnectionString()
		}
		if err := database.ConnectDB(ctx, connStr); err != nil {
			logger.Fatalf("postgres: %v", err)
		}
		if err := database.Migrate(ctx, database.DB); err != nil {
			logger.Fatalf("postgres: %v", err)
		}
		pg := database.NewPgStore(database.DB)
		return pg, pg
	}
	logger.Fatalf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	return nil, nil
}

type relay interface {
	feed.Publisher
	Relay(ctx context.Context, hub *feed.Hub) error
}

// openFeed picks the change publisher. Remote feeds are relayed back into hub so local
// websocket clients see changes made by every instance.
func openFeed(ctx context.Context, cfg config.Config, hub *feed.Hub, logger *logrus.Logger) feed.Publisher {
	var r relay
	switch cfg.FeedBackend {
	case config.FeedLocal:
		return hub
	case config.FeedRedis:
		if cache.Rdb == nil {
			logger.Fatal("FEED_BACKEND=redis needs REDIS_ADDR")
		}
		r = cache.NewFeed(cache.Rdb, cfg.RedisChannel, logger)
	case config.FeedNATS:
		nc, err := broker.Connect(cfg.NATSURL, cfg.NATSToken, logger)
		if err != nil {
			logger.Fatalf("nats: %v", err)
		}
		go func() {
			<-ctx.Done()
			nc.Drain()
		}()
		r = broker.NewFeed(nc, cfg.NATSSubject, logger)
	default:
		logger.Fatalf("unknown FEED_BACKEND %q", cfg.FeedBackend)
	}
	go func() {
		if err := r.Relay(ctx, hub); err != nil {
			logger.WithError(err).Error("change relay stopped")
		}
	}()
	return r
}
