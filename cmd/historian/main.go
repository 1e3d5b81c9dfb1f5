// cmd/historian/main.go is an asynchronous historian service that pops action records from a
// Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/gridclash/internal/cache"
	"github.com/jason-s-yu/gridclash/internal/config"
	"github.com/jason-s-yu/gridclash/internal/database"
	"github.com/jason-s-yu/gridclash/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	if err := cache.ConnectRedis(ctx, addr, cfg.RedisDB); err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer cache.Rdb.Close()

	connStr := cfg.DatabaseURL
	if connStr == "" {
		connStr = database.ConnectionString()
	}
	if err := database.ConnectDB(ctx, connStr); err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer database.DB.Close()
	if err := database.Migrate(ctx, database.DB); err != nil {
		logger.Fatalf("postgres: %v", err)
	}

	svc := historian.NewService(cache.Rdb, cfg.QueueName, historian.PgWriter(database.DB),
		cfg.HistorianBatchSize, cfg.HistorianFlush, logger)
	svc.Run(ctx)
	logger.Info("Historian shutdown complete.")
}
