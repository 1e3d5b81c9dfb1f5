// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Store and feed backends selectable at startup.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	FeedLocal = "local"
	FeedRedis = "redis"
	FeedNATS  = "nats"
)

// Config is the runtime configuration read from the environment.
type Config struct {
	Port string

	StoreBackend string
	DatabaseURL  string // empty means build one from the POSTGRES_* / PG_* parts

	FeedBackend  string
	RedisAddr    string
	RedisDB      int
	RedisChannel string
	QueueName    string
	NATSURL      string
	NATSToken    string
	NATSSubject  string

	SessionKeySeed string
	TokenTTL       time.Duration

	CORSOrigins        []string
	RateLimitPerMinute int
	AllowClientResolve bool
	LogLevel           logrus.Level

	HistorianBatchSize int
	HistorianFlush     time.Duration
}

// Load reads every setting, falling back to defaults suitable for local development.
func Load() Config {
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	return Config{
		Port: getEnv("PORT", "8080"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StorePostgres)),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		FeedBackend:  strings.ToLower(getEnv("FEED_BACKEND", FeedLocal)),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisDB:      getEnvInt("REDIS_DB", 0),
		RedisChannel: getEnv("REDIS_CHANNEL", "gridclash_changes"),
		QueueName:    getEnv("HISTORIAN_QUEUE_NAME", "gridclash_actions"),
		NATSURL:      getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		NATSToken:    os.Getenv("NATS_TOKEN"),
		NATSSubject:  getEnv("NATS_SUBJECT", "gridclash.changes"),

		SessionKeySeed: os.Getenv("SESSION_KEY_SEED"),
		TokenTTL:       getEnvDuration("TOKEN_EXPIRE_TIME", 30*24*time.Hour),

		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "*")),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MIN", 600),
		AllowClientResolve: getEnvBool("ALLOW_CLIENT_RESOLVE", false),
		LogLevel:           level,

		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
	}
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}

func getEnvBool(key string, defVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defVal
	}
	return b
}

// getEnvDuration accepts a Go duration ("72h") or a bare number of seconds.
func getEnvDuration(key string, defVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defVal
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
