package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load() // missing .env file is fine, env vars may be set directly

	return env.Parse(cfg)
}

// Config holds the configuration for the application
type Config struct {
	ListenAddr     string               `env:"LISTEN_ADDR" envDefault:":8080"`
	TradePublisher TradePublisherConfig `envPrefix:"KAFKA_"`
	Redis          RedisConfig          `envPrefix:"REDIS_"`
	Snapshot       SnapshotConfig       `envPrefix:"SNAPSHOT_"`
}

// TradePublisherConfig holds the configuration for the Kafka trade event producer.
type TradePublisherConfig struct {
	Enabled bool     `env:"ENABLED" envDefault:"false"`
	Topic   string   `env:"TOPIC" envDefault:"trades"`
	Brokers []string `env:"BROKER" envDefault:"localhost:9092"`
}

// RedisConfig holds the configuration for the Redis snapshot client.
type RedisConfig struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	Addr     string `env:"ADDRESS" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	Username string `env:"USERNAME" envDefault:""`
	DB       int    `env:"DB" envDefault:"0"`
}

// SnapshotConfig controls how often the engine state is snapshotted.
type SnapshotConfig struct {
	Interval time.Duration `env:"INTERVAL" envDefault:"30s"`
	Key      string        `env:"KEY" envDefault:"ordermatch:engine"`
}
