package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	MySQLDSN        string        `env:"MYSQL_DSN" envDefault:"root:root@tcp(localhost:3306)/marketplace?parseTime=true"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	NATSURL         string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	AdminID         string        `env:"ADMIN_ID" envDefault:"oldiebutgoldie"`
	DiscogsBaseURL  string        `env:"DISCOGS_BASE_URL" envDefault:"https://api.discogs.com"`
	DiscogsToken    string        `env:"DISCOGS_TOKEN"`
	WorkerCount     int           `env:"WORKER_COUNT" envDefault:"4"`
	EventQueueSize  int           `env:"EVENT_QUEUE_SIZE" envDefault:"1024"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func Load() (Config, error) {
	var cfg Config
	return cfg, env.Parse(&cfg)
}
