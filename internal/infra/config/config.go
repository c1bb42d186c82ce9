package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Backend struct {
		// BaseURL адрес verification-бэкенда; завершающий слэш отбрасывается.
		BaseURL string `envconfig:"API_BASE_URL" default:"http://localhost:8000"`
		// WSURL явный адрес WebSocket. Пустое значение означает,
		// что адрес выводится из BaseURL заменой схемы.
		WSURL           string        `envconfig:"WS_URL"`
		SnapshotTimeout time.Duration `envconfig:"SNAPSHOT_TIMEOUT" default:"10s"`
	} `envconfig:""`

	Feed struct {
		SnapshotLimit int           `envconfig:"SNAPSHOT_LIMIT" default:"5"`
		MaxItems      int           `envconfig:"FEED_CAP" default:"10"`
		CacheTTL      time.Duration `envconfig:"SNAPSHOT_CACHE_TTL" default:"24h"`
	} `envconfig:""`

	Stream struct {
		BackoffMin time.Duration `envconfig:"STREAM_BACKOFF_MIN" default:"1s"`
		BackoffMax time.Duration `envconfig:"STREAM_BACKOFF_MAX" default:"30s"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	RabbitURL string `envconfig:"RABBITMQ_URL"`

	Queues struct {
		Rumours string `envconfig:"RUMOUR_QUEUE_KEY" default:"rumour_events"`
	} `envconfig:""`

	Telegram struct {
		Token  string `envconfig:"TG_BOT_TOKEN"`
		ChatID int64  `envconfig:"TG_CHAT_ID"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
