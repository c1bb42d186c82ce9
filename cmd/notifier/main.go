package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"aegis-feed/internal/adapters/notifier"
	"aegis-feed/internal/domain"
	"aegis-feed/internal/infra/cache"
	"aegis-feed/internal/infra/config"
	infralog "aegis-feed/internal/infra/log"
	"aegis-feed/internal/infra/metrics"
	"aegis-feed/internal/infra/queue"
)

const notifyGuardTTL = 24 * time.Hour

func main() {
	cfg := config.Load()
	logger := infralog.NewLogger(cfg.AppEnv, "notifier")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier: не удалось инициализировать бота")
	}

	rumourQueue, err := queue.NewRabbitRumourQueue(cfg.RabbitURL, cfg.Queues.Rumours)
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier: нет подключения к RabbitMQ")
	}
	defer rumourQueue.Close()

	// Redis-ключ защищает от повторной отправки при редоставке сообщения
	var guard domain.Cache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		guard = cache.NewRedis(redisClient)
	}

	tg := notifier.NewTelegram(bot, cfg.Telegram.ChatID, logger.With().Str("component", "telegram").Logger())

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	logger.Info().Str("queue", cfg.Queues.Rumours).Msg("notifier: старт")
	for {
		rumour, err := rumourQueue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error().Err(err).Msg("notifier: не удалось прочитать очередь")
			time.Sleep(time.Second)
			continue
		}

		send := func() error { return tg.NotifyRumour(ctx, rumour) }
		if guard != nil {
			err = guard.Once("notified:"+rumour.ID, notifyGuardTTL, send)
		} else {
			err = send()
		}
		if err != nil {
			logger.Error().Err(err).Str("rumour_id", rumour.ID).Msg("notifier: уведомление не доставлено")
		}
	}
	logger.Info().Msg("notifier: остановка")
}
