package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	StreamFramesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_frames_total",
		Help: "Количество принятых кадров по типам",
	}, []string{"type"})

	StreamFramesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stream_frames_dropped_total",
		Help: "Кадры, отброшенные из-за ошибок разбора",
	})

	StreamReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stream_reconnects_total",
		Help: "Количество переподключений к потоку",
	})

	SnapshotFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_failures_total",
		Help: "Ошибки загрузки снапшота ленты",
	})

	FeedSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feed_size",
		Help: "Текущее количество слухов в ленте",
	})

	RumoursIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rumours_ingested_total",
		Help: "Слухи, принятые из потока",
	})

	RumoursDeduplicated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rumours_deduplicated_total",
		Help: "Слухи, отброшенные как дубликаты",
	})

	NotificationsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Отправленные уведомления о слухах",
	})

	NotificationErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_errors_total",
		Help: "Ошибки отправки уведомлений",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		StreamFramesTotal,
		StreamFramesDropped,
		StreamReconnects,
		SnapshotFailures,
		FeedSize,
		RumoursIngested,
		RumoursDeduplicated,
		NotificationsSent,
		NotificationErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, status).Inc()
}
