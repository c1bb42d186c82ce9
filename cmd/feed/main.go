package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"aegis-feed/internal/adapters/backend"
	"aegis-feed/internal/adapters/record"
	"aegis-feed/internal/adapters/repo"
	"aegis-feed/internal/adapters/stream"
	"aegis-feed/internal/domain"
	"aegis-feed/internal/infra/cache"
	"aegis-feed/internal/infra/config"
	"aegis-feed/internal/infra/db"
	httpinfra "aegis-feed/internal/infra/http"
	infralog "aegis-feed/internal/infra/log"
	"aegis-feed/internal/infra/metrics"
	"aegis-feed/internal/infra/queue"
	"aegis-feed/internal/usecase/feed"
)

func main() {
	cfg := config.Load()
	logger := infralog.NewLogger(cfg.AppEnv, "feed")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var archive domain.RumourRepo
	if cfg.PGDSN != "" {
		pool, err := db.Connect(cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("feed: нет подключения к БД")
		}
		defer pool.Close()
		pg := repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("feed: не удалось подготовить схему архива")
		}
		archive = pg
	}

	var snapshotCache domain.Cache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		snapshotCache = cache.NewRedis(redisClient)
	}

	var rumourQueue domain.RumourQueue
	if cfg.RabbitURL != "" {
		q, err := queue.NewRabbitRumourQueue(cfg.RabbitURL, cfg.Queues.Rumours)
		if err != nil {
			logger.Fatal().Err(err).Msg("feed: нет подключения к RabbitMQ")
		}
		defer q.Close()
		rumourQueue = q
	}

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.SnapshotTimeout)
	svc := feed.NewService(client, archive, rumourQueue, snapshotCache, backend.SampleRumours,
		logger.With().Str("component", "feed").Logger(), cfg.Feed.SnapshotLimit, cfg.Feed.MaxItems)
	svc.SetCacheTTL(cfg.Feed.CacheTTL)

	if err := svc.LoadSnapshot(ctx); err != nil {
		logger.Warn().Err(err).Msg("feed: стартовый снапшот недоступен")
	}

	manager := stream.NewManager(backend.ResolveWSURL(cfg.Backend.BaseURL, cfg.Backend.WSURL), stream.Callbacks{
		OnRecord: func(raw json.RawMessage, receivedAt time.Time) {
			svc.Ingest(ctx, record.Normalize(raw, receivedAt))
		},
		OnOpen: func() {
			// после (пере)подключения выгружаем снапшот заново,
			// чтобы закрыть пропуск за время без соединения
			if err := svc.Refresh(ctx); err != nil {
				logger.Warn().Err(err).Msg("feed: снапшот после переподключения недоступен")
			}
		},
	}, logger.With().Str("component", "stream").Logger())
	manager.SetBackoff(cfg.Stream.BackoffMin, cfg.Stream.BackoffMax)
	manager.Connect(ctx)
	defer manager.Disconnect()

	srv := httpinfra.NewServer(logger.With().Str("component", "http").Logger())
	registerRoutes(srv, svc, manager, archive)

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("feed: HTTP сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("feed: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func registerRoutes(srv *httpinfra.Server, svc *feed.Service, manager *stream.Manager, archive domain.RumourRepo) {
	srv.Router.Get("/api/v1/feed", func(w http.ResponseWriter, r *http.Request) {
		status := svc.Status()
		writeJSON(w, map[string]any{
			"source":       status.Source,
			"last_updated": status.LastUpdated,
			"items":        presentRumours(svc.List(), time.Now().UTC()),
		})
	})

	srv.Router.Get("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		feedStatus := svc.Status()
		connStatus := manager.Status()
		writeJSON(w, map[string]any{
			"feed": map[string]any{
				"source":       feedStatus.Source,
				"last_updated": feedStatus.LastUpdated,
				"last_error":   feedStatus.LastError,
			},
			"stream": map[string]any{
				"state":      connStatus.State,
				"attempts":   connStatus.Attempts,
				"last_error": connStatus.LastError,
			},
		})
	})

	srv.Router.Post("/api/v1/feed/refresh", func(w http.ResponseWriter, r *http.Request) {
		// лента деградирует, но не ломается: ответ всегда 200
		if err := svc.Refresh(r.Context()); err != nil {
			status := svc.Status()
			writeJSON(w, map[string]any{"status": "degraded", "source": status.Source, "error": status.LastError})
			return
		}
		writeJSON(w, map[string]any{"status": "ok", "source": domain.FeedSourceLive})
	})

	srv.Router.Post("/api/v1/stream/reconnect", func(w http.ResponseWriter, r *http.Request) {
		manager.ForceReconnect()
		writeJSON(w, map[string]string{"status": "ok"})
	})

	srv.Router.Get("/api/v1/archive", func(w http.ResponseWriter, r *http.Request) {
		if archive == nil {
			writeError(w, http.StatusServiceUnavailable, "archive is not configured")
			return
		}
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > 100 {
				writeError(w, http.StatusBadRequest, "limit must be in 1..100")
				return
			}
			limit = parsed
		}
		rumours, err := archive.ListRecent(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read archive")
			return
		}
		writeJSON(w, map[string]any{"items": presentRumours(rumours, time.Now().UTC())})
	})
}

type rumourView struct {
	ID            string    `json:"id"`
	ClaimText     string    `json:"claim_text"`
	Platform      string    `json:"platform"`
	SourcePostURL string    `json:"source_post_url,omitempty"`
	Summary       string    `json:"summary"`
	Verdict       string    `json:"verdict"`
	VerdictStyle  string    `json:"verdict_style"`
	Message       string    `json:"message,omitempty"`
	Reasoning     string    `json:"reasoning,omitempty"`
	Sources       []source  `json:"sources"`
	VerifiedAt    time.Time `json:"verified_at"`
	VerifiedAgo   string    `json:"verified_ago"`
}

type source struct {
	Link  string `json:"link"`
	Title string `json:"title"`
}

func presentRumours(rumours []domain.Rumour, now time.Time) []rumourView {
	views := make([]rumourView, 0, len(rumours))
	for _, r := range rumours {
		sources := make([]source, 0, len(r.Verification.Sources.Links))
		for i, link := range r.Verification.Sources.Links {
			sources = append(sources, source{Link: link, Title: r.Verification.Sources.Title(i)})
		}
		views = append(views, rumourView{
			ID:            r.ID,
			ClaimText:     r.ClaimText,
			Platform:      r.Platform,
			SourcePostURL: r.SourcePostURL,
			Summary:       r.Summary,
			Verdict:       string(r.Verification.Verdict),
			VerdictStyle:  feed.VerdictStyle(r.Verification.Verdict),
			Message:       r.Verification.Message,
			Reasoning:     r.Verification.Reasoning,
			Sources:       sources,
			VerifiedAt:    r.Verification.VerifiedAt,
			VerifiedAgo:   feed.RelativeTime(now, r.Verification.VerifiedAt),
		})
	}
	return views
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
