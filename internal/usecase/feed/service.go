package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"aegis-feed/internal/domain"
	"aegis-feed/internal/infra/metrics"
)

const snapshotCacheKey = "feed:last_snapshot"

// SampleProvider возвращает встроенный демонстрационный набор слухов.
type SampleProvider func(now time.Time) []domain.Rumour

// Service владеет упорядоченным списком последних проверенных слухов.
// Список пополняется снапшотами REST API и вставками из потока,
// дедуплицируется по id и ограничивается maxItems записями.
type Service struct {
	snapshot domain.SnapshotSource
	archive  domain.RumourRepo
	queue    domain.RumourQueue
	cache    domain.Cache
	samples  SampleProvider
	log      zerolog.Logger

	limit    int
	maxItems int
	cacheTTL time.Duration
	now      func() time.Time

	mu   sync.Mutex
	list []domain.Rumour
	// streamed копит вставки из потока с момента последнего успешного
	// снапшота: при слиянии они имеют приоритет над выгруженными записями.
	streamed    []domain.Rumour
	source      domain.FeedSource
	lastUpdated time.Time
	lastErr     string
}

// NewService создаёт сервис ленты. archive, queue и cache могут быть nil —
// соответствующие интеграции просто не используются.
func NewService(snapshot domain.SnapshotSource, archive domain.RumourRepo, queue domain.RumourQueue, cache domain.Cache, samples SampleProvider, logger zerolog.Logger, limit, maxItems int) *Service {
	if limit <= 0 {
		limit = 5
	}
	if maxItems <= 0 {
		maxItems = 10
	}
	return &Service{
		snapshot: snapshot,
		archive:  archive,
		queue:    queue,
		cache:    cache,
		samples:  samples,
		log:      logger,
		limit:    limit,
		maxItems: maxItems,
		cacheTTL: 24 * time.Hour,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetCacheTTL переопределяет срок жизни кэша снапшота.
func (s *Service) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

// LoadSnapshot выгружает последние записи из бэкенда и сливает их
// с текущим списком по id: вставки из потока, пришедшие во время
// выгрузки, не теряются. При ошибке лента деградирует до кэша
// последнего снапшота, затем до встроенного набора; ошибка
// запоминается и отдаётся через Status, но никогда не фатальна.
func (s *Service) LoadSnapshot(ctx context.Context) error {
	fetched, err := s.snapshot.RecentRumours(ctx, s.limit)
	now := s.now()
	if err != nil {
		metrics.SnapshotFailures.Inc()
		s.degrade(now, err)
		return fmt.Errorf("загрузка снапшота: %w", err)
	}

	s.mu.Lock()
	merged := make([]domain.Rumour, 0, len(s.streamed)+len(fetched))
	seen := make(map[string]struct{}, len(s.streamed)+len(fetched))
	for _, r := range s.streamed {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range fetched {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		merged = append(merged, r)
	}
	if len(merged) > s.maxItems {
		merged = merged[:s.maxItems]
	}
	s.list = merged
	s.streamed = nil
	s.source = domain.FeedSourceLive
	s.lastUpdated = now
	s.lastErr = ""
	snapshotCopy := append([]domain.Rumour(nil), merged...)
	s.mu.Unlock()

	metrics.FeedSize.Set(float64(len(snapshotCopy)))
	s.storeCache(snapshotCopy)
	return nil
}

// Refresh повторяет загрузку снапшота по требованию пользователя.
func (s *Service) Refresh(ctx context.Context) error {
	return s.LoadSnapshot(ctx)
}

// Ingest добавляет нормализованный слух из потока. Возвращает false,
// если запись с таким id уже есть: повторная доставка идемпотентна
// и не меняет ни длину, ни порядок списка.
func (s *Service) Ingest(ctx context.Context, rumour domain.Rumour) bool {
	s.mu.Lock()
	for _, existing := range s.list {
		if existing.ID == rumour.ID {
			s.mu.Unlock()
			metrics.RumoursDeduplicated.Inc()
			return false
		}
	}
	s.list = append([]domain.Rumour{rumour}, s.list...)
	if len(s.list) > s.maxItems {
		s.list = s.list[:s.maxItems]
	}
	s.streamed = append([]domain.Rumour{rumour}, s.streamed...)
	if len(s.streamed) > s.maxItems {
		s.streamed = s.streamed[:s.maxItems]
	}
	s.lastUpdated = s.now()
	size := len(s.list)
	s.mu.Unlock()

	metrics.RumoursIngested.Inc()
	metrics.FeedSize.Set(float64(size))
	s.forward(ctx, rumour)
	return true
}

// List возвращает копию текущего списка, самые свежие записи первыми.
func (s *Service) List() []domain.Rumour {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Rumour(nil), s.list...)
}

// Status возвращает происхождение данных и время последнего обновления.
func (s *Service) Status() domain.FeedStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.FeedStatus{
		Source:      s.source,
		LastUpdated: s.lastUpdated,
		LastError:   s.lastErr,
	}
}

// degrade заполняет ленту кэшем последнего снапшота либо встроенным
// набором, чтобы потребители никогда не получали пустую сломанную ленту.
func (s *Service) degrade(now time.Time, cause error) {
	var fallback []domain.Rumour
	source := domain.FeedSourceSample
	if cached, ok := s.loadCache(); ok {
		fallback = cached
		source = domain.FeedSourceCache
	} else if s.samples != nil {
		fallback = s.samples(now)
	}
	if len(fallback) > s.maxItems {
		fallback = fallback[:s.maxItems]
	}

	s.mu.Lock()
	s.list = fallback
	s.streamed = nil
	s.source = source
	s.lastUpdated = now
	s.lastErr = cause.Error()
	size := len(s.list)
	s.mu.Unlock()

	metrics.FeedSize.Set(float64(size))
	s.log.Warn().Err(cause).Str("source", string(source)).Msg("feed: снапшот недоступен, лента деградировала")
}

// forward раздаёт принятый слух в архив и очередь. Ошибки доставки
// логируются и не влияют на ленту.
func (s *Service) forward(ctx context.Context, rumour domain.Rumour) {
	if s.archive != nil {
		if err := s.archive.SaveRumour(ctx, rumour); err != nil {
			s.log.Error().Err(err).Str("rumour_id", rumour.ID).Msg("feed: не удалось сохранить слух в архив")
		}
	}
	if s.queue != nil {
		if err := s.queue.Publish(ctx, rumour); err != nil {
			s.log.Error().Err(err).Str("rumour_id", rumour.ID).Msg("feed: не удалось опубликовать слух в очередь")
		}
	}
}

func (s *Service) storeCache(rumours []domain.Rumour) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(encodeRumours(rumours))
	if err != nil {
		s.log.Error().Err(err).Msg("feed: не удалось сериализовать снапшот для кэша")
		return
	}
	if err := s.cache.Set(snapshotCacheKey, payload, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("feed: не удалось записать снапшот в кэш")
	}
}

func (s *Service) loadCache() ([]domain.Rumour, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, err := s.cache.Get(snapshotCacheKey)
	if err != nil || len(payload) == 0 {
		return nil, false
	}
	var encoded []rumourDTO
	if err := json.Unmarshal(payload, &encoded); err != nil {
		s.log.Warn().Err(err).Msg("feed: кэш снапшота повреждён")
		return nil, false
	}
	return decodeRumours(encoded), true
}
