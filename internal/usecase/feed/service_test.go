package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"aegis-feed/internal/adapters/backend"
	"aegis-feed/internal/adapters/record"
	"aegis-feed/internal/domain"
)

var feedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

type fakeSnapshot struct {
	rumours []domain.Rumour
	err     error
	calls   int
}

func (f *fakeSnapshot) RecentRumours(ctx context.Context, limit int) ([]domain.Rumour, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rumours, nil
}

type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Once(key string, ttl time.Duration, fn func() error) error {
	if _, ok := c.data[key]; ok {
		return nil
	}
	c.data[key] = []byte("1")
	return fn()
}

func (c *fakeCache) Set(key string, value []byte, ttl time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *fakeCache) Get(key string) ([]byte, error) {
	value, ok := c.data[key]
	if !ok {
		return nil, errors.New("нет ключа")
	}
	return value, nil
}

type fakeArchive struct {
	saved []domain.Rumour
	err   error
}

func (a *fakeArchive) SaveRumour(ctx context.Context, r domain.Rumour) error {
	if a.err != nil {
		return a.err
	}
	a.saved = append(a.saved, r)
	return nil
}

func (a *fakeArchive) ListRecent(ctx context.Context, limit int) ([]domain.Rumour, error) {
	return a.saved, nil
}

type fakeQueue struct {
	published []domain.Rumour
	err       error
}

func (q *fakeQueue) Publish(ctx context.Context, r domain.Rumour) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, r)
	return nil
}

func (q *fakeQueue) Pop(ctx context.Context) (domain.Rumour, error) {
	return domain.Rumour{}, errors.New("не используется")
}

func testRumour(id string) domain.Rumour {
	return domain.Rumour{
		ID:        id,
		ClaimText: "Claim " + id,
		Platform:  "Twitter",
		Summary:   "Summary " + id,
		Verification: domain.Verification{
			Verdict:    domain.VerdictTrue,
			VerifiedAt: feedNow,
		},
	}
}

func newTestService(snapshot domain.SnapshotSource, archive domain.RumourRepo, queue domain.RumourQueue, cache domain.Cache) *Service {
	svc := NewService(snapshot, archive, queue, cache, backend.SampleRumours, zerolog.Nop(), 5, 10)
	svc.now = func() time.Time { return feedNow }
	return svc
}

func TestIngestDeduplicates(t *testing.T) {
	snap := &fakeSnapshot{rumours: []domain.Rumour{testRumour("x"), testRumour("b")}}
	svc := newTestService(snap, nil, nil, nil)
	if err := svc.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	before := svc.List()
	if accepted := svc.Ingest(context.Background(), testRumour("x")); accepted {
		t.Fatal("ожидали отказ для дубликата")
	}
	after := svc.List()
	if len(after) != len(before) {
		t.Fatalf("длина списка изменилась: было %d, стало %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Fatalf("порядок изменился на позиции %d: %s != %s", i, before[i].ID, after[i].ID)
		}
	}
}

func TestIngestBoundsList(t *testing.T) {
	svc := newTestService(&fakeSnapshot{}, nil, nil, nil)
	for i := 1; i <= 15; i++ {
		if accepted := svc.Ingest(context.Background(), testRumour(fmt.Sprintf("r%02d", i))); !accepted {
			t.Fatalf("вставка %d отвергнута", i)
		}
	}
	list := svc.List()
	if len(list) != 10 {
		t.Fatalf("ожидали ровно 10 записей, получили %d", len(list))
	}
	// самые свежие первыми: r15..r06, r01..r05 вытеснены
	for i, r := range list {
		want := fmt.Sprintf("r%02d", 15-i)
		if r.ID != want {
			t.Fatalf("на позиции %d ожидали %s, получили %s", i, want, r.ID)
		}
	}
}

func TestSnapshotThenStreamScenario(t *testing.T) {
	p1 := record.Normalize([]byte(`{
		"post_id": "p1",
		"claim": "Claim A",
		"verification": {"verdict": "true", "message": "ok"}
	}`), feedNow)
	snap := &fakeSnapshot{rumours: []domain.Rumour{p1}}
	svc := newTestService(snap, nil, nil, nil)
	if err := svc.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	p2 := record.Normalize([]byte(`{
		"post_id": "p2",
		"claim": "Claim B",
		"verification": {"verdict": "uncertain", "message": "unclear"}
	}`), feedNow)
	if accepted := svc.Ingest(context.Background(), p2); !accepted {
		t.Fatal("ожидали принятие новой записи")
	}

	list := svc.List()
	if len(list) != 2 {
		t.Fatalf("ожидали 2 записи, получили %d", len(list))
	}
	if list[0].ID != "p2" || list[1].ID != "p1" {
		t.Fatalf("неверный порядок: [%s, %s]", list[0].ID, list[1].ID)
	}
	if list[0].Verification.Verdict != domain.VerdictDisputed {
		t.Fatalf("ожидали Disputed для p2, получили %v", list[0].Verification.Verdict)
	}
	if list[1].Verification.Verdict != domain.VerdictTrue {
		t.Fatalf("ожидали True для p1, получили %v", list[1].Verification.Verdict)
	}
}

func TestSnapshotMergeKeepsStreamedInserts(t *testing.T) {
	// Вставка из потока, пришедшая до завершения выгрузки,
	// не должна теряться при применении снапшота.
	snap := &fakeSnapshot{rumours: []domain.Rumour{testRumour("b"), testRumour("c")}}
	svc := newTestService(snap, nil, nil, nil)

	svc.Ingest(context.Background(), testRumour("a"))
	if err := svc.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	list := svc.List()
	if len(list) != 3 {
		t.Fatalf("ожидали 3 записи, получили %d", len(list))
	}
	if list[0].ID != "a" || list[1].ID != "b" || list[2].ID != "c" {
		t.Fatalf("неверный порядок: [%s, %s, %s]", list[0].ID, list[1].ID, list[2].ID)
	}

	// Повторная выгрузка: потоковых вставок с прошлого снапшота нет,
	// список замещается целиком.
	if err := svc.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	list = svc.List()
	if len(list) != 2 || list[0].ID != "b" {
		t.Fatalf("ожидали замещение списка снапшотом, получили %+v", listIDs(list))
	}
}

func TestFallbackOnFetchFailure(t *testing.T) {
	snap := &fakeSnapshot{err: errors.New("status 500")}
	svc := newTestService(snap, nil, nil, nil)

	err := svc.LoadSnapshot(context.Background())
	if err == nil {
		t.Fatal("ожидали ошибку загрузки")
	}

	want := backend.SampleRumours(feedNow)
	list := svc.List()
	if len(list) != len(want) {
		t.Fatalf("ожидали %d записей из встроенного набора, получили %d", len(want), len(list))
	}
	for i := range want {
		if list[i].ID != want[i].ID {
			t.Fatalf("на позиции %d ожидали %s, получили %s", i, want[i].ID, list[i].ID)
		}
	}

	status := svc.Status()
	if status.Source != domain.FeedSourceSample {
		t.Fatalf("ожидали источник sample, получили %s", status.Source)
	}
	if status.LastError == "" {
		t.Fatal("ожидали заполненную ошибку в статусе")
	}
}

func TestFallbackPrefersCachedSnapshot(t *testing.T) {
	cache := newFakeCache()
	good := &fakeSnapshot{rumours: []domain.Rumour{testRumour("cached")}}
	svc := newTestService(good, nil, nil, cache)
	if err := svc.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	// Новый сервис с тем же кэшем и недоступным бэкендом.
	bad := &fakeSnapshot{err: errors.New("connection refused")}
	svc2 := newTestService(bad, nil, nil, cache)
	if err := svc2.LoadSnapshot(context.Background()); err == nil {
		t.Fatal("ожидали ошибку загрузки")
	}

	list := svc2.List()
	if len(list) != 1 || list[0].ID != "cached" {
		t.Fatalf("ожидали запись из кэша, получили %+v", listIDs(list))
	}
	if status := svc2.Status(); status.Source != domain.FeedSourceCache {
		t.Fatalf("ожидали источник cache, получили %s", status.Source)
	}
}

func TestIngestForwardsToSinks(t *testing.T) {
	archive := &fakeArchive{}
	queue := &fakeQueue{}
	svc := newTestService(&fakeSnapshot{}, archive, queue, nil)

	svc.Ingest(context.Background(), testRumour("n1"))
	if len(archive.saved) != 1 || archive.saved[0].ID != "n1" {
		t.Fatalf("ожидали запись в архиве, получили %+v", archive.saved)
	}
	if len(queue.published) != 1 || queue.published[0].ID != "n1" {
		t.Fatalf("ожидали публикацию в очередь, получили %+v", queue.published)
	}
}

func TestIngestSinkErrorsDoNotPropagate(t *testing.T) {
	archive := &fakeArchive{err: errors.New("db down")}
	queue := &fakeQueue{err: errors.New("amqp down")}
	svc := newTestService(&fakeSnapshot{}, archive, queue, nil)

	if accepted := svc.Ingest(context.Background(), testRumour("n1")); !accepted {
		t.Fatal("ошибки доставки не должны отменять вставку")
	}
	if list := svc.List(); len(list) != 1 {
		t.Fatalf("ожидали 1 запись, получили %d", len(list))
	}
}

func listIDs(list []domain.Rumour) []string {
	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	return ids
}
