package domain

import (
	"context"
	"time"
)

// SnapshotSource выгружает последние проверенные слухи из бэкенда.
type SnapshotSource interface {
	RecentRumours(ctx context.Context, limit int) ([]Rumour, error)
}

// RumourRepo сохраняет слухи в архив и читает их обратно.
type RumourRepo interface {
	SaveRumour(ctx context.Context, rumour Rumour) error
	ListRecent(ctx context.Context, limit int) ([]Rumour, error)
}

// RumourQueue публикует и читает слухи для downstream-потребителей.
type RumourQueue interface {
	Publish(ctx context.Context, rumour Rumour) error
	Pop(ctx context.Context) (Rumour, error)
}

// Notifier доставляет уведомление о новом проверенном слухе.
type Notifier interface {
	NotifyRumour(ctx context.Context, rumour Rumour) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
