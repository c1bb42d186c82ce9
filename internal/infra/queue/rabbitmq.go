package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"aegis-feed/internal/domain"
	"aegis-feed/internal/infra/metrics"
)

// RabbitRumourQueue публикует проверенные слухи в очередь RabbitMQ
// и читает их на стороне потребителя.
type RabbitRumourQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	mu         sync.Mutex
	deliveries <-chan amqp.Delivery
}

var _ domain.RumourQueue = (*RabbitRumourQueue)(nil)

// NewRabbitRumourQueue подключается к RabbitMQ и объявляет durable-очередь.
func NewRabbitRumourQueue(url, queue string) (*RabbitRumourQueue, error) {
	if url == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitRumourQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Publish отправляет слух в очередь.
func (q *RabbitRumourQueue) Publish(ctx context.Context, rumour domain.Rumour) error {
	payload, err := json.Marshal(toPayload(rumour))
	if err != nil {
		return fmt.Errorf("marshal rumour: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    rumour.ID,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", start, err)
	if err != nil {
		return fmt.Errorf("publish rumour: %w", err)
	}
	return nil
}

// Pop блокирующе читает слух из очереди.
func (q *RabbitRumourQueue) Pop(ctx context.Context) (domain.Rumour, error) {
	deliveries, err := q.consumeChannel()
	if err != nil {
		return domain.Rumour{}, err
	}
	select {
	case <-ctx.Done():
		return domain.Rumour{}, ctx.Err()
	case d, ok := <-deliveries:
		if !ok {
			return domain.Rumour{}, errors.New("канал доставки закрыт")
		}
		var p rumourPayload
		if err := json.Unmarshal(d.Body, &p); err != nil {
			return domain.Rumour{}, fmt.Errorf("decode rumour: %w", err)
		}
		return p.toDomain(), nil
	}
}

func (q *RabbitRumourQueue) consumeChannel() (<-chan amqp.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deliveries != nil {
		return q.deliveries, nil
	}
	deliveries, err := q.ch.Consume(q.queue, "", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("start consume: %w", err)
	}
	q.deliveries = deliveries
	return deliveries, nil
}

// Close освобождает канал и соединение.
func (q *RabbitRumourQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}

type rumourPayload struct {
	ID            string    `json:"id"`
	ClaimText     string    `json:"claim_text"`
	Platform      string    `json:"platform"`
	SourcePostURL string    `json:"source_post_url,omitempty"`
	Summary       string    `json:"summary"`
	Verdict       string    `json:"verdict"`
	Message       string    `json:"message"`
	Reasoning     string    `json:"reasoning"`
	SourceLinks   []string  `json:"source_links"`
	SourceTitles  []string  `json:"source_titles"`
	VerifiedAt    time.Time `json:"verified_at"`
}

func toPayload(r domain.Rumour) rumourPayload {
	return rumourPayload{
		ID:            r.ID,
		ClaimText:     r.ClaimText,
		Platform:      r.Platform,
		SourcePostURL: r.SourcePostURL,
		Summary:       r.Summary,
		Verdict:       string(r.Verification.Verdict),
		Message:       r.Verification.Message,
		Reasoning:     r.Verification.Reasoning,
		SourceLinks:   r.Verification.Sources.Links,
		SourceTitles:  r.Verification.Sources.Titles,
		VerifiedAt:    r.Verification.VerifiedAt,
	}
}

func (p rumourPayload) toDomain() domain.Rumour {
	return domain.Rumour{
		ID:            p.ID,
		ClaimText:     p.ClaimText,
		Platform:      p.Platform,
		SourcePostURL: p.SourcePostURL,
		Summary:       p.Summary,
		Verification: domain.Verification{
			Verdict:    domain.CanonicalVerdict(p.Verdict),
			Message:    p.Message,
			Reasoning:  p.Reasoning,
			Sources:    domain.Sources{Links: p.SourceLinks, Titles: p.SourceTitles, Count: len(p.SourceLinks)},
			VerifiedAt: p.VerifiedAt,
		},
	}
}
