package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"aegis-feed/internal/domain"
)

// Postgres реализует архив слухов на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.RumourRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if _, ok := parent.Deadline(); ok {
		return parent, func() {}
	}
	return context.WithTimeout(parent, 5*time.Second)
}

// EnsureSchema создаёт таблицу архива, если её ещё нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rumours (
			id              TEXT PRIMARY KEY,
			claim_text      TEXT NOT NULL,
			platform        TEXT NOT NULL,
			source_post_url TEXT NOT NULL DEFAULT '',
			summary         TEXT NOT NULL,
			verdict         TEXT NOT NULL,
			message         TEXT NOT NULL DEFAULT '',
			reasoning       TEXT NOT NULL DEFAULT '',
			sources         JSONB NOT NULL DEFAULT '{}'::jsonb,
			verified_at     TIMESTAMPTZ NOT NULL,
			archived_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_rumours_verified_at ON rumours (verified_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("создание схемы архива: %w", err)
	}
	return nil
}

type sourcesJSON struct {
	Links  []string `json:"links"`
	Titles []string `json:"titles"`
	Count  int      `json:"count"`
}

// SaveRumour сохраняет слух в архив. Записи неизменяемы,
// поэтому повторная вставка того же id игнорируется.
func (p *Postgres) SaveRumour(ctx context.Context, rumour domain.Rumour) error {
	sources, err := json.Marshal(sourcesJSON{
		Links:  rumour.Verification.Sources.Links,
		Titles: rumour.Verification.Sources.Titles,
		Count:  rumour.Verification.Sources.Count,
	})
	if err != nil {
		return fmt.Errorf("сериализация источников: %w", err)
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	_, err = p.pool.Exec(ctx, `
		INSERT INTO rumours (id, claim_text, platform, source_post_url, summary, verdict, message, reasoning, sources, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, rumour.ID, rumour.ClaimText, rumour.Platform, rumour.SourcePostURL, rumour.Summary,
		string(rumour.Verification.Verdict), rumour.Verification.Message, rumour.Verification.Reasoning,
		sources, rumour.Verification.VerifiedAt)
	if err != nil {
		return fmt.Errorf("сохранение слуха: %w", err)
	}
	return nil
}

// ListRecent возвращает limit последних слухов из архива, свежие первыми.
func (p *Postgres) ListRecent(ctx context.Context, limit int) ([]domain.Rumour, error) {
	if limit <= 0 {
		limit = 10
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	rows, err := p.pool.Query(ctx, `
		SELECT id, claim_text, platform, source_post_url, summary, verdict, message, reasoning, sources, verified_at
		FROM rumours
		ORDER BY verified_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("чтение архива: %w", err)
	}
	defer rows.Close()

	var rumours []domain.Rumour
	for rows.Next() {
		var (
			r        domain.Rumour
			verdict  string
			srcBytes []byte
		)
		if err := rows.Scan(&r.ID, &r.ClaimText, &r.Platform, &r.SourcePostURL, &r.Summary,
			&verdict, &r.Verification.Message, &r.Verification.Reasoning, &srcBytes, &r.Verification.VerifiedAt); err != nil {
			return nil, fmt.Errorf("разбор строки архива: %w", err)
		}
		r.Verification.Verdict = domain.CanonicalVerdict(verdict)
		var src sourcesJSON
		if err := json.Unmarshal(srcBytes, &src); err == nil {
			r.Verification.Sources = domain.Sources{Links: src.Links, Titles: src.Titles, Count: len(src.Links)}
		}
		rumours = append(rumours, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("чтение архива: %w", err)
	}
	return rumours, nil
}
