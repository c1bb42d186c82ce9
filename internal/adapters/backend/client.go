package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"aegis-feed/internal/adapters/record"
	"aegis-feed/internal/domain"
	"aegis-feed/internal/infra/metrics"
)

// Client читает снапшоты последних проверенных слухов из REST API бэкенда.
type Client struct {
	http    *http.Client
	baseURL string
	now     func() time.Time
}

var _ domain.SnapshotSource = (*Client)(nil)

// NewClient создаёт клиента бэкенда.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: ResolveBaseURL(baseURL),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type recentPostsResponse struct {
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Posts   []json.RawMessage `json:"posts"`
}

// RecentRumours возвращает limit последних записей, уже нормализованных.
func (c *Client) RecentRumours(ctx context.Context, limit int) ([]domain.Rumour, error) {
	endpoint := c.baseURL + "/mongodb/recent-posts?limit=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("backend", "recent_posts", start, err)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("snapshot failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var parsed recentPostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("snapshot failed: backend reported success=false")
	}
	receivedAt := c.now()
	rumours := make([]domain.Rumour, 0, len(parsed.Posts))
	for _, raw := range parsed.Posts {
		rumours = append(rumours, record.Normalize(raw, receivedAt))
	}
	return rumours, nil
}
