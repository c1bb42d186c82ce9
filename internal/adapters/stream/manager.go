package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"aegis-feed/internal/domain"
	"aegis-feed/internal/infra/metrics"
)

const (
	defaultBackoffMin = time.Second
	defaultBackoffMax = 30 * time.Second
	defaultPingEvery  = 30 * time.Second
	writeWait         = 5 * time.Second
)

// Callbacks вызываются менеджером при событиях потока.
// После Disconnect ни один callback не вызывается.
type Callbacks struct {
	// OnRecord получает сырую запись из кадра new_post.
	OnRecord func(raw json.RawMessage, receivedAt time.Time)
	// OnOpen вызывается после успешного открытия соединения.
	OnOpen func()
	// OnDown вызывается при потере соединения перед переподключением.
	OnDown func(err error)
}

// Manager владеет единственным WebSocket-соединением с потоком бэкенда
// и переподключается с экспоненциальной задержкой.
type Manager struct {
	url        string
	log        zerolog.Logger
	callbacks  Callbacks
	backoffMin time.Duration
	backoffMax time.Duration
	pingEvery  time.Duration

	mu       sync.Mutex
	state    domain.ConnState
	attempts int
	lastErr  error
	lastSeen time.Time
	conn     *websocket.Conn
	cancel   context.CancelFunc
	done     chan struct{}
	force    chan struct{}
	running  bool
}

// NewManager создаёт менеджер для указанного адреса. Соединение
// не открывается до вызова Connect.
func NewManager(url string, cb Callbacks, logger zerolog.Logger) *Manager {
	return &Manager{
		url:        url,
		log:        logger,
		callbacks:  cb,
		backoffMin: defaultBackoffMin,
		backoffMax: defaultBackoffMax,
		pingEvery:  defaultPingEvery,
		state:      domain.ConnClosed,
		force:      make(chan struct{}, 1),
	}
}

// SetBackoff переопределяет границы задержки переподключения.
func (m *Manager) SetBackoff(min, max time.Duration) {
	if min > 0 {
		m.backoffMin = min
	}
	if max >= m.backoffMin {
		m.backoffMax = max
	}
}

// Connect запускает цикл соединения. Повторный вызов при уже
// работающем менеджере ничего не делает.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true
	m.state = domain.ConnConnecting
	go m.run(runCtx, m.done)
}

// Disconnect окончательно закрывает соединение и отменяет все таймеры
// переподключения. После возврата callbacks не вызываются.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	conn := m.conn
	done := m.done
	m.mu.Unlock()

	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-done

	m.mu.Lock()
	m.state = domain.ConnClosed
	m.conn = nil
	m.mu.Unlock()
}

// ForceReconnect немедленно переподключается, минуя задержку.
func (m *Manager) ForceReconnect() {
	m.mu.Lock()
	conn := m.conn
	running := m.running
	m.mu.Unlock()
	if !running {
		return
	}
	select {
	case m.force <- struct{}{}:
	default:
	}
	if conn != nil {
		_ = conn.Close()
	}
}

// Status возвращает снимок состояния соединения.
func (m *Manager) Status() domain.ConnStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := domain.ConnStatus{State: m.state, Attempts: m.attempts}
	if m.lastErr != nil {
		status.LastError = m.lastErr.Error()
	}
	return status
}

func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	backoff := m.backoffMin
	for {
		if ctx.Err() != nil {
			return
		}
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, m.url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.noteFailure(err)
			m.log.Warn().Err(err).Str("url", m.url).Msg("stream: не удалось подключиться")
			if !m.waitRetry(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, m.backoffMax)
			continue
		}

		m.setOpen(conn)
		m.log.Info().Str("url", m.url).Msg("stream: соединение открыто")
		if m.callbacks.OnOpen != nil {
			m.callbacks.OnOpen()
		}
		backoff = m.backoffMin

		readErr := m.readLoop(ctx, conn)
		_ = conn.Close()
		m.clearConn()
		if ctx.Err() != nil {
			return
		}
		m.noteFailure(readErr)
		m.log.Warn().Err(readErr).Msg("stream: соединение потеряно, переподключаемся")
		if m.callbacks.OnDown != nil {
			m.callbacks.OnDown(readErr)
		}
		if !m.waitRetry(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, m.backoffMax)
	}
}

// waitRetry ждёт задержку перед переподключением. Возвращает false,
// если менеджер остановлен во время ожидания.
func (m *Manager) waitRetry(ctx context.Context, backoff time.Duration) bool {
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-m.force:
		return true
	case <-timer.C:
		return true
	}
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) error {
	conn.SetPongHandler(func(string) error {
		m.touch()
		return nil
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		ticker := time.NewTicker(m.pingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		m.handleFrame(conn, data)
	}
}

type frame struct {
	Type    string     `json:"type"`
	Data    *frameData `json:"data"`
	Message string     `json:"message"`
}

type frameData struct {
	Post json.RawMessage `json:"post"`
}

func (m *Manager) handleFrame(conn *websocket.Conn, data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		metrics.StreamFramesDropped.Inc()
		m.log.Warn().Err(err).Msg("stream: кадр отброшен, некорректный JSON")
		return
	}
	metrics.StreamFramesTotal.WithLabelValues(frameLabel(f.Type)).Inc()
	switch f.Type {
	case "new_post":
		if f.Data == nil || len(f.Data.Post) == 0 {
			metrics.StreamFramesDropped.Inc()
			m.log.Warn().Msg("stream: кадр new_post без записи")
			return
		}
		m.touch()
		if m.callbacks.OnRecord != nil {
			m.callbacks.OnRecord(f.Data.Post, time.Now().UTC())
		}
	case "ping":
		m.touch()
		deadline := time.Now().Add(writeWait)
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.WriteJSON(map[string]string{"type": "pong"})
	case "pong":
		m.touch()
	default:
		// неизвестные типы игнорируются без ошибки
	}
}

func frameLabel(frameType string) string {
	switch frameType {
	case "new_post", "ping", "pong":
		return frameType
	}
	return "other"
}

func (m *Manager) setOpen(conn *websocket.Conn) {
	m.mu.Lock()
	m.conn = conn
	m.state = domain.ConnOpen
	m.attempts = 0
	m.lastErr = nil
	m.lastSeen = time.Now().UTC()
	m.mu.Unlock()
}

func (m *Manager) clearConn() {
	m.mu.Lock()
	m.conn = nil
	m.mu.Unlock()
}

func (m *Manager) noteFailure(err error) {
	metrics.StreamReconnects.Inc()
	m.mu.Lock()
	m.state = domain.ConnRetrying
	m.attempts++
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) touch() {
	m.mu.Lock()
	m.lastSeen = time.Now().UTC()
	m.mu.Unlock()
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
