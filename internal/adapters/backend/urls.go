package backend

import "strings"

// ResolveBaseURL нормализует базовый адрес бэкенда, отбрасывая завершающий слэш.
func ResolveBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// ResolveWSURL возвращает адрес WebSocket-потока. Явный override имеет
// приоритет; иначе адрес выводится из базового URL заменой http(s) на ws(s)
// и добавлением суффикса /ws.
func ResolveWSURL(baseURL, override string) string {
	if override != "" {
		return strings.TrimRight(strings.TrimSpace(override), "/")
	}
	ws := ResolveBaseURL(baseURL)
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	if !strings.HasSuffix(ws, "/ws") {
		ws += "/ws"
	}
	return ws
}
