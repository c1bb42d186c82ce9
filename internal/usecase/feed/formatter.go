package feed

import (
	"fmt"
	"time"

	"aegis-feed/internal/domain"
)

// RelativeTime форматирует давность отметки t относительно now.
// Для отметок старше недели возвращается абсолютная дата.
// now передаётся параметром, чтобы вывод был детерминированным.
func RelativeTime(now, t time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
	return t.Format("Jan 2, 2006")
}

var verdictStyles = map[domain.Verdict]string{
	domain.VerdictTrue:       "success",
	domain.VerdictFalse:      "danger",
	domain.VerdictDisputed:   "warning",
	domain.VerdictMostlyTrue: "info",
	domain.VerdictUnverified: "neutral",
}

// VerdictStyle возвращает визуальный токен для вердикта.
func VerdictStyle(v domain.Verdict) string {
	if style, ok := verdictStyles[v]; ok {
		return style
	}
	return "neutral"
}
