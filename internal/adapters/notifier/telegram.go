package notifier

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"aegis-feed/internal/domain"
	"aegis-feed/internal/infra/metrics"
)

const maxNotifiedSources = 3

// Telegram отправляет уведомления о новых проверенных слухах в канал.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

var _ domain.Notifier = (*Telegram)(nil)

// NewTelegram создаёт уведомитель.
func NewTelegram(bot *tgbotapi.BotAPI, chatID int64, logger zerolog.Logger) *Telegram {
	return &Telegram{bot: bot, chatID: chatID, log: logger}
}

// NotifyRumour отправляет одно сообщение о слухе.
func (t *Telegram) NotifyRumour(ctx context.Context, rumour domain.Rumour) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatRumour(rumour))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		metrics.NotificationErrors.Inc()
		return fmt.Errorf("отправка уведомления: %w", err)
	}
	metrics.NotificationsSent.Inc()
	t.log.Debug().Str("rumour_id", rumour.ID).Msg("notifier: уведомление отправлено")
	return nil
}

var verdictBadges = map[domain.Verdict]string{
	domain.VerdictTrue:       "✅",
	domain.VerdictFalse:      "❌",
	domain.VerdictDisputed:   "⚠️",
	domain.VerdictMostlyTrue: "🟢",
	domain.VerdictUnverified: "❓",
}

// FormatRumour собирает HTML-текст уведомления.
func FormatRumour(rumour domain.Rumour) string {
	badge, ok := verdictBadges[rumour.Verification.Verdict]
	if !ok {
		badge = verdictBadges[domain.VerdictUnverified]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", badge, html.EscapeString(string(rumour.Verification.Verdict)))
	fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(rumour.ClaimText))
	if rumour.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", html.EscapeString(rumour.Summary))
	}
	if rumour.Verification.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", html.EscapeString(rumour.Verification.Message))
	}
	if rumour.SourcePostURL != "" {
		fmt.Fprintf(&b, "\n<a href=\"%s\">Оригинальный пост</a> · %s\n",
			html.EscapeString(rumour.SourcePostURL), html.EscapeString(rumour.Platform))
	}
	links := rumour.Verification.Sources.Links
	if len(links) > 0 {
		b.WriteString("\n<b>Источники:</b>\n")
		for i := range links {
			if i == maxNotifiedSources {
				break
			}
			fmt.Fprintf(&b, "• <a href=\"%s\">%s</a>\n",
				html.EscapeString(links[i]), html.EscapeString(rumour.Verification.Sources.Title(i)))
		}
	}
	return b.String()
}
