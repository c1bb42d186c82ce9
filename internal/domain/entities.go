package domain

import "time"

// Rumour описывает один проверенный факт-чекером слух.
type Rumour struct {
	ID            string
	ClaimText     string
	Platform      string
	SourcePostURL string
	Summary       string
	Verification  Verification
}

// Verification содержит итог проверки слуха.
type Verification struct {
	Verdict    Verdict
	Message    string
	Reasoning  string
	Sources    Sources
	VerifiedAt time.Time
}

// Sources хранит ссылки на подтверждающие материалы.
// Titles может быть короче Links: у ссылки без заголовка
// заголовком считается сама ссылка.
type Sources struct {
	Links  []string
	Titles []string
	Count  int
}

// Title возвращает заголовок ссылки с индексом i.
func (s Sources) Title(i int) string {
	if i < 0 || i >= len(s.Links) {
		return ""
	}
	if i < len(s.Titles) && s.Titles[i] != "" {
		return s.Titles[i]
	}
	return s.Links[i]
}

// FeedSource указывает, откуда получены данные ленты.
type FeedSource string

const (
	// FeedSourceLive данные получены от бэкенда.
	FeedSourceLive FeedSource = "live"
	// FeedSourceCache данные восстановлены из кэша последнего снапшота.
	FeedSourceCache FeedSource = "cache"
	// FeedSourceSample показан встроенный демонстрационный набор.
	FeedSourceSample FeedSource = "sample"
)

// FeedStatus описывает текущее состояние ленты для отдачи наружу.
type FeedStatus struct {
	Source      FeedSource
	LastUpdated time.Time
	LastError   string
}
