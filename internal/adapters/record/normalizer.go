package record

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"aegis-feed/internal/domain"
)

const (
	defaultClaimText = "No claim text available"
	defaultSummary   = "No summary available"
	defaultPlatform  = "Unknown source"
)

// Normalize приводит сырую запись бэкенда к канонической форме Rumour.
// Запись может прийти в упрощённой форме (claim строкой + verification)
// или в устаревшей вложенной форме. Функция никогда не возвращает ошибку:
// каждое отсутствующее или битое поле заменяется значением по умолчанию.
func Normalize(raw json.RawMessage, receivedAt time.Time) domain.Rumour {
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
		return domain.Rumour{
			ID:        uuid.NewString(),
			ClaimText: defaultClaimText,
			Platform:  defaultPlatform,
			Summary:   defaultSummary,
			Verification: domain.Verification{
				Verdict:    domain.VerdictUnverified,
				VerifiedAt: receivedAt.UTC(),
			},
		}
	}
	if isSimplified(rec) {
		return normalizeSimplified(rec, receivedAt)
	}
	return normalizeLegacy(rec, receivedAt)
}

// isSimplified единственная точка различения форм записи:
// упрощённая форма несёт claim строкой и verification объектом.
func isSimplified(rec map[string]any) bool {
	if _, ok := rec["claim"].(string); !ok {
		return false
	}
	_, ok := rec["verification"].(map[string]any)
	return ok
}

func normalizeSimplified(rec map[string]any, receivedAt time.Time) domain.Rumour {
	ver := subMap(rec, "verification")
	verifiedAt := parseTime(strField(ver, "verification_date"), time.Time{})
	if verifiedAt.IsZero() {
		verifiedAt = parseTime(strField(rec, "stored_at"), receivedAt)
	}
	return domain.Rumour{
		ID:            recordID(rec),
		ClaimText:     stringOr(strField(rec, "claim"), defaultClaimText),
		Platform:      stringOr(strField(rec, "platform"), defaultPlatform),
		SourcePostURL: firstString(rec, "Post_link", "post_link"),
		Summary:       stringOr(strField(rec, "summary"), defaultSummary),
		Verification: domain.Verification{
			Verdict:    domain.CanonicalVerdict(strField(ver, "verdict")),
			Message:    strField(ver, "message"),
			Reasoning:  strField(ver, "reasoning"),
			Sources:    normSources(subMap(ver, "sources")),
			VerifiedAt: verifiedAt,
		},
	}
}

func normalizeLegacy(rec map[string]any, receivedAt time.Time) domain.Rumour {
	original := subMap(subMap(rec, "metadata"), "original_verification")
	claim := subMap(rec, "claim")

	claimText := strField(rec, "claim_text")
	if claimText == "" {
		claimText = strField(original, "claim_text")
	}
	if claimText == "" {
		claimText = strField(claim, "text")
	}

	summary := strField(subMap(rec, "content"), "summary")
	if summary == "" {
		summary = strField(subMap(rec, "post_content"), "summary")
	}

	verdictToken := strField(claim, "verdict")
	if verdictToken == "" {
		verdictToken = strField(original, "verdict")
	}

	sources := domain.Sources{}
	if src := strField(rec, "source"); src != "" {
		sources = domain.Sources{Links: []string{src}, Count: 1}
	}

	verifiedAt := parseTime(strField(rec, "verification_date"), time.Time{})
	if verifiedAt.IsZero() {
		verifiedAt = parseTime(strField(rec, "timestamp"), receivedAt)
	}

	return domain.Rumour{
		ID:            recordID(rec),
		ClaimText:     stringOr(claimText, defaultClaimText),
		Platform:      stringOr(strField(rec, "platform"), defaultPlatform),
		SourcePostURL: firstString(rec, "Post_link", "post_link"),
		Summary:       stringOr(summary, defaultSummary),
		Verification: domain.Verification{
			Verdict:    domain.CanonicalVerdict(verdictToken),
			Message:    strField(original, "message"),
			Reasoning:  strField(original, "reasoning"),
			Sources:    sources,
			VerifiedAt: verifiedAt,
		},
	}
}

func normSources(m map[string]any) domain.Sources {
	links := strSlice(m, "links")
	titles := strSlice(m, "titles")
	if len(titles) > len(links) {
		titles = titles[:len(links)]
	}
	return domain.Sources{Links: links, Titles: titles, Count: len(links)}
}

func recordID(rec map[string]any) string {
	if id := firstString(rec, "post_id", "_id", "id"); id != "" {
		return id
	}
	return uuid.NewString()
}

func subMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	sub, _ := m[key].(map[string]any)
	return sub
}

func strField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := strField(m, key); s != "" {
			return s
		}
	}
	return ""
}

func strSlice(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	raw, _ := m[key].([]any)
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTime(s string, fallback time.Time) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return fallback.UTC()
}
