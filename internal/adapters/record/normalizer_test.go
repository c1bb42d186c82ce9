package record

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"aegis-feed/internal/domain"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func TestNormalizeSimplified(t *testing.T) {
	raw := []byte(`{
		"post_id": "sample_rumour_001",
		"claim": "Scientists have discovered a new planet",
		"summary": "Recent astronomical observations suggest a habitable exoplanet",
		"platform": "Twitter",
		"Post_link": "https://twitter.com/example/status/123456789",
		"verification": {
			"verdict": "true",
			"message": "This claim is accurate",
			"reasoning": "Confirmed by multiple telescopes",
			"verification_date": "2025-03-14T10:00:00Z",
			"sources": {
				"count": 2,
				"links": ["https://nasa.gov/a", "https://nature.com/b"],
				"titles": ["NASA"]
			}
		},
		"stored_at": "2025-03-14T10:05:00Z"
	}`)

	got := Normalize(raw, testNow)

	if got.ID != "sample_rumour_001" {
		t.Fatalf("ожидали id из post_id, получили %q", got.ID)
	}
	if got.ClaimText != "Scientists have discovered a new planet" {
		t.Fatalf("неверный текст утверждения: %q", got.ClaimText)
	}
	if got.Platform != "Twitter" {
		t.Fatalf("неверная платформа: %q", got.Platform)
	}
	if got.SourcePostURL != "https://twitter.com/example/status/123456789" {
		t.Fatalf("неверная ссылка на пост: %q", got.SourcePostURL)
	}
	if got.Verification.Verdict != domain.VerdictTrue {
		t.Fatalf("ожидали вердикт True, получили %v", got.Verification.Verdict)
	}
	want := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	if !got.Verification.VerifiedAt.Equal(want) {
		t.Fatalf("ожидали verification_date %v, получили %v", want, got.Verification.VerifiedAt)
	}
	if got.Verification.Sources.Count != 2 || len(got.Verification.Sources.Links) != 2 {
		t.Fatalf("ожидали count равный числу ссылок, получили %+v", got.Verification.Sources)
	}
	if got.Verification.Sources.Title(1) != "https://nature.com/b" {
		t.Fatalf("ожидали ссылку вместо отсутствующего заголовка")
	}
}

func TestNormalizeSimplifiedVerifiedAtFallsBackToStoredAt(t *testing.T) {
	raw := []byte(`{
		"post_id": "p1",
		"claim": "Claim",
		"verification": {"verdict": "false"},
		"stored_at": "2025-03-14T09:00:00Z"
	}`)
	got := Normalize(raw, testNow)
	want := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	if !got.Verification.VerifiedAt.Equal(want) {
		t.Fatalf("ожидали stored_at %v, получили %v", want, got.Verification.VerifiedAt)
	}
}

func TestNormalizeLegacy(t *testing.T) {
	raw := []byte(`{
		"post_id": "legacy_01",
		"timestamp": "2025-03-14T08:00:00Z",
		"claim": {"text": "-", "verdict": "uncertain"},
		"post_content": {"heading": "H", "body": "B", "summary": "Post content summary"},
		"source": "https://example.org/origin",
		"metadata": {
			"original_verification": {
				"claim_text": "Coffee extends life by 5 years",
				"verdict": "uncertain",
				"message": "The claim is exaggerated",
				"reasoning": "The cited study does not support it"
			}
		}
	}`)

	got := Normalize(raw, testNow)

	if got.ID != "legacy_01" {
		t.Fatalf("неверный id: %q", got.ID)
	}
	if got.ClaimText != "Coffee extends life by 5 years" {
		t.Fatalf("ожидали claim_text из original_verification, получили %q", got.ClaimText)
	}
	if got.Summary != "Post content summary" {
		t.Fatalf("ожидали summary из post_content, получили %q", got.Summary)
	}
	if got.Verification.Verdict != domain.VerdictDisputed {
		t.Fatalf("ожидали Disputed для uncertain, получили %v", got.Verification.Verdict)
	}
	if got.Verification.Message != "The claim is exaggerated" {
		t.Fatalf("неверное сообщение: %q", got.Verification.Message)
	}
	wantSources := domain.Sources{Links: []string{"https://example.org/origin"}, Count: 1}
	if !reflect.DeepEqual(got.Verification.Sources, wantSources) {
		t.Fatalf("ожидали единственную ссылку из source, получили %+v", got.Verification.Sources)
	}
	if got.Platform != "Unknown source" {
		t.Fatalf("ожидали платформу по умолчанию, получили %q", got.Platform)
	}
}

func TestNormalizeLegacyDefaults(t *testing.T) {
	got := Normalize([]byte(`{"pipeline_run_id": "run-1"}`), testNow)
	if got.ClaimText != "No claim text available" {
		t.Fatalf("ожидали текст по умолчанию, получили %q", got.ClaimText)
	}
	if got.Summary != "No summary available" {
		t.Fatalf("ожидали summary по умолчанию, получили %q", got.Summary)
	}
	if got.Verification.Verdict != domain.VerdictUnverified {
		t.Fatalf("ожидали Unverified, получили %v", got.Verification.Verdict)
	}
	if got.Verification.Sources.Count != 0 || len(got.Verification.Sources.Links) != 0 {
		t.Fatalf("ожидали пустые источники, получили %+v", got.Verification.Sources)
	}
	if !got.Verification.VerifiedAt.Equal(testNow) {
		t.Fatalf("ожидали время приёма %v, получили %v", testNow, got.Verification.VerifiedAt)
	}
	if got.ID == "" {
		t.Fatal("ожидали сгенерированный id")
	}
}

func TestNormalizeMalformedJSON(t *testing.T) {
	got := Normalize([]byte(`not json`), testNow)
	if got.ID == "" {
		t.Fatal("ожидали сгенерированный id")
	}
	if got.ClaimText != "No claim text available" || got.Verification.Verdict != domain.VerdictUnverified {
		t.Fatalf("ожидали запись по умолчанию, получили %+v", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	canonical := domain.Rumour{
		ID:            "p42",
		ClaimText:     "Claim",
		Platform:      "Telegram",
		SourcePostURL: "https://t.me/example/42",
		Summary:       "Summary",
		Verification: domain.Verification{
			Verdict:    domain.VerdictMostlyTrue,
			Message:    "Close to true",
			Reasoning:  "Minor inaccuracies",
			Sources:    domain.Sources{Links: []string{"https://example.org"}, Titles: []string{"Example"}, Count: 1},
			VerifiedAt: time.Date(2025, 3, 14, 7, 30, 0, 0, time.UTC),
		},
	}

	// Каноническая запись, прогнанная через упрощённую форму,
	// должна нормализоваться в саму себя.
	raw, err := json.Marshal(map[string]any{
		"post_id":   canonical.ID,
		"claim":     canonical.ClaimText,
		"summary":   canonical.Summary,
		"platform":  canonical.Platform,
		"Post_link": canonical.SourcePostURL,
		"verification": map[string]any{
			"verdict":           string(canonical.Verification.Verdict),
			"message":           canonical.Verification.Message,
			"reasoning":         canonical.Verification.Reasoning,
			"verification_date": canonical.Verification.VerifiedAt.Format(time.RFC3339Nano),
			"sources": map[string]any{
				"count":  canonical.Verification.Sources.Count,
				"links":  canonical.Verification.Sources.Links,
				"titles": canonical.Verification.Sources.Titles,
			},
		},
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	got := Normalize(raw, testNow)
	if !reflect.DeepEqual(got, canonical) {
		t.Fatalf("нормализация не идемпотентна:\n got: %+v\nwant: %+v", got, canonical)
	}
}
