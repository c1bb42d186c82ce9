package backend

import (
	"time"

	"aegis-feed/internal/domain"
)

// SampleRumours возвращает встроенный демонстрационный набор.
// Он показывается вместо пустой ленты, когда бэкенд недоступен
// и кэш снапшота пуст. Времена проверки отсчитываются от now.
func SampleRumours(now time.Time) []domain.Rumour {
	now = now.UTC()
	return []domain.Rumour{
		{
			ID:            "sample_rumour_001",
			ClaimText:     "Scientists have discovered a new planet that could support human life",
			Platform:      "Twitter",
			SourcePostURL: "https://twitter.com/example/status/123456789",
			Summary:       "Recent astronomical observations suggest the possibility of a habitable exoplanet",
			Verification: domain.Verification{
				Verdict:   domain.VerdictTrue,
				Message:   "This claim is accurate based on recent findings",
				Reasoning: "The discovery was confirmed by multiple telescopes and peer-reviewed research",
				Sources: domain.Sources{
					Links:  []string{"https://www.nasa.gov/feature/nasa-discovers-new-exoplanet"},
					Titles: []string{"NASA Discovers New Exoplanet"},
					Count:  1,
				},
				VerifiedAt: now.Add(-2 * time.Hour),
			},
		},
		{
			ID:            "sample_rumour_002",
			ClaimText:     "Breaking: Major tech company announces they're shutting down all services",
			Platform:      "Facebook",
			SourcePostURL: "https://facebook.com/example/posts/987654321",
			Summary:       "A viral post claims a major technology company is discontinuing all its services",
			Verification: domain.Verification{
				Verdict:   domain.VerdictFalse,
				Message:   "No such announcement was made",
				Reasoning: "The company's official channels carry no trace of the claimed announcement",
				Sources: domain.Sources{
					Links:  []string{"https://example.com/official-statement"},
					Titles: []string{"Official Statement"},
					Count:  1,
				},
				VerifiedAt: now.Add(-90 * time.Minute),
			},
		},
		{
			ID:            "sample_rumour_003",
			ClaimText:     "New study shows that coffee increases life expectancy by 5 years",
			Platform:      "Instagram",
			Summary:       "A recent research paper claims significant health benefits from coffee consumption",
			Verification: domain.Verification{
				Verdict:   domain.VerdictDisputed,
				Message:   "While coffee does have health benefits, the 5-year claim is exaggerated",
				Reasoning: "Studies show moderate benefits, but the specific 5-year figure is not supported by the cited research",
				Sources: domain.Sources{
					Links:  []string{"https://example.com/coffee-study"},
					Titles: []string{"Coffee Consumption Study"},
					Count:  1,
				},
				VerifiedAt: now.Add(-45 * time.Minute),
			},
		},
	}
}
