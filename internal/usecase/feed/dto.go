package feed

import (
	"time"

	"aegis-feed/internal/domain"
)

// rumourDTO сериализуемая форма слуха для кэша снапшота.
type rumourDTO struct {
	ID            string    `json:"id"`
	ClaimText     string    `json:"claim_text"`
	Platform      string    `json:"platform"`
	SourcePostURL string    `json:"source_post_url,omitempty"`
	Summary       string    `json:"summary"`
	Verdict       string    `json:"verdict"`
	Message       string    `json:"message"`
	Reasoning     string    `json:"reasoning"`
	SourceLinks   []string  `json:"source_links"`
	SourceTitles  []string  `json:"source_titles"`
	VerifiedAt    time.Time `json:"verified_at"`
}

func encodeRumours(rumours []domain.Rumour) []rumourDTO {
	out := make([]rumourDTO, 0, len(rumours))
	for _, r := range rumours {
		out = append(out, rumourDTO{
			ID:            r.ID,
			ClaimText:     r.ClaimText,
			Platform:      r.Platform,
			SourcePostURL: r.SourcePostURL,
			Summary:       r.Summary,
			Verdict:       string(r.Verification.Verdict),
			Message:       r.Verification.Message,
			Reasoning:     r.Verification.Reasoning,
			SourceLinks:   r.Verification.Sources.Links,
			SourceTitles:  r.Verification.Sources.Titles,
			VerifiedAt:    r.Verification.VerifiedAt,
		})
	}
	return out
}

func decodeRumours(encoded []rumourDTO) []domain.Rumour {
	out := make([]domain.Rumour, 0, len(encoded))
	for _, dto := range encoded {
		out = append(out, domain.Rumour{
			ID:            dto.ID,
			ClaimText:     dto.ClaimText,
			Platform:      dto.Platform,
			SourcePostURL: dto.SourcePostURL,
			Summary:       dto.Summary,
			Verification: domain.Verification{
				Verdict:    domain.CanonicalVerdict(dto.Verdict),
				Message:    dto.Message,
				Reasoning:  dto.Reasoning,
				Sources:    domain.Sources{Links: dto.SourceLinks, Titles: dto.SourceTitles, Count: len(dto.SourceLinks)},
				VerifiedAt: dto.VerifiedAt,
			},
		})
	}
	return out
}
