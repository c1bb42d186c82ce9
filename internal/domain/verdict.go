package domain

import "strings"

// Verdict описывает канонический вердикт проверки.
type Verdict string

const (
	VerdictTrue       Verdict = "True"
	VerdictFalse      Verdict = "False"
	VerdictDisputed   Verdict = "Disputed"
	VerdictMostlyTrue Verdict = "Mostly True"
	VerdictUnverified Verdict = "Unverified"
)

var canonicalVerdicts = map[string]Verdict{
	"true":        VerdictTrue,
	"false":       VerdictFalse,
	"disputed":    VerdictDisputed,
	"uncertain":   VerdictDisputed,
	"mostly true": VerdictMostlyTrue,
	"unverified":  VerdictUnverified,
}

// CanonicalVerdict приводит сырой токен вердикта к каноническому значению.
// Нераспознанные токены всегда дают VerdictUnverified.
func CanonicalVerdict(token string) Verdict {
	token = strings.ToLower(strings.TrimSpace(token))
	if v, ok := canonicalVerdicts[token]; ok {
		return v
	}
	return VerdictUnverified
}
