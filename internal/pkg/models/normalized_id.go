package models

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const normalizedIDTimeLayout = "20060102T150405Z"

// NormalizeText canonicalizes free text for use inside normalized IDs:
// accents are stripped (Grêmio -> GREMIO), the result is uppercased,
// every non-alphanumeric run becomes a single underscore and leading or
// trailing underscores are trimmed.
func NormalizeText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range norm.NFD.String(text) {
		if unicode.Is(unicode.Mn, r) {
			continue // combining mark left over from decomposition
		}
		r = unicode.ToUpper(r)
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}

// BuildNormalizedID derives the cross-provider match identity used to fold
// same-match documents from different providers into one.
//
// Format: <SPORT>-<DATETIME_UTC>-<HOME>-<AWAY>
// Example: FUTEBOL-20251203T003000Z-GREMIO-FLUMINENSE
//
// Returns "" when home, away or kickoff is missing; callers fall back to
// the provider-scoped event id in that case.
func BuildNormalizedID(sport string, kickoff time.Time, home, away string) string {
	normalizedHome := NormalizeText(home)
	normalizedAway := NormalizeText(away)
	if normalizedHome == "" || normalizedAway == "" || kickoff.IsZero() {
		return ""
	}
	return NormalizeText(sport) + "-" +
		kickoff.UTC().Format(normalizedIDTimeLayout) + "-" +
		normalizedHome + "-" + normalizedAway
}
