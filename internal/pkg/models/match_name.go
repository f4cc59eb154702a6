package models

import "strings"

// matchNameSeparators, most specific first so " - " wins over "-".
var matchNameSeparators = []string{
	" - ", " vs ", " v ", " x ", " X ", " – ", "·", "•", "–", "|", "-",
}

// SplitMatchName splits a provider match name into home and away team
// names. When no known separator is present the whole name is returned as
// home and away is empty.
func SplitMatchName(name string) (home, away string) {
	text := strings.TrimSpace(name)
	for _, sep := range matchNameSeparators {
		if !strings.Contains(text, sep) {
			continue
		}
		parts := strings.SplitN(text, sep, 2)
		h := strings.TrimSpace(parts[0])
		a := strings.TrimSpace(parts[1])
		if h != "" && a != "" {
			return h, a
		}
	}
	return text, ""
}
