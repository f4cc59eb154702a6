package models

import (
	"testing"
	"time"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Grêmio", "GREMIO"},
		{"São Paulo", "SAO_PAULO"},
		{"Atlético-MG", "ATLETICO_MG"},
		{"  Fluminense  ", "FLUMINENSE"},
		{"Real   Madrid", "REAL_MADRID"},
		{"1. FC Köln", "1_FC_KOLN"},
		{"---", ""},
		{"", ""},
	}

	for _, tt := range tests {
		result := NormalizeText(tt.input)
		if result != tt.expected {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestBuildNormalizedID(t *testing.T) {
	kickoff := time.Date(2025, 12, 3, 0, 30, 0, 0, time.UTC)

	id := BuildNormalizedID("Futebol", kickoff, "Grêmio", "Fluminense")
	want := "FUTEBOL-20251203T003000Z-GREMIO-FLUMINENSE"
	if id != want {
		t.Errorf("BuildNormalizedID = %q, want %q", id, want)
	}
}

func TestBuildNormalizedID_SameInputsSameID(t *testing.T) {
	kickoff := time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC)

	id1 := BuildNormalizedID("futebol", kickoff, "Grêmio", "São Paulo")
	id2 := BuildNormalizedID("FUTEBOL", kickoff, "Gremio", "Sao Paulo")
	if id1 != id2 {
		t.Errorf("accent/case variants should map to the same ID:\n  %s\n  %s", id1, id2)
	}
}

func TestBuildNormalizedID_MissingParts(t *testing.T) {
	kickoff := time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC)

	if id := BuildNormalizedID("futebol", kickoff, "", "Fluminense"); id != "" {
		t.Errorf("missing home should produce empty ID, got %q", id)
	}
	if id := BuildNormalizedID("futebol", time.Time{}, "Grêmio", "Fluminense"); id != "" {
		t.Errorf("missing kickoff should produce empty ID, got %q", id)
	}
}

func TestSplitMatchName(t *testing.T) {
	tests := []struct {
		name string
		home string
		away string
	}{
		{"Grêmio - Fluminense", "Grêmio", "Fluminense"},
		{"Arsenal vs Chelsea", "Arsenal", "Chelsea"},
		{"Flamengo x Palmeiras", "Flamengo", "Palmeiras"},
		{"Boca Juniors|River Plate", "Boca Juniors", "River Plate"},
		{"Atlético-MG", "Atlético", "MG"},
		{"Palmeiras", "Palmeiras", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		home, away := SplitMatchName(tt.name)
		if home != tt.home || away != tt.away {
			t.Errorf("SplitMatchName(%q) = (%q, %q), want (%q, %q)", tt.name, home, away, tt.home, tt.away)
		}
	}
}
