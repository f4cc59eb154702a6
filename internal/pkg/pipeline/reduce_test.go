package pipeline

import (
	"testing"
)

func allowSetPolicy() Policy {
	return Policy{
		SportLabel: "futebol",
		SportID:    4,
		AllowedMarketTypes: map[string]bool{
			"3way": true, "BTTS": true, "DoubleChance": true, "DrawNoBet": true,
			"Handicap": true, "2wayHandicap": true,
		},
		PromoSubtypes:        map[string]bool{"BigOdd": true, "2Up3wayPricing": true},
		TeamParticipantTypes: map[string]bool{"HomeTeam": true, "AwayTeam": true, "Team": true},
		RegularTimeOnly:      true,
		ExpectedFixtureType:  "PairGame",
	}
}

func market(params map[string]any) map[string]any {
	return map[string]any{"id": float64(1), "name": "m", "params": params}
}

func TestReduceAndValidateMinimalFixture(t *testing.T) {
	raw := map[string]any{
		"fixture": map[string]any{
			"participants":  []any{"Grêmio", "Fluminense"},
			"optionMarkets": []any{market(map[string]any{"MarketType": "3way"})},
			"fixtureType":   "PairGame",
		},
	}
	policy := allowSetPolicy()

	slim := Reduce(raw, policy)
	if !IsValid(slim, policy) {
		t.Fatal("minimal two-participant fixture with one allowed market must be valid")
	}
	fixture := asMap(slim["fixture"])
	if got := len(asSlice(fixture["participants"])); got != 2 {
		t.Errorf("participants after reduction = %d, want 2", got)
	}
	if got := len(asSlice(fixture["optionMarkets"])); got != 1 {
		t.Errorf("optionMarkets after reduction = %d, want 1", got)
	}
}

func TestReduceFixtureMarketFiltering(t *testing.T) {
	tests := []struct {
		name   string
		market map[string]any
		kept   bool
	}{
		{"allowed type", market(map[string]any{"MarketType": "3way"}), true},
		{"disallowed type", market(map[string]any{"MarketType": "Specials"}), false},
		{"promo subtype bypasses allow set", market(map[string]any{"MarketType": "Specials", "MarketSubType": "BigOdd"}), true},
		{"non regular time period", market(map[string]any{"MarketType": "3way", "Period": "FirstHalf"}), false},
		{"regular time period", market(map[string]any{"MarketType": "3way", "Period": "RegularTime"}), true},
		{"non goal happening", market(map[string]any{"MarketType": "BTTS", "Happening": "Corner"}), false},
		{"three way with range value", market(map[string]any{"MarketType": "3way", "RangeValue": "2"}), false},
	}
	policy := allowSetPolicy()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keepMarket(tt.market, policy); got != tt.kept {
				t.Errorf("keepMarket = %v, want %v", got, tt.kept)
			}
		})
	}
}

func TestReduceKeepsAllMarketsWhenFilterEliminatesEverything(t *testing.T) {
	raw := map[string]any{
		"fixture": map[string]any{
			"participants": []any{"A", "B"},
			"optionMarkets": []any{
				market(map[string]any{"MarketType": "Specials"}),
				market(map[string]any{"MarketType": "Corners"}),
			},
			"fixtureType": "PairGame",
		},
	}
	slim := Reduce(raw, allowSetPolicy())
	fixture := asMap(slim["fixture"])
	if got := len(asSlice(fixture["optionMarkets"])); got != 2 {
		t.Fatalf("optionMarkets = %d, want all 2 kept when the filter matches nothing", got)
	}
}

func TestReduceBoostedMarketBypassesAllowSet(t *testing.T) {
	boosted := map[string]any{
		"id":     float64(9),
		"params": map[string]any{"MarketType": "Specials"},
		"options": []any{
			map[string]any{"id": float64(1), "price": float64(2.5), "boostedPrice": float64(3.0)},
		},
	}
	if !keepMarket(boosted, allowSetPolicy()) {
		t.Fatal("market with a boosted price must be kept regardless of type")
	}
}

func TestIsValidFixtureRules(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			"participants":  []any{"A", "B"},
			"optionMarkets": []any{market(map[string]any{"MarketType": "3way"})},
			"fixtureType":   "PairGame",
		}
	}
	tests := []struct {
		name   string
		mutate func(fixture map[string]any)
		valid  bool
	}{
		{"baseline", func(map[string]any) {}, true},
		{"single participant", func(f map[string]any) { f["participants"] = []any{"A"} }, false},
		{"no markets", func(f map[string]any) { f["optionMarkets"] = []any{} }, false},
		{"wrong fixture type", func(f map[string]any) { f["fixtureType"] = "Tournament" }, false},
		{"missing fixture type", func(f map[string]any) { delete(f, "fixtureType") }, true},
		{"wrong sport", func(f map[string]any) {
			f["sport"] = map[string]any{"id": float64(31)}
		}, false},
		{"matching sport", func(f map[string]any) {
			f["sport"] = map[string]any{"id": float64(4)}
		}, true},
		{"multiples competition", func(f map[string]any) {
			f["competition"] = map[string]any{"name": "Múltiplas do Dia"}
		}, false},
	}
	policy := allowSetPolicy()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := base()
			tt.mutate(fixture)
			slim := map[string]any{"fixture": fixture}
			if got := IsValid(slim, policy); got != tt.valid {
				t.Errorf("IsValid = %v, want %v", got, tt.valid)
			}
		})
	}

	if IsValid(map[string]any{"eventId": "1"}, policy) {
		t.Error("record without a fixture block must be invalid under a fixture policy")
	}
	if IsValid(nil, policy) {
		t.Error("empty record must be invalid")
	}
}

func TestReduceOddsListByMarketID(t *testing.T) {
	policy := Policy{AllowedMarketIDs: map[int64]bool{157: true}}
	raw := map[string]any{
		"eventId":   float64(55),
		"matchName": "Internacional - Juventude",
		"markets":   []any{map[string]any{"id": float64(157)}},
		"odds": []any{
			map[string]any{"marketId": float64(157), "name": "1", "price": float64(1.8), "offerStateId": float64(2)},
			map[string]any{"marketId": float64(901), "name": "Over 2.5", "price": float64(2.1)},
		},
	}

	slim := Reduce(raw, policy)
	if _, present := slim["markets"]; present {
		t.Error("markets block must be dropped from odds-shaped payloads")
	}
	odds := asSlice(slim["odds"])
	if len(odds) != 1 {
		t.Fatalf("kept %d odds, want 1", len(odds))
	}
	kept := asMap(odds[0])
	if asInt64(kept["marketId"]) != 157 {
		t.Errorf("kept marketId = %v", kept["marketId"])
	}
	if kept["offerStateId"] != float64(2) {
		t.Error("offerStateId must survive slimming")
	}

	if !IsValid(slim, policy) {
		t.Error("odds record with a splittable match name must be valid")
	}
}

func TestReduceOddsKeepsAllWhenNoMarketAllowed(t *testing.T) {
	policy := Policy{AllowedMarketIDs: map[int64]bool{157: true}}
	raw := map[string]any{
		"matchName": "A - B",
		"odds": []any{
			map[string]any{"marketId": float64(901)},
			map[string]any{"marketId": float64(902)},
		},
	}
	slim := Reduce(raw, policy)
	if got := len(asSlice(slim["odds"])); got != 2 {
		t.Fatalf("kept %d odds, want all 2 when the filter matches nothing", got)
	}
}

func TestIsValidOddsRequiresSplittableName(t *testing.T) {
	policy := Policy{AllowedMarketIDs: map[int64]bool{157: true}}
	slim := map[string]any{
		"matchName": "Vencedor do Campeonato",
		"odds":      []any{map[string]any{"marketId": float64(157)}},
	}
	if IsValid(slim, policy) {
		t.Error("odds record without a home/away name must be invalid")
	}
}

func TestReducePassThroughPolicy(t *testing.T) {
	raw := map[string]any{"id": "99", "name": "A vs B"}
	slim := Reduce(raw, Policy{})
	if len(slim) != len(raw) {
		t.Fatal("pass-through policy must not prune the payload")
	}
	if !IsValid(slim, Policy{}) {
		t.Error("non-empty record must be valid under a pass-through policy")
	}
	if IsValid(map[string]any{}, Policy{}) {
		t.Error("empty record must be invalid even under a pass-through policy")
	}
}
