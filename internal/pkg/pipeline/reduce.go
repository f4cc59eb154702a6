package pipeline

import (
	"strings"

	"github.com/superodds/oddscollector/internal/pkg/models"
)

// Policy configures what the reducer keeps from a raw detail payload and
// what the validity filter demands of the result. It is threaded
// explicitly through every call; there is no mutable package state.
type Policy struct {
	// SportLabel names the sport inside normalized IDs (e.g. "futebol").
	SportLabel string
	// SportID is the provider's numeric sport identifier. When non-zero,
	// records carrying a different sport id are invalid.
	SportID int64

	// AllowedMarketTypes is the keep-set for fixture-shaped payloads
	// (market params MarketType). Empty disables type filtering.
	AllowedMarketTypes map[string]bool
	// AllowedMarketIDs is the keep-set for odds-shaped payloads keyed by
	// numeric marketId. Empty disables id filtering.
	AllowedMarketIDs map[int64]bool
	// PromoSubtypes are MarketSubType values that bypass the allow-set
	// entirely: promotional markets are kept regardless of type.
	PromoSubtypes map[string]bool
	// TeamParticipantTypes restricts which participant entries survive
	// reduction. Empty keeps all.
	TeamParticipantTypes map[string]bool

	// RegularTimeOnly drops markets scoped to a period other than
	// regular time.
	RegularTimeOnly bool
	// ExpectedFixtureType, when set, marks the policy as fixture-shaped:
	// validity requires a fixture block whose fixtureType (when present)
	// matches, and rejects composite "multiples" pseudo-events.
	ExpectedFixtureType string

	// MaxDepth bounds recursive payload traversal; 0 means the default.
	MaxDepth int
}

func (p Policy) walkDepth() int {
	if p.MaxDepth > 0 {
		return p.MaxDepth
	}
	return defaultWalkDepth
}

// Reduce prunes a raw detail payload down to the fields and markets the
// policy keeps. It never fails: input it cannot map passes through
// unchanged. When the allow-set filter would eliminate every market the
// reducer keeps all of them, slimmed, instead of returning an empty
// market list.
func Reduce(raw map[string]any, policy Policy) map[string]any {
	if raw == nil {
		return nil
	}
	if fixture := asMap(raw["fixture"]); fixture != nil {
		return map[string]any{"fixture": reduceFixture(fixture, policy)}
	}
	if odds := asSlice(raw["odds"]); odds != nil && len(policy.AllowedMarketIDs) > 0 {
		return reduceOddsEvent(raw, odds, policy)
	}
	return raw
}

// IsValid reports whether a reduced record is a usable single event.
// Invalid records are dropped before persistence, never stored.
func IsValid(slim map[string]any, policy Policy) bool {
	if len(slim) == 0 {
		return false
	}
	if policy.ExpectedFixtureType != "" || len(policy.AllowedMarketTypes) > 0 {
		return isValidFixture(asMap(slim["fixture"]), policy)
	}
	if odds, present := slim["odds"]; present {
		if len(asSlice(odds)) == 0 {
			return false
		}
		name := stringify(slim["matchName"])
		if name == "" {
			name = stringify(slim["name"])
		}
		_, away := models.SplitMatchName(name)
		return away != ""
	}
	return true
}

func isValidFixture(fixture map[string]any, policy Policy) bool {
	if fixture == nil {
		return false
	}

	if policy.SportID != 0 {
		sportID := asInt64(asMap(fixture["sport"])["id"])
		if sportID == 0 {
			sportID = asInt64(asMap(fixture["scoreboard"])["sportId"])
		}
		if sportID != 0 && sportID != policy.SportID {
			return false
		}
	}

	if len(asSlice(fixture["participants"])) < 2 {
		return false
	}
	if len(asSlice(fixture["optionMarkets"])) == 0 {
		return false
	}

	// "Multiples" composites aggregate several matches and are not a
	// tradable single event.
	compName := strings.ToLower(unwrapName(asMap(fixture["competition"])["name"]))
	if strings.Contains(compName, "múltiplas") || strings.Contains(compName, "multipla") {
		return false
	}

	if fixtureType := stringify(fixture["fixtureType"]); fixtureType != "" {
		expected := policy.ExpectedFixtureType
		if expected == "" {
			expected = "PairGame"
		}
		if !strings.EqualFold(fixtureType, expected) {
			return false
		}
	}
	return true
}

func reduceFixture(fixture map[string]any, policy Policy) map[string]any {
	markets := asSlice(fixture["optionMarkets"])
	kept := make([]any, 0, len(markets))
	for _, m := range markets {
		market := asMap(m)
		if market == nil {
			continue
		}
		if keepMarket(market, policy) {
			kept = append(kept, slimMarket(market))
		}
	}
	if len(kept) == 0 && len(markets) > 0 {
		// Filter matched nothing: keep everything, slimmed, rather than
		// discard the record's only signal.
		for _, m := range markets {
			if market := asMap(m); market != nil {
				kept = append(kept, slimMarket(market))
			}
		}
	}

	var participants []any
	for _, item := range asSlice(fixture["participants"]) {
		participant := asMap(item)
		if participant == nil {
			// Some payloads list participants as bare names.
			participants = append(participants, item)
			continue
		}
		participantType := nestedString(participant, "properties", "type")
		if len(policy.TeamParticipantTypes) > 0 && !policy.TeamParticipantTypes[participantType] {
			continue
		}
		// Image URLs and other heavy decoration are dropped here.
		participants = append(participants, map[string]any{
			"id":            participant["id"],
			"participantId": participant["participantId"],
			"name":          participant["name"],
			"status":        participant["status"],
			"properties":    participant["properties"],
		})
	}

	return map[string]any{
		"id":                fixture["id"],
		"sourceId":          fixture["sourceId"],
		"name":              fixture["name"],
		"fixtureType":       fixture["fixtureType"],
		"context":           fixture["context"],
		"startDate":         fixture["startDate"],
		"cutOffDate":        fixture["cutOffDate"],
		"sport":             fixture["sport"],
		"competition":       fixture["competition"],
		"region":            fixture["region"],
		"participants":      participants,
		"scoreboard":        fixture["scoreboard"],
		"totalMarketsCount": fixture["totalMarketsCount"],
		"priceBoostCount":   fixture["priceBoostCount"],
		"addons":            fixture["addons"],
		"marketGroups":      fixture["marketGroups"],
		"optionMarkets":     kept,
	}
}

func keepMarket(market map[string]any, policy Policy) bool {
	params := marketParams(market)

	// Promotional/boosted markets carry business value disproportionate
	// to their footprint and bypass the allow-set entirely.
	if hasBoost(market, policy) || policy.PromoSubtypes[params["MarketSubType"]] {
		return true
	}

	marketType := params["MarketType"]
	if len(policy.AllowedMarketTypes) > 0 && !policy.AllowedMarketTypes[marketType] {
		return false
	}
	if policy.RegularTimeOnly {
		if period := params["Period"]; period != "" && period != "RegularTime" {
			return false
		}
	}
	switch marketType {
	case "3way", "Handicap", "2wayHandicap", "DoubleChance", "DrawNoBet", "BTTS":
		if happening := params["Happening"]; happening != "" && happening != "Goal" {
			return false
		}
	}
	if marketType == "3way" && params["RangeValue"] != "" {
		return false
	}
	return true
}

// marketParams flattens a market's parameters into a string map. Both
// encodings seen in the wild are accepted: a list of {key, value} pairs
// and a plain object under "params".
func marketParams(market map[string]any) map[string]string {
	params := make(map[string]string)
	for _, item := range asSlice(market["parameters"]) {
		pair := asMap(item)
		if key := stringify(pair["key"]); key != "" {
			params[key] = stringify(pair["value"])
		}
	}
	for key, value := range asMap(market["params"]) {
		params[key] = stringify(value)
	}
	return params
}

// hasBoost detects a price-boost signal anywhere inside the market's
// options: any key mentioning "boost" with a non-empty value.
func hasBoost(market map[string]any, policy Policy) bool {
	return WalkPayload(market["options"], policy.walkDepth(), func(key string, value any) bool {
		if !strings.Contains(strings.ToLower(key), "boost") {
			return false
		}
		switch v := value.(type) {
		case nil:
			return false
		case bool:
			return v
		case string:
			return v != ""
		case float64:
			return v != 0
		default:
			return true
		}
	})
}

func slimMarket(market map[string]any) map[string]any {
	var options []any
	for _, item := range asSlice(market["options"]) {
		option := asMap(item)
		if option == nil {
			continue
		}
		slim := map[string]any{
			"id":     option["id"],
			"name":   unwrapName(option["name"]),
			"status": option["status"],
			"code":   option["code"],
			"price":  option["price"],
		}
		if boosted, present := option["boostedPrice"]; present {
			slim["boostedPrice"] = boosted
		}
		options = append(options, slim)
	}

	slim := map[string]any{
		"id":      market["id"],
		"name":    unwrapName(market["name"]),
		"status":  market["status"],
		"options": options,
	}
	if params := marketParams(market); len(params) > 0 {
		slim["parameters"] = params
	}
	return slim
}

// reduceOddsEvent handles the flat odds-list payload shape: the
// duplicated markets block is dropped and each odd is slimmed to its
// identifying and price fields.
func reduceOddsEvent(raw map[string]any, odds []any, policy Policy) map[string]any {
	slim := make(map[string]any, len(raw))
	for key, value := range raw {
		if key == "markets" || key == "odds" {
			continue
		}
		slim[key] = value
	}

	kept := slimOdds(odds, policy, false)
	if len(kept) == 0 && len(odds) > 0 {
		kept = slimOdds(odds, policy, true)
	}
	slim["odds"] = kept
	return slim
}

func slimOdds(odds []any, policy Policy, keepAll bool) []any {
	kept := make([]any, 0, len(odds))
	for _, item := range odds {
		odd := asMap(item)
		if odd == nil {
			continue
		}
		if !keepAll && !policy.AllowedMarketIDs[asInt64(odd["marketId"])] {
			continue
		}
		slim := map[string]any{
			"marketId":   odd["marketId"],
			"marketName": odd["marketName"],
			"outcomeId":  odd["outcomeId"],
			"name":       odd["name"],
			"code":       odd["code"],
			"price":      odd["price"],
			"status":     odd["status"],
		}
		// offerStateId and marketGroupOrder drive ordering/state downstream.
		if v, present := odd["offerStateId"]; present {
			slim["offerStateId"] = v
		}
		if v, present := odd["marketGroupOrder"]; present {
			slim["marketGroupOrder"] = v
		}
		kept = append(kept, slim)
	}
	return kept
}
