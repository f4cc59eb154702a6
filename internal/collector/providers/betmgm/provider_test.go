package betmgm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/superodds/oddscollector/internal/pkg/config"
	"github.com/superodds/oddscollector/internal/pkg/pipeline"
)

func page(events []any, hasNext bool, cursor string) map[string]any {
	pageInfo := map[string]any{"hasNextPage": hasNext}
	if cursor != "" {
		pageInfo["endCursor"] = cursor
	}
	return map[string]any{
		"data": map[string]any{
			"viewer": map[string]any{
				"sports": map[string]any{
					"sportsEventsConnection": map[string]any{
						"edges": []any{
							map[string]any{"node": map[string]any{
								"groups": []any{map[string]any{"events": events}},
							}},
						},
						"pageInfo": pageInfo,
					},
				},
			},
		},
	}
}

func TestListCandidatesFollowsCursor(t *testing.T) {
	var cursors []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		variables, _ := body["variables"].(map[string]any)
		after, _ := variables["after"].(string)
		cursors = append(cursors, after)

		switch after {
		case "0":
			json.NewEncoder(w).Encode(page([]any{
				map[string]any{"id": "ev-1", "startDate": "2026-09-12T19:30:00Z"},
				map[string]any{"id": "ev-2"},
			}, true, "c1"))
		default:
			json.NewEncoder(w).Encode(page([]any{
				map[string]any{"id": "ev-3"},
			}, false, ""))
		}
	}))
	defer server.Close()

	provider := New(config.BetMGMConfig{GraphQLURL: server.URL})
	listings, err := provider.ListCandidates(context.Background(), pipeline.ListingFilter{})
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}

	if len(listings) != 3 {
		t.Fatalf("listed %d events, want 3 across both pages", len(listings))
	}
	if len(cursors) != 2 || cursors[0] != "0" || cursors[1] != "c1" {
		t.Errorf("cursors = %v, want [0 c1]", cursors)
	}
	if listings[0].NativeID != "ev-1" || listings[0].StartTime.IsZero() {
		t.Errorf("first listing = %+v", listings[0])
	}
}

func TestListCandidatesStopsOnMissingCursor(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		json.NewEncoder(w).Encode(page([]any{map[string]any{"id": "ev-1"}}, true, ""))
	}))
	defer server.Close()

	provider := New(config.BetMGMConfig{GraphQLURL: server.URL})
	if _, err := provider.ListCandidates(context.Background(), pipeline.ListingFilter{}); err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if calls != 1 {
		t.Errorf("made %d requests, want 1 when hasNextPage has no cursor", calls)
	}
}

func TestFetchDetailFormatsOfferingURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/offering/v2018/betmgmbr/betoffer/event/1012345.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("includeParticipants") != "true" {
			t.Error("includeParticipants query parameter missing")
		}
		json.NewEncoder(w).Encode(map[string]any{"betOffers": []any{}, "events": []any{}})
	}))
	defer server.Close()

	provider := New(config.BetMGMConfig{
		OfferingURL: server.URL + "/offering/v2018/betmgmbr/betoffer/event/%s.json",
	})
	detail, err := provider.FetchDetail(context.Background(), "1012345")
	if err != nil {
		t.Fatalf("FetchDetail: %v", err)
	}
	if _, present := detail["betOffers"]; !present {
		t.Errorf("detail = %v", detail)
	}
}
