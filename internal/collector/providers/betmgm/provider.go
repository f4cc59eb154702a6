// Package betmgm collects football events through the site's GraphQL
// gateway (cursor-paginated league listing) and the Kambi offering API
// for per-event bet offers.
package betmgm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/superodds/oddscollector/internal/pkg/config"
	"github.com/superodds/oddscollector/internal/pkg/models"
	"github.com/superodds/oddscollector/internal/pkg/pipeline"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

	// Persisted query hash for AllLeaguesPaginatedQuery. Changes when the
	// site ships a new frontend build.
	allLeaguesQueryHash = "b858aece8798aeb4f1d93bfd29d95ac3dc0932f609a1710dd2d55bd5988eb954"

	maxPages = 50
)

type Provider struct {
	cfg  config.BetMGMConfig
	http *http.Client
}

var _ pipeline.Provider = (*Provider)(nil)

func New(cfg config.BetMGMConfig) *Provider {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Provider{
		cfg: cfg,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (p *Provider) Name() string { return "betmgm" }

func (p *Provider) pageSize() int {
	if p.cfg.PageSize > 0 {
		return p.cfg.PageSize
	}
	return 50
}

func (p *Provider) days() int {
	if p.cfg.Days > 0 {
		return p.cfg.Days
	}
	return 3
}

func (p *Provider) graphPayload(after string) map[string]any {
	return map[string]any{
		"operationName": "AllLeaguesPaginatedQuery",
		"variables": map[string]any{
			"after":    after,
			"filter":   map[string]any{"eventType": "MATCH", "sport": "football", "upcomingDays": p.days()},
			"first":    p.pageSize(),
			"grouping": []string{"COUNTRY_AZ", "LEAGUE_POPULARITY"},
			"lang":     "pt_BR",
			"market":   "BR",
			"offering": "betmgmbr",
			"popularEventsGroup": []map[string]any{
				{"country": "brazil", "league": "brasileirao_serie_a", "sport": "football"},
			},
			"skipAllLeaguesSportsQuery": false,
		},
		"extensions": map[string]any{
			"persistedQuery": map[string]any{
				"version":    1,
				"sha256Hash": allLeaguesQueryHash,
			},
		},
	}
}

// ListCandidates walks the sports events connection cursor by cursor and
// flattens the grouped league nodes into one listing per event.
func (p *Provider) ListCandidates(ctx context.Context, _ pipeline.ListingFilter) ([]models.CandidateListing, error) {
	var listings []models.CandidateListing
	after := "0"

	for page := 1; page <= maxPages; page++ {
		payload, err := p.postGraphQL(ctx, p.graphPayload(after))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}

		connection := dig(payload, "data", "viewer", "sports", "sportsEventsConnection")
		edges, _ := connection["edges"].([]any)
		slog.Debug("Fetched listing page", "provider", p.Name(), "page", page, "edges", len(edges))

		for _, item := range edges {
			edge, _ := item.(map[string]any)
			node, _ := edge["node"].(map[string]any)
			groups, _ := node["groups"].([]any)
			for _, groupItem := range groups {
				group, _ := groupItem.(map[string]any)
				events, _ := group["events"].([]any)
				for _, eventItem := range events {
					event, ok := eventItem.(map[string]any)
					if !ok {
						continue
					}
					listings = append(listings, eventListing(event))
				}
			}
		}

		pageInfo := dig(payload, "data", "viewer", "sports", "sportsEventsConnection", "pageInfo")
		hasNext, _ := pageInfo["hasNextPage"].(bool)
		endCursor := stringValue(pageInfo["endCursor"])
		if !hasNext || endCursor == "" {
			break
		}
		after = endCursor
	}
	return listings, nil
}

// FetchDetail loads the Kambi bet offer payload for one event.
func (p *Provider) FetchDetail(ctx context.Context, id string) (map[string]any, error) {
	detailURL := fmt.Sprintf(p.cfg.OfferingURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, detailURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	query := url.Values{}
	query.Set("channel_id", "1")
	query.Set("client_id", "200")
	query.Set("includeParticipants", "true")
	query.Set("lang", "pt_BR")
	query.Set("market", "BR")
	query.Set("range_size", "1")
	req.URL.RawQuery = query.Encode()
	p.setHeaders(req)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(payload) == 0 {
		return nil, pipeline.ErrEmptyDetail
	}
	return payload, nil
}

// The offering payload has no stable fixture or odds-list shape to
// prune, so everything the API returns is kept.
func (p *Provider) ReducePolicy() pipeline.Policy {
	return pipeline.Policy{SportLabel: "futebol"}
}

func (p *Provider) postGraphQL(ctx context.Context, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.GraphQLURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.setHeaders(req)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return decoded, nil
}

func (p *Provider) setHeaders(req *http.Request) {
	userAgent := p.cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
}

func eventListing(event map[string]any) models.CandidateListing {
	return models.CandidateListing{
		NativeID:  stringValue(event["id"]),
		StartTime: pipeline.ParseEventTime(stringValue(event["startDate"])),
		Fields:    event,
	}
}

// dig walks nested objects, returning an empty map whenever a level is
// missing so callers can chain lookups without nil checks.
func dig(payload map[string]any, keys ...string) map[string]any {
	current := payload
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			return map[string]any{}
		}
		current = next
	}
	return current
}

func stringValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return fmt.Sprintf("%.0f", value)
	default:
		return ""
	}
}
