// Package sportingbet collects football events from the CDS betting
// offer API: a counts scan discovers competitions, widget payloads list
// their fixtures and a fixture-view call enriches each one.
package sportingbet

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"

	"github.com/superodds/oddscollector/internal/collector/providers/mirror"
	"github.com/superodds/oddscollector/internal/pkg/config"
	"github.com/superodds/oddscollector/internal/pkg/models"
	"github.com/superodds/oddscollector/internal/pkg/pipeline"
)

const defaultSportID = 4 // futebol

type Provider struct {
	cfg      config.SportingbetConfig
	resolver *mirror.Resolver

	mu     sync.Mutex
	client *Client
}

var _ pipeline.Provider = (*Provider)(nil)

func New(cfg config.SportingbetConfig, resolver *mirror.Resolver) *Provider {
	return &Provider{cfg: cfg, resolver: resolver}
}

func (p *Provider) Name() string { return "sportingbet" }

func (p *Provider) sportID() int64 {
	if p.cfg.SportID > 0 {
		return p.cfg.SportID
	}
	return defaultSportID
}

// ensureClient resolves the live origin on first use. With no mirror
// configured the static base URL is used directly.
func (p *Provider) ensureClient(ctx context.Context) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	baseURL := p.cfg.BaseURL
	if p.cfg.MirrorURL != "" && p.resolver != nil {
		resolved, err := p.resolver.Resolve(ctx, p.cfg.MirrorURL)
		if err != nil {
			if baseURL == "" {
				return nil, fmt.Errorf("failed to resolve mirror: %w", err)
			}
			slog.Warn("Mirror resolution failed, using configured base url", "provider", p.Name(), "error", err)
		} else {
			baseURL = resolved
		}
	}
	if baseURL == "" {
		return nil, fmt.Errorf("no base url configured")
	}

	p.client = NewClient(p.cfg, baseURL)
	return p.client, nil
}

func (p *Provider) ListCandidates(ctx context.Context, _ pipeline.ListingFilter) ([]models.CandidateListing, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	competitions, err := p.fetchCompetitions(ctx, client)
	if err != nil {
		return nil, err
	}
	slog.Info("Discovered competitions", "provider", p.Name(), "count", len(competitions))

	var listings []models.CandidateListing
	for _, competition := range competitions {
		fixtures, err := p.fetchCompetitionFixtures(ctx, client, competition)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("Failed to list competition fixtures",
				"provider", p.Name(), "competition_id", competition.ID, "competition", competition.Name, "error", err)
			continue
		}
		listings = append(listings, fixtures...)
	}
	return listings, nil
}

func (p *Provider) fetchCompetitions(ctx context.Context, client *Client) ([]competition, error) {
	query := client.commonQuery()
	query.Set("state", "Latest")
	query.Set("tagTypes", "Sport,Region,Tournament,Competition,VirtualCompetition,VirtualCompetitionGroup")
	query.Set("extendedTags", "Sport,Region,Tournament,Competition,VirtualCompetition,VirtualCompetitionGroup")
	query.Set("sportIds", strconv.FormatInt(p.sportID(), 10))
	query.Set("sortBy", "Tags")
	query.Set("participantMapping", "All")
	query.Set("includeDynamicCategories", "false")

	var counts []map[string]any
	if err := client.getJSON(ctx, countsEndpoint, query, &counts); err != nil {
		return nil, fmt.Errorf("failed to fetch betting offer counts: %w", err)
	}
	return parseCompetitions(counts), nil
}

func (p *Provider) fetchCompetitionFixtures(ctx context.Context, client *Client, comp competition) ([]models.CandidateListing, error) {
	query := url.Values{}
	query.Set("layoutSize", "Large")
	query.Set("page", "CompetitionLobby")
	query.Set("sportId", strconv.FormatInt(p.sportID(), 10))
	query.Set("regionId", strconv.FormatInt(comp.RegionID, 10))
	query.Set("competitionId", strconv.FormatInt(comp.ID, 10))
	query.Set("compoundCompetitionId", comp.CompoundID)
	query.Set("widgetId", "/mobilesports-v1.0/layout/layout_standards/modules/competition/defaultcontainer")
	query.Set("shouldIncludePayload", "true")

	var payload map[string]any
	if err := client.getJSON(ctx, widgetEndpoint, query, &payload); err != nil {
		return nil, err
	}

	fixtures := collectFixtures(payload)
	listings := make([]models.CandidateListing, 0, len(fixtures))
	for _, fixture := range fixtures {
		listings = append(listings, fixtureListing(fixture, comp))
	}
	return listings, nil
}

// FetchDetail loads the full fixture view for one event. A 200 response
// without a fixture block means the event vanished between listing and
// enrichment.
func (p *Provider) FetchDetail(ctx context.Context, id string) (map[string]any, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	query := client.commonQuery()
	query.Set("offerMapping", "All")
	query.Set("scoreboardMode", "Full")
	query.Set("fixtureIds", id)
	query.Set("state", "Latest")
	query.Set("includePrecreatedBetBuilder", "true")
	query.Set("supportVirtual", "true")
	query.Set("isBettingInsightsEnabled", "false")
	query.Set("useRegionalisedConfiguration", "true")
	query.Set("includeRelatedFixtures", "false")
	query.Set("statisticsModes", "None")

	var payload map[string]any
	if err := client.getJSON(ctx, fixtureEndpoint, query, &payload); err != nil {
		return nil, err
	}
	if payload["fixture"] == nil {
		return nil, pipeline.ErrEmptyDetail
	}
	return payload, nil
}

func (p *Provider) ReducePolicy() pipeline.Policy {
	return pipeline.Policy{
		SportLabel: "futebol",
		SportID:    p.sportID(),
		AllowedMarketTypes: map[string]bool{
			"3way":                     true,
			"BTTS":                     true,
			"DoubleChance":             true,
			"DrawNoBet":                true,
			"Handicap":                 true,
			"2wayHandicap":             true,
			"ThreeWayAndBTTS":          true,
			"ToWinAndBTTS":             true,
			"ThreeWayAndOverUnder":     true,
			"DoubleChanceAndOverUnder": true,
		},
		PromoSubtypes: map[string]bool{
			"Build a Bet - Price Boost": true,
			"BigOdd":                    true,
			"2Up3wayPricing":            true,
		},
		TeamParticipantTypes: map[string]bool{
			"HomeTeam":   true,
			"AwayTeam":   true,
			"Team":       true,
			"Competitor": true,
		},
		RegularTimeOnly:     true,
		ExpectedFixtureType: "PairGame",
	}
}
