// Package superbet collects football events from the public offer API:
// a day-by-day listing scan followed by a per-event detail call that
// returns the full odds list.
package superbet

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/superodds/oddscollector/internal/pkg/config"
	"github.com/superodds/oddscollector/internal/pkg/models"
	"github.com/superodds/oddscollector/internal/pkg/pipeline"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

// defaultMarketIDs is the standing keep-set for the Brazilian offer:
// result, both-teams-score, double chance, draw-no-bet, handicaps and
// the common combo markets.
var defaultMarketIDs = []int64{547, 539, 531, 555, 546, 530, 532, 542, 557}

type Provider struct {
	cfg  config.SuperbetConfig
	http *http.Client
}

var _ pipeline.Provider = (*Provider)(nil)

func New(cfg config.SuperbetConfig) *Provider {
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

func (p *Provider) Name() string { return "superbet" }

func (p *Provider) marketIDs() []int64 {
	if len(p.cfg.IncludeMarkets) > 0 {
		return p.cfg.IncludeMarkets
	}
	return defaultMarketIDs
}

func (p *Provider) days() int {
	if p.cfg.Days > 0 {
		return p.cfg.Days
	}
	return 3
}

// ListCandidates scans the by-date endpoint one day at a time. A failed
// day is logged and skipped; the scan fails only when every day fails.
func (p *Provider) ListCandidates(ctx context.Context, _ pipeline.ListingFilter) ([]models.CandidateListing, error) {
	var listings []models.CandidateListing
	failedDays := 0
	today := time.Now().UTC().Truncate(24 * time.Hour)

	for day := 0; day < p.days(); day++ {
		date := today.Add(time.Duration(day) * 24 * time.Hour)
		events, err := p.fetchDay(ctx, date)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failedDays++
			slog.Warn("Failed to list events for day", "provider", p.Name(), "date", date.Format("2006-01-02"), "error", err)
			continue
		}
		listings = append(listings, events...)
	}

	if failedDays == p.days() {
		return nil, fmt.Errorf("failed to list events for all %d days", p.days())
	}
	return listings, nil
}

func (p *Provider) fetchDay(ctx context.Context, date time.Time) ([]models.CandidateListing, error) {
	query := url.Values{}
	query.Set("offerState", "prematch")
	query.Set("startDate", date.Format("2006-01-02")+" 00:00:00")
	query.Set("endDate", date.Format("2006-01-02")+" 23:59:59")

	payload, err := p.getJSON(ctx, "/v2/pt-BR/events/by-date", query)
	if err != nil {
		return nil, err
	}

	data, _ := payload["data"].([]any)
	listings := make([]models.CandidateListing, 0, len(data))
	for _, item := range data {
		event, ok := item.(map[string]any)
		if !ok {
			continue
		}
		listings = append(listings, models.CandidateListing{
			NativeID:  eventID(event),
			StartTime: pipeline.ParseEventTime(stringField(event, "matchDate")),
			Fields:    event,
		})
	}
	return listings, nil
}

// FetchDetail loads one event with its markets included. The API wraps
// the event in a single-element data list; an empty list means the
// event is gone.
func (p *Provider) FetchDetail(ctx context.Context, id string) (map[string]any, error) {
	ids := make([]string, 0, len(p.marketIDs()))
	for _, marketID := range p.marketIDs() {
		ids = append(ids, strconv.FormatInt(marketID, 10))
	}
	query := url.Values{}
	query.Set("includeMarkets", strings.Join(ids, ","))

	payload, err := p.getJSON(ctx, "/v2/pt-BR/events/"+id, query)
	if err != nil {
		return nil, err
	}

	data, _ := payload["data"].([]any)
	if len(data) == 0 {
		return nil, pipeline.ErrEmptyDetail
	}
	event, ok := data[0].(map[string]any)
	if !ok {
		return nil, pipeline.ErrEmptyDetail
	}
	return event, nil
}

func (p *Provider) ReducePolicy() pipeline.Policy {
	allowed := make(map[int64]bool, len(p.marketIDs()))
	for _, marketID := range p.marketIDs() {
		allowed[marketID] = true
	}
	return pipeline.Policy{
		SportLabel:       "futebol",
		AllowedMarketIDs: allowed,
	}
}

func (p *Provider) getJSON(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = query.Encode()

	userAgent := p.cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body := resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		body = gzReader
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return payload, nil
}

func eventID(event map[string]any) string {
	for _, key := range []string{"eventId", "offerId", "id"} {
		switch value := event[key].(type) {
		case float64:
			return strconv.FormatInt(int64(value), 10)
		case string:
			if value != "" {
				return value
			}
		}
	}
	return ""
}

func stringField(event map[string]any, key string) string {
	s, _ := event[key].(string)
	return s
}
