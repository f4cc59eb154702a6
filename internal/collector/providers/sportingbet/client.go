package sportingbet

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/superodds/oddscollector/internal/pkg/config"
)

const (
	countsEndpoint  = "/cds-api/bettingoffer/counts"
	widgetEndpoint  = "/pt-br/sports/api/widget/widgetdata"
	fixtureEndpoint = "/cds-api/bettingoffer/fixture-view"
	sportPath       = "/pt-br/sports/futebol-4"

	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"
)

// Client talks to the CDS betting-offer API and the sports widget API
// behind one origin. Both gzip their responses.
type Client struct {
	http    *http.Client
	cfg     config.SportingbetConfig
	baseURL string
}

func NewClient(cfg config.SportingbetConfig, baseURL string) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		cfg:     cfg,
		baseURL: baseURL,
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = query.Encode()

	userAgent := c.cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Referer", c.baseURL+sportPath)
	req.Header.Set("x-bwin-browser-url", c.baseURL+sportPath)
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body := resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		body = gzReader
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) commonQuery() url.Values {
	query := url.Values{}
	query.Set("x-bwin-accessid", c.cfg.AccessID)
	query.Set("lang", "pt-br")
	query.Set("country", "BR")
	query.Set("userCountry", "BR")
	return query
}
