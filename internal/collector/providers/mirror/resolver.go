// Package mirror resolves mirror/short links into the betting site's
// current origin. Brazilian bookmakers rotate domains frequently; a
// stable mirror link redirects to whichever origin is live, sometimes
// via plain HTTP redirects and sometimes via JavaScript only.
package mirror

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

// Resolver follows a mirror link to the live origin, caching results so
// repeated runs within one process skip the roundtrip.
type Resolver struct {
	timeout time.Duration

	mu    sync.Mutex
	cache map[string]string
}

func NewResolver(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{
		timeout: timeout,
		cache:   make(map[string]string),
	}
}

// Resolve returns the origin (scheme://host) behind mirrorURL. HTTP
// redirects are tried first; a headless browser handles mirrors that
// only redirect through JavaScript.
func (r *Resolver) Resolve(ctx context.Context, mirrorURL string) (string, error) {
	r.mu.Lock()
	if cached, exists := r.cache[mirrorURL]; exists {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	resolved, err := r.resolveHTTP(ctx, mirrorURL)
	if err != nil {
		slog.Warn("HTTP mirror resolution failed, trying headless browser", "mirror", mirrorURL, "error", err)
		resolved, err = r.resolveJS(ctx, mirrorURL)
	}
	if err != nil {
		return "", err
	}

	origin, err := originOf(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to parse resolved url %q: %w", resolved, err)
	}

	r.mu.Lock()
	r.cache[mirrorURL] = origin
	r.mu.Unlock()
	slog.Info("Resolved mirror", "mirror", mirrorURL, "origin", origin)
	return origin, nil
}

func (r *Resolver) resolveHTTP(ctx context.Context, mirrorURL string) (string, error) {
	client := &http.Client{Timeout: r.timeout}

	// HEAD first to avoid downloading the landing page.
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, mirrorURL, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", browserUserAgent)

		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to make request: %w", err)
		}

		finalURL := resp.Request.URL.String()
		if method == http.MethodGet && strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
			body, readErr := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
			resp.Body.Close()
			if readErr == nil && looksLikeJSRedirect(string(body)) {
				return r.resolveJS(ctx, mirrorURL)
			}
		} else {
			resp.Body.Close()
		}

		if finalURL != mirrorURL {
			return finalURL, nil
		}
	}
	return "", fmt.Errorf("mirror %s did not redirect", mirrorURL)
}

// resolveJS loads the mirror in a headless browser and reads the
// location after the page's scripts have run.
func (r *Resolver) resolveJS(ctx context.Context, mirrorURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(browserUserAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var finalURL string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(mirrorURL),
		chromedp.Sleep(2*time.Second),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return "", fmt.Errorf("failed to resolve mirror in browser: %w", err)
	}
	if finalURL == "" || finalURL == mirrorURL {
		return "", fmt.Errorf("mirror %s did not redirect in browser", mirrorURL)
	}
	return finalURL, nil
}

func looksLikeJSRedirect(body string) bool {
	return strings.Contains(body, "window.location") ||
		strings.Contains(body, "location.href") ||
		strings.Contains(body, "document.location")
}

func originOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("url %q has no origin", rawURL)
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}
