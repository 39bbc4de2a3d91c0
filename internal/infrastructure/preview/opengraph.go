package preview

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/doyensec/safeurl"

	"NewsCurator/internal/ports"
)

const maxPageBytes = 2 << 20

// imageSelectors are tried in order; the first non-empty content wins.
var imageSelectors = []string{
	`meta[property="og:image"]`,
	`meta[property="og:image:url"]`,
	`meta[name="twitter:image"]`,
	`meta[property="twitter:image"]`,
}

// OpenGraphFinder extracts a preview image URL from an article page.
type OpenGraphFinder struct {
	client *http.Client
	logger *slog.Logger
}

var _ ports.ThumbnailFinder = (*OpenGraphFinder)(nil)

// NewOpenGraphFinder uses an SSRF-guarded client that only reaches public
// http(s) hosts on ports 80 and 443.
func NewOpenGraphFinder(timeout time.Duration, logger *slog.Logger) *OpenGraphFinder {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return NewOpenGraphFinderWithClient(safeurl.Client(config).Client, logger)
}

// NewOpenGraphFinderWithClient lets callers supply their own HTTP client.
func NewOpenGraphFinderWithClient(client *http.Client, logger *slog.Logger) *OpenGraphFinder {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenGraphFinder{client: client, logger: logger}
}

// FindThumbnail returns an absolute image URL, or ok=false on any failure.
func (f *OpenGraphFinder) FindThumbnail(ctx context.Context, pageURL string) (string, bool) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; NewsCurator/1.0)")
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("thumbnail fetch failed", "url", pageURL, "err", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Debug("thumbnail fetch status", "url", pageURL, "status", resp.StatusCode)
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", false
	}

	for _, selector := range imageSelectors {
		content, ok := doc.Find(selector).First().Attr("content")
		if !ok || strings.TrimSpace(content) == "" {
			continue
		}
		if resolved, ok := resolveImage(base, content); ok {
			return resolved, true
		}
	}
	return "", false
}

func resolveImage(base *url.URL, raw string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}
