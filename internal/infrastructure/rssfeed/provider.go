package rssfeed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/search"
)

// ProviderName is the config value selecting this provider.
const ProviderName = "rss"

// Provider searches a fixed list of RSS/Atom feeds.
type Provider struct {
	feeds  []string
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ search.Provider = (*Provider)(nil)

// NewProvider builds a feed-backed provider. httpClient may be nil.
func NewProvider(feeds []string, httpClient *http.Client, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = httpClient
	parser.UserAgent = "NewsCurator/1.0"
	return &Provider{feeds: feeds, parser: parser, logger: logger}
}

// Name identifies the provider inside the registry.
func (p *Provider) Name() string {
	return ProviderName
}

// Search reads every feed and keeps items matching the query, published at
// or after req.From and hosted on one of req.Domains (when given).
// It fails only when every feed failed.
func (p *Provider) Search(ctx context.Context, req search.Request) ([]domain.Article, error) {
	if len(p.feeds) == 0 {
		return nil, fmt.Errorf("rss provider has no feeds configured")
	}

	matcher := parseQuery(req.Query)
	var (
		articles []domain.Article
		failures int
		lastErr  error
	)

	for _, feedURL := range p.feeds {
		feed, err := p.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			lastErr = err
			p.logger.Warn("feed fetch failed", "feed", feedURL, "err", err)
			continue
		}

		for _, item := range feed.Items {
			if item == nil || item.Link == "" {
				continue
			}
			published := itemTime(item)
			if !req.From.IsZero() && !published.IsZero() && published.Before(req.From) {
				continue
			}
			article := domain.NewArticle(item.Title, item.Link, item.Description, published)
			if !domainAllowed(article.Domain, req.Domains) {
				continue
			}
			if !matcher.matches(item.Title + " " + item.Description) {
				continue
			}
			articles = append(articles, article)
			if req.PageSize > 0 && len(articles) >= req.PageSize {
				return articles, nil
			}
		}
	}

	if failures == len(p.feeds) {
		return nil, fmt.Errorf("all %d feeds failed: %w", failures, lastErr)
	}
	return articles, nil
}

func itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func domainAllowed(host string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, d := range allowed {
		d = strings.ToLower(strings.TrimSpace(d))
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
