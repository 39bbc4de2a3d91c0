package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
	"NewsCurator/internal/search"
	"NewsCurator/internal/textutil"
)

// Tier is one search query at a given priority.
type Tier struct {
	Name  string
	Query string
}

// CollectorConfig carries the query parameters shared by all tiers and the
// post-collection filters.
type CollectorConfig struct {
	Tiers        []Tier
	Language     string
	SortBy       string
	PageSize     int
	Domains      []string
	Blocklist    []string
	MaxPerDomain int
}

// Collector runs prioritized search tiers and filters the merged result.
type Collector struct {
	provider search.Provider
	cfg      CollectorConfig
	metrics  ports.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.ArticleSource = (*Collector)(nil)

// NewCollector wires a provider with its tier setup.
func NewCollector(provider search.Provider, cfg CollectorConfig, metrics ports.Metrics, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if cfg.MaxPerDomain <= 0 {
		cfg.MaxPerDomain = 1
	}
	return &Collector{provider: provider, cfg: cfg, metrics: metrics, logger: logger, now: time.Now}
}

// Fetch returns at most limit articles published within window. A failing
// tier contributes nothing; the only error is a cancelled ctx.
func (c *Collector) Fetch(ctx context.Context, window time.Duration, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		return []domain.Article{}, nil
	}

	from := c.now().Add(-window)
	var collected []domain.Article
	for _, tier := range c.cfg.Tiers {
		if len(collected) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results, err := c.provider.Search(ctx, search.Request{
			Query:    tier.Query,
			Language: c.cfg.Language,
			SortBy:   c.cfg.SortBy,
			PageSize: c.cfg.PageSize,
			Domains:  c.cfg.Domains,
			From:     from,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Warn("search tier failed", "tier", tier.Name, "provider", c.provider.Name(), "err", err)
			c.metrics.TierFailed(tier.Name)
			continue
		}
		c.logger.Debug("search tier done", "tier", tier.Name, "results", len(results))
		collected = append(collected, results...)
	}

	articles := c.filter(collected, limit)
	c.metrics.ArticlesCollected(len(articles))
	return articles, nil
}

func (c *Collector) filter(candidates []domain.Article, limit int) []domain.Article {
	perDomain := make(map[string]int)
	seen := make(map[string]struct{})
	out := make([]domain.Article, 0, limit)
	for _, article := range candidates {
		if len(out) >= limit {
			break
		}
		if blocked(article.Domain, c.cfg.Blocklist) {
			continue
		}
		if _, dup := seen[article.URL]; dup {
			continue
		}
		if perDomain[article.Domain] >= c.cfg.MaxPerDomain {
			continue
		}
		perDomain[article.Domain]++
		seen[article.URL] = struct{}{}

		article.Title = textutil.PlainText(article.Title)
		article.Description = textutil.PlainText(article.Description)
		out = append(out, article)
	}
	return out
}

// blocked matches host against the list, including parent domains.
func blocked(host string, blocklist []string) bool {
	for _, b := range blocklist {
		b = strings.ToLower(strings.TrimSpace(b))
		if b == "" {
			continue
		}
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}
