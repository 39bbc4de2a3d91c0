package domain

import (
	"net/url"
	"strings"
	"time"
)

// Article is a news item returned by a search provider.
type Article struct {
	Title       string
	URL         string
	Description string
	PublishedAt time.Time
	Domain      string
}

// NewArticle fills Domain from the article URL.
func NewArticle(title, rawURL, description string, publishedAt time.Time) Article {
	return Article{
		Title:       title,
		URL:         rawURL,
		Description: description,
		PublishedAt: publishedAt,
		Domain:      DomainOf(rawURL),
	}
}

// DomainOf returns the lower-cased host of rawURL without a leading "www.".
// Unparseable input yields an empty string.
func DomainOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}
