package rssfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NewsCurator/internal/logging"
	"NewsCurator/internal/search"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Tech</title>
  <link>https://www.heise.de</link>
  <item>
    <title>Künstliche Intelligenz im Mittelstand</title>
    <link>https://www.heise.de/news/ki-mittelstand</link>
    <description>Unternehmen setzen auf KI</description>
    <pubDate>Mon, 03 Mar 2025 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Der KI-Newsletter der Woche</title>
    <link>https://www.heise.de/news/newsletter</link>
    <description>Künstliche Intelligenz kompakt</description>
    <pubDate>Mon, 03 Mar 2025 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Künstliche Intelligenz vor einem Jahr</title>
    <link>https://www.heise.de/news/alt</link>
    <description>Archiv</description>
    <pubDate>Fri, 01 Mar 2024 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Fahrräder im Test</title>
    <link>https://www.heise.de/news/rad</link>
    <description>Kein Thema</description>
    <pubDate>Mon, 03 Mar 2025 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Künstliche Intelligenz anderswo</title>
    <link>https://example.com/ki</link>
    <description>Fremde Domain</description>
    <pubDate>Mon, 03 Mar 2025 10:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func TestParseQuery(t *testing.T) {
	t.Parallel()

	const (
		narrow   = `"Künstliche Intelligenz" AND (Unternehmen OR Mittelstand OR Digitalisierung) AND NOT "KI-Newsletter"`
		moderate = `("Künstliche Intelligenz" OR "generative KI") AND NOT "KI-Newsletter"`
		broad    = `(KI OR "Künstliche Intelligenz" OR "Machine Learning") AND NOT "KI-Newsletter"`
	)

	tests := []struct {
		name  string
		query string
		text  string
		want  bool
	}{
		{"narrow needs both groups", narrow, "Künstliche Intelligenz im Mittelstand", true},
		{"narrow rejects topic without phrase", narrow, "Unternehmen meldet Rekordgewinn", false},
		{"narrow rejects phrase without topic", narrow, "Künstliche Intelligenz schreibt Gedichte", false},
		{"narrow excludes newsletter", narrow, "Der KI-Newsletter: Künstliche Intelligenz für Unternehmen", false},
		{"moderate accepts either phrase", moderate, "Generative KI verändert Werbung", true},
		{"moderate rejects bare KI", moderate, "KI im Alltag", false},
		{"broad accepts bare KI", broad, "Neues zu KI", true},
		{"broad matches whole words only", broad, "Skifahren mit Kindern", false},
		{"broad phrase needs adjacent words", broad, "Machine shop learning center", false},
		{"broad excludes newsletter", broad, "Der KI-Newsletter der Woche", false},
		{"implicit and", `KI Mittelstand`, "KI im Mittelstand", true},
		{"implicit and needs both", `KI Mittelstand`, "KI im Handwerk", false},
		{"quoted operator is a term", `"OR"`, "either or", true},
		{"empty query matches anything", ``, "Fahrräder", true},
		{"unbalanced parentheses", `(KI OR Robotik`, "Robotik heute", true},
		{"stray closing parenthesis", `KI) Robotik`, "KI und Robotik", true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := parseQuery(tc.query).matches(tc.text); got != tc.want {
				t.Fatalf("parseQuery(%q).matches(%q) = %v, want %v", tc.query, tc.text, got, tc.want)
			}
		})
	}
}

func TestProviderSearch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	provider := NewProvider([]string{server.URL}, server.Client(), logging.Discard())
	articles, err := provider.Search(context.Background(), search.Request{
		Query:   `"Künstliche Intelligenz" AND NOT "KI-Newsletter"`,
		Domains: []string{"heise.de"},
		From:    time.Date(2025, time.February, 24, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}

	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d: %+v", len(articles), articles)
	}
	if articles[0].URL != "https://www.heise.de/news/ki-mittelstand" || articles[0].Domain != "heise.de" {
		t.Fatalf("unexpected article: %+v", articles[0])
	}
}

func TestProviderSearchAllFeedsFailing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewProvider([]string{server.URL}, server.Client(), logging.Discard())
	if _, err := provider.Search(context.Background(), search.Request{Query: "KI"}); err == nil {
		t.Fatalf("expected error when every feed fails")
	}
}
