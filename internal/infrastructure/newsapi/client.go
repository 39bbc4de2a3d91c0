package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/search"
)

// ProviderName is the config value selecting this provider.
const ProviderName = "newsapi"

// Client implements search.Provider against NewsAPI's /v2/everything.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ search.Provider = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{endpoint: endpoint, apiKey: apiKey, http: httpClient}
}

// Name identifies the provider inside the registry.
func (c *Client) Name() string {
	return ProviderName
}

type everythingResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Search runs one query and returns articles in provider relevance order.
func (c *Client) Search(ctx context.Context, req search.Request) ([]domain.Article, error) {
	reqURL, err := buildQueryURL(c.endpoint, req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("User-Agent", "NewsCurator/1.0")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var payload everythingResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response (%s): %w", resp.Status, err)
	}

	if resp.StatusCode != http.StatusOK || payload.Status != "ok" {
		return nil, fmt.Errorf("newsapi error %s: %s %s", resp.Status, payload.Code, strings.TrimSpace(payload.Message))
	}

	articles := make([]domain.Article, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		if item.URL == "" {
			continue
		}
		publishedAt, _ := time.Parse(time.RFC3339, item.PublishedAt)
		articles = append(articles, domain.NewArticle(item.Title, item.URL, item.Description, publishedAt))
	}
	return articles, nil
}

func buildQueryURL(endpoint string, req search.Request) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid newsapi endpoint %s: %w", endpoint, err)
	}

	query := parsed.Query()
	query.Set("q", req.Query)
	if req.Language != "" {
		query.Set("language", req.Language)
	}
	if req.SortBy != "" {
		query.Set("sortBy", req.SortBy)
	}
	if req.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(req.PageSize))
	}
	if len(req.Domains) > 0 {
		query.Set("domains", strings.Join(req.Domains, ","))
	}
	if !req.From.IsZero() {
		query.Set("from", req.From.UTC().Format("2006-01-02T15:04:05"))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
