package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"NewsCurator/internal/config"
	"NewsCurator/internal/ports"
)

const maxResponseBytes = 64 << 10

// Client creates UGC posts on behalf of one member.
type Client struct {
	endpoint    string
	accessToken string
	memberID    string
	http        *http.Client
}

var _ ports.ShareClient = (*Client)(nil)

// NewClient builds a share client from configuration.
func NewClient(cfg config.LinkedInConfig) *Client {
	return &Client{
		endpoint:    cfg.Endpoint,
		accessToken: cfg.AccessToken,
		memberID:    cfg.MemberID,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

type text struct {
	Text string `json:"text"`
}

type thumbnail struct {
	URL string `json:"url"`
}

type media struct {
	Status      string      `json:"status"`
	OriginalURL string      `json:"originalUrl"`
	Title       *text       `json:"title,omitempty"`
	Description *text       `json:"description,omitempty"`
	Thumbnails  []thumbnail `json:"thumbnails,omitempty"`
}

type shareContent struct {
	ShareCommentary    text    `json:"shareCommentary"`
	ShareMediaCategory string  `json:"shareMediaCategory"`
	Media              []media `json:"media,omitempty"`
}

type ugcPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

const mediaDescription = "AI News Update"

func buildPost(memberID string, req ports.ShareRequest) ugcPost {
	content := shareContent{
		ShareCommentary:    text{Text: req.Text},
		ShareMediaCategory: "NONE",
	}
	if req.ArticleURL != "" {
		m := media{
			Status:      "READY",
			OriginalURL: req.ArticleURL,
			Description: &text{Text: mediaDescription},
		}
		if req.ArticleTitle != "" {
			m.Title = &text{Text: req.ArticleTitle}
		}
		if req.ThumbnailURL != "" {
			m.Thumbnails = []thumbnail{{URL: req.ThumbnailURL}}
		}
		content.ShareMediaCategory = "ARTICLE"
		content.Media = []media{m}
	}

	return ugcPost{
		Author:          "urn:li:person:" + memberID,
		LifecycleState:  "PUBLISHED",
		SpecificContent: map[string]shareContent{"com.linkedin.ugc.ShareContent": content},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
}

// Share posts the request and returns the raw status and body. Non-2xx
// answers are not errors here; the caller classifies them.
func (c *Client) Share(ctx context.Context, req ports.ShareRequest) (ports.ShareResponse, error) {
	if c.accessToken == "" || c.memberID == "" || c.endpoint == "" {
		return ports.ShareResponse{}, fmt.Errorf("linkedin client misconfigured")
	}

	body, err := json.Marshal(buildPost(c.memberID, req))
	if err != nil {
		return ports.ShareResponse{}, fmt.Errorf("marshal linkedin payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return ports.ShareResponse{}, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ports.ShareResponse{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ports.ShareResponse{StatusCode: resp.StatusCode}, fmt.Errorf("read response: %w", err)
	}

	return ports.ShareResponse{StatusCode: resp.StatusCode, Body: string(payload)}, nil
}
