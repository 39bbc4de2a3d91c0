package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
	"NewsCurator/internal/textutil"
)

// DefaultMaxChars is LinkedIn's commentary ceiling.
const DefaultMaxChars = 3000

const defaultShareTitle = "AI News Article"

var expiredTokenPattern = regexp.MustCompile(`(?i)EXPIRED_ACCESS_TOKEN|REVOKED_ACCESS_TOKEN|token[^"]{0,60}expired|"serviceErrorCode"\s*:\s*65601`)

// Gateway publishes a selected post and records it in history.
type Gateway struct {
	client     ports.ShareClient
	thumbnails ports.ThumbnailFinder
	history    *HistoryStore
	maxChars   int
	metrics    ports.Metrics
	logger     *slog.Logger
}

// NewGateway wires the share client. thumbnails may be nil.
func NewGateway(client ports.ShareClient, thumbnails ports.ThumbnailFinder, history *HistoryStore, maxChars int, metrics ports.Metrics, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Gateway{
		client:     client,
		thumbnails: thumbnails,
		history:    history,
		maxChars:   maxChars,
		metrics:    metrics,
		logger:     logger,
	}
}

// Publish shares post and classifies the answer. The error is non-nil only
// when a successful publish could not be written to history; the result
// is still returned in that case.
func (g *Gateway) Publish(ctx context.Context, post domain.Post, title string) (domain.PublishResult, error) {
	if title == "" {
		title = post.Title
	}
	if title == "" {
		title = defaultShareTitle
	}

	req := ports.ShareRequest{
		Text:         textutil.Truncate(post.Content, g.maxChars),
		ArticleURL:   post.SourceURL,
		ArticleTitle: title,
	}
	if g.thumbnails != nil && post.SourceURL != "" {
		if thumb, ok := g.thumbnails.FindThumbnail(ctx, post.SourceURL); ok {
			req.ThumbnailURL = thumb
		}
	}

	resp, err := g.client.Share(ctx, req)
	var result domain.PublishResult
	if err != nil {
		result = domain.PublishResult{Status: domain.PublishStatusFailed, Detail: err.Error()}
	} else {
		result = ClassifyShareResponse(resp.StatusCode, resp.Body)
	}
	g.metrics.PublishOutcome(result.Status)
	g.logger.Info("publish finished", "url", post.SourceURL, "status", result.Status, "http_status", result.HTTPStatus)

	if !result.OK {
		return result, nil
	}

	record := post
	record.Content = req.Text
	if _, err := g.history.Record(ctx, record, title, PlatformLinkedIn); err != nil {
		return result, err
	}
	return result, nil
}

// ClassifyShareResponse maps a raw LinkedIn answer to a publish result.
func ClassifyShareResponse(status int, body string) domain.PublishResult {
	switch {
	case status >= 200 && status <= 299:
		return domain.PublishResult{OK: true, Status: domain.PublishStatusPublished, Detail: strings.TrimSpace(body), HTTPStatus: status}
	case status == http.StatusUnauthorized || expiredTokenPattern.MatchString(body):
		return domain.PublishResult{
			Status:     domain.PublishStatusCredentialsExpired,
			Detail:     "LinkedIn access token expired or revoked",
			HTTPStatus: status,
		}
	default:
		return domain.PublishResult{
			Status:     domain.PublishStatusFailed,
			Detail:     fmt.Sprintf("status %d: %s", status, strings.TrimSpace(body)),
			HTTPStatus: status,
		}
	}
}
