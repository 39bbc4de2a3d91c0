package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
	"NewsCurator/internal/textutil"
)

// Selection attempt outcomes reported to metrics.
const (
	OutcomeSelected   = "selected"
	OutcomeOutOfRange = "out_of_range"
	OutcomeNotANumber = "not_a_number"
	OutcomeNoSession  = "no_session"
	OutcomeTimeout    = "timeout"
)

// Escaped budgets that keep every chat message under Telegram's 4096 runes.
const (
	maxMessageContent = 3500
	maxMessageTitle   = 300
	maxFailureDetail  = 300
)

const (
	defaultWindow           = 7 * 24 * time.Hour
	defaultSelectionTimeout = 12 * time.Hour
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Collector ports.ArticleSource
	Generator *Generator
	History   *HistoryStore
	Sessions  *Sessions
	Gateway   *Gateway
	Chat      ports.ChatChannel
	Artifacts ports.ArtifactSink
	Metrics   ports.Metrics
	Logger    *slog.Logger
	Location  *time.Location

	Window           time.Duration
	Limit            int
	HistoryContext   int
	SelectionTimeout time.Duration
}

// Pipeline implements the curation-to-publish workflow.
type Pipeline struct {
	collector ports.ArticleSource
	generator *Generator
	history   *HistoryStore
	sessions  *Sessions
	gateway   *Gateway
	chat      ports.ChatChannel
	artifacts ports.ArtifactSink
	metrics   ports.Metrics
	logger    *slog.Logger
	location  *time.Location

	window           time.Duration
	limit            int
	historyContext   int
	selectionTimeout time.Duration
	now              func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		collector:        deps.Collector,
		generator:        deps.Generator,
		history:          deps.History,
		sessions:         deps.Sessions,
		gateway:          deps.Gateway,
		chat:             deps.Chat,
		artifacts:        deps.Artifacts,
		metrics:          deps.Metrics,
		logger:           deps.Logger,
		location:         deps.Location,
		window:           deps.Window,
		limit:            deps.Limit,
		historyContext:   deps.HistoryContext,
		selectionTimeout: deps.SelectionTimeout,
		now:              time.Now,
	}
	if p.metrics == nil {
		p.metrics = nopMetrics{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.location == nil {
		p.location = time.UTC
	}
	if p.window <= 0 {
		p.window = defaultWindow
	}
	if p.selectionTimeout <= 0 {
		p.selectionTimeout = defaultSelectionTimeout
	}
	if p.sessions == nil {
		p.sessions = NewSessions(p.selectionTimeout)
	}
	return p
}

// Run executes one collect, generate, offer, select, publish cycle.
// Returning nil covers "nothing to offer" and "operator did not answer".
func (p *Pipeline) Run(ctx context.Context) error {
	articles, err := p.collector.Fetch(ctx, p.window, p.limit)
	if err != nil {
		return fmt.Errorf("collect articles: %w", err)
	}
	if len(articles) == 0 {
		p.logger.Info("no articles collected, ending run")
		return nil
	}

	recent, err := p.history.Recent(ctx, p.historyContext)
	if err != nil {
		return err
	}

	posts, err := p.generate(ctx, articles, recent)
	if err != nil {
		p.notify(ctx, "⚠️ Post generation failed, this run was aborted.")
		return err
	}
	if len(posts) == 0 {
		p.logger.Info("all candidates already published, ending run")
		return nil
	}

	if p.artifacts != nil {
		if err := p.artifacts.SaveOffered(ctx, posts); err != nil {
			p.logger.Warn("save offered posts", "err", err)
		}
	}

	offeredAt := p.now()
	handle := p.sessions.Offer(posts)
	if err := p.sendOffer(ctx, handle, posts); err != nil {
		return err
	}

	post, ok, err := p.awaitSelection(ctx, handle, offeredAt, len(posts))
	if err != nil || !ok {
		return err
	}

	if p.artifacts != nil {
		if err := p.artifacts.SaveSelected(ctx, post); err != nil {
			p.logger.Warn("save selected post", "err", err)
		}
	}
	p.notify(ctx, formatAcknowledgement(post))

	result, err := p.gateway.Publish(ctx, post, post.Title)
	p.notify(ctx, formatOutcome(result))
	if err != nil {
		return fmt.Errorf("record published post: %w", err)
	}
	return nil
}

// generate skips already-published URLs before spending model calls.
func (p *Pipeline) generate(ctx context.Context, articles []domain.Article, recent []string) ([]domain.Post, error) {
	posts := make([]domain.Post, 0, len(articles))
	for _, article := range articles {
		seen, err := p.history.Exists(ctx, article.URL)
		if err != nil {
			return nil, err
		}
		if seen {
			p.metrics.DuplicateFiltered()
			p.logger.Debug("skipping published article", "url", article.URL)
			continue
		}

		post, err := p.generator.Generate(ctx, article, recent)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (p *Pipeline) sendOffer(ctx context.Context, handle Handle, posts []domain.Post) error {
	deadline, _ := p.sessions.ExpiresAt(handle)
	header := fmt.Sprintf("🗞 <b>%d new post drafts</b>\nReply with a number between 1 and %d to publish one. The offer expires %s.",
		len(posts), len(posts), deadline.In(p.location).Format("2006-01-02 15:04 MST"))
	if err := p.chat.Send(ctx, header); err != nil {
		return fmt.Errorf("send offer header: %w", err)
	}
	for i, post := range posts {
		if err := p.chat.Send(ctx, formatPostMessage(i+1, post)); err != nil {
			return fmt.Errorf("send offer %d: %w", i+1, err)
		}
	}
	return nil
}

// awaitSelection returns ok=false without error when the wait timed out or
// the session vanished.
func (p *Pipeline) awaitSelection(ctx context.Context, handle Handle, since time.Time, total int) (domain.Post, bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, p.selectionTimeout)
	defer cancel()

	for {
		reply, err := p.chat.NextReply(waitCtx, since)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Post{}, false, ctx.Err()
			}
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				p.metrics.SelectionAttempt(OutcomeTimeout)
				p.logger.Info("selection timed out", "timeout", p.selectionTimeout)
				p.notify(ctx, "⏰ No selection received in time. Nothing was published.")
				return domain.Post{}, false, nil
			}
			return domain.Post{}, false, fmt.Errorf("await selection: %w", err)
		}

		post, err := p.sessions.Select(handle, reply)
		switch {
		case err == nil:
			p.metrics.SelectionAttempt(OutcomeSelected)
			return post, true, nil
		case errors.Is(err, ErrIndexOutOfRange):
			p.metrics.SelectionAttempt(OutcomeOutOfRange)
			p.notify(ctx, fmt.Sprintf("Please select a number between 1 and %d.", total))
		case errors.Is(err, ErrNotANumber):
			p.metrics.SelectionAttempt(OutcomeNotANumber)
			p.notify(ctx, fmt.Sprintf("Please send a number between 1 and %d to select an article.", total))
		default:
			p.metrics.SelectionAttempt(OutcomeNoSession)
			p.notify(ctx, "No articles available. Please wait for the next update.")
			return domain.Post{}, false, nil
		}
	}
}

// notify is best effort; failures are only logged.
func (p *Pipeline) notify(ctx context.Context, text string) {
	if err := p.chat.Send(ctx, text); err != nil {
		p.logger.Warn("chat notice failed", "err", err)
	}
}

func formatPostMessage(n int, post domain.Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 <b>AI News Update #%d</b>\n\n", n)
	b.WriteString(textutil.EscapeHTML(post.Content, maxMessageContent))
	b.WriteString("\n\n")
	if s := post.Sentiment; s != nil {
		b.WriteString("📊 Sentiment Analysis:\n")
		fmt.Fprintf(&b, "Rating: %s (%.1f/5)\n", strings.Repeat("⭐", int(s.Rating)), s.Rating)
		fmt.Fprintf(&b, "Confidence: %.1f%%\n\n", s.Confidence*100)
	}
	fmt.Fprintf(&b, "🔗 Source: %s", html.EscapeString(post.SourceURL))
	return b.String()
}

func formatAcknowledgement(post domain.Post) string {
	return fmt.Sprintf("✅ Selected: <b>%s</b>\n\n%s\n\nPublishing to LinkedIn...",
		textutil.EscapeHTML(post.Title, maxMessageTitle), textutil.EscapeHTML(post.Content, maxMessageContent))
}

func formatOutcome(result domain.PublishResult) string {
	switch result.Status {
	case domain.PublishStatusPublished:
		return "🎉 Successfully posted to LinkedIn!"
	case domain.PublishStatusCredentialsExpired:
		return "🔑 The LinkedIn access token has expired. Please renew LINKEDIN_ACCESS_TOKEN and restart the service."
	default:
		return "❌ Failed to post to LinkedIn: " + textutil.EscapeHTML(result.Detail, maxFailureDetail)
	}
}
