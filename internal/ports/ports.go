package ports

import (
	"context"
	"time"

	"NewsCurator/internal/domain"
)

// ArticleSource pulls candidate articles for a trailing time window.
type ArticleSource interface {
	Fetch(ctx context.Context, window time.Duration, limit int) ([]domain.Article, error)
}

// RecordStore is the append-only persistence primitive behind history.
type RecordStore interface {
	Put(ctx context.Context, key string, record domain.PostRecord) error
	GetAll(ctx context.Context) ([]domain.PostRecord, error)
	ExistsByField(ctx context.Context, field domain.RecordField, value string) (bool, error)
}

// Message is one role-tagged chat turn sent to a language model.
type Message struct {
	Role    string
	Content string
}

// ChatRequest is a single completion call.
type ChatRequest struct {
	Model       string
	Temperature float64
	Messages    []Message
}

// ChatModel returns free-text completions (OpenAI, Gemini, ...).
type ChatModel interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ChatChannel talks to the operator (Telegram, etc.).
type ChatChannel interface {
	Send(ctx context.Context, text string) error
	// NextReply blocks until the operator sends a plain-text message
	// newer than since, or ctx is done.
	NextReply(ctx context.Context, since time.Time) (string, error)
}

// ShareRequest is the payload for a single article share.
type ShareRequest struct {
	Text         string
	ArticleURL   string
	ArticleTitle string
	ThumbnailURL string
}

// ShareResponse is the raw answer of the social network.
type ShareResponse struct {
	StatusCode int
	Body       string
}

// ShareClient posts shares to the social network.
type ShareClient interface {
	Share(ctx context.Context, req ShareRequest) (ShareResponse, error)
}

// ThumbnailFinder looks up a preview image for a page. It never fails:
// ok is false when nothing usable was found.
type ThumbnailFinder interface {
	FindThumbnail(ctx context.Context, pageURL string) (string, bool)
}

// ArtifactSink writes audit snapshots of a run; nothing reads them back.
type ArtifactSink interface {
	SaveOffered(ctx context.Context, posts []domain.Post) error
	SaveSelected(ctx context.Context, post domain.Post) error
}

// Metrics receives pipeline counters.
type Metrics interface {
	ArticlesCollected(n int)
	TierFailed(tier string)
	DuplicateFiltered()
	PostGenerated()
	SentimentFallback()
	SelectionAttempt(outcome string)
	PublishOutcome(status domain.PublishStatus)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
