package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
	"NewsCurator/internal/search"
)

type memStore struct {
	records []domain.PostRecord
	putErr  error
}

func (m *memStore) Put(ctx context.Context, key string, record domain.PostRecord) error {
	if m.putErr != nil {
		return m.putErr
	}
	record.ID = key
	m.records = append(m.records, record)
	return nil
}

func (m *memStore) GetAll(ctx context.Context) ([]domain.PostRecord, error) {
	return append([]domain.PostRecord(nil), m.records...), nil
}

func (m *memStore) ExistsByField(ctx context.Context, field domain.RecordField, value string) (bool, error) {
	for _, r := range m.records {
		if v, ok := r.Value(field); ok && v == value {
			return true, nil
		}
	}
	return false, nil
}

type fakeProvider struct {
	results  map[string][]domain.Article
	failures map[string]error
	requests []search.Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(ctx context.Context, req search.Request) ([]domain.Article, error) {
	f.requests = append(f.requests, req)
	if err := f.failures[req.Query]; err != nil {
		return nil, err
	}
	return f.results[req.Query], nil
}

type staticSource struct {
	articles []domain.Article
}

func (s staticSource) Fetch(ctx context.Context, window time.Duration, limit int) ([]domain.Article, error) {
	return s.articles, nil
}

type fakeModel struct {
	calls   []ports.ChatRequest
	respond func(req ports.ChatRequest) (string, error)
}

func (f *fakeModel) Complete(ctx context.Context, req ports.ChatRequest) (string, error) {
	f.calls = append(f.calls, req)
	return f.respond(req)
}

// echoModel writes "post about <title>" and scores sentiment "4 0.8".
func echoModel() *fakeModel {
	return &fakeModel{respond: func(req ports.ChatRequest) (string, error) {
		if req.Messages[0].Content == "sentiment" {
			return "4 0.8", nil
		}
		for _, line := range strings.Split(req.Messages[1].Content, "\n") {
			if title, ok := strings.CutPrefix(line, "Title: "); ok {
				return "post about " + title, nil
			}
		}
		return "", errors.New("no title in prompt")
	}}
}

// fakeChat returns scripted replies, then blocks until ctx is done.
type fakeChat struct {
	mu      sync.Mutex
	sent    []string
	replies []string
	sendErr error
}

func (f *fakeChat) Send(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeChat) NextReply(ctx context.Context, since time.Time) (string, error) {
	f.mu.Lock()
	if len(f.replies) > 0 {
		reply := f.replies[0]
		f.replies = f.replies[1:]
		f.mu.Unlock()
		return reply, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return "", ctx.Err()
}

func (f *fakeChat) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeShare struct {
	resp  ports.ShareResponse
	err   error
	calls []ports.ShareRequest
}

func (f *fakeShare) Share(ctx context.Context, req ports.ShareRequest) (ports.ShareResponse, error) {
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

type fakeThumbs struct {
	url string
}

func (f fakeThumbs) FindThumbnail(ctx context.Context, pageURL string) (string, bool) {
	return f.url, f.url != ""
}

type fakeArtifacts struct {
	offered  []domain.Post
	selected *domain.Post
}

func (f *fakeArtifacts) SaveOffered(ctx context.Context, posts []domain.Post) error {
	f.offered = append([]domain.Post(nil), posts...)
	return nil
}

func (f *fakeArtifacts) SaveSelected(ctx context.Context, post domain.Post) error {
	f.selected = &post
	return nil
}

type countingMetrics struct {
	collected  int
	tierFailed []string
	duplicates int
	generated  int
	fallbacks  int
	attempts   []string
	publishes  []domain.PublishStatus
}

func (c *countingMetrics) ArticlesCollected(n int) { c.collected += n }

func (c *countingMetrics) TierFailed(tier string) { c.tierFailed = append(c.tierFailed, tier) }

func (c *countingMetrics) DuplicateFiltered() { c.duplicates++ }

func (c *countingMetrics) PostGenerated() { c.generated++ }

func (c *countingMetrics) SentimentFallback() { c.fallbacks++ }

func (c *countingMetrics) SelectionAttempt(outcome string) {
	c.attempts = append(c.attempts, outcome)
}

func (c *countingMetrics) PublishOutcome(status domain.PublishStatus) {
	c.publishes = append(c.publishes, status)
}

func article(title, url string) domain.Article {
	return domain.NewArticle(title, url, "description of "+title, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
}
