package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/logging"
	"NewsCurator/internal/ports"
)

type pipelineFixture struct {
	store     *memStore
	model     *fakeModel
	chat      *fakeChat
	share     *fakeShare
	artifacts *fakeArtifacts
	metrics   *countingMetrics
	pipeline  *Pipeline
}

func newPipelineFixture(articles []domain.Article, replies []string) *pipelineFixture {
	f := &pipelineFixture{
		store:     &memStore{},
		model:     echoModel(),
		chat:      &fakeChat{replies: replies},
		share:     &fakeShare{resp: ports.ShareResponse{StatusCode: http.StatusCreated}},
		artifacts: &fakeArtifacts{},
		metrics:   &countingMetrics{},
	}
	logger := logging.Discard()
	history := NewHistoryStore(f.store)
	timeout := 50 * time.Millisecond

	f.pipeline = NewPipeline(PipelineDeps{
		Collector: staticSource{articles: articles},
		Generator: NewGenerator(f.model, GeneratorConfig{
			SystemPrompt:    "persona",
			SentimentPrompt: "sentiment",
			Sentiment:       true,
		}, f.metrics, logger),
		History:          history,
		Sessions:         NewSessions(time.Hour),
		Gateway:          NewGateway(f.share, nil, history, 0, f.metrics, logger),
		Chat:             f.chat,
		Artifacts:        f.artifacts,
		Metrics:          f.metrics,
		Logger:           logger,
		Limit:            3,
		HistoryContext:   10,
		SelectionTimeout: timeout,
	})
	return f
}

func threeArticles() []domain.Article {
	return []domain.Article{
		article("Eins", "https://heise.de/1"),
		article("Zwei", "https://golem.de/2"),
		article("Drei", "https://t3n.de/3"),
	}
}

func containsMessage(messages []string, substr string) bool {
	for _, m := range messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestPipelineSelectsAndPublishesSecondPost(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(threeArticles(), []string{"2"})
	if err := f.pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(f.share.calls) != 1 {
		t.Fatalf("expected exactly one publish, got %d", len(f.share.calls))
	}
	if f.share.calls[0].ArticleURL != "https://golem.de/2" || f.share.calls[0].Text != "post about Zwei" {
		t.Fatalf("published wrong post: %+v", f.share.calls[0])
	}
	if len(f.store.records) != 1 || f.store.records[0].URL != "https://golem.de/2" {
		t.Fatalf("expected exactly one history record for golem.de/2, got %+v", f.store.records)
	}

	if len(f.artifacts.offered) != 3 || f.artifacts.selected == nil || f.artifacts.selected.SourceURL != "https://golem.de/2" {
		t.Fatalf("artifacts not written: %+v", f.artifacts)
	}

	msgs := f.chat.messages()
	if !strings.Contains(msgs[0], "between 1 and 3") {
		t.Fatalf("header should state the range: %q", msgs[0])
	}
	for i, want := range []string{"#1", "#2", "#3"} {
		if !strings.Contains(msgs[i+1], "AI News Update "+want) {
			t.Fatalf("message %d missing number %s: %q", i+1, want, msgs[i+1])
		}
	}
	if !strings.Contains(msgs[2], "⭐⭐⭐⭐ (4.0/5)") || !strings.Contains(msgs[2], "Confidence: 80.0%") || !strings.Contains(msgs[2], "Source: https://golem.de/2") {
		t.Fatalf("unexpected post message layout: %q", msgs[2])
	}
	if !containsMessage(msgs, "Selected") || !containsMessage(msgs, "Successfully posted") {
		t.Fatalf("missing acknowledgement or outcome: %v", msgs)
	}
	if len(f.metrics.attempts) != 1 || f.metrics.attempts[0] != OutcomeSelected {
		t.Fatalf("unexpected attempts: %v", f.metrics.attempts)
	}
}

func TestPipelineOutOfRangeNeverPublishes(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(threeArticles(), []string{"9"})
	if err := f.pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(f.share.calls) != 0 {
		t.Fatalf("expected zero publishes, got %d", len(f.share.calls))
	}
	if len(f.store.records) != 0 {
		t.Fatalf("expected no history records")
	}
	msgs := f.chat.messages()
	if !containsMessage(msgs, "Please select a number between 1 and 3.") {
		t.Fatalf("missing range guidance: %v", msgs)
	}
	if !containsMessage(msgs, "No selection received in time") {
		t.Fatalf("missing timeout notice: %v", msgs)
	}
	want := []string{OutcomeOutOfRange, OutcomeTimeout}
	if len(f.metrics.attempts) != 2 || f.metrics.attempts[0] != want[0] || f.metrics.attempts[1] != want[1] {
		t.Fatalf("unexpected attempts: %v", f.metrics.attempts)
	}
}

func TestPipelineRecoversFromBadInput(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(threeArticles(), []string{"zwei", "0", "3"})
	if err := f.pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	msgs := f.chat.messages()
	if !containsMessage(msgs, "Please send a number between 1 and 3 to select an article.") {
		t.Fatalf("missing format guidance: %v", msgs)
	}
	if len(f.share.calls) != 1 || f.share.calls[0].ArticleURL != "https://t3n.de/3" {
		t.Fatalf("expected third post published, got %+v", f.share.calls)
	}
}

func TestPipelineNeverOffersPublishedURL(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(threeArticles(), []string{"1"})
	f.store.records = append(f.store.records, domain.PostRecord{ID: "old", URL: "https://golem.de/2", Content: "früher"})

	if err := f.pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	for _, p := range f.artifacts.offered {
		if p.SourceURL == "https://golem.de/2" {
			t.Fatalf("published URL was offered again")
		}
	}
	if len(f.artifacts.offered) != 2 {
		t.Fatalf("expected 2 offered posts, got %d", len(f.artifacts.offered))
	}
	if f.metrics.duplicates != 1 {
		t.Fatalf("duplicate not counted")
	}
	for _, call := range f.model.calls {
		if strings.Contains(call.Messages[len(call.Messages)-1].Content, "https://golem.de/2") {
			t.Fatalf("model was called for an already published article")
		}
	}
	if !strings.Contains(f.model.calls[0].Messages[1].Content, "früher") {
		t.Fatalf("recent history missing from prompt")
	}
}

func TestPipelineNoCandidates(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(nil, nil)
	if err := f.pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(f.chat.messages()) != 0 || len(f.model.calls) != 0 {
		t.Fatalf("empty collection should end the run silently")
	}

	dup := newPipelineFixture([]domain.Article{article("Eins", "https://heise.de/1")}, nil)
	dup.store.records = append(dup.store.records, domain.PostRecord{URL: "https://heise.de/1"})
	if err := dup.pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(dup.chat.messages()) != 0 || dup.artifacts.offered != nil {
		t.Fatalf("all-duplicate collection should offer nothing")
	}
}

func TestPipelineAbortsOnModelFailure(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(threeArticles(), []string{"1"})
	boom := errors.New("quota exceeded")
	f.model.respond = func(ports.ChatRequest) (string, error) { return "", boom }

	err := f.pipeline.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if len(f.share.calls) != 0 || f.artifacts.offered != nil {
		t.Fatalf("aborted run must not offer or publish")
	}
	if !containsMessage(f.chat.messages(), "aborted") {
		t.Fatalf("operator should get an abort notice")
	}
}

func TestPipelineReportsExpiredCredentials(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(threeArticles(), []string{"1"})
	f.share.resp = ports.ShareResponse{StatusCode: http.StatusUnauthorized, Body: `{"serviceErrorCode":65601}`}

	if err := f.pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !containsMessage(f.chat.messages(), "LINKEDIN_ACCESS_TOKEN") {
		t.Fatalf("missing credentials message: %v", f.chat.messages())
	}
	if len(f.store.records) != 0 {
		t.Fatalf("no history on expired credentials")
	}
}

func TestPipelineCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(threeArticles(), nil)
	f.pipeline.selectionTimeout = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := f.pipeline.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected parent context error, got %v", err)
	}
	if len(f.share.calls) != 0 {
		t.Fatalf("cancelled run must not publish")
	}
}

func TestPipelineOfferSendFailureAborts(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(threeArticles(), []string{"1"})
	f.chat.sendErr = errors.New("telegram down")

	if err := f.pipeline.Run(context.Background()); err == nil {
		t.Fatalf("expected error when the offer cannot be delivered")
	}
	if len(f.share.calls) != 0 {
		t.Fatalf("must not publish without an offer")
	}
}

func TestChatMessagesStayWithinTelegramLimit(t *testing.T) {
	t.Parallel()

	post := domain.Post{
		Title:     strings.Repeat("<KI> ", 200),
		Content:   strings.Repeat("R&D ", 2000),
		SourceURL: "https://heise.de/a?x=1&y=2",
	}

	for name, msg := range map[string]string{
		"offer":           formatPostMessage(1, post),
		"acknowledgement": formatAcknowledgement(post),
	} {
		if n := utf8.RuneCountInString(msg); n > 4096 {
			t.Fatalf("%s message has %d runes", name, n)
		}
		body := strings.ReplaceAll(strings.ReplaceAll(msg, "<b>", ""), "</b>", "")
		if strings.ContainsAny(body, "<>") {
			t.Fatalf("%s message has unescaped markup", name)
		}
		if strings.Count(msg, "&") != strings.Count(msg, "&amp;")+strings.Count(msg, "&lt;")+strings.Count(msg, "&gt;") {
			t.Fatalf("%s message has a split entity", name)
		}
	}
}
